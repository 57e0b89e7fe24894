package parser_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"parcelscope/internal/domain"
	"parcelscope/internal/parser"
	"parcelscope/internal/port"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBuildBoundaryPrompt(t *testing.T) {
	plat := parser.BuildBoundaryPrompt(domain.DocumentTypePlat)
	assert.Contains(t, plat, `"vertices"`)
	assert.Contains(t, plat, "PLAT MAP SPECIFIC INSTRUCTIONS")

	unknown := parser.BuildBoundaryPrompt(domain.DocumentTypeUnknown)
	assert.Contains(t, unknown, "GENERAL PROPERTY DOCUMENT INSTRUCTIONS")
	assert.NotContains(t, unknown, "PLAT MAP")
}

func TestBuildTextPrompt_EmbedsText(t *testing.T) {
	prompt := parser.BuildTextPrompt("BEGINNING at a point 45.5N 122.6W")
	assert.Contains(t, prompt, "LEGAL DESCRIPTION SPECIFIC INSTRUCTIONS")
	assert.Contains(t, prompt, "BEGINNING at a point 45.5N 122.6W")
}

func TestPrepareImage_PassThrough(t *testing.T) {
	data := encodePNG(t, testImage(10, 10))

	out, mediaType, err := parser.PrepareImage(data, "image/png", parser.ImageLimits{MaxDimension: 100, ResizeTo: 50})

	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, "image/png", mediaType)
}

func TestPrepareImage_Downscale(t *testing.T) {
	data := encodePNG(t, testImage(40, 20))

	out, mediaType, err := parser.PrepareImage(data, "image/png", parser.ImageLimits{MaxDimension: 30, ResizeTo: 20})

	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
}

func TestPrepareImage_ConvertsBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage(8, 8)))

	out, mediaType, err := parser.PrepareImage(buf.Bytes(), "image/bmp", parser.ImageLimits{MaxDimension: 100, ResizeTo: 50})

	require.NoError(t, err)
	assert.Equal(t, "image/png", mediaType)
	_, err = png.DecodeConfig(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestPrepareImage_Garbage(t *testing.T) {
	_, _, err := parser.PrepareImage([]byte("not an image"), "image/png", parser.ImageLimits{MaxDimension: 100, ResizeTo: 50})
	assert.Error(t, err)
}

// pngHeader returns a PNG signature and IHDR chunk claiming w x h RGBA pixels
// with no image data behind it.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6 // bit depth, color type RGBA
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

// bmpHeader returns a 24-bit BMP header claiming w x h pixels.
func bmpHeader(w, h int32) []byte {
	var buf bytes.Buffer
	buf.WriteString("BM")
	for _, v := range []any{
		uint32(54), uint32(0), uint32(54), // file size, reserved, pixel offset
		uint32(40), w, h, uint16(1), uint16(24), // info header
		uint32(0), uint32(0), int32(2835), int32(2835), uint32(0), uint32(0),
	} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func TestPrepareImage_RejectsOversizedRaster(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		mediaType string
	}{
		{"png", pngHeader(15000, 15000), "image/png"},
		{"bmp", bmpHeader(20000, 20000), "image/bmp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parser.PrepareImage(tt.data, tt.mediaType, parser.ImageLimits{MaxDimension: 4000, ResizeTo: 3000})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnsupportedMediaType))
			assert.Contains(t, err.Error(), "exceeds")
		})
	}
}

func TestPrepareImage_CustomPixelBudget(t *testing.T) {
	data := encodePNG(t, testImage(40, 20))

	_, _, err := parser.PrepareImage(data, "image/png", parser.ImageLimits{MaxPixels: 799})
	assert.ErrorIs(t, err, domain.ErrUnsupportedMediaType)

	_, _, err = parser.PrepareImage(data, "image/png", parser.ImageLimits{MaxPixels: 800})
	assert.NoError(t, err)
}

func TestBuilder_Build_OversizedImage(t *testing.T) {
	b := parser.NewBuilder(parser.BuilderConfig{MaxImageDimension: 4000, ResizeImageTo: 3000}, nil)
	doc := &domain.Document{ID: uuid.New(), FileType: domain.FileTypePNG, ContentType: "image/png"}

	_, err := b.Build(context.Background(), doc, pngHeader(15000, 15000), "")

	assert.ErrorIs(t, err, domain.ErrUnsupportedMediaType)
}

func TestBuilder_Build_Image(t *testing.T) {
	b := parser.NewBuilder(parser.BuilderConfig{
		Params:            port.ModelParams{Model: "gpt-4o"},
		MaxImageDimension: 4000,
		ResizeImageTo:     3000,
	}, nil)
	doc := &domain.Document{
		ID:           uuid.New(),
		FileType:     domain.FileTypePNG,
		ContentType:  "image/png",
		DocumentType: domain.DocumentTypeParcelMap,
	}

	req, err := b.Build(context.Background(), doc, encodePNG(t, testImage(4, 4)), "")

	require.NoError(t, err)
	require.NotNil(t, req.FileID)
	assert.Equal(t, doc.ID, *req.FileID)
	assert.Equal(t, domain.DocumentTypeParcelMap, req.DocumentType)
	assert.Equal(t, port.PayloadImage, req.Payload.Kind)
	assert.Equal(t, "gpt-4o", req.Params.Model)
	assert.Contains(t, req.Prompt, "PARCEL MAP SPECIFIC INSTRUCTIONS")
}

func TestBuilder_Build_HintOverridesDetectedType(t *testing.T) {
	b := parser.NewBuilder(parser.BuilderConfig{}, nil)
	doc := &domain.Document{ID: uuid.New(), FileType: domain.FileTypeTXT, DocumentType: domain.DocumentTypeUnknown}

	req, err := b.Build(context.Background(), doc, []byte("THENCE north 100 feet"), domain.DocumentTypeSurvey)

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeSurvey, req.DocumentType)
	assert.Equal(t, port.PayloadText, req.Payload.Kind)
	assert.Contains(t, req.Prompt, "THENCE north 100 feet")
}

func TestBuilder_Build_PDFText(t *testing.T) {
	b := parser.NewBuilder(parser.BuilderConfig{}, fakeExtractor{text: "Lot 4 Block 2"})
	doc := &domain.Document{ID: uuid.New(), FileType: domain.FileTypePDF}

	req, err := b.Build(context.Background(), doc, []byte("%PDF-1.4"), "")

	require.NoError(t, err)
	assert.Equal(t, port.PayloadPDF, req.Payload.Kind)
	assert.Equal(t, "Lot 4 Block 2", req.Payload.Text)
	assert.Equal(t, domain.DocumentTypeUnknown, req.DocumentType)
	assert.Contains(t, parser.UserText(*req), "Lot 4 Block 2")
}

func TestBuilder_Build_PDFExtractionFailureIsNotFatal(t *testing.T) {
	b := parser.NewBuilder(parser.BuilderConfig{}, fakeExtractor{err: errors.New("encrypted")})
	doc := &domain.Document{ID: uuid.New(), FileType: domain.FileTypePDF}

	req, err := b.Build(context.Background(), doc, []byte("%PDF-1.4"), "")

	require.NoError(t, err)
	assert.Empty(t, req.Payload.Text)
	assert.Equal(t, req.Prompt, parser.UserText(*req))
}

func TestBuilder_Build_UndecodableImage(t *testing.T) {
	b := parser.NewBuilder(parser.BuilderConfig{}, nil)
	doc := &domain.Document{ID: uuid.New(), FileType: domain.FileTypeJPG, ContentType: "image/jpeg"}

	_, err := b.Build(context.Background(), doc, []byte("garbage"), "")

	assert.ErrorIs(t, err, domain.ErrUnsupportedMediaType)
}

func TestBuilder_BuildText(t *testing.T) {
	b := parser.NewBuilder(parser.BuilderConfig{}, nil)

	_, err := b.BuildText("   ")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	req, err := b.BuildText("  Commencing at the NE corner  ")
	require.NoError(t, err)
	assert.Nil(t, req.FileID)
	assert.Equal(t, domain.DocumentTypeLegalDescription, req.DocumentType)
	assert.Equal(t, "Commencing at the NE corner", req.Payload.Text)
	assert.Contains(t, req.Prompt, "Commencing at the NE corner")
}
