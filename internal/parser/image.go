package parser

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"

	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register decoder

	"parcelscope/internal/domain"
)

// DefaultMaxImagePixels caps width*height of images that get decoded.
const DefaultMaxImagePixels = 100_000_000

// ImageLimits bounds the images sent to a model.
type ImageLimits struct {
	MaxDimension int   // longer side above which images are scaled down
	ResizeTo     int   // longer side after scaling
	MaxPixels    int64 // decoded raster budget; DefaultMaxImagePixels when zero
}

// nativeImageFormats are formats every provider accepts as-is.
var nativeImageFormats = map[string]bool{
	"png":  true,
	"jpeg": true,
}

// PrepareImage returns image bytes a vision model can consume. TIFF and BMP
// are re-encoded as PNG; images whose longer side exceeds MaxDimension are
// scaled down so the longer side equals ResizeTo. Images that need neither are
// returned untouched. Headers claiming more than MaxPixels are rejected before
// any pixel data is decoded. All errors wrap domain.ErrUnsupportedMediaType.
func PrepareImage(data []byte, mediaType string, limits ImageLimits) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading image header: %w", domain.ErrUnsupportedMediaType, err)
	}

	maxPixels := limits.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, "", fmt.Errorf("%w: %s image of %dx%d exceeds %d pixels",
			domain.ErrUnsupportedMediaType, format, cfg.Width, cfg.Height, maxPixels)
	}

	convert := !nativeImageFormats[format]
	maxDim, resizeTo := limits.MaxDimension, limits.ResizeTo
	resize := maxDim > 0 && resizeTo > 0 && (cfg.Width > maxDim || cfg.Height > maxDim)
	if !convert && !resize {
		return data, mediaType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: decoding %s image: %w", domain.ErrUnsupportedMediaType, format, err)
	}
	if resize {
		img = downscale(img, resizeTo)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("%w: encoding png: %w", domain.ErrUnsupportedMediaType, err)
	}
	return buf.Bytes(), "image/png", nil
}

func downscale(src image.Image, longest int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := float64(longest) / float64(max(w, h))
	dst := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
