package parser

import (
	"context"
	"fmt"
	"log"
	"strings"

	"parcelscope/internal/domain"
	"parcelscope/internal/ingest"
	"parcelscope/internal/port"
)

// BuilderConfig controls how documents are turned into model requests.
type BuilderConfig struct {
	Params            port.ModelParams
	MaxImageDimension int
	ResizeImageTo     int
	MaxImagePixels    int64
}

// Builder assembles AnalysisRequests from stored documents. It performs no
// network calls.
type Builder struct {
	cfg     BuilderConfig
	pdfText port.TextExtractor
}

// NewBuilder creates a Builder. pdfText may be nil, in which case PDFs are
// sent without an extracted text layer.
func NewBuilder(cfg BuilderConfig, pdfText port.TextExtractor) *Builder {
	return &Builder{cfg: cfg, pdfText: pdfText}
}

// Build creates the request for an uploaded document. A non-empty hint
// overrides the document type detected at upload.
func (b *Builder) Build(ctx context.Context, doc *domain.Document, data []byte, hint domain.DocumentType) (*port.AnalysisRequest, error) {
	docType := hint
	if docType == "" {
		docType = doc.DocumentType
	}
	if docType == "" {
		docType = domain.DocumentTypeUnknown
	}

	id := doc.ID
	req := &port.AnalysisRequest{
		FileID:       &id,
		DocumentType: docType,
		Prompt:       BuildBoundaryPrompt(docType),
		Params:       b.cfg.Params,
	}

	switch {
	case doc.FileType.IsImage():
		img, mediaType, err := PrepareImage(data, doc.ContentType, ImageLimits{
			MaxDimension: b.cfg.MaxImageDimension,
			ResizeTo:     b.cfg.ResizeImageTo,
			MaxPixels:    b.cfg.MaxImagePixels,
		})
		if err != nil {
			return nil, err
		}
		req.Payload = port.Payload{Kind: port.PayloadImage, MediaType: mediaType, Data: img}

	case doc.FileType == domain.FileTypePDF:
		req.Payload = port.Payload{Kind: port.PayloadPDF, MediaType: "application/pdf", Data: data}
		if b.pdfText != nil {
			text, err := b.pdfText.ExtractText(ctx, data)
			if err != nil {
				log.Printf("parser.Builder.Build: pdf text extraction failed for %s: %v", doc.ID, err)
			}
			req.Payload.Text = text
		}

	case doc.FileType == domain.FileTypeTXT:
		text, err := ingest.DecodeText(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnsupportedMediaType, err)
		}
		req.Payload = port.Payload{Kind: port.PayloadText, MediaType: "text/plain", Text: text}
		req.Prompt = withDocumentText(req.Prompt, text)

	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, doc.FileType)
	}

	return req, nil
}

// BuildText creates a text-only request for a pasted legal description.
func (b *Builder) BuildText(text string) (*port.AnalysisRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidRequest)
	}
	return &port.AnalysisRequest{
		DocumentType: domain.DocumentTypeLegalDescription,
		Prompt:       BuildTextPrompt(text),
		Payload:      port.Payload{Kind: port.PayloadText, MediaType: "text/plain", Text: text},
		Params:       b.cfg.Params,
	}, nil
}

// UserText returns the text a text-only provider should send for req: the
// prompt, followed by the PDF text layer when there is one.
func UserText(req port.AnalysisRequest) string {
	if req.Payload.Kind == port.PayloadPDF && req.Payload.Text != "" {
		return withDocumentText(req.Prompt, req.Payload.Text)
	}
	return req.Prompt
}
