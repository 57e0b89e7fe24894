package port

import (
	"context"

	"github.com/google/uuid"

	"parcelscope/internal/domain"
)

// PayloadKind identifies how a document is presented to the model.
type PayloadKind string

const (
	PayloadImage PayloadKind = "image"
	PayloadPDF   PayloadKind = "pdf"
	PayloadText  PayloadKind = "text"
)

// Payload is the document content attached to an analysis request.
// Data holds raw bytes for image and pdf payloads; Text holds the decoded
// content for text payloads and the extracted text layer of PDFs.
type Payload struct {
	Kind      PayloadKind
	MediaType string
	Data      []byte
	Text      string
}

// ModelParams are the sampling parameters for a single model call.
type ModelParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// AnalysisRequest carries everything a provider needs for one analysis call.
type AnalysisRequest struct {
	FileID       *uuid.UUID
	DocumentType domain.DocumentType
	Prompt       string
	Payload      Payload
	Params       ModelParams
}

// ModelResponse is the raw, untrusted text returned by a model.
type ModelResponse struct {
	Raw       string
	ModelUsed string
}

// DocumentParser abstracts the external vision-language model.
type DocumentParser interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*ModelResponse, error)
}
