package port

import "context"

// TextExtractor pulls the text layer out of a PDF document.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}
