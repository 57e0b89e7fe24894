// Package pdftext extracts the text layer from uploaded PDFs.
package pdftext

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tsawler/tabula"
)

// Extractor implements port.TextExtractor with tabula. tabula works on
// files, so each call spools the document to a temporary .pdf file.
type Extractor struct {
	tempDir string
}

// NewExtractor creates an Extractor that spools into tempDir ("" means the
// OS default).
func NewExtractor(tempDir string) *Extractor {
	return &Extractor{tempDir: tempDir}
}

func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(e.tempDir, "parcelscope-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp pdf: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing temp pdf: %w", err)
	}

	text, warnings, err := tabula.Open(f.Name()).Text()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	if len(warnings) > 0 {
		log.Printf("pdftext.ExtractText: %d warning(s) while extracting text", len(warnings))
	}
	return strings.TrimSpace(text), nil
}
