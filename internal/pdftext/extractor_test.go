package pdftext_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"parcelscope/internal/pdftext"
)

func TestExtractText_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pdftext.NewExtractor(t.TempDir()).ExtractText(ctx, []byte("%PDF-1.4"))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractText_NotAPDF(t *testing.T) {
	_, err := pdftext.NewExtractor(t.TempDir()).ExtractText(context.Background(), []byte("plain text, not a pdf"))

	assert.Error(t, err)
}
