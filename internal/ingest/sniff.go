package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"parcelscope/internal/domain"
)

// FileTypeFromName returns the allow-listed file type for filename's
// extension.
func FileTypeFromName(filename string) (domain.FileType, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ft, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q is not allowed", domain.ErrUnsupportedMediaType, ext)
	}
	return ft, nil
}

// SniffContent detects the media type of data and checks that it belongs to
// the family implied by the claimed file type. It returns the canonical media
// type to store with the document.
func SniffContent(claimed domain.FileType, data []byte) (string, error) {
	want, ok := domain.AllowedFileTypes[claimed]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, claimed)
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return want, nil
		}
	}
	return "", fmt.Errorf("%w: content is %s, extension claims %s",
		domain.ErrUnsupportedMediaType, detected.String(), claimed)
}
