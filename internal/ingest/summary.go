package ingest

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"strings"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder

	"parcelscope/internal/domain"
)

// Inspection is what the ingestor learns about a document's content.
type Inspection struct {
	Summary            string
	CoordinatePatterns []string
	Width              int
	Height             int
	WordCount          int
}

// Inspect gathers display metadata for an accepted upload. It never fails:
// unreadable details are left out of the summary.
func Inspect(ft domain.FileType, data []byte) Inspection {
	var in Inspection
	parts := []string{
		"File type: " + string(ft),
		fmt.Sprintf("Size: %.1f MB", float64(len(data))/(1024*1024)),
	}

	switch {
	case ft.IsImage():
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			in.Width, in.Height = cfg.Width, cfg.Height
			parts = append(parts, fmt.Sprintf("Dimensions: %dx%d", cfg.Width, cfg.Height))
		}
	case ft == domain.FileTypeTXT:
		if text, err := DecodeText(data); err == nil {
			in.WordCount = len(strings.Fields(text))
			in.CoordinatePatterns = FindCoordinatePatterns(text)
			parts = append(parts,
				fmt.Sprintf("Words: %d", in.WordCount),
				fmt.Sprintf("Coordinate patterns found: %d", len(in.CoordinatePatterns)))
		}
	}

	parts = append(parts, "Ready for analysis: Yes")
	in.Summary = strings.Join(parts, " | ")
	return in
}
