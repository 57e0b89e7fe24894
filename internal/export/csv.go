package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"parcelscope/internal/domain"
)

var columns = []string{"index", "latitude", "longitude", "description"}

// Writer wraps csv.Writer for exporting vertices.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteVertices writes one row per vertex.
func (w *Writer) WriteVertices(vertices []domain.Vertex) error {
	for i := range vertices {
		if err := w.csv.Write(vertexToRow(&vertices[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func vertexToRow(v *domain.Vertex) []string {
	return []string{
		strconv.Itoa(v.SequenceIndex),
		formatDegrees(v.Latitude),
		formatDegrees(v.Longitude),
		v.Description,
	}
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func marshalCSV(result *domain.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	if err := w.WriteVertices(result.Vertices); err != nil {
		return nil, fmt.Errorf("writing csv rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}
