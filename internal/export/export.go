// Package export serializes analysis results as JSON, CSV or KML.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"parcelscope/internal/domain"
)

// Format is an export target.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatKML  Format = "kml"
)

var contentTypes = map[Format]string{
	FormatJSON: "application/json",
	FormatCSV:  "text/csv",
	FormatKML:  "application/vnd.google-earth.kml+xml",
}

// Output is a serialized result ready to hand to a client.
type Output struct {
	Format      Format
	ContentType string
	Filename    string
	Data        []byte
}

// ParseFormat normalizes s into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("%w: %q (want json, csv or kml)", domain.ErrUnsupportedExportFormat, s)
	}
	return f, nil
}

// Serialize renders result in the named format.
func Serialize(result *domain.AnalysisResult, format string) (*Output, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch f {
	case FormatJSON:
		data, err = marshalJSON(result)
	case FormatCSV:
		data, err = marshalCSV(result)
	case FormatKML:
		data, err = marshalKML(result)
	}
	if err != nil {
		return nil, err
	}

	return &Output{
		Format:      f,
		ContentType: contentTypes[f],
		Filename:    BuildFilename(string(result.DocumentType)+"_boundary", f),
		Data:        data,
	}, nil
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces characters other than alphanumerics, '-' and
// '_' with '_', collapses runs of '_' and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "boundary"
	}
	return s
}

// BuildFilename returns {sanitized_base}_{YYYY-MM-DD}.{format}.
func BuildFilename(base string, format Format) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(base), time.Now().Format("2006-01-02"), format)
}
