// Package normalize turns raw model output into a validated AnalysisResult.
// Model output is untrusted: every field is located, type-checked and
// coerced explicitly.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"parcelscope/internal/domain"
)

// excerptLen bounds how much of a bad response is echoed back in errors.
const excerptLen = 200

// decimalLiteral is the only string form coerced to a number. ParseFloat
// alone would also take NaN, Inf and hex floats.
var decimalLiteral = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

var (
	documentTypeKeys = []string{"document_type", "documentType", "type"}
	confidenceKeys   = []string{"confidence_score", "confidence", "confidenceScore"}
	vertexListKeys   = []string{"vertices", "boundary_coordinates", "coordinates", "points"}
	latitudeKeys     = []string{"latitude", "lat"}
	longitudeKeys    = []string{"longitude", "lon", "lng", "long"}
	descriptionKeys  = []string{"description", "desc", "point_id"}
	notesKeys        = []string{"extraction_notes", "notes"}
)

// Report carries what the normalizer learned besides the result itself.
type Report struct {
	SkippedVertices int
	ExtractionNotes string
	Flags           []domain.QualityFlag
}

// Normalize extracts the JSON object embedded in raw and maps it onto an
// AnalysisResult. Vertices with both coordinates null are skipped and
// counted. Any other deviation fails with domain.ErrMalformedModelResponse.
func Normalize(raw string) (*domain.AnalysisResult, *Report, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, nil, malformed(raw, "no JSON object found")
	}

	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, nil, malformed(raw, "decoding JSON: "+err.Error())
	}

	result := &domain.AnalysisResult{}
	report := &Report{}

	docType, err := documentType(fields)
	if err != nil {
		return nil, nil, malformed(raw, err.Error())
	}
	result.DocumentType = docType

	confidence, err := confidenceScore(fields)
	if err != nil {
		return nil, nil, malformed(raw, err.Error())
	}
	result.ConfidenceScore = confidence

	items, err := vertexList(fields)
	if err != nil {
		return nil, nil, malformed(raw, err.Error())
	}

	result.Vertices = make([]domain.Vertex, 0, len(items))
	for i, item := range items {
		v, skip, err := vertex(item)
		if err != nil {
			return nil, nil, malformed(raw, fmt.Sprintf("vertex %d: %v", i, err))
		}
		if skip {
			report.SkippedVertices++
			continue
		}
		v.SequenceIndex = len(result.Vertices)
		result.Vertices = append(result.Vertices, v)
	}
	if report.SkippedVertices > 0 {
		report.Flags = append(report.Flags, domain.FlagIncompleteVertices)
	}

	if v, ok := lookup(fields, notesKeys); ok {
		if s, ok := v.(string); ok {
			report.ExtractionNotes = strings.TrimSpace(s)
		}
	}

	return result, report, nil
}

// ExtractJSONObject returns the outermost balanced JSON object in s,
// looking inside a fenced code block first. Braces inside string literals
// are ignored.
func ExtractJSONObject(s string) (string, bool) {
	if fenced, ok := fencedBlock(s); ok {
		if obj, ok := firstObject(fenced); ok {
			return obj, true
		}
	}
	return firstObject(s)
}

func fencedBlock(s string) (string, bool) {
	start := strings.Index(s, "```")
	if start < 0 {
		return "", false
	}
	body := s[start+3:]
	// drop the language tag line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.Contains(body[:nl], "{") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body, true
}

func firstObject(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := matchBrace(s, i)
		if end < 0 {
			continue
		}
		candidate := s[i : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func lookup(fields map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func documentType(fields map[string]any) (domain.DocumentType, error) {
	v, ok := lookup(fields, documentTypeKeys)
	if !ok || v == nil {
		return domain.DocumentTypeUnknown, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("document_type is %T, want string", v)
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if t, ok := domain.ParseDocumentType(s); ok {
		return t, nil
	}
	return domain.DocumentTypeUnknown, nil
}

func confidenceScore(fields map[string]any) (float64, error) {
	v, ok := lookup(fields, confidenceKeys)
	if !ok || v == nil {
		return 0, fmt.Errorf("confidence_score is missing")
	}
	f, err := number(v)
	if err != nil {
		return 0, fmt.Errorf("confidence_score: %w", err)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("confidence_score %v outside [0,1]", f)
	}
	return f, nil
}

func vertexList(fields map[string]any) ([]any, error) {
	v, ok := lookup(fields, vertexListKeys)
	if !ok {
		return nil, fmt.Errorf("vertices are missing")
	}
	// boundary_coordinates may nest the list one level down
	if nested, ok := v.(map[string]any); ok {
		v, ok = lookup(nested, vertexListKeys)
		if !ok {
			return nil, fmt.Errorf("vertices are missing")
		}
	}
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return list, nil
	default:
		return nil, fmt.Errorf("vertices is %T, want array", v)
	}
}

func vertex(item any) (domain.Vertex, bool, error) {
	fields, ok := item.(map[string]any)
	if !ok {
		return domain.Vertex{}, false, fmt.Errorf("is %T, want object", item)
	}
	lat, _ := lookup(fields, latitudeKeys)
	lon, _ := lookup(fields, longitudeKeys)
	if lat == nil && lon == nil {
		return domain.Vertex{}, true, nil
	}
	if lat == nil || lon == nil {
		return domain.Vertex{}, false, fmt.Errorf("only one coordinate present")
	}

	var v domain.Vertex
	var err error
	if v.Latitude, err = number(lat); err != nil {
		return domain.Vertex{}, false, fmt.Errorf("latitude: %w", err)
	}
	if v.Longitude, err = number(lon); err != nil {
		return domain.Vertex{}, false, fmt.Errorf("longitude: %w", err)
	}
	if d, ok := lookup(fields, descriptionKeys); ok {
		switch d := d.(type) {
		case string:
			v.Description = strings.TrimSpace(d)
		case json.Number:
			v.Description = d.String()
		}
	}
	return v, false, nil
}

// number accepts JSON numbers and strings holding a plain decimal number.
func number(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		s := strings.TrimSpace(n)
		if !decimalLiteral.MatchString(s) {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("is %T, want number", v)
	}
}

func malformed(raw, reason string) error {
	excerpt := strings.TrimSpace(raw)
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen] + "..."
	}
	excerpt = string(bytes.ToValidUTF8([]byte(excerpt), []byte("?")))
	return fmt.Errorf("%w: %s (response starts %q)", domain.ErrMalformedModelResponse, reason, excerpt)
}
