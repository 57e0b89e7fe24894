package normalize_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcelscope/internal/domain"
	"parcelscope/internal/normalize"
)

const cleanResponse = `{
  "document_type": "parcel_map",
  "confidence_score": 0.87,
  "vertices": [
    {"latitude": 45.5231, "longitude": -122.6765, "description": "NW corner"},
    {"latitude": 45.5231, "longitude": -122.6750, "description": "NE corner"},
    {"latitude": 45.5220, "longitude": -122.6750, "description": "SE corner"}
  ],
  "extraction_notes": "scale bar partially obscured"
}`

func TestNormalize_CleanResponse(t *testing.T) {
	result, report, err := normalize.Normalize(cleanResponse)

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeParcelMap, result.DocumentType)
	assert.InDelta(t, 0.87, result.ConfidenceScore, 1e-9)
	require.Len(t, result.Vertices, 3)
	assert.Equal(t, 0, result.Vertices[0].SequenceIndex)
	assert.Equal(t, 2, result.Vertices[2].SequenceIndex)
	assert.Equal(t, "NE corner", result.Vertices[1].Description)
	assert.InDelta(t, -122.6750, result.Vertices[1].Longitude, 1e-9)
	assert.Equal(t, "scale bar partially obscured", report.ExtractionNotes)
	assert.Zero(t, report.SkippedVertices)
	assert.Empty(t, report.Flags)
}

func TestNormalize_ProseAndCodeFence(t *testing.T) {
	raw := "Here is the boundary I found {see below}:\n```json\n" + cleanResponse + "\n```\nLet me know if you need more."

	result, _, err := normalize.Normalize(raw)

	require.NoError(t, err)
	assert.Len(t, result.Vertices, 3)
}

func TestNormalize_ProseWithoutFence(t *testing.T) {
	raw := "Sure! " + cleanResponse + " Hope this helps."

	result, _, err := normalize.Normalize(raw)

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeParcelMap, result.DocumentType)
}

func TestNormalize_BracesInsideStrings(t *testing.T) {
	raw := `{"document_type":"plat","confidence_score":0.5,"vertices":[],"extraction_notes":"lot } { 7"}`

	result, report, err := normalize.Normalize(raw)

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypePlat, result.DocumentType)
	assert.Empty(t, result.Vertices)
	assert.Equal(t, "lot } { 7", report.ExtractionNotes)
}

func TestNormalize_NoJSON(t *testing.T) {
	_, _, err := normalize.Normalize("I could not find any coordinates in this document.")

	assert.ErrorIs(t, err, domain.ErrMalformedModelResponse)
	assert.Equal(t, domain.KindParse, domain.KindOf(err))
}

func TestNormalize_Aliases(t *testing.T) {
	raw := `{
	  "documentType": "Legal Description",
	  "confidence": "0.6",
	  "boundary_coordinates": {"vertices": [
	    {"lat": "45.1", "lng": -122.2, "point_id": 1},
	    {"lat": 45.2, "long": "-122.3", "desc": "B"}
	  ]}
	}`

	result, _, err := normalize.Normalize(raw)

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeLegalDescription, result.DocumentType)
	assert.InDelta(t, 0.6, result.ConfidenceScore, 1e-9)
	require.Len(t, result.Vertices, 2)
	assert.InDelta(t, 45.1, result.Vertices[0].Latitude, 1e-9)
	assert.Equal(t, "1", result.Vertices[0].Description)
	assert.InDelta(t, -122.3, result.Vertices[1].Longitude, 1e-9)
	assert.Equal(t, "B", result.Vertices[1].Description)
}

func TestNormalize_UnknownDocumentTypeDegrades(t *testing.T) {
	result, _, err := normalize.Normalize(`{"type":"blueprint","confidence_score":0.2,"points":[]}`)

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTypeUnknown, result.DocumentType)
}

func TestNormalize_SkipsNullVertices(t *testing.T) {
	raw := `{"document_type":"survey","confidence_score":0.4,"vertices":[
	  {"latitude":null,"longitude":null,"description":"illegible"},
	  {"latitude":40.0,"longitude":-105.0},
	  {"latitude":40.1,"longitude":-105.0}
	]}`

	result, report, err := normalize.Normalize(raw)

	require.NoError(t, err)
	require.Len(t, result.Vertices, 2)
	assert.Equal(t, 0, result.Vertices[0].SequenceIndex)
	assert.Equal(t, 1, report.SkippedVertices)
	assert.Contains(t, report.Flags, domain.FlagIncompleteVertices)
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"degree sign", `{"confidence_score":0.5,"vertices":[{"latitude":"45.1°","longitude":-122}]}`},
		{"half null vertex", `{"confidence_score":0.5,"vertices":[{"latitude":45.1,"longitude":null}]}`},
		{"boolean coordinate", `{"confidence_score":0.5,"vertices":[{"latitude":true,"longitude":1}]}`},
		{"confidence above one", `{"confidence_score":87,"vertices":[]}`},
		{"confidence missing", `{"vertices":[]}`},
		{"confidence not numeric", `{"confidence_score":"high","vertices":[]}`},
		{"vertices missing", `{"confidence_score":0.5}`},
		{"vertices not array", `{"confidence_score":0.5,"vertices":"none"}`},
		{"vertex not object", `{"confidence_score":0.5,"vertices":[[45,-122]]}`},
		{"document type not string", `{"document_type":3,"confidence_score":0.5,"vertices":[]}`},
		{"truncated", `{"confidence_score":0.5,"vertices":[{"latitude":45`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := normalize.Normalize(tt.raw)
			assert.ErrorIs(t, err, domain.ErrMalformedModelResponse)
		})
	}
}

func TestNormalize_NumericStrings(t *testing.T) {
	accepted := []string{"45.5", "-122.25", "+0.5", ".5", "4.5e1", " 45 "}
	for _, s := range accepted {
		t.Run("accepts "+s, func(t *testing.T) {
			raw := `{"confidence_score":"0.5","vertices":[{"latitude":"` + s + `","longitude":"-122"}]}`
			result, _, err := normalize.Normalize(raw)
			require.NoError(t, err)
			require.Len(t, result.Vertices, 1)
			assert.InDelta(t, 0.5, result.ConfidenceScore, 1e-9)
		})
	}

	rejected := []string{"NaN", "nan", "Inf", "-Infinity", "0x1p4", "0x2D", "1e400", "45,5", ""}
	for _, s := range rejected {
		t.Run("rejects "+s, func(t *testing.T) {
			raw := `{"confidence_score":0.5,"vertices":[{"latitude":"` + s + `","longitude":-122}]}`
			_, _, err := normalize.Normalize(raw)
			assert.ErrorIs(t, err, domain.ErrMalformedModelResponse)
		})
	}
}

func TestNormalize_NaNConfidenceRejected(t *testing.T) {
	_, _, err := normalize.Normalize(`{"confidence_score":"NaN","vertices":[]}`)
	assert.ErrorIs(t, err, domain.ErrMalformedModelResponse)
}

func TestNormalize_ErrorExcerptIsTruncated(t *testing.T) {
	raw := strings.Repeat("x", 1000)

	_, _, err := normalize.Normalize(raw)

	require.Error(t, err)
	assert.Less(t, len(err.Error()), 400)
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := normalize.ExtractJSONObject(`noise {"a":{"b":"}"}} tail {"c":1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":"}"}}`, obj)

	_, ok = normalize.ExtractJSONObject(`{"a": `)
	assert.False(t, ok)
}
