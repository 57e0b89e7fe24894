package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded property document. It is immutable once stored.
type Document struct {
	ID              uuid.UUID    `json:"file_id"`
	OriginalName    string       `json:"original_filename"`
	FileType        FileType     `json:"file_type"`
	ContentType     string       `json:"media_type"`
	FileSize        int64        `json:"byte_size"`
	DocumentType    DocumentType `json:"document_type"`
	StorageBucket   string       `json:"-"`
	StorageKey      string       `json:"-"`
	CoordinateHints []string     `json:"coordinate_patterns,omitempty"`
	UploadedAt      time.Time    `json:"uploaded_at"`
	ExpiresAt       time.Time    `json:"expires_at"`
}

// Vertex is one boundary point. SequenceIndex preserves the winding order.
type Vertex struct {
	SequenceIndex int     `json:"index"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Description   string  `json:"description"`
}

// AnalysisResult is the normalized output of a model analysis.
type AnalysisResult struct {
	DocumentType    DocumentType `json:"document_type"`
	ConfidenceScore float64      `json:"confidence_score"`
	Vertices        []Vertex     `json:"vertices"`
}

// BoundingBox is an axis-aligned lat/lon envelope. MinLongitude greater than
// MaxLongitude means the box crosses the antimeridian.
type BoundingBox struct {
	MinLatitude  float64 `json:"min_latitude"`
	MinLongitude float64 `json:"min_longitude"`
	MaxLatitude  float64 `json:"max_latitude"`
	MaxLongitude float64 `json:"max_longitude"`
}

// GeometryMetrics are derived measurements of a vertex sequence.
type GeometryMetrics struct {
	VertexCount     int          `json:"vertex_count"`
	Kind            GeometryKind `json:"geometry_kind"`
	Bounds          *BoundingBox `json:"bounds,omitempty"`
	Centroid        *Vertex      `json:"centroid,omitempty"`
	PerimeterMeters float64      `json:"perimeter_meters"`
	AreaSqMeters    float64      `json:"area_sq_meters"`
	AreaAcres       float64      `json:"area_acres"`
	ExplicitClosure bool         `json:"explicit_closure"`
}

// Analysis wraps a validated AnalysisResult with the metadata of the run
// that produced it. The result fields serialize at the top level so an
// analysis body can be posted back to export as is.
type Analysis struct {
	AnalysisResult
	ID              uuid.UUID        `json:"analysis_id"`
	FileID          *uuid.UUID       `json:"file_id,omitempty"`
	Flags           []QualityFlag    `json:"warnings"`
	Metrics         *GeometryMetrics `json:"metrics,omitempty"`
	SkippedVertices int              `json:"skipped_vertices"`
	ExtractionNotes string           `json:"extraction_notes,omitempty"`
	ModelUsed       string           `json:"model_used"`
	AnalyzedAt      time.Time        `json:"analyzed_at"`
}
