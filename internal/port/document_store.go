package port

import (
	"context"

	"github.com/google/uuid"

	"parcelscope/internal/domain"
)

// DocumentStore holds uploaded document metadata and the last validated
// analysis for each document, keyed by file_id, until they expire.
type DocumentStore interface {
	Save(ctx context.Context, doc *domain.Document) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SaveAnalysis(ctx context.Context, fileID uuid.UUID, analysis *domain.Analysis) error
	LatestAnalysis(ctx context.Context, fileID uuid.UUID) (*domain.Analysis, error)
	DeleteExpired(ctx context.Context) int
	Len() int
}
