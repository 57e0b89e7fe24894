package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"parcelscope/internal/domain"
)

// MockDocumentStore is a mock implementation of port.DocumentStore.
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentStore) SaveAnalysis(ctx context.Context, fileID uuid.UUID, analysis *domain.Analysis) error {
	args := m.Called(ctx, fileID, analysis)
	return args.Error(0)
}

func (m *MockDocumentStore) LatestAnalysis(ctx context.Context, fileID uuid.UUID) (*domain.Analysis, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *MockDocumentStore) DeleteExpired(ctx context.Context) int {
	args := m.Called(ctx)
	return args.Int(0)
}

func (m *MockDocumentStore) Len() int {
	args := m.Called()
	return args.Int(0)
}
