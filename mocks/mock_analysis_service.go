package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"parcelscope/internal/domain"
	"parcelscope/internal/export"
	"parcelscope/internal/geometry"
	"parcelscope/internal/service"
)

// MockAnalysisService is a mock implementation of service.AnalysisService.
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Upload(ctx context.Context, input service.UploadInput) (*service.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockAnalysisService) GetDocument(ctx context.Context, fileID uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockAnalysisService) DeleteDocument(ctx context.Context, fileID uuid.UUID) error {
	args := m.Called(ctx, fileID)
	return args.Error(0)
}

func (m *MockAnalysisService) Analyze(ctx context.Context, fileID uuid.UUID, documentTypeHint string) (*domain.Analysis, error) {
	args := m.Called(ctx, fileID, documentTypeHint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) AnalyzeText(ctx context.Context, text string) (*domain.Analysis, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analysis), args.Error(1)
}

func (m *MockAnalysisService) Validate(vertices []domain.Vertex) geometry.CheckResult {
	args := m.Called(vertices)
	return args.Get(0).(geometry.CheckResult)
}

func (m *MockAnalysisService) Export(ctx context.Context, input service.ExportInput) (*export.Output, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Output), args.Error(1)
}

func (m *MockAnalysisService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
