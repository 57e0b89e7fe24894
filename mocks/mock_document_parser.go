package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"parcelscope/internal/port"
)

// MockDocumentParser is a mock implementation of port.DocumentParser.
type MockDocumentParser struct {
	mock.Mock
}

func (m *MockDocumentParser) Analyze(ctx context.Context, req port.AnalysisRequest) (*port.ModelResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ModelResponse), args.Error(1)
}
