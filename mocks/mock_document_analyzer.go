package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicescan/internal/domain"
)

// MockDocumentAnalyzer is a mock implementation of port.DocumentAnalyzer.
type MockDocumentAnalyzer struct {
	mock.Mock
}

func (m *MockDocumentAnalyzer) Analyze(ctx context.Context, pdf []byte) (*domain.AnalyzedDocument, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalyzedDocument), args.Error(1)
}
