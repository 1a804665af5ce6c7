package port

import (
	"context"

	"invoicescan/internal/domain"
)

// DocumentAnalyzer abstracts the external document-understanding service.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, pdf []byte) (*domain.AnalyzedDocument, error)
}
