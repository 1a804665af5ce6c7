package domain

import "errors"

var (
	ErrInvoiceNotFound         = errors.New("invoice not found")
	ErrInvalidDocument         = errors.New("invalid document")
	ErrLowConfidence           = errors.New("document confidence below threshold")
	ErrAnalysisUnavailable     = errors.New("document analysis unavailable")
	ErrFileTooLarge            = errors.New("file exceeds maximum allowed size")
	ErrUnsupportedExportFormat = errors.New("unsupported export format")
)
