package port

import (
	"context"

	"invoicescan/internal/domain"
)

// InvoiceRepository defines the contract for invoice persistence.
// Each Save replaces the header, the confidence row, and the whole item set
// for its invoice id in a single transaction.
type InvoiceRepository interface {
	Save(ctx context.Context, inv *domain.NormalizedInvoice) (domain.SaveResult, error)
	// GetByID returns nil, nil when no invoice has the id.
	GetByID(ctx context.Context, invoiceID string) (*domain.NormalizedInvoice, error)
	// ListByVendor never returns a nil slice on success.
	ListByVendor(ctx context.Context, vendorName string) ([]domain.NormalizedInvoice, error)
	Clear(ctx context.Context) error
}
