package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicescan/internal/domain"
)

// MockInvoiceRepo is a mock implementation of port.InvoiceRepository.
type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) Save(ctx context.Context, inv *domain.NormalizedInvoice) (domain.SaveResult, error) {
	args := m.Called(ctx, inv)
	return args.Get(0).(domain.SaveResult), args.Error(1)
}

func (m *MockInvoiceRepo) GetByID(ctx context.Context, invoiceID string) (*domain.NormalizedInvoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NormalizedInvoice), args.Error(1)
}

func (m *MockInvoiceRepo) ListByVendor(ctx context.Context, vendorName string) ([]domain.NormalizedInvoice, error) {
	args := m.Called(ctx, vendorName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NormalizedInvoice), args.Error(1)
}

func (m *MockInvoiceRepo) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
