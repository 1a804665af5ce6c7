package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoicescan/internal/domain"
	"invoicescan/internal/service"
)

// MockInvoiceService is a mock implementation of service.InvoiceService.
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Extract(ctx context.Context, input *service.ExtractInput) (*service.ExtractOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractOutput), args.Error(1)
}

func (m *MockInvoiceService) GetByID(ctx context.Context, invoiceID string) (*domain.NormalizedInvoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NormalizedInvoice), args.Error(1)
}

func (m *MockInvoiceService) ListByVendor(ctx context.Context, vendorName string) (*domain.VendorInvoices, error) {
	args := m.Called(ctx, vendorName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VendorInvoices), args.Error(1)
}
