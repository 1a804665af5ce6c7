package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invoicescan/internal/domain"
	"invoicescan/internal/normalizer"
	"invoicescan/internal/port"
	"invoicescan/internal/service"
	"invoicescan/mocks"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n")

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func analyzedInvoice(confidence float64) *domain.AnalyzedDocument {
	kv := func(label, text string) domain.FieldNode {
		return domain.FieldNode{Kind: domain.FieldKindScalar, Type: domain.FieldTypeKeyValue,
			Label: strPtr(label), LabelConfidence: floatPtr(0.99), Text: strPtr(text)}
	}
	return &domain.AnalyzedDocument{
		Fields: []domain.FieldNode{
			kv("VendorName", "SuperStore"),
			kv("InvoiceId", "36259"),
			kv("InvoiceTotal", "$58.11"),
			{Kind: domain.FieldKindGroup, Type: domain.FieldTypeLineItemGroup, Label: strPtr("Items"), Children: []domain.FieldNode{
				{Kind: domain.FieldKindGroup, Type: domain.FieldTypeLineItem, Children: []domain.FieldNode{
					{Kind: domain.FieldKindScalar, Label: strPtr("Quantity"), Text: strPtr("3")},
				}},
			}},
		},
		DocumentTypes: []domain.DetectedDocumentType{{DocumentType: "INVOICE", Confidence: floatPtr(confidence)}},
	}
}

type fixture struct {
	repo     *mocks.MockInvoiceRepo
	analyzer *mocks.MockDocumentAnalyzer
	archive  *mocks.MockObjectStorage
	svc      service.InvoiceService
}

func newFixture(bucket string) *fixture {
	f := &fixture{
		repo:     new(mocks.MockInvoiceRepo),
		analyzer: new(mocks.MockDocumentAnalyzer),
		archive:  new(mocks.MockObjectStorage),
	}
	f.svc = service.NewInvoiceService(f.repo, f.analyzer, f.archive, service.ExtractionSettings{
		ConfidenceThreshold: 0.9,
		Normalize:           normalizer.DefaultOptions(),
		ArchiveBucket:       bucket,
	}, zap.NewNop())
	return f
}

func pdfInput() *service.ExtractInput {
	return &service.ExtractInput{FileName: "invoice.pdf", ContentType: "application/pdf", Content: samplePDF}
}

func TestExtract_AcceptsAndSaves(t *testing.T) {
	f := newFixture("")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(1.0), nil)
	f.repo.On("Save", mock.Anything, mock.MatchedBy(func(inv *domain.NormalizedInvoice) bool {
		return inv.Invoice.ID() == "36259" && len(inv.Invoice.Items) == 1
	})).Return(domain.SaveResult{Status: domain.SaveStatusSaved, InvoiceID: "36259", Items: 1}, nil)

	out, err := f.svc.Extract(context.Background(), pdfInput())
	require.NoError(t, err)

	assert.Equal(t, 1.0, out.Invoice.OverallConfidence)
	assert.InDelta(t, 58.11, *out.Invoice.Invoice.InvoiceTotal, 1e-9)
	assert.True(t, out.Save.Saved())
	assert.Empty(t, out.ArchiveKey)
	f.archive.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestExtract_ArchivesWhenEnabled(t *testing.T) {
	f := newFixture("invoice-archive")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(0.95), nil)
	f.archive.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "invoice-archive" && in.ContentType == "application/pdf" && in.Size == int64(len(samplePDF))
	})).Return(&port.UploadOutput{Location: "s3://invoice-archive/x"}, nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{Status: domain.SaveStatusSaved}, nil)

	out, err := f.svc.Extract(context.Background(), pdfInput())
	require.NoError(t, err)
	assert.Regexp(t, `^invoices/36259/[0-9a-f-]{36}\.pdf$`, out.ArchiveKey)
}

func TestExtract_ArchiveFailureDoesNotFail(t *testing.T) {
	f := newFixture("invoice-archive")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(0.95), nil)
	f.archive.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("bucket gone"))
	f.repo.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{Status: domain.SaveStatusSaved}, nil)

	out, err := f.svc.Extract(context.Background(), pdfInput())
	require.NoError(t, err)
	assert.Empty(t, out.ArchiveKey)
	f.repo.AssertExpectations(t)
}

func TestExtract_RejectsNonPDF(t *testing.T) {
	tests := []struct {
		name  string
		input *service.ExtractInput
	}{
		{"empty", &service.ExtractInput{FileName: "a.pdf", ContentType: "application/pdf"}},
		{"wrong magic", &service.ExtractInput{FileName: "a.pdf", ContentType: "application/pdf", Content: []byte("PK\x03\x04")}},
		{"wrong type and extension", &service.ExtractInput{FileName: "a.png", ContentType: "image/png", Content: samplePDF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("")
			_, err := f.svc.Extract(context.Background(), tt.input)
			assert.ErrorIs(t, err, domain.ErrInvalidDocument)
			f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
		})
	}
}

func TestExtract_AcceptsPDFExtensionWithGenericType(t *testing.T) {
	f := newFixture("")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(1.0), nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{Status: domain.SaveStatusSaved}, nil)

	_, err := f.svc.Extract(context.Background(), &service.ExtractInput{
		FileName: "SCAN.PDF", ContentType: "application/octet-stream", Content: samplePDF,
	})
	assert.NoError(t, err)
}

func TestExtract_AnalyzerFailure(t *testing.T) {
	f := newFixture("")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(nil, errors.New("connection refused"))

	_, err := f.svc.Extract(context.Background(), pdfInput())
	assert.ErrorIs(t, err, domain.ErrAnalysisUnavailable)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestExtract_LowConfidenceNotSaved(t *testing.T) {
	f := newFixture("invoice-archive")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(0.89), nil)

	_, err := f.svc.Extract(context.Background(), pdfInput())
	assert.ErrorIs(t, err, domain.ErrLowConfidence)
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.archive.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestExtract_ThresholdIsInclusive(t *testing.T) {
	f := newFixture("")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(0.9), nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{Status: domain.SaveStatusSaved}, nil)

	_, err := f.svc.Extract(context.Background(), pdfInput())
	assert.NoError(t, err)
}

func TestExtract_SaveFailure(t *testing.T) {
	f := newFixture("")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(1.0), nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{}, errors.New("disk full"))

	_, err := f.svc.Extract(context.Background(), pdfInput())
	assert.ErrorContains(t, err, "disk full")
}

func TestExtract_SaveFailureDiscardsArchivedCopy(t *testing.T) {
	f := newFixture("invoice-archive")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(1.0), nil)

	var uploadedKey string
	f.archive.On("Upload", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { uploadedKey = args.Get(1).(port.UploadInput).Key }).
		Return(&port.UploadOutput{}, nil)
	f.archive.On("Delete", mock.Anything, "invoice-archive", mock.AnythingOfType("string")).Return(nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{}, errors.New("db down"))

	_, err := f.svc.Extract(context.Background(), pdfInput())
	require.Error(t, err)

	require.NotEmpty(t, uploadedKey)
	f.archive.AssertCalled(t, "Delete", mock.Anything, "invoice-archive", uploadedKey)
}

func TestExtract_SaveFailureWithoutArchive(t *testing.T) {
	f := newFixture("")
	f.analyzer.On("Analyze", mock.Anything, samplePDF).Return(analyzedInvoice(1.0), nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(domain.SaveResult{}, errors.New("db down"))

	_, err := f.svc.Extract(context.Background(), pdfInput())
	require.Error(t, err)
	f.archive.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetByID(t *testing.T) {
	f := newFixture("")
	stored := &domain.NormalizedInvoice{Invoice: domain.Invoice{InvoiceID: strPtr("36259")}}
	f.repo.On("GetByID", mock.Anything, "36259").Return(stored, nil)
	f.repo.On("GetByID", mock.Anything, "12345").Return(nil, nil)

	got, err := f.svc.GetByID(context.Background(), "36259")
	require.NoError(t, err)
	assert.Same(t, stored, got)

	_, err = f.svc.GetByID(context.Background(), "12345")
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestListByVendor(t *testing.T) {
	f := newFixture("")
	f.repo.On("ListByVendor", mock.Anything, "SuperStore").Return([]domain.NormalizedInvoice{{}, {}}, nil)
	f.repo.On("ListByVendor", mock.Anything, "Nobody").Return([]domain.NormalizedInvoice{}, nil)

	got, err := f.svc.ListByVendor(context.Background(), "SuperStore")
	require.NoError(t, err)
	assert.Equal(t, "SuperStore", got.VendorName)
	assert.Equal(t, 2, got.TotalInvoices)

	none, err := f.svc.ListByVendor(context.Background(), "Nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownVendor, none.VendorName)
	assert.Zero(t, none.TotalInvoices)
	assert.NotNil(t, none.Invoices)
}
