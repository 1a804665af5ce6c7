package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"invoicescan/internal/domain"
	"invoicescan/internal/metrics"
	"invoicescan/internal/normalizer"
	"invoicescan/internal/port"
	"invoicescan/internal/storage/s3"
)

var pdfMagic = []byte("%PDF-")

// ExtractInput is the DTO for one uploaded document.
type ExtractInput struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExtractOutput is the accepted extraction and what happened to it downstream.
type ExtractOutput struct {
	Invoice    *domain.NormalizedInvoice
	Save       domain.SaveResult
	ArchiveKey string
}

// ExtractionSettings holds the acceptance gate and normalization options.
type ExtractionSettings struct {
	ConfidenceThreshold float64
	Normalize           normalizer.Options
	ArchiveBucket       string
}

// InvoiceService defines the extraction and lookup contract.
type InvoiceService interface {
	Extract(ctx context.Context, input *ExtractInput) (*ExtractOutput, error)
	GetByID(ctx context.Context, invoiceID string) (*domain.NormalizedInvoice, error)
	ListByVendor(ctx context.Context, vendorName string) (*domain.VendorInvoices, error)
}

type invoiceService struct {
	repo     port.InvoiceRepository
	analyzer port.DocumentAnalyzer
	archive  port.ObjectStorage // nil when archiving is disabled
	settings ExtractionSettings
	log      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService implementation. archive may be nil.
func NewInvoiceService(
	repo port.InvoiceRepository,
	analyzer port.DocumentAnalyzer,
	archive port.ObjectStorage,
	settings ExtractionSettings,
	log *zap.Logger,
) InvoiceService {
	return &invoiceService{
		repo:     repo,
		analyzer: analyzer,
		archive:  archive,
		settings: settings,
		log:      log,
	}
}

func (s *invoiceService) Extract(ctx context.Context, input *ExtractInput) (*ExtractOutput, error) {
	if !isPDF(input) {
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeInvalidDocument).Inc()
		return nil, domain.ErrInvalidDocument
	}

	doc, err := s.analyzer.Analyze(ctx, input.Content)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeAnalyzerError).Inc()
		s.log.Error("document analysis failed", zap.String("file", input.FileName), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisUnavailable, err)
	}

	inv := normalizer.Normalize(*doc, s.settings.Normalize)
	metrics.DocumentConfidence.Observe(inv.OverallConfidence)
	if inv.OverallConfidence < s.settings.ConfidenceThreshold {
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeLowConfidence).Inc()
		s.log.Info("document rejected",
			zap.String("file", input.FileName),
			zap.Float64("confidence", inv.OverallConfidence),
			zap.Float64("threshold", s.settings.ConfidenceThreshold),
		)
		return nil, domain.ErrLowConfidence
	}

	out := &ExtractOutput{Invoice: inv}
	out.ArchiveKey = s.archiveDocument(ctx, inv.Invoice.ID(), input.Content)

	out.Save, err = s.repo.Save(ctx, inv)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomePersistenceError).Inc()
		s.discardArchived(ctx, out.ArchiveKey)
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	metrics.InvoiceSavesTotal.WithLabelValues(string(out.Save.Status)).Inc()
	if !out.Save.Saved() {
		s.log.Warn("invoice not stored", zap.String("reason", string(out.Save.Reason)), zap.String("file", input.FileName))
	}

	metrics.ExtractionsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	metrics.LineItemsExtracted.Observe(float64(len(inv.Invoice.Items)))
	s.log.Info("document accepted",
		zap.String("invoice_id", inv.Invoice.ID()),
		zap.Float64("confidence", inv.OverallConfidence),
		zap.Int("items", len(inv.Invoice.Items)),
	)
	return out, nil
}

// archiveDocument uploads the source PDF and returns its key, or "" when
// archiving is disabled, the invoice has no id, or the upload failed.
func (s *invoiceService) archiveDocument(ctx context.Context, invoiceID string, content []byte) string {
	if s.archive == nil || s.settings.ArchiveBucket == "" || invoiceID == "" {
		return ""
	}
	key := s3.ArchiveKey(invoiceID)
	_, err := s.archive.Upload(ctx, port.UploadInput{
		Bucket:      s.settings.ArchiveBucket,
		Key:         key,
		Body:        bytes.NewReader(content),
		ContentType: "application/pdf",
		Size:        int64(len(content)),
	})
	if err != nil {
		metrics.ArchiveUploadsTotal.WithLabelValues("error").Inc()
		s.log.Warn("archive upload failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		return ""
	}
	metrics.ArchiveUploadsTotal.WithLabelValues("ok").Inc()
	return key
}

// discardArchived removes an archived copy whose invoice was never stored.
func (s *invoiceService) discardArchived(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.archive.Delete(ctx, s.settings.ArchiveBucket, key); err != nil {
		metrics.ArchiveUploadsTotal.WithLabelValues("orphaned").Inc()
		s.log.Error("archived document left without invoice", zap.String("key", key), zap.Error(err))
		return
	}
	metrics.ArchiveUploadsTotal.WithLabelValues("discarded").Inc()
}

func (s *invoiceService) GetByID(ctx context.Context, invoiceID string) (*domain.NormalizedInvoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, nil
}

func (s *invoiceService) ListByVendor(ctx context.Context, vendorName string) (*domain.VendorInvoices, error) {
	invoices, err := s.repo.ListByVendor(ctx, vendorName)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return &domain.VendorInvoices{VendorName: domain.UnknownVendor, Invoices: []domain.NormalizedInvoice{}}, nil
	}
	return &domain.VendorInvoices{
		VendorName:    vendorName,
		TotalInvoices: len(invoices),
		Invoices:      invoices,
	}, nil
}

// isPDF requires a PDF content type or file extension, and the PDF signature.
func isPDF(input *ExtractInput) bool {
	if len(input.Content) == 0 || !bytes.HasPrefix(input.Content, pdfMagic) {
		return false
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(input.ContentType, ";", 2)[0]))
	return ct == "application/pdf" || strings.EqualFold(filepath.Ext(input.FileName), ".pdf")
}
