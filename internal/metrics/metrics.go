// Package metrics provides Prometheus metrics for the extraction service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Extraction outcomes.
const (
	OutcomeAccepted         = "accepted"
	OutcomeInvalidDocument  = "invalid_document"
	OutcomeLowConfidence    = "low_confidence"
	OutcomeAnalyzerError    = "analyzer_error"
	OutcomePersistenceError = "persistence_error"
)

var (
	// ExtractionsTotal counts extraction requests by outcome
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicescan",
			Subsystem: "extraction",
			Name:      "requests_total",
			Help:      "Total number of extraction requests by outcome",
		},
		[]string{"outcome"},
	)

	// DocumentConfidence observes the overall confidence of analyzed documents
	DocumentConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "invoicescan",
			Subsystem: "extraction",
			Name:      "document_confidence",
			Help:      "Overall document confidence computed by the normalizer",
			Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 0.8, 0.85, 0.9, 0.95, 0.98, 1},
		},
	)

	// LineItemsExtracted tracks the number of line items per accepted document
	LineItemsExtracted = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "invoicescan",
			Subsystem: "extraction",
			Name:      "line_items",
			Help:      "Number of line items per accepted document",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// InvoiceSavesTotal counts store writes by status (saved, skipped)
	InvoiceSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicescan",
			Subsystem: "store",
			Name:      "saves_total",
			Help:      "Total number of invoice saves by status",
		},
		[]string{"status"},
	)

	// AnalyzerRequestDuration tracks calls to the document-analysis service
	AnalyzerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoicescan",
			Subsystem: "analyzer",
			Name:      "request_duration_seconds",
			Help:      "Duration of document-analysis requests in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"status_code"},
	)

	// ArchiveUploadsTotal counts archive uploads by result
	ArchiveUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicescan",
			Subsystem: "archive",
			Name:      "uploads_total",
			Help:      "Total number of archive uploads by result",
		},
		[]string{"result"},
	)
)
