package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicescan/internal/domain"
	"invoicescan/internal/middleware"
)

// Client-facing messages kept stable for existing callers.
const (
	msgInvalidDocument = "Invalid document. Please upload a valid PDF invoice with high confidence."
	msgUnavailable     = "The service is currently unavailable. Please try again later."
	msgNotFound        = "Invoice not found"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, ErrorBody{Error: msg, Code: code})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound, "NOT_FOUND", msgNotFound
	case errors.Is(err, domain.ErrInvalidDocument):
		return http.StatusBadRequest, "INVALID_DOCUMENT", msgInvalidDocument
	case errors.Is(err, domain.ErrLowConfidence):
		return http.StatusBadRequest, "LOW_CONFIDENCE", msgInvalidDocument
	case errors.Is(err, domain.ErrAnalysisUnavailable):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", msgUnavailable
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrUnsupportedExportFormat):
		return http.StatusBadRequest, "UNSUPPORTED_EXPORT_FORMAT", "unsupported export format; allowed: csv, xlsx"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		middleware.GetLogger(c).Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	RespondError(c, status, code, msg)
}
