package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicescan/internal/domain"
	"invoicescan/internal/export"
	"invoicescan/internal/middleware"
	"invoicescan/internal/service"
)

// InvoiceHandler handles extraction and invoice lookup endpoints.
type InvoiceHandler struct {
	invoiceService service.InvoiceService
	maxUploadBytes int64
}

// NewInvoiceHandler creates a new InvoiceHandler. Uploads larger than
// maxUploadBytes are rejected with 413.
func NewInvoiceHandler(invoiceService service.InvoiceService, maxUploadBytes int64) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, maxUploadBytes: maxUploadBytes}
}

// multipartOverhead is the allowance above maxUploadBytes for form boundaries
// and part headers.
const multipartOverhead = 64 << 10

// vendorInvoicesResponse is the body of GET /invoices/vendor/:vendor.
type vendorInvoicesResponse struct {
	VendorName    string           `json:"VendorName"`
	TotalInvoices int              `json:"TotalInvoices"`
	Invoices      []domain.Invoice `json:"invoices"`
}

// Extract handles POST /extract
func (h *InvoiceHandler) Extract(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleError(c, domain.ErrFileTooLarge)
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", msgInvalidDocument)
		return
	}
	defer func() { _ = file.Close() }()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		HandleError(c, domain.ErrFileTooLarge)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		HandleError(c, fmt.Errorf("reading upload: %w", err))
		return
	}

	out, err := h.invoiceService.Extract(c.Request.Context(), &service.ExtractInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("X-Save-Status", string(out.Save.Status))
	if out.ArchiveKey != "" {
		middleware.GetLogger(c).Debug("document archived", zap.String("key", out.ArchiveKey))
	}
	c.JSON(http.StatusOK, out.Invoice)
}

// GetByID handles GET /invoice/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	inv, err := h.invoiceService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv.Invoice)
}

// ListByVendor handles GET /invoices/vendor/:vendor
func (h *InvoiceHandler) ListByVendor(c *gin.Context) {
	result, err := h.invoiceService.ListByVendor(c.Request.Context(), c.Param("vendor"))
	if err != nil {
		HandleError(c, err)
		return
	}
	resp := vendorInvoicesResponse{
		VendorName:    result.VendorName,
		TotalInvoices: result.TotalInvoices,
		Invoices:      make([]domain.Invoice, 0, len(result.Invoices)),
	}
	for _, inv := range result.Invoices {
		resp.Invoices = append(resp.Invoices, inv.Invoice)
	}
	c.JSON(http.StatusOK, resp)
}

// ExportByVendor handles GET /invoices/vendor/:vendor/export?format=csv|xlsx
func (h *InvoiceHandler) ExportByVendor(c *gin.Context) {
	enc, err := export.NewEncoder(c.Query("format"))
	if err != nil {
		HandleError(c, err)
		return
	}

	vendor := c.Param("vendor")
	result, err := h.invoiceService.ListByVendor(c.Request.Context(), vendor)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, result.Invoices); err != nil {
		HandleError(c, fmt.Errorf("encoding export: %w", err))
		return
	}

	filename := export.BuildFilename(vendor, enc.Extension(), time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, enc.ContentType(), buf.Bytes())
}
