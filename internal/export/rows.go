// Package export renders a vendor's invoices as CSV or XLSX, one row per line item.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"invoicescan/internal/domain"
)

// columns defines the header row shared by both formats.
var columns = []string{
	"Invoice ID",
	"Vendor Name",
	"Invoice Date",
	"Billing Address Recipient",
	"Shipping Address",
	"Sub Total",
	"Shipping Cost",
	"Invoice Total",
	"Confidence",
	"Item Description",
	"Item Name",
	"Quantity",
	"Unit Price",
	"Amount",
}

// Encoder writes invoices in one export format.
type Encoder interface {
	ContentType() string
	Extension() string
	Encode(w io.Writer, invoices []domain.NormalizedInvoice) error
}

// NewEncoder returns the encoder for format.
func NewEncoder(format string) (Encoder, error) {
	switch domain.ExportFormat(strings.ToLower(format)) {
	case "", domain.ExportFormatCSV:
		return csvEncoder{}, nil
	case domain.ExportFormatXLSX:
		return xlsxEncoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedExportFormat, format)
	}
}

// rows flattens invoices into string rows. An invoice without items still
// gets one row carrying its header columns.
func rows(invoices []domain.NormalizedInvoice) [][]string {
	var out [][]string
	for i := range invoices {
		inv := &invoices[i]
		header := []string{
			str(inv.Invoice.InvoiceID),
			str(inv.Invoice.VendorName),
			str(inv.Invoice.InvoiceDate),
			str(inv.Invoice.BillingAddressRecipient),
			str(inv.Invoice.ShippingAddress),
			money(inv.Invoice.SubTotal),
			money(inv.Invoice.ShippingCost),
			money(inv.Invoice.InvoiceTotal),
			strconv.FormatFloat(inv.OverallConfidence, 'f', 3, 64),
		}
		if len(inv.Invoice.Items) == 0 {
			out = append(out, append(header, "", "", "", "", ""))
			continue
		}
		for _, item := range inv.Invoice.Items {
			row := make([]string, 0, len(columns))
			row = append(row, header...)
			row = append(row,
				str(item.Description),
				str(item.Name),
				quantity(item.Quantity),
				money(item.UnitPrice),
				money(item.Amount),
			)
			out = append(out, row)
		}
	}
	return out
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func money(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func quantity(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a vendor name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "vendor"
	}
	return s
}

// BuildFilename returns {sanitized_vendor}_{YYYY-MM-DD}.{ext}.
func BuildFilename(vendorName, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(vendorName), now.Format("2006-01-02"), ext)
}
