package export

import (
	"encoding/csv"
	"io"

	"invoicescan/internal/domain"
)

// BOM is the UTF-8 byte order mark, written first so Excel on Windows detects UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

type csvEncoder struct{}

func (csvEncoder) ContentType() string { return "text/csv; charset=utf-8" }
func (csvEncoder) Extension() string   { return string(domain.ExportFormatCSV) }

func (csvEncoder) Encode(w io.Writer, invoices []domain.NormalizedInvoice) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	if err := cw.WriteAll(rows(invoices)); err != nil {
		return err
	}
	return cw.Error()
}
