package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"invoicescan/internal/domain"
	"invoicescan/internal/port"
)

const (
	invoicesTable    = "invoices"
	confidencesTable = "confidences"
	itemsTable       = "items"
)

// headerColumns maps persisted header fields to their column names, in
// statement order. The same names are used in the confidences table.
var headerColumns = []struct {
	field  string
	column string
}{
	{domain.FieldVendorName, "vendor_name"},
	{domain.FieldInvoiceDate, "invoice_date"},
	{domain.FieldBillingAddressRecipient, "billing_address_recipient"},
	{domain.FieldShippingAddress, "shipping_address"},
	{domain.FieldSubTotal, "sub_total"},
	{domain.FieldShippingCost, "shipping_cost"},
	{domain.FieldInvoiceTotal, "invoice_total"},
}

var itemColumns = []string{"invoice_id", "description", "name", "quantity", "unit_price", "amount"}

type invoiceRow struct {
	InvoiceID               string   `db:"invoice_id"`
	VendorName              *string  `db:"vendor_name"`
	InvoiceDate             *string  `db:"invoice_date"`
	BillingAddressRecipient *string  `db:"billing_address_recipient"`
	ShippingAddress         *string  `db:"shipping_address"`
	SubTotal                *float64 `db:"sub_total"`
	ShippingCost            *float64 `db:"shipping_cost"`
	InvoiceTotal            *float64 `db:"invoice_total"`

	ConfInvoiceID               *string  `db:"conf_invoice_id"`
	ConfVendorName              *float64 `db:"conf_vendor_name"`
	ConfInvoiceDate             *float64 `db:"conf_invoice_date"`
	ConfBillingAddressRecipient *float64 `db:"conf_billing_address_recipient"`
	ConfShippingAddress         *float64 `db:"conf_shipping_address"`
	ConfSubTotal                *float64 `db:"conf_sub_total"`
	ConfShippingCost            *float64 `db:"conf_shipping_cost"`
	ConfInvoiceTotal            *float64 `db:"conf_invoice_total"`
	ConfOverall                 *float64 `db:"conf_overall"`
}

type itemRow struct {
	Description *string  `db:"description"`
	Name        *string  `db:"name"`
	Quantity    *int64   `db:"quantity"`
	UnitPrice   *float64 `db:"unit_price"`
	Amount      *float64 `db:"amount"`
}

type invoiceRepo struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
}

// NewInvoiceRepo creates a new InvoiceRepository backed by db, building
// statements in the given SQL flavor.
func NewInvoiceRepo(db *sqlx.DB, flavor sqlbuilder.Flavor) port.InvoiceRepository {
	return &invoiceRepo{db: db, flavor: flavor}
}

func (r *invoiceRepo) Save(ctx context.Context, inv *domain.NormalizedInvoice) (domain.SaveResult, error) {
	id := inv.Invoice.ID()
	if id == "" {
		return domain.SaveResult{Status: domain.SaveStatusSkipped, Reason: domain.SkipReasonMissingID}, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.SaveResult{}, fmt.Errorf("invoiceRepo.Save begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// The header upsert goes first: it takes the row lock that serializes
	// concurrent saves of the same invoice id until commit.
	if err := r.upsertHeader(ctx, tx, id, &inv.Invoice); err != nil {
		return domain.SaveResult{}, fmt.Errorf("invoiceRepo.Save header: %w", err)
	}
	if err := r.upsertConfidence(ctx, tx, id, inv); err != nil {
		return domain.SaveResult{}, fmt.Errorf("invoiceRepo.Save confidence: %w", err)
	}
	if err := r.replaceItems(ctx, tx, id, inv.Invoice.Items); err != nil {
		return domain.SaveResult{}, fmt.Errorf("invoiceRepo.Save items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.SaveResult{}, fmt.Errorf("invoiceRepo.Save commit: %w", err)
	}
	return domain.SaveResult{Status: domain.SaveStatusSaved, InvoiceID: id, Items: len(inv.Invoice.Items)}, nil
}

func (r *invoiceRepo) upsertHeader(ctx context.Context, tx *sqlx.Tx, id string, h *domain.Invoice) error {
	cols := []string{"invoice_id"}
	for _, c := range headerColumns {
		cols = append(cols, c.column)
	}
	cols = append(cols, "updated_at")

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto(invoicesTable)
	ib.Cols(cols...)
	ib.Values(id, h.VendorName, h.InvoiceDate, h.BillingAddressRecipient, h.ShippingAddress,
		h.SubTotal, h.ShippingCost, h.InvoiceTotal, time.Now().UTC())

	query, args := ib.Build()
	_, err := tx.ExecContext(ctx, query+onConflictUpdate("invoice_id", cols[1:]), args...)
	return err
}

func (r *invoiceRepo) upsertConfidence(ctx context.Context, tx *sqlx.Tx, id string, inv *domain.NormalizedInvoice) error {
	cols := []string{"invoice_id"}
	values := []interface{}{id}
	for _, c := range headerColumns {
		cols = append(cols, c.column)
		values = append(values, inv.FieldConfidence[c.field])
	}
	cols = append(cols, "overall")
	values = append(values, inv.OverallConfidence)

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto(confidencesTable)
	ib.Cols(cols...)
	ib.Values(values...)

	query, args := ib.Build()
	_, err := tx.ExecContext(ctx, query+onConflictUpdate("invoice_id", cols[1:]), args...)
	return err
}

func (r *invoiceRepo) replaceItems(ctx context.Context, tx *sqlx.Tx, id string, items []domain.LineItem) error {
	db := r.flavor.NewDeleteBuilder()
	db.DeleteFrom(itemsTable)
	db.Where(db.Equal("invoice_id", id))
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto(itemsTable)
	ib.Cols(itemColumns...)
	for _, it := range items {
		ib.Values(id, it.Description, it.Name, it.Quantity, it.UnitPrice, it.Amount)
	}
	query, args = ib.Build()
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func (r *invoiceRepo) GetByID(ctx context.Context, invoiceID string) (*domain.NormalizedInvoice, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(
		"i.invoice_id", "i.vendor_name", "i.invoice_date", "i.billing_address_recipient",
		"i.shipping_address", "i.sub_total", "i.shipping_cost", "i.invoice_total",
		"c.invoice_id AS conf_invoice_id",
		"c.vendor_name AS conf_vendor_name",
		"c.invoice_date AS conf_invoice_date",
		"c.billing_address_recipient AS conf_billing_address_recipient",
		"c.shipping_address AS conf_shipping_address",
		"c.sub_total AS conf_sub_total",
		"c.shipping_cost AS conf_shipping_cost",
		"c.invoice_total AS conf_invoice_total",
		"c.overall AS conf_overall",
	)
	sb.From(sb.As(invoicesTable, "i"))
	sb.JoinWithOption(sqlbuilder.LeftJoin, sb.As(confidencesTable, "c"), "c.invoice_id = i.invoice_id")
	sb.Where(sb.Equal("i.invoice_id", invoiceID))

	query, args := sb.Build()
	var row invoiceRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}

	items, err := r.listItems(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.GetByID items: %w", err)
	}
	return row.toDomain(items), nil
}

func (r *invoiceRepo) listItems(ctx context.Context, invoiceID string) ([]domain.LineItem, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select("description", "name", "quantity", "unit_price", "amount")
	sb.From(itemsTable)
	sb.Where(sb.Equal("invoice_id", invoiceID))
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	items := make([]domain.LineItem, 0, len(rows))
	for _, ir := range rows {
		items = append(items, domain.LineItem{
			Description: ir.Description,
			Name:        ir.Name,
			Quantity:    ir.Quantity,
			UnitPrice:   ir.UnitPrice,
			Amount:      ir.Amount,
		})
	}
	return items, nil
}

func (r *invoiceRepo) ListByVendor(ctx context.Context, vendorName string) ([]domain.NormalizedInvoice, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select("invoice_id")
	sb.From(invoicesTable)
	sb.Where(sb.Equal("vendor_name", vendorName))
	sb.OrderBy("invoice_date", "invoice_id").Asc()

	query, args := sb.Build()
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("invoiceRepo.ListByVendor: %w", err)
	}

	invoices := make([]domain.NormalizedInvoice, 0, len(ids))
	for _, id := range ids {
		inv, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("invoiceRepo.ListByVendor: %w", err)
		}
		// Removed between the two reads.
		if inv == nil {
			continue
		}
		invoices = append(invoices, *inv)
	}
	return invoices, nil
}

func (r *invoiceRepo) Clear(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Clear begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{itemsTable, confidencesTable, invoicesTable} {
		db := r.flavor.NewDeleteBuilder()
		db.DeleteFrom(table)
		query, args := db.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("invoiceRepo.Clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("invoiceRepo.Clear commit: %w", err)
	}
	return nil
}

// onConflictUpdate renders the upsert tail shared by PostgreSQL and SQLite.
func onConflictUpdate(key string, cols []string) string {
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}

func (row *invoiceRow) toDomain(items []domain.LineItem) *domain.NormalizedInvoice {
	id := row.InvoiceID
	out := &domain.NormalizedInvoice{
		Invoice: domain.Invoice{
			VendorName:              row.VendorName,
			InvoiceID:               &id,
			InvoiceDate:             row.InvoiceDate,
			BillingAddressRecipient: row.BillingAddressRecipient,
			ShippingAddress:         row.ShippingAddress,
			SubTotal:                row.SubTotal,
			ShippingCost:            row.ShippingCost,
			InvoiceTotal:            row.InvoiceTotal,
			Items:                   items,
		},
		FieldConfidence: map[string]*float64{},
	}
	if row.ConfInvoiceID == nil {
		return out
	}
	// A NULL column reads back as an absent key, matching what the normalizer
	// produces for a field it never saw.
	for field, v := range map[string]*float64{
		domain.FieldVendorName:              row.ConfVendorName,
		domain.FieldInvoiceDate:             row.ConfInvoiceDate,
		domain.FieldBillingAddressRecipient: row.ConfBillingAddressRecipient,
		domain.FieldShippingAddress:         row.ConfShippingAddress,
		domain.FieldSubTotal:                row.ConfSubTotal,
		domain.FieldShippingCost:            row.ConfShippingCost,
		domain.FieldInvoiceTotal:            row.ConfInvoiceTotal,
	} {
		if v != nil {
			out.FieldConfidence[field] = v
		}
	}
	if row.ConfOverall != nil {
		out.OverallConfidence = *row.ConfOverall
	}
	return out
}
