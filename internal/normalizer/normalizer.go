// Package normalizer converts a document-analysis field tree into a
// NormalizedInvoice. It performs no I/O and is safe for concurrent use.
package normalizer

import (
	"invoicescan/internal/domain"
)

// Options controls normalization.
type Options struct {
	Strategy domain.ConfidenceStrategy
	Aliases  AliasTable
}

// DefaultOptions uses the classification score and the default alias table.
func DefaultOptions() Options {
	return Options{Strategy: domain.ConfidenceClassification, Aliases: DefaultAliases}
}

// Normalize walks the top-level fields in source order and builds the
// normalized invoice. Missing labels, values, or columns become nil; nothing
// in the input can make it fail.
func Normalize(doc domain.AnalyzedDocument, opts Options) *domain.NormalizedInvoice {
	if opts.Strategy == "" {
		opts.Strategy = domain.ConfidenceClassification
	}
	if opts.Aliases == nil {
		opts.Aliases = DefaultAliases
	}

	w := walker{
		aliases: opts.Aliases,
		out: &domain.NormalizedInvoice{
			Invoice:         domain.Invoice{Items: []domain.LineItem{}},
			FieldConfidence: map[string]*float64{},
		},
	}
	for i := range doc.Fields {
		w.visit(&doc.Fields[i])
	}

	switch opts.Strategy {
	case domain.ConfidenceFieldAverage:
		w.out.OverallConfidence = averageConfidence(w.scores)
	default:
		w.out.OverallConfidence = classificationConfidence(doc.DocumentTypes)
	}
	return w.out
}

type walker struct {
	aliases   AliasTable
	out       *domain.NormalizedInvoice
	scores    []float64
	seenItems bool
}

func (w *walker) visit(f *domain.FieldNode) {
	if isLineItemGroup(f) {
		// Only the first line-item group is expanded; later ones are repeats.
		if w.seenItems {
			return
		}
		w.seenItems = true
		w.out.Invoice.Items = w.lineItems(f)
		return
	}

	name := f.LabelName()
	if name == "" || f.IsGroup() {
		return
	}
	w.collect(f.LabelConfidence)

	currency, known := domain.HeaderFields[name]
	if !known {
		return
	}
	w.out.FieldConfidence[name] = copyFloat(f.LabelConfidence)
	if currency {
		w.setAmount(name, ParseAmount(f.Text))
		return
	}
	w.setText(name, nonEmpty(f.Text))
}

// isLineItemGroup honours both the group-type tag and the reserved label.
func isLineItemGroup(f *domain.FieldNode) bool {
	return f.Type == domain.FieldTypeLineItemGroup || f.LabelName() == domain.ItemsLabel
}

func (w *walker) lineItems(group *domain.FieldNode) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(group.Children))
	for i := range group.Children {
		row := &group.Children[i]
		columns := make(map[string]*domain.FieldNode, len(row.Children))
		for j := range row.Children {
			col := &row.Children[j]
			w.collect(col.LabelConfidence)
			name := col.LabelName()
			if name == "" {
				continue
			}
			// A repeated label replaces the earlier column.
			columns[name] = col
		}
		items = append(items, domain.LineItem{
			Description: lookup(columns, w.aliases.Labels(domain.ColumnDescription)),
			Name:        lookup(columns, w.aliases.Labels(domain.ColumnName)),
			Quantity:    ParseQuantity(lookup(columns, w.aliases.Labels(domain.ColumnQuantity))),
			UnitPrice:   ParseAmount(lookup(columns, w.aliases.Labels(domain.ColumnUnitPrice))),
			Amount:      ParseAmount(lookup(columns, w.aliases.Labels(domain.ColumnAmount))),
		})
	}
	return items
}

func (w *walker) collect(score *float64) {
	if score != nil {
		w.scores = append(w.scores, *score)
	}
}

func (w *walker) setText(name string, v *string) {
	inv := &w.out.Invoice
	switch name {
	case domain.FieldVendorName:
		inv.VendorName = v
	case domain.FieldInvoiceID:
		inv.InvoiceID = v
	case domain.FieldInvoiceDate:
		inv.InvoiceDate = v
	case domain.FieldBillingAddressRecipient:
		inv.BillingAddressRecipient = v
	case domain.FieldShippingAddress:
		inv.ShippingAddress = v
	}
}

func (w *walker) setAmount(name string, v *float64) {
	inv := &w.out.Invoice
	switch name {
	case domain.FieldSubTotal:
		inv.SubTotal = v
	case domain.FieldShippingCost:
		inv.ShippingCost = v
	case domain.FieldInvoiceTotal:
		inv.InvoiceTotal = v
	case domain.FieldAmountDue:
		inv.AmountDue = v
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
