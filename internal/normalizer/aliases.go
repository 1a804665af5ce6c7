package normalizer

import "invoicescan/internal/domain"

// ColumnAlias maps one line-item key to the column labels accepted for it,
// in priority order.
type ColumnAlias struct {
	Key    string
	Labels []string
}

// AliasTable is the ordered set of line-item keys and their accepted labels.
type AliasTable []ColumnAlias

// DefaultAliases covers the column spellings the analysis service is known to emit.
var DefaultAliases = AliasTable{
	{Key: domain.ColumnDescription, Labels: []string{"Description", "ItemDescription", "Desc"}},
	{Key: domain.ColumnName, Labels: []string{"Name", "Item", "ProductName"}},
	{Key: domain.ColumnQuantity, Labels: []string{"Quantity", "Qty"}},
	{Key: domain.ColumnUnitPrice, Labels: []string{"UnitPrice", "Price", "UnitCost"}},
	{Key: domain.ColumnAmount, Labels: []string{"Amount", "LineTotal", "Total"}},
}

// Labels returns the accepted labels for key, or nil if the key is unknown.
func (t AliasTable) Labels(key string) []string {
	for _, a := range t {
		if a.Key == key {
			return a.Labels
		}
	}
	return nil
}

// lookup returns the text of the first column, among labels, whose text is non-empty.
func lookup(columns map[string]*domain.FieldNode, labels []string) *string {
	for _, label := range labels {
		col, ok := columns[label]
		if !ok || col.Text == nil || *col.Text == "" {
			continue
		}
		v := *col.Text
		return &v
	}
	return nil
}
