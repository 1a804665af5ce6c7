package domain

// FieldNode is one node of the field tree returned by document analysis.
// Scalar nodes carry Text; Group nodes carry Children (rows of a line-item
// group, or the columns within a row).
type FieldNode struct {
	Kind            FieldKind   `json:"kind"`
	Type            string      `json:"type,omitempty"`
	Label           *string     `json:"label,omitempty"`
	LabelConfidence *float64    `json:"label_confidence,omitempty"`
	Text            *string     `json:"text,omitempty"`
	Children        []FieldNode `json:"children,omitempty"`
}

// LabelName returns the node label or "" when the node is unlabeled.
func (n *FieldNode) LabelName() string {
	if n == nil || n.Label == nil {
		return ""
	}
	return *n.Label
}

// IsGroup reports whether the node holds child fields.
func (n *FieldNode) IsGroup() bool {
	return n != nil && n.Kind == FieldKindGroup
}

// DetectedDocumentType is one classification candidate emitted alongside the field tree.
type DetectedDocumentType struct {
	DocumentType string   `json:"document_type"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// AnalyzedDocument is the analysis result handed to the normalizer: the
// top-level fields of every page in source order plus the classification.
type AnalyzedDocument struct {
	Fields        []FieldNode            `json:"fields"`
	DocumentTypes []DetectedDocumentType `json:"document_types,omitempty"`
}

// LineItem is one row of the invoice line-item table.
type LineItem struct {
	Description *string  `json:"Description"`
	Name        *string  `json:"Name"`
	Quantity    *int64   `json:"Quantity"`
	UnitPrice   *float64 `json:"UnitPrice"`
	Amount      *float64 `json:"Amount"`
}

// Invoice holds the normalized header fields and line items.
// AmountDue is recognized and coerced but not persisted.
type Invoice struct {
	VendorName              *string    `json:"VendorName"`
	InvoiceID               *string    `json:"InvoiceId"`
	InvoiceDate             *string    `json:"InvoiceDate"`
	BillingAddressRecipient *string    `json:"BillingAddressRecipient"`
	ShippingAddress         *string    `json:"ShippingAddress"`
	SubTotal                *float64   `json:"SubTotal"`
	ShippingCost            *float64   `json:"ShippingCost"`
	InvoiceTotal            *float64   `json:"InvoiceTotal"`
	AmountDue               *float64   `json:"AmountDue,omitempty"`
	Items                   []LineItem `json:"Items"`
}

// ID returns the invoice id, or "" when absent.
func (i *Invoice) ID() string {
	if i == nil || i.InvoiceID == nil {
		return ""
	}
	return *i.InvoiceID
}

// NormalizedInvoice is the normalizer output and the persisted aggregate root.
type NormalizedInvoice struct {
	Invoice           Invoice             `json:"data"`
	FieldConfidence   map[string]*float64 `json:"dataConfidence"`
	OverallConfidence float64             `json:"confidence"`
}

// SaveResult reports whether a save persisted anything.
type SaveResult struct {
	Status    SaveStatus `json:"status"`
	Reason    SkipReason `json:"reason,omitempty"`
	InvoiceID string     `json:"invoice_id,omitempty"`
	Items     int        `json:"items"`
}

// Saved reports whether the invoice was written.
func (r SaveResult) Saved() bool {
	return r.Status == SaveStatusSaved
}

// UnknownVendor is reported when a vendor has no stored invoices.
const UnknownVendor = "Unknown Vendor"

// VendorInvoices groups every stored invoice of one vendor.
type VendorInvoices struct {
	VendorName    string              `json:"VendorName"`
	TotalInvoices int                 `json:"TotalInvoices"`
	Invoices      []NormalizedInvoice `json:"invoices"`
}
