package domain

// FieldKind discriminates FieldNode variants.
type FieldKind string

const (
	FieldKindScalar FieldKind = "scalar"
	FieldKindGroup  FieldKind = "group"
)

// Field-type tags emitted by the analysis service.
const (
	FieldTypeKeyValue      = "KEY_VALUE"
	FieldTypeLineItemGroup = "LINE_ITEM_GROUP"
	FieldTypeLineItem      = "LINE_ITEM"
	FieldTypeLineItemField = "LINE_ITEM_FIELD"
)

// ItemsLabel is the reserved label of the line-item group.
const ItemsLabel = "Items"

// Header field names as they appear in field labels and in the serialized output.
const (
	FieldVendorName              = "VendorName"
	FieldInvoiceID               = "InvoiceId"
	FieldInvoiceDate             = "InvoiceDate"
	FieldBillingAddressRecipient = "BillingAddressRecipient"
	FieldShippingAddress         = "ShippingAddress"
	FieldSubTotal                = "SubTotal"
	FieldShippingCost            = "ShippingCost"
	FieldInvoiceTotal            = "InvoiceTotal"
	FieldAmountDue               = "AmountDue"
)

// Line-item column keys.
const (
	ColumnDescription = "Description"
	ColumnName        = "Name"
	ColumnQuantity    = "Quantity"
	ColumnUnitPrice   = "UnitPrice"
	ColumnAmount      = "Amount"
)

// HeaderFields lists every recognized header field. Currency fields are coerced to numbers.
var HeaderFields = map[string]bool{
	FieldVendorName:              false,
	FieldInvoiceID:               false,
	FieldInvoiceDate:             false,
	FieldBillingAddressRecipient: false,
	FieldShippingAddress:         false,
	FieldSubTotal:                true,
	FieldShippingCost:            true,
	FieldInvoiceTotal:            true,
	FieldAmountDue:               true,
}

// ConfidenceStrategy selects how the overall document confidence is computed.
type ConfidenceStrategy string

const (
	// ConfidenceClassification uses the document-classification score.
	ConfidenceClassification ConfidenceStrategy = "classification"
	// ConfidenceFieldAverage averages every field and column confidence seen during the walk.
	ConfidenceFieldAverage ConfidenceStrategy = "field_average"
)

// ValidConfidenceStrategies is the set of accepted strategy names.
var ValidConfidenceStrategies = map[ConfidenceStrategy]bool{
	ConfidenceClassification: true,
	ConfidenceFieldAverage:   true,
}

// SaveStatus is the outcome of a save.
type SaveStatus string

const (
	SaveStatusSaved   SaveStatus = "saved"
	SaveStatusSkipped SaveStatus = "skipped"
)

// SkipReason explains a skipped save.
type SkipReason string

const (
	SkipReasonMissingID SkipReason = "missing_invoice_id"
)

// ExportFormat is a vendor export file format.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)
