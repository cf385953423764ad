package logging

// Standard field names used across the normalizer, the validation engine and the CLI.
const (
	FieldFile       = "file_path"
	FieldDocType    = "doc_type"
	FieldDocumentID = "document_id"
	FieldAccount    = "account"
	FieldCurrency   = "currency"
	FieldRow        = "row"
	FieldStrategy   = "strategy"
	FieldCheck      = "check"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldCount      = "count"
	FieldOperation  = "operation"
)
