package logging

// Standardized field names for structured logging. Keeping these as
// constants makes run logs consistent enough to grep across components.
const (
	FieldSelector  = "selector"
	FieldFrame     = "frame"
	FieldStrategy  = "strategy"
	FieldAttempt   = "attempt"
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldRows      = "rows"
	FieldColumns   = "columns"
	FieldKey       = "authorization_number"
	FieldFile      = "file_path"
	FieldCount     = "count"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldTimeoutMs = "timeout_ms"
)
