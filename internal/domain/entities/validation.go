package entities

// ValidationStatus summarises a validation run.
type ValidationStatus string

const (
	StatusOK      ValidationStatus = "ok"
	StatusWarning ValidationStatus = "warning"
	StatusError   ValidationStatus = "error"
)
