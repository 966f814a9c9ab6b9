package cli

import (
	"collectorkit/internal/domain"
	"collectorkit/internal/ports/output"
)

// ErrorMessage resolves err to a user-facing message in locale. Errors that
// carry no domain code keep their own text.
func ErrorMessage(tr output.T, locale string, err error) string {
	if err == nil {
		return ""
	}
	code := domain.Code(err)
	if code == "" {
		return err.Error()
	}
	return tr.T(locale, "error_"+code, map[string]any{"Detail": err.Error()})
}
