package domain

import (
	"errors"
	"fmt"
)

// Domain errors. Adapters wrap them with the underlying cause so callers can
// branch with errors.Is and still log the original failure.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidationFailed    = errors.New("validation failed")
	ErrAccessDenied        = errors.New("access denied")
	ErrTransient           = errors.New("transient failure")
	ErrParseError          = errors.New("parse error")
	ErrUnsupportedLanguage = errors.New("unsupported language")

	ErrFileTooLarge       = fmt.Errorf("file too large: %w", ErrValidationFailed)
	ErrFileTypeNotAllowed = fmt.Errorf("file type not allowed: %w", ErrValidationFailed)
)

var codes = []struct {
	err  error
	code string
}{
	// Most specific first: both file errors also match ErrValidationFailed.
	{ErrFileTooLarge, "file_too_large"},
	{ErrFileTypeNotAllowed, "file_type_not_allowed"},
	{ErrNotFound, "not_found"},
	{ErrValidationFailed, "validation_failed"},
	{ErrAccessDenied, "access_denied"},
	{ErrTransient, "transient"},
	{ErrParseError, "parse_error"},
	{ErrUnsupportedLanguage, "unsupported_language"},
}

// Code returns the stable code of the domain error wrapped by err, or "" when
// err carries none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Wrap annotates cause with op and kind. A nil cause yields a plain kind error.
func Wrap(op string, kind, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, cause)
}
