package output

import (
	"context"
	"time"
)

// T exposes keyed, templated messages for user-facing text.
type T interface {
	// T renders the message identified by key for the given locale.
	// data is an optional map used for template placeholders (may be nil).
	T(locale, key string, data map[string]any) string
}

// Translator localises free text and dates. Implementations hold the current
// output language.
type Translator interface {
	T
	// Translate returns text in lang, or in the current output language when
	// lang is empty. Unknown languages fail with domain.ErrUnsupportedLanguage.
	Translate(ctx context.Context, text, lang string) (string, error)
	// Date formats t with a Go layout in the output language. A zero t means now.
	Date(layout string, t time.Time) string
	SetLanguage(lang string) error
	Language() string
	AvailableLanguages() []string
}

// TranslationBackend is an external machine translation service consulted
// for text missing from the local catalogs.
type TranslationBackend interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}
