package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"collectorkit/internal/domain"
	"collectorkit/internal/observability/metrics"
	"collectorkit/internal/ports/output"
)

//go:embed active.*.toml
var localeFS embed.FS

// Ensure Translator implements the output.Translator port.
var _ output.Translator = (*Translator)(nil)

// Translator is a wrapper around go-i18n's Bundle/Localizer holding the
// input/output language state. Catalog misses go to an optional external
// backend whose answers are cached.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	backend         output.TranslationBackend
	cache           *ttlCache
	now             func() time.Time
	logger          *slog.Logger

	mu      sync.RWMutex
	langIn  string
	langOut string
	active  map[string]language.Tag
	months  map[string]map[time.Month]string
}

// Option configures a Translator.
type Option func(*Translator)

// WithBackend plugs an external translation service for catalog misses.
func WithBackend(b output.TranslationBackend) Option {
	return func(t *Translator) { t.backend = b }
}

// WithCacheTTL sets how long backend answers are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(t *Translator) { t.cache = newTTLCache(ttl) }
}

// WithClock overrides the time source used by Date and the cache.
func WithClock(now func() time.Time) Option {
	return func(t *Translator) { t.now = now }
}

// WithLogger sets the logger used for catalog and backend failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) { t.logger = l }
}

// NewTranslator builds a Translator backed by go-i18n. defaultLocale is both
// the source language of free text and the initial output language; it must
// be one of supported.
//
// It loads translations from the embedded active.*.toml files.
func NewTranslator(defaultLocale string, supported []string, opts ...Option) (*Translator, error) {
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("i18n: default language %q: %w: %w", defaultLocale, domain.ErrUnsupportedLanguage, err)
	}
	t := &Translator{
		defaultLanguage: tag,
		cache:           newTTLCache(time.Hour),
		now:             time.Now,
		logger:          slog.Default(),
		active:          make(map[string]language.Tag, len(supported)),
		months:          make(map[string]map[time.Month]string, len(supported)),
	}
	for _, opt := range opts {
		opt(t)
	}

	for _, code := range supported {
		code = normalize(code)
		lt, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("i18n: supported language %q: %w: %w", code, domain.ErrUnsupportedLanguage, err)
		}
		t.active[code] = lt
	}
	def := normalize(defaultLocale)
	if _, ok := t.active[def]; !ok {
		return nil, fmt.Errorf("i18n: default language %q not in %v: %w", def, supported, domain.ErrUnsupportedLanguage)
	}
	t.langIn, t.langOut = def, def

	t.bundle = i18n.NewBundle(tag)
	t.bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	files, err := fs.Glob(localeFS, "active.*.toml")
	if err != nil {
		return nil, fmt.Errorf("i18n: list catalogs: %w", err)
	}
	for _, file := range files {
		if _, err := t.bundle.LoadMessageFileFS(localeFS, file); err != nil {
			t.logger.Warn("i18n: failed to load catalog", "file", file, "error", err)
		}
	}

	for code, lt := range t.active {
		t.months[code] = t.loadMonths(lt)
	}
	return t, nil
}

func (t *Translator) loadMonths(tag language.Tag) map[time.Month]string {
	months := make(map[time.Month]string, 12)
	for m := time.January; m <= time.December; m++ {
		name, ok := t.lookupExact(tag, "month_"+strconv.Itoa(int(m)))
		if !ok {
			name = m.String()
		}
		months[m] = name
	}
	return months
}

// lookupExact localizes id only when the catalog of tag's language has it;
// the bundle's fallback to the default language counts as a miss.
func (t *Translator) lookupExact(tag language.Tag, id string) (string, bool) {
	localizer := i18n.NewLocalizer(t.bundle, tag.String())
	msg, got, err := localizer.LocalizeWithTag(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return "", false
	}
	gotBase, _ := got.Base()
	wantBase, _ := tag.Base()
	return msg, gotBase == wantBase
}

// T renders the message identified by key for the given locale.
// If the key/locale is not found, it falls back to the default locale,
// then finally to the key itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil && msg == "" {
		t.logger.Debug("i18n: localize failed", "key", key, "locales", languages, "error", err)
		return key
	}
	return msg
}

// Translate returns text in lang, or in the current output language when lang
// is empty. Text already in the source language is returned unchanged.
func (t *Translator) Translate(ctx context.Context, text, lang string) (string, error) {
	t.mu.RLock()
	if lang == "" {
		lang = t.langOut
	}
	lang = normalize(lang)
	tag, ok := t.active[lang]
	langIn := t.langIn
	t.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("translate to %q: %w", lang, domain.ErrUnsupportedLanguage)
	}
	if text == "" || lang == langIn {
		return text, nil
	}

	if msg, ok := t.lookupExact(tag, text); ok {
		metrics.Translation(metrics.SourceCatalog)
		return msg, nil
	}

	key := lang + "\x00" + text
	if msg, ok := t.cache.get(key, t.now()); ok {
		metrics.Translation(metrics.SourceCache)
		return msg, nil
	}

	if t.backend == nil {
		metrics.Translation(metrics.SourcePassthrough)
		return text, nil
	}
	msg, err := t.backend.Translate(ctx, text, langIn, lang)
	if err != nil {
		return "", fmt.Errorf("translate to %q: %w", lang, err)
	}
	t.cache.set(key, msg, t.now())
	metrics.Translation(metrics.SourceBackend)
	return msg, nil
}

// Date formats tm with layout in the output language. Full month names are
// localized. A zero tm means now.
func (t *Translator) Date(layout string, tm time.Time) string {
	if tm.IsZero() {
		tm = t.now()
	}
	out := tm.Format(layout)
	if !strings.Contains(layout, "January") {
		return out
	}
	t.mu.RLock()
	name := t.months[t.langOut][tm.Month()]
	t.mu.RUnlock()
	if name == "" {
		return out
	}
	return strings.ReplaceAll(out, tm.Month().String(), name)
}

// SetLanguage switches the output language.
func (t *Translator) SetLanguage(lang string) error {
	lang = normalize(lang)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[lang]; !ok {
		return fmt.Errorf("set language %q: %w", lang, domain.ErrUnsupportedLanguage)
	}
	t.langOut = lang
	return nil
}

// Language returns the current output language.
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.langOut
}

// AvailableLanguages returns the enabled language codes, sorted.
func (t *Translator) AvailableLanguages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.active))
	for code := range t.active {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}

// Months returns the localized month names of lang.
func (t *Translator) Months(lang string) (map[time.Month]string, error) {
	lang = normalize(lang)
	t.mu.RLock()
	defer t.mu.RUnlock()
	months, ok := t.months[lang]
	if !ok {
		return nil, fmt.Errorf("months of %q: %w", lang, domain.ErrUnsupportedLanguage)
	}
	out := make(map[time.Month]string, len(months))
	for m, name := range months {
		out[m] = name
	}
	return out, nil
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
