package i18n

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectorkit/internal/domain"
)

var supported = []string{"en", "fr", "es", "de"}

type fakeBackend struct {
	calls int
	reply func(text, from, to string) (string, error)
}

func (f *fakeBackend) Translate(_ context.Context, text, from, to string) (string, error) {
	f.calls++
	return f.reply(text, from, to)
}

func newTestTranslator(t *testing.T, opts ...Option) *Translator {
	t.Helper()
	tr, err := NewTranslator("en", supported, opts...)
	require.NoError(t, err)
	return tr
}

func TestNewTranslatorRejectsUnsupportedDefault(t *testing.T) {
	_, err := NewTranslator("it", supported)
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestTranslate(t *testing.T) {
	tr := newTestTranslator(t)
	ctx := context.Background()

	got, err := tr.Translate(ctx, "Hello", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got, "input language is returned unchanged")

	got, err = tr.Translate(ctx, "Device", "fr")
	require.NoError(t, err)
	assert.Equal(t, "Appareil", got)

	got, err = tr.Translate(ctx, "Inactive devices", "DE")
	require.NoError(t, err)
	assert.Equal(t, "Inaktive Geräte", got)

	got, err = tr.Translate(ctx, "Nothing in the catalog", "es")
	require.NoError(t, err)
	assert.Equal(t, "Nothing in the catalog", got)

	_, err = tr.Translate(ctx, "Hello", "it")
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestTranslateEmptyLanguageUsesOutputLanguage(t *testing.T) {
	tr := newTestTranslator(t)
	require.NoError(t, tr.SetLanguage("es"))

	got, err := tr.Translate(context.Background(), "Customer", "")
	require.NoError(t, err)
	assert.Equal(t, "Cliente", got)
}

func TestTranslateBackendIsCached(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	backend := &fakeBackend{reply: func(text, from, to string) (string, error) {
		return to + ":" + text, nil
	}}
	tr := newTestTranslator(t,
		WithBackend(backend),
		WithCacheTTL(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	for range 3 {
		got, err := tr.Translate(ctx, "Battery low", "fr")
		require.NoError(t, err)
		assert.Equal(t, "fr:Battery low", got)
	}
	assert.Equal(t, 1, backend.calls)

	now = now.Add(2 * time.Minute)
	_, err := tr.Translate(ctx, "Battery low", "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls, "expired entries go back to the backend")

	_, err = tr.Translate(ctx, "Device", "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls, "catalog hits never reach the backend")
}

func TestTranslateBackendError(t *testing.T) {
	boom := errors.New("quota exceeded")
	tr := newTestTranslator(t, WithBackend(&fakeBackend{reply: func(string, string, string) (string, error) {
		return "", boom
	}}))

	_, err := tr.Translate(context.Background(), "Battery low", "de")
	assert.ErrorIs(t, err, boom)
}

func TestDateLocalisesMonths(t *testing.T) {
	tr := newTestTranslator(t)
	tm := time.Date(2024, time.August, 15, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "15 August 2024", tr.Date("2 January 2006", tm))

	require.NoError(t, tr.SetLanguage("fr"))
	assert.Equal(t, "15 août 2024", tr.Date("2 January 2006", tm))
	assert.Equal(t, "2024-08-15", tr.Date("2006-01-02", tm))

	require.NoError(t, tr.SetLanguage("de"))
	assert.Equal(t, "15. März 2024", tr.Date("2. January 2006", tm.AddDate(0, -5, 0)))
}

func TestDateZeroUsesClock(t *testing.T) {
	fixed := time.Date(2023, time.December, 24, 0, 0, 0, 0, time.UTC)
	tr := newTestTranslator(t, WithClock(func() time.Time { return fixed }))
	require.NoError(t, tr.SetLanguage("es"))

	assert.Equal(t, "24 diciembre 2023", tr.Date("2 January 2006", time.Time{}))
}

func TestSetLanguage(t *testing.T) {
	tr := newTestTranslator(t)
	assert.Equal(t, "en", tr.Language())

	err := tr.SetLanguage("pt")
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
	assert.Equal(t, "en", tr.Language(), "a rejected language leaves the state untouched")

	require.NoError(t, tr.SetLanguage(" FR "))
	assert.Equal(t, "fr", tr.Language())
}

func TestAvailableLanguagesIsACopy(t *testing.T) {
	tr := newTestTranslator(t)
	langs := tr.AvailableLanguages()
	assert.Equal(t, []string{"de", "en", "es", "fr"}, langs)

	langs[0] = "xx"
	assert.Equal(t, []string{"de", "en", "es", "fr"}, tr.AvailableLanguages())
}

func TestMonths(t *testing.T) {
	tr := newTestTranslator(t)
	months, err := tr.Months("fr")
	require.NoError(t, err)
	assert.Len(t, months, 12)
	assert.Equal(t, "janvier", months[time.January])
	assert.Equal(t, "décembre", months[time.December])

	_, err = tr.Months("nl")
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestT(t *testing.T) {
	tr := newTestTranslator(t)

	assert.Equal(t, "Appareil 42 introuvable",
		tr.T("fr", "validation_device_not_found", map[string]any{"DeviceID": 42}))
	assert.Equal(t, "Device 42 not found",
		tr.T("", "validation_device_not_found", map[string]any{"DeviceID": 42}))
	assert.Equal(t, "unknown_key", tr.T("fr", "unknown_key", nil))
	assert.Empty(t, tr.T("fr", "", nil))
}

func TestTTLCacheEviction(t *testing.T) {
	now := time.Unix(0, 0)
	c := newTTLCache(time.Second)
	c.set("a", "1", now)

	v, ok := c.get("a", now.Add(500*time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = c.get("a", now.Add(time.Second))
	assert.False(t, ok)

	off := newTTLCache(0)
	off.set("a", "1", now)
	_, ok = off.get("a", now)
	assert.False(t, ok, "a zero TTL disables caching")
}
