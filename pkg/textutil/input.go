package textutil

import (
	"html"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeHTML escapes markup so the result is inert inside HTML text or
// attribute values.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// CleanRequestInput normalises s to NFC, drops control characters other
// than tab and newline, and trims surrounding space.
func CleanRequestInput(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// CleanRequestValues applies CleanRequestInput to every value of v.
func CleanRequestValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, values := range v {
		cleaned := make([]string, len(values))
		for i, value := range values {
			cleaned[i] = CleanRequestInput(value)
		}
		out[CleanRequestInput(key)] = cleaned
	}
	return out
}

// ContainsPattern reports whether haystack contains any of needles.
func ContainsPattern(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
