package textutil

import (
	"net/mail"
	"strings"
)

// ValidateEmail reports whether s is a bare RFC 5322 address (no display
// name, no angle brackets) whose domain has at least two labels.
func ValidateEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	host := s[at+1:]
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return false
	}
	return true
}
