package textutil

import (
	"path/filepath"
	"strings"
)

// DefaultAllowedFileTypes is the upload allow-list used when none is given.
var DefaultAllowedFileTypes = []string{"jpg", "jpeg", "png", "gif", "pdf", "doc", "docx"}

// FileExtension returns the lower-cased extension of filename without its dot.
func FileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IsAllowedFileType reports whether the extension of filename is in allowed,
// or in DefaultAllowedFileTypes when allowed is empty. Comparison ignores case
// and a leading dot in allow-list entries.
func IsAllowedFileType(filename string, allowed ...string) bool {
	if len(allowed) == 0 {
		allowed = DefaultAllowedFileTypes
	}
	ext := FileExtension(filename)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == ext {
			return true
		}
	}
	return false
}
