package secret

import "github.com/google/uuid"

// UniqueID returns prefix followed by a random UUID.
func UniqueID(prefix string) string {
	return prefix + uuid.NewString()
}
