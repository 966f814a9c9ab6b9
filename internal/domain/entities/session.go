package entities

import (
	"slices"
	"time"
)

// User is the authenticated principal behind a session.
type User struct {
	ID   int64
	Name string
}

// Session binds a user to a customer for a bounded time.
type Session struct {
	Token       string
	User        User
	CustomerID  int64
	Language    string
	Permissions []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session is past its expiry at now. A session
// without expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Can reports whether the session carries permission.
func (s *Session) Can(permission string) bool {
	if s == nil {
		return false
	}
	return slices.Contains(s.Permissions, permission)
}
