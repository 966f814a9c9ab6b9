package auth

import (
	"context"

	"collectorkit/internal/domain/entities"
)

type contextKey string

const contextKeySession contextKey = "auth.session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *entities.Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

// SessionFromContext extracts the session from ctx.
func SessionFromContext(ctx context.Context) *entities.Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(contextKeySession).(*entities.Session)
	return s
}

// IsAuthenticated reports whether ctx carries a session with a user.
func IsAuthenticated(ctx context.Context) bool {
	s := SessionFromContext(ctx)
	return s != nil && s.User.ID != 0
}

// CurrentUser returns the user of the session in ctx, or nil.
func CurrentUser(ctx context.Context) *entities.User {
	if !IsAuthenticated(ctx) {
		return nil
	}
	u := SessionFromContext(ctx).User
	return &u
}

// HasPermission reports whether the authenticated session in ctx carries
// permission.
func HasPermission(ctx context.Context, permission string) bool {
	return IsAuthenticated(ctx) && SessionFromContext(ctx).Can(permission)
}
