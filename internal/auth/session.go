package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
	"collectorkit/internal/ports/input"
)

var _ input.SessionUseCase = (*Manager)(nil)

// Claims represents JWT claims carried by a session token.
type Claims struct {
	UserName    string   `json:"name"`
	CustomerID  int64    `json:"customer_id"`
	Language    string   `json:"lang,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. ttl is the session lifetime.
func NewManager(secret []byte, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session timeout must be positive")
	}
	m := &Manager{secret: secret, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a session for user scoped to customerID.
func (m *Manager) Issue(user entities.User, customerID int64, language string, permissions ...string) (*entities.Session, error) {
	now := m.now().Truncate(time.Second)
	claims := &Claims{
		UserName:    user.Name,
		CustomerID:  customerID,
		Language:    language,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        GenerateSessionToken(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: sign session: %w", err)
	}
	return &entities.Session{
		Token:       token,
		User:        user,
		CustomerID:  customerID,
		Language:    language,
		Permissions: permissions,
		IssuedAt:    now,
		ExpiresAt:   now.Add(m.ttl),
	}, nil
}

// Parse validates a session token. Bad signatures, expiry and malformed
// tokens all fail with domain.ErrAccessDenied.
func (m *Manager) Parse(token string) (*entities.Session, error) {
	if !ValidateSessionToken(token) {
		return nil, domain.Wrap("auth: parse session", domain.ErrAccessDenied, errors.New("empty token"))
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, domain.Wrap("auth: parse session", domain.ErrAccessDenied, err)
	}
	if !parsed.Valid {
		return nil, domain.Wrap("auth: parse session", domain.ErrAccessDenied, errors.New("invalid token"))
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, domain.Wrap("auth: parse session subject", domain.ErrAccessDenied, err)
	}
	s := &entities.Session{
		Token:       token,
		User:        entities.User{ID: userID, Name: claims.UserName},
		CustomerID:  claims.CustomerID,
		Language:    claims.Language,
		Permissions: claims.Permissions,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
