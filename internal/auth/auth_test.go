package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectorkit/internal/domain"
	"collectorkit/internal/domain/entities"
)

func TestGenerateSessionTokenIsUnique(t *testing.T) {
	a, b := GenerateSessionToken(), GenerateSessionToken()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "session_"))
}

func TestValidateSessionToken(t *testing.T) {
	assert.False(t, ValidateSessionToken(""))
	assert.True(t, ValidateSessionToken("x"))
}

func TestManagerIssueParse(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m, err := NewManager([]byte("s3cret"), 30*time.Minute, WithClock(clock))
	require.NoError(t, err)

	issued, err := m.Issue(entities.User{ID: 7, Name: "ops"}, 42, "fr", "devices:all")
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), issued.ExpiresAt)

	parsed, err := m.Parse(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), parsed.User.ID)
	assert.Equal(t, "ops", parsed.User.Name)
	assert.Equal(t, int64(42), parsed.CustomerID)
	assert.Equal(t, "fr", parsed.Language)
	assert.True(t, parsed.Can("devices:all"))
	assert.True(t, parsed.ExpiresAt.Equal(issued.ExpiresAt))

	now = now.Add(31 * time.Minute)
	_, err = m.Parse(issued.Token)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestManagerParseRejects(t *testing.T) {
	m, err := NewManager([]byte("a"), time.Minute)
	require.NoError(t, err)
	other, err := NewManager([]byte("b"), time.Minute)
	require.NoError(t, err)

	foreign, err := other.Issue(entities.User{ID: 1}, 1, "")
	require.NoError(t, err)

	for _, token := range []string{"", "x", "a.b.c", foreign.Token} {
		_, err := m.Parse(token)
		assert.ErrorIs(t, err, domain.ErrAccessDenied, token)
	}
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, time.Minute)
	assert.Error(t, err)
	_, err = NewManager([]byte("k"), 0)
	assert.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsAuthenticated(ctx))
	assert.Nil(t, CurrentUser(ctx))
	assert.False(t, HasPermission(ctx, "devices:all"))

	ctx = WithSession(ctx, &entities.Session{
		User:        entities.User{ID: 3, Name: "ana"},
		Permissions: []string{"reports:read"},
	})
	assert.True(t, IsAuthenticated(ctx))
	require.NotNil(t, CurrentUser(ctx))
	assert.Equal(t, "ana", CurrentUser(ctx).Name)
	assert.True(t, HasPermission(ctx, "reports:read"))
	assert.False(t, HasPermission(ctx, "devices:all"))
}
