package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/pkg/identity"
	"github.com/dmitrymomot/notifsync/pkg/logger"
)

func TestResolvers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	id, err := identity.Static("u1").CurrentUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	id, err = identity.Static("").CurrentUserID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = identity.ContextResolver.CurrentUserID(identity.WithUserID(ctx, "u2"))
	require.NoError(t, err)
	assert.Equal(t, "u2", id)

	id, err = identity.ContextResolver.CurrentUserID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestJWTParser(t *testing.T) {
	t.Parallel()

	p, err := identity.NewJWTParser("secret", 0)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		tok, err := p.Issue("user-1", time.Minute)
		require.NoError(t, err)
		sub, err := p.Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, "user-1", sub)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := p.Issue("user-1", -time.Minute)
		require.NoError(t, err)
		_, err = p.Parse(tok)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := identity.NewJWTParser("other", 0)
		require.NoError(t, err)
		tok, err := other.Issue("user-1", time.Minute)
		require.NoError(t, err)
		_, err = p.Parse(tok)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = p.Parse(tok)
		assert.ErrorIs(t, err, identity.ErrMissingSubject)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := identity.NewJWTParser("", 0)
		assert.ErrorIs(t, err, identity.ErrEmptySecret)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	p, err := identity.NewJWTParser("secret", 0)
	require.NoError(t, err)
	tok, err := p.Issue("user-9", time.Minute)
	require.NoError(t, err)

	var seen string
	h := identity.Middleware(p, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		user   string
	}{
		{"anonymous", func(*http.Request) {}, http.StatusNoContent, ""},
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }, http.StatusNoContent, "user-9"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "access_token=" + tok }, http.StatusNoContent, "user-9"},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }, http.StatusUnauthorized, ""},
		{"other scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(r)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.user, seen)
		})
	}
}
