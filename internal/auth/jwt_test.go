package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedback-service/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "feedback-service", time.Minute)

	token, err := issuer.Issue(identity.Principal{UserID: 42, Role: identity.RoleAdmin})
	require.NoError(t, err)

	p, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, 42, p.UserID)
	assert.Equal(t, identity.RoleAdmin, p.Role)
}

func TestParseRejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", "feedback-service", time.Minute)
	token, err := issuer.Issue(identity.Principal{UserID: 1, Role: identity.RoleStudent})
	require.NoError(t, err)

	_, err = NewTokenIssuer("other-secret", "feedback-service", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer("secret", "someone-else", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewTokenIssuer("secret", "feedback-service", -time.Minute).Issue(identity.Principal{UserID: 1, Role: identity.RoleStudent})
	require.NoError(t, err)
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHash(t *testing.T) {
	a, err := newRefreshToken()
	require.NoError(t, err)
	b, err := newRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, hashToken(a), hashToken(a))
	assert.NotEqual(t, a, hashToken(a))
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("secret", "feedback-service", time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &Service{issuer: issuer}

	var seen identity.Principal
	protected := Middleware(svc, logger)(RequireRole(logger, identity.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = identity.FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	))

	adminToken, err := issuer.Issue(identity.Principal{UserID: 7, Role: identity.RoleAdmin})
	require.NoError(t, err)
	studentToken, err := issuer.Issue(identity.Principal{UserID: 8, Role: identity.RoleStudent})
	require.NoError(t, err)

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: adminToken})
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 7, seen.UserID)
	})

	t.Run("Bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("WrongRole", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+studentToken)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
