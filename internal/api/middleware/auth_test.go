package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/ec-cart/internal/auth"
	"github.com/example/ec-cart/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService() *auth.TokenService {
	return auth.NewTokenService("test-secret-key", 15*time.Minute)
}

func issueToken(t *testing.T, tokens *auth.TokenService, id, role string) string {
	t.Helper()
	token, _, err := tokens.Issue(&auth.User{ID: id, Email: id + "@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func captureClaims(out **auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := GetClaims(r.Context()); ok {
			*out = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken_Header(t *testing.T) {
	tokens := newTestTokenService()
	token := issueToken(t, tokens, "user-123", auth.RoleCustomer)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(tokens)(captureClaims(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-123", captured.OwnerID)
	assert.Equal(t, "user-123@example.com", captured.Email)
	assert.Equal(t, auth.RoleCustomer, captured.Role)
}

func TestAuthMiddleware_ValidToken_Cookie(t *testing.T) {
	tokens := newTestTokenService()
	token := issueToken(t, tokens, "user-456", auth.RoleAdmin)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()

	AuthMiddleware(tokens)(captureClaims(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.True(t, captured.IsAdmin())
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tokens := newTestTokenService()
	expired := auth.NewTokenService("test-secret-key", -time.Minute)
	otherSecret := auth.NewTokenService("another-secret", time.Minute)

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"no token", "", "authentication required"},
		{"garbage", "Bearer not-a-jwt", "invalid token"},
		{"wrong secret", "Bearer " + issueToken(t, otherSecret, "u", auth.RoleCustomer), "invalid token"},
		{"expired", "Bearer " + issueToken(t, expired, "u", auth.RoleCustomer), "token has expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(tokens)(next).ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
			assert.Contains(t, rec.Body.String(), `"error":"unauthenticated"`)
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	tokens := newTestTokenService()

	t.Run("without token", func(t *testing.T) {
		var captured *auth.Claims
		rec := httptest.NewRecorder()
		OptionalAuthMiddleware(tokens)(captureClaims(&captured)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, captured)
	})

	t.Run("with invalid token", func(t *testing.T) {
		var captured *auth.Claims
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer broken")
		rec := httptest.NewRecorder()
		OptionalAuthMiddleware(tokens)(captureClaims(&captured)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, captured)
	})

	t.Run("with valid token", func(t *testing.T) {
		var captured *auth.Claims
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+issueToken(t, tokens, "user-1", auth.RoleCustomer))
		rec := httptest.NewRecorder()
		OptionalAuthMiddleware(tokens)(captureClaims(&captured)).ServeHTTP(rec, req)

		require.NotNil(t, captured)
		assert.Equal(t, "user-1", captured.OwnerID)
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name   string
		claims *auth.Claims
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &auth.Claims{OwnerID: "u", Role: auth.RoleCustomer}, http.StatusForbidden},
		{"admin", &auth.Claims{OwnerID: "u", Role: auth.RoleAdmin}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()

			RequireRole(auth.RoleAdmin)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetOwnerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetOwnerID(req.Context()))

	ctx := WithClaims(req.Context(), &auth.Claims{OwnerID: "owner-9"})
	assert.Equal(t, "owner-9", GetOwnerID(ctx))
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	rec := httptest.NewRecorder()

	RequestLogger(logger.Nop())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
