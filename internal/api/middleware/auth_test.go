package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/internal/api/middleware"
	"github.com/healthbridge/healthbridge/internal/auth"
)

func testTokens() *auth.TokenService {
	return auth.NewTokenService(auth.Config{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "healthbridge",
		Audience:   "healthbridge-api",
	})
}

type validatorFunc func(string) (*auth.Claims, error)

func (f validatorFunc) Validate(token string) (*auth.Claims, error) { return f(token) }

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken(t *testing.T) {
	tokens := testTokens()
	token, _, err := tokens.Issue("ops@example.com", 0, auth.ScopeRead)
	require.NoError(t, err)

	var subject string
	handler := middleware.Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = middleware.GetSubject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/capabilities", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@example.com", subject)
}

func TestAuth_RejectsMalformedHeaders(t *testing.T) {
	handler := middleware.Auth(testTokens())(ok())

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no scheme", "token123"},
		{"basic", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"bare bearer", "Bearer"},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/capabilities", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAuth_BearerSchemeIsCaseInsensitive(t *testing.T) {
	tokens := testTokens()
	token, _, err := tokens.Issue("ops", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	middleware.Auth(tokens)(ok()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	expired := validatorFunc(func(string) (*auth.Claims, error) { return nil, auth.ErrTokenExpired })

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	middleware.Auth(expired)(ok()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestAuth_InvalidTokenHidesCause(t *testing.T) {
	invalid := validatorFunc(func(string) (*auth.Claims, error) {
		return nil, errors.Join(auth.ErrInvalidToken, errors.New("signature mismatch for key k1"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	middleware.Auth(invalid)(ok()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "k1")
}

func TestRequireScope(t *testing.T) {
	tokens := testTokens()
	handler := middleware.Auth(tokens)(middleware.RequireScope(auth.ScopeControl)(ok()))

	tests := []struct {
		name   string
		scopes []string
		want   int
	}{
		{"granted", []string{auth.ScopeRead, auth.ScopeControl}, http.StatusOK},
		{"read only", []string{auth.ScopeRead}, http.StatusForbidden},
		{"no scopes", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := tokens.Issue("ops", 0, tt.scopes...)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/v1/workouts", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireScope_WithoutAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.RequireScope(auth.ScopeRead)(ok()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, middleware.GetSubject(httptest.NewRequest(http.MethodGet, "/", http.NoBody).Context()))
}
