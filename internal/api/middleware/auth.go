package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/auth"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

type claimsKey struct{}

// Auth requires a valid bearer token and stores its claims in the request
// context.
func Auth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeProblem(w, r, models.NewUnauthorized(GetRequestID(r.Context()), "missing or malformed bearer token"))
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				detail := "invalid access token"
				if errors.Is(err, auth.ErrTokenExpired) {
					detail = "access token has expired"
				}
				writeProblem(w, r, models.NewUnauthorized(GetRequestID(r.Context()), detail))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope rejects requests whose token lacks scope. It must run after
// Auth.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil || !claims.HasScope(scope) {
				writeProblem(w, r, models.NewForbidden(GetRequestID(r.Context()), "token lacks scope "+scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims returns the authenticated token claims, or nil when the request
// was not authenticated.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

// GetSubject returns the authenticated subject, or "".
func GetSubject(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.Subject
	}
	return ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeProblem lives here rather than in response to avoid an import cycle.
func writeProblem(w http.ResponseWriter, r *http.Request, p *models.Problem) {
	p.WithInstance(r.URL.Path).Write(w)
}
