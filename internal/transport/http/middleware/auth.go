package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/creator-studio/internal/domain"
	jwtinfra "github.com/creator-studio/internal/infrastructure/jwt"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenVerifier checks a session bearer token.
type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the Bearer JWT and injects the caller's
// Principal into the request context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			p := domain.Principal{
				UserID:    claims.UserID,
				Email:     claims.Email,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated caller from the request context.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}
