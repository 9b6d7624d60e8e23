package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

// RequireRole admits only principals holding one of roles. It must run
// after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeJSONError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(roles, p.Role) {
				slog.Debug("role check denied", "user_id", p.UserID, "role", p.Role, "path", r.URL.Path)
				writeJSONError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
