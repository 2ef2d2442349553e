package httpx

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// WithAdminToken guards a handler group with a static bearer token. The
// deployment carries only the bcrypt hash of the token, so a leaked config
// file does not leak the credential. An empty hash disables the group.
func WithAdminToken(tokenHash string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				http.Error(w, "admin api disabled", http.StatusForbidden)
				return
			}
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			if bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(raw)) != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
