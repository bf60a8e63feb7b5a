package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireAPIToken is middleware that requires "Authorization: Bearer <token>".
// An empty token disables the check.
func RequireAPIToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validBearer(r.Header.Get("Authorization"), token) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="face-attendance"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// validBearer compares the bearer credential in constant time.
func validBearer(header, token string) bool {
	scheme, credential, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	credential = strings.TrimSpace(credential)
	return subtle.ConstantTimeCompare([]byte(credential), []byte(token)) == 1
}
