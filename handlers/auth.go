package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// apiKeyAuth wraps a handler with optional API-key authentication. When
// hash is empty, auth is disabled and every request passes, matching how an
// unconfigured credential disables a login prompt rather than rejecting
// everyone. When a hash is configured, the caller must present it in the
// X-API-Key header, verified with a constant-time bcrypt comparison so
// response timing does not leak how close a guess came.
func apiKeyAuth(hash string, next http.HandlerFunc) http.HandlerFunc {
	if hash == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			http.Error(w, "invalid or missing API key", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
