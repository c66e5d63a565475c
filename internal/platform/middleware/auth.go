package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type TokenValidator func(token string, r *http.Request) bool

// MasterToken validates against a single shared token. Returns nil when master
// is empty, which disables BearerAuth.
func MasterToken(master string) TokenValidator {
	master = strings.TrimSpace(master)
	if master == "" {
		return nil
	}
	return func(token string, r *http.Request) bool {
		return subtle.ConstantTimeCompare([]byte(token), []byte(master)) == 1
	}
}

// BearerAuth reads the token from "Authorization: Bearer" or the apikey header.
// Missing token is 401, rejected token is 403.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if !validator(token, r) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ExtractToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(r.Header.Get("apikey"))
}
