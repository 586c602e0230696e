package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireCronSecret guards the scan and process endpoints invoked by the
// external cron scheduler. The caller authenticates with
// "Authorization: Bearer <secret>".
func RequireCronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "Cron endpoint disabled", http.StatusServiceUnavailable)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
