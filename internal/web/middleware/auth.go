package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/logging"
)

// APIKeyAuth guards the import API. The key is read from X-API-Key, or from
// an "Authorization: Bearer" header for clients that cannot set custom
// headers. With required false every request passes; with required true and
// no keys configured every request is rejected.
func APIKeyAuth(required bool, keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !required {
				next.ServeHTTP(w, r)
				return
			}

			key, source := requestKey(r)
			if key == "" {
				logging.FromContext(r.Context()).Warn("auth: missing API key", "path", r.URL.Path)
				denyJSON(w, http.StatusUnauthorized, "missing API key", "AUTH001")
				return
			}
			if !matchesAny(key, keys) {
				logging.WithFields(r.Context(),
					"path", r.URL.Path,
					"key_source", source,
					"remote_addr", r.RemoteAddr,
				).Warn("auth: invalid API key")
				denyJSON(w, http.StatusForbidden, "invalid API key", "AUTH002")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestKey returns the presented key and the header it came from.
func requestKey(r *http.Request) (key, source string) {
	if k := strings.TrimSpace(r.Header.Get("X-API-Key")); k != "" {
		return k, "x-api-key"
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token, "bearer"
		}
	}
	return "", ""
}

func denyJSON(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `","message":"` + message + `","code":"` + code + `"}`))
}

// matchesAny compares against every configured key in constant time.
func matchesAny(key string, keys []string) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return match == 1
}
