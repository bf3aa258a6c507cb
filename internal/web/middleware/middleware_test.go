package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name     string
		required bool
		keys     []string
		apiKey   string
		authz    string
		want     int
	}{
		{"disabled", false, nil, "", "", http.StatusOK},
		{"missing key", true, []string{"k1"}, "", "", http.StatusUnauthorized},
		{"wrong key", true, []string{"k1"}, "nope", "", http.StatusForbidden},
		{"valid key", true, []string{"k1", "k2"}, "k2", "", http.StatusOK},
		{"no keys configured", true, nil, "k1", "", http.StatusForbidden},
		{"bearer token", true, []string{"k1"}, "", "Bearer k1", http.StatusOK},
		{"bearer lowercase scheme", true, []string{"k1"}, "", "bearer k1", http.StatusOK},
		{"basic auth ignored", true, []string{"k1"}, "", "Basic k1", http.StatusUnauthorized},
		{"empty bearer", true, []string{"k1"}, "", "Bearer  ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyAuth(tt.required, tt.keys)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/api/import/types", nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.authz != "" {
				req.Header.Set("Authorization", tt.authz)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted keeps remote", []string{"10.0.0.0/8"}, "192.168.1.5:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "192.168.1.5:4000"},
		{"trusted uses real ip", []string{"10.0.0.0/8"}, "10.1.2.3:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted uses first forwarded", []string{"127.0.0.1"}, "127.0.0.1:4000",
			map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, "5.6.7.8"},
		{"invalid header ignored", []string{"127.0.0.1"}, "127.0.0.1:4000",
			map[string]string{"X-Real-IP": "not-an-ip"}, "127.0.0.1:4000"},
		{"bad cidr skipped", []string{"garbage"}, "127.0.0.1:4000",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "127.0.0.1:4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short", rec.Body.String())
}
