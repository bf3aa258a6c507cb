package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// captureJSON installs a JSON default logger and restores the previous one.
func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	Setup(&buf, level, "json")
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return m
}

func TestSetup_Level(t *testing.T) {
	buf := captureJSON(t, "warn")

	slog.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}

	slog.Warn("shown")
	if got := decodeLine(t, buf)["msg"]; got != "shown" {
		t.Errorf("msg = %v, want shown", got)
	}
}

func TestFromContext_RequestID(t *testing.T) {
	buf := captureJSON(t, "info")

	var ctx context.Context
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	FromContext(ctx).Info("hello")
	if id, _ := decodeLine(t, buf)["request_id"].(string); id == "" {
		t.Error("request_id missing from log line")
	}
}

func TestNewContext_CarriesFields(t *testing.T) {
	buf := captureJSON(t, "info")

	ctx := NewContext(context.Background(), WithFields(context.Background(), "run_id", "r-1"))
	WithFields(ctx, "batch", 2).Info("batch committed")

	line := decodeLine(t, buf)
	if line["run_id"] != "r-1" {
		t.Errorf("run_id = %v, want r-1", line["run_id"])
	}
	if line["batch"] != float64(2) {
		t.Errorf("batch = %v, want 2", line["batch"])
	}
}
