package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendcast/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf})
	m := NewMiddleware(func(*http.Request) string { return "10.1.2.3" }, logger)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("generated id = %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response id %q != context id %q", rec.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	if !strings.Contains(out, "status_code=418") || !strings.Contains(out, "client_ip=10.1.2.3") {
		t.Fatalf("unexpected log %q", out)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("TotalRequests = %d", got)
	}
}

func TestMiddlewareRequestIDHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"kept", "abc-123", true},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"missing", "", false},
	}

	m := NewMiddleware(nil, log.New(log.Config{Output: &bytes.Buffer{}}))
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestID, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(HeaderRequestID)
			if tt.keep && got != tt.header {
				t.Fatalf("id = %q, want %q", got, tt.header)
			}
			if !tt.keep && !strings.HasPrefix(got, "req_") {
				t.Fatalf("expected generated id, got %q", got)
			}
		})
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Fatalf("GetRequestID = %q", got)
	}
	if m := NewMiddleware(nil, log.New(log.Config{Output: &bytes.Buffer{}})).GetMetrics(); m.TotalRequests != 0 || m.AverageResponseTime != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}
