package http

import (
	"context"
	"net/http"
	"time"

	"spendcast/internal/middleware/ratelimit"
	"spendcast/internal/middleware/trace"
)

type serviceInfo struct {
	Service   string          `json:"service"`
	Version   string          `json:"version"`
	Models    map[string]bool `json:"models"`
	Endpoints []string        `json:"endpoints"`
	Metrics   serviceMetrics  `json:"metrics"`
}

type serviceMetrics struct {
	Requests              trace.Metrics     `json:"requests"`
	RateLimit             ratelimit.Metrics `json:"rate_limit"`
	IgnoredForwardHeaders int64             `json:"ignored_forward_headers"`
	UptimeSeconds         int64             `json:"uptime_seconds"`
}

var endpoints = []string{
	"POST /api/predictions/predict",
	"GET /api/predictions/category/{user_id}/{category}",
	"GET /api/predictions/insights/{user_id}",
	"GET /api/predictions/compare/{user_id}",
	"POST /api/predictions/jobs",
	"GET /api/predictions/jobs/{id}",
	"GET /api/predictions/history/{user_id}",
	"POST /api/transactions",
	"GET /api/transactions/{user_id}",
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, serviceInfo{
		Service:   "spendcast",
		Version:   s.version,
		Models:    s.api.Models(),
		Endpoints: endpoints,
		Metrics: serviceMetrics{
			Requests:              s.tracer.GetMetrics(),
			RateLimit:             s.rateLimiter.GetMetrics(),
			IgnoredForwardHeaders: s.clientIP.IgnoredForwardHeaders(),
			UptimeSeconds:         int64(time.Since(s.startedAt).Seconds()),
		},
	})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady checks the backing store
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"store": "ok"}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func traceID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}
