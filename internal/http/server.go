package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spendcast/internal/core"
	"spendcast/internal/log"
	"spendcast/internal/middleware/ratelimit"
	"spendcast/internal/middleware/security"
	"spendcast/internal/middleware/trace"
	"spendcast/internal/services"
)

// PredictionAPI is the service surface the handlers call. Implemented by
// services.PredictionService.
type PredictionAPI interface {
	Predict(ctx context.Context, req services.PredictRequest) (services.PredictionResponse, error)
	Category(ctx context.Context, userID, category string, daysAhead int, modelType string) (services.PredictionResponse, error)
	Insights(ctx context.Context, userID string, daysAhead int) (services.InsightsResponse, error)
	Compare(ctx context.Context, userID string, daysAhead int) (services.CompareResponse, error)
	EnqueueForecast(ctx context.Context, req services.PredictRequest) (core.ForecastRecord, error)
	GetJob(ctx context.Context, id string) (core.ForecastRecord, error)
	History(ctx context.Context, userID string, limit int) ([]core.ForecastRecord, error)
	AddTransaction(ctx context.Context, t core.Transaction) (string, error)
	ListTransactions(ctx context.Context, userID, category string) ([]core.Transaction, error)
	Models() map[string]bool
}

// Options configures a Server. Service is required.
type Options struct {
	Service PredictionAPI
	// Ready checks dependencies for /readyz. Nil means always ready.
	Ready             func(context.Context) error
	Logger            *log.Logger
	RequestsPerMinute int
	Version           string
}

type Server struct {
	http.Server
	api         PredictionAPI
	ready       func(context.Context) error
	logger      *log.Logger
	events      *log.StructuredLogger
	clientIP    *security.ClientIPResolver
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	version     string
	startedAt   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		api:       opts.Service,
		ready:     opts.Ready,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		clientIP:  security.NewClientIPResolver(),
		version:   version,
		startedAt: time.Now(),
	}
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute})
	s.tracer = trace.NewMiddleware(s.clientIP.ClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /api/predictions/predict", s.limited(s.handlePredict))
	mux.Handle("GET /api/predictions/category/{user_id}/{category}", s.limited(s.handleCategory))
	mux.Handle("GET /api/predictions/insights/{user_id}", s.limited(s.handleInsights))
	mux.Handle("GET /api/predictions/compare/{user_id}", s.limited(s.handleCompare))
	mux.Handle("POST /api/predictions/jobs", s.limited(s.handleEnqueue))
	mux.Handle("GET /api/predictions/jobs/{id}", s.limited(s.handleGetJob))
	mux.Handle("GET /api/predictions/history/{user_id}", s.limited(s.handleHistory))
	mux.Handle("POST /api/transactions", s.limited(s.handleAddTransaction))
	mux.Handle("GET /api/transactions/{user_id}", s.limited(s.handleListTransactions))

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// limited applies the per-client rate limit to an API route
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return s.rateLimiter.Middleware(s.clientIP.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.clientIP.ClientIP(r),
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, please try again later"})
	})(h)
}

// Shutdown gracefully shuts down the server and its background routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
