package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendcast/internal/core"
	"spendcast/internal/forecast"
	"spendcast/internal/log"
	"spendcast/internal/services"
	"spendcast/internal/source"
	"spendcast/internal/source/memory"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func expense(user, category string, day int, amount float64) core.Transaction {
	return core.Transaction{
		UserID:      user,
		Description: category,
		Amount:      decimal.NewFromFloat(amount),
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Category:    category,
		Type:        core.Expense,
	}
}

func seedStore() *memory.Store {
	var txs []core.Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, expense("u1", "food", i, 10+2*float64(i)))
	}
	txs = append(txs, expense("u1", "rent", 0, 800))
	return memory.New(txs)
}

func newTestService(writer source.TransactionWriter) *services.PredictionService {
	store := seedStore()
	if writer == nil {
		writer = store
	}
	return services.NewPredictionService(services.Config{
		Source:   store,
		Writer:   writer,
		Registry: forecast.NewRegistry(nil, forecast.WithClock(func() time.Time { return testNow })),
		Now:      func() time.Time { return testNow },
	})
}

func newTestServer(api PredictionAPI, ready func(context.Context) error) *Server {
	return NewServer(":0", Options{
		Service: api,
		Ready:   ready,
		Logger:  log.New(log.Config{Output: io.Discard}),
	})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(newTestService(nil), nil)
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	info := decode[serviceInfo](t, rr)
	if info.Service != "spendcast" || !info.Models["linear"] || info.Models["lstm"] {
		t.Fatalf("unexpected service info: %+v", info)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := do(t, srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestReadyFailure(t *testing.T) {
	srv := newTestServer(newTestService(nil), func(context.Context) error { return errors.New("db down") })
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "db down") {
		t.Fatalf("body %q missing failure", rr.Body.String())
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(newTestService(nil), nil)
	defer srv.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("X-Request-ID = %q", got)
	}
}

func TestPredictEndpoint(t *testing.T) {
	srv := newTestServer(newTestService(nil), nil)
	defer srv.Shutdown(context.Background())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "linear", body: `{"user_id":"u1","days_ahead":7}`, wantStatus: http.StatusOK},
		{name: "category", body: `{"user_id":"u1","category":"food","days_ahead":3,"model_type":"linear"}`, wantStatus: http.StatusOK},
		{name: "unknown user", body: `{"user_id":"ghost"}`, wantStatus: http.StatusNotFound, wantError: "no transaction data"},
		{name: "missing user", body: `{"days_ahead":7}`, wantStatus: http.StatusBadRequest},
		{name: "horizon too long", body: `{"user_id":"u1","days_ahead":400}`, wantStatus: http.StatusBadRequest},
		{name: "unknown model", body: `{"user_id":"u1","model_type":"prophet"}`, wantStatus: http.StatusBadRequest},
		{name: "lstm unavailable", body: `{"user_id":"u1","model_type":"lstm"}`, wantStatus: http.StatusServiceUnavailable},
		{name: "insufficient data", body: `{"user_id":"u1","category":"rent"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"user_id":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"user_id":"u1","horizon":3}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/predictions/predict", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if rr.Code != http.StatusOK {
				body := decode[errorBody](t, rr)
				if body.Error == "" || (tt.wantError != "" && !strings.Contains(body.Error, tt.wantError)) {
					t.Fatalf("error body = %+v", body)
				}
			}
		})
	}

	rr := do(t, srv, http.MethodPost, "/api/predictions/predict", `{"user_id":"u1","category":"food","days_ahead":7}`)
	resp := decode[services.PredictionResponse](t, rr)
	if len(resp.Predictions) != 7 || resp.ModelType != "linear" || resp.UserID != "u1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Trend != forecast.TrendIncreasing {
		t.Fatalf("trend = %s, want increasing", resp.Trend)
	}
}

func TestPredictWrongMethod(t *testing.T) {
	srv := newTestServer(newTestService(nil), nil)
	defer srv.Shutdown(context.Background())

	if rr := do(t, srv, http.MethodGet, "/api/predictions/predict", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCategoryInsightsCompare(t *testing.T) {
	srv := newTestServer(newTestService(nil), nil)
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodGet, "/api/predictions/category/u1/food?days_ahead=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("category status=%d body=%s", rr.Code, rr.Body.String())
	}
	if resp := decode[services.PredictionResponse](t, rr); resp.Category != "food" || len(resp.Predictions) != 5 {
		t.Fatalf("unexpected category response: %+v", resp)
	}

	if rr := do(t, srv, http.MethodGet, "/api/predictions/category/u1/food?days_ahead=abc", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad days_ahead status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/predictions/insights/u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("insights status=%d body=%s", rr.Code, rr.Body.String())
	}
	insights := decode[services.InsightsResponse](t, rr)
	if len(insights.Categories) != 1 || insights.Categories[0].Category != "food" {
		t.Fatalf("insights categories = %+v", insights.Categories)
	}
	if insights.DaysAhead != services.DefaultDaysAhead {
		t.Fatalf("insights days_ahead = %d", insights.DaysAhead)
	}

	rr = do(t, srv, http.MethodGet, "/api/predictions/compare/u1?days_ahead=10", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("compare status=%d body=%s", rr.Code, rr.Body.String())
	}
	cmp := decode[services.CompareResponse](t, rr)
	if cmp.LinearRegression == nil || cmp.LSTM != nil || cmp.LSTMNote == "" {
		t.Fatalf("unexpected compare response: %+v", cmp)
	}
}

func TestJobsUnavailable(t *testing.T) {
	srv := newTestServer(newTestService(nil), nil)
	defer srv.Shutdown(context.Background())

	if rr := do(t, srv, http.MethodPost, "/api/predictions/jobs", `{"user_id":"u1"}`); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("enqueue status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/predictions/history/u1", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("history status=%d", rr.Code)
	}
}

// jobsAPI overrides the job calls of a real service
type jobsAPI struct {
	*services.PredictionService
	records map[string]core.ForecastRecord
}

func (j *jobsAPI) EnqueueForecast(_ context.Context, req services.PredictRequest) (core.ForecastRecord, error) {
	if req.UserID == "" {
		return core.ForecastRecord{}, fmt.Errorf("%w: user_id is required", services.ErrInvalidRequest)
	}
	rec := core.ForecastRecord{ID: "7f1f2a52-3c47-4d1b-9d0e-4f3c2b1a0e9d", UserID: req.UserID, Status: core.ForecastPending}
	j.records[rec.ID] = rec
	return rec, nil
}

func (j *jobsAPI) GetJob(_ context.Context, id string) (core.ForecastRecord, error) {
	rec, ok := j.records[id]
	if !ok {
		return core.ForecastRecord{}, services.ErrJobNotFound
	}
	return rec, nil
}

func (j *jobsAPI) History(_ context.Context, userID string, _ int) ([]core.ForecastRecord, error) {
	out := []core.ForecastRecord{}
	for _, rec := range j.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestJobsEndpoints(t *testing.T) {
	api := &jobsAPI{PredictionService: newTestService(nil), records: map[string]core.ForecastRecord{}}
	srv := newTestServer(api, nil)
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodPost, "/api/predictions/jobs", `{"user_id":"u1","days_ahead":14}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("enqueue status=%d body=%s", rr.Code, rr.Body.String())
	}
	accepted := decode[jobAccepted](t, rr)
	if accepted.Status != core.ForecastPending || accepted.ID == "" {
		t.Fatalf("accepted = %+v", accepted)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/predictions/jobs/"+accepted.ID {
		t.Fatalf("Location = %q", loc)
	}

	rr = do(t, srv, http.MethodGet, "/api/predictions/jobs/"+accepted.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get job status=%d", rr.Code)
	}
	if rec := decode[core.ForecastRecord](t, rr); rec.UserID != "u1" {
		t.Fatalf("record = %+v", rec)
	}

	if rr := do(t, srv, http.MethodGet, "/api/predictions/jobs/missing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing job status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/predictions/history/u1?limit=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("history status=%d", rr.Code)
	}
	if recs := decode[[]core.ForecastRecord](t, rr); len(recs) != 1 {
		t.Fatalf("history = %+v", recs)
	}
}

func TestTransactionsEndpoints(t *testing.T) {
	srv := newTestServer(newTestService(nil), nil)
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"user_id":"u2","description":"coffee","amount":"3.50","date":"2024-02-01","category":"food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ref := decode[map[string]string](t, rr)["ref"]; ref == "" {
		t.Fatal("empty ref")
	}

	tests := []struct {
		name string
		body string
	}{
		{name: "bad date", body: `{"user_id":"u2","description":"x","amount":1,"date":"yesterday","category":"food"}`},
		{name: "zero amount", body: `{"user_id":"u2","description":"x","amount":0,"date":"2024-02-01","category":"food"}`},
		{name: "bad type", body: `{"user_id":"u2","description":"x","amount":1,"date":"2024-02-01","category":"food","type":"loan"}`},
		{name: "bad amount", body: `{"user_id":"u2","description":"x","amount":"lots","date":"2024-02-01","category":"food"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body); rr.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
		})
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/u2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	list := decode[[]transactionView](t, rr)
	if len(list) != 1 || list[0].Amount.String() != "3.5" || list[0].Date != "2024-02-01" || list[0].Type != "expense" {
		t.Fatalf("list = %+v", list)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions/u1?category=rent", "")
	if list := decode[[]transactionView](t, rr); len(list) != 1 || list[0].Category != "rent" {
		t.Fatalf("filtered list = %+v", list)
	}
}

type readOnlyWriter struct{}

func (readOnlyWriter) AppendTransaction(context.Context, core.Transaction) (string, error) {
	return "", source.ErrReadOnly
}

func TestTransactionsReadOnly(t *testing.T) {
	srv := newTestServer(newTestService(readOnlyWriter{}), nil)
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"user_id":"u2","description":"coffee","amount":3.5,"date":"2024-02-01","category":"food"}`)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	srv := NewServer(":0", Options{
		Service:           newTestService(nil),
		Logger:            log.New(log.Config{Output: io.Discard}),
		RequestsPerMinute: 2,
	})
	defer srv.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/transactions/u1", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodGet, "/api/transactions/u1", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if body := decode[errorBody](t, rr); !strings.Contains(body.Error, "rate limit") {
		t.Fatalf("error = %q", body.Error)
	}

	// health checks are not limited
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrNoTransactions, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", services.ErrJobNotFound), http.StatusNotFound},
		{services.ErrInvalidRequest, http.StatusBadRequest},
		{fmt.Errorf("linear prediction: %w", forecast.ErrInsufficientData), http.StatusBadRequest},
		{forecast.ErrUnknownModel, http.StatusBadRequest},
		{forecast.ErrCapabilityUnavailable, http.StatusServiceUnavailable},
		{services.ErrJobsUnavailable, http.StatusServiceUnavailable},
		{source.ErrReadOnly, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
