package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"spendcast/internal/forecast"
	"spendcast/internal/log"
	"spendcast/internal/services"
	"spendcast/internal/source"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNoTransactions),
		errors.Is(err, services.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, forecast.ErrInsufficientData),
		errors.Is(err, forecast.ErrUnknownModel),
		errors.Is(err, forecast.ErrInvalidHorizon):
		return http.StatusBadRequest
	case errors.Is(err, forecast.ErrCapabilityUnavailable),
		errors.Is(err, services.ErrJobsUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, source.ErrReadOnly):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err as JSON. Details of internal errors are logged,
// not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithRequestID(traceID(r)))
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", services.ErrInvalidRequest, err)
	}
	return nil
}

// queryInt parses an optional integer query parameter. Absent means zero.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", services.ErrInvalidRequest, name)
	}
	return n, nil
}
