package http

import (
	"net/http"

	"spendcast/internal/core"
	"spendcast/internal/log"
	"spendcast/internal/services"
)

type jobAccepted struct {
	ID     string              `json:"id"`
	Status core.ForecastStatus `json:"status"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req services.PredictRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpPredict, err)
		return
	}

	resp, err := s.api.Predict(r.Context(), req)
	if err != nil {
		s.writeError(w, r, log.OpPredict, err)
		return
	}
	s.events.LogForecast(r.Context(), log.OpPredict, resp.UserID, resp.Category, resp.ModelType,
		len(resp.Predictions), resp.TotalPredicted, string(resp.Trend))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days_ahead")
	if err != nil {
		s.writeError(w, r, log.OpCategory, err)
		return
	}

	resp, err := s.api.Category(r.Context(), r.PathValue("user_id"), r.PathValue("category"), days, r.URL.Query().Get("model_type"))
	if err != nil {
		s.writeError(w, r, log.OpCategory, err)
		return
	}
	s.events.LogForecast(r.Context(), log.OpCategory, resp.UserID, resp.Category, resp.ModelType,
		len(resp.Predictions), resp.TotalPredicted, string(resp.Trend))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days_ahead")
	if err != nil {
		s.writeError(w, r, log.OpInsights, err)
		return
	}

	resp, err := s.api.Insights(r.Context(), r.PathValue("user_id"), days)
	if err != nil {
		s.writeError(w, r, log.OpInsights, err)
		return
	}
	s.events.LogForecast(r.Context(), log.OpInsights, resp.UserID, "", "linear",
		resp.DaysAhead, resp.TotalPredictedSpending, string(resp.OverallTrend))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days_ahead")
	if err != nil {
		s.writeError(w, r, log.OpCompare, err)
		return
	}

	resp, err := s.api.Compare(r.Context(), r.PathValue("user_id"), days)
	if err != nil {
		s.writeError(w, r, log.OpCompare, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req services.PredictRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpEnqueue, err)
		return
	}

	rec, err := s.api.EnqueueForecast(r.Context(), req)
	if err != nil {
		s.writeError(w, r, log.OpEnqueue, err)
		return
	}
	w.Header().Set("Location", "/api/predictions/jobs/"+rec.ID)
	writeJSON(w, http.StatusAccepted, jobAccepted{ID: rec.ID, Status: rec.Status})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	rec, err := s.api.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}

	recs, err := s.api.History(r.Context(), r.PathValue("user_id"), limit)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
