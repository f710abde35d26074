package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"spendcast/internal/core"
	"spendcast/internal/log"
	"spendcast/internal/services"
)

// transactionRequest is the body of POST /api/transactions. Amount accepts
// a JSON number or a decimal string; Date is YYYY-MM-DD or RFC 3339.
type transactionRequest struct {
	UserID      string          `json:"user_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Type        string          `json:"type,omitempty"`
}

func (req transactionRequest) toCore() (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: date %q: %w", services.ErrInvalidRequest, req.Date, err)
	}
	return core.Transaction{
		UserID:      req.UserID,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		Category:    req.Category,
		Type:        core.TransactionType(req.Type),
	}, nil
}

type transactionView struct {
	ID          int64       `json:"id,omitempty"`
	UserID      string      `json:"user_id"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Type        string      `json:"type"`
}

func viewOf(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		UserID:      t.UserID,
		Description: t.Description,
		Amount:      json.Number(t.Amount.String()),
		Date:        t.Date.Format(time.DateOnly),
		Category:    t.Category,
		Type:        string(t.Type),
	}
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}
	t, err := req.toCore()
	if err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}

	ref, err := s.api.AddTransaction(r.Context(), t)
	if err != nil {
		s.writeError(w, r, log.OpAppend, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"ref": ref})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.api.ListTransactions(r.Context(), r.PathValue("user_id"), r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}

	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, viewOf(t))
	}
	writeJSON(w, http.StatusOK, out)
}
