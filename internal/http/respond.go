// Package http provides the JSON API server for the allowance wallet.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
)

// errorBody is the uniform error payload.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes. Validation failures
// are 422, unknown children 404, overdraft attempts 409. The error message is
// passed through verbatim so clients see the domain wording.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		notFound     core.ChildNotFoundError
		insufficient core.InsufficientBalanceError
		invalidDay   core.InvalidDayOfWeekError
	)
	switch {
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrAmountZero),
		errors.Is(err, core.ErrAmountNegative),
		errors.As(err, &invalidDay):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &insufficient):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// childResponse is the wire shape of a child account.
type childResponse struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

func toChildResponse(c core.Child) childResponse {
	return childResponse{
		ID:      c.ID,
		UserID:  c.UserID,
		Name:    c.Name,
		Balance: c.Balance.String(),
	}
}

// transactionResponse is the wire shape of a ledger entry.
type transactionResponse struct {
	ID          int64  `json:"id"`
	ChildID     int64  `json:"child_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		ChildID:     tx.ChildID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return out
}

// allowanceResponse is the wire shape of a weekly allowance configuration.
type allowanceResponse struct {
	ChildID    int64  `json:"child_id"`
	Amount     string `json:"amount"`
	DayOfWeek  int    `json:"day_of_week"`
	Active     bool   `json:"active"`
	LastPaidAt string `json:"last_paid_at,omitempty"`
}

func toAllowanceResponse(a core.WeeklyAllowance) allowanceResponse {
	resp := allowanceResponse{
		ChildID:   a.ChildID,
		Amount:    a.Amount.String(),
		DayOfWeek: a.DayOfWeek,
		Active:    a.Active,
	}
	if !a.LastPaidAt.IsZero() {
		resp.LastPaidAt = a.LastPaidAt.Format("2006-01-02")
	}
	return resp
}

// overviewResponse aggregates a wallet's ledger per transaction type.
type overviewResponse struct {
	ChildID int64             `json:"child_id"`
	Balance string            `json:"balance"`
	ByType  map[string]string `json:"by_type"`
}

func toOverviewResponse(ov core.WalletOverview) overviewResponse {
	resp := overviewResponse{
		ChildID: ov.ChildID,
		Balance: ov.Balance.String(),
		ByType:  make(map[string]string, len(ov.ByType)),
	}
	for _, ta := range ov.ByType {
		resp.ByType[string(ta.Type)] = ta.Amount.String()
	}
	return resp
}
