package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
)

// decodeBody parses a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// childIDFromPath parses the {id} path segment.
func childIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// parseAmount turns the request's decimal string into Money. A malformed
// string is a 400-level concern; zero or negative values pass through so the
// services report the contract messages.
func parseAmount(raw string) (core.Money, error) {
	return core.ParseDecimal(strings.TrimSpace(raw))
}

type createChildRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

func (s *Server) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	var req createChildRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.UserID < 1 {
		badRequest(w, "user_id is required")
		return
	}

	child, err := s.children.CreateChild(r.Context(), req.UserID, strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toChildResponse(child))
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID < 1 {
		badRequest(w, "user_id query parameter is required")
		return
	}

	children, err := s.children.GetChildrenForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]childResponse, 0, len(children))
	for _, c := range children {
		out = append(out, toChildResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetChild(w http.ResponseWriter, r *http.Request) {
	id, ok := childIDFromPath(r)
	if !ok {
		badRequest(w, "invalid child id")
		return
	}

	child, found, err := s.children.GetChildByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, core.ChildNotFoundError{ChildID: id})
		return
	}

	writeJSON(w, http.StatusOK, toChildResponse(child))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := childIDFromPath(r)
	if !ok {
		badRequest(w, "invalid child id")
		return
	}

	if _, found, err := s.children.GetChildByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	} else if !found {
		writeError(w, core.ChildNotFoundError{ChildID: id})
		return
	}

	txs, err := s.wallet.GetTransactionsForChild(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := childIDFromPath(r)
	if !ok {
		badRequest(w, "invalid child id")
		return
	}

	if ov, found := s.overviewCache.Get(s.overviewCacheKey(id)); found {
		writeJSON(w, http.StatusOK, toOverviewResponse(ov))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	ov, found, err := s.wallet.Overview(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, core.ChildNotFoundError{ChildID: id})
		return
	}

	s.overviewCache.Set(s.overviewCacheKey(id), ov)
	writeJSON(w, http.StatusOK, toOverviewResponse(ov))
}

type mutationRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := childIDFromPath(r)
	if !ok {
		badRequest(w, "invalid child id")
		return
	}

	var req mutationRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount")
		return
	}

	tx, err := s.wallet.Deposit(r.Context(), id, amount, strings.TrimSpace(req.Description))
	if err != nil {
		writeError(w, err)
		return
	}

	s.invalidateOverview(id)
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := childIDFromPath(r)
	if !ok {
		badRequest(w, "invalid child id")
		return
	}

	var req mutationRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount")
		return
	}

	tx, err := s.wallet.RecordExpense(r.Context(), id, amount, strings.TrimSpace(req.Description))
	if err != nil {
		writeError(w, err)
		return
	}

	s.invalidateOverview(id)
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

type setAllowanceRequest struct {
	Amount    string `json:"amount"`
	DayOfWeek int    `json:"day_of_week"`
}

func (s *Server) handleSetAllowance(w http.ResponseWriter, r *http.Request) {
	id, ok := childIDFromPath(r)
	if !ok {
		badRequest(w, "invalid child id")
		return
	}

	var req setAllowanceRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount")
		return
	}

	a, err := s.allowances.SetAllowance(r.Context(), id, amount, req.DayOfWeek)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAllowanceResponse(a))
}

func (s *Server) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	id, ok := childIDFromPath(r)
	if !ok {
		badRequest(w, "invalid child id")
		return
	}

	if _, found, err := s.children.GetChildByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	} else if !found {
		writeError(w, core.ChildNotFoundError{ChildID: id})
		return
	}

	a, found, err := s.allowances.GetAllowance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no allowance configured"})
		return
	}

	writeJSON(w, http.StatusOK, toAllowanceResponse(a))
}

// handleProcessAllowances runs one processing tick on demand. The ticker
// worker is the usual driver; this endpoint exists for operations and tests.
func (s *Server) handleProcessAllowances(w http.ResponseWriter, r *http.Request) {
	paid, err := s.allowances.ProcessAllowances(r.Context(), time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	for _, tx := range paid {
		s.invalidateOverview(tx.ChildID)
	}

	writeJSON(w, http.StatusOK, struct {
		Paid []transactionResponse `json:"paid"`
	}{Paid: toTransactionResponses(paid)})
}
