package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	applog "github.com/Alexis-Gontier/my-weekly-allowance/internal/log"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/services"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/wallet/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.New()
	walletSvc := services.NewWalletService(store, nil)
	childSvc := services.NewChildService(store)
	allowanceSvc := services.NewAllowanceService(store, walletSvc)

	logger := applog.New(applog.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})

	s := NewServer(":0", logger, childSvc, walletSvc, allowanceSvc)
	t.Cleanup(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func createChild(t *testing.T, s *Server, userID int64, name string) childResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/children", map[string]any{"user_id": userID, "name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create child: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var child childResponse
	decodeInto(t, rec, &child)
	return child
}

func TestHandleCreateChild(t *testing.T) {
	s := newTestServer(t)

	child := createChild(t, s, 1, "Tom")
	if child.ID == 0 || child.Name != "Tom" || child.Balance != "0.00" {
		t.Errorf("created child = %+v", child)
	}

	t.Run("empty name", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/children", map[string]any{"user_id": 1, "name": ""})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
		var body errorBody
		decodeInto(t, rec, &body)
		if body.Error != "Child name cannot be empty" {
			t.Errorf("error = %q", body.Error)
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPost, "/api/children", map[string]any{"name": "Anna"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/children", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleGetChild(t *testing.T) {
	s := newTestServer(t)
	child := createChild(t, s, 1, "Tom")

	rec := doJSON(t, s, http.MethodGet, "/api/children/"+itoa(child.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got childResponse
	decodeInto(t, rec, &got)
	if got != child {
		t.Errorf("got %+v, want %+v", got, child)
	}

	t.Run("unknown child", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, "/api/children/999", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
		var body errorBody
		decodeInto(t, rec, &body)
		if body.Error != "Child with ID 999 not found" {
			t.Errorf("error = %q", body.Error)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, "/api/children/abc", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleListChildren(t *testing.T) {
	s := newTestServer(t)
	createChild(t, s, 1, "Tom")
	createChild(t, s, 1, "Anna")
	createChild(t, s, 2, "Ben")

	rec := doJSON(t, s, http.MethodGet, "/api/children?user_id=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var kids []childResponse
	decodeInto(t, rec, &kids)
	if len(kids) != 2 || kids[0].Name != "Tom" || kids[1].Name != "Anna" {
		t.Errorf("kids = %+v", kids)
	}

	t.Run("missing user id", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, "/api/children", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandleDepositAndExpense(t *testing.T) {
	s := newTestServer(t)
	child := createChild(t, s, 1, "Tom")
	path := "/api/children/" + itoa(child.ID)

	rec := doJSON(t, s, http.MethodPost, path+"/deposits", mutationRequest{Amount: "100.00", Description: "birthday money"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var dep transactionResponse
	decodeInto(t, rec, &dep)
	if dep.Type != "deposit" || dep.Amount != "100.00" {
		t.Errorf("deposit = %+v", dep)
	}

	rec = doJSON(t, s, http.MethodPost, path+"/expenses", mutationRequest{Amount: "35.00", Description: "Cinema ticket"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expense status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, path, nil)
	var got childResponse
	decodeInto(t, rec, &got)
	if got.Balance != "65.00" {
		t.Errorf("balance = %s, want 65.00", got.Balance)
	}

	rec = doJSON(t, s, http.MethodGet, path+"/transactions", nil)
	var txs []transactionResponse
	decodeInto(t, rec, &txs)
	if len(txs) != 2 || txs[0].Type != "expense" || txs[1].Type != "deposit" {
		t.Errorf("transactions = %+v", txs)
	}
}

func TestHandleDepositValidation(t *testing.T) {
	s := newTestServer(t)
	child := createChild(t, s, 1, "Tom")
	path := "/api/children/" + itoa(child.ID) + "/deposits"

	tests := []struct {
		name       string
		amount     string
		wantStatus int
		wantErr    string
	}{
		{"zero", "0", http.StatusUnprocessableEntity, "Amount must be greater than zero"},
		{"negative", "-10.00", http.StatusUnprocessableEntity, "Amount cannot be negative"},
		{"malformed", "abc", http.StatusBadRequest, "invalid amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, path, mutationRequest{Amount: tt.amount, Description: "test"})
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorBody
			decodeInto(t, rec, &body)
			if body.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", body.Error, tt.wantErr)
			}
		})
	}
}

func TestHandleExpenseInsufficientBalance(t *testing.T) {
	s := newTestServer(t)
	child := createChild(t, s, 1, "Tom")
	path := "/api/children/" + itoa(child.ID)

	doJSON(t, s, http.MethodPost, path+"/deposits", mutationRequest{Amount: "10.00", Description: "start"})

	rec := doJSON(t, s, http.MethodPost, path+"/expenses", mutationRequest{Amount: "10.01", Description: "too much"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body errorBody
	decodeInto(t, rec, &body)
	if !strings.HasPrefix(body.Error, "Insufficient balance") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestHandleAllowance(t *testing.T) {
	s := newTestServer(t)
	child := createChild(t, s, 1, "Tom")
	path := "/api/children/" + itoa(child.ID) + "/allowance"

	t.Run("not configured", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	rec := doJSON(t, s, http.MethodPut, path, setAllowanceRequest{Amount: "20.00", DayOfWeek: 6})
	if rec.Code != http.StatusOK {
		t.Fatalf("set allowance status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var a allowanceResponse
	decodeInto(t, rec, &a)
	if a.Amount != "20.00" || a.DayOfWeek != 6 || !a.Active {
		t.Errorf("allowance = %+v", a)
	}

	rec = doJSON(t, s, http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get allowance status = %d", rec.Code)
	}

	t.Run("invalid day", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPut, path, setAllowanceRequest{Amount: "20.00", DayOfWeek: 8})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		var body errorBody
		decodeInto(t, rec, &body)
		if body.Error != "Invalid day of week: 8" {
			t.Errorf("error = %q", body.Error)
		}
	})

	t.Run("unknown child", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPut, "/api/children/999/allowance", setAllowanceRequest{Amount: "20.00", DayOfWeek: 3})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandleProcessAllowances(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/allowances/process", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Paid []transactionResponse `json:"paid"`
	}
	decodeInto(t, rec, &body)
	if body.Paid == nil || len(body.Paid) != 0 {
		t.Errorf("paid = %v, want empty list", body.Paid)
	}
}

func TestHandleOverview(t *testing.T) {
	s := newTestServer(t)
	child := createChild(t, s, 1, "Tom")
	path := "/api/children/" + itoa(child.ID)

	doJSON(t, s, http.MethodPost, path+"/deposits", mutationRequest{Amount: "50.00", Description: "start"})
	doJSON(t, s, http.MethodPost, path+"/expenses", mutationRequest{Amount: "12.50", Description: "sweets"})

	rec := doJSON(t, s, http.MethodGet, path+"/overview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var ov overviewResponse
	decodeInto(t, rec, &ov)
	if ov.Balance != "37.50" || ov.ByType["deposit"] != "50.00" || ov.ByType["expense"] != "12.50" {
		t.Errorf("overview = %+v", ov)
	}

	// A later mutation invalidates the cached overview.
	doJSON(t, s, http.MethodPost, path+"/deposits", mutationRequest{Amount: "2.50", Description: "coins"})
	rec = doJSON(t, s, http.MethodGet, path+"/overview", nil)
	decodeInto(t, rec, &ov)
	if ov.Balance != "40.00" {
		t.Errorf("overview balance after mutation = %s, want 40.00", ov.Balance)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
