package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/handler"
	"github.com/tyne-finance/ledger-go/internal/infra/memory"
	"github.com/tyne-finance/ledger-go/internal/infra/observability"
	"github.com/tyne-finance/ledger-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store.SeedUser(&domain.User{
		ID:           "user-1",
		Username:     "ama",
		Email:        "ama@example.com",
		CurrencyCode: "GHS",
		Active:       true,
		PasswordHash: string(hash),
	})

	resolver := service.NewStoreResolver(store)
	svcs := &handler.Services{
		Ledger:    service.NewLedgerService(store, resolver, metrics, logger),
		Accounts:  service.NewAccountService(store, logger),
		Items:     service.NewItemService(store, logger),
		Summary:   service.NewSummaryService(store, logger),
		Auth:      service.NewAuthService(store, logger, "test-secret", 15*time.Minute, 24*time.Hour),
		Reference: store,
	}

	srv := httptest.NewServer(handler.NewRouter(svcs, metrics, logger))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/auth/login", "", map[string]string{
		"username": "ama",
		"password": "s3cret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	if body.Token == "" {
		t.Fatal("login returned no token")
	}
	return body.Token
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReferenceData_Public(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/v1/currencies", "/v1/account-types"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transactions", "", map[string]any{
		"account_id":       "a",
		"transaction_type": "DB",
		"amount":           100,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv)

	// New accounts start inactive.
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", token, map[string]string{
		"account_type":     "SAV",
		"account_number":   "0001",
		"account_provider": "testbank",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account: expected 201, got %d", resp.StatusCode)
	}
	var account domain.Account
	decodeBody(t, resp, &account)
	if account.Active {
		t.Error("expected new account to start inactive")
	}

	// Posting against an inactive account yields the field-error body.
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/transactions", token, map[string]any{
		"account_id":       account.ID,
		"transaction_type": "DB",
		"amount":           400,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var fieldErrs struct {
		Success bool                `json:"success"`
		Errors  map[string][]string `json:"errors"`
	}
	decodeBody(t, resp, &fieldErrs)
	if fieldErrs.Success {
		t.Error("expected success=false")
	}
	if msgs := fieldErrs.Errors["account"]; len(msgs) != 1 || msgs[0] != "account not active" {
		t.Errorf("unexpected field errors: %+v", fieldErrs.Errors)
	}

	// Activate the account.
	resp = doJSON(t, http.MethodPatch, srv.URL+"/v1/accounts/"+account.ID, token, map[string]any{
		"active": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch account: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Debit commits and moves the balance.
	resp = doJSON(t, http.MethodPost, srv.URL+"/v1/transactions", token, map[string]any{
		"account_id":       account.ID,
		"transaction_type": "DB",
		"amount":           400,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d", resp.StatusCode)
	}
	var tx domain.Transaction
	decodeBody(t, resp, &tx)
	if tx.ID == "" {
		t.Fatal("transaction missing id")
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/"+account.ID, token, nil)
	var updated domain.Account
	decodeBody(t, resp, &updated)
	if updated.Balance != -400 {
		t.Errorf("expected balance -400, got %d", updated.Balance)
	}

	// Updates are refused outright.
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		resp = doJSON(t, method, srv.URL+"/v1/transactions/"+tx.ID, token, map[string]any{
			"amount": 999,
		})
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", method, resp.StatusCode)
		}
		var body struct {
			Error string `json:"error"`
		}
		decodeBody(t, resp, &body)
		if body.Error != "cannot update transaction" {
			t.Errorf("%s: unexpected error %q", method, body.Error)
		}
	}

	// Deleting reverses the balance.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/v1/transactions/"+tx.ID, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete transaction: expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/v1/accounts/"+account.ID, token, nil)
	decodeBody(t, resp, &updated)
	if updated.Balance != 0 {
		t.Errorf("expected balance 0 after reversal, got %d", updated.Balance)
	}
}

func TestCreateTransaction_RequestValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv)

	// Zero amount never reaches the service layer.
	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/transactions", token, map[string]any{
		"account_id":       "a",
		"transaction_type": "DB",
		"amount":           0,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var fieldErrs struct {
		Success bool                `json:"success"`
		Errors  map[string][]string `json:"errors"`
	}
	decodeBody(t, resp, &fieldErrs)
	if _, ok := fieldErrs.Errors["amount"]; !ok {
		t.Errorf("expected amount error, got %+v", fieldErrs.Errors)
	}
}

func TestAccountSummary(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/v1/accounts", token, map[string]string{
		"account_type":     "CUR",
		"account_number":   "0002",
		"account_provider": "testbank",
	})
	var account domain.Account
	decodeBody(t, resp, &account)

	resp = doJSON(t, http.MethodPatch, srv.URL+"/v1/accounts/"+account.ID, token, map[string]any{"active": true})
	resp.Body.Close()

	for i, tt := range []struct {
		txType string
		amount int64
	}{
		{"CD", 1000},
		{"DB", 300},
		{"DB", 200},
	} {
		resp = doJSON(t, http.MethodPost, srv.URL+"/v1/transactions", token, map[string]any{
			"account_id":       account.ID,
			"transaction_type": tt.txType,
			"amount":           tt.amount,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("transaction %d: expected 201, got %d", i, resp.StatusCode)
		}
	}

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/accounts/%s/summary", srv.URL, account.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", resp.StatusCode)
	}
	var summary struct {
		Account      domain.Account `json:"account"`
		TotalDebits  int64          `json:"total_debits"`
		TotalCredits int64          `json:"total_credits"`
		Count        int            `json:"transaction_count"`
	}
	decodeBody(t, resp, &summary)
	if summary.Account.Balance != 500 {
		t.Errorf("balance: got %d, want 500", summary.Account.Balance)
	}
	if summary.TotalDebits != 500 || summary.TotalCredits != 1000 {
		t.Errorf("totals: debits %d credits %d", summary.TotalDebits, summary.TotalCredits)
	}
	if summary.Count != 3 {
		t.Errorf("count: got %d, want 3", summary.Count)
	}
}
