package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/handler"
	"github.com/tyne-finance/ledger-go/internal/infra/cache"
	"github.com/tyne-finance/ledger-go/internal/infra/client"
	"github.com/tyne-finance/ledger-go/internal/infra/memory"
	"github.com/tyne-finance/ledger-go/internal/infra/observability"
	"github.com/tyne-finance/ledger-go/internal/infra/resilience"
	"github.com/tyne-finance/ledger-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newLedgerRouter(t *testing.T, itemsURL string) (http.Handler, *memory.Store) {
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

	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	itemCache := cache.New[*domain.Item](5 * time.Minute)
	t.Cleanup(itemCache.Close)
	resolver := client.NewItemsClient(
		&http.Client{Timeout: 5 * time.Second},
		itemsURL,
		resilience.NewCircuitBreaker("items-test"),
		cfg,
		itemCache,
	)

	svcs := &handler.Services{
		Ledger:    service.NewLedgerService(store, resolver, metrics, logger),
		Accounts:  service.NewAccountService(store, logger),
		Items:     service.NewItemService(store, logger),
		Summary:   service.NewSummaryService(store, logger),
		Auth:      service.NewAuthService(store, logger, "test-secret", 15*time.Minute, 24*time.Hour),
		Reference: store,
	}

	return handler.NewRouter(svcs, metrics, logger), store
}

func request(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()

	rec := request(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "ama",
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func activeAccount(t *testing.T, router http.Handler, token string) *domain.Account {
	t.Helper()

	rec := request(t, router, http.MethodPost, "/v1/accounts", token, map[string]string{
		"account_type":     "SAV",
		"account_number":   "0001",
		"account_provider": "testbank",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var account domain.Account
	if err := json.NewDecoder(rec.Body).Decode(&account); err != nil {
		t.Fatalf("decode account: %v", err)
	}

	rec = request(t, router, http.MethodPatch, "/v1/accounts/"+account.ID, token, map[string]any{"active": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("activate account: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	return &account
}

// TestIntegration_FullFlow spins up a mock items API and drives the complete
// flow: login, account activation, a debit referencing a remote expense, and
// the resulting balance and summary.
func TestIntegration_FullFlow(t *testing.T) {
	itemsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/items/EX/exp-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		item := domain.Item{
			Kind: domain.ItemExpense,
			Expense: &domain.Expense{
				ID:           "exp-1",
				AccountID:    "acc-remote",
				Narration:    "groceries",
				Amount:       400,
				DateOccurred: "2026-08-01",
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(item)
	}))
	defer itemsServer.Close()

	router, _ := newLedgerRouter(t, itemsServer.URL)
	token := loginToken(t, router)
	account := activeAccount(t, router, token)

	rec := request(t, router, http.MethodPost, "/v1/transactions", token, map[string]any{
		"account_id":       account.ID,
		"transaction_type": "DB",
		"amount":           400,
		"item_kind":        "EX",
		"item_id":          "exp-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var tx struct {
		domain.Transaction
		ResolvedItem *domain.Item `json:"resolved_item"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if tx.Item == nil || tx.Item.ID != "exp-1" {
		t.Errorf("expected item ref exp-1, got %+v", tx.Item)
	}
	if tx.ResolvedItem == nil || tx.ResolvedItem.Expense == nil || tx.ResolvedItem.Expense.Narration != "groceries" {
		t.Errorf("expected resolved expense projection, got %+v", tx.ResolvedItem)
	}

	rec = request(t, router, http.MethodGet, "/v1/accounts/"+account.ID, token, nil)
	var updated domain.Account
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if updated.Balance != -400 {
		t.Errorf("expected balance -400, got %d", updated.Balance)
	}

	rec = request(t, router, http.MethodGet, fmt.Sprintf("/v1/accounts/%s/summary", account.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", rec.Code)
	}
	var summary struct {
		TotalDebits int64 `json:"total_debits"`
		Count       int   `json:"transaction_count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalDebits != 400 || summary.Count != 1 {
		t.Errorf("summary: debits %d count %d", summary.TotalDebits, summary.Count)
	}
}

// TestIntegration_ItemNotFound checks that a 404 from the items API surfaces
// as a field error on item_id and leaves the ledger untouched.
func TestIntegration_ItemNotFound(t *testing.T) {
	itemsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer itemsServer.Close()

	router, _ := newLedgerRouter(t, itemsServer.URL)
	token := loginToken(t, router)
	account := activeAccount(t, router, token)

	rec := request(t, router, http.MethodPost, "/v1/transactions", token, map[string]any{
		"account_id":       account.ID,
		"transaction_type": "DB",
		"amount":           400,
		"item_kind":        "EX",
		"item_id":          "ghost",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var fieldErrs struct {
		Success bool                `json:"success"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fieldErrs); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if msgs := fieldErrs.Errors["item_id"]; len(msgs) != 1 || msgs[0] != "item with id ghost does not exist" {
		t.Errorf("unexpected field errors: %+v", fieldErrs.Errors)
	}

	rec = request(t, router, http.MethodGet, "/v1/accounts/"+account.ID, token, nil)
	var updated domain.Account
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if updated.Balance != 0 {
		t.Errorf("balance changed on rejected transaction: %d", updated.Balance)
	}
}

// TestIntegration_ItemsAPIDown checks that a hard failure from the items API
// maps to 503 rather than a validation error.
func TestIntegration_ItemsAPIDown(t *testing.T) {
	itemsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer itemsServer.Close()

	router, _ := newLedgerRouter(t, itemsServer.URL)
	token := loginToken(t, router)
	account := activeAccount(t, router, token)

	rec := request(t, router, http.MethodPost, "/v1/transactions", token, map[string]any{
		"account_id":       account.ID,
		"transaction_type": "DB",
		"amount":           400,
		"item_kind":        "EX",
		"item_id":          "exp-1",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}
