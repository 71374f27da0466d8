package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/infra/memory"

	"github.com/google/uuid"
)

func seedAccount(t *testing.T, store *memory.Store, active bool) *domain.Account {
	t.Helper()
	now := time.Now().UTC()
	account, err := store.CreateAccount(context.Background(), &domain.Account{
		ID:              uuid.New().String(),
		UserID:          "user-1",
		AccountType:     "SAV",
		AccountNumber:   "0001",
		AccountProvider: "testbank",
		Active:          active,
		DateAdded:       now,
		DateModified:    now,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func TestAppendTransaction_AtomicWithBalance(t *testing.T) {
	store := memory.NewStore()
	account := seedAccount(t, store, true)

	tx := &domain.Transaction{
		ID:        uuid.New().String(),
		Type:      domain.Debit,
		AccountID: account.ID,
		Amount:    400,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := store.AppendTransaction(context.Background(), tx); err != nil {
		t.Fatalf("append: %v", err)
	}

	updated, _ := store.GetAccount(context.Background(), account.ID)
	if updated.Balance != -400 {
		t.Errorf("expected balance -400, got %d", updated.Balance)
	}
	if updated.LastBalanceUpdate == nil || !updated.LastBalanceUpdate.Equal(tx.CreatedAt) {
		t.Errorf("expected last_balance_update %v, got %v", tx.CreatedAt, updated.LastBalanceUpdate)
	}
}

func TestAppendTransaction_InactiveAccountRejected(t *testing.T) {
	store := memory.NewStore()
	account := seedAccount(t, store, false)

	_, err := store.AppendTransaction(context.Background(), &domain.Transaction{
		ID:        uuid.New().String(),
		Type:      domain.Credit,
		AccountID: account.ID,
		Amount:    100,
		CreatedAt: time.Now().UTC(),
	})

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	updated, _ := store.GetAccount(context.Background(), account.ID)
	if updated.Balance != 0 {
		t.Errorf("balance changed on rejected append: %d", updated.Balance)
	}
	rows, _ := store.ListTransactions(context.Background(), account.ID, 1, 0)
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestRemoveTransaction_ReversesDelta(t *testing.T) {
	store := memory.NewStore()
	account := seedAccount(t, store, true)

	tx := &domain.Transaction{
		ID:        uuid.New().String(),
		Type:      domain.Credit,
		AccountID: account.ID,
		Amount:    900,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := store.AppendTransaction(context.Background(), tx); err != nil {
		t.Fatalf("append: %v", err)
	}

	removed, err := store.RemoveTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.ID != tx.ID {
		t.Errorf("expected removed id %s, got %s", tx.ID, removed.ID)
	}

	updated, _ := store.GetAccount(context.Background(), account.ID)
	if updated.Balance != 0 {
		t.Errorf("expected balance 0 after reversal, got %d", updated.Balance)
	}
}

// Concurrent appends on one account must serialize: every delta lands
// exactly once regardless of interleaving.
func TestAppendTransaction_ConcurrentAppendsSerialize(t *testing.T) {
	store := memory.NewStore()
	account := seedAccount(t, store, true)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AppendTransaction(context.Background(), &domain.Transaction{
				ID:        uuid.New().String(),
				Type:      domain.Credit,
				AccountID: account.ID,
				Amount:    7,
				CreatedAt: time.Now().UTC(),
			})
			if err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	updated, _ := store.GetAccount(context.Background(), account.ID)
	if updated.Balance != n*7 {
		t.Errorf("expected balance %d, got %d", n*7, updated.Balance)
	}
	rows, _ := store.ListTransactions(context.Background(), account.ID, 1, 0)
	if len(rows) != n {
		t.Errorf("expected %d rows, got %d", n, len(rows))
	}
}

func TestPatchAccount_AppliesOnlySetFields(t *testing.T) {
	store := memory.NewStore()
	account := seedAccount(t, store, false)

	active := true
	patched, err := store.PatchAccount(context.Background(), account.ID, &domain.AccountPatch{Active: &active})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !patched.Active {
		t.Error("expected account to be active")
	}
	if patched.AccountNumber != account.AccountNumber {
		t.Errorf("account number changed unexpectedly: %q", patched.AccountNumber)
	}
}

func TestReferenceData_Seeded(t *testing.T) {
	store := memory.NewStore()

	currencies, err := store.ListCurrencies(context.Background())
	if err != nil {
		t.Fatalf("list currencies: %v", err)
	}
	if len(currencies) == 0 {
		t.Error("expected seeded currencies")
	}

	types, err := store.ListAccountTypes(context.Background())
	if err != nil {
		t.Fatalf("list account types: %v", err)
	}
	if len(types) == 0 {
		t.Error("expected seeded account types")
	}
}
