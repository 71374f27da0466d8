package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tyne-finance/ledger-go/internal/domain"
	"github.com/tyne-finance/ledger-go/internal/infra/memory"
	"github.com/tyne-finance/ledger-go/internal/service"
)

// The validator runs its checks in a fixed order; when several
// pre-conditions fail at once only the first is reported.
func TestValidator_CheckOrder(t *testing.T) {
	store := memory.NewStore()
	v := service.NewTransactionValidator(service.NewStoreResolver(store))

	kind := domain.ItemExpense
	id := "missing"

	tests := []struct {
		name        string
		account     *domain.Account
		draft       *domain.TransactionDraft
		wantField   string
		wantMessage string
	}{
		{
			name:    "inactive account wins over credit item check",
			account: &domain.Account{ID: "a", Active: false},
			draft: &domain.TransactionDraft{
				Type: domain.Credit, Amount: 10, ItemKind: &kind, ItemID: &id,
			},
			wantField:   "account",
			wantMessage: "account not active",
		},
		{
			name:    "credit item check wins over existence check",
			account: &domain.Account{ID: "a", Active: true},
			draft: &domain.TransactionDraft{
				Type: domain.Credit, Amount: 10, ItemKind: &kind, ItemID: &id,
			},
			wantField:   "transaction_type",
			wantMessage: "credit transactions cannot reference an item",
		},
		{
			name:    "kind without id",
			account: &domain.Account{ID: "a", Active: true},
			draft: &domain.TransactionDraft{
				Type: domain.Debit, Amount: 10, ItemKind: &kind,
			},
			wantField:   "item_id",
			wantMessage: "item id required",
		},
		{
			name:    "id without kind",
			account: &domain.Account{ID: "a", Active: true},
			draft: &domain.TransactionDraft{
				Type: domain.Debit, Amount: 10, ItemID: &id,
			},
			wantField:   "item_kind",
			wantMessage: "item kind required",
		},
		{
			name:    "unknown item",
			account: &domain.Account{ID: "a", Active: true},
			draft: &domain.TransactionDraft{
				Type: domain.Debit, Amount: 10, ItemKind: &kind, ItemID: &id,
			},
			wantField:   "item_id",
			wantMessage: "item with id missing does not exist",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tc.account, tc.draft)

			var verr *domain.ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("field: got %q, want %q", verr.Field, tc.wantField)
			}
			if verr.Message != tc.wantMessage {
				t.Errorf("message: got %q, want %q", verr.Message, tc.wantMessage)
			}
		})
	}
}

func TestValidator_PassesCleanDraft(t *testing.T) {
	store := memory.NewStore()
	v := service.NewTransactionValidator(service.NewStoreResolver(store))

	err := v.Validate(context.Background(),
		&domain.Account{ID: "a", Active: true},
		&domain.TransactionDraft{Type: domain.Debit, Amount: 10},
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

type failingResolver struct {
	err error
}

func (r *failingResolver) Resolve(context.Context, domain.ItemKind, string) (*domain.Item, error) {
	return nil, r.err
}

// Infrastructure failures during resolution must propagate as-is, not be
// reshaped into a field error.
func TestValidator_ResolverFailurePropagates(t *testing.T) {
	boom := &domain.ErrExternalService{Service: "items", Err: errors.New("connection refused")}
	v := service.NewTransactionValidator(&failingResolver{err: boom})

	kind := domain.ItemExpense
	id := "x"
	err := v.Validate(context.Background(),
		&domain.Account{ID: "a", Active: true},
		&domain.TransactionDraft{Type: domain.Debit, Amount: 10, ItemKind: &kind, ItemID: &id},
	)

	var external *domain.ErrExternalService
	if !errors.As(err, &external) {
		t.Fatalf("expected external service error, got %v", err)
	}
}
