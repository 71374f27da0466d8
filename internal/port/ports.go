// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
)

// AccountStore holds account state. Balance and last_balance_update are
// written exclusively through the ledger store's atomic operations; the
// methods here never touch them.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	PatchAccount(ctx context.Context, accountID string, patch *domain.AccountPatch) (*domain.Account, error)
}

// TransactionStore is the append-only ledger. AppendTransaction persists the
// row AND applies the balance delta (including last_balance_update) as one
// atomic unit; it re-checks account.active under the same lock/transaction so
// validation and mutation observe one snapshot. RemoveTransaction reverses
// the delta and deletes the row, again atomically. There is no update method
// on purpose.
type TransactionStore interface {
	AppendTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	RemoveTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
	// ListTransactions returns the account's transactions newest first.
	// A pageSize <= 0 returns the full history.
	ListTransactions(ctx context.Context, accountID string, page, pageSize int) ([]domain.Transaction, error)
}

// ItemStore persists expenses and recurring payments.
type ItemStore interface {
	CreateExpense(ctx context.Context, e *domain.Expense) (*domain.Expense, error)
	GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error)
	ListExpenses(ctx context.Context, accountID string) ([]domain.Expense, error)
	DeleteExpense(ctx context.Context, expenseID string) error

	CreatePayment(ctx context.Context, p *domain.RecurringPayment) (*domain.RecurringPayment, error)
	GetPayment(ctx context.Context, paymentID string) (*domain.RecurringPayment, error)
	ListPayments(ctx context.Context, userID string) ([]domain.RecurringPayment, error)
	DeletePayment(ctx context.Context, paymentID string) error
}

// ItemResolver resolves a (kind, id) reference to an existing expense or
// recurring payment. Implemented by the store-backed resolver and by the
// remote items client.
type ItemResolver interface {
	Resolve(ctx context.Context, kind domain.ItemKind, id string) (*domain.Item, error)
}

// ReferenceStore supplies read-only reference data.
type ReferenceStore interface {
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
	ListAccountTypes(ctx context.Context) ([]domain.AccountType, error)
}

// UserStore supplies users and refresh-token persistence for the auth
// boundary.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// Store aggregates everything a full backend implements.
type Store interface {
	AccountStore
	TransactionStore
	ItemStore
	ReferenceStore
	UserStore
}
