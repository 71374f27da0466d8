// Package memory provides an in-process implementation of port.Store.
// It backs local development and tests; production deployments use the
// postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
)

// Store is an in-memory port.Store. A single RWMutex guards the maps;
// balance read-modify-writes additionally hold a per-account mutex so
// concurrent ledger mutations on one account serialize without blocking
// other accounts.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]*domain.Account
	transactions map[string]*domain.Transaction
	expenses     map[string]*domain.Expense
	payments     map[string]*domain.RecurringPayment
	users        map[string]*domain.User
	usersByName  map[string]string
	refresh      map[string]*domain.RefreshToken

	accountLocks map[string]*sync.Mutex

	currencies   []domain.Currency
	accountTypes []domain.AccountType
}

// NewStore creates an empty store seeded with reference data.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		expenses:     make(map[string]*domain.Expense),
		payments:     make(map[string]*domain.RecurringPayment),
		users:        make(map[string]*domain.User),
		usersByName:  make(map[string]string),
		refresh:      make(map[string]*domain.RefreshToken),
		accountLocks: make(map[string]*sync.Mutex),
		currencies: []domain.Currency{
			{Country: "Ghana", Code: "GHS", Symbol: "GH₵"},
			{Country: "Kenya", Code: "KES", Symbol: "KSh"},
			{Country: "Nigeria", Code: "NGN", Symbol: "₦"},
			{Country: "United Kingdom", Code: "GBP", Symbol: "£"},
			{Country: "United States", Code: "USD", Symbol: "$"},
		},
		accountTypes: []domain.AccountType{
			{Name: "Savings", Code: "SAV"},
			{Name: "Current", Code: "CUR"},
			{Name: "Mobile Money", Code: "MOM"},
			{Name: "Cash", Code: "CSH"},
		},
	}
}

// accountLock returns the mutex guarding one account's balance,
// creating it on first use. Callers must not hold s.mu.
func (s *Store) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.accountLocks[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.accountLocks[accountID] = l
	}
	return l
}

// ============================================================
// Accounts
// ============================================================

func (s *Store) CreateAccount(_ context.Context, account *domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *account
	s.accounts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}
	out := *account
	return &out, nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0)
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateAdded.Before(out[j].DateAdded) })
	return out, nil
}

func (s *Store) PatchAccount(_ context.Context, accountID string, patch *domain.AccountPatch) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}

	if patch.AccountType != nil {
		account.AccountType = *patch.AccountType
	}
	if patch.AccountNumber != nil {
		account.AccountNumber = *patch.AccountNumber
	}
	if patch.AccountProvider != nil {
		account.AccountProvider = *patch.AccountProvider
	}
	if patch.Active != nil {
		account.Active = *patch.Active
	}
	account.DateModified = time.Now().UTC()

	out := *account
	return &out, nil
}

// ============================================================
// Ledger
// ============================================================

// AppendTransaction writes the row and applies the balance delta under the
// account's lock. The active flag is re-checked under the same lock, so a
// deactivation racing with this call cannot slip a transaction through.
func (s *Store) AppendTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	lock := s.accountLock(tx.AccountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[tx.AccountID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "account", ID: tx.AccountID}
	}
	if !account.Active {
		return nil, &domain.ErrValidation{Field: "account", Message: "account not active"}
	}

	cp := *tx
	s.transactions[cp.ID] = &cp

	account.Balance += cp.Delta()
	now := cp.CreatedAt
	account.LastBalanceUpdate = &now
	account.DateModified = now

	out := cp
	return &out, nil
}

// RemoveTransaction deletes the row and reverses its delta under the
// account's lock.
func (s *Store) RemoveTransaction(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	tx, ok := s.transactions[transactionID]
	s.mu.RUnlock()
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}

	lock := s.accountLock(tx.AccountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-read after acquiring the lock; a concurrent delete may have won.
	tx, ok = s.transactions[transactionID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}

	delete(s.transactions, transactionID)

	if account, ok := s.accounts[tx.AccountID]; ok {
		account.Balance += tx.ReversalDelta()
		now := time.Now().UTC()
		account.LastBalanceUpdate = &now
		account.DateModified = now
	}

	out := *tx
	return &out, nil
}

func (s *Store) GetTransaction(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
	}
	out := *tx
	return &out, nil
}

func (s *Store) ListTransactions(_ context.Context, accountID string, page, pageSize int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if pageSize <= 0 {
		return out, nil
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(out) {
		return []domain.Transaction{}, nil
	}
	end := start + pageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

// ============================================================
// Items
// ============================================================

func (s *Store) CreateExpense(_ context.Context, e *domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.expenses[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetExpense(_ context.Context, expenseID string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expenses[expenseID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "expense", ID: expenseID}
	}
	out := *e
	return &out, nil
}

func (s *Store) ListExpenses(_ context.Context, accountID string) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Expense, 0)
	for _, e := range s.expenses {
		if e.AccountID == accountID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateCreated.After(out[j].DateCreated) })
	return out, nil
}

func (s *Store) DeleteExpense(_ context.Context, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[expenseID]; !ok {
		return &domain.ErrNotFound{Resource: "expense", ID: expenseID}
	}
	delete(s.expenses, expenseID)
	return nil
}

func (s *Store) CreatePayment(_ context.Context, p *domain.RecurringPayment) (*domain.RecurringPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.payments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetPayment(_ context.Context, paymentID string) (*domain.RecurringPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	out := *p
	return &out, nil
}

func (s *Store) ListPayments(_ context.Context, userID string) ([]domain.RecurringPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RecurringPayment, 0)
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateAdded.After(out[j].DateAdded) })
	return out, nil
}

func (s *Store) DeletePayment(_ context.Context, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[paymentID]; !ok {
		return &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	delete(s.payments, paymentID)
	return nil
}

// ============================================================
// Reference data
// ============================================================

func (s *Store) ListCurrencies(_ context.Context) ([]domain.Currency, error) {
	out := make([]domain.Currency, len(s.currencies))
	copy(out, s.currencies)
	return out, nil
}

func (s *Store) ListAccountTypes(_ context.Context) ([]domain.AccountType, error) {
	out := make([]domain.AccountType, len(s.accountTypes))
	copy(out, s.accountTypes)
	return out, nil
}

// ============================================================
// Users & refresh tokens
// ============================================================

// SeedUser inserts a user directly. Used by dev setup and tests.
func (s *Store) SeedUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *user
	s.users[cp.ID] = &cp
	s.usersByName[cp.Username] = cp.ID
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: username}
	}
	out := *s.users[id]
	return &out, nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	out := *user
	return &out, nil
}

func (s *Store) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	user.LastLogin = &at
	return nil
}

func (s *Store) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh[tokenHash] = &domain.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	return nil
}

func (s *Store) GetRefreshToken(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.refresh[tokenHash]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "refresh_token", ID: tokenHash}
	}
	out := *rt
	return &out, nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.refresh, tokenHash)
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, rt := range s.refresh {
		if rt.UserID == userID {
			delete(s.refresh, hash)
		}
	}
	return nil
}
