package domain

import "time"

// ============================================================
// Accounts
// ============================================================

// Account represents a money account (bank, mobile money, cash).
// Balance is a signed integer in minor currency units. It is only ever
// mutated by the transaction ledger, never written directly.
type Account struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	AccountType       string     `json:"account_type"`
	AccountNumber     string     `json:"account_number"`
	AccountProvider   string     `json:"account_provider"`
	Balance           int64      `json:"balance"`
	Active            bool       `json:"active"`
	LastBalanceUpdate *time.Time `json:"last_balance_update"`
	DateAdded         time.Time  `json:"date_added"`
	DateModified      time.Time  `json:"date_modified"`
}

// AccountPatch is an explicit partial update for an account. Only fields
// with a non-nil pointer are applied. Balance and LastBalanceUpdate are
// deliberately absent: those belong to the ledger.
type AccountPatch struct {
	AccountType     *string `json:"account_type,omitempty"`
	AccountNumber   *string `json:"account_number,omitempty"`
	AccountProvider *string `json:"account_provider,omitempty"`
	Active          *bool   `json:"active,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (p *AccountPatch) Empty() bool {
	return p.AccountType == nil && p.AccountNumber == nil &&
		p.AccountProvider == nil && p.Active == nil
}

// ============================================================
// Reference data (read-only)
// ============================================================

// Currency is reference data; the API exposes it read-only.
type Currency struct {
	Country string `json:"country"`
	Code    string `json:"code"`
	Symbol  string `json:"symbol,omitempty"`
}

// AccountType is reference data; the API exposes it read-only.
type AccountType struct {
	Name string `json:"name"`
	Code string `json:"code"`
}
