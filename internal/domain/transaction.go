package domain

import "time"

// ============================================================
// Ledger transactions
// ============================================================

// TransactionType is the direction of a ledger transaction.
type TransactionType string

const (
	// Debit decreases the account balance (cost, expense).
	Debit TransactionType = "DB"
	// Credit increases the account balance (income, refund).
	Credit TransactionType = "CD"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == Debit || t == Credit
}

// ItemKind tags the kind of record a transaction references as its cause.
type ItemKind string

const (
	// ItemExpense references an Expense record.
	ItemExpense ItemKind = "EX"
	// ItemPayment references a RecurringPayment record.
	ItemPayment ItemKind = "RP"
)

// Valid reports whether k is a known item kind.
func (k ItemKind) Valid() bool {
	return k == ItemExpense || k == ItemPayment
}

// ItemRef is a weak (kind, id) reference from a transaction to the expense
// or recurring payment that caused it. The item stores no back-reference.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   string   `json:"id"`
}

// Transaction is one committed entry in the append-only ledger.
// It is immutable once created; the only correction mechanism is a
// compensating delete.
type Transaction struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"transaction_type"`
	AccountID string          `json:"account_id"`
	Amount    int64           `json:"amount"` // positive, minor units
	Item      *ItemRef        `json:"item,omitempty"`
	Automatic bool            `json:"automatic"`
	CreatedAt time.Time       `json:"created_at"`
}

// Delta is the signed balance change this transaction applies on creation:
// -Amount for a debit, +Amount for a credit.
func (t *Transaction) Delta() int64 {
	if t.Type == Debit {
		return -t.Amount
	}
	return t.Amount
}

// ReversalDelta is the signed balance change that undoes this transaction.
func (t *Transaction) ReversalDelta() int64 {
	return -t.Delta()
}

// TransactionDraft is the input to ledger creation. ItemKind and ItemID are
// pointers so the validator can distinguish "absent" from "zero": the pair
// must be both present or both absent.
type TransactionDraft struct {
	AccountID string
	Type      TransactionType
	Amount    int64
	ItemKind  *ItemKind
	ItemID    *string
	Automatic bool
}

// ItemRef assembles the draft's (kind, id) pair, or nil when absent.
// Callers must have validated the pair first.
func (d *TransactionDraft) ItemRef() *ItemRef {
	if d.ItemKind == nil || d.ItemID == nil {
		return nil
	}
	return &ItemRef{Kind: *d.ItemKind, ID: *d.ItemID}
}
