package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
)

const transactionColumns = `id, transaction_type, account_id, amount, item_kind, item_id, automatic, created_at`

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var kind, itemID sql.NullString
	err := row.Scan(&t.ID, &t.Type, &t.AccountID, &t.Amount, &kind, &itemID, &t.Automatic, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if kind.Valid && itemID.Valid {
		t.Item = &domain.ItemRef{Kind: domain.ItemKind(kind.String), ID: itemID.String}
	}
	return &t, nil
}

// AppendTransaction commits the row and the balance delta in one database
// transaction. The account row is locked with FOR UPDATE and the active
// flag re-checked under that lock, so a deactivation racing with this call
// cannot slip a transaction through. No retries on conflict; the lock wait
// serializes writers per account.
func (s *Store) AppendTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	dbtx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	var active bool
	const lock = `SELECT active FROM accounts WHERE id = $1 FOR UPDATE`
	if err := dbtx.QueryRowContext(ctx, lock, tx.AccountID).Scan(&active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "account", ID: tx.AccountID}
		}
		return nil, fmt.Errorf("lock account: %w", err)
	}
	if !active {
		return nil, &domain.ErrValidation{Field: "account", Message: "account not active"}
	}

	var kind, itemID any
	if tx.Item != nil {
		kind = string(tx.Item.Kind)
		itemID = tx.Item.ID
	}
	const ins = `INSERT INTO transactions (id, transaction_type, account_id, amount, item_kind, item_id, automatic, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := dbtx.ExecContext(ctx, ins,
		tx.ID, string(tx.Type), tx.AccountID, tx.Amount, kind, itemID, tx.Automatic, tx.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	const upd = `UPDATE accounts SET balance = balance + $1, last_balance_update = $2, date_modified = $2 WHERE id = $3`
	if _, err := dbtx.ExecContext(ctx, upd, tx.Delta(), tx.CreatedAt, tx.AccountID); err != nil {
		return nil, fmt.Errorf("apply balance delta: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	out := *tx
	return &out, nil
}

// RemoveTransaction deletes the row and reverses its delta in one database
// transaction.
func (s *Store) RemoveTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	dbtx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()

	const del = `DELETE FROM transactions WHERE id = $1 RETURNING ` + transactionColumns
	removed, err := scanTransaction(dbtx.QueryRowContext(ctx, del, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
		}
		return nil, fmt.Errorf("delete transaction: %w", err)
	}

	const upd = `UPDATE accounts SET balance = balance + $1, last_balance_update = $2, date_modified = $2 WHERE id = $3`
	if _, err := dbtx.ExecContext(ctx, upd, removed.ReversalDelta(), time.Now().UTC(), removed.AccountID); err != nil {
		return nil, fmt.Errorf("reverse balance delta: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reversal: %w", err)
	}

	return removed, nil
}

func (s *Store) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	const q = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, q, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "transaction", ID: transactionID}
		}
		return nil, err
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID string, page, pageSize int) ([]domain.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1 ORDER BY created_at DESC`
	args := []any{accountID}
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		q += ` LIMIT $2 OFFSET $3`
		args = append(args, pageSize, (page-1)*pageSize)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
