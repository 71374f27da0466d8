package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tyne-finance/ledger-go/internal/domain"
)

const expenseColumns = `id, account_id, planned, narration, amount, transaction_charge, tags, to_char(date_occurred, 'YYYY-MM-DD'), date_created`

func scanExpense(row scanner) (*domain.Expense, error) {
	var e domain.Expense
	var tags []byte
	err := row.Scan(&e.ID, &e.AccountID, &e.Planned, &e.Narration, &e.Amount,
		&e.TransactionCharge, &tags, &e.DateOccurred, &e.DateCreated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &e.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &e, nil
}

func (s *Store) CreateExpense(ctx context.Context, e *domain.Expense) (*domain.Expense, error) {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	const q = `INSERT INTO expenses (id, account_id, planned, narration, amount, transaction_charge, tags, date_occurred, date_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + expenseColumns
	row := s.db.QueryRowContext(ctx, q,
		e.ID, e.AccountID, e.Planned, e.Narration, e.Amount, e.TransactionCharge, tags, e.DateOccurred, e.DateCreated)
	created, err := scanExpense(row)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	return created, nil
}

func (s *Store) GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error) {
	const q = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`
	e, err := scanExpense(s.db.QueryRowContext(ctx, q, expenseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "expense", ID: expenseID}
		}
		return nil, err
	}
	return e, nil
}

func (s *Store) ListExpenses(ctx context.Context, accountID string) ([]domain.Expense, error) {
	const q = `SELECT ` + expenseColumns + ` FROM expenses WHERE account_id = $1 ORDER BY date_created DESC`
	rows, err := s.db.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, expenseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "expense", ID: expenseID}
	}
	return nil
}

const paymentColumns = `id, user_id, narration, amount, transaction_charge, tags, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), renewal_date, renewal_count, date_added, date_modified`

func scanPayment(row scanner) (*domain.RecurringPayment, error) {
	var p domain.RecurringPayment
	var tags []byte
	var endDate sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &p.Narration, &p.Amount, &p.TransactionCharge,
		&tags, &p.StartDate, &endDate, &p.RenewalDate, &p.RenewalCount, &p.DateAdded, &p.DateModified)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if endDate.Valid {
		p.EndDate = &endDate.String
	}
	return &p, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *domain.RecurringPayment) (*domain.RecurringPayment, error) {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	var endDate any
	if p.EndDate != nil {
		endDate = *p.EndDate
	}
	const q = `INSERT INTO recurring_payments (id, user_id, narration, amount, transaction_charge, tags, start_date, end_date, renewal_date, renewal_count, date_added, date_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + paymentColumns
	row := s.db.QueryRowContext(ctx, q,
		p.ID, p.UserID, p.Narration, p.Amount, p.TransactionCharge, tags,
		p.StartDate, endDate, p.RenewalDate, p.RenewalCount, p.DateAdded, p.DateModified)
	created, err := scanPayment(row)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return created, nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID string) (*domain.RecurringPayment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM recurring_payments WHERE id = $1`
	p, err := scanPayment(s.db.QueryRowContext(ctx, q, paymentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "payment", ID: paymentID}
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPayments(ctx context.Context, userID string) ([]domain.RecurringPayment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM recurring_payments WHERE user_id = $1 ORDER BY date_added DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RecurringPayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePayment(ctx context.Context, paymentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recurring_payments WHERE id = $1`, paymentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	return nil
}
