package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const accountColumns = `id, user_id, account_type, account_number, account_provider, balance, active, last_balance_update, date_added, date_modified`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*domain.Account, error) {
	var a domain.Account
	var lastUpdate sql.NullTime
	err := row.Scan(&a.ID, &a.UserID, &a.AccountType, &a.AccountNumber, &a.AccountProvider,
		&a.Balance, &a.Active, &lastUpdate, &a.DateAdded, &a.DateModified)
	if err != nil {
		return nil, err
	}
	if lastUpdate.Valid {
		a.LastBalanceUpdate = &lastUpdate.Time
	}
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	const q = `INSERT INTO accounts (id, user_id, account_type, account_number, account_provider, balance, active, date_added, date_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + accountColumns
	row := s.db.QueryRowContext(ctx, q,
		account.ID, account.UserID, account.AccountType, account.AccountNumber,
		account.AccountProvider, account.Balance, account.Active, account.DateAdded, account.DateModified)
	created, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &domain.ErrConflict{Message: "account with this number and provider already exists"}
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return created, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(s.db.QueryRowContext(ctx, q, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		return nil, err
	}
	return account, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY date_added`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// PatchAccount applies only the non-nil patch fields. Balance and
// last_balance_update are never touched here.
func (s *Store) PatchAccount(ctx context.Context, accountID string, patch *domain.AccountPatch) (*domain.Account, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.AccountType != nil {
		sets = append(sets, "account_type = "+arg(*patch.AccountType))
	}
	if patch.AccountNumber != nil {
		sets = append(sets, "account_number = "+arg(*patch.AccountNumber))
	}
	if patch.AccountProvider != nil {
		sets = append(sets, "account_provider = "+arg(*patch.AccountProvider))
	}
	if patch.Active != nil {
		sets = append(sets, "active = "+arg(*patch.Active))
	}
	sets = append(sets, "date_modified = "+arg(time.Now().UTC()))

	q := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = %s RETURNING %s`,
		strings.Join(sets, ", "), arg(accountID), accountColumns)

	account, err := scanAccount(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		return nil, err
	}
	return account, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
