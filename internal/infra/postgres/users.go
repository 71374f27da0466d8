package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tyne-finance/ledger-go/internal/domain"
)

const userColumns = `id, username, email, currency_code, active, last_login, password_hash`

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CurrencyCode, &u.Active, &lastLogin, &u.PasswordHash)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, q, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "user", ID: username}
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, q, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return nil
}

func (s *Store) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`
	_, err := s.db.ExecContext(ctx, q, tokenHash, userID, expiresAt)
	return err
}

func (s *Store) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	const q = `SELECT token_hash, user_id, expires_at FROM refresh_tokens WHERE token_hash = $1`
	var rt domain.RefreshToken
	err := s.db.QueryRowContext(ctx, q, tokenHash).Scan(&rt.TokenHash, &rt.UserID, &rt.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ErrNotFound{Resource: "refresh_token", ID: tokenHash}
		}
		return nil, err
	}
	return &rt, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	return err
}

func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	return err
}

func (s *Store) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT country, code, symbol FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Currency, 0)
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.Country, &c.Code, &c.Symbol); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, code FROM account_types ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AccountType, 0)
	for rows.Next() {
		var t domain.AccountType
		if err := rows.Scan(&t.Name, &t.Code); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
