// Package postgres implements port.Store on PostgreSQL. Balance mutations
// run inside database transactions with row-level locks, so the ledger's
// atomicity does not depend on application-side coordination.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store is a PostgreSQL-backed port.Store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens a connection pool and verifies connectivity.
func NewStore(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL,
    currency_code TEXT NOT NULL DEFAULT 'USD',
    active        BOOLEAN NOT NULL DEFAULT FALSE,
    last_login    TIMESTAMPTZ,
    password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id                  TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL REFERENCES users(id),
    account_type        TEXT NOT NULL,
    account_number      TEXT NOT NULL,
    account_provider    TEXT NOT NULL,
    balance             BIGINT NOT NULL DEFAULT 0,
    active              BOOLEAN NOT NULL DEFAULT FALSE,
    last_balance_update TIMESTAMPTZ,
    date_added          TIMESTAMPTZ NOT NULL,
    date_modified       TIMESTAMPTZ NOT NULL,
    UNIQUE (user_id, account_number, account_provider)
);

CREATE TABLE IF NOT EXISTS transactions (
    id               TEXT PRIMARY KEY,
    transaction_type TEXT NOT NULL CHECK (transaction_type IN ('DB', 'CD')),
    account_id       TEXT NOT NULL REFERENCES accounts(id),
    amount           BIGINT NOT NULL CHECK (amount > 0),
    item_kind        TEXT CHECK (item_kind IN ('EX', 'RP')),
    item_id          TEXT,
    automatic        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL,
    CHECK ((item_kind IS NULL) = (item_id IS NULL))
);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS expenses (
    id                 TEXT PRIMARY KEY,
    account_id         TEXT NOT NULL REFERENCES accounts(id),
    planned            BOOLEAN NOT NULL DEFAULT FALSE,
    narration          TEXT NOT NULL,
    amount             BIGINT NOT NULL,
    transaction_charge BIGINT NOT NULL DEFAULT 0,
    tags               JSONB NOT NULL DEFAULT '[]',
    date_occurred      DATE NOT NULL,
    date_created       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS recurring_payments (
    id                 TEXT PRIMARY KEY,
    user_id            TEXT NOT NULL REFERENCES users(id),
    narration          TEXT NOT NULL,
    amount             BIGINT NOT NULL,
    transaction_charge BIGINT NOT NULL DEFAULT 0,
    tags               JSONB NOT NULL DEFAULT '[]',
    start_date         DATE NOT NULL,
    end_date           DATE,
    renewal_date       TEXT NOT NULL,
    renewal_count      INT NOT NULL DEFAULT 0,
    date_added         TIMESTAMPTZ NOT NULL,
    date_modified      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS currencies (
    code    TEXT PRIMARY KEY,
    country TEXT NOT NULL,
    symbol  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS account_types (
    code TEXT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    token_hash TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users(id),
    expires_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.logger.Info("database schema applied")
	return nil
}
