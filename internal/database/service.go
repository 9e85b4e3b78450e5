/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"token-exchange-go/internal/models"
	"token-exchange-go/internal/store"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

type Service struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker
	closed  atomic.Bool
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("%w: unable to ping database: %w", store.ErrStoreUnavailable, err)
	}

	service := &Service{db: db, breaker: newBreaker(cfg.Path)}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// dataSourceName builds the go-sqlite3 DSN. Transactions begin IMMEDIATE so that
// every read-modify-write holds the write lock from its first read.
func dataSourceName(cfg models.DatabaseConfig) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=%d&_txlock=immediate&_foreign_keys=on",
		cfg.Path, busy.Milliseconds())
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        "sqlite:" + name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isDomainError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			zap.L().Warn("Database circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

// isDomainError reports errors that describe the request, not the health of the database.
func isDomainError(err error) bool {
	return errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrInvalidState) ||
		errors.Is(err, store.ErrInsufficientFunds) ||
		errors.Is(err, store.ErrInsufficientHoldings) ||
		errors.Is(err, store.ErrInvalidInput) ||
		errors.Is(err, store.ErrConcurrentModification) ||
		errors.Is(err, context.Canceled)
}

func (s *Service) Close() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.run(ctx, "ping", func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

// run executes fn behind the availability check and the circuit breaker. Errors that
// are not domain errors are reported as store.ErrStoreUnavailable.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s == nil || s.db == nil || s.closed.Load() {
		return fmt.Errorf("%w: %s: database is closed", store.ErrStoreUnavailable, op)
	}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err == nil || isDomainError(err) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		zap.L().Warn("Database call rejected by circuit breaker", zap.String("op", op), zap.Error(err))
	} else {
		zap.L().Error("Database call failed", zap.String("op", op), zap.Error(err))
	}
	return fmt.Errorf("%w: %s: %w", store.ErrStoreUnavailable, op, err)
}

// inTx runs fn inside a single database transaction that is committed only if fn succeeds.
func (s *Service) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return s.run(ctx, op, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				zap.L().Warn("Failed to roll back transaction", zap.String("op", op), zap.Error(err))
			}
		}()

		if err := fn(ctx, tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	-- Accounts (fiat side of the wallet)
	CREATE TABLE IF NOT EXISTS accounts (
		user_id INTEGER PRIMARY KEY,
		is_banned BOOLEAN NOT NULL DEFAULT 0,
		first_deposit_done BOOLEAN NOT NULL DEFAULT 0,
		referrer_id INTEGER,
		referral_count INTEGER NOT NULL DEFAULT 0,
		balance TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_referrer_id ON accounts(referrer_id);

	-- Token positions
	CREATE TABLE IF NOT EXISTS holdings (
		user_id INTEGER NOT NULL REFERENCES accounts(user_id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		invested TEXT NOT NULL DEFAULT '0',
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, symbol)
	);

	CREATE INDEX IF NOT EXISTS idx_holdings_symbol ON holdings(symbol);

	-- Audit trail of every balance change
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES accounts(user_id) ON DELETE CASCADE,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		reference TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_id ON ledger_entries(user_id, created_at);

	-- Token catalog
	CREATE TABLE IF NOT EXISTS tokens (
		symbol TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		base_price TEXT,
		trend REAL NOT NULL DEFAULT 0,
		volatility REAL NOT NULL DEFAULT 0,
		schema_version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS token_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL REFERENCES tokens(symbol) ON DELETE CASCADE,
		price TEXT NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_token_history_symbol ON token_history(symbol, id);

	-- Deposit and withdraw requests
	CREATE TABLE IF NOT EXISTS transactions (
		tx_id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES accounts(user_id),
		type TEXT NOT NULL CHECK (type IN ('deposit', 'withdraw')),
		amount TEXT NOT NULL,
		method TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'rejected')),
		created_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);

	-- One-time gift codes
	CREATE TABLE IF NOT EXISTS gift_codes (
		code TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		used BOOLEAN NOT NULL DEFAULT 0,
		redeemed_by INTEGER,
		created_at TIMESTAMP NOT NULL,
		redeemed_at TIMESTAMP
	);

	-- Per-day counters
	CREATE TABLE IF NOT EXISTS daily_stats (
		date TEXT PRIMARY KEY,
		new_users INTEGER NOT NULL DEFAULT 0,
		first_deposits INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// closeRows closes rows and logs a failure, matching the pattern used for every query.
func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

func now() time.Time {
	return time.Now().UTC()
}
