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
	"fmt"
	"time"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

const defaultBusyTimeout = 5 * time.Second

// Service is the SQLite backend. Reads and writes outside WithTx go straight
// to the pool; WithTx hands the callback a Repository bound to one *sql.Tx.
type Service struct {
	*Repo
	db *sql.DB
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

	busyTimeout := cfg.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=%d&_txlock=immediate&_foreign_keys=on",
		cfg.Path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
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
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{Repo: &Repo{q: db}, db: db}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx opens a BEGIN IMMEDIATE transaction so the write lock is taken up
// front; a lock that cannot be had within the busy timeout surfaces as
// store.ErrBusy.
func (s *Service) WithTx(ctx context.Context, fn func(ctx context.Context, repo store.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", translateError(err))
	}

	if err := fn(ctx, &Repo{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			zap.L().Warn("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit transaction: %w", translateError(err))
	}
	return nil
}

func (s *Service) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'customer',
		referral_code TEXT NOT NULL UNIQUE,
		is_deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_at TIMESTAMP,
		deletion_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_is_deleted ON users(is_deleted);

	CREATE TABLE IF NOT EXISTS restaurants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		guaranteed_discount_percent TEXT NOT NULL,
		upline_reward_percent TEXT NOT NULL,
		max_redemption_percent TEXT NOT NULL,
		virtual_currency_expiry_days INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS branches (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_branches_restaurant ON branches(restaurant_id);

	-- One row per (downline, ancestor level, restaurant)
	CREATE TABLE IF NOT EXISTS referrals (
		id TEXT PRIMARY KEY,
		downline_id TEXT NOT NULL REFERENCES users(id),
		upline_id TEXT NOT NULL REFERENCES users(id),
		upline_level INTEGER NOT NULL CHECK (upline_level BETWEEN 1 AND 3),
		restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
		created_at TIMESTAMP NOT NULL,
		UNIQUE(downline_id, restaurant_id, upline_level)
	);

	CREATE INDEX IF NOT EXISTS idx_referrals_upline ON referrals(upline_id, restaurant_id);

	CREATE TABLE IF NOT EXISTS ledger_accounts (
		user_id TEXT NOT NULL REFERENCES users(id),
		restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY(user_id, restaurant_id)
	);

	-- Append-only; corrections are new rows
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
		transaction_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		related_user_id TEXT NOT NULL DEFAULT '',
		upline_level INTEGER NOT NULL DEFAULT 0,
		reverses_entry_id TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(user_id, restaurant_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries(transaction_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_entries_earn
		ON ledger_entries(transaction_id, user_id, upline_level) WHERE transaction_type = 'earn';

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL REFERENCES users(id),
		branch_id TEXT NOT NULL REFERENCES branches(id),
		restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
		staff_id TEXT NOT NULL DEFAULT '',
		bill_amount TEXT NOT NULL,
		guaranteed_discount_amount TEXT NOT NULL,
		virtual_currency_redeemed TEXT NOT NULL,
		is_first_transaction BOOLEAN NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		created_at TIMESTAMP NOT NULL,
		voided_at TIMESTAMP,
		void_reason TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id, restaurant_id, status);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		target_user_id TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_target ON audit_log(target_user_id);
	`
