package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var migrations = []struct {
	version int
	sql     string
}{
	{1, migration001Users},
	{2, migration002Restaurants},
	{3, migration003Referrals},
	{4, migration004Ledger},
	{5, migration005Transactions},
	{6, migration006Audit},
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("unable to create migrations table: %w", err)
	}

	for _, m := range migrations {
		if err := applyMigration(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

// applyMigration runs one migration in its own transaction and records it.
// Already applied versions are skipped.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, version int, sql string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialise concurrent starters on the same database
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(7462011)`); err != nil {
		return err
	}

	var applied bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&applied); err != nil {
		return err
	}
	if applied {
		return nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	zap.L().Info("Migration applied", zap.Int("version", version))
	return nil
}

const migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    full_name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'customer',
    referral_code TEXT NOT NULL,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at TIMESTAMPTZ,
    deletion_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT uq_users_email UNIQUE (email),
    CONSTRAINT uq_users_referral_code UNIQUE (referral_code)
);
`

const migration002Restaurants = `
CREATE TABLE IF NOT EXISTS restaurants (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    guaranteed_discount_percent NUMERIC(7,4) NOT NULL,
    upline_reward_percent NUMERIC(7,4) NOT NULL,
    max_redemption_percent NUMERIC(7,4) NOT NULL,
    virtual_currency_expiry_days INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS branches (
    id TEXT PRIMARY KEY,
    restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
    name TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_branches_restaurant ON branches(restaurant_id);
`

const migration003Referrals = `
CREATE TABLE IF NOT EXISTS referrals (
    id TEXT PRIMARY KEY,
    downline_id TEXT NOT NULL REFERENCES users(id),
    upline_id TEXT NOT NULL REFERENCES users(id),
    upline_level INTEGER NOT NULL CHECK (upline_level BETWEEN 1 AND 3),
    restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
    created_at TIMESTAMPTZ NOT NULL,
    CONSTRAINT uq_referrals_downline_level UNIQUE (downline_id, restaurant_id, upline_level)
);
CREATE INDEX IF NOT EXISTS idx_referrals_upline ON referrals(upline_id, restaurant_id);
`

const migration004Ledger = `
CREATE TABLE IF NOT EXISTS ledger_accounts (
    user_id TEXT NOT NULL REFERENCES users(id),
    restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
    created_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (user_id, restaurant_id)
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    seq BIGSERIAL,
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
    transaction_type TEXT NOT NULL,
    amount NUMERIC(18,2) NOT NULL,
    balance_after NUMERIC(18,2) NOT NULL,
    transaction_id TEXT NOT NULL DEFAULT '',
    related_user_id TEXT NOT NULL DEFAULT '',
    upline_level INTEGER NOT NULL DEFAULT 0,
    reverses_entry_id TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries(user_id, restaurant_id);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries(transaction_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_entries_earn
    ON ledger_entries(transaction_id, user_id, upline_level) WHERE transaction_type = 'earn';
`

const migration005Transactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL REFERENCES users(id),
    branch_id TEXT NOT NULL REFERENCES branches(id),
    restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
    staff_id TEXT NOT NULL DEFAULT '',
    bill_amount NUMERIC(18,2) NOT NULL,
    guaranteed_discount_amount NUMERIC(18,2) NOT NULL,
    virtual_currency_redeemed NUMERIC(18,2) NOT NULL,
    is_first_transaction BOOLEAN NOT NULL,
    status TEXT NOT NULL DEFAULT 'completed',
    created_at TIMESTAMPTZ NOT NULL,
    voided_at TIMESTAMPTZ,
    void_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id, restaurant_id, status);
`

const migration006Audit = `
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    actor_id TEXT NOT NULL,
    action TEXT NOT NULL,
    target_user_id TEXT NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_target ON audit_log(target_user_id);
`
