package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS payment_methods (
		id TEXT PRIMARY KEY,
		provider_method TEXT NOT NULL UNIQUE,
		provider TEXT NOT NULL,
		from_currency_code TEXT NOT NULL,
		to_currency_code TEXT NOT NULL,
		min_amount BIGINT NOT NULL,
		max_amount BIGINT NOT NULL,
		relative_commission {{decimal}} NOT NULL,
		relative_provider_commission {{decimal}} NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at {{timestamp}} NOT NULL,
		updated_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_transaction_id TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount {{decimal}} NOT NULL,
		paid_amount {{decimal}} NOT NULL,
		final_amount {{decimal}} NOT NULL,
		bonus {{decimal}} NOT NULL,
		commission {{decimal}} NOT NULL,
		status TEXT NOT NULL,
		payment_link TEXT NOT NULL DEFAULT '',
		account TEXT NOT NULL,
		b2b_transaction_id TEXT NOT NULL DEFAULT '',
		metadata {{json}} NOT NULL,
		created_at {{timestamp}} NOT NULL,
		updated_at {{timestamp}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS payments_status_idx ON payments (status)`,
	`CREATE INDEX IF NOT EXISTS payments_email_provider_status_idx ON payments (email, provider, status)`,
	`CREATE INDEX IF NOT EXISTS payments_email_account_created_idx ON payments (email, account, created_at)`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		bonus_percent {{decimal}} NOT NULL,
		created_at {{timestamp}} NOT NULL,
		updated_at {{timestamp}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS promo_activations (
		id TEXT PRIMARY KEY,
		promo_code_id TEXT NOT NULL REFERENCES promo_codes (id),
		email TEXT NOT NULL,
		status TEXT NOT NULL,
		activated_at {{timestamp}} NOT NULL,
		applied_at {{timestamp}}
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS promo_activations_one_active_idx ON promo_activations (email) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS promo_activations_status_activated_idx ON promo_activations (status, activated_at)`,
}

var dialectTypes = map[Dialect]*strings.Replacer{
	DialectPostgres: strings.NewReplacer(
		"{{decimal}}", "NUMERIC(24,8)",
		"{{timestamp}}", "TIMESTAMPTZ",
		"{{json}}", "JSONB",
	),
	// sqlite NUMERIC affinity would coerce decimals to floats, so they stay TEXT
	DialectSQLite: strings.NewReplacer(
		"{{decimal}}", "TEXT",
		"{{timestamp}}", "DATETIME",
		"{{json}}", "TEXT",
	),
}

// Migrate applies the idempotent schema for dialect
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	replacer, ok := dialectTypes[dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect: %s", dialect)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, replacer.Replace(stmt)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
