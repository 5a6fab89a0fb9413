package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Bootstrap creates the game schema and tables when they are missing. Every
// statement is idempotent so services can run it unconditionally at start.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS game`,

		`CREATE TABLE IF NOT EXISTS game.accounts (
			id             BIGINT PRIMARY KEY,
			display_name   TEXT,
			balance        BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			points         DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (points >= 0),
			price          BIGINT NOT NULL CHECK (price >= 50),
			owner_id       BIGINT REFERENCES game.accounts (id) CHECK (owner_id <> id),
			shield_active  BOOLEAN NOT NULL DEFAULT FALSE,
			shield_until   TIMESTAMPTZ,
			referral_token TEXT NOT NULL UNIQUE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (shield_active = (shield_until IS NOT NULL))
		)`,
		`CREATE INDEX IF NOT EXISTS accounts_owner_idx ON game.accounts (owner_id)`,

		`CREATE TABLE IF NOT EXISTS game.ownership_history (
			id           BIGSERIAL PRIMARY KEY,
			asset_id     BIGINT NOT NULL REFERENCES game.accounts (id),
			old_owner_id BIGINT,
			new_owner_id BIGINT,
			price        BIGINT NOT NULL,
			recorded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS ownership_history_asset_idx
			ON game.ownership_history (asset_id, recorded_at)`,
		`CREATE INDEX IF NOT EXISTS ownership_history_new_owner_idx
			ON game.ownership_history (new_owner_id, recorded_at)`,

		`CREATE TABLE IF NOT EXISTS game.ledger_entries (
			id          BIGSERIAL PRIMARY KEY,
			tx_group_id UUID NOT NULL,
			from_id     BIGINT,
			to_id       BIGINT,
			amount      BIGINT NOT NULL,
			category    TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS ledger_entries_recorded_idx
			ON game.ledger_entries (recorded_at)`,

		`CREATE TABLE IF NOT EXISTS game.income_log (
			id          BIGSERIAL PRIMARY KEY,
			account_id  BIGINT NOT NULL REFERENCES game.accounts (id),
			amount      BIGINT NOT NULL,
			asset_count INT NOT NULL DEFAULT 0,
			logged_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS income_log_account_idx
			ON game.income_log (account_id, logged_at)`,

		`CREATE TABLE IF NOT EXISTS game.work_assignments (
			id              BIGSERIAL PRIMARY KEY,
			owner_id        BIGINT NOT NULL REFERENCES game.accounts (id),
			asset_id        BIGINT NOT NULL REFERENCES game.accounts (id),
			expected_reward BIGINT NOT NULL,
			started_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ends_at         TIMESTAMPTZ NOT NULL,
			completed       BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS work_assignments_owner_idx
			ON game.work_assignments (owner_id) WHERE NOT completed`,

		`CREATE TABLE IF NOT EXISTS game.upgrades (
			asset_id          BIGINT PRIMARY KEY REFERENCES game.accounts (id),
			level             INT NOT NULL DEFAULT 1,
			income_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			next_cost         BIGINT NOT NULL,
			total_invested    BIGINT NOT NULL DEFAULT 0,
			upgraded_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS game.profit_log (
			id               BIGSERIAL PRIMARY KEY,
			account_id       BIGINT NOT NULL REFERENCES game.accounts (id),
			profit_generated BIGINT NOT NULL DEFAULT 0,
			profit_received  BIGINT NOT NULL DEFAULT 0,
			day              DATE NOT NULL,
			UNIQUE (account_id, day)
		)`,

		`CREATE TABLE IF NOT EXISTS game.daily_stats (
			day            DATE PRIMARY KEY,
			total_accounts BIGINT NOT NULL,
			total_owned    BIGINT NOT NULL,
			transactions   BIGINT NOT NULL,
			volume         BIGINT NOT NULL,
			avg_price      BIGINT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
