package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		variations JSONB,
		media_urls TEXT[],
		media_kind TEXT,
		link_url TEXT,
		hashtags TEXT[],
		platforms TEXT[],
		status TEXT NOT NULL,
		approval_status TEXT NOT NULL DEFAULT 'PENDING',
		scheduled_for TIMESTAMPTZ,
		published_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_content_items_due ON content_items (status, approval_status, scheduled_for)`,
	`CREATE TABLE IF NOT EXISTS social_accounts (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		platform_account_id TEXT NOT NULL,
		display_name TEXT,
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		token_expires_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (brand_id, platform, platform_account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS publish_results (
		id BIGSERIAL PRIMARY KEY,
		content_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		platform_post_id TEXT,
		post_url TEXT,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_publish_results_content ON publish_results (content_id, created_at DESC)`,
}

// EnsureSchema creates the publishing tables and adds newer columns when
// they are missing. Safe to call at startup.
func EnsureSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema failed: %w", err)
		}
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"publish_results", "attempt_id", "ALTER TABLE publish_results ADD COLUMN attempt_id TEXT"},
		{"social_accounts", "scope", "ALTER TABLE social_accounts ADD COLUMN scope TEXT"},
	}

	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
