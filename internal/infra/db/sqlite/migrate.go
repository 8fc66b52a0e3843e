package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// timestamps disimpan sebagai unix nano (INTEGER)
var schema = []string{
	`CREATE TABLE IF NOT EXISTS policy_analyses (
		id                TEXT PRIMARY KEY,
		filename          TEXT NOT NULL,
		state             TEXT NOT NULL,
		policy_type       TEXT NOT NULL,
		loss_description  TEXT NOT NULL,
		policy_data       TEXT NOT NULL,
		coverage_analysis TEXT NOT NULL,
		underpayment_risk TEXT,
		raw_pdf_text      TEXT NOT NULL,
		pdf_object_key    TEXT NOT NULL DEFAULT '',
		created_at        INTEGER NOT NULL,
		updated_at        INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_policy_analyses_created ON policy_analyses (created_at, id)`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		flow        TEXT NOT NULL,
		stage       TEXT NOT NULL,
		kind        TEXT NOT NULL,
		analysis_id TEXT NOT NULL DEFAULT '',
		filename    TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL,
		created_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_failures_created ON analysis_failures (created_at)`,
}

// Migrate creates the tables. Idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}
