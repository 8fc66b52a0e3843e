package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS policy_analyses (
		id                CHAR(36)      NOT NULL PRIMARY KEY,
		filename          VARCHAR(512)  NOT NULL,
		state             VARCHAR(64)   NOT NULL,
		policy_type       VARCHAR(128)  NOT NULL,
		loss_description  TEXT          NOT NULL,
		policy_data       JSON          NOT NULL,
		coverage_analysis JSON          NOT NULL,
		underpayment_risk JSON          NULL,
		raw_pdf_text      LONGTEXT      NOT NULL,
		pdf_object_key    VARCHAR(1024) NOT NULL DEFAULT '',
		created_at        DATETIME(6)   NOT NULL,
		updated_at        DATETIME(6)   NOT NULL,
		INDEX idx_policy_analyses_created (created_at, id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS analysis_failures (
		id          BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
		flow        VARCHAR(32)  NOT NULL,
		stage       VARCHAR(32)  NOT NULL,
		kind        VARCHAR(32)  NOT NULL,
		analysis_id VARCHAR(64)  NOT NULL DEFAULT '',
		filename    VARCHAR(512) NOT NULL DEFAULT '',
		message     TEXT         NOT NULL,
		created_at  DATETIME(6)  NOT NULL,
		INDEX idx_analysis_failures_created (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables. Idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql migrate: %w", err)
		}
	}
	return nil
}
