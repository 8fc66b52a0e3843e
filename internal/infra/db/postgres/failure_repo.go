package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/failures"
	"github.com/bryanwahyu/policy-analyzer/internal/infra/db"
)

type FailureRepository struct{ db *sql.DB }

func NewFailureRepository(conn *sql.DB) *FailureRepository { return &FailureRepository{db: conn} }

func (r *FailureRepository) Save(ctx context.Context, f *failures.Failure) error {
	const q = `
INSERT INTO analysis_failures (flow, stage, kind, analysis_id, filename, message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	// lib/pq tidak support LastInsertId
	return r.db.QueryRowContext(ctx, q, f.Flow, f.Stage, f.Kind, f.AnalysisID, f.Filename, f.Message, created.UTC()).Scan(&f.ID)
}

func (r *FailureRepository) Recent(ctx context.Context, limit int) ([]*failures.Failure, error) {
	const q = `
SELECT id, flow, stage, kind, analysis_id, filename, message, created_at
FROM analysis_failures
ORDER BY created_at DESC, id DESC
LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, db.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*failures.Failure{}
	for rows.Next() {
		var f failures.Failure
		if err := rows.Scan(&f.ID, &f.Flow, &f.Stage, &f.Kind, &f.AnalysisID, &f.Filename, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.CreatedAt = f.CreatedAt.UTC()
		out = append(out, &f)
	}
	return out, rows.Err()
}
