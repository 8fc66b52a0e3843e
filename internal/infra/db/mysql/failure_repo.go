package mysql

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
INSERT INTO analysis_failures
  (flow, stage, kind, analysis_id, filename, message, created_at)
VALUES (?,?,?,?,?,?,?)`
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q, f.Flow, f.Stage, f.Kind, f.AnalysisID, f.Filename, f.Message, created.UTC())
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

func (r *FailureRepository) Recent(ctx context.Context, limit int) ([]*failures.Failure, error) {
	const q = `
SELECT id, flow, stage, kind, analysis_id, filename, message, created_at
FROM analysis_failures
ORDER BY created_at DESC, id DESC
LIMIT ?`
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
