package sqlite

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
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO analysis_failures (flow, stage, kind, analysis_id, filename, message, created_at)
VALUES (?,?,?,?,?,?,?)`,
		f.Flow, f.Stage, f.Kind, f.AnalysisID, f.Filename, f.Message, created.UnixNano())
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		f.ID = id
	}
	return nil
}

// Recent newest first
func (r *FailureRepository) Recent(ctx context.Context, limit int) ([]*failures.Failure, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, flow, stage, kind, analysis_id, filename, message, created_at
FROM analysis_failures
ORDER BY created_at DESC, id DESC
LIMIT ?`, db.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*failures.Failure{}
	for rows.Next() {
		var f failures.Failure
		var created int64
		if err := rows.Scan(&f.ID, &f.Flow, &f.Stage, &f.Kind, &f.AnalysisID, &f.Filename, &f.Message, &created); err != nil {
			return nil, err
		}
		f.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, &f)
	}
	return out, rows.Err()
}
