package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/infra/db"
)

type PolicyAnalysisRepository struct{ db *sql.DB }

func NewPolicyAnalysisRepository(conn *sql.DB) *PolicyAnalysisRepository {
	return &PolicyAnalysisRepository{db: conn}
}

const selectAnalysis = `
SELECT id, filename, state, policy_type, loss_description,
       policy_data, coverage_analysis, underpayment_risk,
       raw_pdf_text, pdf_object_key, created_at, updated_at
FROM policy_analyses`

func (r *PolicyAnalysisRepository) Create(ctx context.Context, a *domain.PolicyAnalysis) error {
	const q = `
INSERT INTO policy_analyses
 (id, filename, state, policy_type, loss_description,
  policy_data, coverage_analysis, underpayment_risk,
  raw_pdf_text, pdf_object_key, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6::jsonb,$7::jsonb,$8::jsonb,$9,$10,$11,$12)`
	cols, err := db.Encode(a)
	if err != nil {
		return err
	}
	var risk any
	if cols.UnderpaymentRisk != nil {
		risk = string(cols.UnderpaymentRisk)
	}
	_, err = r.db.ExecContext(ctx, q,
		string(a.ID), a.Filename, a.State, a.PolicyType, a.LossDescription,
		string(cols.PolicyData), string(cols.CoverageAnalysis), risk,
		a.RawPDFText, a.PDFObjectKey, a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	return err
}

func (r *PolicyAnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.PolicyAnalysis, error) {
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, selectAnalysis+` WHERE id = $1`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func (r *PolicyAnalysisRepository) List(ctx context.Context) ([]*domain.PolicyAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, selectAnalysis+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.PolicyAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PolicyAnalysisRepository) UpdateUnderpayment(ctx context.Context, id domain.AnalysisID, risk domain.UnderpaymentRisk, updatedAt time.Time) error {
	b, err := db.EncodeRisk(risk)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE policy_analyses SET underpayment_risk = $1::jsonb, updated_at = $2 WHERE id = $3`,
		string(b), updatedAt.UTC(), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*domain.PolicyAnalysis, error) {
	var (
		a                domain.PolicyAnalysis
		id               string
		cols             db.Columns
		created, updated time.Time
	)
	if err := s.Scan(&id, &a.Filename, &a.State, &a.PolicyType, &a.LossDescription,
		&cols.PolicyData, &cols.CoverageAnalysis, &cols.UnderpaymentRisk,
		&a.RawPDFText, &a.PDFObjectKey, &created, &updated); err != nil {
		return nil, err
	}
	a.ID = domain.AnalysisID(id)
	a.CreatedAt = created.UTC()
	a.UpdatedAt = updated.UTC()
	if err := db.Decode(&a, cols); err != nil {
		return nil, err
	}
	return &a, nil
}
