// Package db holds helpers shared by the mysql, postgres and sqlite backends.
package db

import (
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
)

// Columns JSON-encoded document columns of a policy_analyses row.
type Columns struct {
	PolicyData       []byte
	CoverageAnalysis []byte
	UnderpaymentRisk []byte // nil -> NULL
}

// Encode marshals the document fields of a.
func Encode(a *analyses.PolicyAnalysis) (Columns, error) {
	var c Columns
	var err error
	if c.PolicyData, err = json.Marshal(a.PolicyData); err != nil {
		return c, fmt.Errorf("encode policy_data: %w", err)
	}
	if c.CoverageAnalysis, err = json.Marshal(a.CoverageAnalysis); err != nil {
		return c, fmt.Errorf("encode coverage_analysis: %w", err)
	}
	if a.UnderpaymentRisk != nil {
		if c.UnderpaymentRisk, err = EncodeRisk(*a.UnderpaymentRisk); err != nil {
			return c, err
		}
	}
	return c, nil
}

func EncodeRisk(r analyses.UnderpaymentRisk) ([]byte, error) {
	r.Normalize()
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode underpayment_risk: %w", err)
	}
	return b, nil
}

// Decode fills the document fields of a from c.
func Decode(a *analyses.PolicyAnalysis, c Columns) error {
	if err := json.Unmarshal(c.PolicyData, &a.PolicyData); err != nil {
		return fmt.Errorf("decode policy_data of %s: %w", a.ID, err)
	}
	if err := json.Unmarshal(c.CoverageAnalysis, &a.CoverageAnalysis); err != nil {
		return fmt.Errorf("decode coverage_analysis of %s: %w", a.ID, err)
	}
	a.PolicyData.Normalize()
	a.CoverageAnalysis.Normalize()

	a.UnderpaymentRisk = nil
	if len(c.UnderpaymentRisk) > 0 && string(c.UnderpaymentRisk) != "null" {
		var r analyses.UnderpaymentRisk
		if err := json.Unmarshal(c.UnderpaymentRisk, &r); err != nil {
			return fmt.Errorf("decode underpayment_risk of %s: %w", a.ID, err)
		}
		r.Normalize()
		a.UnderpaymentRisk = &r
	}
	return nil
}

// ClampLimit bounds the failure log page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
