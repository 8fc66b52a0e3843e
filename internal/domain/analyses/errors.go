package analyses

import (
	"errors"
	"fmt"
)

// Error kinds. A failed flow always returns a *StageError that matches exactly
// one of these through errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrExtraction       = errors.New("extraction error")
	ErrStructuring      = errors.New("structuring error")
	ErrCoverageAnalysis = errors.New("coverage analysis error")
	ErrUnderpayment     = errors.New("underpayment analysis error")
	ErrNotFound         = errors.New("analysis not found")
	ErrStorage          = errors.New("storage error")
)

// Flow names
type Flow string

const (
	FlowAnalyze      Flow = "analyze"
	FlowUnderpayment Flow = "underpayment"
)

// Stage of a flow
type Stage string

const (
	StageReceived          Stage = "received"
	StageExtracting        Stage = "extracting"
	StageStructuring       Stage = "structuring"
	StageAnalyzingCoverage Stage = "analyzing_coverage"
	StageLoading           Stage = "loading"
	StageAnalyzing         Stage = "analyzing"
	StagePersisting        Stage = "persisting"
	StageCompleted         Stage = "completed"
)

// StageError is the Failed(stage, cause) state of a flow.
type StageError struct {
	Flow  Flow
	Stage Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed at %s: %v", e.Flow, e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s failed at %s: %v: %v", e.Flow, e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName short label of the error kind, used in logs and the failure log.
func KindName(kind error) string {
	switch kind {
	case ErrValidation:
		return "validation"
	case ErrExtraction:
		return "extraction"
	case ErrStructuring:
		return "structuring"
	case ErrCoverageAnalysis:
		return "coverage_analysis"
	case ErrUnderpayment:
		return "underpayment"
	case ErrNotFound:
		return "not_found"
	case ErrStorage:
		return "storage"
	default:
		return "unknown"
	}
}
