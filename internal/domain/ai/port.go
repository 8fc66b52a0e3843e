package ai

import (
	"context"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
)

// Requester asks the model for structured data using fixed prompt templates.
type Requester interface {
	StructurePolicy(ctx context.Context, rawText string) (analyses.PolicyData, error)
	AnalyzeCoverage(ctx context.Context, policy analyses.PolicyData, lossDescription, jurisdiction string) (analyses.CoverageAnalysis, error)
	AnalyzeUnderpayment(ctx context.Context, policy analyses.PolicyData, lossDescription, carrierEstimate string) (analyses.UnderpaymentRisk, error)
}
