package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
)

const jsonOnly = "Return ONLY one valid JSON object. No markdown, no code fences, no commentary."

// StructureSystemPrompt sets the role for the structuring call.
func StructureSystemPrompt() string {
	return `You are an expert insurance policy analyst. You read homeowners and property policy documents and extract their declarations and key provisions into a fixed JSON format. ` + jsonOnly
}

// StructureUserPrompt asks for the policyData object built from the raw PDF text.
func StructureUserPrompt(rawText string) string {
	return fmt.Sprintf(`Extract and structure the insurance policy text below into a JSON object with exactly this format:

{
  "policy_type": "string (e.g., HO-3)",
  "forms_detected": ["list of form numbers"],
  "limits": {
    "dwelling": "string",
    "other_structures": "string",
    "personal_property": "string",
    "loss_of_use_ALE": "string",
    "liability": "string",
    "medical_payments": "string"
  },
  "deductibles": {
    "all_peril": "string",
    "hurricane_wind": "string",
    "hail": "string",
    "special": "string"
  },
  "key_endorsements": ["list of endorsements"],
  "key_exclusions": ["list of exclusions"],
  "notes": "any helpful comments"
}

Use "Not specified" for any limit or deductible the text does not state.

Policy text:
%s

%s`, rawText, jsonOnly)
}

// CoverageSystemPrompt sets the role for the coverage analysis call.
func CoverageSystemPrompt() string {
	return `You are an expert insurance claims analyst. You compare a described loss against a structured policy and explain what is likely covered, excluded or unclear under the law of the given jurisdiction. ` + jsonOnly
}

// CoverageUserPrompt asks for the coverageAnalysis object.
func CoverageUserPrompt(policy analyses.PolicyData, lossDescription, jurisdiction string) string {
	return fmt.Sprintf(`Based on the structured policy and loss description below, provide a coverage analysis.

POLICY DATA:
%s

LOSS DESCRIPTION:
%s

JURISDICTION: %s

Respond with a JSON object in exactly this format:
{
  "coverage_summary": "high-level narrative analysis",
  "covered_aspects": ["likely covered items"],
  "excluded_aspects": ["excluded or limited items"],
  "ambiguous_points": ["items needing verification"],
  "questions_for_human": ["key questions for the adjuster"]
}

%s`, indentJSON(policy), lossDescription, jurisdiction, jsonOnly)
}

// UnderpaymentSystemPrompt sets the role for the estimate review call.
func UnderpaymentSystemPrompt() string {
	return `You are an expert insurance adjuster reviewing a carrier's claim estimate for underpayment against the policy and the described loss. ` + jsonOnly
}

// UnderpaymentUserPrompt asks for the underpaymentRisk object.
func UnderpaymentUserPrompt(policy analyses.PolicyData, lossDescription, carrierEstimate string) string {
	return fmt.Sprintf(`Analyze the carrier's estimate against the policy for underpayment risks.

POLICY DATA:
%s

LOSS DESCRIPTION:
%s

CARRIER ESTIMATE:
%s

Respond with a JSON object in exactly this format:
{
  "missing_categories": ["line items or coverages that appear to be missing"],
  "suspicious_deductions": ["questionable depreciation or deductions"],
  "scope_concerns": ["scope of work or quality concerns"],
  "summary": "brief overall assessment"
}

%s`, indentJSON(policy), lossDescription, carrierEstimate, jsonOnly)
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
