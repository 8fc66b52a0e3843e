package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
)

const validPolicy = `{
  "policy_type": "HO-3",
  "forms_detected": ["HO 00 03 05 11"],
  "limits": {
    "dwelling": "$450,000",
    "other_structures": "$45,000",
    "personal_property": 225000,
    "loss_of_use_ALE": "$90,000",
    "liability": "$300,000",
    "medical_payments": null
  },
  "deductibles": {"all_peril": "$2,500", "hurricane_wind": "2%", "hail": "Not specified", "special": "Not specified"},
  "key_endorsements": ["Water backup"],
  "key_exclusions": ["Flood", "Earth movement"],
  "notes": "Replacement cost on dwelling"
}`

func TestPolicyDataSchema(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"valid", validPolicy, false},
		{"notes optional", strings.Replace(validPolicy, `"notes": "Replacement cost on dwelling"`, `"extra": true`, 1), false},
		{"missing limits", `{"policy_type":"HO-3","forms_detected":[],"deductibles":{"all_peril":"","hurricane_wind":"","hail":"","special":""},"key_endorsements":[],"key_exclusions":[]}`, true},
		{"missing dwelling", strings.Replace(validPolicy, `"dwelling": "$450,000",`, ``, 1), true},
		{"missing hail", strings.Replace(validPolicy, `"hail": "Not specified",`, ``, 1), true},
		{"list of objects", strings.Replace(validPolicy, `["Water backup"]`, `[{"name":"Water backup"}]`, 1), true},
		{"not json", "Sure! Here is the policy.", true},
		{"array root", `[]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(PolicyDataSchema, []byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCoverageAndUnderpaymentSchemas(t *testing.T) {
	coverage := `{"coverage_summary":"Likely covered","covered_aspects":["roof"],"excluded_aspects":[],"ambiguous_points":[],"questions_for_human":["date of loss?"]}`
	assert.NoError(t, Validate(CoverageAnalysisSchema, []byte(coverage)))
	assert.Error(t, Validate(CoverageAnalysisSchema, []byte(`{"coverage_summary":"x"}`)))

	risk := `{"missing_categories":["O&P"],"suspicious_deductions":[],"scope_concerns":[],"summary":"Low risk"}`
	assert.NoError(t, Validate(UnderpaymentRiskSchema, []byte(risk)))
	assert.Error(t, Validate(UnderpaymentRiskSchema, []byte(`{"missing_categories":[],"summary":"x"}`)))
	assert.Error(t, Validate(UnderpaymentRiskSchema, []byte(`{"missing_categories":[],"suspicious_deductions":[],"scope_concerns":[],"summary":5}`)))
}

func TestUserPromptsEmbedInputs(t *testing.T) {
	p := analyses.PolicyData{PolicyType: "HO-3"}
	p.Limits.Dwelling = "$450,000"

	structure := StructureUserPrompt("Dwelling limit $450,000")
	assert.Contains(t, structure, "Dwelling limit $450,000")
	assert.Contains(t, structure, `"loss_of_use_ALE"`)

	coverage := CoverageUserPrompt(p, "Hail damaged the roof", "TX")
	assert.Contains(t, coverage, `"dwelling": "$450,000"`)
	assert.Contains(t, coverage, "Hail damaged the roof")
	assert.Contains(t, coverage, "JURISDICTION: TX")

	under := UnderpaymentUserPrompt(p, "Hail damaged the roof", "Roof: $8,000")
	assert.Contains(t, under, "CARRIER ESTIMATE:\nRoof: $8,000")
}
