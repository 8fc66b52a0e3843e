package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Reply schemas. They check the shape the templates ask for: required keys
// present, lists of strings, free-text values allowed to be string/number/null.
// Extra keys are tolerated.
var (
	PolicyDataSchema       = mustCompile("policy_data.json", policyDataSchema)
	CoverageAnalysisSchema = mustCompile("coverage_analysis.json", coverageAnalysisSchema)
	UnderpaymentRiskSchema = mustCompile("underpayment_risk.json", underpaymentRiskSchema)
)

const policyDataSchema = `{
  "type": "object",
  "required": ["policy_type", "forms_detected", "limits", "deductibles", "key_endorsements", "key_exclusions"],
  "properties": {
    "policy_type": {"type": ["string", "null"]},
    "forms_detected": {"$ref": "#/$defs/list"},
    "limits": {
      "type": "object",
      "required": ["dwelling", "other_structures", "personal_property", "loss_of_use_ALE", "liability", "medical_payments"],
      "additionalProperties": {"$ref": "#/$defs/text"}
    },
    "deductibles": {
      "type": "object",
      "required": ["all_peril", "hurricane_wind", "hail", "special"],
      "additionalProperties": {"$ref": "#/$defs/text"}
    },
    "key_endorsements": {"$ref": "#/$defs/list"},
    "key_exclusions": {"$ref": "#/$defs/list"},
    "notes": {"$ref": "#/$defs/text"}
  },
  "$defs": {
    "text": {"type": ["string", "number", "null"]},
    "list": {"type": "array", "items": {"type": "string"}}
  }
}`

const coverageAnalysisSchema = `{
  "type": "object",
  "required": ["coverage_summary", "covered_aspects", "excluded_aspects", "ambiguous_points", "questions_for_human"],
  "properties": {
    "coverage_summary": {"type": "string"},
    "covered_aspects": {"$ref": "#/$defs/list"},
    "excluded_aspects": {"$ref": "#/$defs/list"},
    "ambiguous_points": {"$ref": "#/$defs/list"},
    "questions_for_human": {"$ref": "#/$defs/list"}
  },
  "$defs": {
    "list": {"type": "array", "items": {"type": "string"}}
  }
}`

const underpaymentRiskSchema = `{
  "type": "object",
  "required": ["missing_categories", "suspicious_deductions", "scope_concerns", "summary"],
  "properties": {
    "missing_categories": {"$ref": "#/$defs/list"},
    "suspicious_deductions": {"$ref": "#/$defs/list"},
    "scope_concerns": {"$ref": "#/$defs/list"},
    "summary": {"type": "string"}
  },
  "$defs": {
    "list": {"type": "array", "items": {"type": "string"}}
  }
}`

func mustCompile(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("prompt: add schema %s: %v", name, err))
	}
	s, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("prompt: compile schema %s: %v", name, err))
	}
	return s
}

// Validate parses data as JSON and checks it against schema.
func Validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("reply does not match schema: %w", err)
	}
	return nil
}
