package analyses

import "time"

// AnalysisID identifier type
type AnalysisID string

// Limits coverage limits as stated on the declarations page
type Limits struct {
	Dwelling         Value `json:"dwelling"`
	OtherStructures  Value `json:"other_structures"`
	PersonalProperty Value `json:"personal_property"`
	LossOfUseALE     Value `json:"loss_of_use_ALE"`
	Liability        Value `json:"liability"`
	MedicalPayments  Value `json:"medical_payments"`
}

// Deductibles value object
type Deductibles struct {
	AllPeril      Value `json:"all_peril"`
	HurricaneWind Value `json:"hurricane_wind"`
	Hail          Value `json:"hail"`
	Special       Value `json:"special"`
}

// PolicyData is the structured form of the policy text.
type PolicyData struct {
	PolicyType      Value       `json:"policy_type"`
	FormsDetected   []string    `json:"forms_detected"`
	Limits          Limits      `json:"limits"`
	Deductibles     Deductibles `json:"deductibles"`
	KeyEndorsements []string    `json:"key_endorsements"`
	KeyExclusions   []string    `json:"key_exclusions"`
	Notes           Value       `json:"notes"`
}

// CoverageAnalysis describes how a loss lines up against a structured policy.
type CoverageAnalysis struct {
	CoverageSummary   string   `json:"coverage_summary"`
	CoveredAspects    []string `json:"covered_aspects"`
	ExcludedAspects   []string `json:"excluded_aspects"`
	AmbiguousPoints   []string `json:"ambiguous_points"`
	QuestionsForHuman []string `json:"questions_for_human"`
}

// UnderpaymentRisk is the result of checking a carrier estimate.
type UnderpaymentRisk struct {
	MissingCategories    []string `json:"missing_categories"`
	SuspiciousDeductions []string `json:"suspicious_deductions"`
	ScopeConcerns        []string `json:"scope_concerns"`
	Summary              string   `json:"summary"`
}

// Aggregate Root: PolicyAnalysis
type PolicyAnalysis struct {
	ID               AnalysisID        `json:"id"`
	Filename         string            `json:"filename"`
	State            string            `json:"state"`
	PolicyType       string            `json:"policyType"`
	LossDescription  string            `json:"lossDescription"`
	PolicyData       PolicyData        `json:"policyData"`
	CoverageAnalysis CoverageAnalysis  `json:"coverageAnalysis"`
	UnderpaymentRisk *UnderpaymentRisk `json:"underpaymentRisk"`
	RawPDFText       string            `json:"rawPdfText"`
	PDFObjectKey     string            `json:"pdfObjectKey,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Normalize replaces nil lists with empty ones so they serialize as [] and
// cleans every string with CleanText.
func (p *PolicyData) Normalize() {
	for _, v := range []*Value{
		&p.PolicyType, &p.Notes,
		&p.Limits.Dwelling, &p.Limits.OtherStructures, &p.Limits.PersonalProperty,
		&p.Limits.LossOfUseALE, &p.Limits.Liability, &p.Limits.MedicalPayments,
		&p.Deductibles.AllPeril, &p.Deductibles.HurricaneWind, &p.Deductibles.Hail, &p.Deductibles.Special,
	} {
		v.clean()
	}
	p.FormsDetected = cleanList(p.FormsDetected)
	p.KeyEndorsements = cleanList(p.KeyEndorsements)
	p.KeyExclusions = cleanList(p.KeyExclusions)
}

func (c *CoverageAnalysis) Normalize() {
	c.CoverageSummary = CleanText(c.CoverageSummary)
	c.CoveredAspects = cleanList(c.CoveredAspects)
	c.ExcludedAspects = cleanList(c.ExcludedAspects)
	c.AmbiguousPoints = cleanList(c.AmbiguousPoints)
	c.QuestionsForHuman = cleanList(c.QuestionsForHuman)
}

func (u *UnderpaymentRisk) Normalize() {
	u.Summary = CleanText(u.Summary)
	u.MissingCategories = cleanList(u.MissingCategories)
	u.SuspiciousDeductions = cleanList(u.SuspiciousDeductions)
	u.ScopeConcerns = cleanList(u.ScopeConcerns)
}
