package failures

import "time"

// Failure represents a persisted pipeline failure entry
type Failure struct {
	ID         int64     `json:"id"`
	Flow       string    `json:"flow"`  // analyze | underpayment
	Stage      string    `json:"stage"` // stage the flow stopped at
	Kind       string    `json:"kind"`
	AnalysisID string    `json:"analysisId,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}
