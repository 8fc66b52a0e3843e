// Package testutil holds in-memory doubles for the analyses ports.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/failures"
)

// Repo is an in-memory analyses.Repository.
type Repo struct {
	mu      sync.Mutex
	rows    map[analyses.AnalysisID]analyses.PolicyAnalysis
	Creates int
	Updates int

	CreateErr error
	GetErr    error
	ListErr   error
	UpdateErr error
}

func NewRepo() *Repo {
	return &Repo{rows: map[analyses.AnalysisID]analyses.PolicyAnalysis{}}
}

func (r *Repo) Create(_ context.Context, a *analyses.PolicyAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Creates++
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.rows[a.ID] = *a
	return nil
}

func (r *Repo) Get(_ context.Context, id analyses.AnalysisID) (*analyses.PolicyAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	a, ok := r.rows[id]
	if !ok {
		return nil, analyses.ErrNotFound
	}
	return &a, nil
}

func (r *Repo) List(_ context.Context) ([]*analyses.PolicyAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]*analyses.PolicyAnalysis, 0, len(r.rows))
	for _, a := range r.rows {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) UpdateUnderpayment(_ context.Context, id analyses.AnalysisID, risk analyses.UnderpaymentRisk, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updates++
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	a, ok := r.rows[id]
	if !ok {
		return analyses.ErrNotFound
	}
	a.UnderpaymentRisk = &risk
	a.UpdatedAt = updatedAt
	r.rows[id] = a
	return nil
}

// Put seeds a record directly.
func (r *Repo) Put(a analyses.PolicyAnalysis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[a.ID] = a
}

// Len number of stored records.
func (r *Repo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// FailureLog is an in-memory failures.Repository.
type FailureLog struct {
	mu      sync.Mutex
	Entries []failures.Failure
	SaveErr error
}

func (f *FailureLog) Save(_ context.Context, e *failures.Failure) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveErr != nil {
		return f.SaveErr
	}
	e.ID = int64(len(f.Entries) + 1)
	f.Entries = append(f.Entries, *e)
	return nil
}

func (f *FailureLog) Recent(_ context.Context, limit int) ([]*failures.Failure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*failures.Failure{}
	for i := len(f.Entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.Entries[i]
		out = append(out, &e)
	}
	return out, nil
}

// Last returns the most recent entry, or nil.
func (f *FailureLog) Last() *failures.Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Entries) == 0 {
		return nil
	}
	e := f.Entries[len(f.Entries)-1]
	return &e
}

// Extractor returns Text or Err.
type Extractor struct {
	Text  string
	Err   error
	Calls int
	Got   []byte
}

func (e *Extractor) Extract(_ context.Context, _ string, pdf []byte) (string, error) {
	e.Calls++
	e.Got = pdf
	if e.Err != nil {
		return "", e.Err
	}
	return e.Text, nil
}

// Inspector returns Pages or Err.
type Inspector struct {
	Pages int
	Err   error
	Calls int
}

func (i *Inspector) PageCount(_ context.Context, _ []byte) (int, error) {
	i.Calls++
	return i.Pages, i.Err
}

// Requester is a canned ai.Requester.
type Requester struct {
	Policy   analyses.PolicyData
	Coverage analyses.CoverageAnalysis
	Risks    []analyses.UnderpaymentRisk

	StructureErr error
	CoverageErr  error
	RiskErr      error

	StructureCalls int
	CoverageCalls  int
	RiskCalls      int

	LastText         string
	LastJurisdiction string
	LastEstimate     string
}

func (r *Requester) StructurePolicy(_ context.Context, rawText string) (analyses.PolicyData, error) {
	r.StructureCalls++
	r.LastText = rawText
	if r.StructureErr != nil {
		return analyses.PolicyData{}, r.StructureErr
	}
	return r.Policy, nil
}

func (r *Requester) AnalyzeCoverage(_ context.Context, _ analyses.PolicyData, _ string, jurisdiction string) (analyses.CoverageAnalysis, error) {
	r.CoverageCalls++
	r.LastJurisdiction = jurisdiction
	if r.CoverageErr != nil {
		return analyses.CoverageAnalysis{}, r.CoverageErr
	}
	return r.Coverage, nil
}

// AnalyzeUnderpayment answers with Risks in order, repeating the last one.
func (r *Requester) AnalyzeUnderpayment(_ context.Context, _ analyses.PolicyData, _ string, estimate string) (analyses.UnderpaymentRisk, error) {
	r.RiskCalls++
	r.LastEstimate = estimate
	if r.RiskErr != nil {
		return analyses.UnderpaymentRisk{}, r.RiskErr
	}
	if len(r.Risks) == 0 {
		return analyses.UnderpaymentRisk{}, nil
	}
	i := r.RiskCalls - 1
	if i >= len(r.Risks) {
		i = len(r.Risks) - 1
	}
	return r.Risks[i], nil
}

// OutboundCalls total model calls made.
func (r *Requester) OutboundCalls() int {
	return r.StructureCalls + r.CoverageCalls + r.RiskCalls
}

// Archive is an in-memory analyses.PDFArchive.
type Archive struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Removed []string
	PutErr  error
}

func NewArchive() *Archive {
	return &Archive{Objects: map[string][]byte{}}
}

func (a *Archive) Put(_ context.Context, key string, pdf []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.PutErr != nil {
		return a.PutErr
	}
	a.Objects[key] = pdf
	return nil
}

func (a *Archive) Remove(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.Objects, key)
	a.Removed = append(a.Removed, key)
	return nil
}

// Clock is a manual clock.
type Clock struct {
	mu sync.Mutex
	T  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{T: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.T
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.T = c.T.Add(d)
}

// SamplePolicy is a structured HO-3 policy used across tests.
func SamplePolicy() analyses.PolicyData {
	p := analyses.PolicyData{
		PolicyType:    "HO-3",
		FormsDetected: []string{"HO 00 03 05 11"},
		Limits: analyses.Limits{
			Dwelling:         "$450,000",
			OtherStructures:  "$45,000",
			PersonalProperty: "$225,000",
			LossOfUseALE:     "$90,000",
			Liability:        "$300,000",
			MedicalPayments:  "$5,000",
		},
		Deductibles: analyses.Deductibles{
			AllPeril:      "$2,500",
			HurricaneWind: "2%",
			Hail:          "Not specified",
			Special:       "Not specified",
		},
		KeyExclusions: []string{"Flood", "Earth movement"},
	}
	p.Normalize()
	return p
}

// SampleCoverage is a coverage analysis matching SamplePolicy.
func SampleCoverage() analyses.CoverageAnalysis {
	c := analyses.CoverageAnalysis{
		CoverageSummary: "Wind damage to the roof is likely covered subject to the hurricane deductible.",
		CoveredAspects:  []string{"Roof decking", "Interior water damage from roof opening"},
		AmbiguousPoints: []string{"Whether the storm was a named hurricane"},
	}
	c.Normalize()
	return c
}
