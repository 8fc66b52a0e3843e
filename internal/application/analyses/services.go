package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/policy-analyzer/internal/application"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/ai"
	domain "github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/failures"
)

const (
	defaultFilename     = "policy.pdf"
	failureWriteTimeout = 5 * time.Second
)

// PipelineObserver receives the outcome of every flow run.
// outcome is "completed" or the stage the flow failed at.
type PipelineObserver interface {
	ObservePipeline(flow, outcome string, elapsed time.Duration)
}

// Service implements the analyze and underpayment use-cases.
// Safe for concurrent use; it holds no per-request state.
type Service struct {
	Repo      domain.Repository
	Failures  failures.Repository // optional
	Extractor domain.Extractor
	Inspector domain.Inspector // optional
	Requester ai.Requester
	Archive   domain.PDFArchive // optional
	Observer  PipelineObserver  // optional
	Clock     application.Clock
	Log       *zap.Logger
	MaxPages  int
}

//
// ==== USE CASES ====
//

// AnalyzeCommand input of the primary flow
type AnalyzeCommand struct {
	Filename        string
	PDF             []byte
	State           string
	PolicyType      string
	LossDescription string
}

type AnalyzeResult struct {
	ID               string                  `json:"id"`
	PolicyData       domain.PolicyData       `json:"policyData"`
	CoverageAnalysis domain.CoverageAnalysis `json:"coverageAnalysis"`
}

// UnderpaymentCommand input of the estimate check
type UnderpaymentCommand struct {
	ID           string
	EstimateText string
}

type UnderpaymentResult struct {
	UnderpaymentRisk domain.UnderpaymentRisk `json:"underpaymentRisk"`
}

// run tracks one flow execution.
type run struct {
	s        *Service
	flow     domain.Flow
	stage    domain.Stage
	start    time.Time
	log      *zap.Logger
	id       string
	filename string
}

func (s *Service) begin(flow domain.Flow, fields ...zap.Field) *run {
	r := &run{s: s, flow: flow, stage: domain.StageReceived, start: time.Now(), log: s.logger().With(append(fields, zap.String("flow", string(flow)))...)}
	r.log.Debug("stage", zap.String("stage", string(r.stage)))
	return r
}

func (r *run) enter(stage domain.Stage) {
	r.stage = stage
	r.log.Debug("stage", zap.String("stage", string(stage)))
}

// fail builds the StageError, logs it and writes it to the failure log.
func (r *run) fail(ctx context.Context, kind, cause error) error {
	serr := &domain.StageError{Flow: r.flow, Stage: r.stage, Kind: kind, Err: cause}
	elapsed := time.Since(r.start)

	lvl := r.log.Error
	if kind == domain.ErrValidation || kind == domain.ErrNotFound {
		lvl = r.log.Warn
	}
	lvl("flow failed",
		zap.String("stage", string(r.stage)),
		zap.String("kind", domain.KindName(kind)),
		zap.Duration("elapsed", elapsed),
		zap.Bool("transient", ai.IsTransient(cause)),
		zap.Bool("retryable", ai.IsRetryable(cause)),
		zap.Error(cause),
	)
	if r.s.Observer != nil {
		r.s.Observer.ObservePipeline(string(r.flow), string(r.stage), elapsed)
	}

	if r.s.Failures != nil {
		// detached supaya tetap tercatat walau request sudah cancel
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
		defer cancel()
		entry := &failures.Failure{
			Flow:       string(r.flow),
			Stage:      string(r.stage),
			Kind:       domain.KindName(kind),
			AnalysisID: r.id,
			Filename:   r.filename,
			Message:    domain.CleanText(serr.Error()),
			CreatedAt:  r.s.now(),
		}
		if err := r.s.Failures.Save(fctx, entry); err != nil {
			r.log.Warn("failure log write failed", zap.Error(err))
		}
	}
	return serr
}

func (r *run) done() {
	r.enter(domain.StageCompleted)
	elapsed := time.Since(r.start)
	r.log.Info("flow completed", zap.String("analysis_id", r.id), zap.Duration("elapsed", elapsed))
	if r.s.Observer != nil {
		r.s.Observer.ObservePipeline(string(r.flow), string(domain.StageCompleted), elapsed)
	}
}

// Analyze runs the primary flow: extract, structure, analyze coverage, persist.
// Nothing is persisted unless every stage succeeds.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (AnalyzeResult, error) {
	filename := strings.TrimSpace(domain.CleanText(cmd.Filename))
	if filename == "" {
		filename = defaultFilename
	}
	r := s.begin(domain.FlowAnalyze, zap.String("filename", filename))
	r.filename = domain.Truncate(filename, domain.MaxFilenameLen)

	state := strings.TrimSpace(domain.CleanText(cmd.State))
	policyType := strings.TrimSpace(domain.CleanText(cmd.PolicyType))
	loss := strings.TrimSpace(domain.CleanText(cmd.LossDescription))

	var missing []string
	if len(cmd.PDF) == 0 {
		missing = append(missing, "file")
	}
	if state == "" {
		missing = append(missing, "state")
	}
	if policyType == "" {
		missing = append(missing, "policyType")
	}
	if loss == "" {
		missing = append(missing, "lossDescription")
	}
	if len(missing) > 0 {
		return AnalyzeResult{}, r.fail(ctx, domain.ErrValidation, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	if err := checkLengths(
		lengthRule{"filename", filename, domain.MaxFilenameLen},
		lengthRule{"state", state, domain.MaxStateLen},
		lengthRule{"policyType", policyType, domain.MaxPolicyTypeLen},
	); err != nil {
		return AnalyzeResult{}, r.fail(ctx, domain.ErrValidation, err)
	}

	if s.Inspector != nil {
		pages, err := s.Inspector.PageCount(ctx, cmd.PDF)
		if err != nil {
			return AnalyzeResult{}, r.fail(ctx, domain.ErrValidation, fmt.Errorf("file is not a readable PDF: %w", err))
		}
		if s.MaxPages > 0 && pages > s.MaxPages {
			return AnalyzeResult{}, r.fail(ctx, domain.ErrValidation, fmt.Errorf("policy has %d pages, limit is %d", pages, s.MaxPages))
		}
		r.log.Debug("pdf inspected", zap.Int("pages", pages))
	}

	r.enter(domain.StageExtracting)
	text, err := s.Extractor.Extract(ctx, filename, cmd.PDF)
	if err != nil {
		return AnalyzeResult{}, r.fail(ctx, domain.ErrExtraction, err)
	}
	text = domain.CleanText(text)

	r.enter(domain.StageStructuring)
	policy, err := s.Requester.StructurePolicy(ctx, text)
	if err != nil {
		return AnalyzeResult{}, r.fail(ctx, domain.ErrStructuring, err)
	}
	policy.Normalize()

	r.enter(domain.StageAnalyzingCoverage)
	coverage, err := s.Requester.AnalyzeCoverage(ctx, policy, loss, state)
	if err != nil {
		return AnalyzeResult{}, r.fail(ctx, domain.ErrCoverageAnalysis, err)
	}
	coverage.Normalize()

	r.enter(domain.StagePersisting)
	id := uuid.New().String()
	r.id = id
	now := s.now()
	rec := &domain.PolicyAnalysis{
		ID:               domain.AnalysisID(id),
		Filename:         filename,
		State:            state,
		PolicyType:       policyType,
		LossDescription:  loss,
		PolicyData:       policy,
		CoverageAnalysis: coverage,
		RawPDFText:       text,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if s.Archive != nil {
		key := domain.ArchiveKey(id, filename)
		if err := s.Archive.Put(ctx, key, cmd.PDF); err != nil {
			return AnalyzeResult{}, r.fail(ctx, domain.ErrStorage, err)
		}
		rec.PDFObjectKey = key
	}

	if err := s.Repo.Create(ctx, rec); err != nil {
		if rec.PDFObjectKey != "" {
			// best-effort, jangan sampai ada object yatim
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
			if rerr := s.Archive.Remove(rctx, rec.PDFObjectKey); rerr != nil {
				r.log.Warn("archive cleanup failed", zap.String("key", rec.PDFObjectKey), zap.Error(rerr))
			}
			cancel()
		}
		return AnalyzeResult{}, r.fail(ctx, domain.ErrStorage, err)
	}

	r.done()
	return AnalyzeResult{ID: id, PolicyData: policy, CoverageAnalysis: coverage}, nil
}

// CheckUnderpayment checks a carrier estimate against a stored analysis and
// overwrites its underpayment risk. Repeatable; the last write wins.
func (s *Service) CheckUnderpayment(ctx context.Context, cmd UnderpaymentCommand) (UnderpaymentResult, error) {
	id := strings.TrimSpace(cmd.ID)
	r := s.begin(domain.FlowUnderpayment, zap.String("analysis_id", id))
	r.id = domain.Truncate(id, domain.MaxIDLen)

	var missing []string
	if id == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(cmd.EstimateText) == "" {
		missing = append(missing, "estimateText")
	}
	if len(missing) > 0 {
		return UnderpaymentResult{}, r.fail(ctx, domain.ErrValidation, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	if err := checkLengths(lengthRule{"id", id, domain.MaxIDLen}); err != nil {
		return UnderpaymentResult{}, r.fail(ctx, domain.ErrValidation, err)
	}

	r.enter(domain.StageLoading)
	rec, err := s.Repo.Get(ctx, domain.AnalysisID(id))
	if err != nil {
		return UnderpaymentResult{}, r.fail(ctx, storageKind(err), err)
	}
	r.filename = rec.Filename

	r.enter(domain.StageAnalyzing)
	risk, err := s.Requester.AnalyzeUnderpayment(ctx, rec.PolicyData, rec.LossDescription, cmd.EstimateText)
	if err != nil {
		return UnderpaymentResult{}, r.fail(ctx, domain.ErrUnderpayment, err)
	}
	risk.Normalize()

	r.enter(domain.StagePersisting)
	updatedAt := s.now()
	if floor := rec.UpdatedAt.Add(application.Precision); updatedAt.Before(floor) {
		updatedAt = floor
	}
	if err := s.Repo.UpdateUnderpayment(ctx, rec.ID, risk, updatedAt); err != nil {
		return UnderpaymentResult{}, r.fail(ctx, storageKind(err), err)
	}

	r.done()
	return UnderpaymentResult{UnderpaymentRisk: risk}, nil
}

// Get returns one analysis.
func (s *Service) Get(ctx context.Context, id string) (*domain.PolicyAnalysis, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	rec, err := s.Repo.Get(ctx, domain.AnalysisID(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return rec, nil
}

// List returns every analysis, oldest first. Never nil.
func (s *Service) List(ctx context.Context) ([]*domain.PolicyAnalysis, error) {
	items, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if items == nil {
		items = []*domain.PolicyAnalysis{}
	}
	return items, nil
}

// RecentFailures newest first. Empty when no failure log is configured.
func (s *Service) RecentFailures(ctx context.Context, limit int) ([]*failures.Failure, error) {
	if s.Failures == nil {
		return []*failures.Failure{}, nil
	}
	items, err := s.Failures.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	if items == nil {
		items = []*failures.Failure{}
	}
	return items, nil
}

type lengthRule struct {
	field string
	value string
	limit int
}

func checkLengths(rules ...lengthRule) error {
	var long []string
	for _, rl := range rules {
		if domain.TooLong(rl.value, rl.limit) {
			long = append(long, fmt.Sprintf("%s (max %d)", rl.field, rl.limit))
		}
	}
	if len(long) > 0 {
		return fmt.Errorf("fields too long: %s", strings.Join(long, ", "))
	}
	return nil
}

func storageKind(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return domain.ErrStorage
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return application.StorageTime(s.Clock.Now())
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
