package analyses

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/ai"
	domain "github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/testutil"
)

var (
	t0      = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	somePDF = []byte("%PDF-1.7 fake policy")
)

type fixture struct {
	svc       *Service
	repo      *testutil.Repo
	fails     *testutil.FailureLog
	extractor *testutil.Extractor
	inspector *testutil.Inspector
	requester *testutil.Requester
	archive   *testutil.Archive
	clock     *testutil.Clock
	observed  []string
}

func (f *fixture) ObservePipeline(flow, outcome string, _ time.Duration) {
	f.observed = append(f.observed, flow+":"+outcome)
}

func newFixture() *fixture {
	f := &fixture{
		repo:      testutil.NewRepo(),
		fails:     &testutil.FailureLog{},
		extractor: &testutil.Extractor{Text: "HOMEOWNERS POLICY DECLARATIONS\nDwelling $450,000"},
		inspector: &testutil.Inspector{Pages: 12},
		requester: &testutil.Requester{
			Policy:   testutil.SamplePolicy(),
			Coverage: testutil.SampleCoverage(),
		},
		archive: testutil.NewArchive(),
		clock:   testutil.NewClock(t0),
	}
	f.svc = &Service{
		Repo:      f.repo,
		Failures:  f.fails,
		Extractor: f.extractor,
		Inspector: f.inspector,
		Requester: f.requester,
		Archive:   f.archive,
		Observer:  f,
		Clock:     f.clock,
		MaxPages:  200,
	}
	return f
}

func validCommand() AnalyzeCommand {
	return AnalyzeCommand{
		Filename:        "ho3.pdf",
		PDF:             somePDF,
		State:           "FL",
		PolicyType:      "HO-3",
		LossDescription: "Hurricane winds tore off part of the roof.",
	}
}

func requireStage(t *testing.T, err error, stage domain.Stage, kind error) {
	t.Helper()
	require.Error(t, err)
	var serr *domain.StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, stage, serr.Stage)
	assert.ErrorIs(t, err, kind)
}

func TestAnalyze_Success(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Analyze(context.Background(), validCommand())
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, testutil.SamplePolicy(), res.PolicyData)
	assert.Equal(t, testutil.SampleCoverage(), res.CoverageAnalysis)
	assert.Equal(t, "FL", f.requester.LastJurisdiction)
	assert.Equal(t, f.extractor.Text, f.requester.LastText)

	rec, err := f.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "ho3.pdf", rec.Filename)
	assert.Equal(t, "HO-3", rec.PolicyType)
	assert.Equal(t, f.extractor.Text, rec.RawPDFText)
	assert.Nil(t, rec.UnderpaymentRisk)
	assert.Equal(t, t0, rec.CreatedAt)
	assert.Equal(t, t0, rec.UpdatedAt)
	assert.Equal(t, "policies/"+res.ID+"/ho3.pdf", rec.PDFObjectKey)
	assert.Equal(t, somePDF, f.archive.Objects[rec.PDFObjectKey])

	assert.Empty(t, f.fails.Entries)
	assert.Equal(t, []string{"analyze:completed"}, f.observed)
}

func TestAnalyze_DefaultFilename(t *testing.T) {
	f := newFixture()
	cmd := validCommand()
	cmd.Filename = "  "

	res, err := f.svc.Analyze(context.Background(), cmd)
	require.NoError(t, err)
	rec, err := f.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "policy.pdf", rec.Filename)
}

func TestAnalyze_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AnalyzeCommand)
		want   []string
	}{
		{"no file", func(c *AnalyzeCommand) { c.PDF = nil }, []string{"file"}},
		{"no state", func(c *AnalyzeCommand) { c.State = "" }, []string{"state"}},
		{"blank policy type", func(c *AnalyzeCommand) { c.PolicyType = "   " }, []string{"policyType"}},
		{"no loss", func(c *AnalyzeCommand) { c.LossDescription = "" }, []string{"lossDescription"}},
		{"everything", func(c *AnalyzeCommand) { *c = AnalyzeCommand{} }, []string{"file", "state", "policyType", "lossDescription"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			cmd := validCommand()
			tt.mutate(&cmd)

			_, err := f.svc.Analyze(context.Background(), cmd)
			requireStage(t, err, domain.StageReceived, domain.ErrValidation)
			for _, field := range tt.want {
				assert.Contains(t, err.Error(), field)
			}

			assert.Zero(t, f.extractor.Calls)
			assert.Zero(t, f.requester.OutboundCalls())
			assert.Zero(t, f.inspector.Calls)
			assert.Zero(t, f.repo.Creates)
			require.Len(t, f.fails.Entries, 1)
			assert.Equal(t, "validation", f.fails.Entries[0].Kind)
		})
	}
}

func TestAnalyze_FieldTooLong(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AnalyzeCommand)
		want   string
	}{
		{"filename", func(c *AnalyzeCommand) { c.Filename = strings.Repeat("f", 509) + ".pdf" }, "filename (max 512)"},
		{"state", func(c *AnalyzeCommand) { c.State = strings.Repeat("X", 5000) }, "state (max 64)"},
		{"policy type", func(c *AnalyzeCommand) { c.PolicyType = strings.Repeat("H", 129) }, "policyType (max 128)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			cmd := validCommand()
			tt.mutate(&cmd)

			_, err := f.svc.Analyze(context.Background(), cmd)
			requireStage(t, err, domain.StageReceived, domain.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)

			assert.Zero(t, f.inspector.Calls)
			assert.Zero(t, f.extractor.Calls)
			assert.Zero(t, f.requester.OutboundCalls())
			assert.Zero(t, f.repo.Creates)
			require.Len(t, f.fails.Entries, 1)
			assert.LessOrEqual(t, len([]rune(f.fails.Entries[0].Filename)), domain.MaxFilenameLen)
		})
	}
}

func TestAnalyze_LengthLimitsCountCharacters(t *testing.T) {
	f := newFixture()
	cmd := validCommand()
	cmd.Filename = strings.Repeat("é", 508) + ".pdf"
	cmd.State = strings.Repeat("ü", domain.MaxStateLen)
	cmd.PolicyType = strings.Repeat("P", domain.MaxPolicyTypeLen)

	res, err := f.svc.Analyze(context.Background(), cmd)
	require.NoError(t, err)
	rec, err := f.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, cmd.State, rec.State)
}

func TestAnalyze_StoresTextWithoutNUL(t *testing.T) {
	f := newFixture()
	f.extractor.Text = "DECLARATIONS\x00 Dwelling \xff$450,000"
	f.requester.Policy.Notes = "wind\x00 only"
	f.requester.Policy.KeyExclusions = []string{"Flo\x00od"}
	f.requester.Coverage.CoverageSummary = "covered\x00"
	cmd := validCommand()
	cmd.LossDescription = "roof\x00 gone"

	res, err := f.svc.Analyze(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "DECLARATIONS Dwelling \uFFFD$450,000", f.requester.LastText)

	rec, err := f.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "DECLARATIONS Dwelling \uFFFD$450,000", rec.RawPDFText)
	assert.Equal(t, "roof gone", rec.LossDescription)
	assert.Equal(t, domain.Value("wind only"), rec.PolicyData.Notes)
	assert.Equal(t, []string{"Flood"}, rec.PolicyData.KeyExclusions)
	assert.Equal(t, "covered", rec.CoverageAnalysis.CoverageSummary)
	assert.Equal(t, []string{"Flo\x00od"}, f.requester.Policy.KeyExclusions)
}

func TestAnalyze_UnreadablePDF(t *testing.T) {
	f := newFixture()
	f.inspector.Err = errors.New("not a pdf")

	_, err := f.svc.Analyze(context.Background(), validCommand())
	requireStage(t, err, domain.StageReceived, domain.ErrValidation)
	assert.Contains(t, err.Error(), "not a readable PDF")
	assert.Zero(t, f.extractor.Calls)
}

func TestAnalyze_TooManyPages(t *testing.T) {
	f := newFixture()
	f.inspector.Pages = 201

	_, err := f.svc.Analyze(context.Background(), validCommand())
	requireStage(t, err, domain.StageReceived, domain.ErrValidation)
	assert.Zero(t, f.extractor.Calls)
}

func TestAnalyze_StageFailuresPersistNothing(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		setup    func(*fixture)
		stage    domain.Stage
		kind     error
		kindName string
	}{
		{"extraction", func(f *fixture) { f.extractor.Err = boom }, domain.StageExtracting, domain.ErrExtraction, "extraction"},
		{"structuring", func(f *fixture) { f.requester.StructureErr = ai.ErrMalformedReply }, domain.StageStructuring, domain.ErrStructuring, "structuring"},
		{"coverage", func(f *fixture) {
			f.requester.CoverageErr = &ai.TransientError{StatusCode: 503, Err: boom}
		}, domain.StageAnalyzingCoverage, domain.ErrCoverageAnalysis, "coverage_analysis"},
		{"archive", func(f *fixture) { f.archive.PutErr = boom }, domain.StagePersisting, domain.ErrStorage, "storage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			_, err := f.svc.Analyze(context.Background(), validCommand())
			requireStage(t, err, tt.stage, tt.kind)

			assert.Zero(t, f.repo.Len())
			list, err := f.svc.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)

			last := f.fails.Last()
			require.NotNil(t, last)
			assert.Equal(t, "analyze", last.Flow)
			assert.Equal(t, string(tt.stage), last.Stage)
			assert.Equal(t, tt.kindName, last.Kind)
			assert.Equal(t, "ho3.pdf", last.Filename)
			assert.Equal(t, []string{"analyze:" + string(tt.stage)}, f.observed)
		})
	}
}

func TestAnalyze_CauseStaysReachable(t *testing.T) {
	f := newFixture()
	f.requester.CoverageErr = &ai.TransientError{StatusCode: 429, Err: ai.ErrQuotaExceeded}

	_, err := f.svc.Analyze(context.Background(), validCommand())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCoverageAnalysis)
	assert.ErrorIs(t, err, ai.ErrQuotaExceeded)
	assert.True(t, ai.IsTransient(err))
	assert.NotErrorIs(t, err, domain.ErrStructuring)
}

func TestAnalyze_CreateFailureRemovesArchivedPDF(t *testing.T) {
	f := newFixture()
	f.repo.CreateErr = errors.New("db down")

	_, err := f.svc.Analyze(context.Background(), validCommand())
	requireStage(t, err, domain.StagePersisting, domain.ErrStorage)

	assert.Empty(t, f.archive.Objects)
	require.Len(t, f.archive.Removed, 1)
	assert.True(t, strings.HasPrefix(f.archive.Removed[0], "policies/"))
}

func TestAnalyze_WithoutOptionalPorts(t *testing.T) {
	f := newFixture()
	f.svc.Archive = nil
	f.svc.Inspector = nil
	f.svc.Failures = nil
	f.svc.Observer = nil

	res, err := f.svc.Analyze(context.Background(), validCommand())
	require.NoError(t, err)
	rec, err := f.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Empty(t, rec.PDFObjectKey)

	f.extractor.Err = errors.New("down")
	_, err = f.svc.Analyze(context.Background(), validCommand())
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestCheckUnderpayment_Success(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Analyze(context.Background(), validCommand())
	require.NoError(t, err)

	f.requester.Risks = []analysesRisk{{
		MissingCategories:    []string{"Overhead and profit"},
		SuspiciousDeductions: []string{"Depreciation on labor"},
		ScopeConcerns:        []string{},
		Summary:              "Estimate omits O&P.",
	}}
	f.clock.Advance(time.Minute)

	out, err := f.svc.CheckUnderpayment(context.Background(), UnderpaymentCommand{ID: res.ID, EstimateText: "Roof R&R 20 SQ $8,000"})
	require.NoError(t, err)
	assert.Equal(t, "Estimate omits O&P.", out.UnderpaymentRisk.Summary)
	assert.Equal(t, "Roof R&R 20 SQ $8,000", f.requester.LastEstimate)

	rec, err := f.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.UnderpaymentRisk)
	assert.Equal(t, out.UnderpaymentRisk, *rec.UnderpaymentRisk)
	assert.Equal(t, t0.Add(time.Minute), rec.UpdatedAt)
	assert.Equal(t, t0, rec.CreatedAt)
	assert.Equal(t, testutil.SamplePolicy(), rec.PolicyData)
	assert.Equal(t, []string{"analyze:completed", "underpayment:completed"}, f.observed)
}

type analysesRisk = domain.UnderpaymentRisk

func TestCheckUnderpayment_LastWriteWinsAndUpdatedAtIncreases(t *testing.T) {
	f := newFixture()
	res, err := f.svc.Analyze(context.Background(), validCommand())
	require.NoError(t, err)

	f.requester.Risks = []analysesRisk{{Summary: "first"}, {Summary: "second"}}

	// jam tidak maju sama sekali
	_, err = f.svc.CheckUnderpayment(context.Background(), UnderpaymentCommand{ID: res.ID, EstimateText: "estimate A"})
	require.NoError(t, err)
	first, err := f.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)

	_, err = f.svc.CheckUnderpayment(context.Background(), UnderpaymentCommand{ID: res.ID, EstimateText: "estimate B"})
	require.NoError(t, err)
	second, err := f.svc.Get(context.Background(), res.ID)
	require.NoError(t, err)

	assert.Equal(t, "second", second.UnderpaymentRisk.Summary)
	assert.Equal(t, []string{}, second.UnderpaymentRisk.MissingCategories)
	assert.True(t, first.UpdatedAt.After(t0))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestCheckUnderpayment_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		cmd  UnderpaymentCommand
		want string
	}{
		{"no id", UnderpaymentCommand{EstimateText: "x"}, "id"},
		{"no estimate", UnderpaymentCommand{ID: "abc", EstimateText: " \n"}, "estimateText"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.CheckUnderpayment(context.Background(), tt.cmd)
			requireStage(t, err, domain.StageReceived, domain.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, f.requester.OutboundCalls())
			assert.Zero(t, f.repo.Updates)
		})
	}
}

func TestCheckUnderpayment_IDTooLong(t *testing.T) {
	f := newFixture()
	id := strings.Repeat("a", 300)

	_, err := f.svc.CheckUnderpayment(context.Background(), UnderpaymentCommand{ID: id, EstimateText: "Roof $1"})
	requireStage(t, err, domain.StageReceived, domain.ErrValidation)
	assert.Contains(t, err.Error(), "id (max 64)")
	assert.Zero(t, f.requester.RiskCalls)

	last := f.fails.Last()
	require.NotNil(t, last)
	assert.Len(t, last.AnalysisID, domain.MaxIDLen)
}

func TestCheckUnderpayment_UnknownID(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Analyze(context.Background(), validCommand())
	require.NoError(t, err)
	before, err := f.svc.List(context.Background())
	require.NoError(t, err)

	_, err = f.svc.CheckUnderpayment(context.Background(), UnderpaymentCommand{ID: "does-not-exist", EstimateText: "Roof $1"})
	requireStage(t, err, domain.StageLoading, domain.ErrNotFound)
	assert.Zero(t, f.requester.RiskCalls)
	assert.Zero(t, f.repo.Updates)

	after, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	last := f.fails.Last()
	require.NotNil(t, last)
	assert.Equal(t, "does-not-exist", last.AnalysisID)
	assert.Equal(t, "not_found", last.Kind)
}

func TestCheckUnderpayment_FailuresLeaveRecordUntouched(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fixture)
		stage domain.Stage
		kind  error
	}{
		{"model", func(f *fixture) { f.requester.RiskErr = ai.ErrMalformedReply }, domain.StageAnalyzing, domain.ErrUnderpayment},
		{"update", func(f *fixture) { f.repo.UpdateErr = errors.New("deadlock") }, domain.StagePersisting, domain.ErrStorage},
		{"load", func(f *fixture) { f.repo.GetErr = errors.New("conn reset") }, domain.StageLoading, domain.ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			res, err := f.svc.Analyze(context.Background(), validCommand())
			require.NoError(t, err)
			tt.setup(f)

			_, err = f.svc.CheckUnderpayment(context.Background(), UnderpaymentCommand{ID: res.ID, EstimateText: "Roof $1"})
			requireStage(t, err, tt.stage, tt.kind)

			f.repo.GetErr = nil
			rec, err := f.svc.Get(context.Background(), res.ID)
			require.NoError(t, err)
			assert.Nil(t, rec.UnderpaymentRisk)
			assert.Equal(t, t0, rec.UpdatedAt)
		})
	}
}

func TestGet_And_List(t *testing.T) {
	f := newFixture()

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	first, err := f.svc.Analyze(context.Background(), validCommand())
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.svc.Analyze(context.Background(), validCommand())
	require.NoError(t, err)

	list, err = f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.AnalysisID(first.ID), list[0].ID)
	assert.Equal(t, domain.AnalysisID(second.ID), list[1].ID)

	_, err = f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.repo.ListErr = errors.New("db down")
	_, err = f.svc.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestRecentFailures(t *testing.T) {
	f := newFixture()
	f.extractor.Err = errors.New("down")
	for i := 0; i < 3; i++ {
		_, _ = f.svc.Analyze(context.Background(), validCommand())
	}

	got, err := f.svc.RecentFailures(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)

	f.svc.Failures = nil
	got, err = f.svc.RecentFailures(context.Background(), 2)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAnalyze_FailureLogWriteErrorDoesNotMaskStageError(t *testing.T) {
	f := newFixture()
	f.fails.SaveErr = errors.New("log table missing")
	f.extractor.Err = errors.New("down")

	_, err := f.svc.Analyze(context.Background(), validCommand())
	requireStage(t, err, domain.StageExtracting, domain.ErrExtraction)
}
