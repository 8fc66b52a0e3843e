package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/failures"
)

// OpenRepos returns repositories over empty tables.
type OpenRepos func(t *testing.T) (analyses.Repository, failures.Repository)

// Record builds a complete analysis created at created.
func Record(id string, created time.Time) *analyses.PolicyAnalysis {
	return &analyses.PolicyAnalysis{
		ID:               analyses.AnalysisID(id),
		Filename:         "ho3.pdf",
		State:            "TX",
		PolicyType:       "HO-3",
		LossDescription:  "Hail damaged the roof",
		PolicyData:       SamplePolicy(),
		CoverageAnalysis: SampleCoverage(),
		RawPDFText:       "DECLARATIONS PAGE",
		PDFObjectKey:     "policies/" + id + "/ho3.pdf",
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

// RunRepositoryContract exercises the behaviour every database backend shares.
// Timestamps stay at microsecond precision.
func RunRepositoryContract(t *testing.T, open OpenRepos) {
	ctx := context.Background()
	base := time.Date(2025, 5, 2, 9, 30, 0, 123456000, time.UTC)

	t.Run("round trip", func(t *testing.T) {
		repo, _ := open(t)
		in := Record("a1", base)
		require.NoError(t, repo.Create(ctx, in))

		got, err := repo.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, in, got)
		assert.Nil(t, got.UnderpaymentRisk)
	})

	t.Run("widest accepted fields", func(t *testing.T) {
		repo, _ := open(t)
		in := Record("wide", base)
		in.Filename = strings.Repeat("é", analyses.MaxFilenameLen)
		in.State = strings.Repeat("ü", analyses.MaxStateLen)
		in.PolicyType = strings.Repeat("P", analyses.MaxPolicyTypeLen)
		require.NoError(t, repo.Create(ctx, in))

		got, err := repo.Get(ctx, "wide")
		require.NoError(t, err)
		assert.Equal(t, in.Filename, got.Filename)
		assert.Equal(t, in.State, got.State)
		assert.Equal(t, in.PolicyType, got.PolicyType)
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo, _ := open(t)
		require.NoError(t, repo.Create(ctx, Record("dup", base)))
		assert.Error(t, repo.Create(ctx, Record("dup", base)))
	})

	t.Run("not found", func(t *testing.T) {
		repo, _ := open(t)
		_, err := repo.Get(ctx, "nope")
		assert.ErrorIs(t, err, analyses.ErrNotFound)

		err = repo.UpdateUnderpayment(ctx, "nope", analyses.UnderpaymentRisk{Summary: "x"}, base)
		assert.ErrorIs(t, err, analyses.ErrNotFound)
	})

	t.Run("list order", func(t *testing.T) {
		repo, _ := open(t)
		empty, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		require.NoError(t, repo.Create(ctx, Record("c", base.Add(2*time.Hour))))
		require.NoError(t, repo.Create(ctx, Record("b", base)))
		require.NoError(t, repo.Create(ctx, Record("a", base)))

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, analyses.AnalysisID("a"), list[0].ID)
		assert.Equal(t, analyses.AnalysisID("b"), list[1].ID)
		assert.Equal(t, analyses.AnalysisID("c"), list[2].ID)
	})

	t.Run("update underpayment", func(t *testing.T) {
		repo, _ := open(t)
		require.NoError(t, repo.Create(ctx, Record("u1", base)))

		first := analyses.UnderpaymentRisk{MissingCategories: []string{"Debris removal"}, Summary: "first"}
		require.NoError(t, repo.UpdateUnderpayment(ctx, "u1", first, base.Add(time.Minute)))

		second := analyses.UnderpaymentRisk{Summary: "second"}
		require.NoError(t, repo.UpdateUnderpayment(ctx, "u1", second, base.Add(2*time.Minute)))

		got, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got.UnderpaymentRisk)
		assert.Equal(t, "second", got.UnderpaymentRisk.Summary)
		assert.Equal(t, []string{}, got.UnderpaymentRisk.MissingCategories)
		assert.Equal(t, base.Add(2*time.Minute), got.UpdatedAt)
		assert.Equal(t, base, got.CreatedAt)
		assert.Equal(t, SamplePolicy(), got.PolicyData)
	})

	t.Run("failure log", func(t *testing.T) {
		_, fails := open(t)
		for i, stage := range []string{"extracting", "structuring", "analyzing_coverage"} {
			f := &failures.Failure{
				Flow:      "analyze",
				Stage:     stage,
				Kind:      "extraction",
				Filename:  strings.Repeat("f", analyses.MaxFilenameLen),
				Message:   "boom",
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, fails.Save(ctx, f))
			assert.NotZero(t, f.ID)
		}

		got, err := fails.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "analyzing_coverage", got[0].Stage)
		assert.Equal(t, "structuring", got[1].Stage)
		assert.Equal(t, base.Add(2*time.Second), got[0].CreatedAt)

		all, err := fails.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
