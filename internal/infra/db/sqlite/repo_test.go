package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/failures"
	"github.com/bryanwahyu/policy-analyzer/internal/testutil"
)

func openTestDB(t *testing.T) (*PolicyAnalysisRepository, *FailureRepository) {
	t.Helper()
	ctx := context.Background()
	conn, err := Connect(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, Migrate(ctx, conn))
	// kedua kali harus aman
	require.NoError(t, Migrate(ctx, conn))
	return NewPolicyAnalysisRepository(conn), NewFailureRepository(conn)
}

func TestRepositoryContract(t *testing.T) {
	testutil.RunRepositoryContract(t, func(t *testing.T) (domain.Repository, failures.Repository) {
		return openTestDB(t)
	})
}

// sqlite keeps nanoseconds, the other backends stop at microseconds
func TestPolicyAnalysisRepository_NanosecondTimestamps(t *testing.T) {
	repo, _ := openTestDB(t)
	ctx := context.Background()
	created := time.Date(2025, 5, 2, 9, 30, 0, 123456789, time.UTC)

	in := testutil.Record("a1", created)
	require.NoError(t, repo.Create(ctx, in))

	got, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, created, got.UpdatedAt)
}
