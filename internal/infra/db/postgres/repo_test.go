package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/policy-analyzer/internal/domain/analyses"
	"github.com/bryanwahyu/policy-analyzer/internal/domain/failures"
	"github.com/bryanwahyu/policy-analyzer/internal/testutil"
)

// Runs against a live server only, e.g.
//
//	POSTGRES_TEST_DSN='postgres://postgres:pw@localhost:5432/policy_test?sslmode=disable' go test ./internal/infra/db/postgres/
func TestRepositoryContract(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	conn, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, Migrate(ctx, conn))

	testutil.RunRepositoryContract(t, func(t *testing.T) (domain.Repository, failures.Repository) {
		for _, table := range []string{"policy_analyses", "analysis_failures"} {
			_, err := conn.ExecContext(ctx, "DELETE FROM "+table)
			require.NoError(t, err)
		}
		return NewPolicyAnalysisRepository(conn), NewFailureRepository(conn)
	})
}
