package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/underwrite-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRecord() model.RawRecord {
	return model.RawRecord{
		"borrower":       "Jane Example",
		"loan_amount":    240000.0,
		"property_value": 330000.0,
	}
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testRecord())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	metrics := &model.LendingMetrics{
		LTV:          model.Float(0.7273),
		RiskCategory: model.RiskMedium,
	}
	audit := []string{"Interest rate not provided or invalid"}
	require.NoError(t, s.CompleteRun(ctx, run.ID, metrics, audit))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Metrics)
	require.NotNil(t, got.Metrics.LTV)
	assert.Equal(t, 0.7273, *got.Metrics.LTV)
	assert.Equal(t, model.RiskMedium, got.Metrics.RiskCategory)
	assert.Equal(t, audit, got.Audit)
	assert.Equal(t, "Jane Example", got.Record["borrower"])
}

func TestSQLiteFailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testRecord())
	require.NoError(t, err)

	require.NoError(t, s.FailRun(ctx, run.ID, "record could not be parsed"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "record could not be parsed", got.Error)
	assert.Nil(t, got.Metrics)
}

func TestSQLiteRunNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "nonexistent")
	assert.Error(t, err)

	assert.Error(t, s.CompleteRun(ctx, "nonexistent", &model.LendingMetrics{}, nil))
	assert.Error(t, s.FailRun(ctx, "nonexistent", "boom"))
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, testRecord())
	require.NoError(t, err)
	second, err := s.CreateRun(ctx, testRecord())
	require.NoError(t, err)

	require.NoError(t, s.CompleteRun(ctx, first.ID, &model.LendingMetrics{}, nil))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	queued, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusQueued})
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, second.ID, queued[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
