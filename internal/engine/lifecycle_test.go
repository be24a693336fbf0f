package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/staffdesk/recalc/internal/biz/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLifecycle(repo *memRepo) (*Lifecycle, *SideChannel) {
	tracker := newTestTracker(repo)
	side := NewSideChannel(tracker, 24*time.Hour, time.Hour, zap.NewNop())
	return NewLifecycle(tracker, side, zap.NewNop()), side
}

func TestBeforeJobWritesPlannedTotal(t *testing.T) {
	repo := newMemRepo()
	lifecycle, _ := newTestLifecycle(repo)

	executionID, err := lifecycle.BeforeJob(context.Background(), "salary-recalc", 50)
	require.NoError(t, err)

	row := repo.latest(executionID)
	require.NotNil(t, row)
	require.NotNil(t, row.TotalSubtasks)
	assert.Equal(t, 50, *row.TotalSubtasks)
}

func TestBeforeJobUnknownTotalLeftUnset(t *testing.T) {
	repo := newMemRepo()
	lifecycle, _ := newTestLifecycle(repo)

	executionID, err := lifecycle.BeforeJob(context.Background(), "salary-recalc", -1)
	require.NoError(t, err)

	row := repo.latest(executionID)
	require.NotNil(t, row)
	assert.Nil(t, row.TotalSubtasks)
}

func TestAfterJobCapturedErrorOverridesRawStatus(t *testing.T) {
	repo := newMemRepo()
	lifecycle, side := newTestLifecycle(repo)
	ctx := context.Background()

	executionID, err := lifecycle.BeforeJob(ctx, "salary-recalc", 1)
	require.NoError(t, err)

	side.Capture(ctx, executionID, errors.New("planner exploded"))

	// Raw status claims success; the captured error wins.
	result := lifecycle.AfterJob(ctx, executionID, execution.RawStatusCompleted)
	assert.Equal(t, execution.ResultFailed, result)

	row := repo.latest(executionID)
	assert.Contains(t, row.Details, "planner exploded")
	assert.NoError(t, side.RetrieveAndClear(executionID), "entry cleared after consumption")
}

func TestAfterJobSynthesizesDiagnosticForRawFailure(t *testing.T) {
	repo := newMemRepo()
	lifecycle, _ := newTestLifecycle(repo)
	ctx := context.Background()

	executionID, err := lifecycle.BeforeJob(ctx, "salary-recalc", 1)
	require.NoError(t, err)

	result := lifecycle.AfterJob(ctx, executionID, execution.RawStatusFailed)
	assert.Equal(t, execution.ResultFailed, result)

	row := repo.latest(executionID)
	assert.Contains(t, row.Details, "no captured cause")
	assert.NotEmpty(t, row.TraceLog)
}

func TestAfterJobCleanCompletion(t *testing.T) {
	repo := newMemRepo()
	lifecycle, _ := newTestLifecycle(repo)
	ctx := context.Background()

	executionID, err := lifecycle.BeforeJob(ctx, "salary-recalc", 0)
	require.NoError(t, err)

	result := lifecycle.AfterJob(ctx, executionID, execution.RawStatusCompleted)
	assert.Equal(t, execution.ResultCompleted, result)

	row := repo.latest(executionID)
	assert.False(t, row.Open())
	assert.Empty(t, row.TraceLog)
}
