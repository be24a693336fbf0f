package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSideChannel(repo *memRepo) *SideChannel {
	return NewSideChannel(newTestTracker(repo), 24*time.Hour, time.Hour, zap.NewNop())
}

func TestSideChannelCrossGoroutineDelivery(t *testing.T) {
	repo := newMemRepo()
	side := newTestSideChannel(repo)
	cause := errors.New("salary procedure deadlocked")

	done := make(chan struct{})
	go func() {
		side.Capture(context.Background(), 42, cause)
		close(done)
	}()
	<-done

	// Retrieval happens on a different goroutine than capture.
	got := side.RetrieveAndClear(42)
	assert.Equal(t, cause, got)

	// Cleared after the first retrieval.
	assert.NoError(t, side.RetrieveAndClear(42))
}

func TestSideChannelPersistsTraceImmediately(t *testing.T) {
	repo := newMemRepo()
	tracker := newTestTracker(repo)
	side := NewSideChannel(tracker, 24*time.Hour, time.Hour, zap.NewNop())
	ctx := context.Background()

	executionID, err := tracker.CreateExecution(ctx, "salary-recalc")
	require.NoError(t, err)

	side.Capture(ctx, executionID, errors.New("salary procedure deadlocked"))

	row := repo.latest(executionID)
	require.NotNil(t, row)
	assert.Contains(t, row.TraceLog, "salary procedure deadlocked")
}

func TestSideChannelNilErrorIgnored(t *testing.T) {
	side := newTestSideChannel(newMemRepo())
	side.Capture(context.Background(), 42, nil)
	assert.NoError(t, side.RetrieveAndClear(42))
}

func TestSideChannelSweepEvictsStaleEntries(t *testing.T) {
	side := newTestSideChannel(newMemRepo())
	ctx := context.Background()

	side.Capture(ctx, 1, errors.New("old failure"))
	side.Capture(ctx, 2, errors.New("recent failure"))

	// Only entries older than the retention window go.
	side.Sweep(time.Now())
	assert.Error(t, side.RetrieveAndClear(1))
	side.Capture(ctx, 1, errors.New("old failure"))

	side.Sweep(time.Now().Add(25 * time.Hour))
	assert.NoError(t, side.RetrieveAndClear(1))
	assert.NoError(t, side.RetrieveAndClear(2))
}

func TestSideChannelLastCaptureWins(t *testing.T) {
	side := newTestSideChannel(newMemRepo())
	ctx := context.Background()

	side.Capture(ctx, 42, errors.New("first"))
	side.Capture(ctx, 42, errors.New("second"))

	got := side.RetrieveAndClear(42)
	require.Error(t, got)
	assert.Equal(t, "second", got.Error())
}
