package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SideChannel recovers the original error of a failed run when the execution
// framework does not hand it to the lifecycle hooks directly.
//
// The original design paired a thread-local fast path with a map fallback for
// cross-thread delivery. Goroutines have no thread-local storage, so the
// concurrent map keyed by execution id is the single authoritative path here;
// it preserves the property the dual path existed for — capture on one
// goroutine, retrieval on another. Every capture is also persisted to the
// trace log immediately, so a trace is never lost even if retrieval fails.
type SideChannel struct {
	entries sync.Map // executionID int64 -> capturedError

	tracker   *Tracker
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

type capturedError struct {
	err        error
	capturedAt time.Time
}

func NewSideChannel(tracker *Tracker, retention, sweepInterval time.Duration, logger *zap.Logger) *SideChannel {
	return &SideChannel{
		tracker:   tracker,
		retention: retention,
		interval:  sweepInterval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Capture records the error for later retrieval by the lifecycle hook and
// persists its trace right away.
func (s *SideChannel) Capture(ctx context.Context, executionID int64, err error) {
	if err == nil {
		return
	}
	s.entries.Store(executionID, capturedError{err: err, capturedAt: time.Now()})
	s.tracker.AppendError(ctx, executionID, err)
}

// RetrieveAndClear returns the captured error for the execution, if any, and
// removes the entry. Safe to call from a different goroutine than Capture.
func (s *SideChannel) RetrieveAndClear(executionID int64) error {
	value, ok := s.entries.LoadAndDelete(executionID)
	if !ok {
		return nil
	}
	return value.(capturedError).err
}

// StartSweeper bounds memory growth from executions whose afterJob hook never
// ran (abnormal process termination): entries older than the retention window
// are evicted periodically.
func (s *SideChannel) StartSweeper() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(time.Now())
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *SideChannel) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Sweep removes entries captured before now minus the retention window.
func (s *SideChannel) Sweep(now time.Time) {
	cutoff := now.Add(-s.retention)
	swept := 0
	s.entries.Range(func(key, value any) bool {
		if value.(capturedError).capturedAt.Before(cutoff) {
			s.entries.Delete(key)
			swept++
		}
		return true
	})
	if swept > 0 {
		s.logger.Info("side-channel sweep evicted stale entries", zap.Int("count", swept))
	}
}
