package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/staffdesk/recalc/internal/biz/execution"
	"github.com/yitter/idgenerator-go/idgen"
	"go.uber.org/zap"
)

// Tracker is the engine's face of the Progress Store. Apart from execution
// row creation, every operation follows the bookkeeping policy: if the store
// cannot find or lock the open row, log a warning and carry on. Progress
// tracking must never fail the business recalculation.
type Tracker struct {
	repo        execution.Repo
	tolerance   int
	settleDelay time.Duration
	logger      *zap.Logger
}

func NewTracker(repo execution.Repo, tolerance int, settleDelay time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		repo:        repo,
		tolerance:   tolerance,
		settleDelay: settleDelay,
		logger:      logger,
	}
}

// CreateExecution inserts a fresh execution row and returns the
// runtime-assigned id. The id is a correlation key, not a primary key: after
// a restart the generator may reuse values, which is why a fresh INSERT is
// mandatory even on collision. This is the one tracking operation whose
// failure propagates to the caller.
func (t *Tracker) CreateExecution(ctx context.Context, jobName string) (int64, error) {
	executionID := idgen.NextId()
	exec := &execution.JobExecution{
		ExecutionID: executionID,
		JobName:     jobName,
		Status:      execution.RawStatusStarted,
		StartTime:   time.Now(),
	}
	if err := t.repo.Create(ctx, exec); err != nil {
		return 0, fmt.Errorf("failed to create execution row for job %s: %w", jobName, err)
	}
	return executionID, nil
}

func (t *Tracker) SetTotalSubtasks(ctx context.Context, executionID int64, n int) {
	t.track("set total subtasks", executionID, t.repo.SetTotalSubtasks(ctx, executionID, n))
}

func (t *Tracker) IncrementTotalSubtasks(ctx context.Context, executionID int64) {
	t.track("increment total subtasks", executionID, t.repo.IncrementTotalSubtasks(ctx, executionID))
}

// SetCompletedSubtasks is the hot-path write: synchronous and flushed in its
// own transaction so the value is visible to a concurrent finalization check.
func (t *Tracker) SetCompletedSubtasks(ctx context.Context, executionID int64, n int) {
	t.track("set completed subtasks", executionID, t.repo.SetCompletedSubtasks(ctx, executionID, n))
}

func (t *Tracker) IncrementCompletedSubtasks(ctx context.Context, executionID int64) {
	t.track("increment completed subtasks", executionID, t.repo.IncrementCompletedSubtasks(ctx, executionID))
}

func (t *Tracker) AppendDetail(ctx context.Context, executionID int64, line string) {
	t.track("append detail", executionID, t.repo.AppendDetail(ctx, executionID, line))
}

// AppendError persists an error's trace immediately, so it survives even if
// later retrieval paths fail.
func (t *Tracker) AppendError(ctx context.Context, executionID int64, err error) {
	if err == nil {
		return
	}
	t.track("append trace", executionID, t.repo.AppendTrace(ctx, executionID, fmt.Sprintf("%+v", err)))
}

// Finalize seals the execution. It waits a short fixed delay before reading
// the counters to let in-flight progress writes settle; an explicit race
// mitigation, not a guarantee — the completion tolerance covers the rest.
func (t *Tracker) Finalize(ctx context.Context, executionID int64, raw execution.RawStatus) (execution.Result, error) {
	if t.settleDelay > 0 {
		time.Sleep(t.settleDelay)
	}
	result, err := t.repo.Seal(ctx, executionID, raw, t.tolerance)
	if err != nil {
		t.warn("finalize", executionID, err)
		return "", err
	}
	t.logger.Info("execution finalized",
		zap.Int64("execution_id", executionID),
		zap.String("raw_status", string(raw)),
		zap.String("result", string(result)))
	return result, nil
}

func (t *Tracker) track(op string, executionID int64, err error) {
	if err != nil {
		t.warn(op, executionID, err)
	}
}

func (t *Tracker) warn(op string, executionID int64, err error) {
	t.logger.Warn("progress tracking operation skipped",
		zap.String("operation", op),
		zap.Int64("execution_id", executionID),
		zap.Error(err))
}
