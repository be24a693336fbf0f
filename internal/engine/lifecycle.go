package engine

import (
	"context"
	"fmt"

	"github.com/staffdesk/recalc/internal/biz/execution"
	"go.uber.org/zap"
)

// Lifecycle coordinates the start and end of a job run: the execution row is
// created before any partition starts and sealed after all partitions have
// reported.
type Lifecycle struct {
	tracker *Tracker
	side    *SideChannel
	logger  *zap.Logger
}

func NewLifecycle(tracker *Tracker, side *SideChannel, logger *zap.Logger) *Lifecycle {
	return &Lifecycle{tracker: tracker, side: side, logger: logger}
}

// BeforeJob creates the execution row. When the planned subtask total is
// already known (>= 0), it is written up front so progress percentages are
// meaningful before the first partition reports.
func (l *Lifecycle) BeforeJob(ctx context.Context, jobName string, plannedTotal int) (int64, error) {
	executionID, err := l.tracker.CreateExecution(ctx, jobName)
	if err != nil {
		return 0, err
	}
	if plannedTotal >= 0 {
		l.tracker.SetTotalSubtasks(ctx, executionID, plannedTotal)
	}
	l.logger.Info("job execution started",
		zap.String("job", jobName),
		zap.Int64("execution_id", executionID))
	return executionID, nil
}

// AfterJob finalizes the execution. The side-channel is consulted first: a
// captured error means the run failed with that trace regardless of what the
// raw status claims. If the raw status itself indicates failure without a
// captured error, a diagnostic is synthesized from it. The side-channel entry
// is always cleared.
func (l *Lifecycle) AfterJob(ctx context.Context, executionID int64, raw execution.RawStatus) execution.Result {
	if err := l.side.RetrieveAndClear(executionID); err != nil {
		l.tracker.AppendDetail(ctx, executionID, fmt.Sprintf("job failed: %v", err))
		result, _ := l.tracker.Finalize(ctx, executionID, execution.RawStatusFailed)
		return result
	}

	if !raw.IsSuccess() {
		diag := fmt.Errorf("job finished with raw status %s and no captured cause", raw)
		l.tracker.AppendDetail(ctx, executionID, diag.Error())
		l.tracker.AppendError(ctx, executionID, diag)
	}

	result, _ := l.tracker.Finalize(ctx, executionID, raw)
	return result
}
