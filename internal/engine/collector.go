package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Collector fans partition results in from any number of worker goroutines
// and aggregates them into the execution's progress. One collector serves one
// execution.
//
// The atomic counters are a write-through cache only; the Progress Store
// remains the source of truth consulted at finalization.
type Collector struct {
	executionID int64
	jobName     string
	total       int

	success atomic.Int64
	failure atomic.Int64
	partial atomic.Int64

	tracker    *Tracker
	emitter    IEmitter
	logger     *zap.Logger
	startedAt  time.Time
	milestones []int

	mu            sync.Mutex
	nextMilestone int
}

func NewCollector(executionID int64, jobName string, total int, milestones []int, tracker *Tracker, emitter IEmitter, logger *zap.Logger) *Collector {
	return &Collector{
		executionID: executionID,
		jobName:     jobName,
		total:       total,
		tracker:     tracker,
		emitter:     emitter,
		logger:      logger,
		startedAt:   time.Now(),
		milestones:  milestones,
	}
}

// OnPartitionComplete is invoked once per partition, concurrently from
// multiple workers. The completed count is pushed to the Progress Store
// synchronously so a racing finalization check observes it.
func (c *Collector) OnPartitionComplete(ctx context.Context, result PartitionResult) {
	switch result.Status {
	case PartitionSuccess:
		c.success.Add(1)
	case PartitionPartial:
		c.partial.Add(1)
	default:
		c.failure.Add(1)
	}

	completed := c.Completed()
	c.tracker.SetCompletedSubtasks(ctx, c.executionID, completed)

	if result.Status != PartitionSuccess {
		line := fmt.Sprintf("[%s] partition %s: %s", result.Status, result.PartitionID, result.Message)
		if result.ErrorDetail != "" {
			line += " — " + result.ErrorDetail
		}
		c.tracker.AppendDetail(ctx, c.executionID, line)
		if result.Err != nil {
			c.tracker.AppendError(ctx, c.executionID, result.Err)
		}
	}

	c.logMilestones(completed)
}

// Completed returns success + failure + partial so far.
func (c *Collector) Completed() int {
	return int(c.success.Load() + c.failure.Load() + c.partial.Load())
}

func (c *Collector) Counts() (success, failure, partial int) {
	return int(c.success.Load()), int(c.failure.Load()), int(c.partial.Load())
}

// logMilestones logs each milestone of the configured ascending set at most
// once. Percent is only computed while the total is known and positive.
func (c *Collector) logMilestones(completed int) {
	if c.total <= 0 {
		return
	}
	percent := completed * 100 / c.total

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.nextMilestone < len(c.milestones) && percent >= c.milestones[c.nextMilestone] {
		milestone := c.milestones[c.nextMilestone]
		c.nextMilestone++

		eta := c.estimateRemaining(completed)
		c.logger.Info("recalculation progress",
			zap.Int64("execution_id", c.executionID),
			zap.String("job", c.jobName),
			zap.Int("milestone_percent", milestone),
			zap.Int("completed", completed),
			zap.Int("total", c.total),
			zap.Duration("eta", eta))

		if c.emitter != nil {
			c.emitter.ProgressMilestone(ProgressEvent{
				ExecutionID: c.executionID,
				JobName:     c.jobName,
				Percent:     milestone,
				Completed:   completed,
				Total:       c.total,
				ETAMillis:   eta.Milliseconds(),
				Timestamp:   time.Now().UnixMilli(),
			})
		}
	}
}

// estimateRemaining derives an ETA from the average time per partition so far.
func (c *Collector) estimateRemaining(completed int) time.Duration {
	if completed <= 0 {
		return 0
	}
	avg := time.Since(c.startedAt) / time.Duration(completed)
	return avg * time.Duration(c.total-completed)
}
