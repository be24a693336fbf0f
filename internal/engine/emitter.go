package engine

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ProgressEvent is published once per crossed progress milestone so
// monitoring UIs can follow a run without polling the ledger.
type ProgressEvent struct {
	ExecutionID int64  `json:"execution_id"`
	JobName     string `json:"job_name"`
	Percent     int    `json:"percent"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
	ETAMillis   int64  `json:"eta_ms,omitempty"`
	Timestamp   int64  `json:"ts"`
}

type IEmitter interface {
	ProgressMilestone(ev ProgressEvent)
}

const redisChannel = "recalc:progress-events"

// EventBus publishes progress events via Redis pub/sub. With a nil client it
// degrades to structured logging only.
type EventBus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

var _ IEmitter = (*EventBus)(nil)

func NewEventBus(rdb *redis.Client, logger *zap.Logger) *EventBus {
	return &EventBus{rdb: rdb, logger: logger}
}

func (e *EventBus) ProgressMilestone(ev ProgressEvent) {
	if e.rdb == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		e.logger.Warn("failed to marshal progress event", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.rdb.Publish(ctx, redisChannel, payload).Err(); err != nil {
		e.logger.Warn("failed to publish progress event",
			zap.Int64("execution_id", ev.ExecutionID),
			zap.Error(err))
	}
}
