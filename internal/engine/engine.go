package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/wire"
	"github.com/spf13/cast"
	"github.com/staffdesk/recalc/internal/biz/execution"
	"go.uber.org/zap"
)

// Provider covers the constructors whose dependencies are resolvable from the
// object graph alone. Tracker, planner and side channel take policy values
// from configuration and are provided at the composition root.
var Provider = wire.NewSet(
	NewRegistry,
	NewWorker,
	NewLifecycle,
	NewEventBus,
	NewEngine,
	wire.Bind(new(IEmitter), new(*EventBus)),
)

// Launch boundary property keys. All values are plain strings: dates are
// ISO-8601 (yyyy-MM-dd), identifier lists comma-separated.
const (
	PropEntityIDs = "entity_ids"
	PropStart     = "start"
	PropEnd       = "end"
	PropThreads   = "threads"
)

// Config carries the engine policy knobs resolved from configuration.
type Config struct {
	Milestones []int
}

// Engine orchestrates one batch recalculation per Launch call: plan the
// partitions, fan them out over a fixed-size pool of workers, collect the
// results and seal the execution.
type Engine struct {
	registry  *Registry
	planner   *Planner
	worker    *Worker
	tracker   *Tracker
	lifecycle *Lifecycle
	side      *SideChannel
	emitter   IEmitter
	cfg       Config
	logger    *zap.Logger

	wg sync.WaitGroup
}

func NewEngine(
	registry *Registry,
	planner *Planner,
	worker *Worker,
	tracker *Tracker,
	lifecycle *Lifecycle,
	side *SideChannel,
	emitter IEmitter,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		registry:  registry,
		planner:   planner,
		worker:    worker,
		tracker:   tracker,
		lifecycle: lifecycle,
		side:      side,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Launch starts one execution of the named job and returns its execution id.
// The run itself proceeds asynchronously; progress and the final verdict are
// queryable through the ledger at any time. Only a failure to create the
// initial execution row propagates to the caller.
func (e *Engine) Launch(ctx context.Context, jobName string, props map[string]string) (int64, error) {
	job, ok := e.registry.Get(jobName)
	if !ok {
		return 0, fmt.Errorf("unknown job %q", jobName)
	}

	params, err := ParseParams(props)
	if err != nil {
		return 0, fmt.Errorf("invalid launch parameters for job %q: %w", jobName, err)
	}

	executionID, err := e.lifecycle.BeforeJob(ctx, jobName, -1)
	if err != nil {
		return 0, err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		// The run outlives the launch request.
		e.run(context.Background(), job, params, executionID)
	}()

	return executionID, nil
}

// Drain blocks until all in-flight executions have finalized. Called on
// shutdown.
func (e *Engine) Drain() {
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context, job *Job, params Params, executionID int64) {
	defer func() {
		if r := recover(); r != nil {
			e.side.Capture(ctx, executionID, fmt.Errorf("panic in job run: %v", r))
			e.lifecycle.AfterJob(ctx, executionID, execution.RawStatusFailed)
		}
	}()

	plan, err := e.planner.Plan(ctx, job, params)
	if err != nil {
		e.side.Capture(ctx, executionID, err)
		e.lifecycle.AfterJob(ctx, executionID, execution.RawStatusFailed)
		return
	}

	total := len(plan.Partitions)
	e.tracker.SetTotalSubtasks(ctx, executionID, total)

	// Zero eligible entities is a legitimate no-op run.
	if total == 0 {
		e.lifecycle.AfterJob(ctx, executionID, execution.RawStatusCompleted)
		return
	}

	collector := NewCollector(executionID, job.Name, total, e.cfg.Milestones, e.tracker, e.emitter, e.logger)

	descriptors := make(chan PartitionDescriptor)
	var workers sync.WaitGroup
	for i := 0; i < plan.ThreadCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for descriptor := range descriptors {
				result := e.worker.Execute(ctx, job, descriptor)
				collector.OnPartitionComplete(ctx, result)
			}
		}()
	}

	started := time.Now()
	for _, descriptor := range plan.Partitions {
		descriptors <- descriptor
	}
	close(descriptors)
	workers.Wait()

	success, failure, partial := collector.Counts()
	e.logger.Info("all partitions reported",
		zap.Int64("execution_id", executionID),
		zap.String("job", job.Name),
		zap.Int("success", success),
		zap.Int("failure", failure),
		zap.Int("partial", partial),
		zap.Duration("elapsed", time.Since(started)))

	e.lifecycle.AfterJob(ctx, executionID, execution.RawStatusCompleted)
}

// ParseParams coerces the string-keyed launch properties into typed
// parameters. start is required; end defaults to start.
func ParseParams(props map[string]string) (Params, error) {
	var params Params

	startRaw, ok := props[PropStart]
	if !ok || strings.TrimSpace(startRaw) == "" {
		return params, fmt.Errorf("property %q is required", PropStart)
	}
	start, err := time.Parse(dateLayout, strings.TrimSpace(startRaw))
	if err != nil {
		return params, fmt.Errorf("property %q: %w", PropStart, err)
	}
	params.Start = start
	params.End = start

	if endRaw, ok := props[PropEnd]; ok && strings.TrimSpace(endRaw) != "" {
		end, err := time.Parse(dateLayout, strings.TrimSpace(endRaw))
		if err != nil {
			return params, fmt.Errorf("property %q: %w", PropEnd, err)
		}
		params.End = end
	}

	if idsRaw, ok := props[PropEntityIDs]; ok && strings.TrimSpace(idsRaw) != "" {
		for _, id := range strings.Split(idsRaw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				params.EntityIDs = append(params.EntityIDs, id)
			}
		}
	}

	if threadsRaw, ok := props[PropThreads]; ok && strings.TrimSpace(threadsRaw) != "" {
		params.RequestedThreads = cast.ToInt(threadsRaw)
	}

	return params, nil
}
