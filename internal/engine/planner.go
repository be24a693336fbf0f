package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
)

// EntitySource supplies the snapshot of currently-eligible entities when a
// launch does not name them explicitly, e.g. "active workers as of the range
// start". Queried exactly once per planning call.
type EntitySource interface {
	EligibleEntities(ctx context.Context, asOf time.Time) ([]string, error)
}

// Planner computes the partition set and a thread-count recommendation for a
// job run.
type Planner struct {
	source         EntitySource
	maxAutoThreads int
	logger         *zap.Logger
}

func NewPlanner(source EntitySource, maxAutoThreads int, logger *zap.Logger) *Planner {
	if maxAutoThreads <= 0 {
		maxAutoThreads = 8
	}
	return &Planner{
		source:         source,
		maxAutoThreads: maxAutoThreads,
		logger:         logger,
	}
}

// Plan builds the full list of partition descriptors for the job. Both the
// partition set and the thread count are deterministic for fixed inputs.
func (p *Planner) Plan(ctx context.Context, job *Job, params Params) (Plan, error) {
	start, end := normalizeRange(params.Start, params.End)
	days := daySpan(start, end)

	entities := params.EntityIDs
	if len(entities) == 0 && job.Axis != AxisDate {
		var err error
		entities, err = p.source.EligibleEntities(ctx, start)
		if err != nil {
			return Plan{}, fmt.Errorf("failed to snapshot eligible entities: %w", err)
		}
	}

	var partitions []PartitionDescriptor
	switch job.Axis {
	case AxisEntityDate:
		partitions = make([]PartitionDescriptor, 0, len(entities)*len(days))
		for _, entity := range entities {
			for _, day := range days {
				partitions = append(partitions, PartitionDescriptor{EntityID: entity, Date: day})
			}
		}
	case AxisDate:
		partitions = lo.Map(days, func(day time.Time, _ int) PartitionDescriptor {
			return PartitionDescriptor{Date: day}
		})
	case AxisEntity:
		partitions = lo.Map(entities, func(entity string, _ int) PartitionDescriptor {
			return PartitionDescriptor{EntityID: entity}
		})
	}

	threads := p.threadCount(params.RequestedThreads, len(partitions))

	p.logger.Info("partition plan built",
		zap.String("job", job.Name),
		zap.Int("entities", len(entities)),
		zap.Int("days", len(days)),
		zap.Int("partitions", len(partitions)),
		zap.Int("threads", threads))

	return Plan{Partitions: partitions, ThreadCount: threads}, nil
}

// threadCount caps concurrency below the full CPU count to leave headroom for
// the host process, and never recommends more threads than there is work.
// requested <= 0 means auto.
func (p *Planner) threadCount(requested, partitionCount int) int {
	limit := min(availableCPU(), p.maxAutoThreads)
	if requested <= 0 {
		return min(limit, partitionCount)
	}
	return min(max(1, requested), limit, partitionCount)
}

func availableCPU() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// normalizeRange treats end < start as a single-day range rather than an
// error. Documented leniency, not validation.
func normalizeRange(start, end time.Time) (time.Time, time.Time) {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		end = start
	}
	return start, end
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daySpan returns every day in [start, end], inclusive on both sides.
func daySpan(start, end time.Time) []time.Time {
	var days []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}
