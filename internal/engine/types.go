package engine

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// PartitionStatus classifies the outcome of one partition.
type PartitionStatus string

const (
	PartitionSuccess PartitionStatus = "SUCCESS"
	PartitionFailure PartitionStatus = "FAILURE"
	PartitionPartial PartitionStatus = "PARTIAL"
)

// PartitionDescriptor is one independent unit of work: an entity, a date, or
// the pair, depending on the job's axis. Descriptors are produced once by the
// planner before execution starts and are immutable afterwards.
type PartitionDescriptor struct {
	EntityID string
	Date     time.Time
}

// PartitionID builds the human-readable composite id used for log
// correlation, e.g. "1042_2026-03-14". It is not a uniqueness guarantee;
// results are aggregated by count, not by key.
func (d PartitionDescriptor) PartitionID() string {
	switch {
	case d.EntityID != "" && !d.Date.IsZero():
		return fmt.Sprintf("%s_%s", d.EntityID, d.Date.Format(dateLayout))
	case d.EntityID != "":
		return d.EntityID
	case !d.Date.IsZero():
		return d.Date.Format(dateLayout)
	default:
		return "unbound"
	}
}

// PartitionResult is the structured outcome a worker hands to the collector.
// Workers never let an error escape Execute; everything a partition produced,
// including the original error, travels in here.
type PartitionResult struct {
	Status         PartitionStatus
	Message        string
	ErrorDetail    string
	Err            error
	ProcessingTime time.Duration
	PartitionID    string
}

// Params are the launch parameters of one job run after coercion from the
// string-keyed property map of the launch boundary.
type Params struct {
	EntityIDs        []string
	Start            time.Time
	End              time.Time
	RequestedThreads int
}

// Plan is the planner's output: the full partition set and the worker count
// recommendation.
type Plan struct {
	Partitions  []PartitionDescriptor
	ThreadCount int
}

// PartialError marks a step outcome that processed some but not all of its
// scope. The worker reports the partition as PARTIAL and keeps running the
// remaining steps.
type PartialError struct {
	Reason string
}

func (e *PartialError) Error() string {
	return "partial recalculation: " + e.Reason
}
