package execution

import "time"

// JobExecution is one persisted attempt of a named recalculation job.
//
// ExecutionID is assigned by the runtime and is NOT unique over the lifetime
// of the system: after a process restart the generator may hand out ids that
// were already used. The real identity of a row is (ExecutionID, StartTime);
// callers must always address the most recent open row.
type JobExecution struct {
	ID        uint64
	CreatedAt time.Time
	UpdatedAt time.Time

	ExecutionID       int64
	JobName           string
	Status            RawStatus
	Result            Result
	StartTime         time.Time
	EndTime           *time.Time
	TotalSubtasks     *int
	CompletedSubtasks *int
	ProgressPercent   int
	Details           string
	TraceLog          string
}

// Open reports whether the execution has not been finalized yet.
func (e *JobExecution) Open() bool {
	return e.EndTime == nil
}

// ResolveResult derives the business verdict from the raw status and the
// subtask counters. A successful run whose completed count falls short of the
// total by no more than tolerance is still COMPLETED; that slack absorbs
// benign is-it-really-done races at finalization time.
func (e *JobExecution) ResolveResult(raw RawStatus, tolerance int) Result {
	if !raw.IsSuccess() {
		return ResultFailed
	}
	if e.TotalSubtasks == nil {
		return ResultCompleted
	}
	completed := 0
	if e.CompletedSubtasks != nil {
		completed = *e.CompletedSubtasks
	}
	if *e.TotalSubtasks-completed <= tolerance {
		return ResultCompleted
	}
	return ResultPartial
}

// Seal finalizes the execution in place: raw status, derived result, end time
// and the final progress percent.
func (e *JobExecution) Seal(raw RawStatus, tolerance int, now time.Time) {
	e.Status = raw
	e.Result = e.ResolveResult(raw, tolerance)
	e.EndTime = &now
	e.ProgressPercent = e.Percent()
}

// Percent computes floor(completed*100/total), or 0 while the total is
// unknown. A sealed COMPLETED execution reports 100 even when the counters
// fell inside the tolerance window.
func (e *JobExecution) Percent() int {
	if e.Result == ResultCompleted {
		return 100
	}
	if e.TotalSubtasks == nil || *e.TotalSubtasks <= 0 || e.CompletedSubtasks == nil {
		return 0
	}
	p := *e.CompletedSubtasks * 100 / *e.TotalSubtasks
	if p > 100 {
		p = 100
	}
	return p
}
