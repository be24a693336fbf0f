package execution

// RawStatus is the runtime status of a job execution as reported by the
// execution framework.
type RawStatus string

const (
	RawStatusStarted   RawStatus = "STARTED"
	RawStatusCompleted RawStatus = "COMPLETED"
	RawStatusFailed    RawStatus = "FAILED"
	RawStatusStopped   RawStatus = "STOPPED"
	RawStatusUnknown   RawStatus = "UNKNOWN"
)

// IsSuccess reports whether the raw status counts as a successful run.
func (s RawStatus) IsSuccess() bool {
	return s == RawStatusCompleted
}

// Result is the derived business verdict of an execution, distinct from the
// raw runtime status.
type Result string

const (
	ResultCompleted Result = "COMPLETED"
	ResultFailed    Result = "FAILED"
	ResultPartial   Result = "PARTIAL"
)
