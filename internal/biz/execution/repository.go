package execution

import (
	"context"
	"errors"
	"time"

	"github.com/samber/mo"
	"github.com/staffdesk/recalc/internal/infra/persistence/commonrepo"
)

// ErrNoOpenExecution is returned when no open row exists for an execution id.
// Callers on the progress-tracking path treat it as a warning, never as a
// reason to fail the business recalculation.
var ErrNoOpenExecution = errors.New("no open execution row for id")

// Repo is the durable progress ledger. Every mutating operation runs in its
// own short transaction and addresses the most recently started row with a
// matching execution id and end_time IS NULL, under a row write lock, so that
// id reuse after a restart can never touch a sealed row.
type Repo interface {
	commonrepo.Transaction

	// Create always inserts a fresh row, even when the execution id collides
	// with an earlier (sealed or orphaned) attempt.
	Create(ctx context.Context, exec *JobExecution) error

	SetTotalSubtasks(ctx context.Context, executionID int64, n int) error
	IncrementTotalSubtasks(ctx context.Context, executionID int64) error
	SetCompletedSubtasks(ctx context.Context, executionID int64, n int) error
	IncrementCompletedSubtasks(ctx context.Context, executionID int64) error
	AppendDetail(ctx context.Context, executionID int64, line string) error
	AppendTrace(ctx context.Context, executionID int64, trace string) error

	// Seal derives the business result under the same lock that reads the
	// counters, sets end_time and returns the verdict.
	Seal(ctx context.Context, executionID int64, raw RawStatus, tolerance int) (Result, error)

	// GetLatest returns the most recently started row for the id, open or not.
	GetLatest(ctx context.Context, executionID int64) (*JobExecution, error)

	List(ctx context.Context, filter ListFilter, offset, limit int) ([]*JobExecution, int64, error)
	CountByResult(ctx context.Context, query StatsQuery) (map[Result]int64, error)
}

// ListFilter narrows the monitoring query surface. SortBy is validated against
// a fixed allow-list by the implementation; anything else falls back to
// start_time.
type ListFilter struct {
	JobName     mo.Option[string]
	Status      mo.Option[RawStatus]
	Result      mo.Option[Result]
	RunningOnly bool

	StartedAfter  mo.Option[time.Time]
	StartedBefore mo.Option[time.Time]
	EndedAfter    mo.Option[time.Time]
	EndedBefore   mo.Option[time.Time]

	SortBy   string
	SortDesc bool
}

type StatsQuery struct {
	JobName       mo.Option[string]
	StartedAfter  mo.Option[time.Time]
	StartedBefore mo.Option[time.Time]
}
