package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/staffdesk/recalc/internal/biz/execution"
)

// memRepo is an in-memory execution.Repo for engine tests. It mirrors the
// open-row addressing of the real repository: mutations only ever touch the
// most recently started row with a nil end time.
type memRepo struct {
	mu   sync.Mutex
	rows []*execution.JobExecution
}

func newMemRepo() *memRepo { return &memRepo{} }

func (m *memRepo) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memRepo) Create(_ context.Context, exec *execution.JobExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *exec
	cp.ID = uint64(len(m.rows) + 1)
	m.rows = append(m.rows, &cp)
	exec.ID = cp.ID
	return nil
}

func (m *memRepo) openRow(executionID int64) *execution.JobExecution {
	var found *execution.JobExecution
	for _, row := range m.rows {
		if row.ExecutionID != executionID || !row.Open() {
			continue
		}
		if found == nil || row.StartTime.After(found.StartTime) || row.ID > found.ID {
			found = row
		}
	}
	return found
}

func (m *memRepo) update(executionID int64, fn func(row *execution.JobExecution)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.openRow(executionID)
	if row == nil {
		return fmt.Errorf("execution %d: %w", executionID, execution.ErrNoOpenExecution)
	}
	fn(row)
	return nil
}

func (m *memRepo) SetTotalSubtasks(_ context.Context, executionID int64, n int) error {
	return m.update(executionID, func(row *execution.JobExecution) {
		row.TotalSubtasks = &n
	})
}

func (m *memRepo) IncrementTotalSubtasks(_ context.Context, executionID int64) error {
	return m.update(executionID, func(row *execution.JobExecution) {
		n := 1
		if row.TotalSubtasks != nil {
			n = *row.TotalSubtasks + 1
		}
		row.TotalSubtasks = &n
	})
}

func (m *memRepo) SetCompletedSubtasks(_ context.Context, executionID int64, n int) error {
	return m.update(executionID, func(row *execution.JobExecution) {
		row.CompletedSubtasks = &n
	})
}

func (m *memRepo) IncrementCompletedSubtasks(_ context.Context, executionID int64) error {
	return m.update(executionID, func(row *execution.JobExecution) {
		n := 1
		if row.CompletedSubtasks != nil {
			n = *row.CompletedSubtasks + 1
		}
		row.CompletedSubtasks = &n
	})
}

func (m *memRepo) AppendDetail(_ context.Context, executionID int64, line string) error {
	return m.update(executionID, func(row *execution.JobExecution) {
		if row.Details != "" {
			row.Details += "\n"
		}
		row.Details += line
	})
}

func (m *memRepo) AppendTrace(_ context.Context, executionID int64, trace string) error {
	return m.update(executionID, func(row *execution.JobExecution) {
		if row.TraceLog != "" {
			row.TraceLog += "\n---\n"
		}
		row.TraceLog += trace
	})
}

func (m *memRepo) Seal(_ context.Context, executionID int64, raw execution.RawStatus, tolerance int) (execution.Result, error) {
	var result execution.Result
	err := m.update(executionID, func(row *execution.JobExecution) {
		row.Seal(raw, tolerance, time.Now())
		result = row.Result
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func (m *memRepo) GetLatest(_ context.Context, executionID int64) (*execution.JobExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *execution.JobExecution
	for _, row := range m.rows {
		if row.ExecutionID != executionID {
			continue
		}
		if found == nil || row.StartTime.After(found.StartTime) || row.ID > found.ID {
			found = row
		}
	}
	if found == nil {
		return nil, fmt.Errorf("execution %d: %w", executionID, execution.ErrNoOpenExecution)
	}
	cp := *found
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, filter execution.ListFilter, offset, limit int) ([]*execution.JobExecution, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*execution.JobExecution
	for _, row := range m.rows {
		if filter.JobName.IsPresent() && row.JobName != filter.JobName.MustGet() {
			continue
		}
		if filter.RunningOnly && !row.Open() {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (m *memRepo) CountByResult(_ context.Context, query execution.StatsQuery) (map[execution.Result]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := make(map[execution.Result]int64)
	for _, row := range m.rows {
		if row.Result == "" {
			continue
		}
		if query.JobName.IsPresent() && row.JobName != query.JobName.MustGet() {
			continue
		}
		stats[row.Result]++
	}
	return stats, nil
}

// latest returns a copy of the newest row for the id, for assertions.
func (m *memRepo) latest(executionID int64) *execution.JobExecution {
	row, err := m.GetLatest(context.Background(), executionID)
	if err != nil {
		return nil
	}
	return row
}
