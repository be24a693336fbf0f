package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intp(n int) *int { return &n }

func TestResolveResult(t *testing.T) {
	cases := []struct {
		name      string
		raw       RawStatus
		total     *int
		completed *int
		tolerance int
		want      Result
	}{
		{"failure regardless of counters", RawStatusFailed, intp(10), intp(10), 2, ResultFailed},
		{"stopped is a failure", RawStatusStopped, intp(10), intp(10), 2, ResultFailed},
		{"unknown total counts as complete", RawStatusCompleted, nil, nil, 2, ResultCompleted},
		{"exact completion", RawStatusCompleted, intp(10), intp(10), 0, ResultCompleted},
		{"within tolerance", RawStatusCompleted, intp(100), intp(98), 2, ResultCompleted},
		{"at tolerance edge", RawStatusCompleted, intp(100), intp(98), 2, ResultCompleted},
		{"beyond tolerance", RawStatusCompleted, intp(100), intp(97), 2, ResultPartial},
		{"nil completed treated as zero", RawStatusCompleted, intp(3), nil, 2, ResultPartial},
		{"zero tolerance strict", RawStatusCompleted, intp(10), intp(9), 0, ResultPartial},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &JobExecution{TotalSubtasks: tc.total, CompletedSubtasks: tc.completed}
			assert.Equal(t, tc.want, e.ResolveResult(tc.raw, tc.tolerance))
		})
	}
}

func TestSeal(t *testing.T) {
	now := time.Now()
	e := &JobExecution{
		Status:            RawStatusStarted,
		TotalSubtasks:     intp(100),
		CompletedSubtasks: intp(99),
	}

	e.Seal(RawStatusCompleted, 2, now)

	assert.Equal(t, RawStatusCompleted, e.Status)
	assert.Equal(t, ResultCompleted, e.Result)
	assert.False(t, e.Open())
	assert.Equal(t, now, *e.EndTime)
	// COMPLETED reads 100 even when the counters fell short within tolerance.
	assert.Equal(t, 100, e.ProgressPercent)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, (&JobExecution{}).Percent())
	assert.Equal(t, 0, (&JobExecution{TotalSubtasks: intp(0)}).Percent())
	assert.Equal(t, 50, (&JobExecution{TotalSubtasks: intp(10), CompletedSubtasks: intp(5)}).Percent())
	assert.Equal(t, 33, (&JobExecution{TotalSubtasks: intp(3), CompletedSubtasks: intp(1)}).Percent())
	// Over-counting is clamped.
	assert.Equal(t, 100, (&JobExecution{TotalSubtasks: intp(10), CompletedSubtasks: intp(12)}).Percent())
}

func TestOpen(t *testing.T) {
	e := &JobExecution{}
	assert.True(t, e.Open())
	now := time.Now()
	e.EndTime = &now
	assert.False(t, e.Open())
}
