package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func step(name string, fn func(ctx context.Context, entityID string, date time.Time) error) Step {
	return StepFunc{StepName: name, Fn: fn}
}

func okStep(name string, ran *[]string) Step {
	return step(name, func(context.Context, string, time.Time) error {
		*ran = append(*ran, name)
		return nil
	})
}

func TestWorkerSuccess(t *testing.T) {
	worker := NewWorker(nil, zap.NewNop())
	var ran []string
	job := &Job{
		Name: "salary-recalc",
		Axis: AxisEntityDate,
		Steps: []Step{
			okStep("availability", &ran),
			okStep("work-aggregate", &ran),
			okStep("salary", &ran),
		},
	}

	result := worker.Execute(context.Background(), job, PartitionDescriptor{EntityID: "u1", Date: day("2026-03-14")})

	assert.Equal(t, PartitionSuccess, result.Status)
	assert.Equal(t, "u1_2026-03-14", result.PartitionID)
	assert.Equal(t, []string{"availability", "work-aggregate", "salary"}, ran)
	assert.GreaterOrEqual(t, result.ProcessingTime, time.Duration(0))
}

func TestWorkerStepErrorAbortsPipeline(t *testing.T) {
	worker := NewWorker(nil, zap.NewNop())
	var ran []string
	boom := errors.New("aggregate table locked")
	job := &Job{
		Name: "salary-recalc",
		Axis: AxisEntityDate,
		Steps: []Step{
			okStep("availability", &ran),
			step("work-aggregate", func(context.Context, string, time.Time) error { return boom }),
			okStep("salary", &ran),
		},
	}

	result := worker.Execute(context.Background(), job, PartitionDescriptor{EntityID: "u1", Date: day("2026-03-14")})

	assert.Equal(t, PartitionFailure, result.Status)
	assert.Equal(t, []string{"availability"}, ran, "steps after the failure must not run")
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, boom)
	assert.Contains(t, result.Err.Error(), "work-aggregate")
	assert.Contains(t, result.Err.Error(), "u1_2026-03-14")
}

func TestWorkerRecoversPanic(t *testing.T) {
	worker := NewWorker(nil, zap.NewNop())
	job := &Job{
		Name: "salary-recalc",
		Axis: AxisEntityDate,
		Steps: []Step{
			step("salary", func(context.Context, string, time.Time) error { panic("nil pointer somewhere deep") }),
		},
	}

	var result PartitionResult
	require.NotPanics(t, func() {
		result = worker.Execute(context.Background(), job, PartitionDescriptor{EntityID: "u1", Date: day("2026-03-14")})
	})

	assert.Equal(t, PartitionFailure, result.Status)
	assert.Contains(t, result.Message, "panicked")
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "nil pointer somewhere deep")
}

func TestWorkerMissingProperties(t *testing.T) {
	worker := NewWorker(nil, zap.NewNop())
	var ran []string
	job := &Job{
		Name:  "salary-recalc",
		Axis:  AxisEntityDate,
		Steps: []Step{okStep("salary", &ran)},
	}

	result := worker.Execute(context.Background(), job, PartitionDescriptor{Date: day("2026-03-14")})

	assert.Equal(t, PartitionFailure, result.Status)
	assert.Contains(t, result.Message, "missing partition properties")
	assert.Contains(t, result.Message, "entity")
	assert.Empty(t, ran, "pipeline must not start on an invalid descriptor")

	// A date-axis job does not require an entity.
	dateJob := &Job{Name: "budget-recalc", Axis: AxisDate, Steps: []Step{okStep("budget", &ran)}}
	result = worker.Execute(context.Background(), dateJob, PartitionDescriptor{Date: day("2026-03-14")})
	assert.Equal(t, PartitionSuccess, result.Status)
}

func TestWorkerPartialContinuesRemainingSteps(t *testing.T) {
	worker := NewWorker(nil, zap.NewNop())
	var ran []string
	job := &Job{
		Name: "salary-recalc",
		Axis: AxisEntityDate,
		Steps: []Step{
			okStep("availability", &ran),
			step("work-aggregate", func(context.Context, string, time.Time) error {
				return &PartialError{Reason: "3 of 17 shifts skipped"}
			}),
			okStep("salary", &ran),
		},
	}

	result := worker.Execute(context.Background(), job, PartitionDescriptor{EntityID: "u1", Date: day("2026-03-14")})

	assert.Equal(t, PartitionPartial, result.Status)
	assert.Contains(t, result.Message, "work-aggregate")
	assert.Contains(t, result.Message, "3 of 17 shifts skipped")
	assert.Equal(t, []string{"availability", "salary"}, ran, "partial must not abort the pipeline")
}

func TestWorkerTransactionWrapsPipeline(t *testing.T) {
	tx := &recordingTx{}
	worker := NewWorker(tx, zap.NewNop())
	var ran []string
	job := &Job{Name: "salary-recalc", Axis: AxisEntity, Steps: []Step{okStep("salary", &ran)}}

	result := worker.Execute(context.Background(), job, PartitionDescriptor{EntityID: "u1"})

	assert.Equal(t, PartitionSuccess, result.Status)
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, []string{"salary"}, ran)
}

type recordingTx struct {
	calls int
}

func (r *recordingTx) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}
