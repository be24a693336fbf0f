package recalc

import (
	"context"
	"time"

	"github.com/staffdesk/recalc/internal/engine"
)

// Job names exposed on the launch boundary.
const (
	JobAvailability  = "availability-recalc"
	JobWorkAggregate = "work-aggregate-recalc"
	JobBudget        = "budget-recalc"
	JobSalary        = "salary-recalc"
)

// RegisterStandardJobs registers the four standard recalculations. The
// pipelines are ordered: later steps read what earlier steps committed for
// the same user/day scope.
func RegisterStandardJobs(registry *engine.Registry, svcs Services) error {
	jobs := []*engine.Job{
		{
			Name: JobAvailability,
			Axis: engine.AxisEntityDate,
			Steps: []engine.Step{
				step("availability", svcs.Availability.Recalculate),
			},
		},
		{
			Name: JobWorkAggregate,
			Axis: engine.AxisEntityDate,
			Steps: []engine.Step{
				step("availability", svcs.Availability.Recalculate),
				step("work-aggregate", svcs.WorkAggregate.Recalculate),
			},
		},
		{
			Name: JobBudget,
			Axis: engine.AxisDate,
			Steps: []engine.Step{
				step("work-aggregate", svcs.WorkAggregate.Recalculate),
				step("budget", svcs.Budget.Recalculate),
			},
		},
		{
			Name: JobSalary,
			Axis: engine.AxisEntityDate,
			Steps: []engine.Step{
				step("availability", svcs.Availability.Recalculate),
				step("work-aggregate", svcs.WorkAggregate.Recalculate),
				step("budget", svcs.Budget.Recalculate),
				step("salary", svcs.Salary.Recalculate),
			},
		},
	}

	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return err
		}
	}
	return nil
}

func step(name string, fn func(ctx context.Context, userID string, day time.Time) error) engine.Step {
	return engine.StepFunc{StepName: name, Fn: fn}
}
