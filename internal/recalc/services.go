// Package recalc binds the engine to the intranet's recalculation services.
// The engine treats each step as an opaque function that either completes or
// fails; everything domain-specific lives behind these interfaces.
package recalc

import (
	"context"
	"time"
)

type AvailabilityService interface {
	Recalculate(ctx context.Context, userID string, day time.Time) error
}

type WorkAggregateService interface {
	Recalculate(ctx context.Context, userID string, day time.Time) error
}

type BudgetService interface {
	Recalculate(ctx context.Context, userID string, day time.Time) error
}

type SalaryService interface {
	Recalculate(ctx context.Context, userID string, day time.Time) error
}

// Services groups the step implementations a deployment provides.
type Services struct {
	Availability  AvailabilityService
	WorkAggregate WorkAggregateService
	Budget        BudgetService
	Salary        SalaryService
}
