package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Axis selects how a job's work set is partitioned.
type Axis int

const (
	// AxisEntityDate partitions over the cartesian product entities × days.
	AxisEntityDate Axis = iota
	// AxisDate partitions by day only.
	AxisDate
	// AxisEntity partitions by entity only.
	AxisEntity
)

// Step is one recalculation stage of a partition pipeline. Steps are opaque
// business functions; the engine only observes success or failure.
type Step interface {
	Name() string
	Run(ctx context.Context, entityID string, date time.Time) error
}

// StepFunc adapts a plain function to a Step.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, entityID string, date time.Time) error
}

func (s StepFunc) Name() string { return s.StepName }

func (s StepFunc) Run(ctx context.Context, entityID string, date time.Time) error {
	return s.Fn(ctx, entityID, date)
}

// Job is a named recalculation with a fixed, ordered pipeline. Later steps
// assume earlier steps already committed their effects for the same scope, so
// the order is a correctness requirement.
type Job struct {
	Name  string
	Axis  Axis
	Steps []Step
}

// Registry holds the launchable jobs.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

func (r *Registry) Register(job *Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name must not be empty")
	}
	if len(job.Steps) == 0 {
		return fmt.Errorf("job %q has no pipeline steps", job.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Name] = job
	return nil
}

func (r *Registry) Get(name string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[name]
	return job, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	return names
}
