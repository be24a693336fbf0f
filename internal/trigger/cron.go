package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/staffdesk/recalc/internal/engine"
	"github.com/staffdesk/recalc/pkg/config"
	"go.uber.org/zap"
)

// Launcher starts a job by name. Satisfied by *engine.Engine.
type Launcher interface {
	Launch(ctx context.Context, jobName string, props map[string]string) (int64, error)
}

// Scheduler fires config-driven recalculation launches on cron schedules.
// It is a thin collaborator: all execution bookkeeping stays in the engine.
type Scheduler struct {
	cron     *cron.Cron
	triggers []config.TriggerConfig
	launcher Launcher
	logger   *zap.Logger
}

func New(triggers []config.TriggerConfig, launcher Launcher, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		triggers: triggers,
		launcher: launcher,
		logger:   logger,
	}
}

// Start registers every configured trigger and starts the cron loop. A bad
// schedule expression fails the whole startup rather than being skipped.
func (s *Scheduler) Start() error {
	for _, t := range s.triggers {
		t := t
		_, err := s.cron.AddFunc(t.Schedule, func() {
			s.fire(t)
		})
		if err != nil {
			return fmt.Errorf("invalid trigger schedule %q for job %s: %w", t.Schedule, t.Job, err)
		}
		s.logger.Info("registered trigger",
			zap.String("job", t.Job),
			zap.String("schedule", t.Schedule))
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for in-flight trigger callbacks.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) fire(t config.TriggerConfig) {
	props := make(map[string]string, len(t.Params)+1)
	for k, v := range t.Params {
		props[k] = v
	}
	// Scheduled runs default to recalculating the fire date.
	if props[engine.PropStart] == "" {
		props[engine.PropStart] = time.Now().Format("2006-01-02")
	}

	executionID, err := s.launcher.Launch(context.Background(), t.Job, props)
	if err != nil {
		s.logger.Error("trigger launch failed",
			zap.String("job", t.Job),
			zap.Error(err))
		return
	}

	s.logger.Info("trigger launched job",
		zap.String("job", t.Job),
		zap.Int64("execution_id", executionID))
}
