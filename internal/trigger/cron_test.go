package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/staffdesk/recalc/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLauncher struct {
	mu    sync.Mutex
	jobs  []string
	props []map[string]string
}

func (s *stubLauncher) Launch(_ context.Context, jobName string, props map[string]string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, jobName)
	s.props = append(s.props, props)
	return 1, nil
}

func TestStartRejectsBadSchedule(t *testing.T) {
	sched := New([]config.TriggerConfig{
		{Schedule: "not a cron expr", Job: "salary-recalc"},
	}, &stubLauncher{}, zap.NewNop())

	err := sched.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salary-recalc")
}

func TestFireDefaultsStartToToday(t *testing.T) {
	launcher := &stubLauncher{}
	sched := New(nil, launcher, zap.NewNop())

	sched.fire(config.TriggerConfig{
		Job:    "salary-recalc",
		Params: map[string]string{"threads": "2"},
	})

	require.Len(t, launcher.props, 1)
	assert.Equal(t, "salary-recalc", launcher.jobs[0])
	assert.Equal(t, time.Now().Format("2006-01-02"), launcher.props[0]["start"])
	assert.Equal(t, "2", launcher.props[0]["threads"])
}

func TestFireKeepsExplicitStart(t *testing.T) {
	launcher := &stubLauncher{}
	sched := New(nil, launcher, zap.NewNop())

	sched.fire(config.TriggerConfig{
		Job:    "budget-recalc",
		Params: map[string]string{"start": "2026-01-01", "end": "2026-01-31"},
	})

	require.Len(t, launcher.props, 1)
	assert.Equal(t, "2026-01-01", launcher.props[0]["start"])
	assert.Equal(t, "2026-01-31", launcher.props[0]["end"])
}

func TestStartAndStop(t *testing.T) {
	sched := New([]config.TriggerConfig{
		{Schedule: "@daily", Job: "salary-recalc"},
	}, &stubLauncher{}, zap.NewNop())

	require.NoError(t, sched.Start())
	sched.Stop()
}
