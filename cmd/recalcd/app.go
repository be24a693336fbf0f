package main

import (
	"github.com/staffdesk/recalc/internal/api"
	"github.com/staffdesk/recalc/internal/engine"
	"github.com/staffdesk/recalc/internal/orm"
	"github.com/staffdesk/recalc/internal/recalc"
	"github.com/staffdesk/recalc/internal/trigger"
	"github.com/staffdesk/recalc/pkg/config"
	"go.uber.org/zap"
)

// App bundles the wired components the main loop drives.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	storage  *orm.Storage
	engine   *engine.Engine
	side     *engine.SideChannel
	server   *api.Server
	triggers *trigger.Scheduler
}

func NewApp(
	cfg config.Config,
	logger *zap.Logger,
	storage *orm.Storage,
	eng *engine.Engine,
	registry *engine.Registry,
	side *engine.SideChannel,
	server *api.Server,
	triggers *trigger.Scheduler,
	svcs recalc.Services,
) (*App, error) {
	if err := recalc.RegisterStandardJobs(registry, svcs); err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		storage:  storage,
		engine:   eng,
		side:     side,
		server:   server,
		triggers: triggers,
	}, nil
}
