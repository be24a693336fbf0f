//go:build wireinject
// +build wireinject

package main

//go:generate go run -mod=mod github.com/google/wire/cmd/wire

import (
	"github.com/google/wire"
	"github.com/staffdesk/recalc/internal/api"
	"github.com/staffdesk/recalc/internal/engine"
	"github.com/staffdesk/recalc/internal/infra/persistence/executionrepo"
	"github.com/staffdesk/recalc/internal/orm"
	"github.com/staffdesk/recalc/pkg/config"
	"go.uber.org/zap"
)

func InitializeApp(cfg config.Config, logger *zap.Logger, storage *orm.Storage) (*App, error) {
	wire.Build(
		NewApp,

		ProvideRedisClient,
		ProvideDB,
		ProvideTransaction,
		ProvideEntitySource,
		ProvideServices,
		ProvideEngineConfig,
		ProvideTracker,
		ProvideSideChannel,
		ProvidePlanner,
		ProvideTriggerScheduler,

		// engine providers
		engine.Provider,

		// http api providers
		api.Provider,

		// infra providers
		executionrepo.Provider,
	)
	return nil, nil
}
