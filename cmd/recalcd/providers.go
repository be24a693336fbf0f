package main

import (
	"fmt"

	redis "github.com/go-redis/redis/v8"
	"github.com/staffdesk/recalc/internal/biz/execution"
	"github.com/staffdesk/recalc/internal/engine"
	"github.com/staffdesk/recalc/internal/infra/persistence/commonrepo"
	"github.com/staffdesk/recalc/internal/orm"
	"github.com/staffdesk/recalc/internal/recalc"
	"github.com/staffdesk/recalc/internal/trigger"
	"github.com/staffdesk/recalc/pkg/config"
	"go.uber.org/zap"
)

// ProvideRedisClient builds a redis client from typed config.
// Returns nil when redis is disabled; the event bus degrades to log-only.
func ProvideRedisClient(cfg config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func ProvideStorageConfig(cfg config.Config) orm.Config {
	return orm.Config{
		Host:                  cfg.Database.Host,
		Port:                  cfg.Database.Port,
		Database:              cfg.Database.Database,
		User:                  cfg.Database.User,
		Password:              cfg.Database.Password,
		MaxConnections:        cfg.Database.MaxConnections,
		MaxIdleConnections:    cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: cfg.Database.ConnectionMaxLifetime,
	}
}

func ProvideDB(storage *orm.Storage) commonrepo.DB {
	return storage.DB()
}

// ProvideTransaction is the transaction boundary the worker wraps each
// partition pipeline in.
func ProvideTransaction(db commonrepo.DB) commonrepo.Transaction {
	repo := commonrepo.NewDefaultRepo(db)
	return &repo
}

func ProvideEntitySource(db commonrepo.DB) engine.EntitySource {
	return recalc.NewSQLEntitySource(db)
}

func ProvideServices(db commonrepo.DB) recalc.Services {
	return recalc.NewSQLServices(db).Bundle()
}

func ProvideEngineConfig(cfg config.Config) engine.Config {
	return engine.Config{Milestones: cfg.Engine.ProgressMilestones}
}

func ProvideTracker(repo execution.Repo, cfg config.Config, logger *zap.Logger) *engine.Tracker {
	return engine.NewTracker(repo, cfg.Engine.CompletionTolerance, cfg.Engine.FinalizeSettleDelay, logger)
}

func ProvideSideChannel(tracker *engine.Tracker, cfg config.Config, logger *zap.Logger) *engine.SideChannel {
	return engine.NewSideChannel(tracker, cfg.Engine.FailureRetention, cfg.Engine.FailureSweepInterval, logger)
}

func ProvidePlanner(source engine.EntitySource, cfg config.Config, logger *zap.Logger) *engine.Planner {
	return engine.NewPlanner(source, cfg.Engine.MaxAutoThreads, logger)
}

func ProvideTriggerScheduler(cfg config.Config, eng *engine.Engine, logger *zap.Logger) *trigger.Scheduler {
	return trigger.New(cfg.Triggers, eng, logger)
}
