package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/staffdesk/recalc/internal/api"
	"github.com/staffdesk/recalc/internal/api/handler"
	"github.com/staffdesk/recalc/internal/dto/mapper"
	"github.com/staffdesk/recalc/internal/engine"
	"github.com/staffdesk/recalc/internal/infra/persistence/executionrepo"
	"github.com/staffdesk/recalc/internal/orm"
	"github.com/staffdesk/recalc/pkg/config"
	"github.com/staffdesk/recalc/pkg/logger"
	"github.com/yitter/idgenerator-go/idgen"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Execution ids are snowflake ids so that restarts relaunching the same
	// logical job still get ledger rows that sort by creation time.
	options := idgen.NewIdGeneratorOptions(1)
	options.BaseTime = 1756684800000
	options.WorkerIdBitLength = 6
	idgen.SetIdGenerator(options)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting recalculation engine",
		zap.Int("port", cfg.Server.Port))

	storage, err := orm.New(ProvideStorageConfig(*cfg))
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer storage.Close()

	app, err := buildApp(*cfg, zapLogger, storage)
	if err != nil {
		zapLogger.Fatal("Failed to assemble application", zap.Error(err))
	}

	app.side.StartSweeper()
	defer app.side.Stop()

	if err := app.triggers.Start(); err != nil {
		zapLogger.Fatal("Failed to start triggers", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        app.server.Router(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		zapLogger.Info("Starting API server",
			zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zapLogger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shutdown API server", zap.Error(err))
	}

	app.triggers.Stop()

	// In-flight executions finalize their ledger rows before exit.
	app.engine.Drain()

	zapLogger.Info("Shutdown complete")
}

// buildApp assembles the object graph by hand, mirroring the wire graph in
// wire.go.
func buildApp(cfg config.Config, zapLogger *zap.Logger, storage *orm.Storage) (*App, error) {
	db := ProvideDB(storage)
	repo := executionrepo.NewMysqlRepositoryImpl(db)

	tracker := ProvideTracker(repo, cfg, zapLogger)
	side := ProvideSideChannel(tracker, cfg, zapLogger)
	planner := ProvidePlanner(ProvideEntitySource(db), cfg, zapLogger)
	worker := engine.NewWorker(ProvideTransaction(db), zapLogger)
	lifecycle := engine.NewLifecycle(tracker, side, zapLogger)
	eventBus := engine.NewEventBus(ProvideRedisClient(cfg), zapLogger)
	registry := engine.NewRegistry()

	eng := engine.NewEngine(registry, planner, worker, tracker, lifecycle, side,
		eventBus, ProvideEngineConfig(cfg), zapLogger)

	executionMapper := mapper.NewExecutionMapper()
	executionHandler := handler.NewExecutionHandler(repo, executionMapper)
	jobHandler := handler.NewJobHandler(eng, registry)
	server := api.NewServer(storage, executionHandler, jobHandler, zapLogger)

	triggers := ProvideTriggerScheduler(cfg, eng, zapLogger)

	return NewApp(cfg, zapLogger, storage, eng, registry, side, server, triggers,
		ProvideServices(db))
}
