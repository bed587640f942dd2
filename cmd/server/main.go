// Package main is the entry point for the citysnap-gateway HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/config"
	"github.com/fleveque/citysnap-gateway/internal/llm"
	"github.com/fleveque/citysnap-gateway/internal/provider"
	"github.com/fleveque/citysnap-gateway/internal/server"
	"github.com/fleveque/citysnap-gateway/internal/service"
	"github.com/fleveque/citysnap-gateway/internal/storage"
)

func main() {
	// run() keeps deferred cleanup working; os.Exit skips defers.
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CITYSNAP_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	// Sync commonly fails on stdout/stderr.
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	var (
		db       *sqlx.DB
		deps     server.Deps
		history  service.LookupRecorder
		recorder llm.CallRecorder
	)
	if cfg.Storage.DatabasePath != "" {
		db, err = storage.NewDatabase(cfg.Storage.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		deps.LookupRepo = storage.NewLookupRepository(db)
		deps.LLMCallRepo = storage.NewLLMCallRepository(db)
		history = deps.LookupRepo
		recorder = deps.LLMCallRepo
	}

	images, err := storage.NewImageStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating image store: %w", err)
	}

	// The enricher takes an interface; a nil *Facade must stay a nil interface.
	var querier service.LLMQuerier
	facade, err := llm.Build(ctx, cfg.LLM, recorder, logger)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("no LLM provider configured, enrichment disabled")
	case err != nil:
		return fmt.Errorf("configuring LLM providers: %w", err)
	default:
		logger.Info("LLM enrichment enabled",
			zap.Strings("providers", facade.AvailableProviders()),
			zap.String("default", facade.DefaultProvider()),
		)
		querier = facade
		deps.LLMEnabled = true
	}

	deps.BuildingService = service.NewBuildingService(
		provider.NewNominatimClient(cfg.Geocoding, logger),
		provider.NewOSMClient(cfg.BuildingData, logger),
		images,
		service.NewLLMEnricher(querier, cfg.LLM.RatePerMinute, logger),
		history,
		logger,
	)

	srv := server.New(cfg, deps, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// Give in-flight requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	cfg.Level = lvl
	return cfg.Build()
}
