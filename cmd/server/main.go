package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"canales-taurinos/internal/api/routes"
	"canales-taurinos/internal/background"
	"canales-taurinos/internal/catalog"
	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/scraper"
	"canales-taurinos/internal/scraper/diagnostics"
	"canales-taurinos/internal/snapshot"
	"canales-taurinos/internal/source"
	"canales-taurinos/pkg/utils"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(utils.GetStringOrDefault(os.Getenv("CONFIG_PATH"), "configs/config.yaml"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.InitializeLogging(cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting Canales Taurinos", map[string]interface{}{
		"version": version,
		"storage": cfg.Storage.Backend,
		"sources": cfg.EnabledSources(),
	})

	store, err := snapshot.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open snapshot store", map[string]interface{}{"error": err.Error()})
	}

	recorder, err := diagnostics.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to set up diagnostics", map[string]interface{}{"error": err.Error()})
	}

	factory := scraper.NewFactory(cfg, logger)

	registry, err := source.NewBuiltin(cfg, source.Deps{
		Acquirers: factory,
		Store:     store,
		Recorder:  recorder,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Failed to register sources", map[string]interface{}{"error": err.Error()})
	}

	// Regional files are hand-maintained on disk whatever the snapshot backend
	regionalFiles, err := snapshot.NewFileStore(cfg.Storage.DataDir, logger)
	if err != nil {
		logger.Fatal("Failed to open regional data directory", map[string]interface{}{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var scheduler *background.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = background.NewScheduler(cfg.Scheduler, registry, logger)
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatal("Failed to start scheduler", map[string]interface{}{"error": err.Error()})
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	routes.SetupRoutes(e, cfg, routes.Deps{
		Registry:  registry,
		Catalog:   catalog.New(regionalFiles, cfg.Regional, logger),
		Store:     store,
		Scheduler: scheduler,
		Logger:    logger,
		Version:   version,
	})

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Info("Server starting", map[string]interface{}{"address": address})
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop scheduled runs first so no browser is launched during shutdown
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping scheduler", map[string]interface{}{"error": err.Error()})
		}
	}

	logger.Info("Stopping HTTP server...", nil)
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Closing browser sessions...", map[string]interface{}{"active": factory.ActiveSessions()})
	if err := factory.Shutdown(); err != nil {
		logger.Error("Error closing browser sessions", map[string]interface{}{"error": err.Error()})
	}

	if err := store.Close(); err != nil {
		logger.Error("Error closing snapshot store", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Server shutdown complete", nil)
}
