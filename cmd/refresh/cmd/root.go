package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"canales-taurinos/internal/config"
	"canales-taurinos/internal/logging"
	"canales-taurinos/internal/scraper"
	"canales-taurinos/internal/scraper/diagnostics"
	"canales-taurinos/internal/snapshot"
	"canales-taurinos/internal/source"
)

var (
	configPath string
	scheduled  bool
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "refresh [source...]",
	Short: "refresh scrapes the given sources (all when none given) and updates their snapshots.",
	Long: `refresh runs one refresh cycle per source and persists the result to the
snapshot store, the same way the server does on a forced refresh.

With --scheduled each source only runs when its minimum interval since the
last successful scheduled run has elapsed.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(configPath)
		if err != nil {
			return err
		}
		defer env.close()

		handles, err := selectHandles(env.registry, args)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if scheduled {
			renderScheduled(cmd.OutOrStdout(), runScheduled(ctx, handles))
			return nil
		}

		results := runRefresh(ctx, handles)
		renderRefresh(cmd.OutOrStdout(), results)
		if failed := countFailed(results); failed > 0 {
			return fmt.Errorf("%d of %d sources did not refresh", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the configuration file")
	rootCmd.Flags().BoolVar(&scheduled, "scheduled", false, "honor each source's minimum scheduled interval")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "overall deadline for all sources")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type environment struct {
	registry *source.Registry
	store    snapshot.Store
	factory  *scraper.Factory
	logger   logging.Logger
}

// setup builds the same component graph as the server, minus HTTP and the
// scheduler loop
func setup(path string) (*environment, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := logging.InitializeLogging(cfg.Logging); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	logger := logging.GetGlobalLogger()

	store, err := snapshot.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	recorder, err := diagnostics.New(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("set up diagnostics: %w", err)
	}

	factory := scraper.NewFactory(cfg, logger)
	registry, err := source.NewBuiltin(cfg, source.Deps{
		Acquirers: factory,
		Store:     store,
		Recorder:  recorder,
		Logger:    logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("register sources: %w", err)
	}

	return &environment{registry: registry, store: store, factory: factory, logger: logger}, nil
}

func (e *environment) close() {
	if err := e.factory.Shutdown(); err != nil {
		e.logger.Error("Error closing browser sessions", map[string]interface{}{"error": err.Error()})
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("Error closing snapshot store", map[string]interface{}{"error": err.Error()})
	}
	logging.CloseLogging()
}
