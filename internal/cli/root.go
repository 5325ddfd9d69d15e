package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vietddude/routefleet/internal/control"
	"github.com/vietddude/routefleet/internal/core/config"
	"github.com/vietddude/routefleet/internal/fleet"
	"github.com/vietddude/routefleet/internal/report"
)

var (
	cfgPath   string
	isDebug   bool
	perSource bool
)

var rootCmd = &cobra.Command{
	Use:   "routefleet",
	Short: "Concurrent source loader with route fallback",
	Long: `routefleet loads every registered source concurrently, trying each one
through an ordered list of routes (direct or via proxies) until it loads
or its route budget is spent, then reports how many sources loaded.`,
	Run: runFleet,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&perSource, "per-source", false, "print a per-source result table")
}

// bootstrap loads .env and configuration with load and initializes logging.
// Any failure is logged and terminates the process.
func bootstrap(load func(path string) (*config.AppConfig, error)) *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := load(cfgPath)
	if err != nil {
		setupLogging(config.LoggingConfig{}, isDebug)
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging, isDebug)
	return cfg
}

func runFleet(cmd *cobra.Command, args []string) {
	cfg := bootstrap(config.Load)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// In-flight attempts finish on their own timeouts; a second signal kills the process.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			stop()
			slog.Warn("Received signal, waiting for in-flight sources to settle")
		case <-finished:
		}
	}()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize routefleet", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Close()
	}()

	slog.Info("Routefleet started", "config", cfgPath)

	outcome, err := app.Run(ctx)
	if outcome != nil {
		if werr := report.Write(cmd.OutOrStdout(), outcome, perSource); werr != nil {
			slog.Error("Failed to write report", "error", werr)
		}
	}
	if err != nil {
		var defect *fleet.DefectError
		switch {
		case errors.As(err, &defect):
			slog.Error("Fleet run aborted by defect", "source", defect.SourceID, "error", defect.Err)
		case errors.Is(err, control.ErrInterrupted):
			slog.Error("Fleet run interrupted", "error", err)
		default:
			slog.Error("Fleet run failed", "error", err)
		}
		_ = app.Close()
		os.Exit(1)
	}
}
