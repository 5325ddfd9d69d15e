package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/routefleet/internal/control"
	"github.com/vietddude/routefleet/internal/core/config"
	"github.com/vietddude/routefleet/internal/core/domain"
	"github.com/vietddude/routefleet/internal/infra/registry"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the sources in the configured registry",
	Run:   runSources,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add [source_id...]",
	Short: "Register sources in a postgres or redis registry",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSourcesAdd,
}

func init() {
	sourcesCmd.AddCommand(sourcesAddCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) {
	cfg := bootstrap(config.LoadRegistry)

	ctx := context.Background()
	reg, err := control.OpenRegistry(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open registry", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = reg.Close()
	}()

	ids, err := reg.List(ctx)
	if err != nil {
		slog.Error("Failed to list sources", "error", err)
		_ = reg.Close()
		os.Exit(1)
	}

	out := cmd.OutOrStdout()
	for _, id := range ids {
		_, _ = fmt.Fprintln(out, id)
	}
	slog.Debug("Sources listed", "backend", cfg.Registry.Backend, "count", len(ids))
}

func runSourcesAdd(cmd *cobra.Command, args []string) {
	cfg := bootstrap(config.LoadRegistry)

	ctx := context.Background()
	reg, err := control.OpenRegistry(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open registry", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = reg.Close()
	}()

	w, ok := reg.(registry.Writer)
	if !ok {
		slog.Error("Registry backend is read-only", "backend", cfg.Registry.Backend)
		_ = reg.Close()
		os.Exit(1)
	}

	ids := make([]domain.SourceID, len(args))
	for i, a := range args {
		ids[i] = domain.SourceID(a)
	}

	if err := w.Add(ctx, ids...); err != nil {
		slog.Error("Failed to add sources", "error", err)
		_ = reg.Close()
		os.Exit(1)
	}

	fmt.Printf("Added %d source(s) to the %s registry\n", len(ids), cfg.Registry.Backend)
}
