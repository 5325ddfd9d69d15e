package cli

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/routefleet/internal/core/config"
	"github.com/vietddude/routefleet/internal/core/domain"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Show the route set and per-source overrides",
	Run:   runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) {
	cfg := bootstrap(config.Load)

	routes, err := cfg.RouteSet()
	if err != nil {
		slog.Error("Invalid route set", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "INDEX\tROUTE")
	for i, r := range routes.Routes() {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i, r)
	}
	_ = w.Flush()

	if len(cfg.Overrides.StartRoute) == 0 && len(cfg.Overrides.MaxAttempts) == 0 {
		return
	}

	ids := make(map[string]struct{})
	for id := range cfg.Overrides.StartRoute {
		ids[id] = struct{}{}
	}
	for id := range cfg.Overrides.MaxAttempts {
		ids[id] = struct{}{}
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	overrides := cfg.RoutingOverrides()
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SOURCE\tSTART\tMAX_ATTEMPTS")
	for _, id := range sorted {
		budget := overrides.Budget(domain.SourceID(id))
		if budget == 0 {
			budget = routes.Len()
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", id, overrides.Start(domain.SourceID(id)), budget)
	}
	_ = w.Flush()
}
