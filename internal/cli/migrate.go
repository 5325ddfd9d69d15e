package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/routefleet/internal/core/config"
	"github.com/vietddude/routefleet/internal/infra/registry"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the postgres registry migrations",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := bootstrap(config.LoadRegistry)

	if cfg.Database.URL == "" {
		slog.Error("database.url is not configured")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := registry.NewPostgres(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("Failed to migrate database", "error", err)
		_ = db.Close()
		os.Exit(1)
	}

	fmt.Println("Registry migrations applied")
}
