package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/countrycache/database"
	"github.com/countrycache/countrycache/countrycache/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the countries and refresh_status tables and their indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DB.Driver != config.DriverPostgres {
			return fmt.Errorf("migrate needs the %s driver, configured %q", config.DriverPostgres, cfg.DB.Driver)
		}

		ctx := cmd.Context()
		start := time.Now()

		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err = db.InitializeSchema(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		logger.LogSystem("Schema initialized",
			slog.String("database", cfg.DB.Database),
			slog.Duration("took", time.Since(start)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
