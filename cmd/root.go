package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/countrycache/countrycache/countrycache"
	"github.com/countrycache/countrycache/countrycache/logger"
)

var (
	Version = "dev"
	Commit  = "unknown"

	configPath string
	cfg        *countrycache.Config
)

var rootCmd = &cobra.Command{
	Use:           "countrycache",
	Short:         "Country snapshot cache with GDP estimates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// bootstrap logger so config loading warnings are formatted
		slog.SetDefault(logger.New("CountryCache", "text", slog.LevelInfo, false))

		loaded, err := countrycache.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		slog.SetDefault(logger.New("CountryCache", cfg.Log.Format, cfg.Log.Level, cfg.Log.AddSource))
		logger.LogSystem("Configuration loaded",
			slog.String("version", Version),
			slog.String("commit", Commit),
			slog.String("driver", cfg.DB.Driver))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to config")
}

func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command failed", err)
		os.Exit(1)
	}
}
