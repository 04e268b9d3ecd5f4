package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/countrycache/countrycache/backend"
	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/countrycache/logger"
	"github.com/countrycache/countrycache/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, *cfg, Version)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		server := backend.NewApp(a.WebApp(), cfg.Web)
		address := cfg.Web.Address()

		errCh := make(chan error, 1)
		go func() {
			logger.LogSystem("Starting HTTP server", slog.String("address", address))
			errCh <- server.Listen(address)
		}()

		select {
		case err = <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.LogSystem("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
		defer cancel()
		if err = server.ShutdownWithContext(shutdownCtx); err != nil {
			logger.LogError("Server shutdown error", err)
		}
		logger.LogSystem("HTTP server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
