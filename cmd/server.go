package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/internal/server"
	"github.com/vzahanych/weather-widget/internal/server/handlers"
	"go.uber.org/zap"
)

func serverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Serve the widget over HTTP",
		Long:  `Start the HTTP API: POST /search, GET /view, GET /recent, POST /recent/:index and DELETE /recent?confirm=true.`,
		RunE:  runServer,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	logger := log.Zap()

	logger.Info("Starting weather widget server",
		zap.String("config_path", configPath),
		zap.Bool("telemetry_enabled", tele.IsEnabled()),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Int("server_port", cfg.Server.Port))

	a, err := newApp(cfg, logger, tele, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(cfg.Server, a.ctrl, logger, tele,
		handlers.ReadinessCheck{Name: "storage", Check: a.storageReady})
	a.ctrl.SetMetricsRecorder(srv.Metrics())
	if a.cached != nil {
		a.cached.SetMetricsRecorder(srv.Metrics())
	}

	// History is loaded before serving; only the last-city resume, which can
	// take a network round trip, runs in the background.
	a.history.Load(cmd.Context())
	go func() {
		if _, err := a.ctrl.Start(cmd.Context()); err != nil {
			logger.Warn("Failed to start widget", zap.Error(err))
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Server error", zap.Error(err))
		}
		return err
	case <-cmd.Context().Done():
		logger.Info("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
			return err
		}

		logger.Info("Server shutdown complete")
		return nil
	}
}
