package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-widget/internal/config"
	"github.com/vzahanych/weather-widget/pkg/logger"
	"github.com/vzahanych/weather-widget/pkg/telemetry"
	"go.uber.org/zap"
)

var (
	log        *logger.Logger
	tele       *telemetry.Telemetry
	configPath string
)

// errReported marks a failure the command already showed to the user.
var errReported = errors.New("reported")

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Weather search widget",
		Long: `Search current weather and a five day forecast by city name, from the terminal
or through a small HTTP API, with a persistent list of recent searches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeServices(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			shutdownServices()
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default: ./config.yaml)")

	cmd.AddCommand(serverCmd())
	cmd.AddCommand(interactiveCmd())
	cmd.AddCommand(searchCmd())
	cmd.AddCommand(historyCmd())

	return cmd
}

func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		if log != nil {
			log.Zap().Info("Received shutdown signal", zap.String("signal", sig.String()))
		}
		cancel()
	}()

	err := rootCmd().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func initializeServices(ctx context.Context) error {
	// 1. Load config: .env, then file, then WEATHER_* env
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Set config
	// Having config in atomic allows changing it during runtime
	config.SetConfig(cfg)

	// 3. Initialize logger
	log, err = logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 4. Telemetry is optional; a broken collector only costs traces
	tele, err = telemetry.New(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		log.Zap().Warn("Failed to initialize telemetry", zap.Error(err))
	}

	return nil
}

func shutdownServices() {
	if tele != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tele.Shutdown(ctx); err != nil {
			log.Zap().Warn("Failed to shut down telemetry", zap.Error(err))
		}
	}
	if log != nil {
		_ = log.Sync()
	}
}
