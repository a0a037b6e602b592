package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/config"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/logger"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/telemetry"
)

// environment holds what every command needs once the configuration is loaded
type environment struct {
	config    *config.Config
	logger    *slog.Logger
	telemetry *telemetry.Telemetry
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "wa-analyzer",
		Short:         "Analyze WhatsApp conversations fetched from a messaging backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the JSON configuration file")

	rootCmd.AddCommand(newServeCommand(&configPath))
	rootCmd.AddCommand(newAnalyzeCommand(&configPath))

	return rootCmd
}

// setup loads the configuration, then starts telemetry and the logger.
// Telemetry comes first so the logger can pick up trace identifiers.
func setup(ctx context.Context, configPath string) (*environment, error) {
	var cfg config.Config

	// Get the configuration
	if err := config.Load(&cfg, configPath); err != nil {
		// No logger is configured yet
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load config", "err", err.Error())
		return nil, err
	}

	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to setup telemetry: %w", err)
	}

	// Create the logger. Production logs go to the collector once telemetry is up.
	var log *slog.Logger
	if cfg.IsProduction() && tel != nil {
		log = logger.NewOTel(cfg.Telemetry.ServiceName)
	} else {
		log = logger.New(os.Stderr, cfg.IsProduction())
	}
	if tel != nil {
		log.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint)
	}

	return &environment{
		config:    &cfg,
		logger:    log,
		telemetry: tel,
	}, nil
}

// close flushes pending telemetry
func (env *environment) close(ctx context.Context) {
	if err := env.telemetry.Shutdown(ctx); err != nil {
		env.logger.Error("Failed to shutdown telemetry", "err", err.Error())
	}
}
