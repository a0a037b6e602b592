package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/config"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/export"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/handlers"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/services"
)

const shutdownTimeout = 3 * time.Second

type application struct {
	config *config.Config
	logger *slog.Logger
	server *http.Server
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP analysis server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				env.close(ctx)
			}()

			app := New(env.config, env.logger)
			if err := app.Run(); err != nil {
				env.logger.Error("Server stopped with error", "err", err.Error())
				return err
			}
			return nil
		},
	}
}

// New creates and initializes a new application instance with all dependencies
func New(cfg *config.Config, logger *slog.Logger) *application {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	location := cfg.GetLocation()

	// Initialize services with dependency injection
	messageClient := services.NewMessageClient(cfg.Backend, logger)
	aggregator := services.NewAggregator(location, cfg.Analysis.MaxMessages)
	conversationAnalyzer := services.NewConversationAnalyzer(messageClient, aggregator, cfg.Analysis.FilterByDate, logger)
	exporter := export.NewExporter(location)
	analysisHandler := handlers.NewConversationAnalysisHandler(conversationAnalyzer, exporter, location, logger)

	router := handlers.NewRouter(analysisHandler, handlers.RouterConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled(),
		Logger:         logger,
	})

	// Configure HTTP server.
	// The write timeout leaves room for the backend call.
	server := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Backend.Timeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &application{
		config: cfg,
		logger: logger,
		server: server,
	}
}

// Run starts the HTTP server and handles graceful shutdown.
// Uses BaseContext to propagate cancellation to all active requests when shutdown is initiated.
func (app *application) Run() error {
	// Cancelled when shutdown is initiated; every request context inherits it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.server.BaseContext = func(_ net.Listener) context.Context {
		return ctx
	}

	// Channel to communicate shutdown errors from the shutdown goroutine
	shutdownErrCh := make(chan error)

	go func() {
		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

		// Block until we receive a shutdown signal
		sig := <-signalCh
		app.logger.Info("Shutdown signal received", "signal", sig.String())

		// Signal all active requests that shutdown is happening
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		app.logger.Info("Shutting down server gracefully...")
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			shutdownErrCh <- err
			return
		}

		app.logger.Info("Server stopped gracefully")
		shutdownErrCh <- nil
	}()

	// Start the server (this blocks until the server is shut down)
	app.logger.Info("HTTP server starting", "address", app.config.GetServerAddress(), "backend", app.config.Backend.FindMessagesURL())
	err := app.server.ListenAndServe()

	// After Shutdown or Close, the error is ErrServerClosed
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	// Wait for the shutdown goroutine to finish and report any errors
	if err := <-shutdownErrCh; err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
