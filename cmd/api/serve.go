package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"greenzone/internal/handler"
	"greenzone/internal/idempotency"
	"greenzone/internal/ledger"
	"greenzone/internal/metrics"
	"greenzone/internal/router"

	"github.com/spf13/cobra"
)

var serveSeed string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registry HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSeed, "seed", "",
		`catalogue to apply before serving ("sample" for the built-in catalogue)`)
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info().Str("version", version).Msg("starting greenzone API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := shutdownContext(cfg.Server.ShutdownTimeout)
		defer closeCancel()
		a.close(closeCtx)
	}()

	if serveSeed != "" {
		if err := applySeed(ctx, a, serveSeed, serveSeed == "sample"); err != nil {
			return err
		}
	}

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(a.registry, a.query, logger)
	ownershipHandler := handler.NewOwnershipHandler(a.registry, logger)

	guard := idempotency.NewGuard(cfg.Idempotency.TTL, cfg.Idempotency.CleanupInterval)

	// Initialize router
	mux := router.New(productHandler, ownershipHandler, guard, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the servers
	serverErrors := make(chan error, 2)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Address(), a.gatherer)
		go func() {
			logger.Info().
				Str("address", cfg.Metrics.Address()).
				Msg("metrics server started")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrors <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	consumerDone := make(chan struct{})
	if cfg.Steps.ConsumerEnabled {
		client, err := ledger.NewSQSClient(ctx, cfg.AWS.Region, cfg.AWS.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize step consumer: %w", err)
		}
		consumer := ledger.NewStepConsumer(client, cfg.Steps.QueueURL, a.steps, ledger.StepConsumerOptions{
			MaxMessages:     int32(cfg.Steps.MaxMessages),
			WaitTimeSeconds: int32(cfg.Steps.WaitTimeSeconds),
		}, a.metrics, logger)

		go func() {
			defer close(consumerDone)
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("step consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive a signal or an error
	var runErr error
	select {
	case err := <-serverErrors:
		runErr = fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")
	}

	// Stop the consumer before the store it writes to is closed
	cancel()
	<-consumerDone

	// Create a context with timeout for shutdown
	shutdownCtx, shutdownCancel := shutdownContext(cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown metrics server")
		}
	}

	// Attempt graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server gracefully")
		// Force close
		if closeErr := server.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close server")
		}
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info().Msg("server shutdown completed")

	return runErr
}
