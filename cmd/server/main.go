// Command server runs the learnpath HTTP API and the retraining worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"learnpath/internal/config"
	"learnpath/internal/di"
	"learnpath/internal/handlers"
	"learnpath/internal/observability"
	"learnpath/internal/version"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		// The logger needs the config, so this one goes to stderr directly.
		panic(err)
	}

	logger := observability.NewLogger(&cfg.OpenTelemetry)
	defer func() { _ = logger.Sync() }()

	observability.InitPropagators()
	observability.InitGlobalTracer()
	if cfg.OpenTelemetry.EnableTracing && cfg.OpenTelemetry.Endpoint != "" {
		tp, err := observability.InitStandardTracing(&cfg.OpenTelemetry)
		if err != nil {
			logger.Error(ctx, "Failed to initialize tracing", err)
			os.Exit(1)
		}
		otel.SetTracerProvider(tp)
		if sdkProvider, ok := tp.(*sdktrace.TracerProvider); ok {
			defer func() {
				if err := sdkProvider.Shutdown(context.Background()); err != nil {
					logger.Error(context.Background(), "Failed to shut down tracer provider", err)
				}
			}()
		}
	}

	logger.Info(ctx, "Starting learnpath server", map[string]interface{}{
		"version":    version.Version,
		"commit":     version.Commit,
		"build_time": version.BuildTime,
		"port":       cfg.Server.Port,
	})

	container, err := di.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to build service container", err)
		os.Exit(1)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error(context.Background(), "Failed to close container", err)
		}
	}()

	analyticsHandler := handlers.NewAnalyticsHandler(
		container.AttemptStore,
		container.Analytics,
		container.Clusters,
		container.Mastery,
		container.Recommendation,
		container.LearningPath,
		logger,
	)
	quizHandler := handlers.NewQuizHandler(container.Quiz, logger)
	adminHandler := handlers.NewAdminHandler(container.Worker, logger)

	router := handlers.NewRouter(cfg, logger, analyticsHandler, quizHandler, adminHandler)

	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		container.Worker.Run(workerCtx)
		close(workerDone)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: config.DefaultHTTPTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Server failed", err)
		}
	case sig := <-quit:
		logger.Info(ctx, "Shutting down", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Server shutdown failed", err)
	}

	stopWorker()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn(context.Background(), "Worker did not stop before the shutdown deadline")
	}

	logger.Info(context.Background(), "Server stopped")
}
