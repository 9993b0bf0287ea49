package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/bootstrap"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/config"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/observability/logging"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")

	app, err := bootstrap.New(ctx, cfg, workerMetrics)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	processTimeout := time.Duration(cfg.WorkerProcessTimeoutSeconds) * time.Second

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeProjectQueued(ctx, func(handlerCtx context.Context, projectID string) error {
		start := time.Now()
		if project, err := app.Repo.GetByID(handlerCtx, projectID); err == nil {
			workerMetrics.ObserveQueueLag(start.Sub(project.CreatedAt))
		}
		workerMetrics.StartProject()

		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		processErr := app.ProcessUC.ProcessByID(processCtx, projectID)
		workerMetrics.FinishProject(time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		slog.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}
