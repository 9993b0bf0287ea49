package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/GiuGiglio/ai-supported-data-mapping-system/internal/adapters/http"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/bootstrap"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/config"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/observability/logging"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")

	app, err := bootstrap.New(ctx, cfg, httpMetrics)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		cfg,
		app.Vocabulary.DefaultCatalog,
		app.UploadUC,
		app.Repo,
		app.MapFieldsUC,
		app.NormalizeUC,
		app.AcceptUC,
		app.Accepted,
		httpMetrics,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
