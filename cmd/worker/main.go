package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aman3729/Credit-Score-sub000/internal/bootstrap"
	"github.com/aman3729/Credit-Score-sub000/internal/config"
	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/observability/logging"
	"github.com/aman3729/Credit-Score-sub000/internal/observability/metrics"
)

const workerService = "credit-upload-worker"

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(workerService, cfg.LogLevel))
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		slog.Warn("dotenv_load_failed", "error", envErr.Error())
	}
	if !cfg.HistoryEnabled {
		slog.Error("worker_requires_history", "hint", "set HISTORY_ENABLED=true")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(workerService)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeUploadFinished(ctx, func(handlerCtx context.Context, event domain.UploadEvent) error {
		workerMetrics.ObserveEventLag(workerService, time.Since(event.OccurredAt))
		workerMetrics.StartEvent()
		start := time.Now()

		recordCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		err := app.Recorder.RecordEvent(recordCtx, event)
		workerMetrics.FinishEvent(workerService, time.Since(start), err)
		return err
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err.Error())
	}
}
