package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/aman3729/Credit-Score-sub000/internal/config"
	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
	"github.com/aman3729/Credit-Score-sub000/internal/core/usecase"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/extractor/xlsx"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/partners"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/queue/nats"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/repository/memory"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/repository/postgres"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/resilience"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/scoring"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/storage/localfs"
	"github.com/aman3729/Credit-Score-sub000/internal/observability/metrics"
)

const apiService = "credit-upload-api"

type App struct {
	Config config.Config

	Queue       *nats.Queue
	Sessions    ports.SessionService
	Recorder    ports.UploadEventRecorder
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	var (
		db       *sql.DB
		history  ports.UploadHistory
		recorder ports.UploadEventRecorder
	)
	if cfg.HistoryEnabled {
		var err error
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewUploadHistoryRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		history = repo
		recorder = usecase.NewHistoryRecorder(repo)
	}
	closeDB := func() {
		if db != nil {
			_ = db.Close()
		}
	}

	directory, err := partners.Load(cfg.PartnersFile)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("load partners: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(apiService)
	uploadMetrics := metrics.NewUploadMetrics(apiService, httpMetrics.Registerer())

	executor := resilience.NewExecutor(cfg.Resilience())
	executor.OnStateChange(func(operation string, _, to gobreaker.State) {
		uploadMetrics.ObserveBreakerState(operation, to != gobreaker.StateClosed)
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	scoringClient := scoring.New(cfg.ScoringBaseURL, cfg.ScoringRequestTimeout, executor)
	engine := usecase.NewMappingEngine(nil, nil)
	uploads := usecase.NewUploadOrchestrator(scoringClient, queue, uploadMetrics, usecase.UploadOptions{
		Timeout:          cfg.UploadTimeout,
		ProgressInterval: cfg.UploadProgressInterval,
	})

	sessions := usecase.NewSessionUseCase(usecase.SessionDeps{
		Store:         memory.NewSessionStore(cfg.SessionTTL),
		Ingestor:      usecase.NewIngestUseCase(xlsx.NewReader(), cfg.MaxFileSizeBytes()),
		Partners:      directory,
		History:       history,
		Engine:        engine,
		Profiles:      usecase.NewProfileService(scoringClient, directory, engine),
		Uploads:       uploads,
		Retries:       usecase.NewRetryController(uploads, uploadMetrics),
		Exporter:      usecase.NewFailedRecordExporter(storage),
		RetryMax:      cfg.RetryMaxAttempts,
		DefaultEngine: domain.ScoringEngine(cfg.ScoringEngine),
	})

	return &App{
		Config:      cfg,
		Queue:       queue,
		Sessions:    sessions,
		Recorder:    recorder,
		HTTPMetrics: httpMetrics,

		closeFn: func() {
			queue.Close()
			closeDB()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
