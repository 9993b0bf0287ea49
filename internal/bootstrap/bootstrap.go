package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/config"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/ports"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/usecase"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/llm/completion"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/matching"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/queue/nats"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/repository/postgres"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/resilience"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/storage/localfs"
	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/infrastructure/tabular"
)

type App struct {
	Config     config.Config
	Vocabulary domain.Vocabulary

	Queue    ports.MessageQueue
	Repo     ports.ProjectRepository
	Accepted ports.AcceptedMappingStore

	UploadUC    *usecase.UploadProjectUseCase
	ProcessUC   *usecase.ProcessProjectUseCase
	MapFieldsUC *usecase.MapFieldsUseCase
	NormalizeUC *usecase.NormalizeUseCase
	AcceptUC    *usecase.AcceptMappingsUseCase

	closeFn func()
}

// New wires the full dependency graph for one service process. The usage
// recorder receives inference token counts; each binary passes its own
// metric set.
func New(ctx context.Context, cfg config.Config, usage completion.UsageRecorder) (*App, error) {
	vocab, err := config.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewProjectRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure project schema: %w", err)
	}
	accepted := postgres.NewAcceptedMappingRepository(db)
	if err := accepted.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure mapping schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	// One attempt per inference call. A generation request can run for
	// minutes, so retrying inside the transport would stack timeouts.
	inferenceExec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 1,
		BreakerEnabled:   true,
	})
	inference := completion.NewWithOptions(
		cfg.InferenceURL,
		cfg.InferenceModel,
		cfg.InferenceAPIKey,
		completion.Options{
			Temperature:        cfg.InferenceTemperature,
			Timeout:            time.Duration(cfg.InferenceTimeoutSeconds) * time.Second,
			ResilienceExecutor: inferenceExec,
			Usage:              usage,
		},
	)

	matcher := matching.NewEngine(vocab.SynonymRules)
	parser := tabular.NewParser()

	uploadUC := usecase.NewUploadProjectUseCase(repo, storage, queue)
	normalizeUC := usecase.NewNormalizeUseCase(vocab)
	mapFieldsUC := usecase.NewMapFieldsUseCase(inference, matcher)
	processUC := usecase.NewProcessProjectUseCase(repo, storage, parser, normalizeUC, mapFieldsUC, vocab.DefaultCatalog)
	acceptUC := usecase.NewAcceptMappingsUseCase(repo, accepted)

	return &App{
		Config:     cfg,
		Vocabulary: vocab,

		Queue:    queue,
		Repo:     repo,
		Accepted: accepted,

		UploadUC:    uploadUC,
		ProcessUC:   processUC,
		MapFieldsUC: mapFieldsUC,
		NormalizeUC: normalizeUC,
		AcceptUC:    acceptUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
