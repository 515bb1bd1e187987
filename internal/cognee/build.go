package cognee

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/config"
	"github.com/cognee-ai/cognee-go/internal/database"
	"github.com/cognee-ai/cognee-go/internal/dataset"
	"github.com/cognee-ai/cognee-go/internal/embedder"
	"github.com/cognee-ai/cognee-go/internal/llm"
	"github.com/cognee-ai/cognee-go/internal/pipeline"
	"github.com/cognee-ai/cognee-go/internal/storage"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// App bundles the service with the resources it owns.
type App struct {
	Service *Service
	DB      *database.DB
	Router  storage.Router
	Config  *config.Config
	Logger  *slog.Logger
}

// Close releases the app's resources.
func (a *App) Close() error {
	if err := a.Router.Close(); err != nil {
		return err
	}
	return a.DB.Close()
}

// Build assembles a ready-to-use App from configuration: database
// with schema, stores, router, embedder, completer, and the executor
// matching the configured execution mode.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	router, err := storage.NewRouter(cfg.Storage)
	if err != nil {
		db.Close()
		return nil, err
	}
	if cfg.Tracing.Enabled {
		router = storage.NewTracedRouter(router, otel.Tracer("cognee"))
	}

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		router.Close()
		db.Close()
		return nil, err
	}

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		router.Close()
		db.Close()
		return nil, err
	}

	runs := pipeline.NewDBRunStore(db)
	var runner pipeline.Runner = pipeline.NewExecutor(runs, logger)
	if cfg.Pipeline.Distributed {
		runner = &distributedRunner{
			runs:     runs,
			endpoint: cfg.Pipeline.WorkerEndpoint,
			logger:   logger,
		}
	}

	aclStore := accesscontrol.NewDBStore(db)
	service := NewService(Deps{
		ACL:         accesscontrol.NewService(aclStore, logger),
		Datasets:    dataset.NewDBStore(db),
		Runs:        runs,
		Router:      router,
		Embedder:    emb,
		Completer:   completer,
		Runner:      runner,
		Logger:      logger,
		BatchSize:   cfg.Pipeline.BatchSize,
		Concurrency: cfg.Pipeline.Concurrency,
	})

	return &App{Service: service, DB: db, Router: router, Config: cfg, Logger: logger}, nil
}

// distributedRunner executes each pipeline through a dispatcher built
// for that execution. Facade pipelines close over per-dataset storage
// handles, so task registrations must not leak between runs. When a
// worker endpoint is configured, batches go over the wire instead and
// the worker must have the pipeline's tasks registered by name.
type distributedRunner struct {
	runs     pipeline.RunStore
	endpoint string
	logger   *slog.Logger
}

func (r *distributedRunner) ExecuteSync(ctx context.Context, p pipeline.Pipeline, input []any, datasetID, principalID types.ID) ([]any, error) {
	var dispatcher pipeline.WorkerDispatcher
	if r.endpoint != "" {
		dispatcher = pipeline.NewRemoteDispatcher(r.endpoint, nil)
	} else {
		local := pipeline.NewInProcessDispatcher()
		local.RegisterPipeline(p)
		dispatcher = local
	}
	exec := pipeline.NewDistributedExecutor(r.runs, dispatcher, r.logger)
	return exec.ExecuteSync(ctx, p, input, datasetID, principalID)
}

var _ pipeline.Runner = (*distributedRunner)(nil)
