package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"revops-backend/internal/admin"
	"revops-backend/internal/assessments"
	"revops-backend/internal/benchmark"
	"revops-backend/internal/enrichment"
	"revops-backend/internal/events"
	"revops-backend/internal/llm"
	"revops-backend/internal/llm/anthropic"
	"revops-backend/internal/llm/openai"
	"revops-backend/internal/queue"
	"revops-backend/internal/scoring"
	"revops-backend/internal/shared/auth"
	"revops-backend/internal/shared/config"
	"revops-backend/internal/shared/server"
	"revops-backend/internal/shared/server/middleware"
	"revops-backend/internal/shared/storage/db"
	"revops-backend/internal/shared/storage/object"
	localstore "revops-backend/internal/shared/storage/object/local"
	s3store "revops-backend/internal/shared/storage/object/s3"
	"revops-backend/internal/shared/telemetry"
	"revops-backend/internal/sharepage"
)

const (
	// defaultJobTimeout bounds one enrichment job when LLM_TIMEOUT is unset.
	defaultJobTimeout = 3 * time.Minute
	// jobTimeoutSlack is added to an explicit LLM_TIMEOUT.
	jobTimeoutSlack = 30 * time.Second
)

// App holds shared dependencies and the router.
type App struct {
	Config config.Config
	Router *gin.Engine

	DB      *sql.DB
	Store   object.ObjectStore
	Repo    assessments.Repo
	Queue   *queue.LocalQueue
	Tracker *events.Tracker
	Redis   *redis.Client

	AssessmentService *assessments.Service
	Benchmarks        *benchmark.Engine
	Generator         *enrichment.Generator
}

// Build opens storage, wires services and mounts routes. Storage failures are returned
// so the caller can abort before listening.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	repo, sqlDB, err := buildRepo(ctx, cfg, store)
	if err != nil {
		return nil, err
	}
	app.Repo = repo
	app.DB = sqlDB

	ladder := scoring.DefaultLadder
	if len(cfg.MaturityLabels) > 0 {
		ladder, err = scoring.NewLadder(cfg.MaturityLabels)
		if err != nil {
			app.closeStorage()
			return nil, err
		}
	}

	client, err := buildLLM(cfg)
	if err != nil {
		app.closeStorage()
		return nil, err
	}
	app.Generator = enrichment.NewGenerator(client, cfg.AILanguage)
	app.Benchmarks = benchmark.NewEngine(repo, cfg.BenchmarkMinSample)
	app.Tracker = events.NewTracker(repo, 0)

	svc := &assessments.Service{
		Repo:     repo,
		Bench:    app.Benchmarks,
		Enricher: app.Generator,
		Events:   app.Tracker,
		Ladder:   ladder,
	}
	if app.Generator.Configured() {
		app.Queue = queue.NewLocalQueue(svc.ProcessEnrichment, cfg.AIWorkers, cfg.AIQueueSize, jobTimeout(cfg))
		svc.Jobs = app.Queue
		telemetry.Info("ai.enabled", map[string]any{
			"provider": cfg.LLMProvider,
			"model":    cfg.LLMModel,
			"workers":  cfg.AIWorkers,
			"language": cfg.AILanguage,
		})
	} else {
		telemetry.Info("ai.disabled", map[string]any{"reason": "no api key"})
	}
	app.AssessmentService = svc

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AdminTokenTTL, nil)
	if err != nil {
		app.closeStorage()
		return nil, err
	}
	passwords := auth.NewPasswordChecker(cfg.AdminPassword, cfg.AdminPasswordHash)

	var limiterStore middleware.WindowStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, redisClient, err := middleware.NewRedisWindowStore(ctx, cfg.RedisURL)
		if err != nil {
			telemetry.Warn("rate_limit.redis_unavailable", map[string]any{"error": err})
		} else {
			limiterStore = redisStore
			app.Redis = redisClient
		}
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		AssessmentHandler: assessments.NewHandler(svc),
		BenchmarkHandler:  benchmark.NewHandler(app.Benchmarks),
		EventHandler:      events.NewHandler(app.Tracker),
		AdminHandler:      admin.NewHandler(repo, passwords, tokens),
		SharePage:         sharepage.NewHandler(repo, cfg.PublicDir),
		RateLimitStore:    limiterStore,
	})
	return app, nil
}

// Shutdown drains queued enrichment and pending events, then closes storage.
// Call it after the HTTP server has stopped accepting requests.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Queue != nil {
		if err := a.Queue.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain ai queue: %w", err))
		}
	}
	if a.Tracker != nil {
		a.Tracker.Wait()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.closeStorage(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStorage() error {
	if a.DB == nil {
		return nil
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildRepo(ctx context.Context, cfg config.Config, store object.ObjectStore) (assessments.Repo, *sql.DB, error) {
	switch cfg.StoreBackend {
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.RunMigrations(ctx, sqlDB, db.Postgres); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return assessments.NewSQLRepo(sqlDB, db.Postgres), sqlDB, nil
	case "memory":
		if strings.TrimSpace(cfg.SnapshotKey) == "" {
			telemetry.Warn("store.memory.ephemeral", map[string]any{"reason": "SNAPSHOT_KEY empty"})
			return assessments.NewMemoryRepo(), nil, nil
		}
		repo, err := assessments.NewSnapshotRepo(ctx, store, cfg.SnapshotKey)
		if err != nil {
			return nil, nil, err
		}
		return repo, nil, nil
	default:
		sqlDB, err := db.OpenSQLite(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.RunMigrations(ctx, sqlDB, db.SQLite); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return assessments.NewSQLRepo(sqlDB, db.SQLite), sqlDB, nil
	}
}

// jobTimeout is the only deadline on model calls unless LLM_TIMEOUT is set.
func jobTimeout(cfg config.Config) time.Duration {
	if cfg.LLMTimeout > 0 {
		return cfg.LLMTimeout + jobTimeoutSlack
	}
	return defaultJobTimeout
}

// buildLLM returns nil when no credential is configured.
func buildLLM(cfg config.Config) (llm.Client, error) {
	if !cfg.AIEnabled() {
		return nil, nil
	}
	opts := llm.Options{
		APIKey:    cfg.LLMAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: cfg.LLMMaxTokens,
		Timeout:   cfg.LLMTimeout,
	}
	switch cfg.LLMProvider {
	case llm.ProviderOpenAI:
		return openai.NewClient(opts)
	case llm.ProviderAnthropic, "":
		return anthropic.NewClient(opts)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
