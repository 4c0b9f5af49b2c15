// Package app assembles the service graph from configuration. Both the HTTP
// server and the studyctl CLI start from New.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-studypack/internal/ai"
	"github.com/p-n-ai/pai-studypack/internal/api"
	"github.com/p-n-ai/pai-studypack/internal/events"
	"github.com/p-n-ai/pai-studypack/internal/extraction"
	"github.com/p-n-ai/pai-studypack/internal/generation"
	"github.com/p-n-ai/pai-studypack/internal/platform/cache"
	"github.com/p-n-ai/pai-studypack/internal/platform/config"
	"github.com/p-n-ai/pai-studypack/internal/platform/database"
	"github.com/p-n-ai/pai-studypack/internal/platform/mongodb"
	"github.com/p-n-ai/pai-studypack/internal/progress"
	"github.com/p-n-ai/pai-studypack/internal/subject"
)

const limiterKeyPrefix = "studypack:ai:requests"

// App holds the wired services.
type App struct {
	Config     *config.Config
	Store      subject.Store
	Events     events.Publisher
	AI         *ai.Router
	Pipeline   *generation.Pipeline
	Recorder   *progress.Recorder
	Aggregator *progress.Aggregator
	Queries    *progress.Queries

	checks  map[string]api.Check
	closers []func()
}

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// New connects every configured backend and wires the services. On error
// anything already opened is closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, checks: map[string]api.Check{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var kv *cache.Cache
	if cfg.Cache.URL != "" {
		kv, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		a.onClose(func() { kv.Close() })
		a.checks["cache"] = kv.HealthCheck
		slog.Info("cache connected")
	}

	var db *database.DB
	if cfg.Store.Backend == "postgres" || cfg.Events.Backend == "postgres" {
		db, err = database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.onClose(db.Close)
		a.checks["database"] = db.HealthCheck
	}

	if err := a.openStore(ctx, db); err != nil {
		return nil, err
	}
	if err := a.openEvents(ctx, db); err != nil {
		return nil, err
	}

	a.AI, err = NewRouter(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}

	var limiter ai.Limiter = ai.NewTokenBucket(cfg.AI.RequestsPerMinute)
	if kv != nil && cfg.AI.RequestsPerMinute > 0 {
		limiter = ai.NewRedisLimiter(kv.Client, limiterKeyPrefix, cfg.AI.RequestsPerMinute)
	}
	retry := ai.DefaultRetryConfig()
	retry.MaxAttempts = cfg.AI.MaxAttempts
	provider := ai.WithRetry(ai.WithRateLimit(ai.WithTimeout(a.AI, cfg.AI.RequestTimeout), limiter), retry)

	policy, err := generation.LoadContentPolicy(cfg.Generation.ContentPolicyPath)
	if err != nil {
		return nil, err
	}
	genOpts := []generation.GeneratorOption{generation.WithPolicy(policy)}
	if kv != nil {
		genOpts = append(genOpts, generation.WithTopicCache(generation.NewRedisTopicCache(kv, cfg.Cache.TopicTTL)))
	}

	ext := extraction.NewClient(cfg.Extraction.URL, cfg.Extraction.Timeout)
	a.checks["extraction"] = ext.HealthCheck

	a.Pipeline = generation.NewPipeline(generation.PipelineConfig{
		Lister:    generation.NewTopicLister(provider),
		Generator: generation.NewContentGenerator(provider, genOpts...),
		Scheduler: generation.NewScheduler(cfg.Generation.BatchSize, cfg.Generation.BatchDelay),
		Store:     a.Store,
		Extractor: ext,
		Events:    a.Events,
	})

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	pcfg := progress.Config{Store: a.Store, Events: a.Events, Location: loc}
	a.Recorder = progress.NewRecorder(pcfg)
	a.Aggregator = progress.NewAggregator(pcfg)
	a.Queries = progress.NewQueries(a.Store)
	return a, nil
}

func (a *App) openStore(ctx context.Context, db *database.DB) error {
	switch a.Config.Store.Backend {
	case "memory":
		a.Store = subject.NewMemoryStore()
		slog.Warn("using in-memory subject store; data is lost on restart")
	case "postgres":
		store, err := subject.NewPostgresStore(db.Pool)
		if err != nil {
			return err
		}
		if err := db.Migrate(ctx, store); err != nil {
			return fmt.Errorf("creating subject schema: %w", err)
		}
		a.Store = store
	case "mongo":
		mc, err := mongodb.New(ctx, a.Config.Mongo.URL, a.Config.Mongo.Database)
		if err != nil {
			return fmt.Errorf("connecting to mongodb: %w", err)
		}
		a.onClose(func() { mc.Close(context.Background()) })
		a.checks["mongodb"] = mc.HealthCheck
		a.Store = subject.NewMongoStore(mc.Database)
	default:
		return fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
	}
	slog.Info("subject store ready", "backend", a.Config.Store.Backend)
	return nil
}

func (a *App) openEvents(ctx context.Context, db *database.DB) error {
	switch a.Config.Events.Backend {
	case "", "none":
		a.Events = events.Nop{}
	case "postgres":
		pub := events.NewPostgres(db.Pool)
		if err := db.Migrate(ctx, pub); err != nil {
			return fmt.Errorf("creating events schema: %w", err)
		}
		a.Events = pub
	case "amqp":
		pub, err := events.NewAMQP(a.Config.Events.AMQPURL, a.Config.Events.Exchange)
		if err != nil {
			return fmt.Errorf("connecting to event broker: %w", err)
		}
		a.onClose(func() { pub.Close() })
		a.Events = pub
	default:
		return fmt.Errorf("unknown events backend %q", a.Config.Events.Backend)
	}
	return nil
}

// NewRouter registers every configured provider in fallback order.
func NewRouter(ctx context.Context, cfg config.AIConfig) (*ai.Router, error) {
	router := ai.NewRouter()

	if cfg.Google.APIKey != "" {
		p, err := ai.NewGoogleProvider(ctx, cfg.Google.APIKey, ai.WithGoogleModel(cfg.Google.Model))
		if err != nil {
			return nil, fmt.Errorf("google provider: %w", err)
		}
		router.Register("google", p)
	}
	if cfg.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey, ai.WithModel(cfg.OpenAI.Model)))
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.Anthropic.APIKey, ai.WithAnthropicModel(cfg.Anthropic.Model))
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		router.Register("anthropic", p)
	}
	if cfg.DeepSeek.APIKey != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey))
	}
	if cfg.OpenRouter.APIKey != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey, ai.WithModel(cfg.OpenRouter.Model)))
	}
	if cfg.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, ai.WithModel(cfg.Ollama.Model)))
	}

	if !router.HasProvider() {
		return nil, ai.ErrNoProviders
	}
	return router, nil
}

// ReadyChecks returns the dependency pings used by /readyz.
func (a *App) ReadyChecks() map[string]api.Check {
	return a.checks
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, generation.ErrInvalidRequest) ||
		errors.Is(err, progress.ErrInvalidSubmission) ||
		errors.Is(err, subject.ErrSubjectNotFound) ||
		errors.Is(err, subject.ErrTopicNotFound)
}
