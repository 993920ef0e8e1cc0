package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/moneymind/internal/agents"
	"github.com/ajitpratap0/moneymind/internal/api"
	"github.com/ajitpratap0/moneymind/internal/breaker"
	"github.com/ajitpratap0/moneymind/internal/config"
	"github.com/ajitpratap0/moneymind/internal/db"
	"github.com/ajitpratap0/moneymind/internal/events"
	"github.com/ajitpratap0/moneymind/internal/intent"
	"github.com/ajitpratap0/moneymind/internal/investments"
	"github.com/ajitpratap0/moneymind/internal/llm"
	"github.com/ajitpratap0/moneymind/internal/profiling"
	"github.com/ajitpratap0/moneymind/internal/router"
	"github.com/ajitpratap0/moneymind/internal/search"
	"github.com/ajitpratap0/moneymind/internal/store"
)

// app holds every collaborator built from one Config
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  store.Store
	router *router.Router
	bus    *events.Bus
	checks map[string]api.HealthCheck

	search    *search.Client
	assistant *investments.Assistant

	redis   *redis.Client
	db      *db.DB
	closers []func()
}

type appOptions struct {
	// storeOverride forces a backend, e.g. "memory" for the chat REPL
	storeOverride string
	withEvents    bool
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (a *app, err error) {
	a = &app{
		cfg:    cfg,
		log:    config.NewLogger("app"),
		checks: map[string]api.HealthCheck{},
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	backend := cfg.Store.Backend
	if opts.storeOverride != "" {
		backend = opts.storeOverride
	}
	if a.store, err = a.openStore(ctx, backend); err != nil {
		return nil, err
	}

	breakers := breaker.NewManager(breaker.WithIgnoredErrors(llm.IsCallerError))
	llmClient := newLLMClient(cfg.LLM, breakers)
	gen := llm.NewGenerator(llmClient, cfg.LLM.MaxToolCalls)

	a.search = search.NewClient(search.Config{
		BaseURL:           cfg.Search.BaseURL,
		APIKey:            cfg.Search.APIKey,
		Timeout:           cfg.Search.GetTimeout(),
		RequestsPerSecond: cfg.Search.RequestsPerSecond,
		Burst:             cfg.Search.Burst,
		Cache:             a.searchCache(),
		Breakers:          breakers,
	})
	tools := search.Tools(a.search)
	a.assistant = investments.NewAssistant(llmClient, a.store, cfg.LLM.MaxRetries)

	var publisher events.Publisher = events.Nop{}
	if opts.withEvents && cfg.NATS.Enabled {
		bus, err := events.Connect(events.Config{URL: cfg.NATS.URL, Prefix: cfg.NATS.Prefix, Name: "moneymind"})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.bus = bus
		publisher = bus
		a.closers = append(a.closers, func() { _ = bus.Close() })
	}

	a.router = router.New(router.Deps{
		Store:      a.store,
		Classifier: intent.NewClassifier(llmClient),
		Machine:    profiling.NewMachine(),
		QnA:        agents.NewQnAAgent(gen, tools),
		News:       agents.NewNewsAgent(gen, tools),
		Portfolio:  agents.NewPortfolioAgent(gen),
		Events:     publisher,
	})

	a.log.Info().
		Str("store", backend).
		Str("model", cfg.LLM.Model).
		Strs("fallback_models", cfg.LLM.FallbackModels).
		Bool("events", a.bus != nil).
		Msg("MoneyMind assembled")

	return a, nil
}

func newLLMClient(cfg config.LLMConfig, breakers *breaker.Manager) *llm.FallbackClient {
	primary := llm.ClientConfig{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		Timeout:      cfg.GetTimeout(),
		RetryBackoff: cfg.GetRetryBackoff(),
		Breakers:     breakers,
	}
	fallbacks := make([]llm.ClientConfig, 0, len(cfg.FallbackModels))
	for _, m := range cfg.FallbackModels {
		fallbacks = append(fallbacks, llm.ClientConfig{Model: m, Breakers: breakers})
	}
	return llm.NewFallbackClient(llm.FallbackConfig{PrimaryConfig: primary, FallbackConfigs: fallbacks})
}

func (a *app) redisClient() *redis.Client {
	if a.redis == nil {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.GetRedisAddr(),
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		client := a.redis
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return a.redis
}

func (a *app) searchCache() *search.Cache {
	if !a.cfg.Search.CacheEnabled {
		return nil
	}
	return search.NewCache(a.redisClient(), a.cfg.Search.GetCacheTTL())
}

func (a *app) openStore(ctx context.Context, backend string) (store.Store, error) {
	switch backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		s, err := store.NewFileStore(a.cfg.Store.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return s, nil
	case "redis":
		return store.NewRedisStore(a.redisClient()), nil
	case "postgres":
		database, err := a.openDB(ctx)
		if err != nil {
			return nil, err
		}
		if a.cfg.Database.Migrate {
			applied, err := db.NewMigrator(database.Pool()).Migrate(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to apply migrations: %w", err)
			}
			a.log.Info().Int("applied", applied).Msg("Database migrations checked")
		}
		return store.NewPostgresStore(database.Pool()), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func (a *app) openDB(ctx context.Context) (*db.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	database, err := db.New(ctx, db.PoolConfig{
		URL:      a.cfg.Database.GetDSN(),
		MaxConns: int32(a.cfg.Database.PoolSize),
	})
	if err != nil {
		return nil, err
	}
	a.db = database
	a.closers = append(a.closers, database.Close)
	a.checks["postgres"] = database.Health
	return database, nil
}

// Close releases connections in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

var errNoChannels = errors.New("nothing to serve: enable api or telegram")
