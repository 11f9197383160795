// Package bootstrap wires configuration into a ready-to-use case pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/zatekoja/caretriage/internal/adapters/cache"
	"github.com/zatekoja/caretriage/internal/adapters/database"
	"github.com/zatekoja/caretriage/internal/adapters/directory"
	"github.com/zatekoja/caretriage/internal/adapters/events"
	"github.com/zatekoja/caretriage/internal/adapters/reasoning"
	"github.com/zatekoja/caretriage/internal/application/services"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/domain/repositories"
	"github.com/zatekoja/caretriage/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/caretriage/internal/infrastructure/clients/redis"
	"github.com/zatekoja/caretriage/internal/infrastructure/clients/sqlite"
	"github.com/zatekoja/caretriage/internal/infrastructure/notifications"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
)

const memoryCacheBytes = 32 << 20

// App holds the wired pipeline and the resources it owns.
type App struct {
	Config       *config.Config
	Engine       providers.ReasoningEngine
	Directory    *directory.Directory
	Orchestrator *services.Orchestrator
	Cases        *services.CaseService
	EventBus     providers.EventBus
	Metrics      *observability.Metrics

	closers []func() error
}

// New builds the application from cfg. Optional backends (Redis, Slack) that fail to
// connect are logged and skipped; a configured case store that fails is an error.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	logger := observability.GetLogger()
	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.Metrics, err = observability.InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app.Engine, err = reasoning.NewEngine(cfg.Reasoning)
	if err != nil {
		return nil, err
	}

	app.Directory, err = directory.Load(cfg.Directory.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider directory: %w", err)
	}
	logger.Info().Int("providers", len(app.Directory.All())).Str("path", cfg.Directory.Path).Msg("Provider directory loaded")

	repo, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}

	memory, err := cache.NewMemoryAdapter(memoryCacheBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	app.closers = append(app.closers, func() error { memory.Close(); return nil })
	var cacheProvider providers.CacheProvider = memory

	if cfg.Redis.Enabled {
		redisClient, rerr := redis.NewClient(ctx, &cfg.Redis)
		if rerr != nil {
			logger.Warn().Err(rerr).Msg("Redis unavailable, using in-process cache and event bus")
		} else {
			app.closers = append(app.closers, redisClient.Close)
			cacheProvider = cache.NewTieredAdapter(memory, cache.NewRedisAdapter(redisClient, "caretriage:"), 0)
			bus := events.NewRedisEventBus(redisClient)
			app.EventBus = bus
			app.closers = append(app.closers, bus.Close)
		}
	}
	if app.EventBus == nil {
		bus := events.NewMemoryEventBus()
		app.EventBus = bus
		app.closers = append(app.closers, bus.Close)
	}

	var notifier providers.ReviewNotifier
	if cfg.Slack.BotToken != "" {
		slackNotifier, nerr := notifications.NewSlackReviewNotifier(cfg.Slack)
		if nerr != nil {
			logger.Warn().Err(nerr).Msg("Slack review notifications disabled")
		} else {
			notifier = slackNotifier
		}
	}

	app.Orchestrator = services.NewOrchestrator(cfg.Triage, app.Engine, app.Directory, services.UUIDCaseIDGenerator{})
	app.Cases = services.NewCaseService(app.Orchestrator, repo, cacheProvider, app.EventBus, notifier, cfg.Store.CacheTTL).
		WithMetrics(app.Metrics)
	return app, nil
}

func (a *App) openStore(ctx context.Context) (repositories.CaseRepository, error) {
	cfg := a.Config
	var (
		adapter *database.CaseAdapter
		err     error
	)

	switch cfg.Store.Driver {
	case "", config.StoreNone:
		return nil, nil
	case config.StorePostgres:
		client, cerr := postgres.NewClient(ctx, &cfg.Database)
		if cerr != nil {
			return nil, cerr
		}
		a.closers = append(a.closers, client.Close)
		adapter, err = database.NewCaseAdapter(client.DB(), database.DialectPostgres)
	case config.StoreSQLite:
		client, cerr := sqlite.NewClient(ctx, cfg.Store.SQLitePath)
		if cerr != nil {
			return nil, cerr
		}
		a.closers = append(a.closers, client.Close)
		adapter, err = database.NewCaseAdapter(client.DB(), database.DialectSQLite)
	default:
		return nil, fmt.Errorf("unknown case store %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := adapter.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	observability.GetLogger().Info().Str("driver", cfg.Store.Driver).Msg("Case store ready")
	return adapter, nil
}

// Close releases everything New opened, most recent first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
