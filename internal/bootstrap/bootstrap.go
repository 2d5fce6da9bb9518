// Package bootstrap assembles the application from its configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchbridge/internal/config"
	"github.com/kailas-cloud/searchbridge/internal/db"
	dbPostgres "github.com/kailas-cloud/searchbridge/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/searchbridge/internal/db/redis"
	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/metrics"
	"github.com/kailas-cloud/searchbridge/internal/repository/embcache"
	recordrepo "github.com/kailas-cloud/searchbridge/internal/repository/record"
	chiTransport "github.com/kailas-cloud/searchbridge/internal/transport/chi"
	"github.com/kailas-cloud/searchbridge/internal/transport/elastic"
	openaiEmb "github.com/kailas-cloud/searchbridge/internal/transport/openai"
	healthuc "github.com/kailas-cloud/searchbridge/internal/usecase/health"
	embeddinguc "github.com/kailas-cloud/searchbridge/internal/usecase/embedding"
	searchuc "github.com/kailas-cloud/searchbridge/internal/usecase/search"
)

// App holds the wired services. Close releases their connections.
type App struct {
	Search *searchuc.Service
	Health *healthuc.Service
	Server *chiTransport.Server

	closers []func()
}

// New connects to the record store and the search cluster and registers the configured types.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Register(prometheus.DefaultRegisterer)

	app := &App{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	app.closers = append(app.closers, store.Close)

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	es, err := elastic.New(&elastic.Config{
		Addresses:         cfg.Elastic.Addresses,
		Username:          cfg.Elastic.Username,
		Password:          cfg.Elastic.Password,
		APIKey:            cfg.Elastic.APIKey,
		CloudID:           cfg.Elastic.CloudID,
		RequestsPerSecond: cfg.Elastic.RequestsPerSecond,
		Burst:             cfg.Elastic.Burst,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	var (
		embedder domain.Embedder
		checker  healthuc.EmbeddingChecker
	)
	if cfg.Embedding.Enabled() {
		counters, _ := store.(embeddinguc.CounterStore)
		base, cached, closeCache, err := buildEmbedder(ctx, cfg.Embedding, cfg.Database, counters, logger)
		if err != nil {
			return nil, err
		}
		if closeCache != nil {
			app.closers = append(app.closers, closeCache)
		}
		embedder, checker = cached, base
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Bool("cache", cfg.Embedding.Cache.Enabled),
			zap.Bool("budget", cfg.Embedding.Budget.Enabled()),
		)
	}

	types, err := BuildTypes(cfg.Types, embedder)
	if err != nil {
		return nil, err
	}

	defaults := engine.DefaultOptions()
	defaults.Highlight = cfg.Search.HighlightEnabled()

	app.Search = searchuc.New(es, recordrepo.New(store), logger,
		searchuc.WithParallel(cfg.Search.ParallelRules),
		searchuc.WithDefaultOptions(defaults),
	)
	for _, rt := range types {
		if err := app.Search.RegisterType(rt); err != nil {
			return nil, fmt.Errorf("register type %s: %w", rt.Name, err)
		}
	}

	app.Health = healthuc.New(store, es, checker, logger)
	app.Server = chiTransport.NewServer(app.Search, app.Health, chiTransport.Config{
		APIKeys:         cfg.Auth.APIKeys,
		Defaults:        defaults,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
	}, logger)

	ok = true
	return app, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (db.RecordStore, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		return dbRedis.NewStore(redisConfig(cfg, cfg.Addrs, cfg.KeyPrefix))
	case config.DriverPostgres:
		return dbPostgres.NewStore(ctx, dbPostgres.Config{
			DSN:      cfg.DSN,
			MaxConns: int(cfg.MaxConns),
			MinConns: int(cfg.MinConns),
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func redisConfig(cfg config.DatabaseConfig, addrs []string, prefix string) dbRedis.Config {
	return dbRedis.Config{
		Addrs:     addrs,
		Username:  cfg.Username,
		Password:  cfg.Password,
		DB:        cfg.DB,
		KeyPrefix: prefix,
		BatchSize: cfg.BatchSize,
	}
}

// buildEmbedder assembles the query embedder chain: OpenAI -> Budget -> Cached -> Instruction.
// It returns the provider for health checks and the outermost decorator for rules.
// Counters persist budget usage when the record store can hold them.
func buildEmbedder(
	ctx context.Context, cfg config.EmbeddingConfig, dbCfg config.DatabaseConfig,
	counters embeddinguc.CounterStore, logger *zap.Logger,
) (*openaiEmb.Embedder, domain.Embedder, func(), error) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Normalize:  cfg.Normalize,
		Logger:     logger,
	})

	var (
		embedder  domain.Embedder = base
		closeFunc func()
	)
	// Budget sits under the cache so cache hits are never billed or rejected.
	if cfg.Budget.Enabled() {
		action, err := embeddinguc.ParseBudgetAction(cfg.Budget.Action)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("embedding budget: %w", err)
		}
		tracker := embeddinguc.NewBudgetTracker(cfg.Provider,
			cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit, action, logger)
		if counters != nil {
			tracker.WithStore(ctx, counters, dbCfg.KeyPrefix)
		}
		embedder = embeddinguc.NewBudgetedEmbedder(embedder, cfg.Provider, cfg.Model, tracker, logger)
	}

	if cfg.Cache.Enabled {
		kv, err := dbRedis.NewStore(redisConfig(dbCfg, cfg.Cache.Addrs, ""))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("embedding cache: %w", err)
		}
		closeFunc = kv.Close
		embedder = embcache.New(embedder, kv, embcache.Config{
			Namespace:  cacheNamespace(cfg),
			TTL:        time.Duration(cfg.Cache.TTLSec) * time.Second,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}
	return base, embedder, closeFunc, nil
}

func cacheNamespace(cfg config.EmbeddingConfig) string {
	return fmt.Sprintf("%s:%s:%d", cfg.Provider, cfg.Model, cfg.Dimensions)
}
