package searchbridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/searchbridge/internal/db"
	dbPostgres "github.com/kailas-cloud/searchbridge/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/searchbridge/internal/db/redis"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	recordrepo "github.com/kailas-cloud/searchbridge/internal/repository/record"
	"github.com/kailas-cloud/searchbridge/internal/transport/elastic"
	healthuc "github.com/kailas-cloud/searchbridge/internal/usecase/health"
	searchuc "github.com/kailas-cloud/searchbridge/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	RegisterType(rt RecordType) error
	Types() []string
	Query(recordType string) *Builder
	Search(ctx context.Context, c *Criteria) (*Response, error)
	Get(ctx context.Context, c *Criteria) (*Result, error)
	Cursor(ctx context.Context, c *Criteria) (*searchuc.MappedCursor, error)
	Paginate(ctx context.Context, c *Criteria, perPage, page int) (*Page, error)
	Count(ctx context.Context, c *Criteria) (int64, error)
	SearchRaw(ctx context.Context, recordType string, body map[string]any) (*Response, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the searchbridge SDK entry point.
type Client struct {
	store     db.RecordStore
	searchSvc searchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New connects to the record store and the search cluster.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.esAddrs) == 0 && cfg.esCloudID == "" {
		return nil, errors.New("searchbridge: elasticsearch address required (use WithElasticsearch or WithElasticCloud)")
	}
	if cfg.driver == "" {
		return nil, errors.New("searchbridge: record store required (use WithRedis or WithPostgres)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	es, err := elastic.New(&elastic.Config{
		Addresses:         cfg.esAddrs,
		Username:          cfg.esUsername,
		Password:          cfg.esPassword,
		APIKey:            cfg.esAPIKey,
		CloudID:           cfg.esCloudID,
		RequestsPerSecond: cfg.rps,
		Burst:             cfg.burst,
	})
	if err != nil {
		return nil, fmt.Errorf("searchbridge: create elasticsearch client: %w", err)
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("searchbridge: database not ready: %w", err)
	}

	return wireClient(store, es, cfg, obs), nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.RecordStore, error) {
	switch cfg.driver {
	case driverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("searchbridge: create redis store: %w", err)
		}
		return s, nil
	case driverPostgres:
		s, err := dbPostgres.NewStore(ctx, dbPostgres.Config{DSN: cfg.dsn})
		if err != nil {
			return nil, fmt.Errorf("searchbridge: create postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("searchbridge: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.RecordStore, es *elastic.Client, cfg *clientConfig, obs *observer) *Client {
	defaults := engine.DefaultOptions()
	defaults.Highlight = cfg.highlight

	searchSvc := searchuc.New(es, recordrepo.New(store), nil,
		searchuc.WithParallel(cfg.parallel),
		searchuc.WithDefaultOptions(defaults),
	)

	// Pass a nil interface, not a typed nil, when no embedder is set.
	var checker healthuc.EmbeddingChecker
	if cfg.embedder != nil {
		checker = &embedderAdapter{inner: cfg.embedder}
	}

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(store, es, checker, nil),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Register installs a record type with its rules and scopes.
func (c *Client) Register(rt RecordType) error {
	if err := c.searchSvc.RegisterType(rt); err != nil {
		return fmt.Errorf("register %s: %w", rt.Name, err)
	}
	return nil
}

// Types lists the registered record type names.
func (c *Client) Types() []string { return c.searchSvc.Types() }

// Query starts a criteria builder for recordType with its scopes bound.
func (c *Client) Query(recordType string) *Builder { return c.searchSvc.Query(recordType) }

// Search returns the raw winning engine response.
func (c *Client) Search(ctx context.Context, crit *Criteria) (_ *Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", crit.RecordType(), start, err) }()

	return c.searchSvc.Search(ctx, crit)
}

// Get searches and maps every hit to its record.
func (c *Client) Get(ctx context.Context, crit *Criteria) (_ *Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", crit.RecordType(), start, err) }()

	return c.searchSvc.Get(ctx, crit)
}

// Cursor searches and returns a cursor reading records on demand.
// Close must be called when done.
func (c *Client) Cursor(ctx context.Context, crit *Criteria) (_ Cursor, err error) {
	start := time.Now()
	defer func() { c.obs.observe("cursor", crit.RecordType(), start, err) }()

	cur, err := c.searchSvc.Cursor(ctx, crit)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// Paginate returns one page of mapped records. Pages start at 1.
func (c *Client) Paginate(ctx context.Context, crit *Criteria, perPage, page int) (_ *Page, err error) {
	start := time.Now()
	defer func() { c.obs.observe("paginate", crit.RecordType(), start, err) }()

	return c.searchSvc.Paginate(ctx, crit, perPage, page)
}

// Count returns the number of matches of the first rule that matches anything.
func (c *Client) Count(ctx context.Context, crit *Criteria) (_ int64, err error) {
	start := time.Now()
	defer func() { c.obs.observe("count", crit.RecordType(), start, err) }()

	return c.searchSvc.Count(ctx, crit)
}

// Raw sends body verbatim to the record type's index.
func (c *Client) Raw(ctx context.Context, recordType string, body map[string]any) (_ *Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("raw", recordType, start, err) }()

	return c.searchSvc.SearchRaw(ctx, recordType, body)
}
