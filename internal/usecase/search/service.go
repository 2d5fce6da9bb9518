package search

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
	"github.com/kailas-cloud/searchbridge/internal/metrics"
)

// Result is a search response with its hits reconciled to records.
type Result struct {
	Total        int64
	Records      []record.Mapped
	Aggregations map[string]any
	Response     *engine.Response
}

// Page is one page of a paginated search.
type Page struct {
	Result
	Page    int
	PerPage int
}

// LastPage returns the number of the last page.
func (p *Page) LastPage() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

// Option configures a Service.
type Option func(*Service)

// WithParallel runs rule payloads concurrently, at most n at a time.
func WithParallel(n int) Option {
	return func(s *Service) { s.parallelism = n }
}

// WithDefaultOptions overrides the engine options used by Search and Get.
func WithDefaultOptions(opts engine.Options) Option {
	return func(s *Service) { s.defaults = opts }
}

// WithRegistry shares a scope registry.
func WithRegistry(r *scope.Registry) Option {
	return func(s *Service) { s.scopes = r }
}

// Service runs the compile, execute, reconcile pipeline for registered record types.
type Service struct {
	client      engine.Client
	scopes      *scope.Registry
	mapper      *Mapper
	compiler    *Compiler
	executor    *Executor
	compiled    *CompiledStrategy
	raw         *RawStrategy
	defaults    engine.Options
	parallelism int
	logger      *zap.Logger

	mu    sync.RWMutex
	types map[string]*record.Type
}

// New creates a search service.
func New(client engine.Client, records RecordReader, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		client:   client,
		defaults: engine.DefaultOptions(),
		logger:   logger,
		types:    make(map[string]*record.Type),
	}
	for _, o := range opts {
		o(s)
	}
	if s.scopes == nil {
		s.scopes = scope.NewRegistry()
	}
	s.mapper = NewMapper(records, logger)
	s.compiler = NewCompiler(logger)
	s.executor = NewExecutor(client, s.parallelism, logger)
	s.compiled = NewCompiledStrategy(s.compiler, s.executor)
	s.raw = NewRawStrategy(client)
	return s
}

// RegisterType validates rt, installs its scopes and makes it searchable.
// Registering a name again replaces the type; scopes stay idempotent.
func (s *Service) RegisterType(rt record.Type) error {
	if err := rt.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	rt = rt.WithDefaults()
	installed := s.scopes.Register(rt.Name, rt.Scopes...)

	s.mu.Lock()
	s.types[rt.Name] = &rt
	s.mu.Unlock()

	s.logger.Info("Record type registered",
		zap.String("type", rt.Name),
		zap.String("index", rt.Index),
		zap.Int("rules", len(rt.Rules)),
		zap.Int("scopes", installed),
	)
	return nil
}

// Type returns a registered record type.
func (s *Service) Type(name string) (*record.Type, error) {
	s.mu.RLock()
	rt, ok := s.types[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRecordType, name)
	}
	return rt, nil
}

// Types lists registered record type names, sorted.
func (s *Service) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.types))
	for n := range s.types {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Scopes returns the scope registry.
func (s *Service) Scopes() *scope.Registry { return s.scopes }

// Query starts a criteria builder for a record type with its scopes bound.
func (s *Service) Query(recordType string) *criteria.Builder {
	return criteria.NewBuilder(recordType, s.scopes)
}

// Search runs c with the default options and returns the raw winning response.
func (s *Service) Search(ctx context.Context, c *criteria.Criteria) (*engine.Response, error) {
	return s.SearchWithOptions(ctx, c, s.defaults)
}

// SearchWithOptions runs c with explicit engine options.
func (s *Service) SearchWithOptions(
	ctx context.Context, c *criteria.Criteria, opts engine.Options,
) (*engine.Response, error) {
	rt, err := s.Type(c.RecordType())
	if err != nil {
		return nil, err
	}

	var strategy Strategy = s.compiled
	if c.Raw() != nil {
		strategy = s.raw
	}

	resp, err := strategy.Execute(ctx, c, rt, opts)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(rt.Name, strategy.Name(), "error").Inc()
		s.logger.Warn("Search failed",
			zap.String("type", rt.Name), zap.String("strategy", strategy.Name()), zap.Error(err))
		return nil, fmt.Errorf("search %s: %w", rt.Name, err)
	}
	metrics.SearchRequestsTotal.WithLabelValues(rt.Name, strategy.Name(), "ok").Inc()
	return resp, nil
}

// Get searches and eagerly maps the hits to records.
func (s *Service) Get(ctx context.Context, c *criteria.Criteria) (*Result, error) {
	resp, err := s.Search(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.MapResponse(ctx, c.RecordType(), resp)
}

// MapResponse reconciles an engine response with the record store.
func (s *Service) MapResponse(ctx context.Context, recordType string, resp *engine.Response) (*Result, error) {
	rt, err := s.Type(recordType)
	if err != nil {
		return nil, err
	}
	recs, err := s.mapper.Map(ctx, rt, resp)
	if err != nil {
		s.logger.Warn("Record mapping failed", zap.String("type", rt.Name), zap.Error(err))
		return nil, fmt.Errorf("map %s: %w", rt.Name, err)
	}
	return &Result{
		Total:        resp.TotalHits(),
		Records:      recs,
		Aggregations: resp.Aggregations,
		Response:     resp,
	}, nil
}

// Cursor searches and returns a lazy cursor over the mapped records.
func (s *Service) Cursor(ctx context.Context, c *criteria.Criteria) (*MappedCursor, error) {
	resp, err := s.Search(ctx, c)
	if err != nil {
		return nil, err
	}
	rt, err := s.Type(c.RecordType())
	if err != nil {
		return nil, err
	}
	cur, err := s.mapper.Stream(ctx, rt, resp)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", rt.Name, err)
	}
	return cur, nil
}

// Paginate runs c limited to one page and maps the hits.
func (s *Service) Paginate(ctx context.Context, c *criteria.Criteria, perPage, page int) (*Page, error) {
	if perPage < 1 {
		return nil, fmt.Errorf("%w: per page must be positive", domain.ErrInvalidRequest)
	}
	if page < 1 {
		page = 1
	}
	res, err := s.Get(ctx, c.WithPage(perPage, page))
	if err != nil {
		return nil, err
	}
	return &Page{Result: *res, Page: page, PerPage: perPage}, nil
}

// Explain runs c with explanations on.
func (s *Service) Explain(ctx context.Context, c *criteria.Criteria) (*engine.Response, error) {
	opts := s.defaults
	opts.Explain = true
	return s.SearchWithOptions(ctx, c, opts)
}

// Profile runs c with query profiling on.
func (s *Service) Profile(ctx context.Context, c *criteria.Criteria) (*engine.Response, error) {
	opts := s.defaults
	opts.Profile = true
	return s.SearchWithOptions(ctx, c, opts)
}

// Aggregations runs c with aggs as its aggregation spec and returns the aggregation results.
func (s *Service) Aggregations(
	ctx context.Context, c *criteria.Criteria, aggs map[string]any,
) (map[string]any, error) {
	resp, err := s.Search(ctx, c.WithAggregations(aggs))
	if err != nil {
		return nil, err
	}
	return resp.Aggregations, nil
}

// Count returns the number of matches of the first rule that matches anything.
func (s *Service) Count(ctx context.Context, c *criteria.Criteria) (int64, error) {
	rt, err := s.Type(c.RecordType())
	if err != nil {
		return 0, err
	}
	payloads, err := s.compiler.Compile(ctx, c, rt, engine.Options{})
	if err != nil {
		return 0, fmt.Errorf("count %s: compile: %w", rt.Name, err)
	}
	n, err := s.executor.CountOrdered(ctx, rt.Index, payloads)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", rt.Name, err)
	}
	return n, nil
}

// SearchRaw sends body verbatim to the record type's index.
func (s *Service) SearchRaw(ctx context.Context, recordType string, body map[string]any) (*engine.Response, error) {
	rt, err := s.Type(recordType)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Search(ctx, rt.Index, body)
	if err != nil {
		return nil, fmt.Errorf("raw search %s: %w", rt.Name, err)
	}
	return resp, nil
}

// MapIDs returns the persisted keys of the hits in order.
func MapIDs(resp *engine.Response) []string {
	ids := resp.HitIDs()
	for i, id := range ids {
		ids[i] = record.KeyFromHitID(id)
	}
	return ids
}
