package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/payload"
	"github.com/kailas-cloud/searchbridge/internal/metrics"
)

// DefaultParallelism caps concurrent engine requests in parallel mode.
const DefaultParallelism = 4

// Executor runs ordered payloads against the engine with priority fallback:
// the first payload whose response has hits wins.
type Executor struct {
	client      engine.Client
	parallelism int
	logger      *zap.Logger
}

// NewExecutor creates a sequential executor. parallelism > 1 runs payloads
// concurrently; selection stays in declared order.
func NewExecutor(client engine.Client, parallelism int, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{client: client, parallelism: parallelism, logger: logger}
}

// ExecuteOrdered returns the winning response and its payload position.
// Without a winner the last response is returned. Zero payloads yield an
// empty response at position -1.
func (e *Executor) ExecuteOrdered(
	ctx context.Context, recordType, index string, payloads []*payload.Payload,
) (*engine.Response, int, error) {
	if len(payloads) == 0 {
		return &engine.Response{}, -1, nil
	}
	if e.parallelism > 1 && len(payloads) > 1 {
		return e.executeParallel(ctx, recordType, index, payloads)
	}

	var last *engine.Response
	for i, p := range payloads {
		resp, err := e.search(ctx, recordType, index, i, p)
		if err != nil {
			return nil, i, err
		}
		if resp.TotalHits() > 0 {
			return resp, i, nil
		}
		last = resp
	}
	return last, len(payloads) - 1, nil
}

// executeParallel runs every payload and then selects exactly as the sequential
// path would: an error or a hit at the lowest position decides the outcome.
// Requests share ctx but not a group context, so a failing payload never
// cancels one that precedes it.
func (e *Executor) executeParallel(
	ctx context.Context, recordType, index string, payloads []*payload.Payload,
) (*engine.Response, int, error) {
	results := make([]*engine.Response, len(payloads))
	errs := make([]error, len(payloads))

	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, p := range payloads {
		g.Go(func() error {
			results[i], errs[i] = e.search(ctx, recordType, index, i, p)
			return nil
		})
	}
	_ = g.Wait()

	for i, resp := range results {
		if errs[i] != nil {
			return nil, i, errs[i]
		}
		if resp.TotalHits() > 0 {
			return resp, i, nil
		}
	}
	last := len(results) - 1
	return results[last], last, nil
}

func (e *Executor) search(
	ctx context.Context, recordType, index string, pos int, p *payload.Payload,
) (*engine.Response, error) {
	resp, err := e.client.Search(ctx, index, p.Map())
	if err != nil {
		metrics.RuleAttemptsTotal.WithLabelValues(recordType, "error").Inc()
		return nil, fmt.Errorf("search payload %d: %w", pos, err)
	}
	if resp == nil {
		resp = &engine.Response{}
	}
	resp.Payload = p

	outcome := "miss"
	if resp.TotalHits() > 0 {
		outcome = "hit"
	}
	metrics.RuleAttemptsTotal.WithLabelValues(recordType, outcome).Inc()
	e.logger.Debug("Payload executed",
		zap.String("type", recordType),
		zap.Int("position", pos),
		zap.Int64("total", resp.TotalHits()),
	)
	return resp, nil
}

// CountOrdered returns the first non-zero count, else the last count.
func (e *Executor) CountOrdered(ctx context.Context, index string, payloads []*payload.Payload) (int64, error) {
	var count int64
	for i, p := range payloads {
		n, err := e.client.Count(ctx, index, p.Map())
		if err != nil {
			return 0, fmt.Errorf("count payload %d: %w", i, err)
		}
		count = n
		if count > 0 {
			break
		}
	}
	return count, nil
}
