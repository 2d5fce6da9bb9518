package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/metrics"
)

// Strategy produces the engine response for one criteria.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, c *criteria.Criteria, rt *record.Type, opts engine.Options) (*engine.Response, error)
}

// CompiledStrategy compiles the criteria and runs the payloads in priority order.
type CompiledStrategy struct {
	compiler *Compiler
	executor *Executor
}

// NewCompiledStrategy creates the default strategy.
func NewCompiledStrategy(compiler *Compiler, executor *Executor) *CompiledStrategy {
	return &CompiledStrategy{compiler: compiler, executor: executor}
}

// Name returns "compiled".
func (s *CompiledStrategy) Name() string { return "compiled" }

// Execute compiles and runs c.
func (s *CompiledStrategy) Execute(
	ctx context.Context, c *criteria.Criteria, rt *record.Type, opts engine.Options,
) (*engine.Response, error) {
	payloads, err := s.compiler.Compile(ctx, c, rt, opts)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	resp, pos, err := s.executor.ExecuteOrdered(ctx, rt.Name, rt.Index, payloads)
	if err != nil {
		return nil, err
	}
	if pos >= 0 && resp.TotalHits() > 0 {
		metrics.WinningRulePosition.WithLabelValues(rt.Name).Observe(float64(pos))
	}
	return resp, nil
}

var errNoRawCallback = errors.New("criteria has no raw callback")

// RawStrategy hands the engine client to the criteria's raw callback.
type RawStrategy struct {
	client engine.Client
}

// NewRawStrategy creates the callback strategy.
func NewRawStrategy(client engine.Client) *RawStrategy {
	return &RawStrategy{client: client}
}

// Name returns "raw".
func (s *RawStrategy) Name() string { return "raw" }

// Execute calls the raw callback with the query text and options.
func (s *RawStrategy) Execute(
	ctx context.Context, c *criteria.Criteria, _ *record.Type, opts engine.Options,
) (*engine.Response, error) {
	fn := c.Raw()
	if fn == nil {
		return nil, errNoRawCallback
	}
	resp, err := fn(ctx, s.client, c.Query(), opts)
	if err != nil {
		return nil, fmt.Errorf("raw search: %w", err)
	}
	if resp == nil {
		resp = &engine.Response{}
	}
	return resp, nil
}
