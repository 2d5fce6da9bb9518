// Package rule provides criteria.Rule implementations.
//
// A rule decides whether it applies to a criteria and, if so, produces the
// fragment placed under query.bool plus an optional highlight section.
package rule

import (
	"context"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
)

var (
	_ criteria.Rule = Func(nil)
	_ criteria.Rule = (*Structured)(nil)
	_ criteria.Rule = (*QueryString)(nil)
	_ criteria.Rule = (*MultiMatch)(nil)
	_ criteria.Rule = (*Vector)(nil)
)

// Func is a callable rule. It always applies and never highlights.
type Func func(ctx context.Context, c *criteria.Criteria) (map[string]any, error)

// Applicable always returns true.
func (f Func) Applicable(*criteria.Criteria) bool { return true }

// Query calls f.
func (f Func) Query(ctx context.Context, c *criteria.Criteria) (map[string]any, error) {
	return f(ctx, c)
}

// Highlight returns nil.
func (f Func) Highlight(*criteria.Criteria) map[string]any { return nil }

// Structured assembles a rule from optional parts. A nil When applies always.
type Structured struct {
	When       func(c *criteria.Criteria) bool
	Build      func(ctx context.Context, c *criteria.Criteria) (map[string]any, error)
	Highlights func(c *criteria.Criteria) map[string]any
}

// Applicable reports When(c), or true without a predicate.
func (s *Structured) Applicable(c *criteria.Criteria) bool {
	if s.When == nil {
		return true
	}
	return s.When(c)
}

// Query returns Build(ctx, c), or nil without a builder.
func (s *Structured) Query(ctx context.Context, c *criteria.Criteria) (map[string]any, error) {
	if s.Build == nil {
		return nil, nil
	}
	return s.Build(ctx, c)
}

// Highlight returns Highlights(c), or nil.
func (s *Structured) Highlight(c *criteria.Criteria) map[string]any {
	if s.Highlights == nil {
		return nil
	}
	return s.Highlights(c)
}

func hasQuery(c *criteria.Criteria) bool { return c.Query() != "" }

func highlightFields(fields []string) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return map[string]any{"fields": out}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
