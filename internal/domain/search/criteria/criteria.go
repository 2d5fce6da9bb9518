// Package criteria holds the abstract search request and the builder that produces it.
package criteria

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
)

// ErrInvalidCriteria signals a builder call with unusable arguments.
var ErrInvalidCriteria = errors.New("invalid criteria")

// Rule pairs an applicability test with query and highlight fragment generators.
type Rule interface {
	// Applicable reports whether the rule contributes a payload for c.
	Applicable(c *Criteria) bool
	// Query returns the fragment placed under query.bool.
	Query(ctx context.Context, c *Criteria) (map[string]any, error)
	// Highlight returns the highlight section, or nil for none.
	Highlight(c *Criteria) map[string]any
}

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Sort orders results by one field.
type Sort struct {
	Field string
	Order Order
}

// Clause renders the sort entry in engine form.
func (s Sort) Clause() map[string]any {
	order := s.Order
	if order == "" {
		order = Asc
	}
	return map[string]any{s.Field: map[string]any{"order": string(order)}}
}

// Criteria is an immutable search request. Build one with Builder.
type Criteria struct {
	recordType         string
	query              string
	rules              []Rule
	filters            filter.Expression
	sorts              []Sort
	selects            []string
	collapse           string
	offset             *int
	limit              *int
	aggregations       map[string]any
	minimumShouldMatch string
	raw                engine.RawFunc
}

// RecordType returns the record type name the criteria targets.
func (c *Criteria) RecordType() string { return c.recordType }

// Query returns the free-text query.
func (c *Criteria) Query() string { return c.query }

// Rules returns the explicit rules; empty means the record type's rules apply.
func (c *Criteria) Rules() []Rule { return c.rules }

// Filters returns the filter expression.
func (c *Criteria) Filters() filter.Expression { return c.filters }

// Sorts returns the sort entries.
func (c *Criteria) Sorts() []Sort { return c.sorts }

// SortClauses renders the sorts in engine form, or nil.
func (c *Criteria) SortClauses() []any {
	if len(c.sorts) == 0 {
		return nil
	}
	out := make([]any, len(c.sorts))
	for i, s := range c.sorts {
		out[i] = s.Clause()
	}
	return out
}

// Selects returns the selected source fields.
func (c *Criteria) Selects() []string { return c.selects }

// Collapse returns the collapse field.
func (c *Criteria) Collapse() string { return c.collapse }

// Offset returns the result offset, or nil when unset.
func (c *Criteria) Offset() *int { return c.offset }

// Limit returns the result size, or nil when unset.
func (c *Criteria) Limit() *int { return c.limit }

// Aggregations returns the aggregation spec.
func (c *Criteria) Aggregations() map[string]any { return c.aggregations }

// MinimumShouldMatch returns the filter minimum_should_match value.
func (c *Criteria) MinimumShouldMatch() string { return c.minimumShouldMatch }

// Raw returns the raw engine callback, if any.
func (c *Criteria) Raw() engine.RawFunc { return c.raw }

// WithPage returns a copy limited to one page. Page numbers start at 1.
func (c *Criteria) WithPage(perPage, page int) *Criteria {
	if page < 1 {
		page = 1
	}
	out := c.clone()
	from := (page - 1) * perPage
	out.offset = &from
	out.limit = &perPage
	return out
}

// WithAggregations returns a copy with the aggregation spec replaced.
func (c *Criteria) WithAggregations(aggs map[string]any) *Criteria {
	out := c.clone()
	out.aggregations = maps.Clone(aggs)
	return out
}

func (c *Criteria) clone() *Criteria {
	out := *c
	out.rules = slices.Clone(c.rules)
	out.sorts = slices.Clone(c.sorts)
	out.selects = slices.Clone(c.selects)
	out.aggregations = maps.Clone(c.aggregations)
	return &out
}
