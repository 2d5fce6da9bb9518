package criteria

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
)

// ScopeInvoker runs a named scope against a live builder.
type ScopeInvoker interface {
	Invoke(recordType, name string, b *Builder, args ...any) error
}

// Builder accumulates a Criteria. Methods are chainable; the first error is kept
// and returned by Build.
type Builder struct {
	c      Criteria
	scopes ScopeInvoker
	err    error
}

// NewBuilder starts a criteria for recordType. scopes may be nil.
func NewBuilder(recordType string, scopes ScopeInvoker) *Builder {
	return &Builder{c: Criteria{recordType: recordType}, scopes: scopes}
}

// RecordType returns the record type the builder targets.
func (b *Builder) RecordType() string { return b.c.recordType }

// Query sets the free-text query.
func (b *Builder) Query(q string) *Builder {
	b.c.query = q
	return b
}

// Rules replaces the explicit rule list. Order is priority order.
func (b *Builder) Rules(rules ...Rule) *Builder {
	b.c.rules = slices.Clone(rules)
	return b
}

// Where adds a term filter to the must group.
func (b *Builder) Where(field string, value any) *Builder {
	return b.Term(filter.Must, field, value)
}

// OrWhere adds a term filter to the should group.
func (b *Builder) OrWhere(field string, value any) *Builder {
	return b.Term(filter.Should, field, value)
}

// WhereNot adds a term filter to the must_not group.
func (b *Builder) WhereNot(field string, value any) *Builder {
	return b.Term(filter.MustNot, field, value)
}

// Term adds a term filter to the op group.
func (b *Builder) Term(op filter.Operator, field string, value any) *Builder {
	c, err := filter.NewMatch(field, value)
	if err != nil {
		return b.fail(err)
	}
	return b.add(op, c)
}

// WhereIn adds a terms filter to the must group.
func (b *Builder) WhereIn(field string, values ...any) *Builder {
	c, err := filter.NewTerms(field, values...)
	if err != nil {
		return b.fail(err)
	}
	return b.add(filter.Must, c)
}

// WhereNotIn adds a terms filter to the must_not group.
func (b *Builder) WhereNotIn(field string, values ...any) *Builder {
	c, err := filter.NewTerms(field, values...)
	if err != nil {
		return b.fail(err)
	}
	return b.add(filter.MustNot, c)
}

// WhereRange adds a range filter to the must group.
func (b *Builder) WhereRange(field string, r filter.Range) *Builder {
	c, err := filter.NewRange(field, r)
	if err != nil {
		return b.fail(err)
	}
	return b.add(filter.Must, c)
}

// WhereExists requires field to be present.
func (b *Builder) WhereExists(field string) *Builder {
	c, err := filter.NewExists(field)
	if err != nil {
		return b.fail(err)
	}
	return b.add(filter.Must, c)
}

// Filter adds a pre-built engine clause to the op group.
func (b *Builder) Filter(op filter.Operator, clause map[string]any) *Builder {
	c, err := filter.NewRaw(clause)
	if err != nil {
		return b.fail(err)
	}
	return b.add(op, c)
}

// OrderBy appends a sort entry.
func (b *Builder) OrderBy(field string, order Order) *Builder {
	if field == "" {
		return b.fail(fmt.Errorf("%w: sort field is required", ErrInvalidCriteria))
	}
	if order != "" && order != Asc && order != Desc {
		return b.fail(fmt.Errorf("%w: sort order %q", ErrInvalidCriteria, order))
	}
	b.c.sorts = append(b.c.sorts, Sort{Field: field, Order: order})
	return b
}

// Select restricts the source fields returned by the engine.
func (b *Builder) Select(fields ...string) *Builder {
	b.c.selects = append(b.c.selects, fields...)
	return b
}

// Collapse collapses results on field.
func (b *Builder) Collapse(field string) *Builder {
	b.c.collapse = field
	return b
}

// From sets the result offset.
func (b *Builder) From(n int) *Builder {
	if n < 0 {
		return b.fail(fmt.Errorf("%w: negative offset %d", ErrInvalidCriteria, n))
	}
	b.c.offset = &n
	return b
}

// Take sets the result size.
func (b *Builder) Take(n int) *Builder {
	if n < 0 {
		return b.fail(fmt.Errorf("%w: negative limit %d", ErrInvalidCriteria, n))
	}
	b.c.limit = &n
	return b
}

// ForPage sets offset and size for a 1-based page.
func (b *Builder) ForPage(page, perPage int) *Builder {
	if page < 1 || perPage < 1 {
		return b.fail(fmt.Errorf("%w: page %d per page %d", ErrInvalidCriteria, page, perPage))
	}
	return b.From((page - 1) * perPage).Take(perPage)
}

// Aggregate adds a named aggregation.
func (b *Builder) Aggregate(name string, spec map[string]any) *Builder {
	if name == "" {
		return b.fail(fmt.Errorf("%w: aggregation name is required", ErrInvalidCriteria))
	}
	if b.c.aggregations == nil {
		b.c.aggregations = make(map[string]any)
	}
	b.c.aggregations[name] = maps.Clone(spec)
	return b
}

// MinimumShouldMatch sets the filter minimum_should_match value.
func (b *Builder) MinimumShouldMatch(v string) *Builder {
	b.c.minimumShouldMatch = v
	return b
}

// Raw replaces compilation with a direct engine callback.
func (b *Builder) Raw(fn engine.RawFunc) *Builder {
	b.c.raw = fn
	return b
}

// Scope applies the named scope registered for the builder's record type.
func (b *Builder) Scope(name string, args ...any) *Builder {
	if b.err != nil {
		return b
	}
	if b.scopes == nil {
		return b.fail(fmt.Errorf("%w: no scopes bound for %q", ErrInvalidCriteria, b.c.recordType))
	}
	if err := b.scopes.Invoke(b.c.recordType, name, b, args...); err != nil {
		return b.fail(fmt.Errorf("scope %q: %w", name, err))
	}
	return b
}

// Err returns the first recorded error.
func (b *Builder) Err() error { return b.err }

// Build returns an immutable snapshot of the accumulated criteria.
func (b *Builder) Build() (*Criteria, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.c.clone(), nil
}

func (b *Builder) add(op filter.Operator, c filter.Condition) *Builder {
	if b.err != nil {
		return b
	}
	next, err := b.c.filters.With(op, c)
	if err != nil {
		return b.fail(err)
	}
	b.c.filters = next
	return b
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}
