package filter

import (
	"errors"
	"fmt"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 64

// ErrInvalidFilter signals a malformed filter condition or operator.
var ErrInvalidFilter = errors.New("invalid filter")

// Operator names a bool-query clause group.
type Operator string

// Bool operators. Filter groups are emitted under query.bool.filter.bool.<operator>.
const (
	Must    Operator = "must"
	Should  Operator = "should"
	MustNot Operator = "must_not"
)

// Operators lists the operators in emission order.
var Operators = []Operator{Must, Should, MustNot}

// ParseOperator accepts bool operator names and their and/or/not aliases.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "must", "and", "":
		return Must, nil
	case "should", "or":
		return Should, nil
	case "must_not", "not":
		return MustNot, nil
	default:
		return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, s)
	}
}

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("%w: too many must conditions (max %d)", ErrInvalidFilter, MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("%w: too many should conditions (max %d)", ErrInvalidFilter, MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("%w: too many must_not conditions (max %d)", ErrInvalidFilter, MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// With returns a copy of e with c appended to the op group.
func (e Expression) With(op Operator, c Condition) (Expression, error) {
	group := e.Group(op)
	if len(group) >= MaxConditionsPerGroup {
		return e, fmt.Errorf("%w: too many %s conditions (max %d)", ErrInvalidFilter, op, MaxConditionsPerGroup)
	}
	next := make([]Condition, len(group), len(group)+1)
	copy(next, group)
	next = append(next, c)

	out := e
	switch op {
	case Must:
		out.must = next
	case Should:
		out.should = next
	case MustNot:
		out.mustNot = next
	default:
		return e, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, op)
	}
	return out, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// Group returns the conditions of one operator group.
func (e Expression) Group(op Operator) []Condition {
	switch op {
	case Must:
		return e.must
	case Should:
		return e.should
	case MustNot:
		return e.mustNot
	default:
		return nil
	}
}

// Clauses renders the op group as engine clauses.
func (e Expression) Clauses(op Operator) []any {
	group := e.Group(op)
	if len(group) == 0 {
		return nil
	}
	out := make([]any, len(group))
	for i, c := range group {
		out[i] = c.Clause()
	}
	return out
}

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

type kind uint8

const (
	kindMatch kind = iota + 1
	kindTerms
	kindRange
	kindExists
	kindRaw
)

// Condition is a single filter clause.
type Condition struct {
	kind      kind
	key       string
	match     any
	values    []any
	rangeExpr *Range
	raw       map[string]any
}

// NewMatch creates an exact term condition.
func NewMatch(key string, match any) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("%w: filter key is required", ErrInvalidFilter)
	}
	if match == nil {
		return Condition{}, fmt.Errorf("%w: match value is required for key %q", ErrInvalidFilter, key)
	}
	return Condition{kind: kindMatch, key: key, match: match}, nil
}

// NewTerms creates a condition matching any of values.
func NewTerms(key string, values ...any) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("%w: filter key is required", ErrInvalidFilter)
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("%w: at least one value is required for key %q", ErrInvalidFilter, key)
	}
	return Condition{kind: kindTerms, key: key, values: append([]any(nil), values...)}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("%w: filter key is required", ErrInvalidFilter)
	}
	return Condition{kind: kindRange, key: key, rangeExpr: &r}, nil
}

// NewExists creates a condition requiring the field to be present.
func NewExists(key string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("%w: filter key is required", ErrInvalidFilter)
	}
	return Condition{kind: kindExists, key: key}, nil
}

// NewRaw wraps a pre-built engine clause.
func NewRaw(clause map[string]any) (Condition, error) {
	if len(clause) == 0 {
		return Condition{}, fmt.Errorf("%w: raw clause is empty", ErrInvalidFilter)
	}
	return Condition{kind: kindRaw, raw: clause}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() any { return c.match }

// Values returns the terms of a terms condition.
func (c Condition) Values() []any { return c.values }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.kind == kindMatch }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.kind == kindRange }

// Clause renders the condition as an engine query clause.
func (c Condition) Clause() map[string]any {
	switch c.kind {
	case kindMatch:
		return map[string]any{"term": map[string]any{c.key: c.match}}
	case kindTerms:
		return map[string]any{"terms": map[string]any{c.key: c.values}}
	case kindRange:
		return map[string]any{"range": map[string]any{c.key: c.rangeExpr.bounds()}}
	case kindExists:
		return map[string]any{"exists": map[string]any{"field": c.key}}
	case kindRaw:
		return c.raw
	default:
		return nil
	}
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("%w: at least one range boundary is required", ErrInvalidFilter)
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("%w: cannot specify both gt and gte", ErrInvalidFilter)
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("%w: cannot specify both lt and lte", ErrInvalidFilter)
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

func (r Range) bounds() map[string]any {
	out := make(map[string]any, 2)
	if r.gt != nil {
		out["gt"] = *r.gt
	}
	if r.gte != nil {
		out["gte"] = *r.gte
	}
	if r.lt != nil {
		out["lt"] = *r.lt
	}
	if r.lte != nil {
		out["lte"] = *r.lte
	}
	return out
}
