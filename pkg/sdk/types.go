package searchbridge

import (
	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/rule"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
	searchuc "github.com/kailas-cloud/searchbridge/internal/usecase/search"
)

// Query building.
type (
	Criteria = criteria.Criteria
	Builder  = criteria.Builder
	Order    = criteria.Order
	Operator = filter.Operator
)

// Sort orders.
const (
	Asc  = criteria.Asc
	Desc = criteria.Desc
)

// Filter operators.
const (
	Must    = filter.Must
	Should  = filter.Should
	MustNot = filter.MustNot
)

// Record types and their rules.
type (
	RecordType     = record.Type
	Rule           = criteria.Rule
	QueryString    = rule.QueryString
	MultiMatch     = rule.MultiMatch
	RuleFunc       = rule.Func
	StructuredRule = rule.Structured
	Scope          = scope.Extension
	ScopeFunc      = scope.Func
)

// Results.
type (
	Record    = record.Record
	Mapped    = record.Mapped
	Highlight = record.Highlight
	Cursor    = record.Cursor
	Result    = searchuc.Result
	Page      = searchuc.Page
	Response  = engine.Response
	EngineHit = engine.Hit
	RawFunc   = engine.RawFunc
)

// FilterScope returns a scope adding a term filter on field. A nil value takes
// the scope's first argument.
func FilterScope(name string, op Operator, field string, value any) Scope {
	return Scope{Name: name, Fn: scope.Filter(op, field, value)}
}

// VectorRule returns a kNN rule over field using e to embed the query text.
// numCandidates <= 0 uses the engine default.
func VectorRule(field string, e Embedder, numCandidates int) Rule {
	return &rule.Vector{Embedder: &embedderAdapter{inner: e}, Field: field, NumCandidates: numCandidates}
}

// HitKeys returns the persisted keys of the response hits in order.
func HitKeys(resp *Response) []string { return searchuc.MapIDs(resp) }
