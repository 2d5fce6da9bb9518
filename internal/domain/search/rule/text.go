package rule

import (
	"context"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
)

// QueryString matches the query text with Lucene query syntax.
type QueryString struct {
	Fields          []string
	DefaultOperator string
	HighlightFields []string
}

// Applicable reports whether the criteria has query text.
func (r *QueryString) Applicable(c *criteria.Criteria) bool { return hasQuery(c) }

// Query returns a must.query_string fragment.
func (r *QueryString) Query(_ context.Context, c *criteria.Criteria) (map[string]any, error) {
	qs := map[string]any{"query": c.Query()}
	if len(r.Fields) > 0 {
		qs["fields"] = stringsToAny(r.Fields)
	}
	if r.DefaultOperator != "" {
		qs["default_operator"] = r.DefaultOperator
	}
	return map[string]any{"must": map[string]any{"query_string": qs}}, nil
}

// Highlight returns the configured highlight fields.
func (r *QueryString) Highlight(*criteria.Criteria) map[string]any {
	return highlightFields(r.HighlightFields)
}

// MultiMatch matches the query text across several fields.
type MultiMatch struct {
	Fields          []string
	Type            string
	Fuzziness       string
	Operator        string
	HighlightFields []string
}

// Applicable reports whether the criteria has query text.
func (r *MultiMatch) Applicable(c *criteria.Criteria) bool { return hasQuery(c) }

// Query returns a must.multi_match fragment.
func (r *MultiMatch) Query(_ context.Context, c *criteria.Criteria) (map[string]any, error) {
	mm := map[string]any{"query": c.Query()}
	if len(r.Fields) > 0 {
		mm["fields"] = stringsToAny(r.Fields)
	}
	if r.Type != "" {
		mm["type"] = r.Type
	}
	if r.Fuzziness != "" {
		mm["fuzziness"] = r.Fuzziness
	}
	if r.Operator != "" {
		mm["operator"] = r.Operator
	}
	return map[string]any{"must": map[string]any{"multi_match": mm}}, nil
}

// Highlight returns the configured highlight fields, defaulting to the match fields.
func (r *MultiMatch) Highlight(*criteria.Criteria) map[string]any {
	if len(r.HighlightFields) > 0 {
		return highlightFields(r.HighlightFields)
	}
	return highlightFields(r.Fields)
}
