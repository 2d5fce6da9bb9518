package chi

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
)

// applyRequest copies req onto b. Paging is left to the caller.
func applyRequest(b *criteria.Builder, req *SearchRequest) (*criteria.Builder, error) {
	b.Query(req.Query).
		Select(req.Select...).
		Collapse(req.Collapse).
		MinimumShouldMatch(req.MinimumShouldMatch)

	for i, f := range req.Filters {
		op, err := filter.ParseOperator(f.Operator)
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		cond, err := conditionFromClause(f)
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		b.Filter(op, cond.Clause())
	}
	for _, s := range req.Scopes {
		b.Scope(s.Name, s.Args...)
	}
	for _, s := range req.Sort {
		b.OrderBy(s.Field, criteria.Order(s.Order))
	}
	for name, spec := range req.Aggregations {
		m, ok := spec.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("aggregations.%s must be an object", name)
		}
		b.Aggregate(name, m)
	}
	if req.From != nil {
		b.From(*req.From)
	}
	if req.Size != nil {
		b.Take(*req.Size)
	}
	return b, nil
}

func conditionFromClause(f FilterClause) (filter.Condition, error) {
	set := 0
	for _, ok := range []bool{f.Value != nil, len(f.Values) > 0, f.Range != nil, f.Exists} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return filter.Condition{}, fmt.Errorf("%w: %q needs exactly one of value, values, range or exists",
			filter.ErrInvalidFilter, f.Field)
	}

	var (
		cond filter.Condition
		err  error
	)
	switch {
	case f.Value != nil:
		cond, err = filter.NewMatch(f.Field, f.Value)
	case len(f.Values) > 0:
		cond, err = filter.NewTerms(f.Field, f.Values...)
	case f.Range != nil:
		var r filter.Range
		r, err = filter.NewRangeFilter(f.Range.GT, f.Range.GTE, f.Range.LT, f.Range.LTE)
		if err == nil {
			cond, err = filter.NewRange(f.Field, r)
		}
	default:
		cond, err = filter.NewExists(f.Field)
	}
	if err != nil {
		return filter.Condition{}, fmt.Errorf("build condition: %w", err)
	}
	return cond, nil
}

// options resolves the engine options of req over defaults.
func options(req *SearchRequest, defaults engine.Options) engine.Options {
	opts := defaults
	if req.Highlight != nil {
		opts.Highlight = *req.Highlight
	}
	opts.Explain = req.Explain
	opts.Profile = req.Profile
	return opts
}

// pageParams validates page and per_page. Zero page means no paging.
func pageParams(req *SearchRequest, defaultSize, maxSize int) (page, perPage int, err error) {
	if req.Page == 0 {
		return 0, 0, nil
	}
	if req.Page < 0 {
		return 0, 0, errors.New("page must be positive")
	}
	perPage = req.PerPage
	if perPage == 0 {
		perPage = defaultSize
	}
	if perPage < 1 || perPage > maxSize {
		return 0, 0, fmt.Errorf("per_page must be between 1 and %d", maxSize)
	}
	return req.Page, perPage, nil
}

func searchItems(recs []record.Mapped) []SearchItem {
	items := make([]SearchItem, len(recs))
	for i, r := range recs {
		items[i] = SearchItem{
			Key:       r.Key,
			Score:     r.Score,
			Fields:    r.Fields,
			Highlight: r.Highlight,
		}
	}
	return items
}

func rawResponse(resp *engine.Response) RawResponse {
	out := RawResponse{
		Total:        resp.TotalHits(),
		Took:         resp.Took,
		Aggregations: resp.Aggregations,
		Hits:         make([]RawHit, len(resp.Hits)),
	}
	for i, h := range resp.Hits {
		out.Hits[i] = RawHit{
			ID:        h.ID,
			Key:       record.KeyFromHitID(h.ID),
			Index:     h.Index,
			Score:     h.Score,
			Source:    h.Source,
			Highlight: h.Highlight,
		}
	}
	return out
}
