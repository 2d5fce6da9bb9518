package search

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
)

// --- Mocks ---

type mockClient struct {
	mu       sync.Mutex
	searchFn func(ctx context.Context, index string, body map[string]any) (*engine.Response, error)
	countFn  func(ctx context.Context, index string, body map[string]any) (int64, error)
	bodies   []map[string]any
	counts   int
}

func (m *mockClient) Search(ctx context.Context, index string, body map[string]any) (*engine.Response, error) {
	m.mu.Lock()
	m.bodies = append(m.bodies, body)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, index, body)
	}
	return &engine.Response{}, nil
}

func (m *mockClient) Count(ctx context.Context, index string, body map[string]any) (int64, error) {
	m.mu.Lock()
	m.counts++
	m.bodies = append(m.bodies, body)
	m.mu.Unlock()
	if m.countFn != nil {
		return m.countFn(ctx, index, body)
	}
	return 0, nil
}

func (m *mockClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bodies)
}

type mockRecords struct {
	records     map[string]record.Record
	err         error
	fetchCalls  int
	streamCalls int
	lastKeys    []string
	lastColumns []string
	// streamOrder overrides the order StreamByKeys yields records in.
	streamOrder []string
}

func (m *mockRecords) FetchByKeys(
	_ context.Context, _ *record.Type, keys, columns []string,
) (map[string]record.Record, error) {
	m.fetchCalls++
	m.lastKeys, m.lastColumns = keys, columns
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]record.Record)
	for _, k := range keys {
		if r, ok := m.records[k]; ok {
			out[k] = r
		}
	}
	return out, nil
}

func (m *mockRecords) StreamByKeys(
	_ context.Context, _ *record.Type, keys, columns []string,
) (record.Source, error) {
	m.streamCalls++
	m.lastKeys, m.lastColumns = keys, columns
	if m.err != nil {
		return nil, m.err
	}
	order := keys
	if m.streamOrder != nil {
		order = m.streamOrder
	}
	var recs []record.Record
	for _, k := range order {
		if r, ok := m.records[k]; ok {
			recs = append(recs, r)
		}
	}
	return &sliceSource{recs: recs}, nil
}

type sliceSource struct {
	recs   []record.Record
	pos    int
	pulled int
	err    error
	closed bool
}

func (s *sliceSource) Next(context.Context) bool {
	if s.closed || s.pos >= len(s.recs) {
		return false
	}
	s.pos++
	s.pulled++
	return true
}

func (s *sliceSource) Record() record.Record { return s.recs[s.pos-1] }
func (s *sliceSource) Err() error            { return s.err }
func (s *sliceSource) Close()                { s.closed = true }

// --- Helpers ---

func postsType(rules ...criteria.Rule) *record.Type {
	rt := record.Type{Name: "posts", Index: "posts_v1", Rules: rules}.WithDefaults()
	return &rt
}

func rec(key, title string) record.Record {
	return record.Record{Key: key, Fields: map[string]any{"id": key, "title": title}}
}

func hits(ids ...string) []engine.Hit {
	out := make([]engine.Hit, len(ids))
	for i, id := range ids {
		out[i] = engine.Hit{ID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func mustBuild(t *testing.T, b *criteria.Builder) *criteria.Criteria {
	t.Helper()
	c, err := b.Build()
	if err != nil {
		t.Fatalf("build criteria: %v", err)
	}
	return c
}

// staticRule is a test rule with fixed applicability and fragments.
type staticRule struct {
	applicable bool
	query      map[string]any
	highlight  map[string]any
	err        error
}

func (r *staticRule) Applicable(*criteria.Criteria) bool { return r.applicable }

func (r *staticRule) Query(context.Context, *criteria.Criteria) (map[string]any, error) {
	return r.query, r.err
}

func (r *staticRule) Highlight(*criteria.Criteria) map[string]any { return r.highlight }

func matchRule(field, value string) *staticRule {
	return &staticRule{
		applicable: true,
		query:      map[string]any{"must": map[string]any{"match": map[string]any{field: value}}},
		highlight:  map[string]any{"fields": map[string]any{field: struct{}{}}},
	}
}
