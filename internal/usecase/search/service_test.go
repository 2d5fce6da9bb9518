package search

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
)

func newTestService(t *testing.T, client *mockClient, store *mockRecords, rt *record.Type, opts ...Option) *Service {
	t.Helper()
	svc := New(client, store, nil, opts...)
	if err := svc.RegisterType(*rt); err != nil {
		t.Fatalf("register type: %v", err)
	}
	return svc
}

func TestService_NoApplicableRule(t *testing.T) {
	client := &mockClient{}
	store := &mockRecords{}
	svc := newTestService(t, client, store, postsType(&staticRule{}))

	c := mustBuild(t, svc.Query("posts").Query("golang"))
	res, err := svc.Get(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Records) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if client.calls() != 0 || store.fetchCalls != 0 {
		t.Errorf("engine calls %d store calls %d, want none", client.calls(), store.fetchCalls)
	}
}

func TestService_GetFallsBackToMatchingRule(t *testing.T) {
	client := &mockClient{
		searchFn: func(_ context.Context, index string, body map[string]any) (*engine.Response, error) {
			if index != "posts_v1" {
				t.Errorf("index = %q", index)
			}
			q := body["query"].(map[string]any)["bool"].(map[string]any)["must"].(map[string]any)["match"].(map[string]any)
			if _, ok := q["title"]; ok {
				return &engine.Response{}, nil
			}
			return &engine.Response{Total: 7, Hits: hits("1", "2", "3", "4", "5")}, nil
		},
	}
	records := make(map[string]record.Record)
	for _, k := range []string{"1", "2", "3", "4", "5"} {
		records[k] = rec(k, "post "+k)
	}
	store := &mockRecords{records: records}
	svc := newTestService(t, client, store, postsType(matchRule("title", "go"), matchRule("body", "go")))

	res, err := svc.Get(context.Background(), mustBuild(t, svc.Query("posts").Query("go")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 7 {
		t.Errorf("total = %d, want 7", res.Total)
	}
	if want := []string{"1", "2", "3", "4", "5"}; !reflect.DeepEqual(keysOf(res.Records), want) {
		t.Errorf("keys = %v, want %v", keysOf(res.Records), want)
	}
	if client.calls() != 2 {
		t.Errorf("engine calls = %d, want 2", client.calls())
	}
}

func TestService_SkipsInapplicableRuleAndMapsInEngineOrder(t *testing.T) {
	skipped := &staticRule{query: map[string]any{"must": map[string]any{"term": map[string]any{"never": true}}}}
	client := &mockClient{
		searchFn: func(context.Context, string, map[string]any) (*engine.Response, error) {
			return &engine.Response{
				Total: 7,
				Hits:  hits("posts_9", "posts_3", "posts_12", "posts_1", "posts_5"),
			}, nil
		},
	}
	records := make(map[string]record.Record)
	for _, k := range []string{"1", "3", "5", "9", "12"} {
		records[k] = rec(k, "post "+k)
	}
	store := &mockRecords{records: records}
	svc := newTestService(t, client, store, postsType(skipped, matchRule("title", "go")))

	res, err := svc.Get(context.Background(), mustBuild(t, svc.Query("posts").Query("go")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls() != 1 {
		t.Fatalf("engine calls = %d, want 1", client.calls())
	}
	must := client.bodies[0]["query"].(map[string]any)["bool"].(map[string]any)["must"].(map[string]any)
	if _, ok := must["match"]; !ok {
		t.Errorf("expected the applicable rule's query, got %v", must)
	}
	if res.Total != 7 {
		t.Errorf("total = %d, want 7", res.Total)
	}
	if store.fetchCalls != 1 {
		t.Errorf("store calls = %d, want 1", store.fetchCalls)
	}
	if want := []string{"9", "3", "12", "1", "5"}; !reflect.DeepEqual(keysOf(res.Records), want) {
		t.Errorf("keys = %v, want %v", keysOf(res.Records), want)
	}
}

func TestService_UnknownType(t *testing.T) {
	svc := New(&mockClient{}, &mockRecords{}, nil)

	_, err := svc.Search(context.Background(), mustBuild(t, criteria.NewBuilder("ghosts", nil)))
	if !errors.Is(err, domain.ErrUnknownRecordType) {
		t.Fatalf("expected ErrUnknownRecordType, got %v", err)
	}
	if _, err := svc.Count(context.Background(), mustBuild(t, criteria.NewBuilder("ghosts", nil))); !errors.Is(err, domain.ErrUnknownRecordType) {
		t.Fatalf("expected ErrUnknownRecordType from count, got %v", err)
	}
}

func TestService_RegisterTypeValidates(t *testing.T) {
	svc := New(&mockClient{}, &mockRecords{}, nil)
	if err := svc.RegisterType(record.Type{}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if len(svc.Types()) != 0 {
		t.Error("invalid type must not be registered")
	}
}

func TestService_RawCallback(t *testing.T) {
	client := &mockClient{}
	svc := newTestService(t, client, &mockRecords{}, postsType(matchRule("title", "go")))

	var gotQuery string
	raw := func(ctx context.Context, c engine.Client, query string, opts engine.Options) (*engine.Response, error) {
		gotQuery = query
		if !opts.Highlight {
			t.Error("default options should enable highlighting")
		}
		return c.Search(ctx, "custom", map[string]any{"size": 1})
	}

	c := mustBuild(t, svc.Query("posts").Query("hello").Raw(raw))
	if _, err := svc.Search(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "hello" {
		t.Errorf("query = %q, want hello", gotQuery)
	}
	if client.calls() != 1 || !reflect.DeepEqual(client.bodies[0], map[string]any{"size": 1}) {
		t.Errorf("rules must be bypassed, bodies = %v", client.bodies)
	}
}

func TestService_Paginate(t *testing.T) {
	client := &mockClient{
		searchFn: func(context.Context, string, map[string]any) (*engine.Response, error) {
			return &engine.Response{Total: 25, Hits: hits("1")}, nil
		},
	}
	store := &mockRecords{records: map[string]record.Record{"1": rec("1", "one")}}
	svc := newTestService(t, client, store, postsType())

	page, err := svc.Paginate(context.Background(), mustBuild(t, svc.Query("posts")), 10, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := client.bodies[0]
	if body["from"] != 20 || body["size"] != 10 {
		t.Errorf("from/size = %v/%v, want 20/10", body["from"], body["size"])
	}
	if page.Page != 3 || page.PerPage != 10 || page.LastPage() != 3 {
		t.Errorf("page = %d perPage = %d last = %d", page.Page, page.PerPage, page.LastPage())
	}
	if len(page.Records) != 1 {
		t.Errorf("records = %d, want 1", len(page.Records))
	}

	if _, err := svc.Paginate(context.Background(), mustBuild(t, svc.Query("posts")), 0, 1); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for zero per page, got %v", err)
	}
}

func TestPage_LastPage(t *testing.T) {
	tests := []struct {
		total   int64
		perPage int
		want    int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{7, 0, 1},
	}
	for _, tc := range tests {
		p := &Page{Result: Result{Total: tc.total}, PerPage: tc.perPage}
		if got := p.LastPage(); got != tc.want {
			t.Errorf("LastPage(total=%d, perPage=%d) = %d, want %d", tc.total, tc.perPage, got, tc.want)
		}
	}
}

func TestService_CountSkipsHighlightAndRaw(t *testing.T) {
	client := &mockClient{
		countFn: func(_ context.Context, _ string, body map[string]any) (int64, error) {
			if _, ok := body["highlight"]; ok {
				t.Error("count body must not carry highlight")
			}
			return 12, nil
		},
	}
	svc := newTestService(t, client, &mockRecords{}, postsType(matchRule("title", "go")))

	rawCalled := false
	raw := func(context.Context, engine.Client, string, engine.Options) (*engine.Response, error) {
		rawCalled = true
		return nil, nil
	}
	n, err := svc.Count(context.Background(), mustBuild(t, svc.Query("posts").Raw(raw)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 12 {
		t.Errorf("count = %d, want 12", n)
	}
	if rawCalled {
		t.Error("count must not use the raw callback")
	}
}

func TestService_ExplainAndProfile(t *testing.T) {
	client := &mockClient{}
	svc := newTestService(t, client, &mockRecords{}, postsType())
	c := mustBuild(t, svc.Query("posts"))

	if _, err := svc.Explain(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Profile(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.bodies[0]["explain"] != true || client.bodies[0]["profile"] != nil {
		t.Errorf("explain body = %v", client.bodies[0])
	}
	if client.bodies[1]["profile"] != true || client.bodies[1]["explain"] != nil {
		t.Errorf("profile body = %v", client.bodies[1])
	}
}

func TestService_Aggregations(t *testing.T) {
	aggs := map[string]any{"langs": map[string]any{"buckets": []any{}}}
	client := &mockClient{
		searchFn: func(_ context.Context, _ string, body map[string]any) (*engine.Response, error) {
			if _, ok := body["aggregations"].(map[string]any)["langs"]; !ok {
				t.Errorf("aggregations missing from body: %v", body)
			}
			return &engine.Response{Aggregations: aggs}, nil
		},
	}
	svc := newTestService(t, client, &mockRecords{}, postsType())

	got, err := svc.Aggregations(context.Background(), mustBuild(t, svc.Query("posts")),
		map[string]any{"langs": map[string]any{"terms": map[string]any{"field": "lang"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, aggs) {
		t.Errorf("aggregations = %v", got)
	}
}

func TestService_ScopesThroughQuery(t *testing.T) {
	client := &mockClient{}
	rt := postsType()
	rt.Scopes = []scope.Extension{
		{Name: "published", Fn: scope.Filter(filter.Must, "status", "published")},
		{Name: "lang", Fn: scope.Filter(filter.Must, "lang", nil)},
	}
	svc := newTestService(t, client, &mockRecords{}, rt)

	c := mustBuild(t, svc.Query("posts").Scope("published").Scope("lang", "en"))
	if _, err := svc.Search(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	must := client.bodies[0]["query"].(map[string]any)["bool"].(map[string]any)["filter"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Errorf("must = %v, want two scope filters", must)
	}
	if names := svc.Scopes().Names("posts"); !reflect.DeepEqual(names, []string{"published", "lang"}) {
		t.Errorf("scope names = %v", names)
	}

	if _, err := svc.Query("posts").Scope("missing").Build(); !errors.Is(err, scope.ErrUnknownScope) {
		t.Errorf("expected ErrUnknownScope, got %v", err)
	}
}

func TestService_SearchRawSendsBodyVerbatim(t *testing.T) {
	client := &mockClient{}
	svc := newTestService(t, client, &mockRecords{}, postsType())
	body := map[string]any{"query": map[string]any{"match_all": map[string]any{}}, "size": 3}

	if _, err := svc.SearchRaw(context.Background(), "posts", body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(client.bodies[0], body) {
		t.Errorf("body = %v, want %v", client.bodies[0], body)
	}
}

func TestService_CursorMatchesGet(t *testing.T) {
	client := &mockClient{
		searchFn: func(context.Context, string, map[string]any) (*engine.Response, error) {
			return &engine.Response{Total: 3, Hits: hits("posts_3", "posts_2", "posts_1")}, nil
		},
	}
	store := &mockRecords{records: map[string]record.Record{"1": rec("1", "one"), "3": rec("3", "three")}}
	svc := newTestService(t, client, store, postsType())
	c := mustBuild(t, svc.Query("posts"))

	res, err := svc.Get(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cur, err := svc.Cursor(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lazy, err := Collect(context.Background(), cur)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Records, lazy) {
		t.Errorf("cursor %v != get %v", keysOf(lazy), keysOf(res.Records))
	}
}

func TestMapIDs(t *testing.T) {
	resp := &engine.Response{Hits: hits("posts_12", "archived_posts_7", "9")}
	if got, want := MapIDs(resp), []string{"12", "7", "9"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MapIDs = %v, want %v", got, want)
	}
	if got := MapIDs(nil); len(got) != 0 {
		t.Errorf("MapIDs(nil) = %v", got)
	}
}
