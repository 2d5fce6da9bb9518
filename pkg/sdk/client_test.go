package searchbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	healthuc "github.com/kailas-cloud/searchbridge/internal/usecase/health"
)

func testCriteria(t *testing.T) *Criteria {
	t.Helper()
	c, err := (&mockSearchUC{}).Query("posts").Query("golang").Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNew_NoElasticsearch(t *testing.T) {
	_, err := New(context.Background(), WithRedis("localhost:6379", ""))
	if err == nil {
		t.Fatal("expected error when no elasticsearch address provided")
	}
}

func TestNew_NoStore(t *testing.T) {
	_, err := New(context.Background(), WithElasticsearch("http://localhost:9200"))
	if err == nil {
		t.Fatal("expected error when no record store configured")
	}
}

func TestCreateStore_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown"}
	if _, err := createStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := defaultConfig()
	if !cfg.highlight {
		t.Error("highlight should default to true")
	}

	opts := []Option{
		WithRedis("localhost:6379", "secret"),
		WithElasticsearch("http://es1:9200", "http://es2:9200"),
		WithElasticBasicAuth("elastic", "changeme"),
		WithRateLimit(50, 10),
		WithParallelRules(4),
		WithoutHighlight(),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver != driverRedis || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("redis options not applied: %+v", cfg)
	}
	if len(cfg.esAddrs) != 2 || cfg.esUsername != "elastic" || cfg.esPassword != "changeme" {
		t.Errorf("elasticsearch options not applied: %+v", cfg)
	}
	if cfg.rps != 50 || cfg.burst != 10 || cfg.parallel != 4 || cfg.highlight {
		t.Errorf("pipeline options not applied: %+v", cfg)
	}

	WithPostgres("postgres://localhost/app").apply(cfg)
	if cfg.driver != driverPostgres || cfg.dsn != "postgres://localhost/app" {
		t.Errorf("postgres option not applied: %+v", cfg)
	}

	WithElasticCloud("deployment:abc", "key").apply(cfg)
	if cfg.esCloudID != "deployment:abc" || cfg.esAPIKey != "key" {
		t.Errorf("cloud option not applied: %+v", cfg)
	}
}

func TestClient_Get(t *testing.T) {
	want := &Result{Total: 1, Records: []Mapped{{Record: Record{Key: "1"}}}}
	mock := &mockSearchUC{
		getFn: func(_ context.Context, c *Criteria) (*Result, error) {
			if c.Query() != "golang" {
				t.Errorf("query = %q, want golang", c.Query())
			}
			return want, nil
		},
	}
	client := &Client{searchSvc: mock}

	got, err := client.Get(context.Background(), testCriteria(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestClient_Errors(t *testing.T) {
	mock := &mockSearchUC{
		searchFn: func(context.Context, *Criteria) (*Response, error) { return nil, ErrEngineUnavailable },
		countFn:  func(context.Context, *Criteria) (int64, error) { return 0, ErrStoreUnavailable },
		rawFn: func(context.Context, string, map[string]any) (*Response, error) {
			return nil, ErrUnknownRecordType
		},
	}
	client := &Client{searchSvc: mock}
	ctx := context.Background()
	c := testCriteria(t)

	if _, err := client.Search(ctx, c); !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("Search: expected ErrEngineUnavailable, got %v", err)
	}
	if _, err := client.Count(ctx, c); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Count: expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := client.Raw(ctx, "ghosts", nil); !errors.Is(err, ErrUnknownRecordType) {
		t.Errorf("Raw: expected ErrUnknownRecordType, got %v", err)
	}
	if cur, err := client.Cursor(ctx, c); err == nil || cur != nil {
		t.Errorf("Cursor: expected nil cursor and error, got %v, %v", cur, err)
	}
}

func TestClient_Paginate(t *testing.T) {
	mock := &mockSearchUC{
		paginateFn: func(_ context.Context, _ *Criteria, perPage, page int) (*Page, error) {
			return &Page{Result: Result{Total: 25}, Page: page, PerPage: perPage}, nil
		},
	}
	client := &Client{searchSvc: mock}

	p, err := client.Paginate(context.Background(), testCriteria(t), 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Page != 2 || p.LastPage() != 3 {
		t.Errorf("page = %d, last = %d", p.Page, p.LastPage())
	}
}

func TestClient_Register(t *testing.T) {
	mock := &mockSearchUC{
		registerFn: func(rt RecordType) error {
			if rt.Index == "" {
				return ErrInvalidRequest
			}
			return nil
		},
	}
	client := &Client{searchSvc: mock}

	if err := client.Register(RecordType{Name: "posts", Index: "posts_v1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.Register(RecordType{Name: "posts"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if got := client.Types(); len(got) != 1 || got[0] != "posts" {
		t.Errorf("types = %v", got)
	}
}

func TestClient_Health(t *testing.T) {
	client := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "elasticsearch": healthuc.CheckError},
	}}}

	got := client.Health(context.Background())
	if got.Status != "degraded" || got.Checks["elasticsearch"] != "error" || got.Checks["database"] != "ok" {
		t.Errorf("unexpected health: %+v", got)
	}
}

func TestClient_ObservesOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mock := &mockSearchUC{
		countFn: func(context.Context, *Criteria) (int64, error) { return 3, nil },
		searchFn: func(context.Context, *Criteria) (*Response, error) {
			return nil, ErrEngineUnavailable
		},
	}
	client := &Client{searchSvc: mock, obs: obs}
	c := testCriteria(t)

	_, _ = client.Count(context.Background(), c)
	_, _ = client.Search(context.Background(), c)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	statuses := map[string]string{}
	for _, mf := range families {
		if mf.GetName() != "searchbridge_sdk_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["type"] != "posts" {
				t.Errorf("type label = %q, want posts", labels["type"])
			}
			statuses[labels["operation"]] = labels["status"]
		}
	}
	if statuses["count"] != "ok" || statuses["search"] != "error" {
		t.Errorf("unexpected statuses: %v", statuses)
	}
}

func TestNewObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second register should reuse collectors: %v", err)
	}
}

func TestNilObserver(t *testing.T) {
	var o *observer
	o.observe("get", "posts", time.Now(), nil)
}

func TestEmbedderAdapter(t *testing.T) {
	mock := &mockEmbedder{
		fn: func(_ context.Context, text string) (EmbeddingResult, error) {
			if text != "hello" {
				t.Errorf("text = %q", text)
			}
			return EmbeddingResult{Embedding: []float32{1, 2, 3}, TotalTokens: 10}, nil
		},
	}
	adapter := &embedderAdapter{inner: mock}

	result, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 10 {
		t.Errorf("unexpected result: %+v", result)
	}

	mock.fn = func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{}, errors.New("provider down")
	}
	if _, err := adapter.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from adapter")
	}

	mock.checkErr = errors.New("unauthorized")
	if err := adapter.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check error")
	}
}

func TestVectorRule(t *testing.T) {
	r := VectorRule("embedding", &mockEmbedder{
		fn: func(context.Context, string) (EmbeddingResult, error) {
			return EmbeddingResult{Embedding: []float32{0.5}}, nil
		},
	}, 20)

	c := testCriteria(t)
	if !r.Applicable(c) {
		t.Fatal("vector rule should apply to a criteria with query text")
	}
	frag, err := r.Query(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	knn := frag["must"].(map[string]any)["knn"].(map[string]any)
	if knn["field"] != "embedding" || knn["num_candidates"] != 20 {
		t.Errorf("unexpected knn: %v", knn)
	}
}
