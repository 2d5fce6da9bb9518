package bootstrap

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchbridge/internal/config"
	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/rule"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
	embeddinguc "github.com/kailas-cloud/searchbridge/internal/usecase/embedding"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{1, 0}}, nil
}

func postsConfig() []config.TypeConfig {
	return []config.TypeConfig{{
		Name:  "posts",
		Index: "posts_v1",
		Table: "posts",
		Rules: []config.RuleConfig{
			{Kind: config.RuleQueryString, Fields: []string{"title^2", "body"}, HighlightFields: []string{"title"}},
			{Kind: config.RuleMultiMatch, Fields: []string{"title"}, Fuzziness: "AUTO"},
			{Kind: config.RuleVector, Field: "embedding", NumCandidates: 50},
		},
		Scopes: []config.ScopeConfig{
			{Name: "published", Field: "status", Value: "published"},
			{Name: "lang", Field: "lang"},
			{Name: "not_spam", Field: "flag", Operator: "not", Value: "spam"},
		},
	}}
}

func TestBuildTypes(t *testing.T) {
	types, err := BuildTypes(postsConfig(), stubEmbedder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(types) != 1 {
		t.Fatalf("expected 1 type, got %d", len(types))
	}
	rt := types[0]
	if rt.Name != "posts" || rt.Index != "posts_v1" || rt.Table != "posts" {
		t.Errorf("unexpected type: %+v", rt)
	}

	if len(rt.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rt.Rules))
	}
	qs, ok := rt.Rules[0].(*rule.QueryString)
	if !ok {
		t.Fatalf("rules[0] = %T, want *rule.QueryString", rt.Rules[0])
	}
	if len(qs.Fields) != 2 || qs.HighlightFields[0] != "title" {
		t.Errorf("query_string = %+v", qs)
	}
	if mm, ok := rt.Rules[1].(*rule.MultiMatch); !ok || mm.Fuzziness != "AUTO" {
		t.Errorf("rules[1] = %#v", rt.Rules[1])
	}
	if v, ok := rt.Rules[2].(*rule.Vector); !ok || v.Field != "embedding" || v.NumCandidates != 50 {
		t.Errorf("rules[2] = %#v", rt.Rules[2])
	}

	if len(rt.Scopes) != 3 || rt.Scopes[0].Name != "published" {
		t.Fatalf("unexpected scopes: %+v", rt.Scopes)
	}
}

func TestBuildTypes_ScopesFilter(t *testing.T) {
	types, err := BuildTypes(postsConfig(), stubEmbedder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reg := scope.NewRegistry()
	reg.Register("posts", types[0].Scopes...)

	c, err := criteria.NewBuilder("posts", reg).
		Scope("published").
		Scope("lang", "en").
		Scope("not_spam").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := c.Filters()
	if len(f.Must()) != 2 {
		t.Fatalf("expected 2 must conditions, got %d", len(f.Must()))
	}
	if got := f.Must()[1].Match(); got != "en" {
		t.Errorf("lang scope value = %v, want en", got)
	}
	if len(f.MustNot()) != 1 || f.MustNot()[0].Key() != "flag" {
		t.Errorf("must_not = %+v", f.MustNot())
	}
}

func TestBuildTypes_VectorWithoutEmbedder(t *testing.T) {
	_, err := BuildTypes(postsConfig(), nil)
	if !errors.Is(err, ErrNoEmbedder) {
		t.Fatalf("expected ErrNoEmbedder, got %v", err)
	}
}

func TestBuildTypes_Errors(t *testing.T) {
	tests := []struct {
		name string
		decl config.TypeConfig
	}{
		{"unknown rule", config.TypeConfig{Name: "x", Rules: []config.RuleConfig{{Kind: "fuzzy"}}}},
		{"bad scope operator", config.TypeConfig{Name: "x", Scopes: []config.ScopeConfig{
			{Name: "s", Field: "f", Operator: "xor"},
		}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildTypes([]config.TypeConfig{tc.decl}, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCacheNamespace(t *testing.T) {
	got := cacheNamespace(config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 512})
	if got != "openai:text-embedding-3-small:512" {
		t.Errorf("namespace = %q", got)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	if _, err := openStore(context.Background(), config.DatabaseConfig{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestApp_CloseReverseOrder(t *testing.T) {
	var order []int
	app := &App{closers: []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}}
	app.Close()
	app.Close()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v, want [2 1]", order)
	}
}

type countingStore struct {
	keys []string
}

func (c *countingStore) IncrBy(_ context.Context, key string, _ int64, _ time.Duration) (int64, error) {
	c.keys = append(c.keys, key)
	return 0, nil
}

func TestBuildEmbedder_Budget(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Provider: "openai",
		Model:    "text-embedding-3-small",
		Budget:   config.BudgetConfig{DailyTokenLimit: 1000, Action: config.BudgetReject},
	}
	counters := &countingStore{}

	base, emb, closeFunc, err := buildEmbedder(context.Background(), cfg,
		config.DatabaseConfig{KeyPrefix: "sb:"}, counters, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base == nil || closeFunc != nil {
		t.Fatalf("base=%v closeFunc set=%v", base, closeFunc != nil)
	}
	if _, ok := emb.(*embeddinguc.BudgetedEmbedder); !ok {
		t.Fatalf("expected budgeted embedder, got %T", emb)
	}
	if len(counters.keys) != 2 || !strings.HasPrefix(counters.keys[0], "sb:budget:openai:daily:") {
		t.Errorf("budget counters not loaded: %v", counters.keys)
	}
}

func TestBuildEmbedder_Instruction(t *testing.T) {
	cfg := config.EmbeddingConfig{Provider: "openai", Model: "m", QueryInstruction: "query: "}

	_, emb, _, err := buildEmbedder(context.Background(), cfg, config.DatabaseConfig{}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := emb.(*domain.InstructionEmbedder); !ok {
		t.Fatalf("expected instruction embedder, got %T", emb)
	}
}

func TestBuildEmbedder_BadBudgetAction(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Model:  "m",
		Budget: config.BudgetConfig{MonthlyTokenLimit: 5, Action: "block"},
	}
	if _, _, _, err := buildEmbedder(context.Background(), cfg, config.DatabaseConfig{}, nil, zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}
