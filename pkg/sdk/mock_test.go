package searchbridge

import (
	"context"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	healthuc "github.com/kailas-cloud/searchbridge/internal/usecase/health"
	searchuc "github.com/kailas-cloud/searchbridge/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	registerFn func(rt RecordType) error
	getFn      func(ctx context.Context, c *Criteria) (*Result, error)
	searchFn   func(ctx context.Context, c *Criteria) (*Response, error)
	paginateFn func(ctx context.Context, c *Criteria, perPage, page int) (*Page, error)
	countFn    func(ctx context.Context, c *Criteria) (int64, error)
	rawFn      func(ctx context.Context, recordType string, body map[string]any) (*Response, error)
}

func (m *mockSearchUC) RegisterType(rt RecordType) error { return m.registerFn(rt) }

func (m *mockSearchUC) Types() []string { return []string{"posts"} }

func (m *mockSearchUC) Query(recordType string) *Builder { return criteria.NewBuilder(recordType, nil) }

func (m *mockSearchUC) Search(ctx context.Context, c *Criteria) (*Response, error) {
	return m.searchFn(ctx, c)
}

func (m *mockSearchUC) Get(ctx context.Context, c *Criteria) (*Result, error) {
	return m.getFn(ctx, c)
}

func (m *mockSearchUC) Cursor(context.Context, *Criteria) (*searchuc.MappedCursor, error) {
	return nil, ErrEngineUnavailable
}

func (m *mockSearchUC) Paginate(ctx context.Context, c *Criteria, perPage, page int) (*Page, error) {
	return m.paginateFn(ctx, c, perPage, page)
}

func (m *mockSearchUC) Count(ctx context.Context, c *Criteria) (int64, error) {
	return m.countFn(ctx, c)
}

func (m *mockSearchUC) SearchRaw(ctx context.Context, recordType string, body map[string]any) (*Response, error) {
	return m.rawFn(ctx, recordType, body)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- Embedder mock ---

type mockEmbedder struct {
	fn       func(ctx context.Context, text string) (EmbeddingResult, error)
	checkErr error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

func (m *mockEmbedder) HealthCheck(context.Context) error { return m.checkErr }
