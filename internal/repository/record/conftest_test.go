package record

import (
	"context"
	"testing"

	"github.com/kailas-cloud/searchbridge/internal/db"
	"github.com/kailas-cloud/searchbridge/internal/domain/record"
)

// mockStore implements db.RecordReader for tests.
type mockStore struct {
	lookupFn func(ctx context.Context, q *db.LookupQuery) ([]db.Row, error)
	streamFn func(ctx context.Context, q *db.LookupQuery) (db.RowCursor, error)
}

func (m *mockStore) Lookup(ctx context.Context, q *db.LookupQuery) ([]db.Row, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) Stream(ctx context.Context, q *db.LookupQuery) (db.RowCursor, error) {
	if m.streamFn != nil {
		return m.streamFn(ctx, q)
	}
	return &sliceCursor{}, nil
}

// sliceCursor iterates a fixed row slice.
type sliceCursor struct {
	rows   []db.Row
	pos    int
	err    error
	closed bool
}

func (c *sliceCursor) Next(context.Context) bool {
	if c.closed || c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Row() db.Row { return c.rows[c.pos-1] }
func (c *sliceCursor) Err() error  { return c.err }
func (c *sliceCursor) Close()      { c.closed = true }

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func postsType() *record.Type {
	rt := record.Type{Name: "posts", SoftDeletes: true}.WithDefaults()
	return &rt
}
