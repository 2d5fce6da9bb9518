package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/searchbridge/internal/db"
)

// Lookup fetches all requested hashes in a single DoMulti round-trip.
func (s *Store) Lookup(ctx context.Context, q *db.LookupQuery) ([]db.Row, error) {
	return s.fetch(ctx, q, q.Keys)
}

// Stream returns a cursor fetching BatchSize keys per round-trip on demand.
func (s *Store) Stream(_ context.Context, q *db.LookupQuery) (db.RowCursor, error) {
	return &cursor{store: s, query: q, pending: q.Keys}, nil
}

func (s *Store) fetch(ctx context.Context, q *db.LookupQuery, keys []string) ([]db.Row, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(s.recordKey(q.Table, key)).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	rows := make([]db.Row, 0, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
		// HGETALL on a missing key yields an empty map.
		if len(m) == 0 {
			continue
		}
		if q.ExcludesTrashed() && m[q.SoftDeleteField] != "" {
			continue
		}
		rows = append(rows, project(m, q, keys[i]))
	}
	return rows, nil
}

func project(m map[string]string, q *db.LookupQuery, key string) db.Row {
	var row db.Row
	if q.AllColumns() {
		row = make(db.Row, len(m)+1)
		for k, v := range m {
			row[k] = v
		}
	} else {
		row = make(db.Row, len(q.Columns)+1)
		for _, c := range q.Columns {
			if v, ok := m[c]; ok {
				row[c] = v
			}
		}
	}
	row[q.KeyField] = key
	return row
}

type cursor struct {
	store   *Store
	query   *db.LookupQuery
	pending []string
	buf     []db.Row
	cur     db.Row
	err     error
	closed  bool
}

func (c *cursor) Next(ctx context.Context) bool {
	for len(c.buf) == 0 {
		if c.closed || c.err != nil || len(c.pending) == 0 {
			return false
		}
		n := min(c.store.batchSize, len(c.pending))
		batch := c.pending[:n]
		c.pending = c.pending[n:]

		rows, err := c.store.fetch(ctx, c.query, batch)
		if err != nil {
			c.err = err
			return false
		}
		c.buf = rows
	}
	c.cur = c.buf[0]
	c.buf = c.buf[1:]
	return true
}

func (c *cursor) Row() db.Row { return c.cur }

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close() {
	c.closed = true
	c.buf = nil
	c.pending = nil
}
