// Package record reads persisted records for engine hits from the record store.
package record

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/searchbridge/internal/db"
	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/metrics"
)

// Repo implements usecase/search.RecordReader on top of a db.RecordReader.
type Repo struct {
	store db.RecordReader
}

// New creates a record repository.
func New(s db.RecordReader) *Repo {
	return &Repo{store: s}
}

// FetchByKeys loads the records of rt with the given keys in one batch, indexed by key.
// Soft-deleted records are included when rt supports soft deletes.
func (r *Repo) FetchByKeys(
	ctx context.Context, rt *record.Type, keys, columns []string,
) (map[string]record.Record, error) {
	q := lookupQuery(rt, keys, columns)

	start := time.Now()
	rows, err := r.store.Lookup(ctx, q)
	metrics.StoreLookupDuration.WithLabelValues(rt.Table, "eager").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w: %w", rt.Name, domain.ErrStoreUnavailable, err)
	}

	out := make(map[string]record.Record, len(rows))
	for _, row := range rows {
		rec := toRecord(row, rt.KeyField)
		out[rec.Key] = rec
	}
	return out, nil
}

// StreamByKeys opens a cursor over the same records FetchByKeys would return.
func (r *Repo) StreamByKeys(
	ctx context.Context, rt *record.Type, keys, columns []string,
) (record.Source, error) {
	start := time.Now()
	cur, err := r.store.Stream(ctx, lookupQuery(rt, keys, columns))
	metrics.StoreLookupDuration.WithLabelValues(rt.Table, "lazy").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w: %w", rt.Name, domain.ErrStoreUnavailable, err)
	}
	return &cursor{rows: cur, keyField: rt.KeyField}, nil
}

// cursor yields records from a row cursor.
type cursor struct {
	rows     db.RowCursor
	keyField string
	cur      record.Record
}

// Next advances to the next record.
func (c *cursor) Next(ctx context.Context) bool {
	if !c.rows.Next(ctx) {
		return false
	}
	c.cur = toRecord(c.rows.Row(), c.keyField)
	return true
}

// Record returns the current record.
func (c *cursor) Record() record.Record { return c.cur }

// Err returns the first iteration error.
func (c *cursor) Err() error { return c.rows.Err() }

// Close releases the underlying cursor.
func (c *cursor) Close() { c.rows.Close() }

func lookupQuery(rt *record.Type, keys, columns []string) *db.LookupQuery {
	return &db.LookupQuery{
		Table:           rt.Table,
		KeyField:        rt.KeyField,
		Keys:            keys,
		Columns:         columns,
		WithTrashed:     rt.SoftDeletes,
		SoftDeleteField: rt.SoftDeleteField,
	}
}

func toRecord(row db.Row, keyField string) record.Record {
	return record.Record{Key: row.Key(keyField), Fields: row}
}
