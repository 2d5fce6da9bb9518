package db

import (
	"context"
	"time"
)

// RecordStore is the persistent record store facade.
type RecordStore interface {
	Pinger
	RecordReader
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RecordReader fetches records by key.
type RecordReader interface {
	// Lookup returns the rows for q.Keys in one batch. Missing keys are absent
	// from the result; order is unspecified.
	Lookup(ctx context.Context, q *LookupQuery) ([]Row, error)
	// Stream returns a cursor over the same rows Lookup would return.
	Stream(ctx context.Context, q *LookupQuery) (RowCursor, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CounterStore keeps integer counters.
type CounterStore interface {
	// IncrBy adds delta to key and returns the new value. A positive ttl sets
	// the key's expiry when it is first created.
	IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// LookupQuery selects records of one table by key.
type LookupQuery struct {
	Table    string
	KeyField string
	Keys     []string
	// Columns projects the returned fields. Empty or "*" selects all.
	Columns []string
	// WithTrashed includes soft-deleted rows.
	WithTrashed bool
	// SoftDeleteField names the deletion marker. Empty disables soft-delete filtering.
	SoftDeleteField string
}

// AllColumns reports whether the query selects every field.
func (q *LookupQuery) AllColumns() bool {
	if len(q.Columns) == 0 {
		return true
	}
	for _, c := range q.Columns {
		if c == "*" {
			return true
		}
	}
	return false
}

// ExcludesTrashed reports whether soft-deleted rows must be filtered out.
func (q *LookupQuery) ExcludesTrashed() bool {
	return q.SoftDeleteField != "" && !q.WithTrashed
}

// Row is one record as column name to value.
type Row map[string]any

// Key returns the row key as a string.
func (r Row) Key(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmtAny(v)
	}
}

// RowCursor iterates rows lazily. Close must be called when done.
type RowCursor interface {
	Next(ctx context.Context) bool
	Row() Row
	Err() error
	Close()
}
