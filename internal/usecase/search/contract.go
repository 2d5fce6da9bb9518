package search

import (
	"context"

	"github.com/kailas-cloud/searchbridge/internal/domain/record"
)

// RecordReader loads persisted records for engine hits.
type RecordReader interface {
	// FetchByKeys returns the records with the given keys, indexed by key.
	FetchByKeys(ctx context.Context, rt *record.Type, keys, columns []string) (map[string]record.Record, error)
	// StreamByKeys returns a cursor over the same records.
	StreamByKeys(ctx context.Context, rt *record.Type, keys, columns []string) (record.Source, error)
}
