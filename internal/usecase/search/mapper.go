package search

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchbridge/internal/domain/record"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/metrics"
)

// Mapper reconciles engine hits with persisted records, preserving hit order.
// Hits without a record are dropped.
type Mapper struct {
	records RecordReader
	logger  *zap.Logger
}

// NewMapper creates a mapper.
func NewMapper(records RecordReader, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{records: records, logger: logger}
}

// Map fetches all records in one batch and returns them in hit order.
func (m *Mapper) Map(ctx context.Context, rt *record.Type, resp *engine.Response) ([]record.Mapped, error) {
	if resp.TotalHits() == 0 || len(resp.Hits) == 0 {
		return []record.Mapped{}, nil
	}

	keys := hitKeys(resp.Hits)
	recs, err := m.records.FetchByKeys(ctx, rt, keys, projection(rt, resp))
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	out := make([]record.Mapped, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		key := record.KeyFromHitID(h.ID)
		rec, ok := recs[key]
		if !ok {
			m.drop(rt, h)
			continue
		}
		out = append(out, enrich(rec, h))
	}
	return out, nil
}

// Stream returns a cursor that pulls records from the store while iterating hits.
// It yields the same sequence as Map.
func (m *Mapper) Stream(ctx context.Context, rt *record.Type, resp *engine.Response) (*MappedCursor, error) {
	cur := &MappedCursor{mapper: m, rt: rt, buffered: make(map[string]record.Record)}
	if resp.TotalHits() == 0 || len(resp.Hits) == 0 {
		return cur, nil
	}

	src, err := m.records.StreamByKeys(ctx, rt, hitKeys(resp.Hits), projection(rt, resp))
	if err != nil {
		return nil, fmt.Errorf("stream records: %w", err)
	}
	cur.hits = resp.Hits
	cur.src = src
	return cur, nil
}

func (m *Mapper) drop(rt *record.Type, h engine.Hit) {
	metrics.DroppedHitsTotal.WithLabelValues(rt.Name).Inc()
	m.logger.Debug("Dropping hit without record",
		zap.String("type", rt.Name), zap.String("hit_id", h.ID))
}

// MappedCursor yields mapped records in hit order.
type MappedCursor struct {
	mapper    *Mapper
	rt        *record.Type
	hits      []engine.Hit
	pos       int
	src       record.Source
	buffered  map[string]record.Record
	exhausted bool
	cur       record.Mapped
	err       error
}

var _ record.Cursor = (*MappedCursor)(nil)

// Next advances to the next hit that has a record.
func (c *MappedCursor) Next(ctx context.Context) bool {
	for c.err == nil && c.pos < len(c.hits) {
		h := c.hits[c.pos]
		c.pos++

		rec, ok := c.lookup(ctx, record.KeyFromHitID(h.ID))
		if c.err != nil {
			return false
		}
		if !ok {
			c.mapper.drop(c.rt, h)
			continue
		}
		c.cur = enrich(rec, h)
		return true
	}
	return false
}

// lookup pulls from the source until key is buffered or the source ends.
func (c *MappedCursor) lookup(ctx context.Context, key string) (record.Record, bool) {
	if rec, ok := c.buffered[key]; ok {
		return rec, true
	}
	for !c.exhausted {
		if !c.src.Next(ctx) {
			c.exhausted = true
			if err := c.src.Err(); err != nil {
				c.err = fmt.Errorf("stream records: %w", err)
			}
			break
		}
		rec := c.src.Record()
		c.buffered[rec.Key] = rec
		if rec.Key == key {
			return rec, true
		}
	}
	return record.Record{}, false
}

// Record returns the current mapped record.
func (c *MappedCursor) Record() record.Mapped { return c.cur }

// Err returns the first store error.
func (c *MappedCursor) Err() error { return c.err }

// Close releases the record source.
func (c *MappedCursor) Close() {
	if c.src != nil {
		c.src.Close()
	}
}

// Collect drains a cursor.
func Collect(ctx context.Context, cur record.Cursor) ([]record.Mapped, error) {
	defer cur.Close()
	out := []record.Mapped{}
	for cur.Next(ctx) {
		out = append(out, cur.Record())
	}
	if err := cur.Err(); err != nil {
		return nil, err //nolint:wrapcheck // cursor errors are already wrapped
	}
	return out, nil
}

// hitKeys returns the distinct persisted keys of hits in first-seen order.
func hitKeys(hits []engine.Hit) []string {
	keys := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		k := record.KeyFromHitID(h.ID)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// projection returns the winning payload's _source fields plus the key field,
// or nil to select everything.
func projection(rt *record.Type, resp *engine.Response) []string {
	if resp.Payload == nil {
		return nil
	}
	src, ok := resp.Payload.Get("_source", nil).([]any)
	if !ok || len(src) == 0 {
		return nil
	}
	cols := make([]string, 0, len(src)+1)
	for _, v := range src {
		if s, ok := v.(string); ok {
			cols = append(cols, s)
		}
	}
	if !slices.Contains(cols, rt.KeyField) {
		cols = append(cols, rt.KeyField)
	}
	return cols
}

func enrich(rec record.Record, h engine.Hit) record.Mapped {
	m := record.Mapped{Record: rec, Score: h.Score}
	if len(h.Highlight) > 0 {
		m.Highlight = record.Highlight(h.Highlight)
	}
	return m
}
