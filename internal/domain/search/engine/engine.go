// Package engine describes the search engine boundary: the client contract, execution options and responses.
package engine

import (
	"context"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/payload"
)

// Options toggle optional engine features for one execution.
type Options struct {
	Highlight bool
	Explain   bool
	Profile   bool
}

// DefaultOptions returns options with highlighting on.
func DefaultOptions() Options {
	return Options{Highlight: true}
}

// Client executes query documents against an index.
type Client interface {
	Search(ctx context.Context, index string, body map[string]any) (*Response, error)
	Count(ctx context.Context, index string, body map[string]any) (int64, error)
}

// RawFunc bypasses compilation and talks to the engine directly.
type RawFunc func(ctx context.Context, client Client, query string, opts Options) (*Response, error)

// Hit is a single engine match.
type Hit struct {
	ID          string
	Index       string
	Score       float64
	Source      map[string]any
	Highlight   map[string][]string
	Explanation map[string]any
}

// Response is the engine answer for one query document.
type Response struct {
	Total        int64
	Took         int64
	Hits         []Hit
	Aggregations map[string]any
	Profile      map[string]any

	// Payload is the query document that produced this response, when known.
	Payload *payload.Payload
}

// TotalHits returns the total, treating a nil response as zero.
func (r *Response) TotalHits() int64 {
	if r == nil {
		return 0
	}
	return r.Total
}

// Empty reports whether the response carries no matches.
func (r *Response) Empty() bool { return r.TotalHits() == 0 }

// HitIDs returns the engine ids of the hits in order.
func (r *Response) HitIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}
