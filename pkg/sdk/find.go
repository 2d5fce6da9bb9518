package searchbridge

import (
	"context"
	"fmt"
)

// Hit is a typed search result.
type Hit[T any] struct {
	Item      T
	Key       string
	Score     float64
	Highlight Highlight
}

// Find searches with crit and decodes every mapped record into T.
// It returns the engine total alongside the hits.
func Find[T any](ctx context.Context, c *Client, crit *Criteria) ([]Hit[T], int64, error) {
	res, err := c.Get(ctx, crit)
	if err != nil {
		return nil, 0, err
	}
	hits, err := decodeAll[T](res.Records)
	if err != nil {
		return nil, 0, err
	}
	return hits, res.Total, nil
}

// FindPage returns one page of typed results and the number of the last page.
func FindPage[T any](ctx context.Context, c *Client, crit *Criteria, perPage, page int) ([]Hit[T], int, error) {
	p, err := c.Paginate(ctx, crit, perPage, page)
	if err != nil {
		return nil, 0, err
	}
	hits, err := decodeAll[T](p.Records)
	if err != nil {
		return nil, 0, err
	}
	return hits, p.LastPage(), nil
}

func decodeAll[T any](recs []Mapped) ([]Hit[T], error) {
	hits := make([]Hit[T], 0, len(recs))
	for _, r := range recs {
		item, err := Decode[T](r.Record)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.Key, err)
		}
		hits = append(hits, Hit[T]{Item: item, Key: r.Key, Score: r.Score, Highlight: r.Highlight})
	}
	return hits, nil
}
