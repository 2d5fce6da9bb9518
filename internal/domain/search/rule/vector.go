package rule

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
)

// DefaultNumCandidates is used when Vector.NumCandidates is unset.
const DefaultNumCandidates = 100

// Vector runs an approximate kNN query over an embedding of the query text.
type Vector struct {
	Embedder      domain.Embedder
	Field         string
	NumCandidates int
	Similarity    *float64
}

// Applicable reports whether the criteria has query text and an embedder is wired.
func (r *Vector) Applicable(c *criteria.Criteria) bool {
	return r.Embedder != nil && hasQuery(c)
}

// Query embeds the query text and returns a must.knn fragment.
func (r *Vector) Query(ctx context.Context, c *criteria.Criteria) (map[string]any, error) {
	res, err := r.Embedder.Embed(ctx, c.Query())
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vec := make([]any, len(res.Embedding))
	for i, v := range res.Embedding {
		vec[i] = v
	}
	n := r.NumCandidates
	if n <= 0 {
		n = DefaultNumCandidates
	}

	knn := map[string]any{
		"field":          r.Field,
		"query_vector":   vec,
		"num_candidates": n,
	}
	if r.Similarity != nil {
		knn["similarity"] = *r.Similarity
	}
	return map[string]any{"must": map[string]any{"knn": knn}}, nil
}

// Highlight returns nil; vector matches carry no fragments.
func (r *Vector) Highlight(*criteria.Criteria) map[string]any { return nil }
