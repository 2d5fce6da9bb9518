package elastic

import "github.com/kailas-cloud/searchbridge/internal/domain/search/engine"

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]any `json:"aggregations"`
	Profile      map[string]any `json:"profile"`
}

type searchHit struct {
	ID          string              `json:"_id"`
	Index       string              `json:"_index"`
	Score       *float64            `json:"_score"`
	Source      map[string]any      `json:"_source"`
	Highlight   map[string][]string `json:"highlight"`
	Explanation map[string]any      `json:"_explanation"`
}

func (r *searchResponse) toEngine() *engine.Response {
	out := &engine.Response{
		Total:        r.Hits.Total.Value,
		Took:         r.Took,
		Aggregations: r.Aggregations,
		Profile:      r.Profile,
		Hits:         make([]engine.Hit, len(r.Hits.Hits)),
	}
	for i, h := range r.Hits.Hits {
		hit := engine.Hit{
			ID:          h.ID,
			Index:       h.Index,
			Source:      h.Source,
			Highlight:   h.Highlight,
			Explanation: h.Explanation,
		}
		// Sorted queries return a null score.
		if h.Score != nil {
			hit.Score = *h.Score
		}
		out.Hits[i] = hit
	}
	return out
}
