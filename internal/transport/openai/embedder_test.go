package openai

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/searchbridge/internal/domain"
)

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// embeddingResponse mirrors the embeddings API response.
type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// vectorServer answers every embeddings request with vec.
func vectorServer(t *testing.T, vec []float32, tokens int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		resp := embeddingResponse{Object: "list", Model: "test-model"}
		resp.Data = []embeddingData{{Object: "embedding", Embedding: vec}}
		resp.Usage.PromptTokens = tokens
		resp.Usage.TotalTokens = tokens

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_Embed(t *testing.T) {
	want := []float32{0.1, 0.2, 0.3, 0.4}
	srv := vectorServer(t, want, 10)

	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model", Dimensions: 4, Provider: "test"})

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(result.Embedding) != len(want) {
		t.Fatalf("expected %d dimensions, got %d", len(want), len(result.Embedding))
	}
	for i, v := range result.Embedding {
		if v != want[i] {
			t.Errorf("vec[%d] = %f, expected %f", i, v, want[i])
		}
	}
	if result.PromptTokens != 10 || result.TotalTokens != 10 {
		t.Errorf("usage = %d/%d, want 10/10", result.PromptTokens, result.TotalTokens)
	}
}

func TestEmbedder_Normalize(t *testing.T) {
	srv := vectorServer(t, []float32{3, 4}, 2)
	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model", Normalize: true})

	result, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if math.Abs(float64(result.Embedding[0])-0.6) > 1e-6 || math.Abs(float64(result.Embedding[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v, want [0.6 0.8]", result.Embedding)
	}
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv := vectorServer(t, []float32{0.1, 0.2}, 2)
	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model", Dimensions: 3})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse{Object: "list", Model: "test-model"})
	}))
	defer srv.Close()
	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})

	if _, err := emb.Embed(context.Background(), "hello"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        any
		rateLimited bool
	}{
		{
			name:        "throttled",
			status:      http.StatusTooManyRequests,
			body:        map[string]any{"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"}},
			rateLimited: true,
		},
		{
			name:   "detail body",
			status: http.StatusBadRequest,
			body:   map[string]any{"detail": "input too long"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(tc.body)
			}))
			defer srv.Close()

			emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model", Provider: "test"})

			_, err := emb.Embed(context.Background(), "hello")
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
			}
			if got := errors.Is(err, domain.ErrRateLimited); got != tc.rateLimited {
				t.Errorf("rate limited = %v, want %v (%v)", got, tc.rateLimited, err)
			}
		})
	}
}

func TestUnit_ZeroVector(t *testing.T) {
	v := []float32{0, 0}
	if got := unit(v); got[0] != 0 || got[1] != 0 {
		t.Errorf("unit(zero) = %v", got)
	}
}
