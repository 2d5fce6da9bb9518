// Package elastic is the Elasticsearch implementation of the search engine client.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/metrics"
)

// Config holds the cluster connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
	CloudID   string

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int

	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client talks to Elasticsearch over its REST API.
type Client struct {
	es      *elasticsearch.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ engine.Client = (*Client)(nil)

// New creates a client. No request is sent until the first call.
func New(cfg *Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		CloudID:   cfg.CloudID,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{es: es, limiter: limiter, logger: logger}, nil
}

// Search runs body against index.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) (*engine.Response, error) {
	r, err := encode(body)
	if err != nil {
		return nil, err
	}

	res, err := c.do(ctx, "search", func() (*esapi.Response, error) {
		return c.es.Search(
			c.es.Search.WithContext(ctx),
			c.es.Search.WithIndex(index),
			c.es.Search.WithBody(r),
		)
	})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return sr.toEngine(), nil
}

// Count returns the number of documents matching the query section of body.
// Other sections are not accepted by the count API and are dropped.
func (c *Client) Count(ctx context.Context, index string, body map[string]any) (int64, error) {
	countBody := map[string]any{}
	if q, ok := body["query"]; ok {
		countBody["query"] = q
	}
	r, err := encode(countBody)
	if err != nil {
		return 0, err
	}

	res, err := c.do(ctx, "count", func() (*esapi.Response, error) {
		return c.es.Count(
			c.es.Count.WithContext(ctx),
			c.es.Count.WithIndex(index),
			c.es.Count.WithBody(r),
		)
	})
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	var cr struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return cr.Count, nil
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.do(ctx, "ping", func() (*esapi.Response, error) {
		return c.es.Ping(c.es.Ping.WithContext(ctx))
	})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
	return nil
}

// do throttles, times and sends one request. Error responses are closed and
// returned as *ResponseError.
func (c *Client) do(ctx context.Context, op string, send func() (*esapi.Response, error)) (*esapi.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrRateLimited, err)
		}
	}

	start := time.Now()
	res, err := send()
	if err != nil {
		metrics.EngineRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		c.logger.Warn("Elasticsearch request failed", zap.String("operation", op), zap.Error(err))
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrEngineUnavailable, err)
	}
	if res.IsError() {
		metrics.EngineRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		defer res.Body.Close()
		return nil, fmt.Errorf("%s: %w", op, newResponseError(res))
	}
	metrics.EngineRequestDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
	return res, nil
}

func encode(body map[string]any) (io.Reader, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// ResponseError is a non-2xx answer from the cluster.
type ResponseError struct {
	Status int
	Type   string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch status %d", e.Status)
	}
	return fmt.Sprintf("elasticsearch status %d: %s: %s", e.Status, e.Type, e.Reason)
}

// Unwrap maps the status to a domain sentinel: 400 to ErrInvalidRequest,
// 404 to ErrNotFound, 429 to ErrRateLimited and 5xx to ErrEngineUnavailable.
func (e *ResponseError) Unwrap() error {
	switch {
	case e.Status == http.StatusBadRequest:
		return domain.ErrInvalidRequest
	case e.Status == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Status == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case e.Status >= http.StatusInternalServerError:
		return domain.ErrEngineUnavailable
	default:
		return nil
	}
}

func newResponseError(res *esapi.Response) *ResponseError {
	out := &ResponseError{Status: res.StatusCode}
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || len(body.Error) == 0 {
		return out
	}
	var detail struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body.Error, &detail); err != nil {
		// Some errors are plain strings.
		var s string
		if json.Unmarshal(body.Error, &s) == nil {
			out.Reason = s
		}
		return out
	}
	out.Type, out.Reason = detail.Type, detail.Reason
	return out
}
