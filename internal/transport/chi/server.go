// Package chi serves the search API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchbridge/internal/domain"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/engine"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/payload"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
	"github.com/kailas-cloud/searchbridge/internal/logger"
	"github.com/kailas-cloud/searchbridge/internal/metrics"
	healthuc "github.com/kailas-cloud/searchbridge/internal/usecase/health"
	searchuc "github.com/kailas-cloud/searchbridge/internal/usecase/search"
)

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Config holds request limits and defaults.
type Config struct {
	APIKeys         []string
	Defaults        engine.Options
	DefaultPageSize int
	MaxPageSize     int
}

// Server exposes the search service over HTTP.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	cfg           Config
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	s := &Server{search: search, health: health, cfg: cfg, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownRecordType, http.StatusNotFound, CodeUnknownType),
		sentinelHandler(scope.ErrUnknownScope, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(criteria.ErrInvalidCriteria, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(filter.ErrInvalidFilter, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(payload.ErrInvalidPath, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests, CodeEmbeddingQuota),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrEngineUnavailable, http.StatusServiceUnavailable, CodeEngineUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
	return s
}

// Handler builds the router with its middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.cfg.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1/types", func(r chi.Router) {
		r.Get("/", s.ListTypes)
		r.Route("/{type}", func(r chi.Router) {
			r.Use(recordTypeLogger)
			r.Get("/scopes", s.ListScopes)
			r.Post("/search", s.Search)
			r.Post("/count", s.Count)
			r.Post("/raw", s.SearchRaw)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	return r
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// ListTypes handles GET /v1/types.
func (s *Server) ListTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TypesResponse{Types: s.search.Types()})
}

// ListScopes handles GET /v1/types/{type}/scopes.
func (s *Server) ListScopes(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "type")
	if _, err := s.search.Type(name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	scopes := s.search.Scopes().Names(name)
	if scopes == nil {
		scopes = []string{}
	}
	writeJSON(w, http.StatusOK, ScopesResponse{Type: name, Scopes: scopes})
}

// Search handles POST /v1/types/{type}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	req, c, ok := s.decodeCriteria(w, r)
	if !ok {
		return
	}
	page, perPage, err := pageParams(req, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	if page > 0 {
		c = c.WithPage(perPage, page)
	}

	resp, err := s.search.SearchWithOptions(r.Context(), c, options(req, s.cfg.Defaults))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	res, err := s.search.MapResponse(r.Context(), c.RecordType(), resp)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out := SearchResponse{
		Total:        res.Total,
		Took:         resp.Took,
		Items:        searchItems(res.Records),
		Aggregations: res.Aggregations,
		Profile:      resp.Profile,
	}
	if page > 0 {
		p := searchuc.Page{Result: *res, Page: page, PerPage: perPage}
		out.Page, out.PerPage, out.LastPage = page, perPage, p.LastPage()
	}
	writeJSON(w, http.StatusOK, out)
}

// Count handles POST /v1/types/{type}/count.
func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	_, c, ok := s.decodeCriteria(w, r)
	if !ok {
		return
	}
	n, err := s.search.Count(r.Context(), c)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// SearchRaw handles POST /v1/types/{type}/raw. The body is sent to the engine as is.
func (s *Server) SearchRaw(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if body == nil {
		body = map[string]any{}
	}
	resp, err := s.search.SearchRaw(r.Context(), chi.URLParam(r, "type"), body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rawResponse(resp))
}

// decodeCriteria reads a SearchRequest and builds the criteria for the route's type.
func (s *Server) decodeCriteria(w http.ResponseWriter, r *http.Request) (*SearchRequest, *criteria.Criteria, bool) {
	name := chi.URLParam(r, "type")
	if _, err := s.search.Type(name); err != nil {
		s.handleDomainError(w, r, err)
		return nil, nil, false
	}

	var req SearchRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return nil, nil, false
	}

	b, err := applyRequest(s.search.Query(name), &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return nil, nil, false
	}
	c, err := b.Build()
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, nil, false
	}
	return &req, c, true
}

// decodeBody decodes JSON into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Validation and unknown type errors carry the full message; others only the sentinel text.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if status == http.StatusBadRequest || code == CodeUnknownType {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
