package chi

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeUnknownType            ErrorCode = "unknown_type"
	CodeNotFound               ErrorCode = "not_found"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEngineUnavailable      ErrorCode = "engine_unavailable"
	CodeStoreUnavailable       ErrorCode = "store_unavailable"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeEmbeddingQuota         ErrorCode = "embedding_quota_exceeded"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of the search and count endpoints.
type SearchRequest struct {
	Query              string         `json:"query"`
	Filters            []FilterClause `json:"filters,omitempty"`
	Scopes             []ScopeCall    `json:"scopes,omitempty"`
	Sort               []SortClause   `json:"sort,omitempty"`
	Select             []string       `json:"select,omitempty"`
	Collapse           string         `json:"collapse,omitempty"`
	MinimumShouldMatch string         `json:"minimum_should_match,omitempty"`
	Aggregations       map[string]any `json:"aggregations,omitempty"`

	Page    int  `json:"page,omitempty"`
	PerPage int  `json:"per_page,omitempty"`
	From    *int `json:"from,omitempty"`
	Size    *int `json:"size,omitempty"`

	Highlight *bool `json:"highlight,omitempty"`
	Explain   bool  `json:"explain,omitempty"`
	Profile   bool  `json:"profile,omitempty"`
}

// FilterClause is one structured filter. Exactly one of Value, Values, Range or Exists is set.
type FilterClause struct {
	Field    string       `json:"field"`
	Operator string       `json:"operator,omitempty"` // must|should|must_not, or and|or|not
	Value    any          `json:"value,omitempty"`
	Values   []any        `json:"values,omitempty"`
	Range    *RangeClause `json:"range,omitempty"`
	Exists   bool         `json:"exists,omitempty"`
}

// RangeClause bounds a numeric field.
type RangeClause struct {
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// ScopeCall applies a named scope.
type ScopeCall struct {
	Name string `json:"name"`
	Args []any  `json:"args,omitempty"`
}

// SortClause orders results by one field.
type SortClause struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"`
}

// SearchResponse lists reconciled records in engine order.
type SearchResponse struct {
	Total        int64          `json:"total"`
	Took         int64          `json:"took_ms"`
	Page         int            `json:"page,omitempty"`
	PerPage      int            `json:"per_page,omitempty"`
	LastPage     int            `json:"last_page,omitempty"`
	Items        []SearchItem   `json:"items"`
	Aggregations map[string]any `json:"aggregations,omitempty"`
	Profile      map[string]any `json:"profile,omitempty"`
}

// SearchItem is one reconciled record.
type SearchItem struct {
	Key       string              `json:"key"`
	Score     float64             `json:"score"`
	Fields    map[string]any      `json:"fields"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// CountResponse is the body of the count endpoint.
type CountResponse struct {
	Count int64 `json:"count"`
}

// RawResponse is the engine answer to a verbatim query, without reconciliation.
type RawResponse struct {
	Total        int64          `json:"total"`
	Took         int64          `json:"took_ms"`
	Hits         []RawHit       `json:"hits"`
	Aggregations map[string]any `json:"aggregations,omitempty"`
}

// RawHit is one engine hit.
type RawHit struct {
	ID        string              `json:"id"`
	Key       string              `json:"key"`
	Index     string              `json:"index"`
	Score     float64             `json:"score"`
	Source    map[string]any      `json:"source,omitempty"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// ScopesResponse lists the scopes of a record type.
type ScopesResponse struct {
	Type   string   `json:"type"`
	Scopes []string `json:"scopes"`
}

// TypesResponse lists the registered record types.
type TypesResponse struct {
	Types []string `json:"types"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
