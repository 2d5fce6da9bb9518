package health

import "context"

// Pinger checks a backend's availability. The record store and the search
// engine both satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
