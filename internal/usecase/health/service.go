package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds each component check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	checks  map[string]func(context.Context) error
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Service. embedding can be nil.
func New(store, engine Pinger, embedding EmbeddingChecker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	checks := map[string]func(context.Context) error{
		"database":      store.Ping,
		"elasticsearch": engine.Ping,
	}
	if embedding != nil {
		checks["embedding"] = embedding.HealthCheck
	}
	return &Service{checks: checks, timeout: DefaultTimeout, logger: logger}
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var mu sync.Mutex
	results := make(map[string]CheckResult, len(s.checks))

	var g errgroup.Group
	for name, check := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			result := CheckOK
			if err := check(cctx); err != nil {
				s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
				result = CheckError
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, v := range results {
		if v == CheckError {
			failed++
		}
	}
	status := Healthy
	switch {
	case failed == len(results) && failed > 0:
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: results}
}
