package searchbridge

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Record store drivers.
const (
	driverRedis    = "redis"
	driverPostgres = "postgres"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string
	addrs    []string
	password string
	dsn      string

	esAddrs    []string
	esUsername string
	esPassword string
	esAPIKey   string
	esCloudID  string
	rps        float64
	burst      int

	embedder  Embedder
	parallel  int
	highlight bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{highlight: true}
}

// WithRedis reads records from Redis hashes.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPostgres reads records from Postgres tables.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverPostgres
		c.dsn = dsn
	})
}

// WithElasticsearch sets the cluster node addresses.
func WithElasticsearch(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esAddrs = append([]string(nil), addrs...)
	})
}

// WithElasticCloud connects to an Elastic Cloud deployment.
func WithElasticCloud(cloudID, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esCloudID = cloudID
		c.esAPIKey = apiKey
	})
}

// WithElasticBasicAuth sets cluster credentials.
func WithElasticBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esUsername = username
		c.esPassword = password
	})
}

// WithElasticAPIKey authenticates with an API key.
func WithElasticAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esAPIKey = key
	})
}

// WithRateLimit throttles engine requests. Zero rps disables throttling (default).
func WithRateLimit(rps float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rps = rps
		c.burst = burst
	})
}

// WithEmbedder sets the query embedding provider used by VectorRule.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithParallelRules runs rule payloads concurrently, at most n at a time.
// Default: sequential, stopping at the first rule with hits.
func WithParallelRules(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.parallel = n
	})
}

// WithoutHighlight turns off highlighting for Get, Search and Cursor.
func WithoutHighlight() Option {
	return optionFunc(func(c *clientConfig) {
		c.highlight = false
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
