package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
)

// Database drivers.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Rule kinds declared in type configs.
const (
	RuleQueryString = "query_string"
	RuleMultiMatch  = "multi_match"
	RuleVector      = "vector"
)

// Budget actions.
const (
	BudgetWarn   = "warn"
	BudgetReject = "reject"
)

// Config holds the searchbridge configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Elastic   ElasticConfig   `yaml:"elastic"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
	Types     []TypeConfig    `yaml:"types"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ElasticConfig holds search cluster settings.
type ElasticConfig struct {
	Addresses         []string `yaml:"addresses"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	APIKey            string   `yaml:"api_key"`
	CloudID           string   `yaml:"cloud_id"`
	RequestsPerSecond float64  `yaml:"requests_per_second"` // 0 = unthrottled
	Burst             int      `yaml:"burst"`
}

// DatabaseConfig holds record store settings.
type DatabaseConfig struct {
	Driver           string `yaml:"driver"` // redis, postgres (default: redis)
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`

	// redis
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	BatchSize int      `yaml:"batch_size"`

	// postgres
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// SearchConfig holds pipeline defaults.
type SearchConfig struct {
	Highlight       *bool `yaml:"highlight"` // default: true
	ParallelRules   int   `yaml:"parallel_rules"`
	DefaultPageSize int   `yaml:"default_page_size"`
	MaxPageSize     int   `yaml:"max_page_size"`
}

// HighlightEnabled reports whether highlighting is on by default.
func (s SearchConfig) HighlightEnabled() bool {
	return s.Highlight == nil || *s.Highlight
}

// EmbeddingConfig holds the query embedding provider used by vector rules.
type EmbeddingConfig struct {
	Provider         string       `yaml:"provider"`
	APIKey           string       `yaml:"api_key"`
	BaseURL          string       `yaml:"base_url"`
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	Normalize        bool         `yaml:"normalize"`
	Cache            CacheConfig  `yaml:"cache"`
	Budget           BudgetConfig `yaml:"budget"`
}

// Enabled reports whether an embedding model is configured.
func (e EmbeddingConfig) Enabled() bool { return e.Model != "" }

// CacheConfig holds query embedding cache settings. The cache lives in Redis.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	TTLSec  int      `yaml:"ttl_sec"`
	Addrs   []string `yaml:"addrs"` // default: database.addrs
}

// BudgetConfig caps tokens spent on query embedding. Zero limits mean unlimited.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"`
	Action            string `yaml:"action"` // "warn" (default) / "reject"
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool { return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0 }

// TypeConfig declares a record type.
type TypeConfig struct {
	Name            string        `yaml:"name"`
	Index           string        `yaml:"index"`
	Table           string        `yaml:"table"`
	KeyField        string        `yaml:"key_field"`
	SoftDeletes     bool          `yaml:"soft_deletes"`
	SoftDeleteField string        `yaml:"soft_delete_field"`
	Rules           []RuleConfig  `yaml:"rules"`
	Scopes          []ScopeConfig `yaml:"scopes"`
}

// RuleConfig declares one rule. Rules run in declared order.
type RuleConfig struct {
	Kind            string   `yaml:"kind"`
	Fields          []string `yaml:"fields"`
	HighlightFields []string `yaml:"highlight_fields"`

	// query_string
	DefaultOperator string `yaml:"default_operator"`

	// multi_match
	Type      string `yaml:"type"`
	Fuzziness string `yaml:"fuzziness"`
	Operator  string `yaml:"operator"`

	// vector
	Field         string   `yaml:"field"`
	NumCandidates int      `yaml:"num_candidates"`
	Similarity    *float64 `yaml:"similarity"`
}

// ScopeConfig declares a filter scope. Without Value the first call argument is used.
type ScopeConfig struct {
	Name     string `yaml:"name"`
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates YAML configuration.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.BatchSize <= 0 {
		c.Database.BatchSize = 100
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Cache.TTLSec <= 0 {
		c.Embedding.Cache.TTLSec = 86400
	}
	if len(c.Embedding.Cache.Addrs) == 0 {
		c.Embedding.Cache.Addrs = c.Database.Addrs
	}
	if c.Embedding.Budget.Action == "" {
		c.Embedding.Budget.Action = BudgetWarn
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Elastic.Addresses) == 0 && c.Elastic.CloudID == "" {
		return errors.New("elastic.addresses or elastic.cloud_id is required")
	}

	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required for the redis driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverPostgres, c.Database.Driver)
	}

	if c.Search.ParallelRules < 0 {
		return fmt.Errorf("search.parallel_rules must not be negative, got %d", c.Search.ParallelRules)
	}
	if c.Embedding.Cache.Enabled && len(c.Embedding.Cache.Addrs) == 0 {
		return errors.New("embedding.cache.addrs is required when the cache is enabled")
	}
	if err := c.Embedding.Budget.validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Types))
	for i, t := range c.Types {
		if t.Name == "" {
			return fmt.Errorf("types[%d].name is required", i)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("types.%s is declared twice", t.Name)
		}
		seen[t.Name] = struct{}{}
		if err := c.validateType(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateType(t TypeConfig) error {
	for i, r := range t.Rules {
		switch r.Kind {
		case RuleQueryString, RuleMultiMatch:
			if r.Kind == RuleMultiMatch && len(r.Fields) == 0 {
				return fmt.Errorf("types.%s.rules[%d]: multi_match requires fields", t.Name, i)
			}
		case RuleVector:
			if r.Field == "" {
				return fmt.Errorf("types.%s.rules[%d]: vector requires field", t.Name, i)
			}
			if !c.Embedding.Enabled() {
				return fmt.Errorf("types.%s.rules[%d]: vector rules require embedding.model", t.Name, i)
			}
		default:
			return fmt.Errorf("types.%s.rules[%d]: unknown kind %q", t.Name, i, r.Kind)
		}
	}
	for i, s := range t.Scopes {
		if s.Name == "" || s.Field == "" {
			return fmt.Errorf("types.%s.scopes[%d]: name and field are required", t.Name, i)
		}
		if _, err := filter.ParseOperator(s.Operator); err != nil {
			return fmt.Errorf("types.%s.scopes.%s: %w", t.Name, s.Name, err)
		}
	}
	return nil
}

func (b BudgetConfig) validate() error {
	if b.DailyTokenLimit < 0 || b.MonthlyTokenLimit < 0 {
		return errors.New("embedding.budget limits must not be negative")
	}
	switch b.Action {
	case "", BudgetWarn, BudgetReject:
		return nil
	default:
		return fmt.Errorf("embedding.budget.action must be %q or %q, got %q", BudgetWarn, BudgetReject, b.Action)
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
