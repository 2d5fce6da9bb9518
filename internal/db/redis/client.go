package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/searchbridge/internal/db"
)

// Compile-time checks.
var (
	_ db.RecordStore  = (*Store)(nil)
	_ db.KVStore      = (*Store)(nil)
	_ db.CounterStore = (*Store)(nil)
)

// DefaultBatchSize is the number of keys fetched per round-trip by Stream.
const DefaultBatchSize = 100

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// KeyPrefix is prepended to "<table>:<key>" to form hash keys.
	KeyPrefix string
	BatchSize int
}

// Store implements db.RecordStore over Redis hashes via rueidis.
// A record of table t with key k lives in the hash "<prefix><t>:<k>".
type Store struct {
	client    rueidis.Client
	prefix    string
	batchSize int
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, cfg.KeyPrefix, cfg.BatchSize), nil
}

func newStore(client rueidis.Client, prefix string, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{client: client, prefix: prefix, batchSize: batchSize}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) recordKey(table, key string) string {
	var b strings.Builder
	b.Grow(len(s.prefix) + len(table) + len(key) + 1)
	b.WriteString(s.prefix)
	b.WriteString(table)
	b.WriteByte(':')
	b.WriteString(key)
	return b.String()
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
