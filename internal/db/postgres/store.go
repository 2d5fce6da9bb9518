// Package postgres implements db.RecordStore over PostgreSQL tables via pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/searchbridge/internal/db"
)

var _ db.RecordStore = (*Store)(nil)

// querier is the subset of *pgxpool.Pool the store needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Config holds connection parameters for a Postgres store.
type Config struct {
	DSN      string
	MaxConns int
	MinConns int
}

// Store reads records from tables keyed by a single column.
type Store struct {
	pool querier
}

// NewStore opens a connection pool.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns) //nolint:gosec // small config value
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns) //nolint:gosec // small config value
	}
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
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

// Lookup selects all matching rows in one query.
func (s *Store) Lookup(ctx context.Context, q *db.LookupQuery) ([]db.Row, error) {
	if len(q.Keys) == 0 {
		return nil, nil
	}
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []db.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return out, nil
}

// Stream runs the lookup query and iterates the result set on demand.
func (s *Store) Stream(ctx context.Context, q *db.LookupQuery) (db.RowCursor, error) {
	if len(q.Keys) == 0 {
		return &cursor{}, nil
	}
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	return &cursor{rows: rows}, nil
}

func (s *Store) query(ctx context.Context, q *db.LookupQuery) (pgx.Rows, error) {
	sql, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, q.Keys)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return rows, nil
}

// buildSelect renders the lookup statement. Keys are compared as text so
// integer and uuid keys match the string ids carried by engine hits.
func buildSelect(q *db.LookupQuery) (string, error) {
	if q.Table == "" || q.KeyField == "" {
		return "", fmt.Errorf("%w: table and key field are required", db.ErrInvalidName)
	}
	table := pgx.Identifier(strings.Split(q.Table, ".")).Sanitize()
	key := pgx.Identifier{q.KeyField}.Sanitize()

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.AllColumns() {
		b.WriteString("*")
	} else {
		b.WriteString(key)
		for _, c := range q.Columns {
			if c == q.KeyField {
				continue
			}
			b.WriteString(", ")
			b.WriteString(pgx.Identifier{c}.Sanitize())
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE ")
	b.WriteString(key)
	b.WriteString("::text = ANY($1)")
	if q.ExcludesTrashed() {
		b.WriteString(" AND ")
		b.WriteString(pgx.Identifier{q.SoftDeleteField}.Sanitize())
		b.WriteString(" IS NULL")
	}
	return b.String(), nil
}

func scanRow(rows pgx.Rows) (db.Row, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	fields := rows.FieldDescriptions()
	row := make(db.Row, len(fields))
	for i, fd := range fields {
		if i < len(values) {
			row[fd.Name] = values[i]
		}
	}
	return row, nil
}

type cursor struct {
	rows pgx.Rows
	cur  db.Row
	err  error
}

func (c *cursor) Next(_ context.Context) bool {
	if c.rows == nil || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = &db.Error{Op: db.OpScan, Err: err}
		}
		return false
	}
	row, err := scanRow(c.rows)
	if err != nil {
		c.err = err
		return false
	}
	c.cur = row
	return true
}

func (c *cursor) Row() db.Row { return c.cur }

func (c *cursor) Err() error { return c.err }

func (c *cursor) Close() {
	if c.rows != nil {
		c.rows.Close()
	}
}
