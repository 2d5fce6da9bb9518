// Package record describes searchable record types and the records reconciled from engine hits.
package record

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/scope"
)

// Defaults for optional Type fields.
const (
	DefaultKeyField        = "id"
	DefaultSoftDeleteField = "deleted_at"
)

// ErrInvalidType signals an incomplete record type definition.
var ErrInvalidType = errors.New("invalid record type")

// Type is a searchable record type: where its documents are indexed and
// where its records live.
type Type struct {
	Name            string
	Index           string
	Table           string
	KeyField        string
	SoftDeletes     bool
	SoftDeleteField string
	Rules           []criteria.Rule
	Scopes          []scope.Extension
}

// WithDefaults fills unset optional fields.
func (t Type) WithDefaults() Type {
	if t.Index == "" {
		t.Index = t.Name
	}
	if t.Table == "" {
		t.Table = t.Name
	}
	if t.KeyField == "" {
		t.KeyField = DefaultKeyField
	}
	if t.SoftDeletes && t.SoftDeleteField == "" {
		t.SoftDeleteField = DefaultSoftDeleteField
	}
	return t
}

// Validate checks required fields.
func (t Type) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidType)
	}
	if strings.ContainsAny(t.Name, " /") {
		return fmt.Errorf("%w: name %q contains spaces or slashes", ErrInvalidType, t.Name)
	}
	return nil
}

// Record is a persisted record: its key and selected fields.
type Record struct {
	Key    string
	Fields map[string]any
}

// Get returns a field value, or nil.
func (r Record) Get(field string) any { return r.Fields[field] }

// Highlight holds highlighted fragments per field.
type Highlight map[string][]string

// Fragments returns the fragments for field.
func (h Highlight) Fragments(field string) []string { return h[field] }

// String joins the fragments of field with a space.
func (h Highlight) String(field string) string { return strings.Join(h[field], " ") }

// Mapped is a persisted record enriched with its engine hit.
type Mapped struct {
	Record
	Score     float64
	Highlight Highlight
}

// KeyFromHitID extracts the persisted key from an engine id of the form
// "<prefix>_<key>". Ids without an underscore are returned unchanged.
func KeyFromHitID(id string) string {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Source iterates persisted records.
type Source interface {
	Next(ctx context.Context) bool
	Record() Record
	Err() error
	Close()
}

// Cursor iterates mapped records lazily.
type Cursor interface {
	Next(ctx context.Context) bool
	Record() Mapped
	Err() error
	Close()
}
