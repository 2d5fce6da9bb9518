// Package scope installs named criteria-builder extensions per record type.
package scope

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kailas-cloud/searchbridge/internal/domain/search/criteria"
	"github.com/kailas-cloud/searchbridge/internal/domain/search/filter"
)

// ErrUnknownScope signals a scope name not registered for the record type.
var ErrUnknownScope = errors.New("unknown scope")

// Func mutates a live builder. Extra arguments come from the Scope call site.
type Func func(b *criteria.Builder, args ...any)

// Extension is a named scope.
type Extension struct {
	Name string
	Fn   Func
}

// Registry maps record types to their installed scopes. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	scopes map[string]map[string]Func
	order  map[string][]string
}

var _ criteria.ScopeInvoker = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		scopes: make(map[string]map[string]Func),
		order:  make(map[string][]string),
	}
}

// Register installs exts for recordType and returns how many were new.
// Extensions with a nil Fn or an already registered name are skipped.
func (r *Registry) Register(recordType string, exts ...Extension) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.scopes[recordType]
	if !ok {
		byName = make(map[string]Func)
		r.scopes[recordType] = byName
	}

	installed := 0
	for _, ext := range exts {
		if ext.Fn == nil || ext.Name == "" {
			continue
		}
		if _, exists := byName[ext.Name]; exists {
			continue
		}
		byName[ext.Name] = ext.Fn
		r.order[recordType] = append(r.order[recordType], ext.Name)
		installed++
	}
	return installed
}

// Invoke runs the named scope against b.
func (r *Registry) Invoke(recordType, name string, b *criteria.Builder, args ...any) error {
	r.mu.RLock()
	fn, ok := r.scopes[recordType][name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownScope, recordType, name)
	}
	fn(b, args...)
	return nil
}

// Has reports whether name is registered for recordType.
func (r *Registry) Has(recordType, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scopes[recordType][name]
	return ok
}

// Names lists the scopes of recordType in registration order.
func (r *Registry) Names(recordType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order[recordType]...)
}

// Filter returns a scope adding a term filter on field to the op group.
// A nil fixed value takes the first call argument instead; a call without
// one leaves the builder untouched.
func Filter(op filter.Operator, field string, fixed any) Func {
	return func(b *criteria.Builder, args ...any) {
		value := fixed
		if value == nil {
			if len(args) == 0 {
				return
			}
			value = args[0]
		}
		if values, ok := value.([]any); ok {
			b.Filter(op, map[string]any{"terms": map[string]any{field: values}})
			return
		}
		b.Term(op, field, value)
	}
}
