// Package payload builds nested engine query documents addressed by dot-separated paths.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrInvalidPath signals that a path crosses a value that is not a mapping.
var ErrInvalidPath = errors.New("invalid payload path")

// PathError reports the path being written and the segment that holds a scalar.
type PathError struct {
	Path    string
	Segment string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %q: segment %q is not a mapping", ErrInvalidPath.Error(), e.Path, e.Segment)
}

func (e *PathError) Unwrap() error { return ErrInvalidPath }

// Payload is a query document under construction.
// Setters are chainable; the first path error is kept and reported by Err.
type Payload struct {
	doc map[string]any
	err error
}

// New creates an empty payload.
func New() *Payload {
	return &Payload{doc: make(map[string]any)}
}

// FromMap creates a payload holding a deep copy of m.
func FromMap(m map[string]any) *Payload {
	p := New()
	for k, v := range m {
		p.doc[k] = clone(v)
	}
	return p
}

// SetIfNotEmpty writes v at path unless v is nil, zero, false, "" or an empty collection.
// A slice written over an existing slice is appended to it.
func (p *Payload) SetIfNotEmpty(path string, v any) *Payload {
	if IsEmpty(v) {
		return p
	}
	p.set(path, v)
	return p
}

// SetIfNotNull writes v at path unless v is nil.
func (p *Payload) SetIfNotNull(path string, v any) *Payload {
	if isNil(v) {
		return p
	}
	p.set(path, v)
	return p
}

// Get returns the value at path, or def when any segment is missing.
func (p *Payload) Get(path string, def any) any {
	var node any = p.doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return def
		}
		if node, ok = m[seg]; !ok {
			return def
		}
	}
	return node
}

// Has reports whether a value exists at path.
func (p *Payload) Has(path string) bool {
	return p.Get(path, missing{}) != missing{}
}

// Map returns the whole document. The map is owned by the payload.
func (p *Payload) Map() map[string]any { return p.doc }

// Err returns the first error recorded by a setter.
func (p *Payload) Err() error { return p.err }

// MarshalJSON encodes the document.
func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.doc) //nolint:wrapcheck // plain encoding
}

type missing struct{}

func (p *Payload) set(path string, v any) {
	if p.err != nil {
		return
	}
	segs := strings.Split(path, ".")
	node := p.doc
	for i, seg := range segs[:len(segs)-1] {
		next, ok := node[seg]
		if !ok || next == nil {
			m := make(map[string]any)
			node[seg] = m
			node = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			p.err = &PathError{Path: path, Segment: strings.Join(segs[:i+1], ".")}
			return
		}
		node = m
	}

	last := segs[len(segs)-1]
	v = clone(v)
	if prev, ok := node[last].([]any); ok {
		if next, ok := v.([]any); ok {
			node[last] = append(prev, next...)
			return
		}
	}
	node[last] = v
}

// IsEmpty reports whether SetIfNotEmpty would skip v.
func IsEmpty(v any) bool {
	if isNil(v) {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	default:
		return false
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// clone deep-copies maps and slices into map[string]any and []any.
// Byte slices and non-collection values are returned unchanged.
func clone(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	case []byte, json.RawMessage:
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = clone(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = clone(iter.Value().Interface())
		}
		return out
	default:
		return v
	}
}
