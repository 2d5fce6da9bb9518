package searchbridge

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

const tagKey = "searchbridge"

// schemaMeta maps record fields to struct fields, cached per type.
type schemaMeta struct {
	typ    reflect.Type
	keyIdx int // -1 if no field carries the record key
	fields []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
}

var schemaCache sync.Map // reflect.Type → *schemaMeta

// schemaFor reflects on T and extracts searchbridge struct tag metadata.
func schemaFor[T any]() (*schemaMeta, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*schemaMeta), nil
	}
	meta, err := parseSchema(t)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(t, meta)
	return meta, nil
}

func parseSchema(t reflect.Type) (*schemaMeta, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("searchbridge: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, keyIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get(tagKey)
		if tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// applyTag processes one field tag of the form "name[,key]".
// An untagged field maps to its Go name.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	name, modifier, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}

	switch modifier {
	case "key":
		if meta.keyIdx != -1 {
			return fmt.Errorf("searchbridge: duplicate key tag on field %s", f.Name)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("searchbridge: key field %s must be a string", f.Name)
		}
		meta.keyIdx = idx
	case "":
	default:
		return fmt.Errorf("searchbridge: unknown modifier %q on field %s", modifier, f.Name)
	}
	meta.fields = append(meta.fields, fieldMapping{structIdx: idx, name: name})
	return nil
}

// Decode copies rec into a new T. Fields missing from the record keep their zero value.
func Decode[T any](rec Record) (T, error) {
	var zero T
	meta, err := schemaFor[T]()
	if err != nil {
		return zero, err
	}
	v, err := meta.fromRecord(rec)
	if err != nil {
		return zero, err
	}
	if reflect.TypeFor[T]().Kind() == reflect.Pointer {
		p := reflect.New(meta.typ)
		p.Elem().Set(v)
		return p.Interface().(T), nil
	}
	return v.Interface().(T), nil
}

func (m *schemaMeta) fromRecord(rec Record) (reflect.Value, error) {
	v := reflect.New(m.typ).Elem()
	for _, fm := range m.fields {
		raw, ok := rec.Fields[fm.name]
		if !ok || raw == nil {
			continue
		}
		if err := assign(v.Field(fm.structIdx), raw); err != nil {
			return reflect.Value{}, fmt.Errorf("searchbridge: field %s: %w", fm.name, err)
		}
	}
	if m.keyIdx != -1 {
		v.Field(m.keyIdx).SetString(rec.Key)
	}
	return v, nil
}

// assign sets dst from raw. Strings are parsed into numeric and bool fields
// since hash-backed stores return every value as a string.
func assign(dst reflect.Value, raw any) error {
	src := reflect.ValueOf(raw)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	if s, ok := raw.(string); ok {
		return parseInto(dst, s)
	}
	if b, ok := raw.([]byte); ok {
		return parseInto(dst, string(b))
	}
	if dst.Kind() == reflect.String {
		dst.SetString(fmt.Sprint(raw))
		return nil
	}
	if isNumeric(src.Kind()) && isNumeric(dst.Kind()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", raw, dst.Type())
}

func parseInto(dst reflect.Value, s string) error {
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("parse bool: %w", err)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse int: %w", err)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse uint: %w", err)
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, dst.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse float: %w", err)
		}
		dst.SetFloat(f)
	default:
		return fmt.Errorf("cannot parse string into %s", dst.Type())
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
