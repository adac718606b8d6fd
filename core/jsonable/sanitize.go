// Package jsonable turns arbitrary Go values into trees made only of
// JSON-native shapes: map[string]any, []any, strings, numbers, bools and nil.
package jsonable

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/artpar/schemata/core/types"
)

// DefaultNoneKey replaces nil map keys.
const DefaultNoneKey = "null"

// maxDepth bounds recursion; deeper values are rendered as text.
const maxDepth = 64

// Dicter is implemented by values that know how to render themselves as a mapping.
type Dicter interface {
	ToDict(keepNone bool) map[string]any
}

// Options tunes Sanitize.
type Options struct {
	// KeepNone keeps nil values in slices and maps.
	KeepNone bool

	// NoneKey replaces nil map keys (DefaultNoneKey when empty).
	NoneKey string

	// KeepDates leaves time.Time values untouched instead of rendering them as text.
	KeepDates bool

	// KeepUnknown leaves values with no JSON shape untouched instead of stringifying them.
	KeepUnknown bool

	// Expand renders values that don't implement Dicter as a mapping,
	// e.g. pointers to described structs.
	Expand func(v any) (map[string]any, bool)
}

// Sanitize returns a JSON-native rendition of v. It never panics.
func Sanitize(v any, opts Options) (result any) {
	if opts.NoneKey == "" {
		opts.NoneKey = DefaultNoneKey
	}

	defer func() {
		if r := recover(); r != nil {
			result = fallback(v, opts)
		}
	}()

	return sanitize(v, opts, 0)
}

// FormatTime renders t as "2006-01-02" when it sits exactly on a UTC
// midnight, as RFC 3339 otherwise.
func FormatTime(t time.Time) string {
	_, offset := t.Zone()
	if offset == 0 && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

func sanitize(v any, opts Options, depth int) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil
		}
	}

	if depth > maxDepth {
		return fallback(v, opts)
	}

	if d, ok := v.(Dicter); ok {
		return sanitize(d.ToDict(opts.KeepNone), opts, depth+1)
	}
	if opts.Expand != nil {
		if m, ok := opts.Expand(v); ok {
			return sanitize(m, opts, depth+1)
		}
	}

	switch x := v.(type) {
	case string, bool, float64, int64, int, json.Number:
		return v
	case []byte:
		return string(x)
	case time.Time:
		if opts.KeepDates {
			return x
		}
		return FormatTime(x)
	case encoding.TextMarshaler:
		if text, err := x.MarshalText(); err == nil {
			return string(text)
		}
		return fallback(v, opts)
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return sanitize(rv.Elem().Interface(), opts, depth+1)
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice, reflect.Array:
		return sanitizeList(rv, opts, depth)
	case reflect.Map:
		if types.IsSet(rv.Type()) {
			items, _ := types.Elements(v)
			return sanitizeItems(items, opts, depth)
		}
		return sanitizeMap(rv, opts, depth)
	}

	return fallback(v, opts)
}

func sanitizeList(rv reflect.Value, opts Options, depth int) []any {
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return sanitizeItems(items, opts, depth)
}

func sanitizeItems(items []any, opts Options, depth int) []any {
	result := make([]any, 0, len(items))
	for _, item := range items {
		s := sanitize(item, opts, depth+1)
		if s == nil && !opts.KeepNone {
			continue
		}
		result = append(result, s)
	}
	return result
}

func sanitizeMap(rv reflect.Value, opts Options, depth int) map[string]any {
	result := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		value := sanitize(iter.Value().Interface(), opts, depth+1)
		if value == nil && !opts.KeepNone {
			continue
		}
		result[mapKey(iter.Key(), opts, depth)] = value
	}
	return result
}

func mapKey(k reflect.Value, opts Options, depth int) string {
	if k.Kind() == reflect.String {
		return k.String()
	}

	key := sanitize(k.Interface(), opts, depth+1)
	if key == nil {
		return opts.NoneKey
	}
	if s, ok := key.(string); ok {
		return s
	}
	return types.Stringified(key)
}

func fallback(v any, opts Options) any {
	if opts.KeepUnknown {
		return v
	}
	return text(v)
}

// text is types.Stringified guarded against misbehaving String methods.
func text(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("<%T>", v)
		}
	}()
	return types.Stringified(v)
}
