package types

import (
	"fmt"
	"reflect"
	"sort"
)

// ListType accepts finite collections whose elements all satisfy Elem.
type ListType struct {
	base
	Elem Type
}

// List returns a list descriptor; a nil elem means Any.
func List(elem Type) *ListType {
	if elem == nil {
		elem = Any()
	}
	return &ListType{Elem: elem}
}

func (t *ListType) Problem(value any) string {
	if value == nil {
		return ""
	}

	items, ok := Elements(value)
	if !ok {
		return fmt.Sprintf("expecting list, got '%s'", Repr(value))
	}

	for _, item := range items {
		if problem := t.Elem.Problem(item); problem != "" {
			return problem
		}
	}
	return ""
}

// Converted always returns a []any. Sets come out sorted.
func (t *ListType) Converted(value any) any {
	items, ok := Elements(value)
	if !ok {
		return nil
	}

	result := make([]any, len(items))
	for i, item := range items {
		result[i] = t.Elem.Converted(item)
	}
	return result
}

func (t *ListType) Text() string   { return fmt.Sprintf("list[%s]", t.Elem.Text()) }
func (t *ListType) String() string { return t.Text() }

// DictType accepts maps whose keys satisfy Key and values satisfy Value.
type DictType struct {
	base
	Key   Type
	Value Type
}

// Dict returns a dict descriptor; nil key or value means Any.
func Dict(key, value Type) *DictType {
	if key == nil {
		key = Any()
	}
	if value == nil {
		value = Any()
	}
	return &DictType{Key: key, Value: value}
}

// Problem checks every key first, then every value, in sorted key order.
func (t *DictType) Problem(value any) string {
	if value == nil {
		return ""
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return fmt.Sprintf("expecting dict, got '%s'", Repr(value))
	}

	keys := sortedKeys(rv)
	for _, k := range keys {
		if problem := t.Key.Problem(k.Interface()); problem != "" {
			return "key: " + problem
		}
	}
	for _, k := range keys {
		if problem := t.Value.Problem(rv.MapIndex(k).Interface()); problem != "" {
			return "value: " + problem
		}
	}
	return ""
}

// Converted returns a map[string]any when every converted key is text,
// a map[any]any otherwise.
func (t *DictType) Converted(value any) any {
	if value == nil {
		return nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil
	}

	generic := make(map[any]any, rv.Len())
	textKeys := true
	iter := rv.MapRange()
	for iter.Next() {
		k := t.Key.Converted(iter.Key().Interface())
		if _, ok := k.(string); !ok {
			textKeys = false
		}
		if k != nil && !reflect.TypeOf(k).Comparable() {
			k = Stringified(k)
		}
		generic[k] = t.Value.Converted(iter.Value().Interface())
	}

	if !textKeys {
		return generic
	}
	result := make(map[string]any, len(generic))
	for k, v := range generic {
		result[k.(string)] = v
	}
	return result
}

func (t *DictType) Text() string {
	return fmt.Sprintf("dict[%s, %s]", t.Key.Text(), t.Value.Text())
}

func (t *DictType) String() string { return t.Text() }

// IsSet reports whether t is the set representation, map[K]struct{}.
func IsSet(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

// Elements returns the items of a slice, array or set.
// Set members are sorted so the result is deterministic.
func Elements(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if _, ok := value.([]byte); ok {
		return nil, false
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, true
	case reflect.Map:
		if !IsSet(rv.Type()) {
			return nil, false
		}
		items := make([]any, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			items = append(items, k.Interface())
		}
		SortValues(items)
		return items, true
	}
	return nil, false
}

// SortValues sorts values in place: numerically when all are numbers,
// by text form otherwise.
func SortValues(values []any) {
	numeric := true
	for _, v := range values {
		if !isNumber(v) {
			numeric = false
			break
		}
	}

	sort.SliceStable(values, func(i, j int) bool {
		if numeric {
			a, _ := ToFloat(values[i])
			b, _ := ToFloat(values[j])
			return a < b
		}
		return Stringified(values[i]) < Stringified(values[j])
	})
}

func isNumber(value any) bool {
	if value == nil {
		return false
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.SliceStable(keys, func(i, j int) bool {
		return Stringified(keys[i].Interface()) < Stringified(keys[j].Interface())
	})
	return keys
}
