package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/artpar/schemata/core/types"
)

// NestedType is the descriptor of an attribute holding another described type.
// Documents carry it as a mapping.
type NestedType struct {
	meta *Meta
}

// Nested returns the descriptor for values of the type described by m.
func Nested(m *Meta) *NestedType {
	return &NestedType{meta: m}
}

// Meta returns the described type's Meta.
func (t *NestedType) Meta() *Meta { return t.meta }

func (t *NestedType) Problem(value any) string {
	if value == nil || t.meta.isInstance(value) {
		return ""
	}
	data, ok := stringMap(value)
	if !ok {
		return fmt.Sprintf("expecting compliant dict, got '%s'", types.Repr(value))
	}
	return t.meta.Problem(data)
}

// Converted returns a pointer to an instance, loading mappings with FromDict.
func (t *NestedType) Converted(value any) any {
	if value == nil {
		return nil
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type() == reflect.PointerTo(t.meta.typ):
		return value
	case rv.Type() == t.meta.typ:
		p := reflect.New(t.meta.typ)
		p.Elem().Set(rv)
		return p.Interface()
	}

	data, ok := stringMap(value)
	if !ok {
		return nil
	}
	obj, err := t.meta.FromDict(data)
	if err != nil {
		return nil
	}
	return obj
}

func (t *NestedType) Text() string { return t.meta.Name() }
func (t *NestedType) String() string { return t.Text() }
func (t *NestedType) Default() any { return nil }

// Problem returns the first compliance issue of data against this schema,
// "" when data would load cleanly. Undeclared keys are only reported when
// extras are configured to raise.
func (m *Meta) Problem(data map[string]any) string {
	for _, a := range m.attributes {
		value, ok := data[a.Name]
		if !ok {
			continue
		}
		if problem := a.Type.Problem(value); problem != "" {
			return fmt.Sprintf("%s: %s", a.Name, problem)
		}
	}

	b := m.Behavior()
	if b.Extras != Raise {
		return ""
	}
	if extras := m.extras(data, b); len(extras) > 0 {
		quoted := make([]string, len(extras))
		for i, name := range extras {
			quoted[i] = "'" + name + "'"
		}
		verb := "is not an attribute"
		if len(extras) > 1 {
			verb = "are not attributes"
		}
		return fmt.Sprintf("%s %s of %s", strings.Join(quoted, ", "), verb, m.Name())
	}
	return ""
}

// extras returns the sorted undeclared keys of data not ignored by b.
func (m *Meta) extras(data map[string]any, b Behavior) []string {
	var names []string
	for key := range data {
		if _, declared := m.byName[key]; declared || b.ignores(key) {
			continue
		}
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// stringMap returns value as a map[string]any when it is a mapping with text keys.
func stringMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || types.IsSet(rv.Type()) {
		return nil, false
	}
	result := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() == reflect.Interface {
			k = k.Elem()
		}
		if !k.IsValid() || k.Kind() != reflect.String {
			return nil, false
		}
		result[k.String()] = iter.Value().Interface()
	}
	return result, true
}
