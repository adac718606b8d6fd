package schema

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/artpar/schemata/core/types"
)

// Attribute is one declared, serializable field of a described type.
type Attribute struct {
	// Name is the key used in documents.
	Name string

	// Field is the Go field name.
	Field string

	// Type validates and coerces document values for this attribute.
	Type types.Type

	index  []int
	goType reflect.Type
	def    reflect.Value // zero Value when there's no default
	nested *Meta         // set when the field holds a described struct by value
	setter func(obj any, value any) error
}

// IsIdentifier reports whether this attribute identifies its object.
func (a *Attribute) IsIdentifier() bool {
	return types.IsIdentifier(a.Type)
}

// Default returns a fresh copy of the default value, nil when there is none.
func (a *Attribute) Default() any {
	if !a.def.IsValid() {
		return nil
	}
	return cloneValue(a.def).Interface()
}

// HasSetter reports whether values are stored through a setter.
func (a *Attribute) HasSetter() bool {
	return a.setter != nil
}

func (a *Attribute) String() string {
	return fmt.Sprintf("%s: %s", a.Name, a.Type)
}

// freshDefault is the value a field gets on reset.
func (a *Attribute) freshDefault() reflect.Value {
	if a.def.IsValid() {
		return cloneValue(a.def)
	}
	switch a.goType.Kind() {
	case reflect.Slice:
		return reflect.MakeSlice(a.goType, 0, 0)
	case reflect.Map:
		return reflect.MakeMap(a.goType)
	case reflect.Struct:
		if a.nested != nil {
			return a.nested.newValue()
		}
	}
	return reflect.Zero(a.goType)
}

// withPrefix returns a copy of a reachable through the embedded field at index.
func (a *Attribute) withPrefix(index int) *Attribute {
	c := *a
	c.index = append([]int{index}, a.index...)
	if set := a.setter; set != nil {
		c.setter = func(obj any, value any) error {
			embedded := reflect.ValueOf(obj).Elem().Field(index).Addr().Interface()
			return set(embedded, value)
		}
	}
	return &c
}

type property struct {
	name string
	get  func(obj any) any
}

// embedded returns p evaluated on the struct embedded at index.
func (p property) embedded(index int) property {
	get := p.get
	return property{name: p.name, get: func(obj any) any {
		return get(reflect.ValueOf(obj).Elem().Field(index).Addr().Interface())
	}}
}

// Meta is the schema of one described Go struct type: its attributes in
// declaration order, computed properties and load Behavior.
// It is built once per type and shared by all its instances.
type Meta struct {
	typ        reflect.Type
	parent     *Meta
	registry   *Registry
	attributes []*Attribute
	byName     map[string]*Attribute
	properties []property
	identifier *Attribute

	mu       sync.RWMutex
	behavior *Behavior
}

// Name returns the type's simple name, e.g. "Person".
func (m *Meta) Name() string { return m.typ.Name() }

// QualifiedName returns the type's name qualified by its package name, e.g. "example.Person".
func (m *Meta) QualifiedName() string { return m.typ.String() }

// FullName returns the type's name qualified by its import path.
func (m *Meta) FullName() string { return m.typ.PkgPath() + "." + m.typ.Name() }

// Type returns the described struct type.
func (m *Meta) Type() reflect.Type { return m.typ }

// Parent returns the Meta of the embedded described type this one extends, if any.
func (m *Meta) Parent() *Meta { return m.parent }

// Attributes returns the attributes in schema order.
func (m *Meta) Attributes() []*Attribute {
	return append([]*Attribute(nil), m.attributes...)
}

// Attribute returns the attribute with the given document name.
func (m *Meta) Attribute(name string) (*Attribute, bool) {
	a, ok := m.byName[name]
	return a, ok
}

// Identifier returns the identifier attribute, if one was declared.
func (m *Meta) Identifier() *Attribute { return m.identifier }

// Properties returns the names of the computed properties.
func (m *Meta) Properties() []string {
	names := make([]string, len(m.properties))
	for i, p := range m.properties {
		names[i] = p.name
	}
	return names
}

func (m *Meta) hasProperty(name string) bool {
	for _, p := range m.properties {
		if p.name == name {
			return true
		}
	}
	return false
}

// ByType groups attribute names by descriptor label, in schema order.
func (m *Meta) ByType() map[string][]string {
	result := make(map[string][]string)
	for _, a := range m.attributes {
		label := a.Type.Text()
		result[label] = append(result[label], a.Name)
	}
	return result
}

// Behavior returns the effective load behavior: the one set on this type,
// else the parent's, else the registry default.
func (m *Meta) Behavior() Behavior {
	m.mu.RLock()
	b := m.behavior
	m.mu.RUnlock()

	if b != nil {
		return *b
	}
	if m.parent != nil {
		return m.parent.Behavior()
	}
	if m.registry != nil {
		return m.registry.DefaultBehavior()
	}
	return Lenient()
}

// SetBehavior overrides the load behavior of this type and of the types
// extending it that don't set their own.
func (m *Meta) SetBehavior(b Behavior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.behavior = &b
}

func (m *Meta) String() string {
	return fmt.Sprintf("%s (%d attributes, %d properties)", m.Name(), len(m.attributes), len(m.properties))
}

// newValue returns an addressable struct value holding the defaults.
func (m *Meta) newValue() reflect.Value {
	v := reflect.New(m.typ).Elem()
	m.resetValue(v)
	return v
}

func (m *Meta) resetValue(v reflect.Value) {
	for _, a := range m.attributes {
		v.FieldByIndex(a.index).Set(a.freshDefault())
	}
}
