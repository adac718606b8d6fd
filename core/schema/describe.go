package schema

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/artpar/schemata/core/types"
)

// Option customizes how a type is described.
type Option func(*describeOptions)

type describeOptions struct {
	behavior   *Behavior
	properties []property
	setters    map[string]func(obj any, value any) error
}

// WithBehavior sets the load behavior of the described type.
func WithBehavior(b Behavior) Option {
	return func(o *describeOptions) {
		o.behavior = &b
	}
}

// WithProperty declares a computed, read-only property.
// Properties are never loaded, dumped or compared.
func WithProperty(name string, get func(obj any) any) Option {
	return func(o *describeOptions) {
		o.properties = append(o.properties, property{name: name, get: get})
	}
}

// WithSetter routes loaded values of attribute name through set.
// set receives the instance pointer and the coerced value, and is solely
// responsible for storing it.
func WithSetter(name string, set func(obj any, value any) error) Option {
	return func(o *describeOptions) {
		if o.setters == nil {
			o.setters = make(map[string]func(obj any, value any) error)
		}
		o.setters[name] = set
	}
}

// fieldTag is the parsed `schema:"..."` struct tag.
type fieldTag struct {
	name     string
	typeName string
	def      *string
	id       bool
	enum     []string
}

func parseTag(tag string) fieldTag {
	parts := strings.Split(tag, ",")
	ft := fieldTag{name: strings.TrimSpace(parts[0])}
	for _, part := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "type":
			ft.typeName = value
		case "default":
			v := value
			ft.def = &v
		case "id":
			ft.id = true
		case "enum":
			ft.enum = strings.Split(value, "|")
		}
	}
	return ft
}

// describe builds the Meta of struct type t, whose defaults are read from proto.
// The caller holds r.mu.
func (r *Registry) describe(t reflect.Type, proto reflect.Value, opts []Option, hooks *[]func()) (*Meta, error) {
	if m, ok := r.byType[t]; ok {
		return m, nil
	}
	if m, ok := r.pending[t]; ok {
		return m, nil
	}
	if t.Name() == "" {
		return nil, declarationError(t.String(), "can't describe an unnamed struct")
	}

	var o describeOptions
	for _, opt := range opts {
		opt(&o)
	}

	m := &Meta{
		typ:        t,
		registry:   r,
		byName:     make(map[string]*Attribute),
		properties: o.properties,
		behavior:   o.behavior,
	}
	r.pending[t] = m
	defer delete(r.pending, t)

	inferrer := types.Inferrer{Struct: func(st reflect.Type) (types.Type, error) {
		nested, err := r.describe(st, reflect.Zero(st), nil, hooks)
		if err != nil {
			return nil, err
		}
		return Nested(nested), nil
	}}

	own := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, hasTag := field.Tag.Lookup("schema")
		if tag == "-" || !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type.Kind() == reflect.Struct && !hasTag {
			if !hasExportedFields(field.Type) {
				continue
			}
			parent, err := r.describe(field.Type, proto.Field(i), nil, hooks)
			if err != nil {
				return nil, err
			}
			if m.parent == nil {
				m.parent = parent
			}
			for _, p := range parent.properties {
				if !m.hasProperty(p.name) {
					m.properties = append(m.properties, p.embedded(i))
				}
			}
			for _, inherited := range parent.attributes {
				if own[inherited.Name] {
					continue
				}
				a := inherited.withPrefix(i)
				if v := proto.FieldByIndex(a.index); !v.IsZero() {
					a.def = cloneValue(v)
					a.Type = types.WithDefault(a.Type, a.def.Interface())
				}
				m.add(a)
			}
			continue
		}

		a, err := r.attribute(t, field, proto.Field(i), parseTag(tag), inferrer)
		if err != nil {
			return nil, err
		}
		own[a.Name] = true
		m.add(a)
	}

	for _, a := range m.attributes {
		if !a.IsIdentifier() {
			continue
		}
		if m.identifier != nil && m.identifier.Name != a.Name {
			return nil, declarationError(t.Name(), "multiple identifiers: %s, %s", m.identifier.Name, a.Name)
		}
		m.identifier = a
	}

	if err := m.resolveSetters(o.setters); err != nil {
		return nil, err
	}

	r.register(m)
	if hook := m.Behavior().Hook; hook != nil {
		*hooks = append(*hooks, func() { hook(m) })
	}
	return m, nil
}

// add appends a, or replaces the inherited attribute of the same name in place.
func (m *Meta) add(a *Attribute) {
	if existing, ok := m.byName[a.Name]; ok {
		for i, candidate := range m.attributes {
			if candidate == existing {
				m.attributes[i] = a
				break
			}
		}
	} else {
		m.attributes = append(m.attributes, a)
	}
	m.byName[a.Name] = a
}

func (r *Registry) attribute(owner reflect.Type, field reflect.StructField, proto reflect.Value, tag fieldTag, inferrer types.Inferrer) (*Attribute, error) {
	a := &Attribute{
		Name:   tag.name,
		Field:  field.Name,
		index:  field.Index,
		goType: field.Type,
	}
	if a.Name == "" {
		a.Name = SnakeCase(field.Name)
	}
	where := owner.Name() + "." + field.Name

	var t types.Type
	var err error
	switch {
	case tag.typeName != "":
		t, err = types.ByName(tag.typeName)
	case len(tag.enum) > 0:
		t = types.Enum(tag.enum...)
	default:
		t, err = inferrer.FromType(field.Type)
	}
	if err != nil {
		var decl *DeclarationError
		if errors.As(err, &decl) && decl.Class != "" {
			return nil, err
		}
		return nil, declarationError(where, "%v", err)
	}

	if n, ok := t.(*NestedType); ok && field.Type.Kind() == reflect.Struct {
		a.nested = n.meta
	}
	if tag.id {
		t = types.UniqueIdentifier(t)
	}

	switch {
	case tag.def != nil:
		converted := t.Converted(*tag.def)
		if problem := t.Problem(*tag.def); problem != "" || converted == nil {
			return nil, declarationError(where, "invalid default '%s': %s", *tag.def, problem)
		}
		v := reflect.New(field.Type).Elem()
		if err := assign(v, converted); err != nil {
			return nil, declarationError(where, "invalid default '%s': %v", *tag.def, err)
		}
		a.def = v
		t = types.WithDefault(t, converted)
	case proto.IsValid() && !proto.IsZero():
		a.def = cloneValue(proto)
		t = types.WithDefault(t, a.def.Interface())
	}

	a.Type = t
	return a, nil
}

// resolveSetters binds explicit setters, then Set<Field> methods of the pointer type.
func (m *Meta) resolveSetters(explicit map[string]func(obj any, value any) error) error {
	for name := range explicit {
		if _, ok := m.byName[name]; !ok {
			return declarationError(m.Name(), "setter for unknown attribute '%s'", name)
		}
	}

	ptr := reflect.PointerTo(m.typ)
	for i, a := range m.attributes {
		if set, ok := explicit[a.Name]; ok {
			c := *a
			c.setter = set
			m.attributes[i] = &c
			m.byName[a.Name] = &c
			continue
		}

		method, ok := ptr.MethodByName("Set" + a.Field)
		if !ok {
			continue
		}
		mt := method.Type
		if mt.NumIn() != 2 || mt.NumOut() > 1 || (mt.NumOut() == 1 && mt.Out(0) != errorType) {
			continue
		}

		c := *a
		c.setter = methodSetter(method, mt.In(1))
		m.attributes[i] = &c
		m.byName[a.Name] = &c
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func methodSetter(method reflect.Method, param reflect.Type) func(obj any, value any) error {
	return func(obj any, value any) error {
		arg := reflect.New(param).Elem()
		if err := assign(arg, value); err != nil {
			return err
		}
		out := method.Func.Call([]reflect.Value{reflect.ValueOf(obj), arg})
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
}

func hasExportedFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// SnakeCase converts a Go identifier to snake_case: "UserID" gives "user_id".
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
