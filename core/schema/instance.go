package schema

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/artpar/schemata/core/jsonable"
	"github.com/artpar/schemata/core/serialize"
	"github.com/artpar/schemata/core/types"
	"github.com/artpar/schemata/ports"
)

// LoadOption tunes SetFromDict, FromDict and FromJSON.
type LoadOption func(*loadOptions)

type loadOptions struct {
	source string
	merge  bool
	fatal  bool
}

// Source labels where the data comes from, for error messages.
func Source(label string) LoadOption {
	return func(o *loadOptions) { o.source = label }
}

// Merge leaves attributes absent from the data untouched instead of resetting them.
func Merge() LoadOption {
	return func(o *loadOptions) { o.merge = true }
}

// Fatal makes FromJSON fail on a missing document when no default is given.
func Fatal() LoadOption {
	return func(o *loadOptions) { o.fatal = true }
}

// Change is one attribute whose value differs between two instances.
type Change struct {
	Name string
	A    any
	B    any
}

// New returns a pointer to a fresh instance holding the defaults.
func (m *Meta) New() any {
	return m.newValue().Addr().Interface()
}

func (m *Meta) isInstance(obj any) bool {
	if obj == nil {
		return false
	}
	rv := reflect.ValueOf(obj)
	if rv.Type() == m.typ {
		return true
	}
	return rv.Type() == reflect.PointerTo(m.typ) && !rv.IsNil()
}

// value returns the addressable struct behind the instance pointer obj.
func (m *Meta) value(obj any) (reflect.Value, error) {
	rv := reflect.ValueOf(obj)
	if obj == nil || rv.Type() != reflect.PointerTo(m.typ) || rv.IsNil() {
		return reflect.Value{}, &TypeMismatchError{Class: m.QualifiedName(), Got: types.TypeName(obj)}
	}
	return rv.Elem(), nil
}

// Reset sets every attribute of obj back to its default.
func (m *Meta) Reset(obj any) error {
	v, err := m.value(obj)
	if err != nil {
		return err
	}
	m.resetValue(v)
	return nil
}

// SetFromDict loads data into obj, attribute by attribute in schema order.
//
// Absent attributes are reset to their default (left untouched with Merge).
// Present values go through the attribute's setter, if any.
// Values failing their descriptor make a strict load fail with a
// *ValidationError; a lenient load logs a warning and stores the coerced
// value, or the default when coercion fails. Undeclared keys are handled
// per the Behavior's extras policy.
func (m *Meta) SetFromDict(obj any, data map[string]any, opts ...LoadOption) error {
	v, err := m.value(obj)
	if err != nil {
		return err
	}

	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := m.Behavior()
	logger := m.registry.Logger()
	observer := m.registry.Observer()

	remaining := make(map[string]any, len(data))
	for k, val := range data {
		remaining[k] = val
	}

	for _, a := range m.attributes {
		value, present := remaining[a.Name]
		delete(remaining, a.Name)

		if !present {
			if o.merge {
				continue
			}
			v.FieldByIndex(a.index).Set(a.freshDefault())
			continue
		}

		converted := a.Type.Converted(value)
		problem := a.Type.Problem(value)
		storeFailed := false
		if problem == "" {
			if err := m.store(obj, v, a, converted); err != nil {
				problem = err.Error()
				storeFailed = true
			}
		}
		if problem == "" {
			continue
		}

		observer.AttributeMismatch(m.Name(), a.Name, b.Strict)
		verr := m.mismatch(a, o.source, value, problem)
		if b.Strict {
			return verr
		}
		logger.Warn().
			Str("class", m.Name()).
			Str("attribute", a.Name).
			Str("source", o.source).
			Msg(verr.Error())

		if storeFailed || converted == nil || m.store(obj, v, a, converted) != nil {
			v.FieldByIndex(a.index).Set(a.freshDefault())
		}
	}

	if extras := m.extras(remaining, b); len(extras) > 0 {
		observer.ExtrasFound(m.Name(), len(extras))
		eerr := &ExtrasError{Class: m.Name(), Source: o.source, Keys: extras}
		switch b.Extras {
		case Raise:
			return eerr
		case Warn:
			logger.Warn().Str("class", m.Name()).Strs("extras", extras).Msg(eerr.Error())
		}
	}

	observer.DocumentLoaded(m.Name())
	return nil
}

// store puts value into the field of a, through its setter when it has one.
func (m *Meta) store(obj any, v reflect.Value, a *Attribute, value any) error {
	if value == nil || a.setter == nil {
		return assign(v.FieldByIndex(a.index), value)
	}
	return a.setter(obj, value)
}

func (m *Meta) mismatch(a *Attribute, source string, value any, problem string) *ValidationError {
	return &ValidationError{
		Class:     m.Name(),
		Attribute: a.Name,
		Source:    source,
		Expected:  a.Type.Text(),
		Actual:    types.TypeName(value),
		Value:     types.Repr(value),
		Problem:   problem,
	}
}

// FromDict returns a new instance loaded from data.
func (m *Meta) FromDict(data map[string]any, opts ...LoadOption) (any, error) {
	obj := m.New()
	if err := m.SetFromDict(obj, data, opts...); err != nil {
		return nil, err
	}
	return obj, nil
}

// FromJSON loads a new instance from the document at path.
//
// When the document is missing: a map[string]any default is loaded as if it
// were the document, any other non-nil default is returned as is, and a nil
// default gives a fresh instance (an error wrapping serialize.ErrNotFound
// with Fatal).
func (m *Meta) FromJSON(ctx context.Context, store ports.FileStore, path string, def any, opts ...LoadOption) (any, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	readOpts := serialize.Options{Fatal: o.fatal, Default: map[string]any{}}
	data, found, err := serialize.ReadJSON(ctx, store, path, readOpts)
	if err != nil {
		return nil, err
	}

	if !found {
		switch d := def.(type) {
		case nil:
			if o.fatal {
				return nil, fmt.Errorf("%s: %w: %s", m.Name(), serialize.ErrNotFound, path)
			}
			return m.New(), nil
		case map[string]any:
			return m.FromDict(d, append([]LoadOption{Source(path)}, opts...)...)
		default:
			return def, nil
		}
	}

	doc, _ := data.(map[string]any)
	return m.FromDict(doc, append([]LoadOption{Source(path)}, opts...)...)
}

// ToDict returns the sanitized attributes of obj, nil values omitted unless
// keepNone. A zero time.Time counts as nil.
// It returns nil when obj isn't an instance of this type.
func (m *Meta) ToDict(obj any, keepNone bool) map[string]any {
	v, ok := m.structValue(obj)
	if !ok {
		return nil
	}

	opts := jsonable.Options{KeepNone: keepNone, Expand: m.registry.expander()}
	result, _ := jsonable.Sanitize(m.attributeValues(v), opts).(map[string]any)
	if result == nil {
		result = map[string]any{}
	}
	return result
}

// attributeValues maps attribute names to the raw field values of v.
// Nested described instances are left for the sanitizer to expand, so its
// depth limit holds across instances.
func (m *Meta) attributeValues(v reflect.Value) map[string]any {
	values := make(map[string]any, len(m.attributes))
	for _, a := range m.attributes {
		field := v.FieldByIndex(a.index)
		if field.Type() == timeType && field.IsZero() {
			values[a.Name] = nil
			continue
		}
		values[a.Name] = field.Interface()
	}
	return values
}

// structValue accepts an instance pointer or a struct value.
func (m *Meta) structValue(obj any) (reflect.Value, bool) {
	if !m.isInstance(obj) {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	return rv, true
}

// SaveJSON writes the attributes of obj to path.
func (m *Meta) SaveJSON(ctx context.Context, store ports.FileStore, obj any, path string, opts serialize.Options) error {
	data := m.ToDict(obj, opts.KeepNone)
	if data == nil {
		return &TypeMismatchError{Class: m.QualifiedName(), Got: types.TypeName(obj)}
	}
	return serialize.SaveJSON(ctx, store, data, path, opts)
}

// Equal reports whether a and b are instances of this type with equal attributes.
// Properties are not compared.
func (m *Meta) Equal(a, b any) bool {
	if a == nil || b == nil || reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	av, ok := m.structValue(a)
	if !ok {
		return false
	}
	bv, _ := m.structValue(b)
	for _, attr := range m.attributes {
		if !valuesEqual(av.FieldByIndex(attr.index), bv.FieldByIndex(attr.index)) {
			return false
		}
	}
	return true
}

// ChangedAttributes lists, in schema order, the attributes whose values differ
// between a and b.
func (m *Meta) ChangedAttributes(a, b any) ([]Change, error) {
	av, ok := m.structValue(a)
	if !ok {
		return nil, &TypeMismatchError{Class: m.QualifiedName(), Got: types.TypeName(a)}
	}
	bv, ok := m.structValue(b)
	if !ok {
		return nil, &TypeMismatchError{Class: m.QualifiedName(), Got: types.TypeName(b)}
	}

	var changes []Change
	for _, attr := range m.attributes {
		x, y := av.FieldByIndex(attr.index), bv.FieldByIndex(attr.index)
		if !valuesEqual(x, y) {
			changes = append(changes, Change{Name: attr.Name, A: x.Interface(), B: y.Interface()})
		}
	}
	return changes, nil
}

// Copy returns a deep copy of obj, a fresh instance when obj is nil.
func (m *Meta) Copy(obj any) (any, error) {
	if obj == nil {
		return m.New(), nil
	}
	v, ok := m.structValue(obj)
	if !ok {
		return nil, &TypeMismatchError{Class: m.QualifiedName(), Got: types.TypeName(obj)}
	}
	if rv := reflect.ValueOf(obj); rv.Kind() == reflect.Pointer {
		return cloneValue(rv).Interface(), nil
	}
	return cloneValue(v).Addr().Interface(), nil
}

// CopyOf returns a new instance loaded from the attributes of src, an
// instance of any described type. Attributes src doesn't have get their
// default, attributes of src this type doesn't declare are dropped.
func (m *Meta) CopyOf(src any) (any, error) {
	if src == nil {
		return m.New(), nil
	}

	other, ok := m.registry.LookupType(reflect.TypeOf(src))
	if !ok {
		return nil, fmt.Errorf("%s is not a described type", types.TypeName(src))
	}

	data := other.ToDict(src, false)
	for key := range data {
		if _, declared := m.byName[key]; !declared {
			delete(data, key)
		}
	}
	return m.FromDict(data, Source(other.Name()))
}

// Property returns the value of the computed property name for obj.
func (m *Meta) Property(obj any, name string) (any, bool) {
	v, ok := m.structValue(obj)
	if !ok {
		return nil, false
	}
	if !v.CanAddr() {
		c := reflect.New(m.typ).Elem()
		c.Set(v)
		v = c
	}
	for _, p := range m.properties {
		if p.name == name {
			return p.get(v.Addr().Interface()), true
		}
	}
	return nil, false
}

// IsNotFound reports whether err is caused by a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, serialize.ErrNotFound)
}
