// Package types defines the value-shape descriptors used to validate and
// coerce raw document values.
//
// A descriptor is immutable once constructed. Problem is a pure predicate
// returning "" for valid values, Converted performs best-effort coercion and
// never panics. A nil value is valid for every descriptor and converts to nil.
package types

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type describes the expected shape of a value.
type Type interface {
	// Problem returns a human-readable mismatch description, or "" if value is valid.
	Problem(value any) string

	// Converted coerces value to this type, returning nil when it can't.
	Converted(value any) any

	// Text is the canonical label, e.g. "dict[string, list[integer]]".
	Text() string

	// String is Text, followed by the default when one was attached.
	String() string

	// Default returns the default attached to this descriptor, if any.
	Default() any
}

// Unwrapper is implemented by descriptors decorating another descriptor.
type Unwrapper interface {
	Unwrap() Type
}

// Unwrap strips default decorations from t.
func Unwrap(t Type) Type {
	for {
		u, ok := t.(Unwrapper)
		if !ok {
			return t
		}
		t = u.Unwrap()
	}
}

// WithDefault returns t carrying def as its default value.
func WithDefault(t Type, def any) Type {
	if t == nil {
		t = Any()
	}
	return &defaulted{Type: Unwrap(t), def: def}
}

type defaulted struct {
	Type
	def any
}

func (d *defaulted) Default() any { return d.def }
func (d *defaulted) Unwrap() Type { return d.Type }

func (d *defaulted) String() string {
	if d.def == nil {
		return d.Text()
	}
	return fmt.Sprintf("%s (default: %s)", d.Text(), Repr(d.def))
}

type base struct{}

func (base) Default() any { return nil }

// AnyType accepts every value.
type AnyType struct{ base }

// Any returns the descriptor accepting every value.
func Any() *AnyType { return &AnyType{} }

func (*AnyType) Problem(any) string { return "" }
func (*AnyType) Converted(value any) any { return value }
func (*AnyType) Text() string { return "any" }
func (t *AnyType) String() string { return t.Text() }

// StringType accepts text values.
type StringType struct{ base }

// String returns the text descriptor.
func String() *StringType { return &StringType{} }

func (*StringType) Problem(value any) string {
	if value == nil || isText(value) {
		return ""
	}
	return fmt.Sprintf("expecting string, got '%s'", Repr(value))
}

func (*StringType) Converted(value any) any {
	if value == nil {
		return nil
	}
	return Stringified(value)
}

func (*StringType) Text() string { return "string" }
func (t *StringType) String() string { return t.Text() }

// IntegerType accepts integer-like values.
type IntegerType struct{ base }

// Integer returns the integer descriptor.
func Integer() *IntegerType { return &IntegerType{} }

func (*IntegerType) Problem(value any) string {
	if value == nil {
		return ""
	}
	if _, ok := ToInt(value); !ok {
		return fmt.Sprintf("expecting int, got '%s'", Repr(value))
	}
	return ""
}

func (*IntegerType) Converted(value any) any {
	if n, ok := ToInt(value); ok {
		return n
	}
	return nil
}

func (*IntegerType) Text() string { return "integer" }
func (t *IntegerType) String() string { return t.Text() }

// FloatType accepts number-like values.
type FloatType struct{ base }

// Float returns the float descriptor.
func Float() *FloatType { return &FloatType{} }

func (*FloatType) Problem(value any) string {
	if value == nil {
		return ""
	}
	if _, ok := ToFloat(value); !ok {
		return fmt.Sprintf("expecting float, got '%s'", Repr(value))
	}
	return ""
}

func (*FloatType) Converted(value any) any {
	if f, ok := ToFloat(value); ok {
		return f
	}
	return nil
}

func (*FloatType) Text() string { return "float" }
func (t *FloatType) String() string { return t.Text() }

// BooleanType accepts bools, numbers and yes/no style text.
type BooleanType struct{ base }

// Boolean returns the boolean descriptor.
func Boolean() *BooleanType { return &BooleanType{} }

func (*BooleanType) Problem(value any) string {
	if value == nil {
		return ""
	}
	if _, ok := ToBoolean(value); !ok {
		return fmt.Sprintf("expecting boolean, got '%s'", Repr(value))
	}
	return ""
}

func (*BooleanType) Converted(value any) any {
	if b, ok := ToBoolean(value); ok {
		return b
	}
	return nil
}

func (*BooleanType) Text() string { return "boolean" }
func (t *BooleanType) String() string { return t.Text() }

// DateType accepts times, epoch seconds and ISO-like date text.
type DateType struct {
	base
	name string
	loc  *time.Location
}

// Date returns the date descriptor, zone-less text is read as UTC.
func Date() *DateType { return &DateType{name: "date", loc: time.UTC} }

// Datetime returns a date descriptor reading zone-less text in loc.
func Datetime(loc *time.Location) *DateType {
	if loc == nil {
		loc = time.UTC
	}
	return &DateType{name: "datetime", loc: loc}
}

func (t *DateType) Problem(value any) string {
	if value == nil {
		return ""
	}
	if _, ok := ToDate(value, t.loc); !ok {
		return fmt.Sprintf("expecting %s, got '%s'", t.name, Repr(value))
	}
	return ""
}

func (t *DateType) Converted(value any) any {
	if d, ok := ToDate(value, t.loc); ok {
		return d
	}
	return nil
}

func (t *DateType) Text() string { return t.name }
func (t *DateType) String() string { return t.Text() }

// EnumType accepts one of a fixed set of values, compared by text form.
type EnumType struct {
	base
	values map[string]bool
	sorted []string
}

// Enum returns a descriptor accepting only the given values.
// A single argument is split on whitespace.
func Enum(values ...string) *EnumType {
	if len(values) == 1 {
		values = strings.Fields(values[0])
	}

	t := &EnumType{values: make(map[string]bool, len(values))}
	for _, v := range values {
		if !t.values[v] {
			t.values[v] = true
			t.sorted = append(t.sorted, v)
		}
	}
	sort.Strings(t.sorted)
	return t
}

// Values returns the accepted values, sorted.
func (t *EnumType) Values() []string {
	return append([]string(nil), t.sorted...)
}

func (t *EnumType) Problem(value any) string {
	if value == nil || t.values[Stringified(value)] {
		return ""
	}
	return fmt.Sprintf("'%s' is not one of %s", Repr(value), t.Text())
}

func (t *EnumType) Converted(value any) any {
	if value == nil {
		return nil
	}
	if text := Stringified(value); t.values[text] {
		return text
	}
	return nil
}

func (t *EnumType) Text() string { return fmt.Sprintf("enum[%s]", strings.Join(t.sorted, ", ")) }
func (t *EnumType) String() string { return t.Text() }

// UUIDType accepts uuid.UUID values and text uuid.Parse understands.
type UUIDType struct{ base }

// UUID returns the uuid descriptor.
func UUID() *UUIDType { return &UUIDType{} }

func (*UUIDType) Problem(value any) string {
	if value == nil {
		return ""
	}
	if _, ok := toUUID(value); !ok {
		return fmt.Sprintf("expecting uuid, got '%s'", Repr(value))
	}
	return ""
}

func (*UUIDType) Converted(value any) any {
	if id, ok := toUUID(value); ok {
		return id
	}
	return nil
}

func (*UUIDType) Text() string { return "uuid" }
func (t *UUIDType) String() string { return t.Text() }

func toUUID(value any) (uuid.UUID, bool) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, true
	case []byte:
		if id, err := uuid.ParseBytes(v); err == nil {
			return id, true
		}
		return uuid.Nil, false
	}
	if !isText(value) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(reflect.ValueOf(value).String())
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// IdentifierType marks the identity attribute of a schema.
// Validation and coercion are delegated to its subtype.
type IdentifierType struct {
	base
	Subtype Type
}

// UniqueIdentifier returns an identifier descriptor; a nil subtype means String.
func UniqueIdentifier(subtype Type) *IdentifierType {
	if subtype == nil {
		subtype = String()
	}
	return &IdentifierType{Subtype: subtype}
}

func (t *IdentifierType) Problem(value any) string { return t.Subtype.Problem(value) }
func (t *IdentifierType) Converted(value any) any { return t.Subtype.Converted(value) }
func (*IdentifierType) Text() string { return "uniqueidentifier" }
func (t *IdentifierType) String() string { return t.Text() }

// IsIdentifier reports whether t marks an identity attribute.
func IsIdentifier(t Type) bool {
	_, ok := Unwrap(t).(*IdentifierType)
	return ok
}
