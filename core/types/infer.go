package types

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeclarationError is raised while a schema is being declared: an invalid
// type marker, or more than one identifier on the same schema.
type DeclarationError struct {
	Class   string
	Message string
}

func (e *DeclarationError) Error() string {
	if e.Class == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
	typeType = reflect.TypeOf((*Type)(nil)).Elem()
)

// classRefs lets a descriptor type itself, e.g. reflect.TypeOf(ListType{}),
// be used as a marker.
var classRefs = map[reflect.Type]func() Type{
	reflect.TypeOf(AnyType{}):        func() Type { return Any() },
	reflect.TypeOf(StringType{}):     func() Type { return String() },
	reflect.TypeOf(IntegerType{}):    func() Type { return Integer() },
	reflect.TypeOf(FloatType{}):      func() Type { return Float() },
	reflect.TypeOf(BooleanType{}):    func() Type { return Boolean() },
	reflect.TypeOf(DateType{}):       func() Type { return Date() },
	reflect.TypeOf(UUIDType{}):       func() Type { return UUID() },
	reflect.TypeOf(ListType{}):       func() Type { return List(nil) },
	reflect.TypeOf(DictType{}):       func() Type { return Dict(nil, nil) },
	reflect.TypeOf(IdentifierType{}): func() Type { return UniqueIdentifier(nil) },
}

// Inferrer maps Go types and values to descriptors.
// Struct resolves struct types (e.g. nested schemas); when nil, structs are
// invalid schema definitions.
type Inferrer struct {
	Struct func(t reflect.Type) (Type, error)
}

// Determine infers a descriptor from v with no struct support.
// See Inferrer.Determine.
func Determine(v any) (Type, error) {
	return Inferrer{}.Determine(v)
}

// Determine infers a descriptor from v:
//   - nil gives Any
//   - a Type is returned as is
//   - a reflect.Type is a bare type marker, the result carries no default
//   - any other value is a default, its shape gives the descriptor
func (in Inferrer) Determine(v any) (Type, error) {
	switch x := v.(type) {
	case nil:
		return Any(), nil
	case Type:
		return x, nil
	case reflect.Type:
		return in.FromType(x)
	}

	t, err := in.FromType(reflect.TypeOf(v))
	if err != nil {
		return nil, invalidDefinition(v)
	}
	return WithDefault(t, v), nil
}

// FromType returns the descriptor for values of Go type t.
func (in Inferrer) FromType(t reflect.Type) (Type, error) {
	if t == nil {
		return Any(), nil
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch {
	case t == timeType:
		return Date(), nil
	case t == uuidType:
		return UUID(), nil
	case reflect.PointerTo(t).Implements(typeType):
		if build, ok := classRefs[t]; ok {
			return build(), nil
		}
		return nil, invalidDefinition(t)
	}

	switch t.Kind() {
	case reflect.Interface:
		return Any(), nil
	case reflect.String:
		return String(), nil
	case reflect.Bool:
		return Boolean(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer(), nil
	case reflect.Float32, reflect.Float64:
		return Float(), nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 && t.Kind() == reflect.Slice {
			return String(), nil
		}
		elem, err := in.FromType(t.Elem())
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	case reflect.Map:
		key, err := in.FromType(t.Key())
		if err != nil {
			return nil, err
		}
		if IsSet(t) {
			return List(key), nil
		}
		value, err := in.FromType(t.Elem())
		if err != nil {
			return nil, err
		}
		return Dict(key, value), nil
	case reflect.Struct:
		if in.Struct != nil {
			return in.Struct(t)
		}
	}
	return nil, invalidDefinition(t)
}

// ByName returns the scalar descriptor for an explicit type marker name.
func ByName(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "any", "":
		return Any(), nil
	case "string", "str", "text":
		return String(), nil
	case "integer", "int":
		return Integer(), nil
	case "float", "number":
		return Float(), nil
	case "boolean", "bool":
		return Boolean(), nil
	case "date":
		return Date(), nil
	case "datetime":
		return Datetime(nil), nil
	case "uuid":
		return UUID(), nil
	case "list":
		return List(nil), nil
	case "dict":
		return Dict(nil, nil), nil
	case "uniqueidentifier", "id":
		return UniqueIdentifier(nil), nil
	}
	return nil, invalidDefinition(name)
}

func invalidDefinition(v any) error {
	return &DeclarationError{Message: fmt.Sprintf("invalid schema definition '%s'", Repr(v))}
}
