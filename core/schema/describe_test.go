package schema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/artpar/schemata/core/types"
)

func TestDescribe(t *testing.T) {
	r := NewRegistry()
	meta, err := r.Describe(Person{Name: "joe"})
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}

	if got := meta.String(); got != "Person (5 attributes, 0 properties)" {
		t.Errorf("String() = %q", got)
	}

	var names []string
	for _, a := range meta.Attributes() {
		names = append(names, a.Name)
	}
	if want := []string{"name", "age", "car", "tags", "birthday"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Attributes() = %v, want %v", names, want)
	}

	name, ok := meta.Attribute("name")
	if !ok {
		t.Fatal("Attribute(name) not found")
	}
	if got := name.Type.String(); got != "string (default: joe)" {
		t.Errorf("name type = %q", got)
	}
	if name.Default() != "joe" {
		t.Errorf("name default = %v", name.Default())
	}

	wantByType := map[string][]string{
		"string":       {"name"},
		"integer":      {"age"},
		"Car":          {"car"},
		"list[string]": {"tags"},
		"date":         {"birthday"},
	}
	if got := meta.ByType(); !reflect.DeepEqual(got, wantByType) {
		t.Errorf("ByType() = %v, want %v", got, wantByType)
	}

	if meta.Identifier() != nil {
		t.Errorf("Identifier() = %v, want nil", meta.Identifier())
	}
	if _, ok := r.LookupType(reflect.TypeOf(Car{})); !ok {
		t.Error("nested Car should be described too")
	}
}

func TestDescribeOncePerType(t *testing.T) {
	r := NewRegistry()
	first := r.MustDescribe(Person{Name: "joe"})
	second := r.MustDescribe(&Person{Name: "ignored"})

	if first != second {
		t.Error("Describe() should return the same Meta for the same type")
	}
	if a, _ := second.Attribute("name"); a.Default() != "joe" {
		t.Errorf("second Describe() changed the default to %v", a.Default())
	}

	var nilPerson *Person
	if third := r.MustDescribe(nilPerson); third != first {
		t.Error("Describe(nil *Person) should return the same Meta")
	}
}

func TestDescribeIdentifier(t *testing.T) {
	meta := NewRegistry().MustDescribe(Car{})
	id := meta.Identifier()
	if id == nil || id.Name != "serial" {
		t.Fatalf("Identifier() = %v, want serial", id)
	}
	if id.Type.Text() != "uniqueidentifier" {
		t.Errorf("identifier type = %q", id.Type.Text())
	}

	color, _ := meta.Attribute("color")
	if got := color.Type.String(); got != "enum[blue, red] (default: red)" {
		t.Errorf("color type = %q", got)
	}
}

type twoIDs struct {
	A string `schema:"a,id"`
	B string `schema:"b,id"`
}

type withFunc struct {
	F func()
}

type badDefault struct {
	N int `schema:",default=abc"`
}

type badTypeName struct {
	N any `schema:",type=bogus"`
}

type withChan struct {
	Items []chan int
}

func TestDescribeErrors(t *testing.T) {
	tests := []struct {
		name      string
		prototype any
		want      string
	}{
		{"multiple identifiers", twoIDs{}, "twoIDs: multiple identifiers: a, b"},
		{"func field", withFunc{}, "withFunc.F: invalid schema definition 'func()'"},
		{"bad default", badDefault{}, "badDefault.N: invalid default 'abc': expecting int, got 'abc'"},
		{"bad type name", badTypeName{}, "badTypeName.N: invalid schema definition 'bogus'"},
		{"chan items", withChan{}, "withChan.Items: invalid schema definition 'chan int'"},
		{"not a struct", 5, "int: only structs can be described"},
		{"unnamed struct", struct{ A int }{}, "struct { A int }: can't describe an unnamed struct"},
		{"nil", nil, "can't describe nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			_, err := r.Describe(tt.prototype)
			if err == nil {
				t.Fatal("Describe() should fail")
			}

			var decl *DeclarationError
			if !errors.As(err, &decl) {
				t.Errorf("error type = %T, want *DeclarationError", err)
			}
			if err.Error() != tt.want {
				t.Errorf("Describe() error = %q, want %q", err.Error(), tt.want)
			}
			if r.Len() != 0 {
				t.Errorf("failed Describe() registered %d types", r.Len())
			}
		})
	}
}

func TestMustDescribePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustDescribe() should panic")
		}
	}()
	NewRegistry().MustDescribe(twoIDs{})
}

func TestDescribeInheritance(t *testing.T) {
	r := NewRegistry()
	vehicle := r.MustDescribe(Vehicle{}, WithBehavior(StrictBehavior()))
	truck := r.MustDescribe(Truck{Vehicle: Vehicle{Name: "big"}})

	var names []string
	for _, a := range truck.Attributes() {
		names = append(names, a.Name+":"+a.Field)
	}
	if want := []string{"wheels:Axle", "name:Name", "load:Load"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Attributes() = %v, want %v", names, want)
	}

	if truck.Parent() != vehicle {
		t.Error("Parent() should be the Vehicle meta")
	}
	if !truck.Behavior().Strict {
		t.Error("Truck should inherit the strict behavior")
	}

	wheels, _ := vehicle.Attribute("wheels")
	if wheels.Default() != 4 {
		t.Errorf("vehicle wheels default = %v, want 4", wheels.Default())
	}
	name, _ := truck.Attribute("name")
	if name.Default() != "big" {
		t.Errorf("truck name default = %v, want big", name.Default())
	}
	if !name.HasSetter() {
		t.Error("promoted SetName should be used as setter")
	}

	own := NewRegistry()
	own.MustDescribe(Vehicle{})
	lenient := own.MustDescribe(Truck{}, WithBehavior(Behavior{Extras: Ignore}))
	if lenient.Behavior().Strict || lenient.Behavior().Extras != Ignore {
		t.Errorf("Behavior() = %v, want extras: ignore", lenient.Behavior())
	}
}

func TestDescribeRecursive(t *testing.T) {
	meta := NewRegistry().MustDescribe(Node{})
	children, _ := meta.Attribute("children")
	if got := children.Type.Text(); got != "list[Node]" {
		t.Errorf("children type = %q, want list[Node]", got)
	}

	obj, err := meta.FromDict(map[string]any{
		"label":    "root",
		"children": []any{map[string]any{"label": "leaf"}},
	})
	if err != nil {
		t.Fatalf("FromDict() error = %v", err)
	}
	root := obj.(*Node)
	if len(root.Children) != 1 || root.Children[0].Label != "leaf" {
		t.Errorf("FromDict() = %+v", root)
	}
}

func TestDescribeTagOptions(t *testing.T) {
	type Options struct {
		Data    any    `schema:"payload,type=dict"`
		Skipped string `schema:"-"`
		Level   string `schema:",default=info"`
		hidden  int
	}

	meta := NewRegistry().MustDescribe(Options{})
	if len(meta.Attributes()) != 2 {
		t.Fatalf("Attributes() = %v", meta.Attributes())
	}
	payload, ok := meta.Attribute("payload")
	if !ok || payload.Type.Text() != "dict[any, any]" {
		t.Errorf("payload attribute = %v", payload)
	}

	obj := meta.New().(*Options)
	if obj.Level != "info" {
		t.Errorf("New().Level = %q, want info", obj.Level)
	}
	_ = obj.hidden
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Name", "name"},
		{"FirstName", "first_name"},
		{"ID", "id"},
		{"UserID", "user_id"},
		{"HTTPServer", "http_server"},
		{"V2Field", "v2_field"},
		{"already_snake", "already_snake"},
	}

	for _, tt := range tests {
		if got := SnakeCase(tt.input); got != tt.want {
			t.Errorf("SnakeCase(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNestedType(t *testing.T) {
	r := NewRegistry()
	meta := r.MustDescribe(Car{})
	nested := Nested(meta)

	if got := nested.Problem("foo"); got != "expecting compliant dict, got 'foo'" {
		t.Errorf("Problem(foo) = %q", got)
	}
	if got := nested.Problem(map[string]any{"year": "old"}); got != "year: expecting int, got 'old'" {
		t.Errorf("Problem() = %q", got)
	}
	if got := nested.Problem(map[string]any{"foo": 1}); got != "" {
		t.Errorf("Problem(extras, warn) = %q, want empty", got)
	}
	if got := nested.Problem(&Car{}); got != "" {
		t.Errorf("Problem(instance) = %q", got)
	}

	meta.SetBehavior(Behavior{Extras: Raise})
	if got := nested.Problem(map[string]any{"foo": 1}); got != "'foo' is not an attribute of Car" {
		t.Errorf("Problem(extras, raise) = %q", got)
	}

	car, ok := nested.Converted(map[any]any{"make": "Honda"}).(*Car)
	if !ok || car.Make != "Honda" || car.Color != "red" {
		t.Errorf("Converted() = %#v", car)
	}
	if got := nested.Converted(map[string]any{"foo": 1}); got != nil {
		t.Errorf("Converted(extras, raise) = %v, want nil", got)
	}

	var _ types.Type = nested
}
