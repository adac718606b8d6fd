package schema

import (
	"reflect"
	"testing"
)

func TestIntrospect(t *testing.T) {
	r := NewRegistry()
	meta := r.MustDescribe(Car{Make: "Honda"})
	resp := meta.Introspect()

	if resp.Name != "Car" || resp.Qualified != "schema.Car" {
		t.Errorf("Introspect() name = %q / %q", resp.Name, resp.Qualified)
	}
	if resp.Identifier != "serial" {
		t.Errorf("Identifier = %q, want serial", resp.Identifier)
	}
	if resp.Behavior != "lenient" {
		t.Errorf("Behavior = %q, want lenient", resp.Behavior)
	}
	if len(resp.Attributes) != 4 {
		t.Fatalf("len(Attributes) = %d, want 4", len(resp.Attributes))
	}

	mk := resp.Attributes[1]
	if mk.Name != "make" || mk.Default != "Honda" {
		t.Errorf("make attribute = %+v", mk)
	}

	color := resp.Attributes[3]
	if !reflect.DeepEqual(color.Values, []string{"blue", "red"}) {
		t.Errorf("color values = %v", color.Values)
	}
}

func TestIntrospectNested(t *testing.T) {
	r := NewRegistry()
	meta := describePerson(r)
	resp := meta.Introspect()

	var car AttributeSchema
	for _, a := range resp.Attributes {
		if a.Name == "car" {
			car = a
		}
	}
	if car.Nested != "schema.Car" || car.Type != "Car" {
		t.Errorf("car attribute = %+v", car)
	}

	summary := meta.Summary()
	if summary.Attributes != 5 || summary.Properties != 1 {
		t.Errorf("Summary() = %+v", summary)
	}
}
