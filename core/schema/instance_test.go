package schema

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/schemata/adapters/memory"
	"github.com/artpar/schemata/core/serialize"
)

func newLoggedRegistry() (*Registry, *bytes.Buffer) {
	var buf bytes.Buffer
	r := NewRegistry()
	r.SetLogger(zerolog.New(&buf))
	return r, &buf
}

func TestNewAndReset(t *testing.T) {
	r := NewRegistry()
	meta := r.MustDescribe(Person{Name: "joe", Tags: []string{"x"}})

	a := meta.New().(*Person)
	b := meta.New().(*Person)
	if a.Name != "joe" || !reflect.DeepEqual(a.Tags, []string{"x"}) {
		t.Errorf("New() = %+v", a)
	}

	a.Tags[0] = "changed"
	if b.Tags[0] != "x" {
		t.Error("instances should not share default containers")
	}

	a.Name = "ann"
	a.Car = &Car{Make: "Honda"}
	if err := meta.Reset(a); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if a.Name != "joe" || a.Car != nil || a.Tags[0] != "x" {
		t.Errorf("Reset() = %+v", a)
	}

	if err := meta.Reset(&Car{}); err == nil {
		t.Error("Reset(*Car) should fail")
	}
}

func TestNewEmptyContainers(t *testing.T) {
	meta := NewRegistry().MustDescribe(Person{})
	p := meta.New().(*Person)
	if p.Tags == nil || len(p.Tags) != 0 {
		t.Errorf("New().Tags = %#v, want empty non-nil slice", p.Tags)
	}
}

func TestSetFromDictLenient(t *testing.T) {
	r, logs := newLoggedRegistry()
	meta := r.MustDescribe(Person{Name: "joe"})
	obj := meta.New().(*Person)

	err := meta.SetFromDict(obj, map[string]any{
		"name": 5,
		"age":  "twelve",
		"tags": []any{"a", 1},
		"foo":  1,
	}, Source("test.json"))
	if err != nil {
		t.Fatalf("SetFromDict() error = %v", err)
	}

	if obj.Name != "5" {
		t.Errorf("Name = %q, want coerced 5", obj.Name)
	}
	if obj.Age != 0 {
		t.Errorf("Age = %d, want default 0", obj.Age)
	}
	if !reflect.DeepEqual(obj.Tags, []string{"a", "1"}) {
		t.Errorf("Tags = %v", obj.Tags)
	}

	out := logs.String()
	for _, want := range []string{
		"can't deserialize Person.age from test.json: expecting int, got 'twelve'",
		"can't deserialize Person.name from test.json: expecting string, got '5'",
		"extra content given for Person from test.json: foo",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("logs should contain %q, got:\n%s", want, out)
		}
	}
}

func TestSetFromDictStrict(t *testing.T) {
	r := NewRegistry()
	meta := r.MustDescribe(Person{})
	meta.SetBehavior(StrictBehavior())
	obj := meta.New().(*Person)

	err := meta.SetFromDict(obj, map[string]any{"age": "twelve"}, Source("test"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("SetFromDict() error = %v, want *ValidationError", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}
	if got := err.Error(); got != "can't deserialize Person.age from test: expecting int, got 'twelve'" {
		t.Errorf("Error() = %q", got)
	}
	if verr.Expected != "integer" || verr.Actual != "string" || verr.Value != "twelve" {
		t.Errorf("ValidationError = %+v", verr)
	}

	err = meta.SetFromDict(obj, map[string]any{"unknown": 1, "other": 2})
	var eerr *ExtrasError
	if !errors.As(err, &eerr) {
		t.Fatalf("SetFromDict() error = %v, want *ExtrasError", err)
	}
	if got := err.Error(); got != "extra content given for Person: other, unknown" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("ExtrasError should match ErrValidation")
	}

	meta.SetBehavior(Behavior{Strict: true, Extras: Ignore})
	if err := meta.SetFromDict(obj, map[string]any{"unknown": 1}); err != nil {
		t.Errorf("SetFromDict(extras ignored) error = %v", err)
	}

	meta.SetBehavior(Behavior{Extras: Raise, IgnoredExtras: []string{"unknown"}})
	if err := meta.SetFromDict(obj, map[string]any{"unknown": 1}); err != nil {
		t.Errorf("SetFromDict(ignored extras) error = %v", err)
	}
}

func TestSetFromDictMerge(t *testing.T) {
	meta := NewRegistry().MustDescribe(Person{Name: "joe"})
	obj := &Person{Name: "ann", Age: 5}

	if err := meta.SetFromDict(obj, map[string]any{"age": 7}, Merge()); err != nil {
		t.Fatalf("SetFromDict(merge) error = %v", err)
	}
	if obj.Name != "ann" || obj.Age != 7 {
		t.Errorf("merge = %+v", obj)
	}

	if err := meta.SetFromDict(obj, map[string]any{"age": 8}); err != nil {
		t.Fatalf("SetFromDict() error = %v", err)
	}
	if obj.Name != "joe" || obj.Age != 8 {
		t.Errorf("no merge = %+v", obj)
	}
}

func TestSetFromDictDoesNotMutateInput(t *testing.T) {
	meta := NewRegistry().MustDescribe(Person{})
	data := map[string]any{"name": "ann", "foo": 1}

	meta.SetFromDict(meta.New(), data)
	if len(data) != 2 {
		t.Errorf("input was modified: %v", data)
	}
}

func TestSetters(t *testing.T) {
	r := NewRegistry()
	meta := r.MustDescribe(Account{}, WithSetter("balance", func(obj any, v any) error {
		obj.(*Account).Balance = int(v.(int64)) * 100
		return nil
	}))

	obj, err := meta.FromDict(map[string]any{"email": "A@B.C", "balance": "3"})
	if err != nil {
		t.Fatalf("FromDict() error = %v", err)
	}
	acct := obj.(*Account)
	if acct.Email != "a@b.c" {
		t.Errorf("Email = %q, want lowercased", acct.Email)
	}
	if acct.Balance != 300 {
		t.Errorf("Balance = %d, want 300", acct.Balance)
	}

	if _, err := r.Describe(Employee{}, WithSetter("nope", nil)); err == nil {
		t.Error("setter for unknown attribute should fail")
	}
}

func TestInheritedSetter(t *testing.T) {
	r, logs := newLoggedRegistry()
	meta := r.MustDescribe(Truck{})

	obj, err := meta.FromDict(map[string]any{"name": "big", "wheels": 6, "load": 1.5})
	if err != nil {
		t.Fatalf("FromDict() error = %v", err)
	}
	truck := obj.(*Truck)
	if truck.Name != "BIG" || truck.Axle != 6 || truck.Wheels != 0 || truck.Load != 1.5 {
		t.Errorf("FromDict() = %+v", truck)
	}

	obj, err = meta.FromDict(map[string]any{"name": "forbidden"})
	if err != nil {
		t.Fatalf("FromDict() error = %v", err)
	}
	if obj.(*Truck).Name != "" {
		t.Errorf("rejected name should fall back to default, got %q", obj.(*Truck).Name)
	}
	if !strings.Contains(logs.String(), "name not allowed") {
		t.Errorf("setter error should be logged, got %s", logs.String())
	}
}

func TestNestedRoundTrip(t *testing.T) {
	meta := NewRegistry().MustDescribe(Person{Name: "joe"})

	obj, err := meta.FromDict(map[string]any{
		"name":     "ann",
		"age":      30,
		"car":      map[string]any{"make": "Honda", "year": "2019"},
		"tags":     []any{"a"},
		"birthday": "2000-01-02",
	})
	if err != nil {
		t.Fatalf("FromDict() error = %v", err)
	}
	p := obj.(*Person)
	if p.Car == nil || p.Car.Make != "Honda" || p.Car.Year != 2019 {
		t.Fatalf("Car = %+v", p.Car)
	}

	data := meta.ToDict(p, false)
	want := map[string]any{
		"name":     "ann",
		"age":      30,
		"car":      map[string]any{"serial": "", "make": "Honda", "year": 2019, "color": "red"},
		"tags":     []any{"a"},
		"birthday": "2000-01-02",
	}
	if !reflect.DeepEqual(data, want) {
		t.Errorf("ToDict() = %#v\nwant %#v", data, want)
	}

	again, err := meta.FromDict(data)
	if err != nil {
		t.Fatalf("FromDict(ToDict()) error = %v", err)
	}
	if !meta.Equal(p, again) {
		t.Error("round trip through ToDict should give an equal object")
	}

	text := serialize.Represented(data, serialize.Options{})
	decoded, err := serialize.Decode("p.json", []byte(text))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	fromJSON, err := meta.FromDict(decoded.(map[string]any))
	if err != nil {
		t.Fatalf("FromDict(json) error = %v", err)
	}
	if !meta.Equal(p, fromJSON) {
		t.Error("round trip through JSON should give an equal object")
	}
}

func TestToDictKeepNone(t *testing.T) {
	meta := NewRegistry().MustDescribe(Person{})
	p := meta.New().(*Person)

	data := meta.ToDict(p, false)
	if _, ok := data["car"]; ok {
		t.Error("nil car should be omitted")
	}
	if _, ok := data["birthday"]; ok {
		t.Error("zero birthday should be omitted")
	}

	data = meta.ToDict(p, true)
	if v, ok := data["car"]; !ok || v != nil {
		t.Errorf("keepNone car = %v, %v", v, ok)
	}

	if meta.ToDict(&Car{}, false) != nil {
		t.Error("ToDict(*Car) should be nil")
	}
}

func TestCyclicInstances(t *testing.T) {
	meta := NewRegistry().MustDescribe(Node{})
	root := meta.New().(*Node)
	root.Label = "root"
	root.Children = []*Node{root}

	data := meta.ToDict(root, false)
	if data["label"] != "root" {
		t.Errorf("ToDict() label = %v, want root", data["label"])
	}
	children, ok := data["children"].([]any)
	if !ok || len(children) != 1 {
		t.Fatalf("ToDict() children = %#v, want one child", data["children"])
	}
	child, ok := children[0].(map[string]any)
	if !ok || child["label"] != "root" {
		t.Errorf("ToDict() child = %#v, want expanded root", children[0])
	}

	obj, err := meta.Copy(root)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	c := obj.(*Node)
	if c == root {
		t.Fatal("Copy() returned the original")
	}
	if len(c.Children) != 1 || c.Children[0] != c {
		t.Errorf("Copy() children = %v, want the copy itself", c.Children)
	}

	if !meta.Equal(root, c) {
		t.Error("Equal(root, copy) = false, want true")
	}
	other := &Node{Label: "other"}
	other.Children = []*Node{other}
	if meta.Equal(root, other) {
		t.Error("Equal(root, other) = true, want false")
	}
}

func TestEqualAndChanges(t *testing.T) {
	r := NewRegistry()
	meta := r.MustDescribe(Person{})
	a := &Person{Name: "ann", Age: 30, Birthday: time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)}
	b := &Person{Name: "ann", Age: 30, Tags: []string{}, Birthday: a.Birthday.In(time.FixedZone("X", 3600))}

	if !meta.Equal(a, b) {
		t.Error("nil and empty tags, same instant: should be equal")
	}
	if meta.Equal(a, &Car{}) {
		t.Error("different types should never be equal")
	}
	if meta.Equal(a, nil) {
		t.Error("nil should never be equal")
	}

	b.Age = 31
	b.Car = &Car{Make: "Honda"}
	changes, err := meta.ChangedAttributes(a, b)
	if err != nil {
		t.Fatalf("ChangedAttributes() error = %v", err)
	}
	if len(changes) != 2 || changes[0].Name != "age" || changes[1].Name != "car" {
		t.Fatalf("ChangedAttributes() = %+v", changes)
	}
	if changes[0].A != 30 || changes[0].B != 31 {
		t.Errorf("age change = %+v", changes[0])
	}

	if _, err := meta.ChangedAttributes(a, &Car{}); err == nil {
		t.Error("ChangedAttributes with another type should fail")
	}
}

func TestCopy(t *testing.T) {
	r := NewRegistry()
	meta := r.MustDescribe(Person{})
	p := &Person{Name: "ann", Tags: []string{"a"}, Car: &Car{Make: "Honda"}}

	c, err := meta.Copy(p)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	cp := c.(*Person)
	if !meta.Equal(p, cp) {
		t.Error("Copy() should be equal")
	}
	cp.Tags[0] = "b"
	cp.Car.Make = "Ford"
	if p.Tags[0] != "a" || p.Car.Make != "Honda" {
		t.Error("Copy() should be deep")
	}

	fresh, _ := meta.Copy(nil)
	if fresh.(*Person).Tags == nil {
		t.Error("Copy(nil) should be a fresh instance")
	}

	employees := r.MustDescribe(Employee{})
	e, err := employees.CopyOf(&Person{Name: "ann", Age: 40})
	if err != nil {
		t.Fatalf("CopyOf() error = %v", err)
	}
	emp := e.(*Employee)
	if emp.Name != "ann" || emp.Age != 40 || emp.Company != "acme" {
		t.Errorf("CopyOf() = %+v", emp)
	}
	if _, err := employees.CopyOf(struct{}{}); err == nil {
		t.Error("CopyOf(undescribed) should fail")
	}
}

func TestProperty(t *testing.T) {
	r := NewRegistry()
	meta := describePerson(r)

	if got := meta.Properties(); !reflect.DeepEqual(got, []string{"adult"}) {
		t.Errorf("Properties() = %v", got)
	}
	v, ok := meta.Property(&Person{Age: 20}, "adult")
	if !ok || v != true {
		t.Errorf("Property(adult) = %v, %v", v, ok)
	}
	if _, ok := meta.Property(&Person{}, "nope"); ok {
		t.Error("Property(nope) should not exist")
	}
	if _, ok := meta.ToDict(&Person{}, true)["adult"]; ok {
		t.Error("properties should not be dumped")
	}
}

func TestFromJSON(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFiles()
	meta := NewRegistry().MustDescribe(Person{Name: "joe"})

	t.Run("missing with nil default", func(t *testing.T) {
		obj, err := meta.FromJSON(ctx, store, "nope.json", nil)
		if err != nil {
			t.Fatalf("FromJSON() error = %v", err)
		}
		if obj.(*Person).Name != "joe" {
			t.Errorf("FromJSON() = %+v, want fresh instance", obj)
		}

		_, err = meta.FromJSON(ctx, store, "nope.json", nil, Fatal())
		if !IsNotFound(err) {
			t.Errorf("FromJSON(fatal) error = %v, want not found", err)
		}
	})

	t.Run("missing with dict default", func(t *testing.T) {
		obj, err := meta.FromJSON(ctx, store, "nope.json", map[string]any{"name": "ann"})
		if err != nil {
			t.Fatalf("FromJSON() error = %v", err)
		}
		if obj.(*Person).Name != "ann" {
			t.Errorf("FromJSON() = %+v", obj)
		}
	})

	t.Run("missing with other default", func(t *testing.T) {
		def := &Person{Name: "given"}
		obj, err := meta.FromJSON(ctx, store, "nope.json", def)
		if err != nil || obj != def {
			t.Errorf("FromJSON() = %v, %v, want the default", obj, err)
		}
	})

	t.Run("save and load", func(t *testing.T) {
		p := &Person{Name: "ann", Age: 3, Tags: []string{"x"}}
		if err := meta.SaveJSON(ctx, store, p, "people/ann.json", serialize.Options{}); err != nil {
			t.Fatalf("SaveJSON() error = %v", err)
		}
		obj, err := meta.FromJSON(ctx, store, "people/ann.json", nil, Fatal())
		if err != nil {
			t.Fatalf("FromJSON() error = %v", err)
		}
		if !meta.Equal(p, obj) {
			t.Errorf("FromJSON() = %+v, want %+v", obj, p)
		}
	})

	t.Run("invalid document", func(t *testing.T) {
		store.WriteFile(ctx, "bad.json", []byte("{"))
		if _, err := meta.FromJSON(ctx, store, "bad.json", nil); err == nil {
			t.Error("FromJSON(bad json) should fail")
		}

		store.WriteFile(ctx, "list.json", []byte("[1, 2]"))
		if _, err := meta.FromJSON(ctx, store, "list.json", nil); !errors.Is(err, serialize.ErrWrongType) {
			t.Errorf("FromJSON(list) error = %v, want ErrWrongType", err)
		}
	})

	t.Run("strict source label", func(t *testing.T) {
		strict := NewRegistry()
		m := strict.MustDescribe(Person{}, WithBehavior(StrictBehavior()))
		store.WriteFile(ctx, "strict.json", []byte(`{"age": "x"}`))
		_, err := m.FromJSON(ctx, store, "strict.json", nil)
		if err == nil || !strings.Contains(err.Error(), "Person.age from strict.json") {
			t.Errorf("FromJSON() error = %v", err)
		}
	})
}

func TestObserver(t *testing.T) {
	r := NewRegistry()
	obs := &countingObserver{}
	r.SetObserver(obs)
	meta := r.MustDescribe(Person{})

	meta.FromDict(map[string]any{"age": "x", "a": 1, "b": 2})
	if obs.loaded != 1 || obs.mismatches != 1 || obs.extras != 2 {
		t.Errorf("observer = %+v", obs)
	}

	r.SetObserver(nil)
	meta.FromDict(map[string]any{})
	if obs.loaded != 1 {
		t.Error("removed observer should not be notified")
	}
}
