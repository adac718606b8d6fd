package schema

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/artpar/schemata/core/schema/internal/garage"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	car := r.MustDescribe(Car{})

	tests := []string{
		"Car",
		"schema.Car",
		"github.com/artpar/schemata/core/schema.Car",
	}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := r.Lookup(name)
			if !ok || got != car {
				t.Errorf("Lookup(%q) = %v, %v, want %v", name, got, ok, car)
			}
		})
	}

	if _, ok := r.Lookup("Truck"); ok {
		t.Error("Lookup(Truck) should fail before it is described")
	}
	if got, ok := r.LookupType(nil); ok || got != nil {
		t.Errorf("LookupType(nil) = %v, %v", got, ok)
	}
}

func TestRegistryAmbiguousName(t *testing.T) {
	r, buf := newLoggedRegistry()
	first := r.MustDescribe(Car{})
	second := r.MustDescribe(garage.Car{})

	tests := []struct {
		name string
		want *Meta
	}{
		{"Car", first},
		{"schema.Car", first},
		{"github.com/artpar/schemata/core/schema.Car", first},
		{"garage.Car", second},
		{"github.com/artpar/schemata/core/schema/internal/garage.Car", second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Lookup(tt.name)
			if !ok || got != tt.want {
				t.Errorf("Lookup(%q) = %v, %v, want %v", tt.name, got, ok, tt.want)
			}
		})
	}

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	if !strings.Contains(buf.String(), "ambiguous schema name") {
		t.Errorf("log = %q, want an ambiguous name warning", buf.String())
	}
	if !strings.Contains(buf.String(), "garage.Car") {
		t.Errorf("log = %q, want the ignored type named", buf.String())
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.MustDescribe(Person{})
	r.MustDescribe(Account{})

	var names []string
	for _, m := range r.List() {
		names = append(names, m.QualifiedName())
	}
	want := "schema.Account,schema.Car,schema.Person"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("List() = %s, want %s", got, want)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestRegistryDefaultBehavior(t *testing.T) {
	r := NewRegistry()
	meta := r.MustDescribe(Employee{})

	if got := meta.Behavior().String(); got != "lenient" {
		t.Errorf("Behavior() = %s, want lenient", got)
	}

	r.SetDefaultBehavior(StrictBehavior())
	if !meta.Behavior().Strict {
		t.Error("types without their own behavior should follow the registry default")
	}

	own := r.MustDescribe(Account{}, WithBehavior(Behavior{Extras: Ignore}))
	if own.Behavior().Strict {
		t.Error("an own behavior should win over the registry default")
	}
}

func TestBehaviorHook(t *testing.T) {
	r := NewRegistry()
	var seen []string
	r.SetDefaultBehavior(Behavior{Hook: func(m *Meta) {
		seen = append(seen, m.Name())
	}})

	r.MustDescribe(Person{})
	r.MustDescribe(Person{})

	if got := strings.Join(seen, ","); got != "Car,Person" {
		t.Errorf("hook calls = %s, want Car,Person", got)
	}
}

func TestRegistryConcurrentDescribe(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	metas := make([]*Meta, 16)
	for i := range metas {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			metas[i] = r.MustDescribe(Person{})
		}(i)
	}
	wg.Wait()

	for _, m := range metas {
		if m != metas[0] {
			t.Fatal("concurrent Describe should return the same Meta")
		}
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistryLogger(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry()
	r.SetLogger(zerolog.New(&buf).Level(zerolog.ErrorLevel))

	meta := r.MustDescribe(Employee{})
	meta.FromDict(map[string]any{"age": "x"})
	if buf.Len() != 0 {
		t.Errorf("warnings should be filtered by level, got %s", buf.String())
	}
}

func TestBroadcast(t *testing.T) {
	r := NewRegistry()
	r.MustDescribe(Person{})

	var kinds []string
	err := Broadcast(r, func(k kinded) error {
		kinds = append(kinds, k.Kind())
		return nil
	})
	if err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}
	if strings.Join(kinds, ",") != "vehicle" {
		t.Errorf("Broadcast() called %v, want [vehicle]", kinds)
	}

	stop := errors.New("stop")
	if err := Broadcast(r, func(kinded) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("Broadcast() error = %v, want %v", err, stop)
	}

	r.MustDescribe(Account{})
	kinds = nil
	err = Broadcast(r, func(k kinded) error {
		kinds = append(kinds, k.Kind())
		return nil
	})
	var ierr *InstanceMethodError
	if !errors.As(err, &ierr) {
		t.Fatalf("Broadcast() error = %v, want *InstanceMethodError", err)
	}
	if ierr.Class != "schema.Account" {
		t.Errorf("InstanceMethodError.Class = %s", ierr.Class)
	}
	if len(kinds) != 0 {
		t.Errorf("nothing should be called, got %v", kinds)
	}

	if err := Broadcast(r, func(int) error { return nil }); err == nil {
		t.Error("Broadcast with a non-interface capability should fail")
	}
}

func TestBehaviorString(t *testing.T) {
	tests := []struct {
		name string
		b    Behavior
		want string
	}{
		{"zero", Behavior{}, "lenient"},
		{"lenient", Lenient(), "lenient"},
		{"strict", StrictBehavior(), "strict, extras: raise"},
		{"ignore", Behavior{Extras: Ignore}, "extras: ignore"},
		{"ignored", Behavior{IgnoredExtras: []string{"b", "a"}}, "ignored extras: [a, b]"},
		{"hook", Behavior{Strict: true, Hook: func(*Meta) {}}, "strict, hook"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		text    string
		want    Policy
		wantErr bool
	}{
		{"", Warn, false},
		{"warn", Warn, false},
		{" Ignore ", Ignore, false},
		{"RAISE", Raise, false},
		{"explode", Warn, true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParsePolicy(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}

	if Policy(7).String() != "policy(7)" {
		t.Errorf("Policy(7).String() = %s", Policy(7).String())
	}
}
