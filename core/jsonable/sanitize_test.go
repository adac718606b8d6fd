package jsonable

import (
	"reflect"
	"testing"
	"time"
)

type point struct{ X, Y int }

func (p point) ToDict(keepNone bool) map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

type boom struct{}

func (boom) String() string { panic("no text for you") }

func TestSanitizeScalars(t *testing.T) {
	type level string

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"nil", nil, nil},
		{"string", "a", "a"},
		{"named string", level("debug"), "debug"},
		{"int", 5, 5},
		{"int8", int8(5), int64(5)},
		{"float", 1.5, 1.5},
		{"bool", true, true},
		{"bytes", []byte("abc"), "abc"},
		{"nil pointer", (*point)(nil), nil},
		{"pointer", func() any { s := "x"; return &s }(), "x"},
		{"date", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), "2019-01-01"},
		{"datetime", time.Date(2019, 1, 1, 10, 20, 30, 0, time.UTC), "2019-01-01T10:20:30Z"},
		{"struct fallback", struct{ A int }{1}, "{1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.value, Options{})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sanitize(%v) = %#v, want %#v", tt.value, got, tt.want)
			}
		})
	}
}

func TestSanitizeCollections(t *testing.T) {
	t.Run("sets become sorted lists", func(t *testing.T) {
		got := Sanitize(map[string]struct{}{"b": {}, "a": {}}, Options{})
		if !reflect.DeepEqual(got, []any{"a", "b"}) {
			t.Errorf("Sanitize(set) = %v", got)
		}
	})

	t.Run("nil elements dropped", func(t *testing.T) {
		got := Sanitize([]any{1, nil, "a"}, Options{})
		if !reflect.DeepEqual(got, []any{1, "a"}) {
			t.Errorf("Sanitize() = %v", got)
		}

		got = Sanitize([]any{1, nil}, Options{KeepNone: true})
		if !reflect.DeepEqual(got, []any{1, nil}) {
			t.Errorf("Sanitize(keepNone) = %v", got)
		}
	})

	t.Run("arrays", func(t *testing.T) {
		got := Sanitize([2]int{1, 2}, Options{})
		if !reflect.DeepEqual(got, []any{1, 2}) {
			t.Errorf("Sanitize(array) = %v", got)
		}
	})

	t.Run("map keys and values", func(t *testing.T) {
		value := map[any]any{
			1:     "one",
			"a":   nil,
			nil:   "none",
			"pt":  point{1, 2},
			"set": map[int]struct{}{3: {}, 1: {}},
		}
		want := map[string]any{
			"1":    "one",
			"null": "none",
			"pt":   map[string]any{"x": 1, "y": 2},
			"set":  []any{1, 3},
		}
		if got := Sanitize(value, Options{}); !reflect.DeepEqual(got, want) {
			t.Errorf("Sanitize() = %#v, want %#v", got, want)
		}
	})

	t.Run("keep none and custom none key", func(t *testing.T) {
		got := Sanitize(map[any]any{nil: 1, "a": nil}, Options{KeepNone: true, NoneKey: "~"})
		want := map[string]any{"~": 1, "a": nil}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Sanitize() = %v, want %v", got, want)
		}
	})
}

func TestSanitizeOptions(t *testing.T) {
	now := time.Date(2020, 2, 3, 4, 5, 6, 0, time.UTC)
	if got := Sanitize(now, Options{KeepDates: true}); got != now {
		t.Errorf("Sanitize(KeepDates) = %v, want %v", got, now)
	}

	ch := make(chan int)
	if got := Sanitize(ch, Options{KeepUnknown: true}); got != any(ch) {
		t.Errorf("Sanitize(KeepUnknown) = %v", got)
	}

	type car struct{ Make string }
	expand := func(v any) (map[string]any, bool) {
		c, ok := v.(*car)
		if !ok {
			return nil, false
		}
		return map[string]any{"make": c.Make}, true
	}
	got := Sanitize([]any{&car{"Honda"}}, Options{Expand: expand})
	if !reflect.DeepEqual(got, []any{map[string]any{"make": "Honda"}}) {
		t.Errorf("Sanitize(Expand) = %v", got)
	}
}

func TestSanitizeIsTotal(t *testing.T) {
	if got := Sanitize(boom{}, Options{}); got != "<jsonable.boom>" {
		t.Errorf("Sanitize(boom) = %v", got)
	}

	deep := any("leaf")
	for i := 0; i < 200; i++ {
		deep = []any{deep}
	}
	if Sanitize(deep, Options{}) == nil {
		t.Error("Sanitize(deep) = nil")
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		value time.Time
		want  string
	}{
		{time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), "2019-01-01"},
		{time.Date(2019, 1, 1, 0, 0, 0, 1, time.UTC), "2019-01-01T00:00:00.000000001Z"},
		{time.Date(2019, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600)), "2019-01-01T00:00:00+01:00"},
	}

	for _, tt := range tests {
		if got := FormatTime(tt.value); got != tt.want {
			t.Errorf("FormatTime(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
