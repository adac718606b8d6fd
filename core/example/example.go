// Package example declares the sample types the schemata binary ships with.
package example

import (
	"time"

	"github.com/artpar/schemata/core/schema"
)

// Car warns about undeclared keys, except foo and bar.
type Car struct {
	Make string
	Year int
}

// Hat drops undeclared keys silently.
type Hat struct {
	Size int `schema:",default=1"`
}

// Person follows the registry's default behavior.
type Person struct {
	Age       time.Time
	FirstName string
	LastName  string
	Car       *Car
	Hat       Hat
}

// Employee extends Person.
type Employee struct {
	Person
	Company string
	Badge   string `schema:"badge,id"`
}

// Register describes the sample types in r.
func Register(r *schema.Registry) error {
	hook := func(m *schema.Meta) {
		logger := r.Logger()
		logger.Debug().Str("class", m.QualifiedName()).Int("attributes", len(m.Attributes())).Msg("described")
	}

	if _, err := r.Describe(Car{}, schema.WithBehavior(schema.Behavior{
		Extras:        schema.Warn,
		IgnoredExtras: []string{"foo", "bar"},
		Hook:          hook,
	})); err != nil {
		return err
	}
	if _, err := r.Describe(Hat{}, schema.WithBehavior(schema.Behavior{Extras: schema.Ignore, Hook: hook})); err != nil {
		return err
	}
	if _, err := r.Describe(Person{FirstName: "joe", LastName: "smith"}); err != nil {
		return err
	}
	_, err := r.Describe(Employee{Person: Person{FirstName: "joe", LastName: "smith"}})
	return err
}
