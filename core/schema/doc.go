/*
Package schema turns plain Go structs into reusable schemas driving
validated conversion between objects and plain mappings.

# Describing a type

A type is described once, usually at package initialization:

	type Person struct {
		ID       string    `schema:"id,id"`
		Name     string    `schema:"name"`
		Age      int
		Tags     []string
		Birthday time.Time `schema:",type=date"`
	}

	var personMeta = schema.MustDescribe(Person{Name: "joe"})

Exported fields become attributes, in declaration order. The attribute name
is the first element of the `schema` tag, snake_case of the field name when
empty. Tag options:

  - type=<name>: explicit descriptor (any, string, integer, float, boolean,
    date, datetime, uuid, list, dict)
  - default=<text>: default value, converted by the attribute's descriptor
  - id: marks the identifier attribute, at most one per type
  - enum=a|b|c: accepts only the listed values

A `schema:"-"` tag skips a field. Non-zero field values of the prototype
are defaults. Embedded described structs are inherited: their attributes
come first, fields of the embedding struct override them by name.

# Loading and dumping

	p, err := personMeta.FromDict(map[string]any{"name": "ann", "age": "12"})
	data := personMeta.ToDict(p, false)

How mismatching values and undeclared keys are handled is governed by the
type's Behavior: lenient types log and coerce, strict ones fail with a
*ValidationError. Undeclared keys are ignored, logged, or rejected with an
*ExtrasError.
*/
package schema
