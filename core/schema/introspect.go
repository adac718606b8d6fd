package schema

import (
	"github.com/artpar/schemata/core/jsonable"
	"github.com/artpar/schemata/core/types"
)

// Introspection types expose described types to clients, e.g. via
// GET /schemas and GET /schemas/{name}.

// SchemaListResponse is returned by GET /schemas
type SchemaListResponse struct {
	Schemas []SchemaSummary `json:"schemas"`
	Count   int             `json:"count"`
}

// SchemaSummary provides a brief overview of a described type.
type SchemaSummary struct {
	Name       string `json:"name"`
	Qualified  string `json:"qualified"`
	Attributes int    `json:"attributes"`
	Properties int    `json:"properties"`
}

// SchemaResponse is returned by GET /schemas/{name}
type SchemaResponse struct {
	Name       string              `json:"name"`
	Qualified  string              `json:"qualified"`
	Package    string              `json:"package"`
	Parent     string              `json:"parent,omitempty"`
	Identifier string              `json:"identifier,omitempty"`
	Behavior   string              `json:"behavior"`
	Attributes []AttributeSchema   `json:"attributes"`
	Properties []string            `json:"properties"`
	ByType     map[string][]string `json:"by_type"`
}

// AttributeSchema describes one attribute for introspection.
type AttributeSchema struct {
	Name       string   `json:"name"`
	Field      string   `json:"field"`
	Type       string   `json:"type"`
	Default    any      `json:"default,omitempty"`
	Identifier bool     `json:"identifier,omitempty"`
	Setter     bool     `json:"setter,omitempty"`
	Values     []string `json:"values,omitempty"` // enum options
	Nested     string   `json:"nested,omitempty"` // qualified name of a nested schema
}

// Summary returns the list entry for m.
func (m *Meta) Summary() SchemaSummary {
	return SchemaSummary{
		Name:       m.Name(),
		Qualified:  m.QualifiedName(),
		Attributes: len(m.attributes),
		Properties: len(m.properties),
	}
}

// Introspect returns the full description of m.
func (m *Meta) Introspect() SchemaResponse {
	resp := SchemaResponse{
		Name:       m.Name(),
		Qualified:  m.QualifiedName(),
		Package:    m.typ.PkgPath(),
		Behavior:   m.Behavior().String(),
		Attributes: make([]AttributeSchema, 0, len(m.attributes)),
		Properties: m.Properties(),
		ByType:     m.ByType(),
	}
	if m.parent != nil {
		resp.Parent = m.parent.QualifiedName()
	}
	if m.identifier != nil {
		resp.Identifier = m.identifier.Name
	}

	expand := m.registry.expander()
	for _, a := range m.attributes {
		as := AttributeSchema{
			Name:       a.Name,
			Field:      a.Field,
			Type:       a.Type.Text(),
			Identifier: a.IsIdentifier(),
			Setter:     a.HasSetter(),
		}
		if def := a.Default(); def != nil {
			as.Default = jsonable.Sanitize(def, jsonable.Options{Expand: expand})
		}

		t := types.Unwrap(a.Type)
		if id, ok := t.(*types.IdentifierType); ok {
			t = id.Subtype
		}
		switch d := t.(type) {
		case *types.EnumType:
			as.Values = d.Values()
		case *NestedType:
			as.Nested = d.meta.QualifiedName()
		}
		resp.Attributes = append(resp.Attributes, as)
	}
	return resp
}
