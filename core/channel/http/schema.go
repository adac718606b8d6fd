package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/schemata/core/schema"
)

// SchemaHandler handles schema introspection requests.
type SchemaHandler struct {
	registry *schema.Registry
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(registry *schema.Registry) *SchemaHandler {
	return &SchemaHandler{registry: registry}
}

// listSchemas handles GET /schemas
func (h *SchemaHandler) listSchemas(w http.ResponseWriter, r *http.Request) {
	metas := h.registry.List()
	resp := schema.SchemaListResponse{
		Schemas: make([]schema.SchemaSummary, 0, len(metas)),
		Count:   len(metas),
	}
	for _, m := range metas {
		resp.Schemas = append(resp.Schemas, m.Summary())
	}
	writeJSON(w, http.StatusOK, resp)
}

// getSchema handles GET /schemas/{name}
func (h *SchemaHandler) getSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, ok := h.registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown schema %q", name))
		return
	}
	writeJSON(w, http.StatusOK, m.Introspect())
}
