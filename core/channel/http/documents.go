package http

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/schemata/core/schema"
	"github.com/artpar/schemata/core/serialize"
	"github.com/artpar/schemata/ports"
)

// handleListDocuments handles GET /documents?prefix=
func (c *Channel) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	lister, ok := c.opts.Store.(ports.DocumentLister)
	if !ok {
		writeError(w, http.StatusNotImplemented, errors.New("store can't list documents"))
		return
	}

	docs, err := lister.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	items := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		item := map[string]any{"path": d.Path, "size": d.Size}
		if !d.UpdatedAt.IsZero() {
			item["updated_at"] = d.UpdatedAt
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"count":     len(items),
	})
}

// handleGetDocument handles GET /documents/{name}/{path}.
// The stored document is loaded into the type and returned normalized.
func (c *Channel) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	meta, ok := c.lookup(w, r)
	if !ok {
		return
	}
	docPath, ok := documentPath(w, r)
	if !ok {
		return
	}

	obj, err := meta.FromJSON(r.Context(), c.opts.Store, docPath, nil, schema.Fatal())
	if err != nil {
		if schema.IsNotFound(err) {
			writeError(w, http.StatusNotFound, fmt.Errorf("document %s not found", docPath))
			return
		}
		writeLoadError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schema":   meta.QualifiedName(),
		"path":     docPath,
		"document": meta.ToDict(obj, false),
	})
}

// handlePutDocument handles PUT /documents/{name}/{path}.
// Only documents the type accepts are saved, in normalized form.
func (c *Channel) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	meta, ok := c.lookup(w, r)
	if !ok {
		return
	}
	docPath, ok := documentPath(w, r)
	if !ok {
		return
	}
	doc, ok := c.readDocument(w, r)
	if !ok {
		return
	}

	obj, err := meta.FromDict(doc, schema.Source("request"))
	if err != nil {
		writeLoadError(w, err)
		return
	}

	opts := serialize.Options{Logger: &c.logger}
	if err := meta.SaveJSON(r.Context(), c.opts.Store, obj, docPath, opts); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schema":   meta.QualifiedName(),
		"path":     docPath,
		"document": meta.ToDict(obj, false),
	})
}

// documentPath returns the cleaned document path, rejecting paths escaping the store.
func documentPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "*")
	clean := path.Clean("/" + raw)[1:]
	if raw == "" || clean == "" || strings.HasPrefix(raw, "/") || clean != strings.TrimSuffix(raw, "/") {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid document path %q", raw))
		return "", false
	}
	return clean, true
}
