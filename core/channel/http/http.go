// Package http exposes described types over HTTP: introspection, document
// validation and, when a store is configured, stored documents.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/schemata/adapters/metrics"
	"github.com/artpar/schemata/core/schema"
	"github.com/artpar/schemata/core/serialize"
	"github.com/artpar/schemata/ports"
)

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Options configures the channel.
type Options struct {
	Logger zerolog.Logger

	// Metrics enables the request metrics middleware and the metrics endpoint.
	Metrics *metrics.Collector

	// Gatherer is served on MetricsPath, prometheus.DefaultGatherer when nil.
	Gatherer    prometheus.Gatherer
	MetricsPath string

	// IDs generates request ids, chi's generator when nil.
	IDs ports.IDGenerator

	// Store enables the /documents routes.
	Store ports.FileStore

	MaxBodyBytes int64
	Timeout      time.Duration
}

// Channel serves the described types of a registry.
type Channel struct {
	router   chi.Router
	registry *schema.Registry
	logger   zerolog.Logger
	opts     Options
}

// New creates the channel and its routes.
func New(registry *schema.Registry, opts Options) *Channel {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	c := &Channel{
		router:   chi.NewRouter(),
		registry: registry,
		logger:   opts.Logger,
		opts:     opts,
	}
	c.routes()
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "http"
}

// Handler returns the HTTP handler.
func (c *Channel) Handler() http.Handler {
	return c.router
}

func (c *Channel) routes() {
	r := c.router

	// Middleware
	if c.opts.IDs != nil {
		r.Use(RequestIDMiddleware(c.opts.IDs))
	} else {
		r.Use(middleware.RequestID)
	}
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(c.logger, c.opts.MetricsPath))
	r.Use(middleware.Recoverer)
	if c.opts.Timeout > 0 {
		r.Use(middleware.Timeout(c.opts.Timeout))
	}
	if c.opts.Metrics != nil {
		r.Use(MetricsMiddleware(c.opts.Metrics, c.opts.MetricsPath))
	}

	r.Get("/health", c.handleHealth)

	if c.opts.Metrics != nil {
		gatherer := c.opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle(c.opts.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	schemas := NewSchemaHandler(c.registry)
	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", schemas.listSchemas)
		r.Get("/{name}", schemas.getSchema)
		r.Post("/{name}/validate", c.handleValidate)
	})

	if c.opts.Store != nil {
		r.Get("/documents", c.handleListDocuments)
		r.Get("/documents/{name}/*", c.handleGetDocument)
		r.Put("/documents/{name}/*", c.handlePutDocument)
	}
}

func (c *Channel) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"schemas": c.registry.Len(),
	})
}

// handleValidate handles POST /schemas/{name}/validate.
// The body is loaded into the type and the normalized document is returned.
func (c *Channel) handleValidate(w http.ResponseWriter, r *http.Request) {
	meta, ok := c.lookup(w, r)
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

	writeJSON(w, http.StatusOK, map[string]any{
		"schema":   meta.QualifiedName(),
		"document": meta.ToDict(obj, false),
	})
}

func (c *Channel) lookup(w http.ResponseWriter, r *http.Request) (*schema.Meta, bool) {
	name := chi.URLParam(r, "name")
	meta, ok := c.registry.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown schema %q", name))
		return nil, false
	}
	return meta, true
}

// readDocument decodes the request body as a JSON object, or YAML when the
// content type says so.
func (c *Channel) readDocument(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, c.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return nil, false
	}

	name := "body.json"
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		name = "body.yaml"
	}

	data, err := serialize.Decode(name, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid document: %w", err))
		return nil, false
	}
	doc, ok := data.(map[string]any)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid document: expecting an object"))
		return nil, false
	}
	return doc, true
}

// writeLoadError maps load failures to 422 with the failure details.
func writeLoadError(w http.ResponseWriter, err error) {
	var mismatch *schema.ValidationError
	var extras *schema.ExtrasError
	switch {
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     err.Error(),
			"class":     mismatch.Class,
			"attribute": mismatch.Attribute,
			"expected":  mismatch.Expected,
			"actual":    mismatch.Actual,
		})
	case errors.As(err, &extras):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  err.Error(),
			"class":  extras.Class,
			"extras": extras.Keys,
		})
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}
