// Package metrics provides Prometheus metrics for schema loading and the HTTP channel.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/schemata/ports"
)

const namespace = "schemata"

// Collector holds all Prometheus metrics of schemata.
// It implements ports.SchemaObserver.
type Collector struct {
	// Load metrics
	DocumentsLoaded *prometheus.CounterVec
	Mismatches      *prometheus.CounterVec
	ExtraKeys       *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		DocumentsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_loaded_total",
				Help:      "Total number of documents loaded into described types",
			},
			[]string{"class"},
		),
		Mismatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attribute_mismatches_total",
				Help:      "Total number of attribute values not satisfying their type",
			},
			[]string{"class", "attribute", "strict"},
		),
		ExtraKeys: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extra_keys_total",
				Help:      "Total number of undeclared keys found in loaded documents",
			},
			[]string{"class"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
	}
}

// DocumentLoaded implements ports.SchemaObserver.
func (c *Collector) DocumentLoaded(class string) {
	c.DocumentsLoaded.WithLabelValues(class).Inc()
}

// AttributeMismatch implements ports.SchemaObserver.
func (c *Collector) AttributeMismatch(class, attribute string, strict bool) {
	c.Mismatches.WithLabelValues(class, attribute, strconv.FormatBool(strict)).Inc()
}

// ExtrasFound implements ports.SchemaObserver.
func (c *Collector) ExtrasFound(class string, count int) {
	c.ExtraKeys.WithLabelValues(class).Add(float64(count))
}

// StatusClass reduces an HTTP status code to its class, e.g. 404 gives "4xx".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}

var _ ports.SchemaObserver = (*Collector)(nil)
