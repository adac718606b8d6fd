package schema

import (
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/schemata/ports"
)

// Registry holds the Meta of every described type.
// Lookups work by simple name ("Widget"), package-qualified name
// ("pkg.Widget") and import path qualified name ("github.com/x/pkg.Widget").
type Registry struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]*Meta
	byName  map[string]*Meta
	metas   []*Meta
	pending map[reflect.Type]*Meta

	cfgMu    sync.RWMutex
	behavior Behavior
	logger   zerolog.Logger
	observer ports.SchemaObserver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType:   make(map[reflect.Type]*Meta),
		byName:   make(map[string]*Meta),
		pending:  make(map[reflect.Type]*Meta),
		logger:   zerolog.Nop(),
		observer: nopObserver{},
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by the package-level functions.
func Default() *Registry {
	return defaultRegistry
}

// Describe describes the struct type of prototype in the default registry.
// See Registry.Describe.
func Describe(prototype any, opts ...Option) (*Meta, error) {
	return defaultRegistry.Describe(prototype, opts...)
}

// MustDescribe is like Describe but panics on a declaration error.
// It is meant for package-level variable initialization.
func MustDescribe(prototype any, opts ...Option) *Meta {
	m, err := Describe(prototype, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Lookup finds a Meta by name in the default registry.
func Lookup(name string) (*Meta, bool) {
	return defaultRegistry.Lookup(name)
}

// SetLogger sets the logger of the default registry.
func SetLogger(l zerolog.Logger) {
	defaultRegistry.SetLogger(l)
}

// SetObserver sets the observer of the default registry, nil removes it.
func SetObserver(o ports.SchemaObserver) {
	defaultRegistry.SetObserver(o)
}

// Describe returns the Meta of the struct type of prototype (a struct or a
// pointer to one), describing it on first use. Field values of prototype
// are the attribute defaults. Later calls for the same type return the
// same Meta and ignore opts.
func (r *Registry) Describe(prototype any, opts ...Option) (*Meta, error) {
	if prototype == nil {
		return nil, declarationError("", "can't describe nil")
	}

	proto := reflect.ValueOf(prototype)
	for proto.Kind() == reflect.Pointer {
		if proto.IsNil() {
			proto = reflect.Zero(proto.Type().Elem())
			continue
		}
		proto = proto.Elem()
	}
	if proto.Kind() != reflect.Struct {
		return nil, declarationError(proto.Type().String(), "only structs can be described")
	}

	var hooks []func()
	r.mu.Lock()
	m, err := r.describe(proto.Type(), proto, opts, &hooks)
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	for _, hook := range hooks {
		hook()
	}
	return m, nil
}

// MustDescribe is like Describe but panics on a declaration error.
func (r *Registry) MustDescribe(prototype any, opts ...Option) *Meta {
	m, err := r.Describe(prototype, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// register indexes m. The caller holds r.mu.
func (r *Registry) register(m *Meta) {
	r.byType[m.typ] = m
	r.metas = append(r.metas, m)
	r.byName[m.QualifiedName()] = m
	r.byName[m.FullName()] = m

	if existing, ok := r.byName[m.Name()]; ok && existing != m {
		logger := r.Logger()
		logger.Warn().
			Str("name", m.Name()).
			Str("kept", existing.FullName()).
			Str("ignored", m.FullName()).
			Msg("ambiguous schema name, use a qualified name")
		return
	}
	r.byName[m.Name()] = m
}

// Lookup finds a Meta by simple or qualified name.
func (r *Registry) Lookup(name string) (*Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byName[name]
	return m, ok
}

// LookupType finds the Meta of t, a struct type or a pointer to one.
func (r *Registry) LookupType(t reflect.Type) (*Meta, bool) {
	if t == nil {
		return nil, false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byType[t]
	return m, ok
}

// List returns every registered Meta sorted by qualified name.
func (r *Registry) List() []*Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := append([]*Meta(nil), r.metas...)
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].QualifiedName() != metas[j].QualifiedName() {
			return metas[i].QualifiedName() < metas[j].QualifiedName()
		}
		return metas[i].FullName() < metas[j].FullName()
	})
	return metas
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.metas)
}

// DefaultBehavior returns the behavior of types that don't declare one.
func (r *Registry) DefaultBehavior() Behavior {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.behavior
}

// SetDefaultBehavior sets the behavior of types that don't declare one.
func (r *Registry) SetDefaultBehavior(b Behavior) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.behavior = b
}

// Logger returns the logger used for load warnings.
func (r *Registry) Logger() zerolog.Logger {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.logger
}

// SetLogger sets the logger used for load warnings.
func (r *Registry) SetLogger(l zerolog.Logger) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.logger = l
}

// Observer returns the observer notified of load activity.
func (r *Registry) Observer() ports.SchemaObserver {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.observer
}

// SetObserver sets the observer notified of load activity, nil removes it.
func (r *Registry) SetObserver(o ports.SchemaObserver) {
	if o == nil {
		o = nopObserver{}
	}
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	r.observer = o
}

// expander renders instances of registered types as their raw attribute
// mappings while sanitizing.
func (r *Registry) expander() func(v any) (map[string]any, bool) {
	return func(v any) (map[string]any, bool) {
		m, ok := r.LookupType(reflect.TypeOf(v))
		if !ok {
			return nil, false
		}
		sv, ok := m.structValue(v)
		if !ok {
			return nil, false
		}
		return m.attributeValues(sv), true
	}
}

// Expander returns a jsonable.Options Expand hook rendering registered types.
func (r *Registry) Expander() func(v any) (map[string]any, bool) {
	return r.expander()
}

type nopObserver struct{}

func (nopObserver) DocumentLoaded(string)                  {}
func (nopObserver) AttributeMismatch(string, string, bool) {}
func (nopObserver) ExtrasFound(string, int)                {}
