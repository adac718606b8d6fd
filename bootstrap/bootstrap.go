// Package bootstrap wires the configured document store, metrics and HTTP
// channel around a schema registry, and applies configuration reloads.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/artpar/schemata/adapters/clock"
	"github.com/artpar/schemata/adapters/filestore"
	"github.com/artpar/schemata/adapters/idgen"
	"github.com/artpar/schemata/adapters/memory"
	"github.com/artpar/schemata/adapters/metrics"
	"github.com/artpar/schemata/adapters/sqlite"
	"github.com/artpar/schemata/config"
	httpChannel "github.com/artpar/schemata/core/channel/http"
	"github.com/artpar/schemata/core/schema"
	"github.com/artpar/schemata/core/serialize"
	"github.com/artpar/schemata/ports"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Registry   *schema.Registry
	Store      ports.FileStore
	DB         *sqlite.DB
	Metrics    *metrics.Collector
	Gatherer   prometheus.Gatherer
	HTTPServer *http.Server

	logOut io.Writer
}

// Options tunes New.
type Options struct {
	// LogOutput receives log lines, stderr when nil.
	LogOutput io.Writer

	// Registry holds the described types, a new registry when nil.
	Registry *schema.Registry

	// Register describes the application's types.
	Register func(r *schema.Registry) error
}

// NewFromFile loads the configuration at path, or from the environment
// when path doesn't exist, and creates the application.
func NewFromFile(path string, opts Options) (*App, error) {
	logger := config.NewLogger(config.LoggingConfig{}, opts.LogOutput)

	var holder *config.Holder
	if _, err := os.Stat(path); path != "" && err == nil {
		holder, err = config.NewHolder(path, logger)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return nil, err
		}
		holder = config.NewStatic(cfg, logger)
	}

	return New(holder, opts)
}

// New creates the application from the configuration in holder.
func New(holder *config.Holder, opts Options) (*App, error) {
	cfg := holder.Get()

	a := &App{
		Config:   holder,
		Registry: opts.Registry,
		logOut:   opts.LogOutput,
	}
	if a.Registry == nil {
		a.Registry = schema.NewRegistry()
	}

	if err := a.Apply(cfg); err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		a.initMetrics()
	}

	if opts.Register != nil {
		if err := opts.Register(a.Registry); err != nil {
			return nil, fmt.Errorf("register types: %w", err)
		}
	}

	if err := a.initStore(cfg); err != nil {
		return nil, err
	}

	a.initHTTPServer(cfg)

	holder.OnChange(func(c *config.Config) {
		if err := a.Apply(c); err != nil {
			a.Logger.Error().Err(err).Msg("failed to apply configuration")
			return
		}
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
		}
	})
	holder.OnError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})

	a.Logger.Info().
		Str("backend", cfg.Files.Backend).
		Str("behavior", a.Registry.DefaultBehavior().String()).
		Int("types", a.Registry.Len()).
		Msg("application initialized")
	return a, nil
}

// BehaviorFromConfig returns the default load behavior configured in cfg.
func BehaviorFromConfig(cfg config.SchemaConfig) (schema.Behavior, error) {
	extras, err := schema.ParsePolicy(cfg.Extras)
	if err != nil {
		return schema.Behavior{}, err
	}
	return schema.Behavior{
		Strict:        cfg.Strict,
		Extras:        extras,
		IgnoredExtras: append([]string(nil), cfg.IgnoredExtras...),
	}, nil
}

// Apply sets the reloadable parts of cfg: logging, the registry's default
// behavior and dry run mode.
func (a *App) Apply(cfg *config.Config) error {
	behavior, err := BehaviorFromConfig(cfg.Schema)
	if err != nil {
		return err
	}

	a.Logger = config.NewLogger(cfg.Logging, a.logOut)
	a.Registry.SetLogger(a.Logger)
	a.Registry.SetDefaultBehavior(behavior)

	if fs, ok := a.Store.(*filestore.Store); ok {
		fs.SetDryRun(cfg.Files.DryRun)
	}
	return nil
}

// SaveOptions returns the configured options for writing documents.
func (a *App) SaveOptions() serialize.Options {
	cfg := a.Config.Get()
	logger := a.Logger
	return serialize.Options{
		Indent:   cfg.Schema.Indent,
		KeepNone: cfg.Schema.KeepNone,
		Expand:   a.Registry.Expander(),
		Logger:   &logger,
	}
}

func (a *App) initMetrics() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.Metrics = metrics.NewWithRegistry(reg)
	a.Gatherer = reg
	a.Registry.SetObserver(a.Metrics)
}

func (a *App) initStore(cfg *config.Config) error {
	switch cfg.Files.Backend {
	case "sqlite":
		db, err := sqlite.Open(cfg.Files.SQLite)
		if err != nil {
			return err
		}
		if err := db.Migrate(context.Background()); err != nil {
			db.Close()
			return fmt.Errorf("migrate database: %w", err)
		}
		a.DB = db
		a.Store = sqlite.NewDocuments(db, clock.Real{})
		if cfg.Files.DryRun {
			a.Logger.Warn().Msg("dry run is only supported by the os backend")
		}
	case "memory":
		a.Store = memory.NewFiles()
	default:
		a.Store = filestore.New(cfg.Files.Root, cfg.Files.DryRun, a.Logger)
	}
	return nil
}

func (a *App) initHTTPServer(cfg *config.Config) {
	channel := httpChannel.New(a.Registry, httpChannel.Options{
		Logger:       a.Logger,
		Metrics:      a.Metrics,
		Gatherer:     a.Gatherer,
		MetricsPath:  cfg.Metrics.Path,
		IDs:          idgen.UUID{},
		Store:        a.Store,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Timeout:      cfg.Server.WriteTimeout,
	})

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      channel.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	if a.Config.Path() != "" {
		if err := a.Config.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config hot reload disabled")
		}
		a.Config.WatchSignals()
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Config != nil {
		a.Config.Stop()
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	// Close database
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}
