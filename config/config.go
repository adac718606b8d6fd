// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Schema  SchemaConfig  `yaml:"schema"`
	Files   FilesConfig   `yaml:"files"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SchemaConfig sets the registry-wide load behavior and output format.
type SchemaConfig struct {
	Strict        bool     `yaml:"strict"`
	Extras        string   `yaml:"extras"` // "warn", "ignore" or "raise"
	IgnoredExtras []string `yaml:"ignored_extras"`
	Indent        int      `yaml:"indent"` // negative for compact output
	KeepNone      bool     `yaml:"keep_none"`
}

// FilesConfig selects where documents are read from and saved to.
type FilesConfig struct {
	Backend string `yaml:"backend"` // "os", "sqlite" or "memory"
	Root    string `yaml:"root"`
	DryRun  bool   `yaml:"dry_run"`
	SQLite  string `yaml:"sqlite"` // database path for the sqlite backend
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file.
// Environment variables in the file are expanded, then SCHEMATA_* variables
// override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML content.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration from SCHEMATA_* environment variables only.
//
// Environment variables:
//
//	SCHEMATA_STRICT          - Reject mismatching documents (default: false)
//	SCHEMATA_EXTRAS          - Extras policy: warn, ignore or raise (default: warn)
//	SCHEMATA_INDENT          - JSON indentation, negative for compact (default: 2)
//	SCHEMATA_FILES_BACKEND   - Document store: os, sqlite or memory (default: os)
//	SCHEMATA_FILES_ROOT      - Root directory of the os backend
//	SCHEMATA_DRYRUN          - Log writes instead of performing them
//	SCHEMATA_SQLITE          - Database path of the sqlite backend (default: schemata.db)
//	SCHEMATA_SERVER_HOST     - Server host (default: 127.0.0.1)
//	SCHEMATA_SERVER_PORT     - Server port (default: 8080)
//	SCHEMATA_LOG_LEVEL       - Log level (default: info)
//	SCHEMATA_LOG_FORMAT      - Log format: json or console (default: console)
//	SCHEMATA_METRICS_ENABLED - Enable the metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists, the environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies SCHEMATA_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCHEMATA_STRICT"); v != "" {
		cfg.Schema.Strict = parseBool(v)
	}
	if v := os.Getenv("SCHEMATA_EXTRAS"); v != "" {
		cfg.Schema.Extras = v
	}
	if v := os.Getenv("SCHEMATA_INDENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Schema.Indent = n
		}
	}

	if v := os.Getenv("SCHEMATA_FILES_BACKEND"); v != "" {
		cfg.Files.Backend = v
	}
	if v := os.Getenv("SCHEMATA_FILES_ROOT"); v != "" {
		cfg.Files.Root = v
	}
	if v := os.Getenv("SCHEMATA_DRYRUN"); v != "" {
		cfg.Files.DryRun = parseBool(v)
	}
	if v := os.Getenv("SCHEMATA_SQLITE"); v != "" {
		cfg.Files.SQLite = v
	}

	if v := os.Getenv("SCHEMATA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SCHEMATA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SCHEMATA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCHEMATA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SCHEMATA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Schema.Extras == "" {
		cfg.Schema.Extras = "warn"
	}
	if cfg.Schema.Indent == 0 {
		cfg.Schema.Indent = 2
	}

	if cfg.Files.Backend == "" {
		cfg.Files.Backend = "os"
	}
	if cfg.Files.SQLite == "" {
		cfg.Files.SQLite = "schemata.db"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	validExtras := map[string]bool{"warn": true, "ignore": true, "raise": true}
	if !validExtras[strings.ToLower(cfg.Schema.Extras)] {
		return fmt.Errorf("schema.extras must be one of: warn, ignore, raise, got %q", cfg.Schema.Extras)
	}

	validBackends := map[string]bool{"os": true, "sqlite": true, "memory": true}
	if !validBackends[cfg.Files.Backend] {
		return fmt.Errorf("files.backend must be one of: os, sqlite, memory, got %q", cfg.Files.Backend)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
