package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
)

// DefaultPath is the config file used when none is given.
const DefaultPath = "docchrome.yaml"

// DefaultMaxMemory is the default rewrite memory ceiling (5 MiB).
const DefaultMaxMemory ByteSize = 5 << 20

// Config is the application configuration.
type Config struct {
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Templates TemplatesConfig `yaml:"templates"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// RewriteConfig bounds a single page rewrite.
type RewriteConfig struct {
	MaxMemory ByteSize `yaml:"max_memory"`
}

// TemplatesConfig selects fragment templates and how they are reloaded.
type TemplatesConfig struct {
	// Dir overrides the embedded templates file by file. Empty means embedded only.
	Dir string `yaml:"dir,omitempty"`
	// Watch reloads on file system notifications.
	Watch bool `yaml:"watch"`
	// ReloadInterval reloads on a timer; zero disables polling.
	ReloadInterval time.Duration `yaml:"reload_interval,omitempty"`
	// Context is merged into every render context.
	Context map[string]any `yaml:"context,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	DocsRoot     string        `yaml:"docs_root"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads the YAML config at path, expanding ${VAR} references after
// loading .env files. A missing file at the default path yields the defaults.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		slog.Debug("No config file, using defaults", logfields.Path(path))
		return cfg, cfg.Validate()
	case errors.Is(err, fs.ErrNotExist):
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "configuration file not found").
			WithContext("path", path).
			Build()
	case err != nil:
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "read configuration file").
			WithContext("path", path).
			Build()
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "parse configuration file").
			WithContext("path", path).
			Build()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Rewrite.MaxMemory == 0 {
		c.Rewrite.MaxMemory = DefaultMaxMemory
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.DocsRoot == "" {
		c.Server.DocsRoot = "./doc"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return derrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	example := Default()
	example.Templates = TemplatesConfig{
		Dir:   "./templates",
		Watch: true,
		Context: map[string]any{
			"site_name":   "docs",
			"static_root": "/-/static",
		},
	}

	data, err := yaml.Marshal(example)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // config file is meant to be readable
		return derrors.WrapError(err, derrors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).
			Build()
	}
	return nil
}

// loadEnvFiles loads .env and .env.local. Variables already set in the
// process environment win.
func loadEnvFiles() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", logfields.Path(p), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.Path(p))
	}
}
