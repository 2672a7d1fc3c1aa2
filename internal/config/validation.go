package config

import (
	"fmt"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
)

// Validate checks the configuration and returns the first problem as a
// config error.
func (c *Config) Validate() error {
	if c.Rewrite.MaxMemory <= 0 {
		return invalid("rewrite.max_memory", "must be positive", c.Rewrite.MaxMemory)
	}
	if c.Templates.Watch && c.Templates.Dir == "" {
		return invalid("templates.watch", "requires templates.dir", c.Templates.Watch)
	}
	if c.Templates.ReloadInterval < 0 {
		return invalid("templates.reload_interval", "must not be negative", c.Templates.ReloadInterval)
	}
	if c.Templates.ReloadInterval > 0 && c.Templates.Dir == "" {
		return invalid("templates.reload_interval", "requires templates.dir", c.Templates.ReloadInterval)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return invalid("server", "timeouts must not be negative", c.Server.ReadTimeout)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return invalid("logging.level", "unknown level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case LogFormatJSON, LogFormatText:
	default:
		return invalid("logging.format", "must be json or text", c.Logging.Format)
	}
	return nil
}

func invalid(field, problem string, value any) error {
	return derrors.ConfigError(field+" "+problem).
		WithContext("field", field).
		WithContext("value", fmt.Sprint(value)).
		Build()
}
