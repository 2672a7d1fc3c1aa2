package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docchrome/internal/config"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
)

// Global holds process-wide collaborators handed to every command.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"docchrome.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogLevel  string           `name:"log-level" env:"DOCCHROME_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	LogFormat string           `name:"log-format" env:"DOCCHROME_LOG_FORMAT" help:"Log format (text or json)"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Rewrite RewriteCmd `cmd:"" help:"Rewrite a single rustdoc page"`
	Serve   ServeCmd   `cmd:"" help:"Serve a rustdoc output tree, rewriting pages on the fly"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Info    VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	slog.SetDefault(c.newLogger(config.LoggingConfig{Level: c.LogLevel, Format: config.LogFormat(c.LogFormat)}))
	return nil
}

// applyLogging re-installs the default logger once the configuration file
// is known. Flags and environment still win over the file.
func (c *CLI) applyLogging(cfg *config.Config) *slog.Logger {
	lc := cfg.Logging
	if c.LogLevel != "" {
		lc.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		lc.Format = config.LogFormat(c.LogFormat)
	}
	logger := c.newLogger(lc)
	slog.SetDefault(logger)
	return logger
}

func (c *CLI) newLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	if lc.Level != "" {
		parsed, err := lc.SlogLevel()
		if err == nil {
			level = parsed
		} else {
			slog.Warn("Ignoring unknown log level", slog.String("level", lc.Level), logfields.Error(err))
		}
	}
	if c.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if config.NormalizeLogFormat(string(lc.Format)) == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
