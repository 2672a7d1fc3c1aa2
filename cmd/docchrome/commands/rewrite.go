package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"git.home.luguber.info/inful/docchrome/internal/config"
	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
	"git.home.luguber.info/inful/docchrome/internal/rustdoc"
	"git.home.luguber.info/inful/docchrome/internal/templates"
)

// RewriteCmd implements the 'rewrite' command.
type RewriteCmd struct {
	Input     string            `arg:"" help:"rustdoc HTML page to rewrite"`
	Output    string            `short:"o" help:"Write the result to this file instead of stdout"`
	Charset   string            `help:"Encoding of the input page (any WHATWG label)" default:"utf-8"`
	Context   map[string]string `help:"Extra template context as key=value (repeatable)"`
	MaxMemory string            `name:"max-memory" help:"Memory ceiling for the rewrite, e.g. 8MiB (overrides rewrite.max_memory)"`
}

func (r *RewriteCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	logger := root.applyLogging(cfg)

	limit := int(cfg.Rewrite.MaxMemory)
	if r.MaxMemory != "" {
		n, err := humanize.ParseBytes(r.MaxMemory)
		if err != nil {
			return derrors.WrapError(err, derrors.CategoryValidation, "invalid --max-memory").
				WithContext("value", r.MaxMemory).
				Build()
		}
		limit = int(n) //nolint:gosec // bounded by user input on the command line
	}

	store, err := templates.NewStore(cfg.Templates.Dir)
	if err != nil {
		return err
	}

	src, err := os.ReadFile(r.Input)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "read input page").
			WithContext("path", r.Input).
			Build()
	}
	src, err = decodeInput(src, r.Charset)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := rustdoc.RewritePage(src, limit, r.templateContext(cfg), store)
	if err != nil {
		logger.Error("Rewrite failed",
			logfields.Page(r.Input),
			logfields.Category(string(derrors.GetCategory(err))),
			logfields.MemoryLimit(limit))
		return err
	}
	logger.Info("Page rewritten",
		logfields.Page(r.Input),
		logfields.BytesIn(len(src)),
		logfields.BytesOut(len(out)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))

	return r.writeOutput(g, out)
}

// templateContext layers the configured context, the page name and the
// --context flags, in that order.
func (r *RewriteCmd) templateContext(cfg *config.Config) templates.Context {
	ctx := templates.Context(cfg.Templates.Context).Merge(nil)
	ctx.Insert("page_path", filepath.ToSlash(r.Input))
	for k, v := range r.Context {
		ctx.Insert(k, v)
	}
	return ctx
}

func (r *RewriteCmd) writeOutput(g *Global, out []byte) error {
	if r.Output == "" {
		if _, err := g.Stdout.Write(out); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "write output").Build()
		}
		return nil
	}
	if err := os.WriteFile(r.Output, out, 0o644); err != nil { //nolint:gosec // rewritten pages are public documents
		return derrors.WrapError(err, derrors.CategoryFileSystem, "write output page").
			WithContext("path", r.Output).
			Build()
	}
	slog.Debug("Wrote output", logfields.Path(r.Output))
	return nil
}

// decodeInput transcodes src from the encoding named by label to UTF-8.
func decodeInput(src []byte, label string) ([]byte, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryValidation, "unknown charset").
			WithContext("charset", label).
			Build()
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return src, nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), src)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryMarkup, "input could not be decoded").
			WithContext("charset", label).
			Build()
	}
	// A UTF-16 decoder may leave the byte order mark in place.
	return bytes.TrimPrefix(out, []byte("\ufeff")), nil
}
