package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docchrome/internal/config"
	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
)

const page = `<html><head></head><body class="foo">X</body></html>`

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kong.Vars{"version": "test"}, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	return parser
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "docchrome.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseRewriteFlags(t *testing.T) {
	cli := &CLI{}
	parser := newParser(t, cli)

	kctx, err := parser.Parse([]string{
		"-c", "x.yaml", "rewrite", "in.html", "-o", "out.html",
		"--charset", "latin1", "--context", "krate=serde", "--context", "version=1.0.0",
		"--max-memory", "2MiB",
	})
	require.NoError(t, err)
	assert.Equal(t, "rewrite <input>", kctx.Command())
	assert.Equal(t, "x.yaml", cli.Config)
	assert.Equal(t, "in.html", cli.Rewrite.Input)
	assert.Equal(t, "out.html", cli.Rewrite.Output)
	assert.Equal(t, "latin1", cli.Rewrite.Charset)
	assert.Equal(t, map[string]string{"krate": "serde", "version": "1.0.0"}, cli.Rewrite.Context)
	assert.Equal(t, "2MiB", cli.Rewrite.MaxMemory)
}

func TestParseDefaults(t *testing.T) {
	cli := &CLI{}
	parser := newParser(t, cli)

	_, err := parser.Parse([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPath, cli.Config)
	assert.False(t, cli.Verbose)
}

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()

	cli := &CLI{}
	l := cli.newLogger(config.LoggingConfig{Level: "warn"})
	assert.False(t, l.Enabled(ctx, slog.LevelInfo))
	assert.True(t, l.Enabled(ctx, slog.LevelWarn))

	l = cli.newLogger(config.LoggingConfig{Level: "nonsense"})
	assert.True(t, l.Enabled(ctx, slog.LevelInfo))
	assert.False(t, l.Enabled(ctx, slog.LevelDebug))

	cli.Verbose = true
	l = cli.newLogger(config.LoggingConfig{Level: "error"})
	assert.True(t, l.Enabled(ctx, slog.LevelDebug))
}

func TestApplyLoggingFlagsWinOverConfig(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cli := &CLI{LogLevel: "error"}
	cfg := config.Default()
	cfg.Logging.Level = "debug"

	l := cli.applyLogging(cfg)
	assert.False(t, l.Enabled(context.Background(), slog.LevelWarn))
	assert.Same(t, l, slog.Default())
}

func TestRewriteToStdout(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(in, []byte(page), 0o600))

	var stdout bytes.Buffer
	cmd := &RewriteCmd{Input: in, Charset: "utf-8", Context: map[string]string{"krate": "serde"}}
	root := &CLI{Config: writeConfig(t, dir, "templates:\n  context:\n    site_name: mysite\n")}

	require.NoError(t, cmd.Run(&Global{Stdout: &stdout}, root))
	out := stdout.String()
	assert.Contains(t, out, `<div id="rustdoc_body_wrapper" class="foo container-rustdoc" tabindex="-1">`)
	assert.Contains(t, out, `>mysite</a>`)
	assert.Contains(t, out, `href="/serde/"`)
	assert.Contains(t, out, "X</div></body></html>")
}

func TestRewriteToFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "index.html")
	outPath := filepath.Join(dir, "out.html")
	require.NoError(t, os.WriteFile(in, []byte(page), 0o600))

	cmd := &RewriteCmd{Input: in, Output: outPath, Charset: "utf-8"}
	root := &CLI{Config: writeConfig(t, dir, "rewrite:\n  max_memory: 1MiB\n")}
	require.NoError(t, cmd.Run(&Global{Stdout: &bytes.Buffer{}}, root))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(got), `id="rustdoc_body_wrapper"`)
}

func TestRewriteErrors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(in, []byte(page), 0o600))
	cfgPath := writeConfig(t, dir, "")

	tests := []struct {
		name string
		cmd  RewriteCmd
		want derrors.ErrorCategory
	}{
		{"missing input", RewriteCmd{Input: filepath.Join(dir, "nope.html"), Charset: "utf-8"}, derrors.CategoryFileSystem},
		{"unknown charset", RewriteCmd{Input: in, Charset: "klingon"}, derrors.CategoryValidation},
		{"bad max memory", RewriteCmd{Input: in, Charset: "utf-8", MaxMemory: "lots"}, derrors.CategoryValidation},
		{"tiny max memory", RewriteCmd{Input: in, Charset: "utf-8", MaxMemory: "8B"}, derrors.CategoryMemoryLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Run(&Global{Stdout: &bytes.Buffer{}}, &CLI{Config: cfgPath})
			require.Error(t, err)
			assert.True(t, derrors.HasCategory(err, tt.want), "got %v", err)
		})
	}
}

func TestRewriteMissingConfig(t *testing.T) {
	cmd := &RewriteCmd{Input: "x.html", Charset: "utf-8"}
	err := cmd.Run(&Global{Stdout: &bytes.Buffer{}}, &CLI{Config: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
}

func TestDecodeInput(t *testing.T) {
	out, err := decodeInput([]byte("caf\xe9"), "latin1")
	require.NoError(t, err)
	assert.Equal(t, "café", string(out))

	out, err = decodeInput([]byte{0xff, 0xfe, 'a', 0, '<', 0}, "utf-16le")
	require.NoError(t, err)
	assert.Equal(t, "a<", string(out))

	src := []byte("already utf-8 é")
	out, err = decodeInput(src, "UTF8")
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	g := &Global{Stdout: &stdout}

	require.NoError(t, (&InitCmd{Output: dir}).Run(g, &CLI{}))
	assert.Contains(t, stdout.String(), "initialized successfully")

	cfg, err := config.Load(filepath.Join(dir, config.DefaultPath))
	require.NoError(t, err)
	assert.True(t, cfg.Templates.Watch)

	err = (&InitCmd{Output: dir}).Run(g, &CLI{})
	assert.True(t, derrors.HasCategory(err, derrors.CategoryValidation))
	require.NoError(t, (&InitCmd{Output: dir, Force: true}).Run(g, &CLI{}))
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, VersionCmd{}.Run(&Global{Stdout: &stdout}))
	assert.Contains(t, stdout.String(), "docchrome ")
}

func TestRunServeStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.DocsRoot = t.TempDir()
	cfg.Templates.ReloadInterval = 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, RunServe(ctx, cfg, slog.New(slog.DiscardHandler)))
}

func TestRunServeWatchNeedsDir(t *testing.T) {
	cfg := config.Default()
	cfg.Server.DocsRoot = t.TempDir()
	cfg.Templates.Watch = true

	err := RunServe(context.Background(), cfg, slog.New(slog.DiscardHandler))
	assert.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
}

func TestRunServeWithTemplateReloading(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.DocsRoot = t.TempDir()
	cfg.Templates.Dir = t.TempDir()
	cfg.Templates.Watch = true
	cfg.Templates.ReloadInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, RunServe(ctx, cfg, slog.New(slog.DiscardHandler)))
}
