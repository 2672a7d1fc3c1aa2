package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "docchrome.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "templates:\n  dir: ./tpl\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxMemory, cfg.Rewrite.MaxMemory)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./doc", cfg.Server.DocsRoot)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, "./tpl", cfg.Templates.Dir)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCCHROME_TEST_ROOT", "/srv/docs")
	cfg, err := Load(writeConfig(t, "server:\n  docs_root: ${DOCCHROME_TEST_ROOT}\n  read_timeout: 2s\n"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/docs", cfg.Server.DocsRoot)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
}

func TestByteSize(t *testing.T) {
	cases := map[string]ByteSize{
		"1024":   1024,
		"5MiB":   5 << 20,
		"512 kB": 512000,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "rewrite:\n  max_memory: "+raw+"\n"))
			require.NoError(t, err)
			assert.Equal(t, want, cfg.Rewrite.MaxMemory)
		})
	}
	assert.Equal(t, "5.0 MiB", DefaultMaxMemory.String())
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"negative memory":   "rewrite:\n  max_memory: -1\n",
		"bad size":          "rewrite:\n  max_memory: lots\n",
		"watch without dir": "templates:\n  watch: true\n",
		"poll without dir":  "templates:\n  reload_interval: 1m\n",
		"bad level":         "logging:\n  level: chatty\n",
		"bad format":        "logging:\n  format: xml\n",
		"bad yaml":          "rewrite: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			assert.Equal(t, derrors.CategoryConfig, derrors.GetCategory(err))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryConfig, derrors.GetCategory(err))
}

func TestInitRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "docchrome.yaml")
	require.NoError(t, Init(p, false))

	err := Init(p, false)
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryValidation, derrors.GetCategory(err))
	require.NoError(t, Init(p, true))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxMemory, cfg.Rewrite.MaxMemory)
	assert.True(t, cfg.Templates.Watch)
	assert.Equal(t, "docs", cfg.Templates.Context["site_name"])
}

func TestSlogLevel(t *testing.T) {
	lvl, err := LoggingConfig{Level: "DEBUG"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", lvl.String())
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat(" JSON "))
	assert.Equal(t, LogFormatText, NormalizeLogFormat("pretty"))
}
