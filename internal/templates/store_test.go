package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/metrics"
)

type reloadCounter struct {
	metrics.NoopRecorder
	ok, failed int
}

func (r *reloadCounter) IncTemplateReload(success bool) {
	if success {
		r.ok++
	} else {
		r.failed++
	}
}

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
}

func TestStoreEmbeddedDefaults(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)

	set := store.Load()
	for _, name := range []string{"rustdoc/head.html", "rustdoc/vendored.html", "rustdoc/body.html", "rustdoc/header.html"} {
		assert.True(t, set.Has(name), name)
		_, err := set.Render(name, Context{})
		require.NoError(t, err, name)
	}

	out, err := set.Render("rustdoc/header.html", Context{"krate": "serde", "version": "1.0.0"})
	require.NoError(t, err)
	assert.Contains(t, out, `href="/serde/"`)
	assert.Contains(t, out, "1.0.0")
}

func TestStoreDirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "rustdoc/header.html", `<header>{{ .krate }}</header>`)
	writeTemplate(t, dir, "extra.html", `extra`)
	writeTemplate(t, dir, "notes.txt", `ignored`)

	store, err := NewStore(dir)
	require.NoError(t, err)

	set := store.Load()
	out, err := set.Render("rustdoc/header.html", Context{"krate": "rand"})
	require.NoError(t, err)
	assert.Equal(t, "<header>rand</header>", out)
	assert.True(t, set.Has("rustdoc/head.html"))
	assert.True(t, set.Has("extra.html"))
	assert.False(t, set.Has("notes.txt"))
}

func TestStoreMissingDirectory(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryNotFound, derrors.GetCategory(err))
}

func TestStoreReload(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "rustdoc/body.html", `v1`)
	store, err := NewStore(dir)
	require.NoError(t, err)
	counter := &reloadCounter{}
	store.WithRecorder(counter)
	first := store.Load()

	require.NoError(t, store.Reload())
	assert.Same(t, first, store.Load(), "unchanged sources keep the snapshot")

	writeTemplate(t, dir, "rustdoc/body.html", `v2`)
	require.NoError(t, store.Reload())
	out, err := store.Load().Render("rustdoc/body.html", Context{})
	require.NoError(t, err)
	assert.Equal(t, "v2", out)
	assert.NotEqual(t, first.Fingerprint(), store.Load().Fingerprint())
	assert.Equal(t, 1, counter.ok)

	// The old snapshot is untouched.
	out, err = first.Render("rustdoc/body.html", Context{})
	require.NoError(t, err)
	assert.Equal(t, "v1", out)
}

func TestStoreReloadFailureKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "rustdoc/body.html", `ok`)
	store, err := NewStore(dir)
	require.NoError(t, err)
	counter := &reloadCounter{}
	store.WithRecorder(counter)
	before := store.Load()

	writeTemplate(t, dir, "rustdoc/body.html", `{{ broken`)
	err = store.Reload()
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryTemplate, derrors.GetCategory(err))
	assert.Same(t, before, store.Load())
	assert.Equal(t, 1, counter.failed)
}
