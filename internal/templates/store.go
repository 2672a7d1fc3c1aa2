package templates

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
	"git.home.luguber.info/inful/docchrome/internal/metrics"
)

//go:embed defaults
var defaultsFS embed.FS

// templateExt is the suffix of files loaded as templates.
const templateExt = ".html"

// Store holds the current template Set. Load never blocks; Reload swaps in a
// new Set only when parsing succeeds.
type Store struct {
	dir      string
	current  atomic.Pointer[Set]
	mu       sync.Mutex
	recorder metrics.Recorder
}

// NewStore loads the embedded templates, overridden by the files under dir
// when dir is not empty.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir, recorder: metrics.NoopRecorder{}}
	set, err := s.parse()
	if err != nil {
		return nil, err
	}
	s.current.Store(set)
	return s, nil
}

// WithRecorder sets the metrics recorder used for reloads.
func (s *Store) WithRecorder(r metrics.Recorder) *Store {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Dir returns the override directory, or "" when only embedded templates are used.
func (s *Store) Dir() string { return s.dir }

// Load returns the current snapshot.
func (s *Store) Load() *Set {
	return s.current.Load()
}

// Reload re-reads the templates. On failure the previous snapshot stays in
// place and the error is returned.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sources, err := s.sources()
	if err != nil {
		s.recorder.IncTemplateReload(false)
		return err
	}
	if fp := fingerprint(sources); fp == s.current.Load().Fingerprint() {
		slog.Debug("Templates unchanged", logfields.Dir(s.dir))
		return nil
	}
	set, err := NewSet(sources)
	if err != nil {
		s.recorder.IncTemplateReload(false)
		return err
	}
	s.current.Store(set)
	s.recorder.IncTemplateReload(true)
	slog.Info("Templates reloaded", logfields.Dir(s.dir), logfields.Count(len(set.names)))
	return nil
}

func (s *Store) parse() (*Set, error) {
	sources, err := s.sources()
	if err != nil {
		return nil, err
	}
	return NewSet(sources)
}

// sources collects template sources, embedded defaults first.
func (s *Store) sources() (map[string]string, error) {
	sources := map[string]string{}
	defaults, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryInternal, "open embedded templates").Build()
	}
	if err := collect(defaults, sources); err != nil {
		return nil, err
	}
	if s.dir == "" {
		return sources, nil
	}
	if err := collect(os.DirFS(s.dir), sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func collect(fsys fs.FS, into map[string]string) error {
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if path.Ext(p) != templateExt || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		into[p] = string(b)
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return derrors.WrapError(err, derrors.CategoryNotFound, "template directory not found").Build()
	}
	return derrors.WrapError(err, derrors.CategoryFileSystem, "read templates").Build()
}
