package templates

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
)

// DefaultDebounce is how long the watcher waits for more changes before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a Store when files under its directory change.
type Watcher struct {
	store      *Store
	dir        string
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	stopChan   chan struct{}
	stopOnce   sync.Once
	reloadChan chan struct{}
	debounce   time.Duration
	done       sync.WaitGroup
}

// NewWatcher creates a watcher for the store's template directory.
func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	if store.Dir() == "" {
		return nil, derrors.ConfigError("template watching needs a template directory").Build()
	}
	abs, err := filepath.Abs(store.Dir())
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "resolve template directory").Build()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryRuntime, "create file watcher").Build()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		store:      store,
		dir:        abs,
		watcher:    fw,
		stopChan:   make(chan struct{}),
		reloadChan: make(chan struct{}, 1),
		debounce:   debounce,
	}, nil
}

// Start watches the directory tree and reloads on change until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := filepath.WalkDir(w.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "watch template directory").
			WithContext("dir", w.dir).
			Build()
	}

	slog.Info("Starting template watcher", logfields.Dir(w.dir))

	w.done.Add(2)
	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutines.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		slog.Info("Stopping template watcher", logfields.Dir(w.dir))
		close(w.stopChan)
		err = w.watcher.Close()
	})
	w.done.Wait()
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.done.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Template watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	if event.Has(fsnotify.Create) {
		if isDir, err := statDir(event.Name); err == nil && isDir {
			if err := w.watcher.Add(event.Name); err != nil {
				slog.Warn("Failed to watch new template directory", logfields.Path(event.Name), logfields.Error(err))
			}
			w.trigger()
			return
		}
	}
	if filepath.Ext(event.Name) != templateExt && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		slog.Debug("Template change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
		w.trigger()
	}
}

func (w *Watcher) reloadLoop(ctx context.Context) {
	defer w.done.Done()
	var timer *time.Timer
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-w.stopChan:
			stop()
			return
		case <-w.reloadChan:
			stop()
			timer = time.AfterFunc(w.debounce, w.reload)
		}
	}
}

func (w *Watcher) reload() {
	if err := w.store.Reload(); err != nil {
		slog.Error("Failed to reload templates",
			logfields.Dir(w.dir),
			logfields.Category(string(derrors.GetCategory(err))),
			logfields.Error(err))
	}
}

// trigger schedules a debounced reload.
func (w *Watcher) trigger() {
	select {
	case w.reloadChan <- struct{}{}:
	default:
	}
}

func statDir(p string) (bool, error) {
	info, err := os.Stat(p)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
