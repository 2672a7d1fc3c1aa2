package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docchrome/internal/config"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
	"git.home.luguber.info/inful/docchrome/internal/server"
	"git.home.luguber.info/inful/docchrome/internal/templates"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr     string `help:"Listen address (overrides server.addr)"`
	DocsRoot string `name:"docs-root" help:"rustdoc output directory (overrides server.docs_root)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}
	if s.DocsRoot != "" {
		cfg.Server.DocsRoot = s.DocsRoot
	}
	logger := root.applyLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunServe(ctx, cfg, logger)
}

// RunServe serves cfg.Server.DocsRoot until ctx is done, reloading templates
// as configured.
func RunServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := templates.NewStore(cfg.Templates.Dir)
	if err != nil {
		return err
	}

	var watcher *templates.Watcher
	if cfg.Templates.Watch {
		if watcher, err = templates.NewWatcher(store, templates.DefaultDebounce); err != nil {
			return err
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.Warn("Failed to stop template watcher", logfields.Error(err))
			}
		}()
	}
	var poller *templates.Poller
	if cfg.Templates.ReloadInterval > 0 {
		if poller, err = templates.NewPoller(store, cfg.Templates.ReloadInterval); err != nil {
			return err
		}
		defer func() {
			if err := poller.Stop(); err != nil {
				logger.Warn("Failed to stop template poller", logfields.Error(err))
			}
		}()
	}

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		return err
	}
	store.WithRecorder(srv.Recorder())

	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			return err
		}
	}
	if poller != nil {
		poller.Start()
	}

	logger.Info("Templates loaded",
		logfields.Dir(templateSource(store)),
		logfields.Count(len(store.Load().Names())))
	return srv.ListenAndServe(ctx)
}

func templateSource(store *templates.Store) string {
	if store.Dir() == "" {
		return "embedded"
	}
	return store.Dir()
}
