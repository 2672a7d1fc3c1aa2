package templates

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	derrors "git.home.luguber.info/inful/docchrome/internal/foundation/errors"
	"git.home.luguber.info/inful/docchrome/internal/logfields"
)

// Poller reloads a Store on a fixed interval. It covers file systems where
// change notifications are unavailable (network mounts, some containers).
type Poller struct {
	scheduler gocron.Scheduler
	store     *Store
	interval  time.Duration
}

// NewPoller creates a poller; call Start to begin reloading.
func NewPoller(store *Store, interval time.Duration) (*Poller, error) {
	if interval <= 0 {
		return nil, derrors.ValidationError("reload interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryRuntime, "create scheduler").Build()
	}
	p := &Poller{scheduler: s, store: store, interval: interval}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.reload),
		gocron.WithName("template-reload"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, derrors.WrapError(err, derrors.CategoryRuntime, "schedule template reload").Build()
	}
	return p, nil
}

// Start begins the schedule.
func (p *Poller) Start() {
	slog.Info("Starting template poller", slog.Duration("interval", p.interval))
	p.scheduler.Start()
}

// Stop shuts the scheduler down.
func (p *Poller) Stop() error {
	slog.Info("Stopping template poller")
	return p.scheduler.Shutdown()
}

func (p *Poller) reload() {
	if err := p.store.Reload(); err != nil {
		slog.Error("Scheduled template reload failed",
			logfields.Dir(p.store.Dir()),
			logfields.Category(string(derrors.GetCategory(err))),
			logfields.Error(err))
	}
}
