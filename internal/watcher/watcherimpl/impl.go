package watcherimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/paul-minniti/XPoster/internal/browser"
	"github.com/paul-minniti/XPoster/internal/controller"
	"github.com/paul-minniti/XPoster/internal/watcher"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx"
)

const (
	// debounceDelay coalesces mutation bursts into one rescan, trailing
	// edge: the scan runs this long after the last burst.
	debounceDelay = 300 * time.Millisecond

	// initialScanDelay gives the timeline its first render before the
	// first control scan.
	initialScanDelay = 2 * time.Second

	// pollInterval is how often the page location is compared against the
	// last seen one; the host navigates without full page loads.
	pollInterval = 1 * time.Second

	// settleDelay is how long a detected navigation gets to render before
	// the observer is reinstalled and controls are rescanned.
	settleDelay = 1 * time.Second
)

type mutationsEvent struct {
	Added int `json:"added"`
}

type Opts struct {
	fx.In

	Session    browser.Session
	Controller controller.Client
	Logger     logger.Logger
}

type WatcherImpl struct {
	Session    browser.Session
	Controller controller.Client
	Logger     logger.Logger

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	debounce *time.Timer
	lastURL  string
}

func New(opts Opts) *WatcherImpl {
	return &WatcherImpl{
		Session:    opts.Session,
		Controller: opts.Controller,
		Logger:     opts.Logger.WithComponent("Watcher"),
	}
}

var _ watcher.Client = (*WatcherImpl)(nil)

// Start installs the mutation observer, schedules the navigation poll and
// begins draining page events.
func (w *WatcherImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)

	if err := w.Session.Evaluate(ctx, installObserverScript, nil); err != nil {
		cancel()
		return fmt.Errorf("failed to install page observer: %w", err)
	}

	if loc, err := w.Session.Location(ctx); err == nil {
		w.lastURL = loc
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create navigation poll scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(pollInterval),
		gocron.NewTask(func() { w.pollNavigation(ctx) }),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule navigation poll: %w", err)
	}
	scheduler.Start()

	go func() {
		<-ctx.Done()
		w.Logger.Info("Stopping navigation poll scheduler")
		if err := scheduler.Shutdown(); err != nil {
			w.Logger.Error("Failed to shut down scheduler", "error", err)
		}
	}()

	go w.eventLoop(ctx)

	// First scan waits for the timeline's initial render.
	time.AfterFunc(initialScanDelay, func() {
		if ctx.Err() != nil {
			return
		}
		w.rescan(ctx)
	})

	w.cancel = cancel
	w.started = true
	w.Logger.Info("Watcher started", "url", w.lastURL)
	return nil
}

func (w *WatcherImpl) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.cancel()
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	w.started = false
	w.Logger.Info("Watcher stopped")
}

// eventLoop drains the session's event channel. Mutation bursts feed the
// debounced rescan; control clicks go straight to the controller.
func (w *WatcherImpl) eventLoop(ctx context.Context) {
	events := w.Session.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				w.Logger.Info("Page event channel closed")
				return
			}
			w.handle(ctx, ev)
		}
	}
}

func (w *WatcherImpl) handle(ctx context.Context, ev browser.Event) {
	if ev.Name != browser.EventMutations {
		w.Controller.HandleEvent(ctx, ev)
		return
	}

	var payload mutationsEvent
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		w.Logger.Warn("Dropping malformed mutations event", "error", err)
		return
	}
	if payload.Added <= 0 {
		return
	}
	w.bumpDebounce(ctx)
}

func (w *WatcherImpl) bumpDebounce(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Reset(debounceDelay)
		return
	}
	w.debounce = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		w.debounce = nil
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.rescan(ctx)
	})
}

// pollNavigation compares the current location against the last seen one.
// The host is a single-page application: URL changes arrive without loads,
// so a changed URL means a fresh timeline that needs observer and controls.
func (w *WatcherImpl) pollNavigation(ctx context.Context) {
	loc, err := w.Session.Location(ctx)
	if err != nil {
		w.Logger.Debug("Failed to read page location", "error", err)
		return
	}

	w.mu.Lock()
	changed := loc != w.lastURL
	if changed {
		w.lastURL = loc
	}
	w.mu.Unlock()
	if !changed {
		return
	}

	w.Logger.Info("Navigation detected", "url", loc)
	time.AfterFunc(settleDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.Session.Evaluate(ctx, installObserverScript, nil); err != nil {
			w.Logger.Error("Failed to reinstall page observer", "error", err)
		}
		w.rescan(ctx)
	})
}

func (w *WatcherImpl) rescan(ctx context.Context) {
	if _, err := w.Controller.AttachButtons(ctx); err != nil {
		w.Logger.Error("Control rescan failed", "error", err)
	}
}
