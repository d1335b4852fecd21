package controllerimpl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/paul-minniti/XPoster/internal/browser"
	"github.com/paul-minniti/XPoster/internal/controller"
	"github.com/paul-minniti/XPoster/internal/dispatch"
	"github.com/paul-minniti/XPoster/internal/injector"
	"github.com/paul-minniti/XPoster/internal/notifier"
	"github.com/paul-minniti/XPoster/internal/ratelimit"
	"github.com/paul-minniti/XPoster/internal/repositories/replylog"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx"
)

const (
	// errorDisplay is how long an injected control shows its error state
	// before reverting to idle.
	errorDisplay = 2 * time.Second

	// responseTimeout bounds the wait for a dispatch response; the
	// generation layer has its own tighter budget underneath.
	responseTimeout = 2 * time.Minute

	workerPoolSize = 5
)

type Opts struct {
	fx.In

	LC fx.Lifecycle

	Session    browser.Session
	Injector   injector.Client
	Dispatcher dispatch.Client
	Notifier   notifier.Client
	Limiter    ratelimit.Limiter
	ReplyLog   replylog.Repository
	Logger     logger.Logger
}

type ControllerImpl struct {
	Session    browser.Session
	Injector   injector.Client
	Dispatcher dispatch.Client
	Notifier   notifier.Client
	Limiter    ratelimit.Limiter
	ReplyLog   replylog.Repository
	Logger     logger.Logger

	pool *ants.Pool

	// inflight dedupes clicks per control while its reply flow runs.
	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(opts Opts) (*ControllerImpl, error) {
	pool, err := ants.NewPool(workerPoolSize, ants.WithPreAlloc(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	c := &ControllerImpl{
		Session:    opts.Session,
		Injector:   opts.Injector,
		Dispatcher: opts.Dispatcher,
		Notifier:   opts.Notifier,
		Limiter:    opts.Limiter,
		ReplyLog:   opts.ReplyLog,
		Logger:     opts.Logger.WithComponent("Controller"),
		pool:       pool,
		inflight:   make(map[string]struct{}),
	}

	opts.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Release()
			return nil
		},
	})

	return c, nil
}

var _ controller.Client = (*ControllerImpl)(nil)

// AttachButtons scans the timeline region and decorates every action bar
// that lacks a quick-reply control.
func (c *ControllerImpl) AttachButtons(ctx context.Context) (int, error) {
	var added int
	if err := c.Session.Evaluate(ctx, attachButtonsScript, &added); err != nil {
		return 0, fmt.Errorf("failed to attach reply controls: %w", err)
	}
	if added > 0 {
		c.Logger.Info("Attached reply controls", "count", added)
	}
	return added, nil
}

// ScheduleDatabaseCleanup sets up a daily job to clean up old records from the reply_log table
func (c *ControllerImpl) ScheduleDatabaseCleanup(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create cleanup scheduler: %w", err)
	}

	// Schedule a job to run at 3:00 AM every day
	_, err = scheduler.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0)), // At 3:00 AM
		),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				c.Logger.Info("Context cancelled, stopping database cleanup job")
				return
			}

			c.Logger.Info("Starting scheduled database cleanup job")

			cleanupCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			defer cancel()

			rowsDeleted, err := c.ReplyLog.CleanupOldRecords(cleanupCtx, "720h") // 30 days
			if err != nil {
				c.Logger.Error("Failed to clean up old records", "error", err)
				return
			}

			c.Logger.Info("Database cleanup completed successfully", "rows_deleted", rowsDeleted)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule database cleanup: %w", err)
	}

	scheduler.Start()

	go func() {
		<-ctx.Done()
		c.Logger.Info("Stopping cleanup scheduler")
		if err := scheduler.Shutdown(); err != nil {
			c.Logger.Error("Failed to shut down scheduler", "error", err)
		}
	}()

	return nil
}

func (c *ControllerImpl) acquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return false
	}
	c.inflight[key] = struct{}{}
	return true
}

func (c *ControllerImpl) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)
}
