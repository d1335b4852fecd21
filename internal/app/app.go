package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/paul-minniti/XPoster/internal/browser"
	"github.com/paul-minniti/XPoster/internal/browser/browserimpl"
	"github.com/paul-minniti/XPoster/internal/controller"
	"github.com/paul-minniti/XPoster/internal/controller/controllerimpl"
	"github.com/paul-minniti/XPoster/internal/dispatch"
	"github.com/paul-minniti/XPoster/internal/dispatch/dispatchimpl"
	"github.com/paul-minniti/XPoster/internal/generator"
	"github.com/paul-minniti/XPoster/internal/generator/generatorimpl"
	"github.com/paul-minniti/XPoster/internal/injector"
	"github.com/paul-minniti/XPoster/internal/injector/injectorimpl"
	_ "github.com/paul-minniti/XPoster/internal/migrations"
	"github.com/paul-minniti/XPoster/internal/notifier"
	"github.com/paul-minniti/XPoster/internal/notifier/notifierimpl"
	"github.com/paul-minniti/XPoster/internal/pgx"
	"github.com/paul-minniti/XPoster/internal/ratelimit"
	repositories "github.com/paul-minniti/XPoster/internal/repositories/fx"
	"github.com/paul-minniti/XPoster/internal/settings"
	"github.com/paul-minniti/XPoster/internal/watcher"
	"github.com/paul-minniti/XPoster/internal/watcher/watcherimpl"
	"github.com/paul-minniti/XPoster/pkg/config"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
)

var App = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
	),
	fx.Provide(
		fx.Annotate(
			browserimpl.New,
			fx.As(new(browser.Session)),
		), fx.Annotate(
			generatorimpl.New,
			fx.As(new(generator.Client)),
		), fx.Annotate(
			dispatchimpl.New,
			fx.As(new(dispatch.Client)),
		), fx.Annotate(
			injectorimpl.New,
			fx.As(new(injector.Client)),
		), fx.Annotate(
			notifierimpl.New,
			fx.As(new(notifier.Client)),
		), fx.Annotate(
			controllerimpl.New,
			fx.As(new(controller.Client)),
		), fx.Annotate(
			watcherimpl.New,
			fx.As(new(watcher.Client)),
		),
		settings.New,
		newLimiter,
	),
	repositories.Module,
	fx.Invoke(migrate),
	fx.Invoke(run),
)

// newLimiter allows one generation attempt per post every 5 seconds with a
// burst of 3.
func newLimiter() ratelimit.Limiter {
	return ratelimit.NewInMemoryLimiter(1, 5*time.Second, 3)
}

func migrate(c *config.Config) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := sql.Open("postgres", c.GetDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	// Migrations are registered Go functions; "." satisfies goose's
	// directory argument without requiring SQL files on disk.
	return goose.Up(db, ".")
}

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, sess browser.Session,
	wClient watcher.Client, ctrlClient controller.Client, notifClient notifier.Client,
	settingsSvc *settings.Service, genClient generator.Client) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {

			go startHttpServer(log, cfg, settingsSvc, genClient)

			ctx := context.Background()
			err := sess.Attach(ctx)
			if err != nil {
				log.Error("Browser attach error", "Error", err)
				notifClient.Notify("Browser attach error: " + err.Error())
				return nil
			}

			err = wClient.Start(ctx)
			if err != nil {
				log.Error("Watcher start error", "Error", err)
				notifClient.Notify("Watcher start error: " + err.Error())
			}

			err = ctrlClient.ScheduleDatabaseCleanup(ctx)
			if err != nil {
				log.Error("Cleanup schedule error", "Error", err)
			}

			return nil
		},
		OnStop: func(context.Context) error {
			wClient.Stop()
			return nil
		},
	})
}

func startHttpServer(log logger.Logger, cfg *config.Config, svc *settings.Service, gen generator.Client) {
	mux := newAdminMux(log, svc, gen)

	log.Info(fmt.Sprintf("Starting server on :%d", cfg.App.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), mux); err != nil {
		log.Error("Server failed to start: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request, logger logger.Logger) {
	logger.Info("Health check request received", "Method", r.Method, "URL", r.URL.String())
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.Error("Failed to write response", "Error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
