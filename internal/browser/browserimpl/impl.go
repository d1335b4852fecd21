package browserimpl

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/paul-minniti/XPoster/internal/browser"
	"github.com/paul-minniti/XPoster/pkg/config"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx"
)

const bindingName = "__xposterEmit"

type Opts struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Logger logger.Logger
}

type SessionImpl struct {
	Config *config.Config
	Logger logger.Logger

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	events      chan browser.Event
	closed      bool
}

func New(opts Opts) *SessionImpl {
	s := &SessionImpl{
		Config: opts.Config,
		Logger: opts.Logger,
		events: make(chan browser.Event, 64),
	}

	opts.LC.Append(fx.Hook{
		OnStop: func(context.Context) error {
			s.Close()
			return nil
		},
	})

	return s
}

var _ browser.Session = (*SessionImpl)(nil)

// Attach connects to a running Chrome over DevTools when a remote URL is
// configured, or launches one against the configured profile directory. The
// profile must already be logged in to the host platform; this tool never
// touches credentials for it.
func (s *SessionImpl) Attach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var allocCtx context.Context
	if s.Config.Browser.DevtoolsUrl != "" {
		s.Logger.Info("Attaching to remote browser", "url", s.Config.Browser.DevtoolsUrl)
		allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(context.Background(), s.Config.Browser.DevtoolsUrl)
	} else {
		s.Logger.Info("Launching browser", "user_data_dir", s.Config.Browser.UserDataDir)
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserDataDir(s.Config.Browser.UserDataDir),
			chromedp.Flag("headless", s.Config.Browser.Headless),
		)
		allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), allocOpts...)
	}

	s.ctx, s.cancel = chromedp.NewContext(allocCtx)

	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != bindingName {
			return
		}
		s.deliver([]byte(called.Payload))
	})

	if err := chromedp.Run(s.ctx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(helperRuntime).Do(ctx)
			return err
		}),
		chromedp.Navigate(s.Config.Browser.StartUrl),
	); err != nil {
		return err
	}

	s.Logger.Info("Browser session attached", "start_url", s.Config.Browser.StartUrl)
	return nil
}

func (s *SessionImpl) deliver(payload []byte) {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(payload, &head); err != nil || head.Event == "" {
		s.Logger.Warn("Dropping malformed page event", "payload", string(payload))
		return
	}

	ev := browser.Event{Name: head.Event, Payload: json.RawMessage(payload)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		// The consumer is behind; mutation bursts are debounced downstream
		// anyway, so dropping the oldest signal is safe.
		s.Logger.Warn("Page event channel full, dropping event", "event", head.Event)
	}
}

// runCtx derives a chromedp context honoring the caller's deadline.
func (s *SessionImpl) runCtx(ctx context.Context) (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	base := s.ctx
	s.mu.Unlock()

	if base == nil {
		return nil, nil, browser.ErrNotAttached
	}
	if deadline, ok := ctx.Deadline(); ok {
		cctx, cancel := context.WithDeadline(base, deadline)
		return cctx, cancel, nil
	}
	cctx, cancel := context.WithTimeout(base, 30*time.Second)
	return cctx, cancel, nil
}

func (s *SessionImpl) Navigate(ctx context.Context, url string) error {
	cctx, cancel, err := s.runCtx(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return chromedp.Run(cctx, chromedp.Navigate(url))
}

func (s *SessionImpl) Location(ctx context.Context) (string, error) {
	cctx, cancel, err := s.runCtx(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	var url string
	if err := chromedp.Run(cctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (s *SessionImpl) Evaluate(ctx context.Context, expr string, out any) error {
	cctx, cancel, err := s.runCtx(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if out == nil {
		var discard json.RawMessage
		out = &discard
	}
	return chromedp.Run(cctx, chromedp.Evaluate(expr, out))
}

func (s *SessionImpl) Events() <-chan browser.Event {
	return s.events
}

func (s *SessionImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	close(s.events)
	s.Logger.Info("Browser session closed")
}
