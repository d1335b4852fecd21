package controllerimpl

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paul-minniti/XPoster/internal/browser"
	"github.com/paul-minniti/XPoster/internal/dispatch"
	"github.com/paul-minniti/XPoster/internal/domain"
	"github.com/paul-minniti/XPoster/internal/injector"
	"github.com/paul-minniti/XPoster/pkg/errors"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx/fxtest"
)

const postHTML = `<article><div data-testid="tweetText"><span>hello post</span></div></article>`

type fakeSession struct {
	mu    sync.Mutex
	exprs []string
	html  string
}

func (f *fakeSession) Evaluate(_ context.Context, expr string, out any) error {
	f.mu.Lock()
	f.exprs = append(f.exprs, expr)
	f.mu.Unlock()

	switch {
	case strings.Contains(expr, "__xp.closest"):
		if p, ok := out.(**string); ok {
			v := "post1"
			*p = &v
		}
	case strings.Contains(expr, "__xp.outerHTML"):
		if p, ok := out.(**string); ok && f.html != "" {
			v := f.html
			*p = &v
		}
	case strings.Contains(expr, "const state ="):
		if p, ok := out.(*bool); ok {
			*p = true
		}
	case strings.Contains(expr, "querySelectorAll"):
		if p, ok := out.(*int); ok {
			*p = 2
		}
	}
	return nil
}

func (f *fakeSession) states() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, expr := range f.exprs {
		for _, state := range []string{"loading", "error", "idle"} {
			if strings.Contains(expr, `const state = "`+state+`"`) {
				out = append(out, state)
			}
		}
	}
	return out
}

func (f *fakeSession) Attach(context.Context) error             { return nil }
func (f *fakeSession) Navigate(context.Context, string) error   { return nil }
func (f *fakeSession) Location(context.Context) (string, error) { return "", nil }
func (f *fakeSession) Events() <-chan browser.Event             { return nil }

var _ browser.Session = (*fakeSession)(nil)

type fakeInjector struct {
	mu       sync.Mutex
	openErr  error
	setTexts []string
	cleared  int
	regens   []string
}

func (f *fakeInjector) OpenComposer(context.Context, browser.Handle) (injector.ComposerHandle, error) {
	if f.openErr != nil {
		return injector.ComposerHandle{}, f.openErr
	}
	return injector.ComposerHandle{Dialog: "dlg1", Input: "inp1"}, nil
}

func (f *fakeInjector) SetContent(_ context.Context, _ browser.Handle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setTexts = append(f.setTexts, text)
	return nil
}

func (f *fakeInjector) ClearContent(context.Context, browser.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

func (f *fakeInjector) AttachRegenerate(_ context.Context, _ injector.ComposerHandle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regens = append(f.regens, text)
	return nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	resp  dispatch.Response
	calls []dispatch.Message
}

func (f *fakeDispatcher) Dispatch(_ context.Context, msg dispatch.Message, respond func(dispatch.Response)) {
	f.mu.Lock()
	f.calls = append(f.calls, msg)
	f.mu.Unlock()
	respond(f.resp)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeNotifier) Notify(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

type fakeLimiter struct{ allow bool }

func (f *fakeLimiter) Allow(string) bool { return f.allow }

type fakeReplyLog struct {
	mu      sync.Mutex
	entries []domain.ReplyLogEntry
	created chan struct{}
}

func newFakeReplyLog() *fakeReplyLog {
	return &fakeReplyLog{created: make(chan struct{}, 16)}
}

func (f *fakeReplyLog) Create(_ context.Context, entry domain.ReplyLogEntry) error {
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
	f.created <- struct{}{}
	return nil
}

func (f *fakeReplyLog) GetLatestByPermalink(context.Context, string, int) ([]*domain.ReplyLogEntry, error) {
	return nil, nil
}

func (f *fakeReplyLog) CleanupOldRecords(context.Context, string) (int64, error) { return 0, nil }

type testRig struct {
	ctrl     *ControllerImpl
	sess     *fakeSession
	inj      *fakeInjector
	disp     *fakeDispatcher
	notif    *fakeNotifier
	replyLog *fakeReplyLog
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	rig := &testRig{
		sess:     &fakeSession{html: postHTML},
		inj:      &fakeInjector{},
		disp:     &fakeDispatcher{resp: dispatch.Response{Success: true, Reply: "a fine reply"}},
		notif:    &fakeNotifier{},
		replyLog: newFakeReplyLog(),
	}

	lc := fxtest.NewLifecycle(t)
	ctrl, err := New(Opts{
		LC:         lc,
		Session:    rig.sess,
		Injector:   rig.inj,
		Dispatcher: rig.disp,
		Notifier:   rig.notif,
		Limiter:    &fakeLimiter{allow: true},
		ReplyLog:   rig.replyLog,
		Logger:     logger.New(logger.Opts{}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rig.ctrl = ctrl
	return rig
}

func quickReplyEventFor(button string) browser.Event {
	payload, _ := json.Marshal(map[string]string{"button": button})
	return browser.Event{Name: browser.EventQuickReplyClick, Payload: payload}
}

func awaitLogEntry(t *testing.T, rig *testRig) domain.ReplyLogEntry {
	t.Helper()
	select {
	case <-rig.replyLog.created:
	case <-time.After(2 * time.Second):
		t.Fatal("no reply log entry recorded")
	}
	rig.replyLog.mu.Lock()
	defer rig.replyLog.mu.Unlock()
	return rig.replyLog.entries[len(rig.replyLog.entries)-1]
}

func TestQuickReplyHappyPath(t *testing.T) {
	rig := newTestRig(t)

	rig.ctrl.HandleEvent(context.Background(), quickReplyEventFor("btn1"))

	entry := awaitLogEntry(t, rig)
	if entry.Outcome != "success" {
		t.Errorf("outcome = %q, want success", entry.Outcome)
	}
	if entry.PostText != "hello post" || entry.ReplyText != "a fine reply" {
		t.Errorf("entry = %+v", entry)
	}

	rig.inj.mu.Lock()
	defer rig.inj.mu.Unlock()
	if len(rig.inj.setTexts) != 1 || rig.inj.setTexts[0] != "a fine reply" {
		t.Errorf("setTexts = %v", rig.inj.setTexts)
	}
	if len(rig.inj.regens) != 1 || rig.inj.regens[0] != "hello post" {
		t.Errorf("regens = %v, want original post text", rig.inj.regens)
	}

	states := rig.sess.states()
	if len(states) != 2 || states[0] != "loading" || states[1] != "idle" {
		t.Errorf("button states = %v, want loading then idle", states)
	}
}

func TestQuickReplyExtractionFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.sess.html = "<div></div>"

	rig.ctrl.HandleEvent(context.Background(), quickReplyEventFor("btn1"))

	deadline := time.After(2 * time.Second)
	for {
		states := rig.sess.states()
		if len(states) > 0 && states[len(states)-1] == "error" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("button never entered error state, states = %v", states)
		case <-time.After(10 * time.Millisecond):
		}
	}

	rig.disp.mu.Lock()
	defer rig.disp.mu.Unlock()
	if len(rig.disp.calls) != 0 {
		t.Errorf("dispatched %d messages for an unextractable post", len(rig.disp.calls))
	}
}

func TestQuickReplyEntersLoadingBeforePostLookup(t *testing.T) {
	rig := newTestRig(t)
	rig.sess.html = "<div></div>"

	rig.ctrl.HandleEvent(context.Background(), quickReplyEventFor("btn1"))

	deadline := time.After(2 * time.Second)
	for {
		states := rig.sess.states()
		if len(states) >= 2 {
			if states[0] != "loading" {
				t.Fatalf("button states = %v, want loading first", states)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("button never paged through states, states = %v", states)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestQuickReplyGenerationFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.disp.resp = dispatch.Response{Success: false, Error: "API rate limit exceeded"}

	rig.ctrl.HandleEvent(context.Background(), quickReplyEventFor("btn1"))

	entry := awaitLogEntry(t, rig)
	if entry.Outcome == "success" {
		t.Errorf("outcome = %q, want failure", entry.Outcome)
	}
	if entry.ReplyText != "" {
		t.Errorf("ReplyText = %q, want empty", entry.ReplyText)
	}

	rig.inj.mu.Lock()
	defer rig.inj.mu.Unlock()
	if len(rig.inj.setTexts) != 0 {
		t.Errorf("injected %v despite failed generation", rig.inj.setTexts)
	}
}

func TestQuickReplyInjectionFailureAlertsOperator(t *testing.T) {
	rig := newTestRig(t)
	rig.inj.openErr = errors.New(errors.KindInjectionFailure, "failed to click reply button")

	rig.ctrl.HandleEvent(context.Background(), quickReplyEventFor("btn1"))

	awaitLogEntry(t, rig)

	deadline := time.After(2 * time.Second)
	for {
		rig.notif.mu.Lock()
		n := len(rig.notif.msgs)
		rig.notif.mu.Unlock()
		if n > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("operator was never alerted")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestQuickReplyRateLimited(t *testing.T) {
	rig := newTestRig(t)
	rig.ctrl.Limiter = &fakeLimiter{allow: false}

	rig.ctrl.HandleEvent(context.Background(), quickReplyEventFor("btn1"))

	entry := awaitLogEntry(t, rig)
	if entry.Outcome != string(errors.KindRateLimited) {
		t.Errorf("outcome = %q, want rate limited", entry.Outcome)
	}

	rig.disp.mu.Lock()
	defer rig.disp.mu.Unlock()
	if len(rig.disp.calls) != 0 {
		t.Errorf("dispatched %d messages despite rate limit", len(rig.disp.calls))
	}
}

func TestRegenerateReplacesContent(t *testing.T) {
	rig := newTestRig(t)

	payload, _ := json.Marshal(map[string]string{
		"button": "regen1",
		"dialog": "dlg1",
		"input":  "inp1",
		"text":   "hello post",
	})
	rig.ctrl.HandleEvent(context.Background(), browser.Event{
		Name:    browser.EventRegenerateClick,
		Payload: payload,
	})

	entry := awaitLogEntry(t, rig)
	if entry.Outcome != "regenerated" {
		t.Errorf("outcome = %q, want regenerated", entry.Outcome)
	}

	rig.inj.mu.Lock()
	defer rig.inj.mu.Unlock()
	if rig.inj.cleared != 1 {
		t.Errorf("cleared = %d, want 1", rig.inj.cleared)
	}
	if len(rig.inj.setTexts) != 1 || rig.inj.setTexts[0] != "a fine reply" {
		t.Errorf("setTexts = %v", rig.inj.setTexts)
	}
}

func TestBusyControlSwallowsClicks(t *testing.T) {
	rig := newTestRig(t)
	block := make(chan struct{})
	rig.disp.mu.Lock()
	rig.disp.resp = dispatch.Response{Success: true, Reply: "slow reply"}
	rig.disp.mu.Unlock()

	blocking := newBlockingDispatcher(rig.disp, block)
	rig.ctrl.Dispatcher = blocking

	rig.ctrl.HandleEvent(context.Background(), quickReplyEventFor("btn1"))

	// Wait for the first flow to reach the dispatcher, then click again.
	select {
	case <-blocking.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first flow never reached the dispatcher")
	}
	rig.ctrl.HandleEvent(context.Background(), quickReplyEventFor("btn1"))
	close(block)

	awaitLogEntry(t, rig)
	select {
	case <-rig.replyLog.created:
		t.Fatal("second click ran a full flow")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestAttachButtons(t *testing.T) {
	rig := newTestRig(t)

	added, err := rig.ctrl.AttachButtons(context.Background())
	if err != nil {
		t.Fatalf("AttachButtons: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
}

func TestMalformedEventIsDropped(t *testing.T) {
	rig := newTestRig(t)

	rig.ctrl.HandleEvent(context.Background(), browser.Event{
		Name:    browser.EventQuickReplyClick,
		Payload: json.RawMessage(`{"button":""}`),
	})

	time.Sleep(100 * time.Millisecond)
	rig.disp.mu.Lock()
	defer rig.disp.mu.Unlock()
	if len(rig.disp.calls) != 0 {
		t.Errorf("dispatched %d messages for a malformed event", len(rig.disp.calls))
	}
}

type blockingDispatcher struct {
	inner   *fakeDispatcher
	release <-chan struct{}
	entered chan struct{}
}

func newBlockingDispatcher(inner *fakeDispatcher, release <-chan struct{}) *blockingDispatcher {
	return &blockingDispatcher{inner: inner, release: release, entered: make(chan struct{}, 1)}
}

func (b *blockingDispatcher) Dispatch(ctx context.Context, msg dispatch.Message, respond func(dispatch.Response)) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	b.inner.Dispatch(ctx, msg, respond)
}
