package watcherimpl

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paul-minniti/XPoster/internal/browser"
	"github.com/paul-minniti/XPoster/pkg/logger"
)

type fakeSession struct {
	mu       sync.Mutex
	location string
	installs atomic.Int32
	events   chan browser.Event
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		location: "https://x.com/home",
		events:   make(chan browser.Event, 16),
	}
}

func (f *fakeSession) Attach(context.Context) error           { return nil }
func (f *fakeSession) Navigate(context.Context, string) error { return nil }

func (f *fakeSession) Location(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.location, nil
}

func (f *fakeSession) setLocation(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.location = url
}

func (f *fakeSession) Evaluate(_ context.Context, expr string, _ any) error {
	if strings.Contains(expr, "MutationObserver") {
		f.installs.Add(1)
	}
	return nil
}

func (f *fakeSession) Events() <-chan browser.Event { return f.events }

var _ browser.Session = (*fakeSession)(nil)

type fakeController struct {
	attaches atomic.Int32
	handled  atomic.Int32
}

func (f *fakeController) AttachButtons(context.Context) (int, error) {
	f.attaches.Add(1)
	return 0, nil
}

func (f *fakeController) HandleEvent(context.Context, browser.Event) {
	f.handled.Add(1)
}

func (f *fakeController) ScheduleDatabaseCleanup(context.Context) error { return nil }

func newTestWatcher(sess *fakeSession, ctrl *fakeController) *WatcherImpl {
	return New(Opts{
		Session:    sess,
		Controller: ctrl,
		Logger:     logger.New(logger.Opts{}),
	})
}

func mutations(added int) browser.Event {
	payload, _ := json.Marshal(map[string]int{"added": added})
	return browser.Event{Name: browser.EventMutations, Payload: payload}
}

func TestMutationBurstsCoalesceIntoOneRescan(t *testing.T) {
	sess := newFakeSession()
	ctrl := &fakeController{}
	w := newTestWatcher(sess, ctrl)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		sess.events <- mutations(2)
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(2 * debounceDelay)
	if n := ctrl.attaches.Load(); n != 1 {
		t.Errorf("rescans = %d, want 1 for a coalesced burst", n)
	}
}

func TestMutationsWithoutAddedNodesAreIgnored(t *testing.T) {
	sess := newFakeSession()
	ctrl := &fakeController{}
	w := newTestWatcher(sess, ctrl)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	sess.events <- mutations(0)
	time.Sleep(2 * debounceDelay)

	if n := ctrl.attaches.Load(); n != 0 {
		t.Errorf("rescans = %d, want 0", n)
	}
}

func TestControlEventsGoToController(t *testing.T) {
	sess := newFakeSession()
	ctrl := &fakeController{}
	w := newTestWatcher(sess, ctrl)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	sess.events <- browser.Event{Name: browser.EventQuickReplyClick, Payload: json.RawMessage(`{"button":"r1"}`)}

	deadline := time.After(time.Second)
	for ctrl.handled.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("click event never reached the controller")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if n := ctrl.attaches.Load(); n != 0 {
		t.Errorf("rescans = %d, want 0 for a click event", n)
	}
}

func TestNavigationReinstallsObserverAndRescans(t *testing.T) {
	sess := newFakeSession()
	ctrl := &fakeController{}
	w := newTestWatcher(sess, ctrl)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if n := sess.installs.Load(); n != 1 {
		t.Fatalf("observer installs = %d, want 1 after start", n)
	}

	sess.setLocation("https://x.com/notifications")

	deadline := time.After(4 * time.Second)
	for sess.installs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("observer was never reinstalled after navigation")
		case <-time.After(50 * time.Millisecond):
		}
	}
	if ctrl.attaches.Load() == 0 {
		t.Error("no rescan after navigation")
	}
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	sess := newFakeSession()
	ctrl := &fakeController{}
	w := newTestWatcher(sess, ctrl)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if n := sess.installs.Load(); n != 1 {
		t.Errorf("observer installs = %d, want 1", n)
	}

	w.Stop()
	w.Stop()
}
