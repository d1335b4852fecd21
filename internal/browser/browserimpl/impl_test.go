package browserimpl

import (
	"sync"
	"testing"

	"github.com/paul-minniti/XPoster/pkg/config"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx/fxtest"
)

func newSession(t *testing.T) *SessionImpl {
	t.Helper()
	return New(Opts{
		LC:     fxtest.NewLifecycle(t),
		Config: &config.Config{},
		Logger: logger.New(logger.Opts{}),
	})
}

func TestDeliverBuffersNamedEvents(t *testing.T) {
	s := newSession(t)

	s.deliver([]byte(`{"event":"quickReplyClick","button":"b1"}`))

	select {
	case ev := <-s.Events():
		if ev.Name != "quickReplyClick" {
			t.Fatalf("event name = %q, want quickReplyClick", ev.Name)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestDeliverDropsMalformedPayloads(t *testing.T) {
	s := newSession(t)

	s.deliver([]byte(`not json`))
	s.deliver([]byte(`{"other":"x"}`))

	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event %q", ev.Name)
	default:
	}
}

func TestDeliverAfterCloseIsDropped(t *testing.T) {
	s := newSession(t)
	s.Close()

	s.deliver([]byte(`{"event":"quickReplyClick"}`))

	if _, ok := <-s.Events(); ok {
		t.Fatal("expected a closed, empty events channel")
	}
}

func TestDeliverRacingCloseDoesNotPanic(t *testing.T) {
	s := newSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.deliver([]byte(`{"event":"mutations"}`))
			}
		}()
	}
	s.Close()
	wg.Wait()
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newSession(t)
	s.Close()
	s.Close()
}
