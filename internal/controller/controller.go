package controller

import (
	"context"

	"github.com/paul-minniti/XPoster/internal/browser"
)

// Client owns the injected page controls and the reply flow they trigger.
type Client interface {
	// AttachButtons scans the timeline and adds a quick-reply control to
	// every post action bar that does not have one yet. It returns the
	// number of controls added and is safe to call repeatedly.
	AttachButtons(ctx context.Context) (int, error)

	// HandleEvent processes one control callback from the page. Reply work
	// runs on a worker pool; HandleEvent itself returns promptly.
	HandleEvent(ctx context.Context, ev browser.Event)

	// ScheduleDatabaseCleanup starts the daily reply-log cleanup job.
	ScheduleDatabaseCleanup(ctx context.Context) error
}
