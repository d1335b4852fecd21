package watcher

import "context"

// Client keeps injected controls present while the host application mutates
// and re-renders its timeline.
type Client interface {
	// Start installs the page observer, runs the initial control scan and
	// begins watching for navigation. It returns once watching is running.
	Start(ctx context.Context) error

	// Stop halts watching. Safe to call more than once.
	Stop()
}
