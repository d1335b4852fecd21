// Package locator finds elements that the host application renders
// asynchronously. Every search is a bounded fixed-interval poll: the host
// page mutates underneath us at any time, so candidates are re-queried on
// each attempt and never cached.
package locator

import (
	"context"
	"fmt"
	"time"

	"github.com/paul-minniti/XPoster/internal/browser"
)

// Predicate vets a located candidate before it is accepted.
type Predicate func(ctx context.Context, sess browser.Session, h browser.Handle) bool

type Options struct {
	MaxAttempts int
	Interval    time.Duration
	// Visible requires the candidate to be rendered: computed style not
	// display:none or visibility:hidden, and non-zero dimensions or at
	// least one client rect.
	Visible   bool
	Predicate Predicate
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts: 20,
		Interval:    100 * time.Millisecond,
		Visible:     true,
	}
}

// Locate polls for the first element under root matching selector that
// passes the options' checks. Exhausting the attempt budget is a normal
// outcome reported as found=false, never an error: the caller treats it as
// terminal for the current user action only.
func Locate(ctx context.Context, sess browser.Session, root browser.Handle, selector string, opts Options) (browser.Handle, bool) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	expr := fmt.Sprintf("__xp.find(%s, %s, %t)",
		browser.JSString(string(root)),
		browser.JSString(selector),
		opts.Visible,
	)

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", false
		}

		var ref *string
		if err := sess.Evaluate(ctx, expr, &ref); err == nil && ref != nil && *ref != "" {
			h := browser.Handle(*ref)
			if opts.Predicate == nil || opts.Predicate(ctx, sess, h) {
				return h, true
			}
		}

		if attempt < opts.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", false
			case <-time.After(opts.Interval):
			}
		}
	}

	return "", false
}

// Closest resolves the nearest ancestor of h matching selector, a single
// non-polling query used to walk from an action button to its post.
func Closest(ctx context.Context, sess browser.Session, h browser.Handle, selector string) (browser.Handle, bool) {
	expr := fmt.Sprintf("__xp.closest(%s, %s)",
		browser.JSString(string(h)),
		browser.JSString(selector),
	)

	var ref *string
	if err := sess.Evaluate(ctx, expr, &ref); err != nil || ref == nil || *ref == "" {
		return "", false
	}
	return browser.Handle(*ref), true
}

// OuterHTML snapshots the serialized markup of h for Go-side parsing.
func OuterHTML(ctx context.Context, sess browser.Session, h browser.Handle) (string, bool) {
	expr := fmt.Sprintf("__xp.outerHTML(%s)", browser.JSString(string(h)))

	var html *string
	if err := sess.Evaluate(ctx, expr, &html); err != nil || html == nil || *html == "" {
		return "", false
	}
	return *html, true
}
