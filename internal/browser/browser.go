package browser

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotAttached = errors.New("browser session is not attached")

// Handle is an opaque page-side element reference issued by the injected
// helper runtime. Handles go stale whenever the host re-renders; callers
// re-query instead of caching them across actions.
type Handle string

// DocumentRoot scopes a query to the whole document.
const DocumentRoot Handle = ""

// Event names emitted by injected page controls through the DevTools binding.
const (
	EventQuickReplyClick = "quickReplyClick"
	EventRegenerateClick = "regenerateClick"
	EventMutations       = "mutations"
)

// Event is one callback from the page. Payload is the full JSON object the
// page passed to the binding.
type Event struct {
	Name    string
	Payload json.RawMessage
}

type Session interface {
	// Attach connects to the browser, installs the helper runtime and
	// navigates to the configured start page.
	Attach(ctx context.Context) error

	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)

	// Evaluate runs a JS expression in the page and unmarshals its JSON
	// result into out. Pass nil to discard the result.
	Evaluate(ctx context.Context, expr string, out any) error

	// Events yields control callbacks from injected page controls. The
	// channel is closed when the session shuts down.
	Events() <-chan Event
}

// JSString renders s as a JavaScript string literal safe to splice into an
// evaluated expression.
func JSString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
