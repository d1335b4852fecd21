package injector

import (
	"context"

	"github.com/paul-minniti/XPoster/internal/browser"
)

// ComposerHandle addresses an open reply composer. Both handles go stale when
// the host closes or re-renders the dialog.
type ComposerHandle struct {
	Dialog browser.Handle
	Input  browser.Handle
}

//go:generate go run go.uber.org/mock/mockgen -source=injector.go -destination=mocks/mock.go
type Client interface {
	// OpenComposer clicks the reply control of a post and resolves the
	// composer dialog and its text input.
	OpenComposer(ctx context.Context, post browser.Handle) (ComposerHandle, error)

	// SetContent places text into the composer input through a synthetic
	// paste so the host's own editor state stays consistent.
	SetContent(ctx context.Context, input browser.Handle, text string) error

	// ClearContent empties the composer input.
	ClearContent(ctx context.Context, input browser.Handle) error

	// AttachRegenerate adds a regenerate control to an open composer.
	// originalText is replayed with the control's click event so a fresh
	// generation can run without re-extracting the post.
	AttachRegenerate(ctx context.Context, composer ComposerHandle, originalText string) error
}
