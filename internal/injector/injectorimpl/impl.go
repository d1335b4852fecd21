package injectorimpl

import (
	"context"
	"fmt"

	"github.com/paul-minniti/XPoster/internal/browser"
	"github.com/paul-minniti/XPoster/internal/injector"
	"github.com/paul-minniti/XPoster/internal/locator"
	"github.com/paul-minniti/XPoster/pkg/errors"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx"
)

const (
	replyButtonSelector = `button[data-testid="reply"]`
	dialogSelector      = `div[role="dialog"][aria-modal="true"]`
	inputSelector       = `div[data-testid="tweetTextarea_0"]`
)

type Opts struct {
	fx.In

	Session browser.Session
	Logger  logger.Logger
}

type InjectorImpl struct {
	sess   browser.Session
	logger logger.Logger
}

func New(opts Opts) *InjectorImpl {
	return &InjectorImpl{
		sess:   opts.Session,
		logger: opts.Logger.WithComponent("Injector"),
	}
}

var _ injector.Client = (*InjectorImpl)(nil)

// OpenComposer clicks the reply control of a post and resolves the composer
// dialog and its text input. The dialog is searched document-wide: the host
// mounts it outside the post subtree.
func (i *InjectorImpl) OpenComposer(ctx context.Context, post browser.Handle) (injector.ComposerHandle, error) {
	replyBtn, ok := locator.Locate(ctx, i.sess, post, replyButtonSelector, locator.DefaultOptions())
	if !ok {
		return injector.ComposerHandle{}, errors.New(errors.KindElementNotFound, "reply button not found on post")
	}

	var clicked bool
	expr := fmt.Sprintf("__xp.click(%s)", browser.JSString(string(replyBtn)))
	if err := i.sess.Evaluate(ctx, expr, &clicked); err != nil || !clicked {
		return injector.ComposerHandle{}, errors.New(errors.KindInjectionFailure, "failed to click reply button")
	}

	dialog, ok := locator.Locate(ctx, i.sess, browser.DocumentRoot, dialogSelector, locator.DefaultOptions())
	if !ok {
		return injector.ComposerHandle{}, errors.New(errors.KindElementNotFound, "reply dialog did not appear")
	}

	input, ok := locator.Locate(ctx, i.sess, dialog, inputSelector, locator.DefaultOptions())
	if !ok {
		return injector.ComposerHandle{}, errors.New(errors.KindElementNotFound, "composer input not found in dialog")
	}

	return injector.ComposerHandle{Dialog: dialog, Input: input}, nil
}

// SetContent drives the input through a synthetic paste followed by input and
// change events. When the paste path throws, the text is written directly and
// only an input event is replayed; the host editor usually recovers from that.
func (i *InjectorImpl) SetContent(ctx context.Context, input browser.Handle, text string) error {
	expr := fmt.Sprintf(setContentScript, browser.JSString(string(input)), browser.JSString(text))

	var mode *string
	if err := i.sess.Evaluate(ctx, expr, &mode); err != nil {
		return errors.Wrap(err, errors.KindInjectionFailure, "failed to set composer content")
	}
	if mode == nil {
		return errors.New(errors.KindInjectionFailure, "composer input is gone")
	}
	if *mode == "fallback" {
		i.logger.Warn("Synthetic paste failed, fell back to direct text write")
	}
	return nil
}

// ClearContent runs the deletion ladder: select-all plus execCommand delete,
// then Selection.deleteFromDocument, then a direct innerHTML wipe.
func (i *InjectorImpl) ClearContent(ctx context.Context, input browser.Handle) error {
	expr := fmt.Sprintf(clearContentScript, browser.JSString(string(input)))

	var cleared *bool
	if err := i.sess.Evaluate(ctx, expr, &cleared); err != nil {
		return errors.Wrap(err, errors.KindInjectionFailure, "failed to clear composer content")
	}
	if cleared == nil || !*cleared {
		return errors.New(errors.KindInjectionFailure, "composer input did not clear")
	}
	return nil
}

// AttachRegenerate adds the regenerate control once per dialog. It goes in
// front of the submit button when one is present, otherwise right after the
// input.
func (i *InjectorImpl) AttachRegenerate(ctx context.Context, composer injector.ComposerHandle, originalText string) error {
	expr := fmt.Sprintf(attachRegenerateScript,
		browser.JSString(string(composer.Dialog)),
		browser.JSString(string(composer.Input)),
		browser.JSString(originalText),
	)

	var attached *bool
	if err := i.sess.Evaluate(ctx, expr, &attached); err != nil {
		return errors.Wrap(err, errors.KindInjectionFailure, "failed to attach regenerate button")
	}
	if attached == nil {
		return errors.New(errors.KindInjectionFailure, "composer dialog is gone")
	}
	return nil
}
