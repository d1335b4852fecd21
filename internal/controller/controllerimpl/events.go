package controllerimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/paul-minniti/XPoster/internal/browser"
	"github.com/paul-minniti/XPoster/internal/dispatch"
	"github.com/paul-minniti/XPoster/internal/domain"
	"github.com/paul-minniti/XPoster/internal/extractor"
	"github.com/paul-minniti/XPoster/internal/locator"
	"github.com/paul-minniti/XPoster/pkg/errors"
)

type quickReplyEvent struct {
	Button string `json:"button"`
}

type regenerateEvent struct {
	Button string `json:"button"`
	Dialog string `json:"dialog"`
	Input  string `json:"input"`
	Text   string `json:"text"`
}

// HandleEvent routes one control callback onto the worker pool. A control
// whose previous flow is still running swallows the click.
func (c *ControllerImpl) HandleEvent(ctx context.Context, ev browser.Event) {
	switch ev.Name {
	case browser.EventQuickReplyClick:
		var payload quickReplyEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.Button == "" {
			c.Logger.Warn("Dropping malformed quick-reply event", "error", err)
			return
		}
		c.submit(payload.Button, func() { c.runQuickReply(ctx, browser.Handle(payload.Button)) })

	case browser.EventRegenerateClick:
		var payload regenerateEvent
		if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.Input == "" {
			c.Logger.Warn("Dropping malformed regenerate event", "error", err)
			return
		}
		c.submit(payload.Input, func() { c.runRegenerate(ctx, payload) })

	default:
		c.Logger.Debug("Ignoring unhandled page event", "event", ev.Name)
	}
}

func (c *ControllerImpl) submit(key string, task func()) {
	if !c.acquire(key) {
		c.Logger.Debug("Dropping click for busy control", "key", key)
		return
	}
	err := c.pool.Submit(func() {
		defer c.release(key)
		task()
	})
	if err != nil {
		c.release(key)
		c.Logger.Error("Failed to submit job to worker pool", "error", err)
	}
}

// runQuickReply is the full reply flow for one quick-reply click: walk up to
// the post, extract it, generate a reply, open the composer and place the
// text. Any failure lands in the control's error state.
func (c *ControllerImpl) runQuickReply(ctx context.Context, button browser.Handle) {
	c.setButtonState(ctx, button, domain.ButtonLoading)

	post, ok := locator.Closest(ctx, c.Session, button, "article")
	if !ok {
		// Some surfaces render posts without the article wrapper.
		post, ok = locator.Closest(ctx, c.Session, button, `[data-testid="tweet"]`)
	}
	if !ok {
		c.failButton(ctx, button, "", "", errors.New(errors.KindElementNotFound, "clicked control has no enclosing post"))
		return
	}

	html, ok := locator.OuterHTML(ctx, c.Session, post)
	if !ok {
		c.failButton(ctx, button, "", "", errors.New(errors.KindElementNotFound, "could not snapshot post markup"))
		return
	}

	record := extractor.Extract(html)
	if !record.Usable() {
		c.failButton(ctx, button, "", "", errors.New(errors.KindElementNotFound, "could not extract post content"))
		return
	}

	limitKey := record.Permalink
	if limitKey == "" {
		limitKey = record.Text
	}
	if !c.Limiter.Allow(limitKey) {
		c.failButton(ctx, button, record.Permalink, record.Text,
			errors.New(errors.KindRateLimited, "too many attempts for this post"))
		return
	}

	resp, err := c.generate(ctx, record.Text)
	if err != nil {
		c.failButton(ctx, button, record.Permalink, record.Text, err)
		return
	}

	composer, err := c.Injector.OpenComposer(ctx, post)
	if err != nil {
		c.failButton(ctx, button, record.Permalink, record.Text, err)
		return
	}
	if err := c.Injector.SetContent(ctx, composer.Input, resp); err != nil {
		c.failButton(ctx, button, record.Permalink, record.Text, err)
		return
	}
	if err := c.Injector.AttachRegenerate(ctx, composer, record.Text); err != nil {
		// The reply is already placed; a missing regenerate control is not
		// worth failing the flow over.
		c.Logger.Warn("Failed to attach regenerate control", "error", err)
	}

	c.setButtonState(ctx, button, domain.ButtonIdle)
	c.logOutcome(ctx, record.Permalink, record.Text, resp, "success")
	c.Logger.Info("Reply placed in composer", "permalink", record.Permalink)
}

// runRegenerate replaces the composer content with a fresh generation for the
// same post text.
func (c *ControllerImpl) runRegenerate(ctx context.Context, payload regenerateEvent) {
	button := browser.Handle(payload.Button)
	input := browser.Handle(payload.Input)

	c.setButtonState(ctx, button, domain.ButtonLoading)

	if !c.Limiter.Allow(payload.Text) {
		c.failButton(ctx, button, "", payload.Text,
			errors.New(errors.KindRateLimited, "too many attempts for this post"))
		return
	}

	resp, err := c.generate(ctx, payload.Text)
	if err != nil {
		c.failButton(ctx, button, "", payload.Text, err)
		return
	}

	if err := c.Injector.ClearContent(ctx, input); err != nil {
		c.failButton(ctx, button, "", payload.Text, err)
		return
	}
	if err := c.Injector.SetContent(ctx, input, resp); err != nil {
		c.failButton(ctx, button, "", payload.Text, err)
		return
	}

	c.setButtonState(ctx, button, domain.ButtonIdle)
	c.logOutcome(ctx, "", payload.Text, resp, "regenerated")
}

// generate runs one dispatch round-trip and waits for its response.
func (c *ControllerImpl) generate(ctx context.Context, postText string) (string, error) {
	respCh := make(chan dispatch.Response, 1)
	c.Dispatcher.Dispatch(ctx, dispatch.Message{
		Action:       dispatch.ActionGenerateReply,
		TweetContent: postText,
	}, func(r dispatch.Response) {
		respCh <- r
	})

	select {
	case resp := <-respCh:
		if !resp.Success {
			return "", errors.New(errors.KindTransient, resp.Error)
		}
		return resp.Reply, nil
	case <-time.After(responseTimeout):
		return "", errors.New(errors.KindTimeout, "generation did not respond in time")
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), errors.KindTransient, "reply flow cancelled")
	}
}

// failButton shows the error state on a control, reverts it after the
// display delay, records the outcome and alerts the operator for failures
// the page itself cannot explain.
func (c *ControllerImpl) failButton(ctx context.Context, button browser.Handle, permalink, postText string, err error) {
	c.Logger.Error("Reply flow failed", "kind", errors.GetKind(err), "error", err)

	c.setButtonState(ctx, button, domain.ButtonError)
	time.AfterFunc(errorDisplay, func() {
		c.setButtonState(context.Background(), button, domain.ButtonIdle)
	})

	if postText != "" {
		c.logOutcome(ctx, permalink, postText, "", string(errors.GetKind(err)))
	}

	if errors.IsKind(err, errors.KindInjectionFailure) {
		c.Notifier.Notify(fmt.Sprintf("XPoster: failed to drive the reply composer: %v", err))
	}
}

func (c *ControllerImpl) setButtonState(ctx context.Context, button browser.Handle, state domain.ButtonState) {
	expr := fmt.Sprintf(setButtonStateScript,
		browser.JSString(string(button)),
		browser.JSString(string(state)),
	)
	var present bool
	if err := c.Session.Evaluate(ctx, expr, &present); err != nil {
		c.Logger.Debug("Failed to update control state", "state", state, "error", err)
		return
	}
	if !present {
		c.Logger.Debug("Control disappeared before state update", "state", state)
	}
}

func (c *ControllerImpl) logOutcome(ctx context.Context, permalink, postText, replyText, outcome string) {
	entry := domain.ReplyLogEntry{
		Permalink: permalink,
		PostText:  postText,
		ReplyText: replyText,
		Outcome:   outcome,
	}
	if err := c.ReplyLog.Create(ctx, entry); err != nil {
		c.Logger.Warn("Failed to record reply outcome", "error", err)
	}
}
