package dispatchimpl

import (
	"context"
	"strings"

	"github.com/paul-minniti/XPoster/internal/dispatch"
	"github.com/paul-minniti/XPoster/internal/domain"
	"github.com/paul-minniti/XPoster/internal/generator"
	"github.com/paul-minniti/XPoster/internal/settings"
	"github.com/paul-minniti/XPoster/pkg/errors"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Generator generator.Client
	Settings  *settings.Service
	Logger    logger.Logger
}

type DispatchImpl struct {
	generator generator.Client
	settings  *settings.Service
	logger    logger.Logger
}

func New(opts Opts) *DispatchImpl {
	return &DispatchImpl{
		generator: opts.Generator,
		settings:  opts.Settings,
		logger:    opts.Logger.WithComponent("Dispatch"),
	}
}

var _ dispatch.Client = (*DispatchImpl)(nil)

func (d *DispatchImpl) Dispatch(ctx context.Context, msg dispatch.Message, respond func(dispatch.Response)) {
	if msg.Action != dispatch.ActionGenerateReply {
		d.logger.Warn("Rejected message with unknown action", "action", msg.Action)
		respond(dispatch.Response{Success: false, Error: "Unknown action: " + msg.Action})
		return
	}
	if strings.TrimSpace(msg.TweetContent) == "" {
		d.logger.Warn("Rejected message with empty tweet content")
		respond(dispatch.Response{Success: false, Error: "No tweet content provided"})
		return
	}

	go d.handleGenerate(ctx, msg, respond)
}

func (d *DispatchImpl) handleGenerate(ctx context.Context, msg dispatch.Message, respond func(dispatch.Response)) {
	userSettings, err := d.settings.Load(ctx)
	if err != nil {
		d.logger.Error("Failed to load settings", "error", err)
		respond(dispatch.Response{Success: false, Error: "Failed to load settings"})
		return
	}
	if userSettings.APIKey == "" {
		// No credential means no network call at all.
		respond(dispatch.Response{
			Success: false,
			Error:   "API key not configured. Please set it via the settings.",
		})
		return
	}

	reply, err := d.generator.Generate(ctx, domain.GenerationRequest{
		PostText:     msg.TweetContent,
		SystemPrompt: userSettings.SystemPrompt,
		Credential:   userSettings.APIKey,
	})
	if err != nil {
		d.logger.Error("Generation failed", "kind", errors.GetKind(err), "error", err)
		respond(dispatch.Response{Success: false, Error: errors.GetMessage(err)})
		return
	}

	respond(dispatch.Response{Success: true, Reply: reply})
}
