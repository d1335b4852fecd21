package generatorimpl

import (
	"net/http"
	"strings"
	"time"

	"github.com/paul-minniti/XPoster/internal/generator"
	"github.com/paul-minniti/XPoster/pkg/config"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx"
)

const (
	requestTimeout  = 60 * time.Second
	selfTestTimeout = 15 * time.Second
	retryDelay      = 1 * time.Second
)

// defaultSystemPrompt is used whenever no prompt is configured.
const defaultSystemPrompt = "You are a helpful assistant that writes short, natural replies to tweets. " +
	"Match the tone of the original tweet, keep the reply under 280 characters, " +
	"and do not use hashtags unless the tweet itself does."

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type GeneratorImpl struct {
	Config  *config.Config
	Logger  logger.Logger
	baseURL string

	// http.Client carries no timeout of its own: the 60 second budget is a
	// race at the call site, and the losing request is abandoned rather
	// than cancelled.
	http *http.Client

	timeout time.Duration
}

func New(opts Opts) *GeneratorImpl {
	return &GeneratorImpl{
		Config:  opts.Config,
		Logger:  opts.Logger,
		baseURL: strings.TrimRight(opts.Config.OpenAI.BaseUrl, "/"),
		http:    &http.Client{},
		timeout: requestTimeout,
	}
}

var _ generator.Client = (*GeneratorImpl)(nil)
