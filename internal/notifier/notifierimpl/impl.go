package notifierimpl

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/paul-minniti/XPoster/internal/notifier"
	"github.com/paul-minniti/XPoster/pkg/config"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type TelegramImpl struct {
	tgBot  *tgbotapi.BotAPI
	logger logger.Logger
	config *config.Config
}

// New builds the Telegram notifier. An empty token disables delivery instead
// of failing startup: alerts are supporting infrastructure, not a dependency.
func New(opts Opts) (*TelegramImpl, error) {
	impl := &TelegramImpl{
		logger: opts.Logger.WithComponent("Notifier"),
		config: opts.Config,
	}

	if opts.Config.Telegram.Token == "" {
		impl.logger.Info("Telegram token not configured, operator alerts disabled")
		return impl, nil
	}

	tgBot, err := tgbotapi.NewBotAPI(opts.Config.Telegram.Token)
	if err != nil {
		opts.Logger.Error("Error creating bot", "Error", err)
		return nil, err
	}
	impl.tgBot = tgBot
	return impl, nil
}

var _ notifier.Client = (*TelegramImpl)(nil)

// Notify sends a message to the configured operator. Delivery failures are
// logged and swallowed.
func (tg *TelegramImpl) Notify(message string) {
	if tg.tgBot == nil {
		return
	}

	msg := tgbotapi.NewMessage(tg.config.Telegram.User, message)
	if _, err := tg.tgBot.Send(msg); err != nil {
		tg.logger.Error("Error sending message to operator",
			"userID", tg.config.Telegram.User,
			"error", err)
		return
	}
	tg.logger.Info("Alert sent to operator", "userID", tg.config.Telegram.User)
}
