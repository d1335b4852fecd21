package fx

import (
	"github.com/paul-minniti/XPoster/internal/repositories/replylog"
	"github.com/paul-minniti/XPoster/internal/repositories/settings"
	"go.uber.org/fx"
)

var Module = fx.Options(
	settings.Module,
	replylog.Module,
)
