package telegram

import (
	"coinpilot/internal/modules/config"
	"coinpilot/internal/notify"
	"coinpilot/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			func(cfg *config.Config) notify.Notifier {
				if cfg.Telegram.Token == "" {
					logger.Warn("no telegram token configured, notifications go to the log")
					return notify.NewStdout()
				}
				t, err := notify.NewTelegram(cfg.Telegram.Token)
				if err != nil {
					logger.Error("telegram init failed, falling back to log notifier: %v", err)
					return notify.NewStdout()
				}
				return t
			},
		),
	)
}
