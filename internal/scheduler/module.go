package scheduler

import (
	"context"

	"coinpilot/internal/credentials"
	"coinpilot/internal/exchange"
	"coinpilot/internal/executor"
	"coinpilot/internal/modules/config"
	"coinpilot/internal/risk"
	"coinpilot/internal/storage"
	"coinpilot/internal/strategy"
	"coinpilot/pkg/db"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("scheduler",
		fx.Provide(
			NewRegistry,
			risk.NewCooldowns,
			strategy.NewEvaluator,
			executor.New,
			risk.NewManager,
			New,

			// repositories behind their interfaces
			func(tm db.TxManager) storage.Positions {
				return storage.NewPgPositions(tm)
			},
			func(tm db.TxManager) storage.Sales {
				return storage.NewPgSales(tm)
			},

			// credential store
			func(tm db.TxManager, cfg *config.Config) (credentials.Store, error) {
				return credentials.NewPgStore(tm, cfg.CredentialKey)
			},

			// one client per user credential pair
			func(cfg *config.Config) exchange.Factory {
				return func(apiKey, apiSecret string) exchange.Client {
					return exchange.NewBinanceClient(apiKey, apiSecret, cfg.Binance.Testnet)
				}
			},

			// shared market-data client for candle fetches
			func(cfg *config.Config) exchange.Client {
				return exchange.NewBinanceClient(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.Testnet)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, s *Scheduler) {
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go s.Run(ctx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
