package main

import (
	"context"
	"log"

	"coinpilot/internal/modules/config"
	"coinpilot/internal/modules/postgres"
	"coinpilot/internal/modules/telegram"
	"coinpilot/internal/scheduler"
	"coinpilot/pkg/logger"
	"coinpilot/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	logger.SetServiceName("coinpilot")

	app := fx.New(
		config.Module(),
		postgres.Module(),
		telegram.Module(),
		scheduler.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			_, closer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closer()
					return nil
				},
			})
			return nil
		}),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
}
