package syncer

import (
	"context"

	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/shift"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"syncer",
		fx.Provide(NewApplier),
		fx.Provide(func(q *queue.Queue, applier *Applier, shifts *shift.Manager, monitor *connectivity.Monitor, logger *zap.Logger) *Engine {
			return NewEngine(q, applier, shifts, monitor, logger)
		}),
		fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					engine.Start()
					return nil
				},
				OnStop: func(_ context.Context) error {
					engine.Stop()
					return nil
				},
			})
		}),
	)
}
