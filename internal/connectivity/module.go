package connectivity

import (
	"context"

	"pos_umkm/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"connectivity",
		fx.Provide(NewMonitor),
		fx.Provide(func(pinger Pinger, monitor *Monitor, cfg config.Config, logger *zap.Logger) *Prober {
			return NewProber(pinger, monitor, cfg.ProbeInterval, cfg.Timeout, logger)
		}),
		fx.Invoke(func(lc fx.Lifecycle, monitor *Monitor, prober *Prober, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := monitor.Restore(ctx); err != nil {
						logger.Warn("restore connectivity status", zap.Error(err))
					}
					prober.Check(ctx)
					prober.Start()
					return nil
				},
				OnStop: func(_ context.Context) error {
					prober.Stop()
					return nil
				},
			})
		}),
	)
}
