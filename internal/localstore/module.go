package localstore

import (
	"context"
	"fmt"

	"pos_umkm/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"localstore",
		fx.Provide(func(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
			store, err := New(cfg)
			if err != nil {
				return nil, err
			}
			logger.Named("localstore").Debug("local store opened", zap.String("driver", cfg.LocalDriver))
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					return store.Close()
				},
			})
			return store, nil
		}),
	)
}

func New(cfg config.Config) (Store, error) {
	switch cfg.LocalDriver {
	case "", "sqlite":
		return OpenSQLite(cfg.LocalPath)
	case "redis":
		return OpenRedis(cfg.RedisURL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.LocalDriver)
	}
}
