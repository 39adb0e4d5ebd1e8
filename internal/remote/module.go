package remote

import (
	"context"
	"fmt"

	"pos_umkm/internal/config"
	"pos_umkm/internal/connectivity"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"remote",
		fx.Provide(func(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Service, error) {
			svc, err := New(context.Background(), cfg, logger)
			if err != nil {
				return nil, err
			}
			if pg, ok := svc.(*Postgres); ok {
				lc.Append(fx.Hook{
					OnStop: func(_ context.Context) error {
						pg.Close()
						return nil
					},
				})
			}
			return svc, nil
		}),
		fx.Provide(func(svc Service) connectivity.Pinger {
			return svc
		}),
	)
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (Service, error) {
	switch cfg.RemoteDriver {
	case "", "rest":
		if cfg.RemoteURL == "" {
			return nil, ErrMissingURL
		}
		return NewClient(cfg, logger), nil
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, logger)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.RemoteDriver)
	}
}
