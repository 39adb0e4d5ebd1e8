package shift

import (
	"context"

	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/localstore"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"shift",
		fx.Provide(func(svc remote.Service, store localstore.Store, monitor *connectivity.Monitor, sess session.Context, cart *session.Cart, logger *zap.Logger) *Manager {
			return NewManager(svc, store, monitor, sess, cart, logger)
		}),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if _, err := m.Reconcile(ctx); err != nil {
						logger.Warn("initial shift reconcile", zap.Error(err))
					}
					return nil
				},
			})
		}),
	)
}
