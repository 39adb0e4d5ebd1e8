package order

import (
	"pos_umkm/internal/config"
	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"
	"pos_umkm/internal/shift"
	"pos_umkm/internal/syncer"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"order",
		fx.Provide(func(cfg config.Config, svc remote.Service, monitor *connectivity.Monitor, logger *zap.Logger) *Composer {
			return NewComposer(svc, monitor, cfg.Tax(), logger)
		}),
		fx.Provide(func(
			cfg config.Config,
			svc remote.Service,
			applier *syncer.Applier,
			q *queue.Queue,
			shifts *shift.Manager,
			cart *session.Cart,
			monitor *connectivity.Monitor,
			sess session.Context,
			logger *zap.Logger,
		) *Checkout {
			return NewCheckout(svc, applier, q, shifts, cart, monitor, sess, cfg.Tax(), logger)
		}),
		fx.Provide(func(svc remote.Service, q *queue.Queue, shifts *shift.Manager, monitor *connectivity.Monitor, sess session.Context, logger *zap.Logger) *Lister {
			return NewLister(svc, q, shifts, monitor, sess, logger)
		}),
	)
}
