package catalog

import (
	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/localstore"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"catalog",
		fx.Provide(func(svc remote.Service, store localstore.Store, monitor *connectivity.Monitor, sess session.Context, logger *zap.Logger) *Service {
			return New(svc, store, monitor, sess, logger)
		}),
	)
}
