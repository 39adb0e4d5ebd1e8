package httpapi

import (
	"pos_umkm/internal/config"
	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/order"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/shift"
	"pos_umkm/internal/syncer"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"httpapi",
		fx.Provide(func(monitor *connectivity.Monitor, engine *syncer.Engine, q *queue.Queue, shifts *shift.Manager, lister *order.Lister, logger *zap.Logger) *Handler {
			return NewHandler(monitor, engine, q, shifts, lister, logger)
		}),
		fx.Provide(func(cfg config.Config, h *Handler, logger *zap.Logger) *Server {
			return NewServer(cfg.HTTPAddr, h, logger)
		}),
	)
}
