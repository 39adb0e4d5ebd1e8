package internal

import (
	"context"
	"errors"
	"os"

	"pos_umkm/internal/catalog"
	"pos_umkm/internal/cli"
	"pos_umkm/internal/config"
	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/httpapi"
	"pos_umkm/internal/localstore"
	"pos_umkm/internal/logging"
	"pos_umkm/internal/order"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"
	"pos_umkm/internal/shift"
	"pos_umkm/internal/syncer"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run() error {
	opts, err := cli.ParseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, cli.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	var runner *cli.Runner

	app := fx.New(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		fx.Decorate(func(cfg config.Config) config.Config {
			return opts.Apply(cfg)
		}),
		fx.Supply(opts),
		logging.Module(),
		localstore.Module(),
		connectivity.Module(),
		remote.Module(),
		session.Module(),
		queue.Module(),
		shift.Module(),
		syncer.Module(),
		order.Module(),
		catalog.Module(),
		httpapi.Module(),
		cli.Module(),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	return runner.Execute()
}
