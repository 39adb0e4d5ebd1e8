package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pos_umkm/internal/catalog"
	"pos_umkm/internal/config"
	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/httpapi"
	"pos_umkm/internal/order"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"
	"pos_umkm/internal/shift"
	"pos_umkm/internal/syncer"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const commandHelp = `  status                          connection, shift and sync state
  open-shift <cash>               open a shift with starting cash
  close-shift [-confirm|-cancel]  show the closing report, -confirm closes the shift
  sync                            push queued orders now
  queue                           list orders waiting for sync
  products | categories           browse the catalog (cached when offline)
  cart show|add|remove|inc|dec|clear|customer ...
  checkout pay|hold|save [-method cash|qris] [-cash N] [-customer NAME]
  orders                          orders of the current shift
  resume <order>                  load an open order into the cart
  pay <order> [cash|qris]         settle an open order
  status-set <order> <status>     cooking, ready, completed or cancelled
  delete <order>                  delete an unpaid order
  split <order> <item>... [-customer NAME]
  merge <source> <target>
  online | offline | probe        set or check connectivity
  serve                           run the local control API
  migrate                         apply the Postgres schema
`

type Migrator interface {
	Migrate(ctx context.Context) error
}

type Params struct {
	fx.In

	Options  Options
	Config   config.Config
	Logger   *zap.Logger
	Session  session.Context
	Remote   remote.Service
	Monitor  *connectivity.Monitor
	Prober   *connectivity.Prober
	Shifts   *shift.Manager
	Cart     *session.Cart
	Catalog  *catalog.Service
	Checkout *order.Checkout
	Composer *order.Composer
	Lister   *order.Lister
	Queue    *queue.Queue
	Engine   *syncer.Engine
	Server   *httpapi.Server
}

type Runner struct {
	opts     Options
	cfg      config.Config
	logger   *zap.Logger
	sess     session.Context
	remote   remote.Service
	monitor  *connectivity.Monitor
	prober   *connectivity.Prober
	shifts   *shift.Manager
	cart     *session.Cart
	catalog  *catalog.Service
	checkout *order.Checkout
	composer *order.Composer
	lister   *order.Lister
	queue    *queue.Queue
	engine   *syncer.Engine
	server   *httpapi.Server

	in      io.Reader
	out     io.Writer
	history *History
}

func NewRunner(p Params) *Runner {
	logger := p.Logger.Named("cli")
	return &Runner{
		opts:     p.Options,
		cfg:      p.Config,
		logger:   logger,
		sess:     p.Session,
		remote:   p.Remote,
		monitor:  p.Monitor,
		prober:   p.Prober,
		shifts:   p.Shifts,
		cart:     p.Cart,
		catalog:  p.Catalog,
		checkout: p.Checkout,
		composer: p.Composer,
		lister:   p.Lister,
		queue:    p.Queue,
		engine:   p.Engine,
		server:   p.Server,
		in:       os.Stdin,
		out:      os.Stdout,
		history:  NewHistory(defaultHistoryMaxEntries, logger),
	}
}

func (r *Runner) Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if len(r.opts.Command) == 0 {
		return r.runREPL(ctx)
	}
	if err := r.dispatch(ctx, r.opts.Command); err != nil {
		return userError{err: err}
	}
	return nil
}

func (r *Runner) runREPL(ctx context.Context) error {
	reader := bufio.NewScanner(r.in)
	fmt.Fprintln(r.out, "POS UMKM (ketik 'help' untuk daftar perintah, 'exit' untuk keluar)")

	for {
		fmt.Fprint(r.out, "> ")
		if !reader.Scan() {
			return reader.Err()
		}

		line := strings.TrimSpace(reader.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "/clear":
			r.history.Clear()
			fmt.Fprintln(r.out, "Riwayat dihapus.")
			continue
		case "/history":
			r.printHistory()
			continue
		case "exit", "quit":
			return nil
		}

		r.history.Append(line)
		if err := r.dispatch(ctx, strings.Fields(line)); err != nil {
			r.logger.Debug("command failed", zap.String("line", line), zap.Error(err))
			fmt.Fprintf(r.out, "Gagal: %s\n", friendlyError(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *Runner) printHistory() {
	entries := r.history.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "Riwayat kosong.")
		return
	}
	for i, line := range entries {
		fmt.Fprintf(r.out, "%d) %s\n", i+1, line)
	}
}

func (r *Runner) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	name, rest := strings.ToLower(args[0]), args[1:]
	r.logger.Info("command received",
		zap.String("command", name),
		zap.Strings("args", rest),
		zap.String("store_id", r.sess.StoreID),
		zap.Bool("json", r.opts.JSON),
	)

	switch name {
	case "help", "-h", "--help":
		fmt.Fprint(r.out, commandHelp)
		return nil
	case "status":
		return r.cmdStatus(ctx)
	case "open-shift":
		return r.cmdOpenShift(ctx, rest)
	case "close-shift":
		return r.cmdCloseShift(ctx, rest)
	case "sync":
		return r.cmdSync(ctx)
	case "queue":
		return r.cmdQueue(ctx)
	case "products":
		return r.cmdProducts(ctx)
	case "categories":
		return r.cmdCategories(ctx)
	case "cart":
		return r.cmdCart(ctx, rest)
	case "checkout":
		return r.cmdCheckout(ctx, rest)
	case "orders":
		return r.cmdOrders(ctx)
	case "resume":
		return r.cmdResume(ctx, rest)
	case "pay":
		return r.cmdPay(ctx, rest)
	case "status-set":
		return r.cmdStatusSet(ctx, rest)
	case "delete":
		return r.cmdDelete(ctx, rest)
	case "split":
		return r.cmdSplit(ctx, rest)
	case "merge":
		return r.cmdMerge(ctx, rest)
	case "online":
		return r.cmdConnectivity(true)
	case "offline":
		return r.cmdConnectivity(false)
	case "probe":
		return r.cmdProbe(ctx)
	case "serve":
		return r.cmdServe(ctx)
	case "migrate":
		return r.cmdMigrate(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
}

// emit prints v as JSON in -json mode and calls human otherwise.
func (r *Runner) emit(v any, human func()) error {
	if r.opts.JSON {
		return json.NewEncoder(r.out).Encode(v)
	}
	human()
	return nil
}

var errUnknownCommand = errors.New("unknown command")

// userError carries a command failure to main with a readable message.
type userError struct {
	err error
}

func (e userError) Error() string {
	return friendlyError(e.err)
}

func (e userError) Unwrap() error {
	return e.err
}
