package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"pos_umkm/internal/order"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/shift"
	"pos_umkm/internal/syncer"

	"go.uber.org/zap"
)

var errNeedsPostgres = errors.New("migrate needs remote_driver=postgres")

type statusView struct {
	Online   bool           `json:"online"`
	Since    time.Time      `json:"since"`
	State    shift.State    `json:"shift_state"`
	Shift    *pos.Shift     `json:"shift,omitempty"`
	Pending  int            `json:"pending"`
	LastSync *syncer.Result `json:"last_sync,omitempty"`
}

func (r *Runner) cmdStatus(ctx context.Context) error {
	event := r.monitor.Status()
	view := statusView{Online: event.Online, Since: event.At}

	state, err := r.shifts.State(ctx)
	if err != nil {
		return err
	}
	view.State = state
	if current, ok, err := r.shifts.Current(ctx); err != nil {
		return err
	} else if ok {
		view.Shift = &current
	}
	if view.Pending, err = r.queue.Len(ctx); err != nil {
		return err
	}
	if last, ok := r.engine.LastResult(); ok {
		view.LastSync = &last
	}

	return r.emit(view, func() {
		fmt.Fprintf(r.out, "Koneksi: %s\n", onlineLabel(view.Online))
		if view.Shift == nil {
			fmt.Fprintf(r.out, "Shift: %s\n", view.State)
		} else {
			fmt.Fprintf(r.out, "Shift: %s %s, mulai %s, modal %s", view.State, view.Shift.ID,
				view.Shift.OpenedAt.Format(clockLayout), pos.FormatRupiah(view.Shift.StartingCash))
			if view.Shift.Temporary() {
				fmt.Fprint(r.out, " (belum tersinkron)")
			}
			fmt.Fprintln(r.out)
		}
		fmt.Fprintf(r.out, "Antrean: %d operasi menunggu sinkronisasi\n", view.Pending)
		if view.LastSync != nil {
			fmt.Fprintf(r.out, "Sinkron terakhir: %s\n", view.LastSync.FinishedAt.Format(clockLayout))
		}
	})
}

func (r *Runner) cmdOpenShift(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("open-shift <modal awal>")
	}
	cash, err := parseMoney(args[0])
	if err != nil {
		return err
	}

	opened, err := trackCall(r.logger, "open-shift", args, func() (pos.Shift, error) {
		return r.shifts.Open(ctx, cash)
	})
	adopted := errors.Is(err, shift.ErrAlreadyOpen)
	if err != nil && !adopted {
		return err
	}

	return r.emit(opened, func() {
		if adopted {
			fmt.Fprintf(r.out, "Shift sudah terbuka: %s (mulai %s)\n", opened.ID, opened.OpenedAt.Format(clockLayout))
			return
		}
		fmt.Fprintf(r.out, "Shift dibuka: %s, modal awal %s\n", opened.ID, pos.FormatRupiah(opened.StartingCash))
		if opened.Temporary() {
			fmt.Fprintln(r.out, "Offline: shift akan disinkronkan saat koneksi kembali.")
		}
	})
}

func (r *Runner) cmdCloseShift(ctx context.Context, args []string) error {
	fs := newFlagSet("close-shift", r.out)
	confirm := fs.Bool("confirm", false, "close the shift")
	cancel := fs.Bool("cancel", false, "cancel a prepared close")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cancel {
		r.shifts.CancelClose()
		fmt.Fprintln(r.out, "Tutup shift dibatalkan.")
		return nil
	}

	stats, err := trackCall(r.logger, "close-shift.prepare", args, func() (shift.Stats, error) {
		return r.shifts.PrepareClose(ctx)
	})
	if err != nil {
		return err
	}
	if !*confirm {
		return r.emit(stats, func() {
			fmt.Fprintln(r.out, shift.Report(stats, r.sess.CashierName))
			fmt.Fprintln(r.out, "\nJalankan close-shift -confirm untuk menutup shift.")
		})
	}

	stats, err = trackCall(r.logger, "close-shift.confirm", args, func() (shift.Stats, error) {
		return r.shifts.ConfirmClose(ctx)
	})
	if err != nil {
		return err
	}
	return r.emit(stats, func() {
		fmt.Fprintln(r.out, shift.Report(stats, r.sess.CashierName))
		fmt.Fprintln(r.out, "\nShift ditutup.")
	})
}

func (r *Runner) cmdSync(ctx context.Context) error {
	res, err := trackCall(r.logger, "sync", nil, func() (syncer.Result, error) {
		return r.engine.Drain(ctx)
	})
	if errors.Is(err, syncer.ErrPassInFlight) {
		if err := r.engine.WaitIdle(ctx); err != nil {
			return err
		}
		res, _ = r.engine.LastResult()
		err = nil
	}
	if err != nil {
		return err
	}
	return r.emit(res, func() { writeSyncResult(r.out, res) })
}

func (r *Runner) cmdQueue(ctx context.Context) error {
	ops, err := r.queue.List(ctx)
	if err != nil {
		return err
	}
	if ops == nil {
		ops = []pos.QueuedOperation{}
	}
	return r.emit(ops, func() { writeQueue(r.out, ops) })
}

func (r *Runner) cmdProducts(ctx context.Context) error {
	view, err := r.catalog.Products(ctx)
	if err != nil {
		return err
	}
	return r.emit(view, func() { writeProducts(r.out, view.Items, view.Cached, view.SavedAt) })
}

func (r *Runner) cmdCategories(ctx context.Context) error {
	view, err := r.catalog.Categories(ctx)
	if err != nil {
		return err
	}
	return r.emit(view, func() { writeCategories(r.out, view.Items) })
}

func (r *Runner) cmdCart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"show"}
	}
	action, rest := strings.ToLower(args[0]), args[1:]

	var err error
	switch action {
	case "show":
	case "add":
		err = r.cartAdd(ctx, rest)
	case "remove":
		if len(rest) != 1 {
			return usage("cart remove <produk>")
		}
		err = r.cart.Remove(ctx, r.resolveCartProduct(ctx, rest[0]))
	case "inc", "dec":
		if len(rest) != 1 {
			return usage("cart %s <produk>", action)
		}
		delta := 1
		if action == "dec" {
			delta = -1
		}
		err = r.cart.Adjust(ctx, r.resolveCartProduct(ctx, rest[0]), delta)
	case "clear":
		err = r.cart.Clear(ctx)
	case "customer":
		err = r.cart.SetCustomer(ctx, strings.Join(rest, " "))
	default:
		return usage("cart show|add|remove|inc|dec|clear|customer")
	}
	if err != nil {
		return err
	}

	state, err := r.cart.State(ctx)
	if err != nil {
		return err
	}
	return r.emit(state, func() { writeCart(r.out, state, r.cfg.Tax()) })
}

func (r *Runner) cartAdd(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usage("cart add <produk> [jumlah]")
	}
	qty := 1
	if len(args) == 2 {
		n, err := parseQuantity(args[1])
		if err != nil {
			return err
		}
		qty = n
	}

	product, err := r.catalog.Product(ctx, args[0])
	if err != nil {
		return err
	}
	if err := r.cart.Add(ctx, product); err != nil {
		return err
	}
	if qty > 1 {
		return r.cart.Adjust(ctx, product.ID, qty-1)
	}
	return nil
}

// resolveCartProduct maps a name typed by the cashier to the product id of
// a cart line; unknown names are passed through as ids.
func (r *Runner) resolveCartProduct(ctx context.Context, ref string) string {
	state, err := r.cart.State(ctx)
	if err != nil {
		return ref
	}
	for _, line := range state.Lines {
		if line.ProductID == ref || strings.EqualFold(line.Name, ref) {
			return line.ProductID
		}
	}
	return ref
}

func (r *Runner) cmdCheckout(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("checkout pay|hold|save [-method cash|qris] [-cash N] [-customer NAMA]")
	}
	intent := order.Intent(strings.ToLower(args[0]))

	fs := newFlagSet("checkout", r.out)
	method := fs.String("method", string(pos.MethodCash), "cash or qris")
	tendered := fs.String("cash", "", "cash received")
	customer := fs.String("customer", "", "customer or table name")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	req := order.CheckoutRequest{
		Intent:        intent,
		Method:        pos.PaymentMethod(strings.ToLower(*method)),
		CustomerLabel: *customer,
	}
	if *tendered != "" {
		amount, err := parseMoney(*tendered)
		if err != nil {
			return err
		}
		req.Tendered = amount
	}

	res, err := trackCall(r.logger, "checkout", args, func() (order.CheckoutResult, error) {
		return r.checkout.Submit(ctx, req)
	})
	if err != nil {
		return err
	}

	return r.emit(res, func() {
		switch {
		case res.Queued:
			fmt.Fprintf(r.out, "Offline: pesanan %s disimpan dan menunggu sinkronisasi.\n", res.LocalID)
		case intent == order.IntentPay:
			fmt.Fprintln(r.out, "Pembayaran berhasil dicatat!")
		default:
			fmt.Fprintf(r.out, "Pesanan Disimpan! (%s)\n", res.Order.ID)
		}
		fmt.Fprintf(r.out, "Total: %s\n", pos.FormatRupiah(res.Order.Total))
		if res.Change.IsPositive() {
			fmt.Fprintf(r.out, "Kembalian: %s\n", pos.FormatRupiah(res.Change))
		}
		if intent == order.IntentPay {
			fmt.Fprintf(r.out, "\n%s\n", receipt(res.Order, res.Items, req.Method))
		}
	})
}

func (r *Runner) cmdOrders(ctx context.Context) error {
	listed, err := trackCall(r.logger, "orders", nil, func() ([]order.Listed, error) {
		return r.lister.Orders(ctx)
	})
	if err != nil {
		return err
	}
	if listed == nil {
		listed = []order.Listed{}
	}
	return r.emit(listed, func() { writeOrders(r.out, listed) })
}

func (r *Runner) cmdResume(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("resume <pesanan>")
	}
	resumed, err := r.checkout.Resume(ctx, args[0])
	if err != nil {
		return err
	}
	state, err := r.cart.State(ctx)
	if err != nil {
		return err
	}
	return r.emit(state, func() {
		fmt.Fprintf(r.out, "Pesanan %s (%s) dimuat ke keranjang.\n", resumed.ID, resumed.CustomerLabel)
		writeCart(r.out, state, r.cfg.Tax())
	})
}

func (r *Runner) cmdPay(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return usage("pay <pesanan> [cash|qris]")
	}
	method := pos.MethodCash
	if len(args) == 2 {
		method = pos.PaymentMethod(strings.ToLower(args[1]))
	}

	paid, err := trackCall(r.logger, "pay", args, func() (pos.Order, error) {
		return r.checkout.Pay(ctx, args[0], method)
	})
	if err != nil {
		return err
	}
	return r.emit(paid, func() {
		fmt.Fprintf(r.out, "Pembayaran berhasil dicatat! %s, %s\n", paid.ID, pos.FormatRupiah(paid.Total))
	})
}

func (r *Runner) cmdStatusSet(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("status-set <pesanan> <status>")
	}
	status, err := parseStatus(args[1])
	if err != nil {
		return err
	}
	updated, err := trackCall(r.logger, "status-set", args, func() (pos.Order, error) {
		return r.checkout.UpdateStatus(ctx, args[0], status)
	})
	if err != nil {
		return err
	}
	return r.emit(updated, func() {
		fmt.Fprintf(r.out, "Status pesanan %s: %s\n", updated.ID, strings.ToUpper(string(updated.Status)))
	})
}

func (r *Runner) cmdDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("delete <pesanan>")
	}
	if _, err := trackCall(r.logger, "delete", args, func() (struct{}, error) {
		return struct{}{}, r.checkout.Delete(ctx, args[0])
	}); err != nil {
		return err
	}
	return r.emit(map[string]string{"deleted": args[0]}, func() {
		fmt.Fprintln(r.out, "Pesanan dihapus.")
	})
}

func (r *Runner) cmdSplit(ctx context.Context, args []string) error {
	fs := newFlagSet("split", r.out)
	customer := fs.String("customer", "", "name for the new order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 2 {
		return usage("split [-customer NAMA] <pesanan> <item>...")
	}

	res, err := trackCall(r.logger, "split", args, func() (order.SplitResult, error) {
		return r.composer.Split(ctx, order.SplitRequest{
			OrderID:       rest[0],
			ItemIDs:       rest[1:],
			CustomerLabel: *customer,
		})
	})
	if err != nil {
		return err
	}
	return r.emit(res, func() {
		fmt.Fprintln(r.out, "Pesanan berhasil dipisah!")
		fmt.Fprintf(r.out, "- %s %s: %s\n", res.Source.ID, res.Source.CustomerLabel, pos.FormatRupiah(res.Source.Total))
		fmt.Fprintf(r.out, "- %s %s: %s\n", res.Created.ID, res.Created.CustomerLabel, pos.FormatRupiah(res.Created.Total))
	})
}

func (r *Runner) cmdMerge(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("merge <sumber> <tujuan>")
	}
	merged, err := trackCall(r.logger, "merge", args, func() (pos.Order, error) {
		return r.composer.Merge(ctx, args[0], args[1])
	})
	if err != nil {
		return err
	}
	items, err := r.remote.ListItems(ctx, merged.ID)
	if err != nil {
		r.logger.Warn("list merged items", zap.Error(err))
	}
	return r.emit(merged, func() {
		fmt.Fprintf(r.out, "Pesanan berhasil digabung! %s %s: %s\n", merged.ID, merged.CustomerLabel, pos.FormatRupiah(merged.Total))
		writeOrderItems(r.out, items)
	})
}

func (r *Runner) cmdConnectivity(online bool) error {
	changed := r.monitor.Set(online)
	return r.emit(map[string]bool{"online": online, "changed": changed}, func() {
		fmt.Fprintf(r.out, "Koneksi: %s\n", onlineLabel(online))
	})
}

func (r *Runner) cmdProbe(ctx context.Context) error {
	online := r.prober.Check(ctx)
	return r.emit(map[string]bool{"online": online}, func() {
		fmt.Fprintf(r.out, "Koneksi: %s\n", onlineLabel(online))
	})
}

func (r *Runner) cmdServe(ctx context.Context) error {
	fmt.Fprintf(r.out, "Control API di http://%s (Ctrl+C untuk berhenti)\n", r.cfg.HTTPAddr)
	return r.server.ListenAndServe(ctx)
}

func (r *Runner) cmdMigrate(ctx context.Context) error {
	migrator, ok := r.remote.(Migrator)
	if !ok {
		return fmt.Errorf("%w, got %q", errNeedsPostgres, r.cfg.RemoteDriver)
	}
	if _, err := trackCall(r.logger, "migrate", nil, func() (struct{}, error) {
		return struct{}{}, migrator.Migrate(ctx)
	}); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Migrasi selesai.")
	return nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}
