package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"pos_umkm/internal/order"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/session"
	"pos_umkm/internal/syncer"

	"github.com/shopspring/decimal"
)

const clockLayout = "15:04"

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func writeSyncResult(w io.Writer, res syncer.Result) {
	switch {
	case res.Skipped:
		fmt.Fprintf(w, "Offline, sinkronisasi ditunda. %d operasi menunggu.\n", res.Pending)
		return
	case len(res.Committed) == 0 && len(res.Rejected) == 0 && res.StoppedBy == "":
		fmt.Fprintln(w, "Tidak ada yang perlu disinkronkan.")
	}
	if len(res.Committed) > 0 {
		fmt.Fprintf(w, "Tersinkron: %d pesanan\n", len(res.Committed))
	}
	for _, rej := range res.Rejected {
		fmt.Fprintf(w, "Ditolak server dan dihapus dari antrean: %s (%s)\n", rej.LocalID, rej.Reason)
	}
	if res.StoppedBy != "" {
		fmt.Fprintf(w, "Sinkronisasi berhenti: %s\n", res.StoppedBy)
	}
	if res.Pending > 0 {
		fmt.Fprintf(w, "Masih menunggu: %d operasi\n", res.Pending)
	}
}

func writeQueue(w io.Writer, ops []pos.QueuedOperation) {
	if len(ops) == 0 {
		fmt.Fprintln(w, "- (antrean kosong)")
		return
	}
	for i, op := range ops {
		fmt.Fprintf(w, "%d) %s %s, dibuat %s", i+1, op.Kind, op.LocalID, op.CreatedAt.Format(clockLayout))
		if submit, err := op.OrderSubmit(); err == nil {
			fmt.Fprintf(w, ", %s, %s", submit.Order.CustomerLabel, pos.FormatRupiah(submit.Order.Total))
		}
		fmt.Fprintln(w)
	}
}

func writeProducts(w io.Writer, products []pos.Product, cached bool, savedAt time.Time) {
	if cached {
		fmt.Fprintf(w, "(katalog tersimpan %s)\n", savedAt.Format("02 Jan 15:04"))
	}
	if len(products) == 0 {
		fmt.Fprintln(w, "- (tidak ada produk)")
		return
	}
	for i, p := range products {
		fmt.Fprintf(w, "%d) %s (id=%s), harga=%s", i+1, p.Name, p.ID, pos.FormatRupiah(p.Price))
		if p.Stock != pos.UnlimitedStock {
			fmt.Fprintf(w, ", stok=%d", p.Stock)
		}
		fmt.Fprintln(w)
	}
}

func writeCategories(w io.Writer, categories []pos.Category) {
	if len(categories) == 0 {
		fmt.Fprintln(w, "- (tidak ada kategori)")
		return
	}
	for i, c := range categories {
		fmt.Fprintf(w, "%d) %s (id=%s)\n", i+1, c.Name, c.ID)
	}
}

func writeCart(w io.Writer, cart session.CartState, taxRate decimal.Decimal) {
	if cart.OrderID != "" {
		fmt.Fprintf(w, "Mengedit pesanan %s\n", cart.OrderID)
	}
	if cart.CustomerLabel != "" {
		fmt.Fprintf(w, "Pelanggan: %s\n", cart.CustomerLabel)
	}
	if cart.Empty() {
		fmt.Fprintln(w, "- (keranjang kosong)")
		return
	}
	items := cart.Items("")
	for i, item := range items {
		fmt.Fprintf(w, "%d) %s (%dx) %s\n", i+1, item.Name, item.Quantity, pos.FormatRupiah(item.LineTotal()))
	}
	subtotal := pos.Subtotal(items)
	total := pos.Total(items, taxRate)
	fmt.Fprintf(w, "Subtotal: %s\n", pos.FormatRupiah(subtotal))
	fmt.Fprintf(w, "Pajak (%s%%): %s\n", taxRate.String(), pos.FormatRupiah(total.Sub(subtotal)))
	fmt.Fprintf(w, "Total: %s\n", pos.FormatRupiah(total))
}

func writeOrders(w io.Writer, listed []order.Listed) {
	if len(listed) == 0 {
		fmt.Fprintln(w, "- (belum ada pesanan)")
		return
	}
	for i, l := range listed {
		id := l.ID
		if l.PendingSync {
			id = l.LocalID
		}
		fmt.Fprintf(w, "%d) %s %s, %s, %s", i+1, id, l.CustomerLabel, strings.ToUpper(string(l.Status)), pos.FormatRupiah(l.Total))
		if !l.CreatedAt.IsZero() {
			fmt.Fprintf(w, ", %s", l.CreatedAt.Format(clockLayout))
		}
		if l.PendingSync {
			fmt.Fprint(w, " [menunggu sinkronisasi]")
		}
		fmt.Fprintln(w)
	}
}

func writeOrderItems(w io.Writer, items []pos.OrderItem) {
	for _, item := range items {
		fmt.Fprintf(w, "  - %s %s (%dx) %s\n", item.ID, item.Name, item.Quantity, pos.FormatRupiah(item.LineTotal()))
	}
}

// receipt renders the text shared with the customer after payment.
func receipt(o pos.Order, items []pos.OrderItem, method pos.PaymentMethod) string {
	var b strings.Builder
	b.WriteString("*Struk Pembayaran - POS UMKM*\n\n")
	if o.ID != "" {
		fmt.Fprintf(&b, "*Struk Pesanan #%s*\n", o.ID)
	}
	fmt.Fprintf(&b, "Pelanggan: %s\n\n*Detail Pesanan:*\n", o.CustomerLabel)
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (%dx) %s\n", item.Name, item.Quantity, pos.FormatRupiah(item.LineTotal()))
	}
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "Total: *%s*\n", pos.FormatRupiah(o.Total))
	fmt.Fprintf(&b, "Status: LUNAS (%s)\n\n", strings.ToUpper(string(method)))
	b.WriteString("Terima kasih telah berbelanja!")
	return b.String()
}
