package shift

import (
	"fmt"
	"strings"

	"pos_umkm/internal/pos"
)

const reportTimeLayout = "02 Jan 2006 15:04"

// Report renders the end-of-shift summary shared with the store owner.
func Report(stats Stats, cashier string) string {
	if cashier == "" {
		cashier = "-"
	}

	var b strings.Builder
	b.WriteString("*LAPORAN TUTUP SHIFT*\n")
	fmt.Fprintf(&b, "Kasir: %s\n", cashier)
	fmt.Fprintf(&b, "Mulai: %s\n", stats.OpenedAt.Format(reportTimeLayout))
	fmt.Fprintf(&b, "Selesai: %s\n\n", stats.ClosedAt.Format(reportTimeLayout))
	fmt.Fprintf(&b, "Modal Awal: %s\n", pos.FormatRupiah(stats.StartingCash))
	fmt.Fprintf(&b, "Total Penjualan: %s (%d transaksi)\n", pos.FormatRupiah(stats.GrossSales), stats.TransactionCount)
	fmt.Fprintf(&b, "Belanja: %s\n", pos.FormatRupiah(stats.ShoppingCost))
	fmt.Fprintf(&b, "Pengeluaran: %s\n", pos.FormatRupiah(stats.Expenses))
	fmt.Fprintf(&b, "Laba Bersih: %s\n", pos.FormatRupiah(stats.NetIncome))
	fmt.Fprintf(&b, "Uang di Laci: %s", pos.FormatRupiah(stats.ExpectedCash))
	return b.String()
}
