package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportContainsFigures(t *testing.T) {
	opened := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	stats := Stats{
		OpenedAt:         opened,
		ClosedAt:         opened.Add(13 * time.Hour),
		StartingCash:     money(50000),
		GrossSales:       money(500000),
		TransactionCount: 12,
		ShoppingCost:     money(120000),
		Expenses:         money(30000),
		NetIncome:        money(350000),
		ExpectedCash:     money(520000),
	}

	text := Report(stats, "Sari")
	assert.Contains(t, text, "Kasir: Sari")
	assert.Contains(t, text, "Mulai: 14 Mar 2025 08:00")
	assert.Contains(t, text, "Total Penjualan: Rp. 500.000 (12 transaksi)")
	assert.Contains(t, text, "Laba Bersih: Rp. 350.000")
	assert.Contains(t, text, "Uang di Laci: Rp. 520.000")
}
