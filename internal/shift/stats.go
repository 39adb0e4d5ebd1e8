package shift

import (
	"time"

	"pos_umkm/internal/pos"

	"github.com/shopspring/decimal"
)

type Stats struct {
	ShiftID          string          `json:"shift_id"`
	OpenedAt         time.Time       `json:"opened_at"`
	ClosedAt         time.Time       `json:"closed_at"`
	StartingCash     decimal.Decimal `json:"starting_cash"`
	GrossSales       decimal.Decimal `json:"gross_sales"`
	TransactionCount int             `json:"transaction_count"`
	ShoppingCost     decimal.Decimal `json:"shopping_cost"`
	Expenses         decimal.Decimal `json:"expenses"`
	NetIncome        decimal.Decimal `json:"net_income"`
	ExpectedCash     decimal.Decimal `json:"expected_cash"`
}

// ComputeStats aggregates the shift's financial summary. Shopping reduces net
// income but not the expected drawer cash.
func ComputeStats(shift pos.Shift, txns []pos.Transaction, lists []pos.ShoppingList, expenses []pos.Expense, closedAt time.Time) Stats {
	sales := decimal.Zero
	for _, t := range txns {
		sales = sales.Add(t.Amount)
	}
	shopping := decimal.Zero
	for _, l := range lists {
		shopping = shopping.Add(l.TotalEstimated)
	}
	spent := decimal.Zero
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}

	return Stats{
		ShiftID:          shift.ID,
		OpenedAt:         shift.OpenedAt,
		ClosedAt:         closedAt,
		StartingCash:     shift.StartingCash,
		GrossSales:       sales,
		TransactionCount: len(txns),
		ShoppingCost:     shopping,
		Expenses:         spent,
		NetIncome:        sales.Sub(shopping).Sub(spent),
		ExpectedCash:     shift.StartingCash.Add(sales).Sub(spent),
	}
}
