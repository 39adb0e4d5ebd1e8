package remote

import (
	"context"
	"time"

	"pos_umkm/internal/pos"

	"github.com/shopspring/decimal"
)

// Service is the remote data contract: CRUD over shifts, orders, items,
// transactions and the read models needed for shift statistics.
type Service interface {
	Ping(ctx context.Context) error

	FindOpenShift(ctx context.Context, storeID string) (*pos.Shift, error)
	GetShift(ctx context.Context, id string) (pos.Shift, error)
	CreateShift(ctx context.Context, shift pos.Shift) (pos.Shift, error)
	CloseShift(ctx context.Context, id string, closing ShiftClose) error

	// CreateOrder is idempotent on clientRef: a replay returns the order
	// created by the first call and created=false.
	CreateOrder(ctx context.Context, order pos.Order, clientRef string) (created pos.Order, isNew bool, err error)
	GetOrder(ctx context.Context, id string) (pos.Order, error)
	UpdateOrder(ctx context.Context, id string, patch OrderPatch) error
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context, storeID, shiftID string) ([]pos.Order, error)

	CreateItems(ctx context.Context, items []pos.OrderItem) error
	ListItems(ctx context.Context, orderID string) ([]pos.OrderItem, error)
	DeleteItemsByOrder(ctx context.Context, orderID string) error
	ReassignItems(ctx context.Context, itemIDs []string, orderID string) error

	// CreateTransaction ignores a second insert with the same clientRef.
	CreateTransaction(ctx context.Context, txn pos.Transaction, clientRef string) error
	ListTransactionsByShift(ctx context.Context, shiftID string) ([]pos.Transaction, error)
	ListExpensesByShift(ctx context.Context, shiftID string) ([]pos.Expense, error)

	ListShoppingLists(ctx context.Context, storeID, date string) ([]pos.ShoppingList, error)
	CloseShoppingLists(ctx context.Context, storeID, date string) error

	DecrementStock(ctx context.Context, productID string, quantity int) error
	ListProducts(ctx context.Context, storeID string) ([]pos.Product, error)
	ListCategories(ctx context.Context, storeID string) ([]pos.Category, error)
}

type ShiftClose struct {
	ClosedAt   time.Time
	TotalSales decimal.Decimal
	EndingCash decimal.Decimal
}

type OrderPatch struct {
	Status        *pos.OrderStatus `json:"status,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	CustomerLabel *string          `json:"customer_name,omitempty"`
}

// DateKey is the calendar day used to match shopping lists to a shift.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
