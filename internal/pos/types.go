package pos

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type ShiftStatus string

const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCooking   OrderStatus = "cooking"
	StatusReady     OrderStatus = "ready"
	StatusPaid      OrderStatus = "paid"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Settled reports whether a payment has already been recorded for the status.
func (s OrderStatus) Settled() bool {
	return s == StatusPaid || s == StatusCompleted
}

type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodQRIS PaymentMethod = "qris"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCash || m == MethodQRIS
}

type Shift struct {
	ID           string           `json:"id,omitempty"`
	StoreID      string           `json:"store_id"`
	CashierID    string           `json:"cashier_id,omitempty"`
	OpenedAt     time.Time        `json:"start_time"`
	ClosedAt     *time.Time       `json:"end_time,omitempty"`
	StartingCash decimal.Decimal  `json:"start_cash"`
	EndingCash   *decimal.Decimal `json:"end_cash,omitempty"`
	TotalSales   *decimal.Decimal `json:"total_sales,omitempty"`
	Status       ShiftStatus      `json:"status"`
}

func (s Shift) Temporary() bool {
	return IsTemporaryID(s.ID)
}

type Order struct {
	ID            string          `json:"id,omitempty"`
	StoreID       string          `json:"store_id"`
	ShiftID       string          `json:"shift_id,omitempty"`
	Status        OrderStatus     `json:"status"`
	CustomerLabel string          `json:"customer_name"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	ClientRef     string          `json:"client_ref,omitempty"`
}

// OrderItem carries copies of the product name and price taken when the
// order was composed.
type OrderItem struct {
	ID        string          `json:"id,omitempty"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"product_name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Transaction struct {
	ID        string          `json:"id,omitempty"`
	OrderID   string          `json:"order_id"`
	ShiftID   string          `json:"shift_id"`
	StoreID   string          `json:"store_id"`
	Method    PaymentMethod   `json:"payment_method"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	ClientRef string          `json:"client_ref,omitempty"`
}

type Expense struct {
	ID          string          `json:"id"`
	ShiftID     string          `json:"shift_id"`
	StoreID     string          `json:"store_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type ShoppingListStatus string

const (
	ShoppingActive ShoppingListStatus = "active"
	ShoppingClosed ShoppingListStatus = "closed"
)

type ShoppingList struct {
	ID             string             `json:"id"`
	StoreID        string             `json:"store_id"`
	Date           string             `json:"date"`
	Status         ShoppingListStatus `json:"status"`
	TotalEstimated decimal.Decimal    `json:"total_estimated"`
}

// UnlimitedStock marks products whose stock is not tracked.
const UnlimitedStock = -1

type Product struct {
	ID         string          `json:"id"`
	StoreID    string          `json:"store_id"`
	CategoryID string          `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
}

type Category struct {
	ID      string `json:"id"`
	StoreID string `json:"store_id"`
	Name    string `json:"name"`
}

type CommandKind string

const (
	KindOrderSubmit CommandKind = "ORDER_SUBMIT"
)

// Command is the uniform shape of every mutation, applied immediately when
// online or persisted as a QueuedOperation when not.
type Command struct {
	Kind    CommandKind     `json:"type"`
	LocalID string          `json:"id"`
	Payload json.RawMessage `json:"data"`
}

type QueuedOperation struct {
	Command
	CreatedAt time.Time `json:"created_at"`
}

type Payment struct {
	Method PaymentMethod   `json:"payment_method"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderSubmit is the ORDER_SUBMIT payload.
type OrderSubmit struct {
	Order   Order       `json:"order"`
	Items   []OrderItem `json:"items"`
	Payment *Payment    `json:"payment,omitempty"`
}

func NewOrderSubmit(localID string, submit OrderSubmit) (Command, error) {
	data, err := json.Marshal(submit)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindOrderSubmit, LocalID: localID, Payload: data}, nil
}

func (c Command) OrderSubmit() (OrderSubmit, error) {
	var submit OrderSubmit
	if err := json.Unmarshal(c.Payload, &submit); err != nil {
		return OrderSubmit{}, err
	}
	return submit, nil
}
