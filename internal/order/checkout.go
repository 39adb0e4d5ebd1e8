package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos_umkm/internal/pos"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"
	"pos_umkm/internal/shift"
	"pos_umkm/internal/syncer"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	walkInLabel = "Walk-in Customer"
	tableLabel  = "Table Order"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnknownIntent     = errors.New("unknown checkout intent")
	ErrBadMethod         = errors.New("payment method must be cash or qris")
	ErrInsufficientCash  = errors.New("cash received is less than the total")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrSaveNeedsOnline   = errors.New("saving an open order needs a connection")
	ErrResumeNeedsOnline = errors.New("editing an existing order needs a connection")
)

type Intent string

const (
	IntentPay  Intent = "pay"
	IntentHold Intent = "hold"
	IntentSave Intent = "save"
)

// Status is the order status a new order starts in.
func (i Intent) Status() (pos.OrderStatus, error) {
	switch i {
	case IntentPay:
		return pos.StatusPaid, nil
	case IntentHold:
		return pos.StatusCooking, nil
	case IntentSave:
		return pos.StatusPending, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIntent, i)
	}
}

type CheckoutRequest struct {
	Intent        Intent
	Method        pos.PaymentMethod
	CustomerLabel string
	// Tendered is the cash handed over; zero skips the change calculation.
	Tendered decimal.Decimal
}

type CheckoutResult struct {
	Order   pos.Order       `json:"order"`
	Items   []pos.OrderItem `json:"items"`
	LocalID string          `json:"local_id"`
	Queued  bool            `json:"queued"`
	Change  decimal.Decimal `json:"change"`
}

type Shifts interface {
	Current(ctx context.Context) (pos.Shift, bool, error)
}

type Cart interface {
	State(ctx context.Context) (session.CartState, error)
	LoadOrder(ctx context.Context, order pos.Order, items []pos.OrderItem) error
	Clear(ctx context.Context) error
}

// Checkout turns the cart into an order. New orders go through the same
// ORDER_SUBMIT command whether they are applied now or queued for later.
type Checkout struct {
	remote  remote.Service
	applier *syncer.Applier
	queue   *queue.Queue
	shifts  Shifts
	cart    Cart
	online  Connectivity
	sess    session.Context
	taxRate decimal.Decimal
	logger  *zap.Logger
	now     func() time.Time
}

func NewCheckout(
	svc remote.Service,
	applier *syncer.Applier,
	q *queue.Queue,
	shifts Shifts,
	cart Cart,
	online Connectivity,
	sess session.Context,
	taxRate decimal.Decimal,
	logger *zap.Logger,
) *Checkout {
	return &Checkout{
		remote:  svc,
		applier: applier,
		queue:   q,
		shifts:  shifts,
		cart:    cart,
		online:  online,
		sess:    sess,
		taxRate: taxRate,
		logger:  logger.Named("checkout"),
		now:     time.Now,
	}
}

func (c *Checkout) Submit(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	status, err := req.Intent.Status()
	if err != nil {
		return CheckoutResult{}, err
	}
	var payment *pos.Payment
	if req.Intent == IntentPay {
		if req.Method == "" {
			req.Method = pos.MethodCash
		}
		if !req.Method.Valid() {
			return CheckoutResult{}, ErrBadMethod
		}
		payment = &pos.Payment{Method: req.Method}
	}

	storeID, err := c.sess.RequireStore()
	if err != nil {
		return CheckoutResult{}, err
	}
	cart, err := c.cart.State(ctx)
	if err != nil {
		return CheckoutResult{}, err
	}
	if cart.Empty() {
		return CheckoutResult{}, ErrEmptyCart
	}
	current, ok, err := c.shifts.Current(ctx)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !ok {
		return CheckoutResult{}, shift.ErrNoOpenShift
	}

	items := cart.Items("")
	total := pos.Total(items, c.taxRate)
	change, err := tender(req, total)
	if err != nil {
		return CheckoutResult{}, err
	}
	if payment != nil {
		payment.Amount = total
	}

	label := strings.TrimSpace(req.CustomerLabel)
	if label == "" {
		label = strings.TrimSpace(cart.CustomerLabel)
	}
	if label == "" {
		label = tableLabel
		if status == pos.StatusPaid {
			label = walkInLabel
		}
	}

	online := c.online.IsOnline()
	if cart.OrderID != "" {
		if !online {
			return CheckoutResult{}, ErrResumeNeedsOnline
		}
		return c.resume(ctx, cart.OrderID, req, label, items, total, change)
	}
	if req.Intent == IntentSave && !online {
		return CheckoutResult{}, ErrSaveNeedsOnline
	}

	submit := pos.OrderSubmit{
		Order: pos.Order{
			StoreID:       storeID,
			ShiftID:       current.ID,
			Status:        status,
			CustomerLabel: label,
			Total:         total,
			CreatedAt:     c.now(),
		},
		Items:   items,
		Payment: payment,
	}
	cmd, err := pos.NewOrderSubmit(pos.NewLocalID(), submit)
	if err != nil {
		return CheckoutResult{}, err
	}
	res := CheckoutResult{Order: submit.Order, Items: items, LocalID: cmd.LocalID, Change: change}

	if online {
		applied, err := c.applier.Apply(ctx, cmd)
		switch {
		case err == nil:
			res.Order.ID = applied.OrderID
			res.Order.ClientRef = cmd.LocalID
			c.clearCart(ctx)
			return res, nil
		case remote.IsRejected(err):
			return CheckoutResult{}, err
		}
		c.logger.Warn("order not applied, queueing", zap.String("local_id", cmd.LocalID), zap.Error(err))
	}

	if _, err := c.queue.Enqueue(ctx, cmd); err != nil {
		return CheckoutResult{}, fmt.Errorf("queue order: %w", err)
	}
	res.Queued = true
	c.logger.Info("order queued for sync", zap.String("local_id", cmd.LocalID), zap.String("shift_id", current.ID))
	c.clearCart(ctx)
	return res, nil
}

// resume rewrites an order that was loaded back into the cart.
func (c *Checkout) resume(ctx context.Context, orderID string, req CheckoutRequest, label string, items []pos.OrderItem, total, change decimal.Decimal) (CheckoutResult, error) {
	existing, err := c.remote.GetOrder(ctx, orderID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("get order: %w", err)
	}
	if existing.Status.Settled() {
		return CheckoutResult{}, ErrAlreadyPaid
	}
	if existing.Status == pos.StatusCancelled {
		return CheckoutResult{}, ErrCancelled
	}

	if err := c.remote.UpdateOrder(ctx, orderID, remote.OrderPatch{Total: &total, CustomerLabel: &label}); err != nil {
		return CheckoutResult{}, fmt.Errorf("update order: %w", err)
	}
	if err := c.remote.DeleteItemsByOrder(ctx, orderID); err != nil {
		return CheckoutResult{}, fmt.Errorf("reset items: %w", err)
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	if err := c.remote.CreateItems(ctx, items); err != nil {
		return CheckoutResult{}, fmt.Errorf("create items: %w", err)
	}

	existing.Total = total
	existing.CustomerLabel = label
	res := CheckoutResult{Order: existing, Items: items, Change: change}

	switch req.Intent {
	case IntentPay:
		paid, err := c.pay(ctx, existing, req.Method, items)
		if err != nil {
			return CheckoutResult{}, err
		}
		res.Order = paid
	case IntentHold:
		if err := c.setStatus(ctx, &res.Order, pos.StatusCooking); err != nil {
			return CheckoutResult{}, err
		}
	}
	c.clearCart(ctx)
	return res, nil
}

// Pay settles an open order. The transaction is keyed by the order id so a
// retried payment never records a second one.
func (c *Checkout) Pay(ctx context.Context, orderID string, method pos.PaymentMethod) (pos.Order, error) {
	if method == "" {
		method = pos.MethodCash
	}
	if !method.Valid() {
		return pos.Order{}, ErrBadMethod
	}
	if orderID == "" || pos.IsTemporaryID(orderID) {
		return pos.Order{}, ErrNotSynced
	}
	if !c.online.IsOnline() {
		return pos.Order{}, ErrOffline
	}

	existing, err := c.remote.GetOrder(ctx, orderID)
	if err != nil {
		return pos.Order{}, fmt.Errorf("get order: %w", err)
	}
	if existing.Status.Settled() {
		return pos.Order{}, ErrAlreadyPaid
	}
	if existing.Status == pos.StatusCancelled {
		return pos.Order{}, ErrCancelled
	}
	items, err := c.remote.ListItems(ctx, orderID)
	if err != nil {
		return pos.Order{}, fmt.Errorf("list items: %w", err)
	}
	return c.pay(ctx, existing, method, items)
}

func (c *Checkout) pay(ctx context.Context, o pos.Order, method pos.PaymentMethod, items []pos.OrderItem) (pos.Order, error) {
	if method == "" {
		method = pos.MethodCash
	}
	txn := pos.Transaction{
		OrderID:   o.ID,
		ShiftID:   o.ShiftID,
		StoreID:   o.StoreID,
		Method:    method,
		Amount:    o.Total,
		CreatedAt: c.now(),
	}
	if err := c.remote.CreateTransaction(ctx, txn, paymentRef(o.ID)); err != nil {
		return pos.Order{}, fmt.Errorf("record payment: %w", err)
	}
	if err := c.setStatus(ctx, &o, pos.StatusPaid); err != nil {
		return pos.Order{}, err
	}
	for _, item := range items {
		if err := c.remote.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			c.logger.Warn("decrement stock", zap.String("product_id", item.ProductID), zap.Error(err))
		}
	}

	c.logger.Info("order paid",
		zap.String("order_id", o.ID),
		zap.String("method", string(method)),
		zap.String("amount", o.Total.String()),
	)
	return o, nil
}

func (c *Checkout) setStatus(ctx context.Context, o *pos.Order, status pos.OrderStatus) error {
	if err := c.remote.UpdateOrder(ctx, o.ID, remote.OrderPatch{Status: &status}); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	o.Status = status
	return nil
}

func (c *Checkout) clearCart(ctx context.Context) {
	if err := c.cart.Clear(ctx); err != nil {
		c.logger.Warn("clear cart", zap.Error(err))
	}
}

func paymentRef(orderID string) string {
	return "pay:" + orderID
}

func tender(req CheckoutRequest, total decimal.Decimal) (decimal.Decimal, error) {
	if req.Intent != IntentPay || req.Method != pos.MethodCash || req.Tendered.IsZero() {
		return decimal.Zero, nil
	}
	if req.Tendered.LessThan(total) {
		return decimal.Zero, ErrInsufficientCash
	}
	return req.Tendered.Sub(total), nil
}
