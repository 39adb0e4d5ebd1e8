package order

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"pos_umkm/internal/pos"

	"go.uber.org/zap"
)

var (
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrPaymentNeedsPay   = errors.New("use pay to mark an order as paid")
)

// Kitchen flow. Paid is reached only through Pay so that the payment and
// the status change stay together.
var transitions = map[pos.OrderStatus][]pos.OrderStatus{
	pos.StatusPending: {pos.StatusCooking, pos.StatusCancelled},
	pos.StatusCooking: {pos.StatusReady, pos.StatusCancelled},
	pos.StatusReady:   {pos.StatusCancelled},
	pos.StatusPaid:    {pos.StatusCompleted},
}

func ValidTransition(from, to pos.OrderStatus) bool {
	return slices.Contains(transitions[from], to)
}

func (c *Checkout) UpdateStatus(ctx context.Context, orderID string, to pos.OrderStatus) (pos.Order, error) {
	if to == pos.StatusPaid {
		return pos.Order{}, ErrPaymentNeedsPay
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
	if !ValidTransition(existing.Status, to) {
		return pos.Order{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, existing.Status, to)
	}
	if err := c.setStatus(ctx, &existing, to); err != nil {
		return pos.Order{}, err
	}
	return existing, nil
}

// Delete removes an unpaid order together with its items.
func (c *Checkout) Delete(ctx context.Context, orderID string) error {
	if orderID == "" || pos.IsTemporaryID(orderID) {
		return ErrNotSynced
	}
	if !c.online.IsOnline() {
		return ErrOffline
	}

	existing, err := c.remote.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if existing.Status.Settled() {
		return ErrAlreadyPaid
	}
	if err := c.remote.DeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	c.logger.Info("order deleted", zap.String("order_id", orderID))
	return nil
}

// Resume loads an unpaid order back into the cart for editing or payment.
func (c *Checkout) Resume(ctx context.Context, orderID string) (pos.Order, error) {
	if orderID == "" || pos.IsTemporaryID(orderID) {
		return pos.Order{}, ErrNotSynced
	}
	if !c.online.IsOnline() {
		return pos.Order{}, ErrResumeNeedsOnline
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
	if err := c.cart.LoadOrder(ctx, existing, items); err != nil {
		return pos.Order{}, err
	}
	return existing, nil
}
