package syncer

import (
	"context"
	"errors"
	"fmt"

	"pos_umkm/internal/pos"
	"pos_umkm/internal/remote"

	"go.uber.org/zap"
)

var (
	ErrUnknownKind      = errors.New("unknown operation kind")
	ErrProvisionalShift = errors.New("operation references a provisional shift")
)

type Applied struct {
	OrderID  string
	Replayed bool
}

// Applier performs a mutation against the remote. It is shared by immediate
// submission and queue draining, so both paths produce identical records.
type Applier struct {
	remote remote.Service
	logger *zap.Logger
}

func NewApplier(svc remote.Service, logger *zap.Logger) *Applier {
	return &Applier{remote: svc, logger: logger.Named("applier")}
}

func (a *Applier) Apply(ctx context.Context, cmd pos.Command) (Applied, error) {
	switch cmd.Kind {
	case pos.KindOrderSubmit:
		return a.applyOrderSubmit(ctx, cmd)
	default:
		return Applied{}, fmt.Errorf("%w: %w: %q", remote.ErrRejected, ErrUnknownKind, cmd.Kind)
	}
}

func (a *Applier) applyOrderSubmit(ctx context.Context, cmd pos.Command) (Applied, error) {
	submit, err := cmd.OrderSubmit()
	if err != nil {
		return Applied{}, fmt.Errorf("%w: decode payload: %w", remote.ErrRejected, err)
	}
	if pos.IsTemporaryID(submit.Order.ShiftID) {
		return Applied{}, fmt.Errorf("%w: %s", ErrProvisionalShift, submit.Order.ShiftID)
	}

	order, isNew, err := a.remote.CreateOrder(ctx, submit.Order, cmd.LocalID)
	if err != nil {
		return Applied{}, fmt.Errorf("create order: %w", err)
	}
	if !isNew {
		// an earlier attempt got this far; rebuild its items from the payload
		if err := a.remote.DeleteItemsByOrder(ctx, order.ID); err != nil {
			return Applied{}, fmt.Errorf("reset items: %w", err)
		}
	}

	items := make([]pos.OrderItem, len(submit.Items))
	for i, item := range submit.Items {
		item.ID = ""
		item.OrderID = order.ID
		items[i] = item
	}
	if err := a.remote.CreateItems(ctx, items); err != nil {
		return Applied{}, fmt.Errorf("create items: %w", err)
	}

	if submit.Payment != nil {
		txn := pos.Transaction{
			OrderID:   order.ID,
			ShiftID:   submit.Order.ShiftID,
			StoreID:   submit.Order.StoreID,
			Method:    submit.Payment.Method,
			Amount:    submit.Payment.Amount,
			CreatedAt: submit.Order.CreatedAt,
		}
		if err := a.remote.CreateTransaction(ctx, txn, cmd.LocalID); err != nil {
			return Applied{}, fmt.Errorf("create transaction: %w", err)
		}
	}

	if isNew && submit.Order.Status == pos.StatusPaid {
		a.decrementStock(ctx, items)
	}

	a.logger.Info("order applied",
		zap.String("local_id", cmd.LocalID),
		zap.String("order_id", order.ID),
		zap.Bool("replayed", !isNew),
	)
	return Applied{OrderID: order.ID, Replayed: !isNew}, nil
}

// decrementStock is best effort: a failure never fails the order.
func (a *Applier) decrementStock(ctx context.Context, items []pos.OrderItem) {
	for _, item := range items {
		if err := a.remote.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			a.logger.Warn("decrement stock", zap.String("product_id", item.ProductID), zap.Error(err))
		}
	}
}
