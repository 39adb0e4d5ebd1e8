package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pos_umkm/internal/pos"
	"pos_umkm/internal/remote"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrOffline   = errors.New("this action needs a connection to the server")
	ErrNotSynced = errors.New("order has not been synced yet")
)

type Connectivity interface {
	IsOnline() bool
}

type SplitRequest struct {
	OrderID       string
	ItemIDs       []string
	CustomerLabel string
}

type SplitResult struct {
	Source  pos.Order
	Created pos.Order
}

// Composer changes the composition of orders that already exist remotely.
type Composer struct {
	remote  remote.Service
	online  Connectivity
	taxRate decimal.Decimal
	logger  *zap.Logger
}

func NewComposer(svc remote.Service, online Connectivity, taxRate decimal.Decimal, logger *zap.Logger) *Composer {
	return &Composer{
		remote:  svc,
		online:  online,
		taxRate: taxRate,
		logger:  logger.Named("composer"),
	}
}

func (c *Composer) ready(ids ...string) error {
	for _, id := range ids {
		if id == "" || pos.IsTemporaryID(id) {
			return ErrNotSynced
		}
	}
	if !c.online.IsOnline() {
		return ErrOffline
	}
	return nil
}

// Split moves the selected items of an order into a new order in the same
// shift and reprices both.
func (c *Composer) Split(ctx context.Context, req SplitRequest) (SplitResult, error) {
	if err := c.ready(req.OrderID); err != nil {
		return SplitResult{}, err
	}

	source, err := c.remote.GetOrder(ctx, req.OrderID)
	if err != nil {
		return SplitResult{}, fmt.Errorf("get order: %w", err)
	}
	if source.Status == pos.StatusCancelled {
		return SplitResult{}, ErrCancelled
	}
	items, err := c.remote.ListItems(ctx, source.ID)
	if err != nil {
		return SplitResult{}, fmt.Errorf("list items: %w", err)
	}

	plan, err := PlanSplit(items, req.ItemIDs, c.taxRate)
	if err != nil {
		return SplitResult{}, err
	}

	label := strings.TrimSpace(req.CustomerLabel)
	if label == "" {
		label = source.CustomerLabel + " (Split)"
	}
	status := source.Status
	if status.Settled() {
		status = pos.StatusPending
	}

	created, _, err := c.remote.CreateOrder(ctx, pos.Order{
		StoreID:       source.StoreID,
		ShiftID:       source.ShiftID,
		Status:        status,
		CustomerLabel: label,
		Total:         plan.MoveTotal,
	}, "")
	if err != nil {
		return SplitResult{}, fmt.Errorf("create order: %w", err)
	}
	if err := c.remote.ReassignItems(ctx, plan.MoveIDs(), created.ID); err != nil {
		return SplitResult{}, fmt.Errorf("move items: %w", err)
	}
	if err := c.remote.UpdateOrder(ctx, source.ID, remote.OrderPatch{Total: &plan.KeepTotal}); err != nil {
		return SplitResult{}, fmt.Errorf("update order: %w", err)
	}
	source.Total = plan.KeepTotal

	c.logger.Info("order split",
		zap.String("order_id", source.ID),
		zap.String("new_order_id", created.ID),
		zap.Int("moved", len(plan.Move)),
	)
	return SplitResult{Source: source, Created: created}, nil
}

// Merge moves every item of src onto dst, reprices dst and deletes src.
func (c *Composer) Merge(ctx context.Context, srcID, dstID string) (pos.Order, error) {
	if srcID == dstID {
		return pos.Order{}, ErrSelfMerge
	}
	if err := c.ready(srcID, dstID); err != nil {
		return pos.Order{}, err
	}

	src, err := c.remote.GetOrder(ctx, srcID)
	if err != nil {
		return pos.Order{}, fmt.Errorf("get source order: %w", err)
	}
	dst, err := c.remote.GetOrder(ctx, dstID)
	if err != nil {
		return pos.Order{}, fmt.Errorf("get target order: %w", err)
	}
	srcItems, err := c.remote.ListItems(ctx, src.ID)
	if err != nil {
		return pos.Order{}, fmt.Errorf("list source items: %w", err)
	}
	dstItems, err := c.remote.ListItems(ctx, dst.ID)
	if err != nil {
		return pos.Order{}, fmt.Errorf("list target items: %w", err)
	}

	plan, err := PlanMerge(src, dst, srcItems, dstItems, c.taxRate)
	if err != nil {
		return pos.Order{}, err
	}

	if err := c.remote.ReassignItems(ctx, plan.MoveIDs, dst.ID); err != nil {
		return pos.Order{}, fmt.Errorf("move items: %w", err)
	}
	if err := c.remote.UpdateOrder(ctx, dst.ID, remote.OrderPatch{Total: &plan.Total}); err != nil {
		return pos.Order{}, fmt.Errorf("update order: %w", err)
	}
	if err := c.remote.DeleteOrder(ctx, src.ID); err != nil {
		return pos.Order{}, fmt.Errorf("delete source order: %w", err)
	}
	dst.Total = plan.Total

	c.logger.Info("orders merged",
		zap.String("source_id", src.ID),
		zap.String("target_id", dst.ID),
		zap.Int("moved", len(plan.MoveIDs)),
	)
	return dst, nil
}
