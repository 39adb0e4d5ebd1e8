package order

import (
	"errors"

	"pos_umkm/internal/pos"

	"github.com/shopspring/decimal"
)

var (
	ErrNothingToMove   = errors.New("select at least one item to move")
	ErrMovesEverything = errors.New("cannot move every item, at least one must stay on the order")
	ErrUnknownItem     = errors.New("item does not belong to the order")
	ErrSelfMerge       = errors.New("an order cannot be merged into itself")
	ErrCancelled       = errors.New("order is cancelled")
)

type SplitPlan struct {
	Keep      []pos.OrderItem
	Move      []pos.OrderItem
	KeepTotal decimal.Decimal
	MoveTotal decimal.Decimal
}

// MoveIDs returns the ids of the items leaving the source order.
func (p SplitPlan) MoveIDs() []string {
	ids := make([]string, len(p.Move))
	for i, item := range p.Move {
		ids[i] = item.ID
	}
	return ids
}

// PlanSplit partitions items into those that stay and those that move and
// prices both halves. The source must keep at least one item.
func PlanSplit(items []pos.OrderItem, moveIDs []string, taxRate decimal.Decimal) (SplitPlan, error) {
	if len(moveIDs) == 0 {
		return SplitPlan{}, ErrNothingToMove
	}

	owned := make(map[string]bool, len(items))
	for _, item := range items {
		owned[item.ID] = true
	}
	selected := make(map[string]bool, len(moveIDs))
	for _, id := range moveIDs {
		if !owned[id] {
			return SplitPlan{}, ErrUnknownItem
		}
		selected[id] = true
	}

	var plan SplitPlan
	for _, item := range items {
		if selected[item.ID] {
			plan.Move = append(plan.Move, item)
		} else {
			plan.Keep = append(plan.Keep, item)
		}
	}
	if len(plan.Keep) == 0 {
		return SplitPlan{}, ErrMovesEverything
	}

	plan.KeepTotal = pos.Total(plan.Keep, taxRate)
	plan.MoveTotal = pos.Total(plan.Move, taxRate)
	return plan, nil
}

type MergePlan struct {
	MoveIDs []string
	Items   []pos.OrderItem
	Total   decimal.Decimal
}

// PlanMerge computes the target's item set and total after absorbing src.
func PlanMerge(src, dst pos.Order, srcItems, dstItems []pos.OrderItem, taxRate decimal.Decimal) (MergePlan, error) {
	if src.ID == dst.ID {
		return MergePlan{}, ErrSelfMerge
	}
	if src.Status == pos.StatusCancelled || dst.Status == pos.StatusCancelled {
		return MergePlan{}, ErrCancelled
	}

	plan := MergePlan{
		MoveIDs: make([]string, 0, len(srcItems)),
		Items:   make([]pos.OrderItem, 0, len(srcItems)+len(dstItems)),
	}
	plan.Items = append(plan.Items, dstItems...)
	for _, item := range srcItems {
		plan.MoveIDs = append(plan.MoveIDs, item.ID)
		item.OrderID = dst.ID
		plan.Items = append(plan.Items, item)
	}
	plan.Total = pos.Total(plan.Items, taxRate)
	return plan, nil
}
