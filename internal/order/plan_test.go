package order

import (
	"fmt"
	"math/rand"
	"testing"

	"pos_umkm/internal/pos"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tax = decimal.NewFromInt(11)

func item(id string, price int64, qty int) pos.OrderItem {
	return pos.OrderItem{ID: id, OrderID: "o1", ProductID: "p-" + id, Name: id, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

func TestPlanSplitScenario(t *testing.T) {
	items := []pos.OrderItem{item("a", 10000, 2), item("b", 5000, 1)}
	require.True(t, pos.Total(items, tax).Equal(decimal.NewFromInt(27750)))

	plan, err := PlanSplit(items, []string{"b"}, tax)
	require.NoError(t, err)
	assert.True(t, plan.MoveTotal.Equal(decimal.NewFromInt(5550)), plan.MoveTotal.String())
	assert.True(t, plan.KeepTotal.Equal(decimal.NewFromInt(22200)), plan.KeepTotal.String())
	assert.True(t, plan.KeepTotal.Add(plan.MoveTotal).Equal(decimal.NewFromInt(27750)))
	assert.Equal(t, []string{"b"}, plan.MoveIDs())
}

func TestPlanSplitRejects(t *testing.T) {
	items := []pos.OrderItem{item("a", 10000, 2), item("b", 5000, 1)}

	tests := []struct {
		name string
		move []string
		want error
	}{
		{"nothing selected", nil, ErrNothingToMove},
		{"every item", []string{"a", "b"}, ErrMovesEverything},
		{"foreign item", []string{"zz"}, ErrUnknownItem},
		{"duplicates covering every item", []string{"a", "a", "b"}, ErrMovesEverything},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanSplit(items, tt.move, tax)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPlanSplitPartitionsAndStaysWithinOneUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	one := decimal.NewFromInt(1)

	for round := 0; round < 200; round++ {
		n := 2 + rng.Intn(6)
		items := make([]pos.OrderItem, n)
		for i := range items {
			items[i] = item(fmt.Sprintf("i%d", i), int64(500+rng.Intn(40000)), 1+rng.Intn(4))
		}
		var move []string
		for _, it := range items[:1+rng.Intn(n-1)] {
			move = append(move, it.ID)
		}

		plan, err := PlanSplit(items, move, tax)
		require.NoError(t, err)
		assert.Len(t, append(plan.Keep, plan.Move...), n)

		seen := map[string]bool{}
		for _, it := range append(plan.Keep, plan.Move...) {
			assert.False(t, seen[it.ID], "item %s appears twice", it.ID)
			seen[it.ID] = true
		}

		diff := plan.KeepTotal.Add(plan.MoveTotal).Sub(pos.Total(items, tax)).Abs()
		assert.True(t, diff.LessThanOrEqual(one), "round %d: off by %s", round, diff)
	}
}

func TestPlanMerge(t *testing.T) {
	src := pos.Order{ID: "src", Status: pos.StatusPending}
	dst := pos.Order{ID: "dst", Status: pos.StatusCooking}
	srcItems := []pos.OrderItem{item("b", 5000, 1)}
	dstItems := []pos.OrderItem{item("a", 10000, 2)}

	plan, err := PlanMerge(src, dst, srcItems, dstItems, tax)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, plan.MoveIDs)
	require.Len(t, plan.Items, 2)
	for _, it := range plan.Items {
		if it.ID == "b" {
			assert.Equal(t, "dst", it.OrderID)
		}
	}
	assert.True(t, plan.Total.Equal(decimal.NewFromInt(27750)))

	_, err = PlanMerge(src, src, srcItems, srcItems, tax)
	assert.ErrorIs(t, err, ErrSelfMerge)

	dst.Status = pos.StatusCancelled
	_, err = PlanMerge(src, dst, srcItems, dstItems, tax)
	assert.ErrorIs(t, err, ErrCancelled)
}
