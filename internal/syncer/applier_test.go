package syncer

import (
	"context"
	"testing"
	"time"

	"pos_umkm/internal/pos"
	"pos_umkm/internal/remote"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openRemoteShift(t *testing.T, mem *remote.Memory) pos.Shift {
	t.Helper()
	s, err := mem.CreateShift(context.Background(), pos.Shift{StoreID: "store-1", OpenedAt: time.Now()})
	require.NoError(t, err)
	return s
}

func saleCommand(t *testing.T, shiftID string, status pos.OrderStatus, paid bool) pos.Command {
	t.Helper()
	items := []pos.OrderItem{
		{ProductID: "kopi", Name: "Kopi", UnitPrice: decimal.NewFromInt(10000), Quantity: 2},
		{ProductID: "roti", Name: "Roti", UnitPrice: decimal.NewFromInt(5000), Quantity: 1},
	}
	submit := pos.OrderSubmit{
		Order: pos.Order{StoreID: "store-1", ShiftID: shiftID, Status: status, Total: pos.Total(items, decimal.NewFromInt(11))},
		Items: items,
	}
	if paid {
		submit.Payment = &pos.Payment{Method: pos.MethodQRIS, Amount: submit.Order.Total}
	}
	cmd, err := pos.NewOrderSubmit(pos.NewLocalID(), submit)
	require.NoError(t, err)
	return cmd
}

func TestApplyOrderSubmitCreatesOrderItemsAndTransaction(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	mem.AddProduct(pos.Product{ID: "kopi", StoreID: "store-1", Stock: 10})
	mem.AddProduct(pos.Product{ID: "roti", StoreID: "store-1", Stock: pos.UnlimitedStock})
	s := openRemoteShift(t, mem)
	a := NewApplier(mem, zap.NewNop())

	applied, err := a.Apply(ctx, saleCommand(t, s.ID, pos.StatusPaid, true))
	require.NoError(t, err)
	assert.False(t, applied.Replayed)

	order, err := mem.GetOrder(ctx, applied.OrderID)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(27750)))

	items, err := mem.ListItems(ctx, applied.OrderID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	txns, err := mem.ListTransactionsByShift(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, pos.MethodQRIS, txns[0].Method)

	kopi, _ := mem.Product("kopi")
	assert.Equal(t, 8, kopi.Stock)
	roti, _ := mem.Product("roti")
	assert.Equal(t, pos.UnlimitedStock, roti.Stock)
}

func TestApplyReplayDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	mem.AddProduct(pos.Product{ID: "kopi", StoreID: "store-1", Stock: 10})
	s := openRemoteShift(t, mem)
	a := NewApplier(mem, zap.NewNop())
	cmd := saleCommand(t, s.ID, pos.StatusPaid, true)

	mem.FailNext("CreateTransaction", remote.ErrUnavailable)
	_, err := a.Apply(ctx, cmd)
	require.Error(t, err)
	assert.True(t, remote.IsTransient(err))

	applied, err := a.Apply(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, applied.Replayed)

	applied, err = a.Apply(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, applied.Replayed)

	assert.Len(t, mem.Orders(), 1)
	assert.Len(t, mem.Transactions(), 1)
	items, err := mem.ListItems(ctx, applied.OrderID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	kopi, _ := mem.Product("kopi")
	assert.Equal(t, 10, kopi.Stock, "a replay never decrements, even when the first attempt stopped before it")
}

func TestApplyHeldOrderHasNoTransaction(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	s := openRemoteShift(t, mem)
	a := NewApplier(mem, zap.NewNop())

	applied, err := a.Apply(ctx, saleCommand(t, s.ID, pos.StatusCooking, false))
	require.NoError(t, err)
	order, err := mem.GetOrder(ctx, applied.OrderID)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusCooking, order.Status)
	assert.Empty(t, mem.Transactions())
	assert.Zero(t, mem.Calls("DecrementStock"))
}

func TestApplyStockFailureDoesNotFailOrder(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	s := openRemoteShift(t, mem)
	a := NewApplier(mem, zap.NewNop())

	mem.FailNext("DecrementStock", remote.ErrUnavailable)
	_, err := a.Apply(ctx, saleCommand(t, s.ID, pos.StatusPaid, true))
	require.NoError(t, err)
	assert.Len(t, mem.Transactions(), 1)
}

func TestApplyRejections(t *testing.T) {
	a := NewApplier(remote.NewMemory(), zap.NewNop())

	_, err := a.Apply(context.Background(), pos.Command{Kind: "REFUND", LocalID: "x"})
	assert.True(t, remote.IsRejected(err))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = a.Apply(context.Background(), pos.Command{Kind: pos.KindOrderSubmit, LocalID: "x", Payload: []byte("{")})
	assert.True(t, remote.IsRejected(err))
}

func TestApplyRefusesProvisionalShift(t *testing.T) {
	a := NewApplier(remote.NewMemory(), zap.NewNop())
	_, err := a.Apply(context.Background(), saleCommand(t, pos.NewTemporaryID(), pos.StatusPaid, true))
	require.ErrorIs(t, err, ErrProvisionalShift)
	assert.False(t, remote.IsRejected(err))
}

func TestRebindShift(t *testing.T) {
	tempID := pos.NewTemporaryID()
	cmd := saleCommand(t, tempID, pos.StatusPaid, true)

	_, err := rebindShift(cmd, "")
	require.ErrorIs(t, err, ErrProvisionalShift)

	rebound, err := rebindShift(cmd, "shift-9")
	require.NoError(t, err)
	assert.Equal(t, cmd.LocalID, rebound.LocalID)
	submit, err := rebound.OrderSubmit()
	require.NoError(t, err)
	assert.Equal(t, "shift-9", submit.Order.ShiftID)
	assert.Len(t, submit.Items, 2)

	confirmed := saleCommand(t, "shift-1", pos.StatusPaid, true)
	same, err := rebindShift(confirmed, "shift-9")
	require.NoError(t, err)
	assert.Equal(t, confirmed, same)
}
