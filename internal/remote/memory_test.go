package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos_umkm/internal/pos"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEnforcesSingleOpenShift(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateShift(ctx, pos.Shift{StoreID: "s1", OpenedAt: time.Now()})
	require.NoError(t, err)

	_, err = m.CreateShift(ctx, pos.Shift{StoreID: "s1", OpenedAt: time.Now()})
	require.Error(t, err)
	assert.True(t, IsRejected(err))

	_, err = m.CreateShift(ctx, pos.Shift{StoreID: "s2", OpenedAt: time.Now()})
	require.NoError(t, err)
}

func TestMemoryCreateOrderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, isNew, err := m.CreateOrder(ctx, pos.Order{StoreID: "s1"}, "ref-1")
	require.NoError(t, err)
	assert.True(t, isNew)

	second, isNew, err := m.CreateOrder(ctx, pos.Order{StoreID: "s1"}, "ref-1")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, m.Orders(), 1)
}

func TestMemoryFaultInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")

	m.FailNext("ListOrders", boom)
	_, err := m.ListOrders(ctx, "s1", "")
	require.ErrorIs(t, err, boom)

	_, err = m.ListOrders(ctx, "s1", "")
	require.NoError(t, err)

	m.SetUnreachable(true)
	err = m.Ping(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 2, m.Calls("ListOrders"))
}

func TestMemoryTransactionsDedupeByClientRef(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	txn := pos.Transaction{StoreID: "s1", Amount: decimal.NewFromInt(100)}

	require.NoError(t, m.CreateTransaction(ctx, txn, "ref"))
	require.NoError(t, m.CreateTransaction(ctx, txn, "ref"))
	assert.Len(t, m.Transactions(), 1)
}
