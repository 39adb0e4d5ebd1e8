package session

import (
	"context"
	"testing"

	"pos_umkm/internal/config"
	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	kopi = pos.Product{ID: "p-kopi", Name: "Kopi Susu", Price: decimal.NewFromInt(20000)}
	teh  = pos.Product{ID: "p-teh", Name: "Es Teh", Price: decimal.NewFromInt(5000)}
)

func TestCartAddMergesSameProduct(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(localstore.NewMemory())

	require.NoError(t, cart.Add(ctx, kopi))
	require.NoError(t, cart.Add(ctx, teh))
	require.NoError(t, cart.Add(ctx, kopi))

	state, err := cart.State(ctx)
	require.NoError(t, err)
	require.Len(t, state.Lines, 2)
	assert.Equal(t, 2, state.Lines[0].Quantity)
	assert.Equal(t, 1, state.Lines[1].Quantity)

	subtotal := pos.Subtotal(state.Items(""))
	assert.True(t, subtotal.Equal(decimal.NewFromInt(45000)))
}

func TestCartAdjustDropsEmptyLines(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(localstore.NewMemory())
	require.NoError(t, cart.Add(ctx, kopi))

	require.NoError(t, cart.Adjust(ctx, kopi.ID, 2))
	state, err := cart.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Lines[0].Quantity)

	require.NoError(t, cart.Adjust(ctx, kopi.ID, -3))
	state, err = cart.State(ctx)
	require.NoError(t, err)
	assert.True(t, state.Empty())

	require.ErrorIs(t, cart.Adjust(ctx, kopi.ID, 1), ErrNotInCart)
	require.ErrorIs(t, cart.Remove(ctx, kopi.ID), ErrNotInCart)
}

func TestCartPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory()

	cart := NewCart(store)
	require.NoError(t, cart.Add(ctx, teh))
	require.NoError(t, cart.SetCustomer(ctx, "Meja 4"))

	state, err := NewCart(store).State(ctx)
	require.NoError(t, err)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, "Meja 4", state.CustomerLabel)
}

func TestCartLoadOrderReplacesContents(t *testing.T) {
	ctx := context.Background()
	cart := NewCart(localstore.NewMemory())
	require.NoError(t, cart.Add(ctx, kopi))

	order := pos.Order{ID: "order-1", CustomerLabel: "Budi"}
	items := []pos.OrderItem{{ProductID: teh.ID, Name: teh.Name, UnitPrice: teh.Price, Quantity: 2}}
	require.NoError(t, cart.LoadOrder(ctx, order, items))

	state, err := cart.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-1", state.OrderID)
	assert.Equal(t, "Budi", state.CustomerLabel)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, teh.ID, state.Lines[0].ProductID)

	require.NoError(t, cart.Clear(ctx))
	state, err = cart.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, CartState{}, state)
}

func TestContextRequiresStore(t *testing.T) {
	_, err := NewContext(config.Config{StoreID: "  "}).RequireStore()
	require.ErrorIs(t, err, ErrNoStore)

	id, err := NewContext(config.Config{StoreID: "store-1"}).RequireStore()
	require.NoError(t, err)
	assert.Equal(t, "store-1", id)
}
