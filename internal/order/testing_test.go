package order

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"
	"pos_umkm/internal/syncer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type switchable struct{ on atomic.Bool }

func (s *switchable) IsOnline() bool { return s.on.Load() }

type fixedShift struct {
	shift pos.Shift
	ok    bool
}

func (f *fixedShift) Current(context.Context) (pos.Shift, bool, error) {
	return f.shift, f.ok, nil
}

type fixture struct {
	remote   *remote.Memory
	online   *switchable
	shifts   *fixedShift
	cart     *session.Cart
	queue    *queue.Queue
	checkout *Checkout
	composer *Composer
	lister   *Lister
}

var (
	kopi = pos.Product{ID: "kopi", StoreID: "store-1", Name: "Kopi Susu", Price: decimal.NewFromInt(10000), Stock: 20}
	roti = pos.Product{ID: "roti", StoreID: "store-1", Name: "Roti Bakar", Price: decimal.NewFromInt(5000), Stock: pos.UnlimitedStock}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := remote.NewMemory()
	mem.AddProduct(kopi)
	mem.AddProduct(roti)
	s, err := mem.CreateShift(context.Background(), pos.Shift{StoreID: "store-1", OpenedAt: time.Now()})
	require.NoError(t, err)

	store := localstore.NewMemory()
	logger := zap.NewNop()
	online := &switchable{}
	online.on.Store(true)
	shifts := &fixedShift{shift: s, ok: true}
	cart := session.NewCart(store)
	q := queue.New(store, logger)
	sess := session.Context{StoreID: "store-1", CashierID: "kasir-1"}

	return &fixture{
		remote:   mem,
		online:   online,
		shifts:   shifts,
		cart:     cart,
		queue:    q,
		checkout: NewCheckout(mem, syncer.NewApplier(mem, logger), q, shifts, cart, online, sess, tax, logger),
		composer: NewComposer(mem, online, tax, logger),
		lister:   NewLister(mem, q, shifts, online, sess, logger),
	}
}

// fillCart puts two kopi and one roti in the cart: 27,750 with tax.
func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cart.Add(ctx, kopi))
	require.NoError(t, f.cart.Add(ctx, kopi))
	require.NoError(t, f.cart.Add(ctx, roti))
}

// seedOrder stores an order with the given items directly in the remote.
func (f *fixture) seedOrder(t *testing.T, label string, status pos.OrderStatus, items ...pos.OrderItem) (pos.Order, []pos.OrderItem) {
	t.Helper()
	ctx := context.Background()
	o, _, err := f.remote.CreateOrder(ctx, pos.Order{
		StoreID:       "store-1",
		ShiftID:       f.shifts.shift.ID,
		Status:        status,
		CustomerLabel: label,
		Total:         pos.Total(items, tax),
		CreatedAt:     time.Now(),
	}, "")
	require.NoError(t, err)
	for i := range items {
		items[i].ID = ""
		items[i].OrderID = o.ID
	}
	require.NoError(t, f.remote.CreateItems(ctx, items))
	stored, err := f.remote.ListItems(ctx, o.ID)
	require.NoError(t, err)
	return o, stored
}

func itemIDsFor(items []pos.OrderItem, productID string) []string {
	var ids []string
	for _, it := range items {
		if it.ProductID == productID {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
