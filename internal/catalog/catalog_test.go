package catalog

import (
	"context"
	"sync/atomic"
	"testing"

	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type switchable struct{ on atomic.Bool }

func (s *switchable) IsOnline() bool { return s.on.Load() }

func newService(t *testing.T) (*Service, *remote.Memory, *switchable, localstore.Store) {
	t.Helper()
	mem := remote.NewMemory()
	cat := mem.AddCategory(pos.Category{StoreID: "store-1", Name: "Minuman"})
	mem.AddProduct(pos.Product{ID: "kopi", StoreID: "store-1", CategoryID: cat.ID, Name: "Kopi Susu", Price: decimal.NewFromInt(18000), Stock: 5})
	mem.AddProduct(pos.Product{ID: "teh", StoreID: "store-1", CategoryID: cat.ID, Name: "Es Teh", Price: decimal.NewFromInt(8000), Stock: pos.UnlimitedStock})
	mem.AddProduct(pos.Product{ID: "lain", StoreID: "store-2", Name: "Lain", Price: decimal.NewFromInt(1000)})

	store := localstore.NewMemory()
	online := &switchable{}
	online.on.Store(true)
	svc := New(mem, store, online, session.Context{StoreID: "store-1"}, zap.NewNop())
	return svc, mem, online, store
}

func TestProductsOnlineSavesSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _, online, _ := newService(t)

	view, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.False(t, view.Cached)
	assert.Len(t, view.Items, 2)

	online.on.Store(false)
	cached, err := svc.Products(ctx)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	require.Len(t, cached.Items, len(view.Items))
	for i := range view.Items {
		assert.Equal(t, view.Items[i].ID, cached.Items[i].ID)
		assert.True(t, view.Items[i].Price.Equal(cached.Items[i].Price))
	}
}

func TestProductsFallsBackOnRemoteError(t *testing.T) {
	ctx := context.Background()
	svc, mem, _, _ := newService(t)

	_, err := svc.Categories(ctx)
	require.NoError(t, err)

	mem.SetUnreachable(true)
	view, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.True(t, view.Cached)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Minuman", view.Items[0].Name)
}

func TestNoSnapshotOffline(t *testing.T) {
	svc, _, online, _ := newService(t)
	online.on.Store(false)

	_, err := svc.Products(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotSurvivesNewService(t *testing.T) {
	ctx := context.Background()
	svc, mem, online, store := newService(t)
	_, err := svc.Products(ctx)
	require.NoError(t, err)

	online.on.Store(false)
	again := New(mem, store, online, session.Context{StoreID: "store-1"}, zap.NewNop())
	view, err := again.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestProductLookup(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	p, err := svc.Product(ctx, "kopi")
	require.NoError(t, err)
	assert.Equal(t, "Kopi Susu", p.Name)

	p, err = svc.Product(ctx, "es teh")
	require.NoError(t, err)
	assert.Equal(t, "teh", p.ID)

	_, err = svc.Product(ctx, "lain")
	assert.ErrorIs(t, err, ErrUnknownProduct)
}
