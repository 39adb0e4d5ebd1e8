package shift

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"

	"go.uber.org/zap"
)

type switchable struct {
	online atomic.Bool
}

func (s *switchable) IsOnline() bool { return s.online.Load() }

func (s *switchable) set(v bool) { s.online.Store(v) }

// racingRemote opens a rival shift on the remote just before the first
// CreateShift call goes through.
type racingRemote struct {
	*remote.Memory
	rival pos.Shift
	raced bool
}

func (r *racingRemote) CreateShift(ctx context.Context, shift pos.Shift) (pos.Shift, error) {
	if !r.raced {
		r.raced = true
		rival, err := r.Memory.CreateShift(ctx, pos.Shift{StoreID: shift.StoreID, OpenedAt: shift.OpenedAt})
		if err != nil {
			return pos.Shift{}, err
		}
		r.rival = rival
	}
	return r.Memory.CreateShift(ctx, shift)
}

type fixture struct {
	remote *remote.Memory
	store  *localstore.Memory
	net    *switchable
	cart   *session.Cart
	sess   session.Context
	mgr    *Manager
}

var closeDay = time.Date(2025, 3, 14, 21, 0, 0, 0, time.Local)

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	f := &fixture{
		remote: remote.NewMemory(),
		store:  localstore.NewMemory(),
		net:    &switchable{},
		sess:   session.Context{StoreID: "store-1", CashierID: "kasir-1", CashierName: "Sari"},
	}
	f.net.set(online)
	f.cart = session.NewCart(f.store)
	f.mgr = f.newManager()
	return f
}

// newManager simulates a process restart over the same local store.
func (f *fixture) newManager() *Manager {
	m := NewManager(f.remote, f.store, f.net, f.sess, f.cart, zap.NewNop())
	m.now = func() time.Time { return closeDay }
	return m
}
