package shift

import (
	"context"
	"errors"
	"testing"
	"time"

	"pos_umkm/internal/pos"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestOpenOnlineCreatesRemoteShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	s, err := f.mgr.Open(ctx, money(50000))
	require.NoError(t, err)
	assert.False(t, s.Temporary())

	open, err := f.remote.FindOpenShift(ctx, "store-1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, s.ID, open.ID)

	state, err := f.mgr.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)
}

func TestOpenValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	_, err := f.mgr.Open(ctx, money(-1))
	require.ErrorIs(t, err, ErrNegativeCash)

	noStore := NewManager(f.remote, f.store, f.net, session.Context{}, f.cart, f.mgr.logger)
	_, err = noStore.Open(ctx, money(0))
	require.ErrorIs(t, err, session.ErrNoStore)

	_, err = f.mgr.Open(ctx, money(0))
	require.NoError(t, err)
	_, err = f.mgr.Open(ctx, money(0))
	require.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestOpenAdoptsExistingRemoteShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	other, err := f.remote.CreateShift(ctx, pos.Shift{StoreID: "store-1", OpenedAt: time.Now()})
	require.NoError(t, err)

	s, err := f.mgr.Open(ctx, money(10000))
	require.ErrorIs(t, err, ErrAlreadyOpen)
	assert.Equal(t, other.ID, s.ID)

	current, ok, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, other.ID, current.ID)
}

func TestOpenAdoptsShiftOpenedDuringCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	racing := &racingRemote{Memory: f.remote}
	mgr := NewManager(racing, f.store, f.net, f.sess, f.cart, zap.NewNop())

	s, err := mgr.Open(ctx, money(10000))
	require.ErrorIs(t, err, ErrAlreadyOpen)
	require.NotEmpty(t, racing.rival.ID)
	assert.Equal(t, racing.rival.ID, s.ID)
	assert.False(t, s.Temporary())

	current, ok, err := mgr.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, racing.rival.ID, current.ID)
	assert.Equal(t, 2, f.remote.Calls("FindOpenShift"))
}

func TestOpenRejectedWithoutOpenShiftFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.remote.FailNext("CreateShift", remote.ErrRejected)

	_, err := f.mgr.Open(ctx, money(0))
	require.ErrorIs(t, err, remote.ErrRejected)

	_, ok, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenOfflineIsProvisional(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	s, err := f.mgr.Open(ctx, money(50000))
	require.NoError(t, err)
	assert.True(t, s.Temporary())
	assert.Zero(t, f.remote.Calls("CreateShift"))

	_, ok, err := f.mgr.ConfirmedID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenFallsBackWhenRemoteUnreachable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.remote.SetUnreachable(true)

	s, err := f.mgr.Open(ctx, money(50000))
	require.NoError(t, err)
	assert.True(t, s.Temporary())
}

func TestProvisionalShiftSurvivesRestartAndReconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	provisional, err := f.mgr.Open(ctx, money(50000))
	require.NoError(t, err)

	f.net.set(true)
	restarted := f.newManager()
	d, err := restarted.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionPreserve, d.Action)

	current, ok, err := restarted.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, provisional.ID, current.ID)
}

func TestReconcileNetworkErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	provisional, err := f.mgr.Open(ctx, money(0))
	require.NoError(t, err)

	f.net.set(true)
	f.remote.FailNext("FindOpenShift", errors.New("connection reset"))
	d, err := f.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, Decision{ActionKeep, provisional.ID}, d)
}

func TestReconcileClearsShiftClosedElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	s, err := f.mgr.Open(ctx, money(0))
	require.NoError(t, err)
	require.NoError(t, f.remote.CloseShift(ctx, s.ID, remote.ShiftClose{ClosedAt: time.Now()}))

	d, err := f.mgr.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionClear, d.Action)

	state, err := f.mgr.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateNoShift, state)
}

func TestCommitProvisionalCreatesRemoteShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	provisional, err := f.mgr.Open(ctx, money(75000))
	require.NoError(t, err)

	_, err = f.mgr.CommitProvisional(ctx)
	require.ErrorIs(t, err, ErrOffline)

	f.net.set(true)
	replaced, err := f.mgr.CommitProvisional(ctx)
	require.NoError(t, err)
	assert.Equal(t, provisional.ID, replaced)

	confirmed, ok, err := f.mgr.ConfirmedID(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	remoteShift, err := f.remote.GetShift(ctx, confirmed)
	require.NoError(t, err)
	assert.True(t, remoteShift.StartingCash.Equal(money(75000)))
	assert.True(t, remoteShift.OpenedAt.Equal(closeDay))

	replaced, err = f.mgr.CommitProvisional(ctx)
	require.NoError(t, err)
	assert.Empty(t, replaced)
}

func TestCommitProvisionalAdoptsWinningRemoteShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	_, err := f.mgr.Open(ctx, money(0))
	require.NoError(t, err)

	winner, err := f.remote.CreateShift(ctx, pos.Shift{StoreID: "store-1", OpenedAt: time.Now()})
	require.NoError(t, err)

	f.net.set(true)
	_, err = f.mgr.CommitProvisional(ctx)
	require.NoError(t, err)

	confirmed, ok, err := f.mgr.ConfirmedID(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, winner.ID, confirmed)
	assert.Equal(t, 1, f.remote.Calls("CreateShift"))
}

func TestCloseShiftStatsAndPersistence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	s, err := f.mgr.Open(ctx, money(50000))
	require.NoError(t, err)

	require.NoError(t, f.remote.CreateTransaction(ctx, pos.Transaction{ShiftID: s.ID, Amount: money(300000), Method: pos.MethodCash}, ""))
	require.NoError(t, f.remote.CreateTransaction(ctx, pos.Transaction{ShiftID: s.ID, Amount: money(200000), Method: pos.MethodQRIS}, ""))
	list := f.remote.AddShoppingList(pos.ShoppingList{StoreID: "store-1", Date: remote.DateKey(closeDay), TotalEstimated: money(120000)})
	f.remote.AddShoppingList(pos.ShoppingList{StoreID: "store-1", Date: "2025-03-13", TotalEstimated: money(999999)})
	f.remote.AddExpense(pos.Expense{ShiftID: s.ID, StoreID: "store-1", Amount: money(30000)})
	require.NoError(t, f.cart.Add(ctx, pos.Product{ID: "p1", Name: "Kopi", Price: money(20000)}))

	stats, err := f.mgr.PrepareClose(ctx)
	require.NoError(t, err)
	assert.True(t, stats.GrossSales.Equal(money(500000)))
	assert.Equal(t, 2, stats.TransactionCount)
	assert.True(t, stats.NetIncome.Equal(money(350000)), stats.NetIncome.String())
	assert.True(t, stats.ExpectedCash.Equal(money(520000)), stats.ExpectedCash.String())

	state, err := f.mgr.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePendingClose, state)

	_, err = f.mgr.ConfirmClose(ctx)
	require.NoError(t, err)

	closed, err := f.remote.GetShift(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, pos.ShiftClosed, closed.Status)
	require.NotNil(t, closed.EndingCash)
	assert.True(t, closed.EndingCash.Equal(money(520000)))
	require.NotNil(t, closed.TotalSales)
	assert.True(t, closed.TotalSales.Equal(money(500000)))

	lists, err := f.remote.ListShoppingLists(ctx, "store-1", remote.DateKey(closeDay))
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, list.ID, lists[0].ID)
	assert.Equal(t, pos.ShoppingClosed, lists[0].Status)

	state, err = f.mgr.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateNoShift, state)

	cart, err := f.cart.State(ctx)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestCloseBlockedWithoutSyncedShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	_, err := f.mgr.PrepareClose(ctx)
	require.ErrorIs(t, err, ErrNoOpenShift)

	_, err = f.mgr.ConfirmClose(ctx)
	require.ErrorIs(t, err, ErrNotPendingClose)

	f.net.set(false)
	_, err = f.mgr.Open(ctx, money(0))
	require.NoError(t, err)
	f.net.set(true)

	_, err = f.mgr.PrepareClose(ctx)
	require.ErrorIs(t, err, ErrShiftNotSynced)
}

func TestCancelCloseReturnsToOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_, err := f.mgr.Open(ctx, money(0))
	require.NoError(t, err)

	_, err = f.mgr.PrepareClose(ctx)
	require.NoError(t, err)
	f.mgr.CancelClose()

	state, err := f.mgr.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, state)
}

func TestConfirmCloseFailureKeepsShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	s, err := f.mgr.Open(ctx, money(0))
	require.NoError(t, err)
	_, err = f.mgr.PrepareClose(ctx)
	require.NoError(t, err)

	f.remote.FailNext("CloseShift", remote.ErrUnavailable)
	_, err = f.mgr.ConfirmClose(ctx)
	require.ErrorIs(t, err, ErrCloseInterrupted)

	current, ok, err := f.mgr.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.ID, current.ID)
}
