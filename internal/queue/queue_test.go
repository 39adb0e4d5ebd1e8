package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func command(t *testing.T, localID, shiftID string) pos.Command {
	t.Helper()
	cmd, err := pos.NewOrderSubmit(localID, pos.OrderSubmit{Order: pos.Order{ShiftID: shiftID, Status: pos.StatusPaid}})
	require.NoError(t, err)
	return cmd
}

func TestEnqueueKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemory(), zap.NewNop())

	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(ctx, command(t, id, "s1"))
		require.NoError(t, err)
	}

	ops, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, "a", ops[0].LocalID)
	assert.Equal(t, "b", ops[1].LocalID)
	assert.Equal(t, "c", ops[2].LocalID)
}

func TestEnqueueAssignsLocalID(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemory(), zap.NewNop())

	op, err := q.Enqueue(ctx, command(t, "", "s1"))
	require.NoError(t, err)
	assert.NotEmpty(t, op.LocalID)
	assert.False(t, op.CreatedAt.IsZero())

	ok, err := q.Contains(ctx, op.LocalID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnqueueRejectsDuplicateLocalID(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemory(), zap.NewNop())

	_, err := q.Enqueue(ctx, command(t, "a", "s1"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, command(t, "a", "s1"))
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestDequeueRemovesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	q := New(localstore.NewMemory(), zap.NewNop())
	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(ctx, command(t, id, "s1"))
		require.NoError(t, err)
	}

	require.NoError(t, q.Dequeue(ctx, "b"))
	require.ErrorIs(t, q.Dequeue(ctx, "b"), ErrNotQueued)

	ops, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "a", ops[0].LocalID)
	assert.Equal(t, "c", ops[1].LocalID)
}

func TestQueueSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := localstore.OpenSQLite(path)
	require.NoError(t, err)
	q := New(store, zap.NewNop())
	_, err = q.Enqueue(ctx, command(t, "a", "OFFLINE-1"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, command(t, "b", "OFFLINE-1"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := localstore.OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := New(reopened, zap.NewNop()).Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

type failingStore struct {
	*localstore.Memory
}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestEnqueueFailsWhenNotPersisted(t *testing.T) {
	ctx := context.Background()
	q := New(failingStore{localstore.NewMemory()}, zap.NewNop())

	_, err := q.Enqueue(ctx, command(t, "a", "s1"))
	require.Error(t, err)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
