package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"

	"go.uber.org/zap"
)

const pendingKey = "queue.pending"

var (
	ErrDuplicate = errors.New("queue: operation already queued")
	ErrNotQueued = errors.New("queue: operation not queued")
)

// Queue is the ordered list of mutations awaiting the remote. Every change is
// written through to the local store before the call returns, and entries are
// never edited once queued.
type Queue struct {
	mu     sync.Mutex
	store  localstore.Store
	ops    []pos.QueuedOperation
	loaded bool
	logger *zap.Logger
	now    func() time.Time
}

func New(store localstore.Store, logger *zap.Logger) *Queue {
	return &Queue{
		store:  store,
		logger: logger.Named("queue"),
		now:    time.Now,
	}
}

func (q *Queue) Enqueue(ctx context.Context, cmd pos.Command) (pos.QueuedOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.loadLocked(ctx); err != nil {
		return pos.QueuedOperation{}, err
	}
	if cmd.LocalID == "" {
		cmd.LocalID = pos.NewLocalID()
	}
	for _, op := range q.ops {
		if op.LocalID == cmd.LocalID {
			return pos.QueuedOperation{}, fmt.Errorf("%w: %s", ErrDuplicate, cmd.LocalID)
		}
	}

	op := pos.QueuedOperation{Command: cmd, CreatedAt: q.now()}
	next := append(append([]pos.QueuedOperation(nil), q.ops...), op)
	if err := q.persistLocked(ctx, next); err != nil {
		return pos.QueuedOperation{}, err
	}

	q.logger.Info("operation queued",
		zap.String("local_id", op.LocalID),
		zap.String("kind", string(op.Kind)),
		zap.Int("pending", len(q.ops)),
	)
	return op, nil
}

func (q *Queue) Dequeue(ctx context.Context, localID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.loadLocked(ctx); err != nil {
		return err
	}

	next := make([]pos.QueuedOperation, 0, len(q.ops))
	removed := false
	for _, op := range q.ops {
		if op.LocalID == localID {
			removed = true
			continue
		}
		next = append(next, op)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotQueued, localID)
	}
	return q.persistLocked(ctx, next)
}

// List returns a snapshot in insertion order.
func (q *Queue) List(ctx context.Context) ([]pos.QueuedOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.loadLocked(ctx); err != nil {
		return nil, err
	}
	return append([]pos.QueuedOperation(nil), q.ops...), nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	ops, err := q.List(ctx)
	return len(ops), err
}

func (q *Queue) Contains(ctx context.Context, localID string) (bool, error) {
	ops, err := q.List(ctx)
	if err != nil {
		return false, err
	}
	for _, op := range ops {
		if op.LocalID == localID {
			return true, nil
		}
	}
	return false, nil
}

func (q *Queue) loadLocked(ctx context.Context) error {
	if q.loaded {
		return nil
	}
	var ops []pos.QueuedOperation
	if _, err := localstore.GetJSON(ctx, q.store, pendingKey, &ops); err != nil {
		return fmt.Errorf("load queue: %w", err)
	}
	q.ops = ops
	q.loaded = true
	return nil
}

func (q *Queue) persistLocked(ctx context.Context, ops []pos.QueuedOperation) error {
	if err := localstore.PutJSON(ctx, q.store, pendingKey, ops); err != nil {
		return fmt.Errorf("persist queue: %w", err)
	}
	q.ops = ops
	return nil
}
