package order

import (
	"context"
	"sort"

	"pos_umkm/internal/pos"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"

	"go.uber.org/zap"
)

// Listed is an order as shown to the cashier. Queued orders have no remote
// id yet and carry PendingSync.
type Listed struct {
	pos.Order
	Items       []pos.OrderItem `json:"items,omitempty"`
	LocalID     string          `json:"local_id,omitempty"`
	PendingSync bool            `json:"pending_sync"`
}

type Lister struct {
	remote remote.Service
	queue  *queue.Queue
	shifts Shifts
	online Connectivity
	sess   session.Context
	logger *zap.Logger
}

func NewLister(svc remote.Service, q *queue.Queue, shifts Shifts, online Connectivity, sess session.Context, logger *zap.Logger) *Lister {
	return &Lister{
		remote: svc,
		queue:  q,
		shifts: shifts,
		online: online,
		sess:   sess,
		logger: logger.Named("orders"),
	}
}

// Orders lists the current shift's orders, newest first. Orders still in
// the offline queue are always included; remote ones only when reachable.
func (l *Lister) Orders(ctx context.Context) ([]Listed, error) {
	storeID, err := l.sess.RequireStore()
	if err != nil {
		return nil, err
	}

	ops, err := l.queue.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Listed, 0, len(ops))
	for _, op := range ops {
		if op.Kind != pos.KindOrderSubmit {
			continue
		}
		submit, err := op.OrderSubmit()
		if err != nil {
			l.logger.Warn("undecodable queued order", zap.String("local_id", op.LocalID), zap.Error(err))
			continue
		}
		out = append(out, Listed{
			Order:       submit.Order,
			Items:       submit.Items,
			LocalID:     op.LocalID,
			PendingSync: true,
		})
	}

	current, ok, err := l.shifts.Current(ctx)
	if err != nil {
		return nil, err
	}
	if ok && !current.Temporary() && l.online.IsOnline() {
		orders, err := l.remote.ListOrders(ctx, storeID, current.ID)
		if err != nil {
			l.logger.Warn("remote orders unavailable, showing queued only", zap.Error(err))
		}
		for _, o := range orders {
			out = append(out, Listed{Order: o})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
