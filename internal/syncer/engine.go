package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/queue"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/shift"

	"go.uber.org/zap"
)

var (
	ErrPassInFlight = errors.New("sync pass already running")
	ErrStopped      = errors.New("sync engine stopped")
)

type Shifts interface {
	Reconcile(ctx context.Context) (shift.Decision, error)
	CommitProvisional(ctx context.Context) (string, error)
	ConfirmedID(ctx context.Context) (string, bool, error)
}

type Monitor interface {
	IsOnline() bool
	Subscribe(fn func(connectivity.Event)) (cancel func())
}

type Rejection struct {
	LocalID string `json:"local_id"`
	Reason  string `json:"reason"`
}

type Result struct {
	Skipped    bool        `json:"skipped,omitempty"`
	Committed  []string    `json:"committed,omitempty"`
	Rejected   []Rejection `json:"rejected,omitempty"`
	Pending    int         `json:"pending"`
	StoppedBy  string      `json:"stopped_by,omitempty"`
	FinishedAt time.Time   `json:"finished_at"`
}

// Engine drains the offline queue into the remote. At most one pass runs at
// a time; triggers that arrive during a pass schedule exactly one more.
type Engine struct {
	queue   *queue.Queue
	applier *Applier
	shifts  Shifts
	monitor Monitor
	logger  *zap.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	running     bool
	idle        chan struct{} // closed when running goes false
	rerun       bool
	stopped     bool
	unsubscribe func()
	last        *Result
	listeners   []func(Result)
}

func NewEngine(q *queue.Queue, applier *Applier, shifts Shifts, monitor Monitor, logger *zap.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		queue:   q,
		applier: applier,
		shifts:  shifts,
		monitor: monitor,
		logger:  logger.Named("syncer"),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start listens for connectivity changes. Every change re-runs a pass, which
// reconciles the shift and drains when online.
func (e *Engine) Start() {
	cancel := e.monitor.Subscribe(func(connectivity.Event) {
		e.Trigger()
	})

	e.mu.Lock()
	e.unsubscribe = cancel
	e.mu.Unlock()

	if e.monitor.IsOnline() {
		e.Trigger()
	}
}

func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	e.cancel()
	e.wg.Wait()
}

// Trigger requests a pass without waiting for it.
func (e *Engine) Trigger() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if e.running {
		e.rerun = true
		return
	}
	e.startLocked()
	e.wg.Add(1)
	go e.loop()
}

// Drain runs one pass synchronously.
func (e *Engine) Drain(ctx context.Context) (Result, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return Result{}, ErrStopped
	}
	if e.running {
		e.rerun = true
		e.mu.Unlock()
		return Result{}, ErrPassInFlight
	}
	e.startLocked()
	e.mu.Unlock()

	res, err := e.pass(ctx)

	e.mu.Lock()
	if e.rerun && !e.stopped {
		e.rerun = false
		e.wg.Add(1)
		go e.loop()
	} else {
		e.finishLocked()
	}
	e.mu.Unlock()
	return res, err
}

// WaitIdle blocks until no pass is running.
func (e *Engine) WaitIdle(ctx context.Context) error {
	e.mu.Lock()
	running, idle := e.running, e.idle
	e.mu.Unlock()
	if !running {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-idle:
		return nil
	}
}

func (e *Engine) OnResult(fn func(Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *Engine) LastResult() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Result{}, false
	}
	return *e.last, true
}

func (e *Engine) loop() {
	defer e.wg.Done()
	for {
		if _, err := e.pass(e.ctx); err != nil {
			e.logger.Warn("sync pass failed", zap.Error(err))
		}

		e.mu.Lock()
		if !e.rerun || e.stopped {
			e.finishLocked()
			e.mu.Unlock()
			return
		}
		e.rerun = false
		e.mu.Unlock()
	}
}

func (e *Engine) startLocked() {
	e.running = true
	e.idle = make(chan struct{})
}

func (e *Engine) finishLocked() {
	e.running = false
	e.rerun = false
	close(e.idle)
}

func (e *Engine) pass(ctx context.Context) (Result, error) {
	res, err := e.drain(ctx)
	res.FinishedAt = e.now()
	if n, lenErr := e.queue.Len(ctx); lenErr == nil {
		res.Pending = n
	}

	e.mu.Lock()
	e.last = &res
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(res)
	}
	return res, err
}

func (e *Engine) drain(ctx context.Context) (Result, error) {
	var res Result

	if !e.monitor.IsOnline() {
		res.Skipped = true
		if _, err := e.shifts.Reconcile(ctx); err != nil {
			e.logger.Debug("offline shift reconcile", zap.Error(err))
		}
		return res, nil
	}

	if _, err := e.shifts.CommitProvisional(ctx); err != nil {
		res.StoppedBy = err.Error()
		e.logger.Warn("provisional shift not committed", zap.Error(err))
		return res, nil
	}
	if _, err := e.shifts.Reconcile(ctx); err != nil {
		e.logger.Warn("shift reconcile", zap.Error(err))
	}
	confirmedID, _, err := e.shifts.ConfirmedID(ctx)
	if err != nil {
		return res, err
	}

	ops, err := e.queue.List(ctx)
	if err != nil {
		return res, err
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			res.StoppedBy = err.Error()
			return res, nil
		}

		cmd, err := rebindShift(op.Command, confirmedID)
		if err != nil {
			res.StoppedBy = err.Error()
			return res, nil
		}

		applied, err := e.applier.Apply(ctx, cmd)
		switch {
		case err == nil:
			if err := e.queue.Dequeue(ctx, op.LocalID); err != nil {
				return res, err
			}
			res.Committed = append(res.Committed, op.LocalID)
			e.logger.Info("queued operation committed",
				zap.String("local_id", op.LocalID),
				zap.String("order_id", applied.OrderID),
			)
		case remote.IsRejected(err):
			if err := e.queue.Dequeue(ctx, op.LocalID); err != nil {
				return res, err
			}
			res.Rejected = append(res.Rejected, Rejection{LocalID: op.LocalID, Reason: err.Error()})
			e.logger.Error("queued operation rejected by remote",
				zap.String("local_id", op.LocalID),
				zap.Error(err),
			)
		default:
			res.StoppedBy = err.Error()
			e.logger.Warn("sync pass stopped", zap.String("local_id", op.LocalID), zap.Error(err))
			return res, nil
		}
	}
	return res, nil
}

// rebindShift points an operation recorded against a provisional shift at
// the confirmed one. The queued entry itself is left as it was.
func rebindShift(cmd pos.Command, confirmedID string) (pos.Command, error) {
	if cmd.Kind != pos.KindOrderSubmit {
		return cmd, nil
	}
	submit, err := cmd.OrderSubmit()
	if err != nil {
		// undecodable payloads are rejected by the applier
		return cmd, nil
	}
	if !pos.IsTemporaryID(submit.Order.ShiftID) {
		return cmd, nil
	}
	if confirmedID == "" {
		return cmd, fmt.Errorf("%w: %s", ErrProvisionalShift, submit.Order.ShiftID)
	}

	submit.Order.ShiftID = confirmedID
	payload, err := json.Marshal(submit)
	if err != nil {
		return cmd, err
	}
	return pos.Command{Kind: cmd.Kind, LocalID: cmd.LocalID, Payload: payload}, nil
}
