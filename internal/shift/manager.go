package shift

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const currentKey = "shift.current"

type State string

const (
	StateNoShift      State = "NO_SHIFT"
	StateOpen         State = "OPEN"
	StatePendingClose State = "PENDING_CLOSE"
)

var (
	ErrNegativeCash     = errors.New("starting cash must not be negative")
	ErrAlreadyOpen      = errors.New("a shift is already open")
	ErrNoOpenShift      = errors.New("no open shift")
	ErrShiftNotSynced   = errors.New("shift has not been synchronized yet")
	ErrOffline          = errors.New("operation requires a connection")
	ErrNotPendingClose  = errors.New("shift close was not prepared")
	ErrCloseInterrupted = errors.New("shift close did not complete")
)

type Connectivity interface {
	IsOnline() bool
}

type CartClearer interface {
	Clear(ctx context.Context) error
}

// Manager owns the terminal's shift state. No other component writes it.
type Manager struct {
	mu      sync.Mutex
	remote  remote.Service
	store   localstore.Store
	online  Connectivity
	sess    session.Context
	cart    CartClearer
	logger  *zap.Logger
	now     func() time.Time
	current *pos.Shift
	state   State
	pending *Stats
	loaded  bool
}

func NewManager(svc remote.Service, store localstore.Store, online Connectivity, sess session.Context, cart CartClearer, logger *zap.Logger) *Manager {
	return &Manager{
		remote: svc,
		store:  store,
		online: online,
		sess:   sess,
		cart:   cart,
		logger: logger.Named("shift"),
		now:    time.Now,
		state:  StateNoShift,
	}
}

// Current returns the active shift, confirmed or provisional.
func (m *Manager) Current(ctx context.Context) (pos.Shift, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return pos.Shift{}, false, err
	}
	if m.current == nil {
		return pos.Shift{}, false, nil
	}
	return *m.current, true, nil
}

func (m *Manager) State(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return "", err
	}
	return m.state, nil
}

// ConfirmedID returns the current shift id when the remote knows it.
func (m *Manager) ConfirmedID(ctx context.Context) (string, bool, error) {
	s, ok, err := m.Current(ctx)
	if err != nil || !ok || s.Temporary() {
		return "", false, err
	}
	return s.ID, true, nil
}

// Reconcile re-evaluates the shift against the remote and applies the
// decision. Remote failures never discard local state.
func (m *Manager) Reconcile(ctx context.Context) (Decision, error) {
	storeID, err := m.sess.RequireStore()
	if err != nil {
		return Decision{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return Decision{}, err
	}

	online := m.online.IsOnline()
	var view RemoteView
	if online {
		view.Shift, view.Err = m.remote.FindOpenShift(ctx, storeID)
		if view.Err != nil {
			m.logger.Warn("shift lookup failed, keeping local state", zap.Error(view.Err))
		}
	}

	localID := ""
	if m.current != nil {
		localID = m.current.ID
	}
	decision := Reconcile(localID, view, online)

	switch decision.Action {
	case ActionAdopt:
		if localID != "" && localID != view.Shift.ID && pos.IsTemporaryID(localID) {
			m.logger.Warn("provisional shift superseded by remote open shift",
				zap.String("provisional_id", localID),
				zap.String("shift_id", view.Shift.ID),
			)
		}
		if err := m.setLocked(ctx, view.Shift); err != nil {
			return Decision{}, err
		}
	case ActionClear:
		m.logger.Info("shift closed elsewhere", zap.String("shift_id", localID))
		if err := m.setLocked(ctx, nil); err != nil {
			return Decision{}, err
		}
	}

	m.logger.Debug("shift reconciled",
		zap.String("action", string(decision.Action)),
		zap.String("shift_id", decision.ShiftID),
		zap.Bool("online", online),
	)
	return decision, nil
}

// Open starts a shift. Offline, or when the remote cannot be reached, the
// shift is opened provisionally and committed later by the sync engine.
func (m *Manager) Open(ctx context.Context, startingCash decimal.Decimal) (pos.Shift, error) {
	if startingCash.IsNegative() {
		return pos.Shift{}, ErrNegativeCash
	}
	storeID, err := m.sess.RequireStore()
	if err != nil {
		return pos.Shift{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return pos.Shift{}, err
	}
	if m.current != nil {
		return *m.current, fmt.Errorf("%w: %s", ErrAlreadyOpen, m.current.ID)
	}

	draft := pos.Shift{
		StoreID:      storeID,
		CashierID:    m.sess.CashierID,
		OpenedAt:     m.now(),
		StartingCash: startingCash,
		Status:       pos.ShiftOpen,
	}

	if m.online.IsOnline() {
		created, err := m.openRemoteLocked(ctx, draft)
		switch {
		case err == nil:
			return created, nil
		case !remote.IsTransient(err) || errors.Is(err, ErrAlreadyOpen):
			return created, err
		}
		m.logger.Warn("remote unreachable, opening provisional shift", zap.Error(err))
	}

	draft.ID = pos.NewTemporaryID()
	if err := m.setLocked(ctx, &draft); err != nil {
		return pos.Shift{}, err
	}
	m.logger.Info("provisional shift opened", zap.String("shift_id", draft.ID))
	return draft, nil
}

func (m *Manager) openRemoteLocked(ctx context.Context, draft pos.Shift) (pos.Shift, error) {
	existing, err := m.remote.FindOpenShift(ctx, draft.StoreID)
	if err != nil {
		return pos.Shift{}, err
	}
	if existing != nil {
		if err := m.setLocked(ctx, existing); err != nil {
			return pos.Shift{}, err
		}
		return *existing, fmt.Errorf("%w: %s", ErrAlreadyOpen, existing.ID)
	}

	created, err := m.remote.CreateShift(ctx, draft)
	if remote.IsRejected(err) {
		// another till opened a shift between the lookup and the insert
		winner, findErr := m.remote.FindOpenShift(ctx, draft.StoreID)
		if findErr != nil || winner == nil {
			return pos.Shift{}, err
		}
		if err := m.setLocked(ctx, winner); err != nil {
			return pos.Shift{}, err
		}
		m.logger.Info("adopted shift opened elsewhere", zap.String("shift_id", winner.ID))
		return *winner, fmt.Errorf("%w: %s", ErrAlreadyOpen, winner.ID)
	}
	if err != nil {
		return pos.Shift{}, err
	}
	if err := m.setLocked(ctx, &created); err != nil {
		return pos.Shift{}, err
	}
	m.logger.Info("shift opened", zap.String("shift_id", created.ID))
	return created, nil
}

// CommitProvisional makes a provisional shift known to the remote. If the
// store already has an open shift there, that shift wins and is adopted.
// It returns the provisional id that was replaced, if any.
func (m *Manager) CommitProvisional(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return "", err
	}
	if m.current == nil || !m.current.Temporary() {
		return "", nil
	}
	if !m.online.IsOnline() {
		return "", ErrOffline
	}

	provisional := *m.current
	existing, err := m.remote.FindOpenShift(ctx, provisional.StoreID)
	if err != nil {
		return "", fmt.Errorf("find open shift: %w", err)
	}
	if existing == nil {
		draft := provisional
		draft.ID = ""
		created, err := m.remote.CreateShift(ctx, draft)
		switch {
		case err == nil:
			existing = &created
		case remote.IsRejected(err):
			existing, err = m.remote.FindOpenShift(ctx, provisional.StoreID)
			if err != nil {
				return "", fmt.Errorf("find open shift: %w", err)
			}
			if existing == nil {
				return "", fmt.Errorf("commit shift: %w", remote.ErrRejected)
			}
		default:
			return "", fmt.Errorf("commit shift: %w", err)
		}
	} else {
		m.logger.Warn("provisional shift superseded by remote open shift",
			zap.String("provisional_id", provisional.ID),
			zap.String("shift_id", existing.ID),
		)
	}

	if err := m.setLocked(ctx, existing); err != nil {
		return "", err
	}
	m.logger.Info("provisional shift committed",
		zap.String("provisional_id", provisional.ID),
		zap.String("shift_id", existing.ID),
	)
	return provisional.ID, nil
}

// PrepareClose computes the closing statistics without changing anything
// remotely.
func (m *Manager) PrepareClose(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return Stats{}, err
	}
	if m.current == nil {
		return Stats{}, ErrNoOpenShift
	}
	if m.current.Temporary() {
		return Stats{}, ErrShiftNotSynced
	}
	if !m.online.IsOnline() {
		return Stats{}, ErrOffline
	}

	shift := *m.current
	now := m.now()

	txns, err := m.remote.ListTransactionsByShift(ctx, shift.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("load transactions: %w", err)
	}
	lists, err := m.remote.ListShoppingLists(ctx, shift.StoreID, remote.DateKey(now))
	if err != nil {
		return Stats{}, fmt.Errorf("load shopping lists: %w", err)
	}
	expenses, err := m.remote.ListExpensesByShift(ctx, shift.ID)
	if err != nil {
		return Stats{}, fmt.Errorf("load expenses: %w", err)
	}

	stats := ComputeStats(shift, txns, lists, expenses, now)
	m.pending = &stats
	m.state = StatePendingClose
	return stats, nil
}

func (m *Manager) CancelClose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePendingClose {
		m.state = StateOpen
		m.pending = nil
	}
}

// ConfirmClose persists the prepared close: same-day shopping lists are
// closed, then the shift itself. The terminal returns to NO_SHIFT.
func (m *Manager) ConfirmClose(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePendingClose || m.pending == nil || m.current == nil {
		return Stats{}, ErrNotPendingClose
	}
	stats := *m.pending
	shift := *m.current

	if err := m.remote.CloseShoppingLists(ctx, shift.StoreID, remote.DateKey(stats.ClosedAt)); err != nil {
		return Stats{}, fmt.Errorf("%w: close shopping lists: %w", ErrCloseInterrupted, err)
	}
	err := m.remote.CloseShift(ctx, shift.ID, remote.ShiftClose{
		ClosedAt:   stats.ClosedAt,
		TotalSales: stats.GrossSales,
		EndingCash: stats.ExpectedCash,
	})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrCloseInterrupted, err)
	}

	if err := m.setLocked(ctx, nil); err != nil {
		return Stats{}, err
	}
	if m.cart != nil {
		if err := m.cart.Clear(ctx); err != nil {
			m.logger.Warn("clear cart after close", zap.Error(err))
		}
	}
	m.logger.Info("shift closed",
		zap.String("shift_id", shift.ID),
		zap.String("total_sales", stats.GrossSales.String()),
		zap.String("expected_cash", stats.ExpectedCash.String()),
	)
	return stats, nil
}

func (m *Manager) loadLocked(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	var stored pos.Shift
	found, err := localstore.GetJSON(ctx, m.store, currentKey, &stored)
	if err != nil {
		return fmt.Errorf("load shift: %w", err)
	}
	if found {
		m.current = &stored
		m.state = StateOpen
	}
	m.loaded = true
	return nil
}

func (m *Manager) setLocked(ctx context.Context, shift *pos.Shift) error {
	if shift == nil {
		if err := m.store.Delete(ctx, currentKey); err != nil {
			return fmt.Errorf("clear shift: %w", err)
		}
		m.current = nil
		m.state = StateNoShift
		m.pending = nil
		return nil
	}

	s := *shift
	if err := localstore.PutJSON(ctx, m.store, currentKey, s); err != nil {
		return fmt.Errorf("persist shift: %w", err)
	}
	if m.current == nil || m.current.ID != s.ID || m.state == StateNoShift {
		m.state = StateOpen
		m.pending = nil
	}
	m.current = &s
	return nil
}
