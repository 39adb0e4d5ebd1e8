package connectivity

import (
	"context"
	"sync"
	"time"

	"pos_umkm/internal/localstore"

	"go.uber.org/zap"
)

const lastStatusKey = "connectivity.last_status"

type Event struct {
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

// Monitor is the single source of truth for online/offline. Listeners are
// notified only on transitions, in subscription order.
type Monitor struct {
	mu     sync.Mutex
	online bool
	since  time.Time
	subs   map[int]func(Event)
	order  []int
	nextID int

	store  localstore.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewMonitor(store localstore.Store, logger *zap.Logger) *Monitor {
	return &Monitor{
		subs:   make(map[int]func(Event)),
		store:  store,
		logger: logger.Named("connectivity"),
		now:    time.Now,
	}
}

// Restore seeds the status from the last persisted value without notifying
// listeners.
func (m *Monitor) Restore(ctx context.Context) error {
	var last Event
	found, err := localstore.GetJSON(ctx, m.store, lastStatusKey, &last)
	if err != nil || !found {
		return err
	}

	m.mu.Lock()
	m.online = last.Online
	m.since = last.At
	m.mu.Unlock()
	return nil
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) Status() Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Event{Online: m.online, At: m.since}
}

// Set records a platform signal. It reports whether the status changed.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	m.since = m.now()
	event := Event{Online: online, At: m.since}

	listeners := make([]func(Event), 0, len(m.order))
	for _, id := range m.order {
		listeners = append(listeners, m.subs[id])
	}
	m.mu.Unlock()

	m.logger.Info("connectivity changed", zap.Bool("online", online))
	if err := localstore.PutJSON(context.Background(), m.store, lastStatusKey, event); err != nil {
		m.logger.Warn("persist connectivity status", zap.Error(err))
	}

	for _, fn := range listeners {
		fn(event)
	}
	return true
}

// Subscribe registers fn for transitions. Listeners must not block.
func (m *Monitor) Subscribe(fn func(Event)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.order = append(m.order, id)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; !ok {
			return
		}
		delete(m.subs, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}
