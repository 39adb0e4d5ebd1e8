package connectivity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober turns periodic reachability checks of the remote into monitor
// signals.
type Prober struct {
	pinger   Pinger
	monitor  *Monitor
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewProber(pinger Pinger, monitor *Monitor, interval, timeout time.Duration, logger *zap.Logger) *Prober {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Prober{
		pinger:   pinger,
		monitor:  monitor,
		interval: interval,
		timeout:  timeout,
		logger:   logger.Named("prober"),
	}
}

func (p *Prober) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.pinger.Ping(ctx)
	if err != nil {
		p.logger.Debug("remote unreachable", zap.Error(err))
	}
	online := err == nil
	p.monitor.Set(online)
	return online
}

func (p *Prober) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.done)
}

func (p *Prober) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Prober) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
