package mining

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Ledger is the slice of the bank service the miner drives. AccrueTick
// returns false when mining has been disabled and the run should end.
type Ledger interface {
	AccrueTick(ctx context.Context) (bool, error)
}

// Miner schedules the periodic accrual job. At most one run is active at a
// time: Start while running is a no-op, so re-enabling after a disable can
// never double-schedule, and Stop is effective before the next tick fires.
type Miner struct {
	ledger Ledger
	period time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a miner ticking at the given period.
func New(ledger Ledger, period time.Duration) *Miner {
	return &Miner{ledger: ledger, period: period}
}

// Start launches the tick loop unless one is already running.
func (m *Miner) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx, cancel, m.done)
	log.WithField("period", m.period).Info("mining started")
}

// Stop cancels the current run and waits for it to finish. Calling Stop on
// a stopped miner is safe.
func (m *Miner) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
	log.Info("mining stopped")
}

// Running reports whether a tick loop is active.
func (m *Miner) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Miner) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer func() {
		cancel()
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			keepGoing, err := m.ledger.AccrueTick(ctx)
			if err != nil {
				log.WithError(err).Error("accrual tick failed; stopping miner")
				return
			}
			if !keepGoing {
				log.Info("mining disabled; miner exiting")
				return
			}
		}
	}
}
