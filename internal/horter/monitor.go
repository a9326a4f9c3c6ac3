package horter

import (
	"context"
	"sync"
	"time"
)

// monitor runs cycle periodically on a background goroutine. The wait between
// cycles starts when the previous cycle returns, so a goroutine never overlaps
// itself. Callers that run cycles from elsewhere serialize through their own lock.
type monitor struct {
	cycle func(ctx context.Context)

	mu       sync.Mutex
	interval time.Duration
	enabled  bool
	stopped  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	wake     chan struct{}
}

func newMonitor(interval time.Duration, cycle func(ctx context.Context)) *monitor {
	return &monitor{
		cycle:    cycle,
		interval: normalizeInterval(interval),
		wake:     make(chan struct{}, 1),
	}
}

func (m *monitor) getInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// setInterval changes the wait before the next cycle.
func (m *monitor) setInterval(d time.Duration) {
	m.mu.Lock()
	m.interval = normalizeInterval(d)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *monitor) isEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// setEnabled starts or stops the schedule. Stopping does not wait for, or
// cancel, a cycle that is already running.
func (m *monitor) setEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if on == m.enabled || (on && m.stopped) {
		return
	}
	if !on {
		m.disableLocked()
		return
	}
	m.enabled = true
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.run(ctx)
}

// stop disables the schedule for good and waits for every running cycle to
// finish.
func (m *monitor) stop() {
	m.mu.Lock()
	m.stopped = true
	m.disableLocked()
	m.mu.Unlock()
	m.wg.Wait()
}

// disableLocked cancels the running schedule, if any. m.mu must be held.
func (m *monitor) disableLocked() {
	if !m.enabled {
		return
	}
	m.enabled = false
	m.cancel()
	m.cancel = nil
}

func (m *monitor) run(ctx context.Context) {
	defer m.wg.Done()
	timer := time.NewTimer(m.getInterval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
			timer.Reset(m.getInterval())
		case <-timer.C:
			// A cycle in flight is allowed to finish after the monitor is disabled.
			m.cycle(context.WithoutCancel(ctx))
			if ctx.Err() != nil {
				return
			}
			timer.Reset(m.getInterval())
		}
	}
}
