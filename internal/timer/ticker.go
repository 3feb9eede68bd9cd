package timer

import (
	"sync"
	"time"
)

// TickSource schedules periodic ticks. Start begins delivering ticks and
// returns a cancel function; cancel must not block and may be called more
// than once.
type TickSource interface {
	Start(tick func()) (cancel func())
}

// IntervalSource ticks on a wall-clock interval using time.Ticker. Ticks the
// runtime drops while the receiver is slow are coalesced, never queued.
type IntervalSource struct {
	Interval time.Duration
}

// Start implements TickSource.
func (s IntervalSource) Start(tick func()) func() {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// cancel may have raced with the ticker
				select {
				case <-done:
					return
				default:
				}
				tick()
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualSource delivers ticks only when Fire is called. It keeps every
// scheduled callback so tests can observe double scheduling.
type ManualSource struct {
	mu     sync.Mutex
	active map[int]func()
	next   int
	starts int
}

// NewManualSource returns an idle manual tick source.
func NewManualSource() *ManualSource {
	return &ManualSource{active: make(map[int]func())}
}

// Start implements TickSource.
func (m *ManualSource) Start(tick func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.starts++
	m.active[id] = tick
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
	}
}

// Fire delivers one tick to every active callback and reports how many
// callbacks ran.
func (m *ManualSource) Fire() int {
	m.mu.Lock()
	ticks := make([]func(), 0, len(m.active))
	for _, t := range m.active {
		ticks = append(ticks, t)
	}
	m.mu.Unlock()

	for _, t := range ticks {
		t()
	}
	return len(ticks)
}

// FireN calls Fire n times.
func (m *ManualSource) FireN(n int) {
	for i := 0; i < n; i++ {
		m.Fire()
	}
}

// Active returns the number of scheduled, uncancelled callbacks.
func (m *ManualSource) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Starts returns how many times Start has been called.
func (m *ManualSource) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}
