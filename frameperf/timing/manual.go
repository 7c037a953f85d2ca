package timing

import "time"

// ManualSource delivers frames only when Fire is called. It stands in for a
// display in tests and simulated hosts, where the caller owns the clock.
type ManualSource struct {
	slot
	fired uint64
}

var _ FrameSource = (*ManualSource)(nil)

func NewManualSource() *ManualSource {
	return &ManualSource{}
}

func (m *ManualSource) RequestFrame(fn FrameFunc) Handle {
	return m.request(fn)
}

func (m *ManualSource) CancelFrame(h Handle) {
	m.cancel(h)
}

// Fire invokes the pending callback with now. It reports whether a callback
// was pending.
func (m *ManualSource) Fire(now time.Time) bool {
	fn := m.take()
	if fn == nil {
		return false
	}
	m.mu.Lock()
	m.fired++
	m.mu.Unlock()

	fn(now)
	return true
}

// Pending reports whether a frame has been requested and not yet fired.
func (m *ManualSource) Pending() bool {
	return m.isPending()
}

// Fired returns the number of callbacks delivered so far.
func (m *ManualSource) Fired() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}
