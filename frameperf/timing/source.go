package timing

import (
	"sync"
	"time"
)

// FrameFunc is invoked by a FrameSource once per display refresh with the
// refresh timestamp.
type FrameFunc func(now time.Time)

// Handle identifies a pending frame request. The zero Handle is never issued.
type Handle uint64

// FrameSource is the host's per-refresh scheduling primitive.
type FrameSource interface {
	// RequestFrame arranges for fn to be called on the next refresh.
	// A source holds at most one request; a new one replaces the previous.
	RequestFrame(fn FrameFunc) Handle

	// CancelFrame drops the request identified by h, if it is still pending.
	CancelFrame(h Handle)
}

// FrameDuration returns the duration of a single frame at the given rate.
func FrameDuration(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

// slot stores the single pending request shared by all sources.
type slot struct {
	mu      sync.Mutex
	last    Handle
	pending Handle
	fn      FrameFunc
}

func (s *slot) request(fn FrameFunc) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	s.pending = s.last
	s.fn = fn
	return s.pending
}

func (s *slot) cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h != 0 && h == s.pending {
		s.pending = 0
		s.fn = nil
	}
}

// take removes and returns the pending callback, nil if there is none.
func (s *slot) take() FrameFunc {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn := s.fn
	s.pending = 0
	s.fn = nil
	return fn
}

func (s *slot) isPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}
