package visibility

import "sync"

// Controller is the frame loop a Gate suspends and resumes.
type Controller interface {
	// Suspend is called when the host becomes hidden.
	Suspend()
	// Resume is called when the host becomes visible again.
	Resume()
}

// Gate forwards visibility transitions of a Signal to a Controller while
// attached. A nil Signal makes the gate inert.
type Gate struct {
	signal Signal
	target Controller

	mu          sync.Mutex
	unsubscribe func()
	generation  uint64
}

func NewGate(signal Signal, target Controller) *Gate {
	return &Gate{signal: signal, target: target}
}

// Attach subscribes to the signal. Attaching twice keeps one subscription.
func (g *Gate) Attach() {
	if g.signal == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.unsubscribe != nil {
		return
	}
	g.generation++
	generation := g.generation
	g.unsubscribe = g.signal.Subscribe(func(visible bool) {
		g.onChange(generation, visible)
	})
}

// Detach drops the subscription, if any.
func (g *Gate) Detach() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Attached reports whether the gate currently observes the signal.
func (g *Gate) Attached() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unsubscribe != nil
}

// Visible reports the signal's current state; true without a signal.
func (g *Gate) Visible() bool {
	return g.signal == nil || g.signal.Visible()
}

// current reports whether the subscription of the given generation is the
// live one.
func (g *Gate) current(generation uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unsubscribe != nil && g.generation == generation
}

func (g *Gate) onChange(generation uint64, visible bool) {
	// A signal may still deliver to a listener it copied before Detach.
	if !g.current(generation) {
		return
	}
	if visible {
		g.target.Resume()
	} else {
		g.target.Suspend()
	}
}
