// Package visibility tracks whether the host is foregrounded and suspends a
// frame loop while it is not.
package visibility

import (
	"sync"
)

// Signal reports whether the host is currently visible and notifies
// subscribers when that changes.
type Signal interface {
	Visible() bool
	Subscribe(onChange func(visible bool)) (unsubscribe func())
}

// Toggle is an in-memory Signal driven by Set. Hosts feed it from their own
// focus or foreground events.
type Toggle struct {
	// delivery serializes transitions with their notifications.
	delivery sync.Mutex

	mu        sync.Mutex
	visible   bool
	listeners []listener
	nextID    uint64
}

type listener struct {
	id uint64
	fn func(bool)
}

var _ Signal = (*Toggle)(nil)

func NewToggle(visible bool) *Toggle {
	return &Toggle{visible: visible}
}

func (t *Toggle) Visible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible
}

// Set updates the state. Listeners are notified only when the state
// actually changes, outside the toggle's state lock and in the order of the
// changes, so concurrent Set calls leave listeners agreeing with Visible.
// Listeners may read the toggle but must not Set or Flip it.
func (t *Toggle) Set(visible bool) {
	t.delivery.Lock()
	defer t.delivery.Unlock()
	t.set(visible)
}

// Flip inverts the state and returns the new value.
func (t *Toggle) Flip() bool {
	t.delivery.Lock()
	defer t.delivery.Unlock()

	visible := !t.Visible()
	t.set(visible)
	return visible
}

func (t *Toggle) set(visible bool) {
	t.mu.Lock()
	if t.visible == visible {
		t.mu.Unlock()
		return
	}
	t.visible = visible
	listeners := t.listeners
	t.mu.Unlock()

	for _, l := range listeners {
		l.fn(visible)
	}
}

func (t *Toggle) Subscribe(onChange func(visible bool)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	t.listeners = append(t.listeners, listener{id: id, fn: onChange})

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Toggle) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make([]listener, 0, len(t.listeners))
	for _, l := range t.listeners {
		if l.id != id {
			next = append(next, l)
		}
	}
	t.listeners = next
}

// Listeners returns the number of subscribed listeners.
func (t *Toggle) Listeners() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners)
}
