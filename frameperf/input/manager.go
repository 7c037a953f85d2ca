package input

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/valerio/go-frameperf/frameperf/input/action"
)

// Manager handles input actions and their associated callbacks. It is safe
// to trigger actions from any goroutine.
type Manager struct {
	mu            sync.Mutex
	clock         clock.Clock
	handlers      map[action.Action][]func()
	debounce      map[action.Action]time.Duration
	lastTriggered map[action.Action]time.Time
}

func NewManager(clk clock.Clock) *Manager {
	return &Manager{
		clock:         clk,
		handlers:      make(map[action.Action][]func()),
		debounce:      make(map[action.Action]time.Duration),
		lastTriggered: make(map[action.Action]time.Time),
	}
}

// On registers a callback for a specific action
func (m *Manager) On(act action.Action, callback func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[act] = append(m.handlers[act], callback)
}

// Debounce drops triggers of act arriving less than d after the last
// accepted one. Terminal key repeat would otherwise flip toggles rapidly.
func (m *Manager) Debounce(act action.Action, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.debounce[act] = d
}

// Trigger runs the callbacks of act and reports whether it was accepted.
// Callbacks run on the caller's goroutine, without the manager's lock held.
func (m *Manager) Trigger(act action.Action) bool {
	m.mu.Lock()
	if d := m.debounce[act]; d > 0 {
		now := m.clock.Now()
		if last, ok := m.lastTriggered[act]; ok && now.Sub(last) < d {
			m.mu.Unlock()
			return false
		}
		m.lastTriggered[act] = now
	}
	callbacks := m.handlers[act]
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
	return true
}
