package events

import (
	"fmt"
	"sync"
	"time"
)

// Type identifies a notification channel.
type Type int

const (
	Tick Type = iota // throttled frame, payload Event.Delta
	Perf             // closed sampling window, payload Event.Ratio
)

var typeNames = map[Type]string{
	Tick: "tick",
	Perf: "perf",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType maps a channel name back to its Type.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", name)
}

// Event is a single notification.
type Event struct {
	Type  Type
	Delta time.Duration // Tick: drift-compensated time since the previous tick
	Ratio float64       // Perf: target frame duration / average sample
}

// Handler receives published events.
type Handler func(Event)

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is a per-owner publish/subscribe registry. Handlers run synchronously
// on the publishing goroutine, in registration order.
//
// A panicking handler is not recovered: the panic propagates out of Publish
// and the handlers registered after it do not see that event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]subscriber
	nextID      uint64
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[Type][]subscriber),
	}
}

// Subscribe registers h for events of type t. The returned function removes
// exactly this registration; calling it more than once is a no-op.
func (b *Bus) Subscribe(t Type, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[t] = append(b.subscribers[t], subscriber{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(t, id) })
	}
}

func (b *Bus) remove(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[t]
	for i, s := range subs {
		if s.id == id {
			// copy so snapshots taken by an in-flight Publish stay intact
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.subscribers[t] = next
			return
		}
	}
}

// Publish delivers e to the handlers registered for e.Type when Publish is
// called. Handlers added or removed during delivery take effect on the next
// Publish.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := b.subscribers[e.Type]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(e)
	}
}

// Len returns the number of handlers registered for t.
func (b *Bus) Len(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[t])
}
