package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "tick", Tick.String())
	assert.Equal(t, "perf", Perf.String())
	assert.Equal(t, "Type(7)", Type(7).String())

	for _, name := range []string{"tick", "perf"} {
		typ, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, name, typ.String())
	}

	_, err := ParseType("frame")
	assert.Error(t, err)
}

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.Subscribe(Tick, func(Event) { order = append(order, "first") })
	bus.Subscribe(Tick, func(Event) { order = append(order, "second") })
	bus.Subscribe(Perf, func(Event) { order = append(order, "perf") })
	bus.Subscribe(Tick, func(Event) { order = append(order, "third") })

	bus.Publish(Event{Type: Tick, Delta: 16 * time.Millisecond})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBusPayload(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(Perf, func(e Event) { got = append(got, e) })

	bus.Publish(Event{Type: Perf, Ratio: 0.75})
	bus.Publish(Event{Type: Tick, Delta: time.Second})

	require.Len(t, got, 1)
	assert.Equal(t, Perf, got[0].Type)
	assert.Equal(t, 0.75, got[0].Ratio)
}

func TestBusUnsubscribe(t *testing.T) {
	t.Run("removes exactly that handler", func(t *testing.T) {
		bus := NewBus()
		calls := map[string]int{}

		unsubA := bus.Subscribe(Tick, func(Event) { calls["a"]++ })
		bus.Subscribe(Tick, func(Event) { calls["b"]++ })
		assert.Equal(t, 2, bus.Len(Tick))

		unsubA()
		bus.Publish(Event{Type: Tick})

		assert.Equal(t, 0, calls["a"])
		assert.Equal(t, 1, calls["b"])
		assert.Equal(t, 1, bus.Len(Tick))
	})

	t.Run("is idempotent", func(t *testing.T) {
		bus := NewBus()
		unsub := bus.Subscribe(Perf, func(Event) {})
		bus.Subscribe(Perf, func(Event) {})

		unsub()
		assert.NotPanics(t, unsub)
		assert.Equal(t, 1, bus.Len(Perf))
	})

	t.Run("same function registered twice is two registrations", func(t *testing.T) {
		bus := NewBus()
		calls := 0
		h := func(Event) { calls++ }

		unsub := bus.Subscribe(Tick, h)
		bus.Subscribe(Tick, h)
		unsub()

		bus.Publish(Event{Type: Tick})
		assert.Equal(t, 1, calls)
	})

	t.Run("during publish takes effect on the next publish", func(t *testing.T) {
		bus := NewBus()
		calls := map[string]int{}
		var unsubB func()

		bus.Subscribe(Tick, func(Event) {
			calls["a"]++
			unsubB()
		})
		unsubB = bus.Subscribe(Tick, func(Event) { calls["b"]++ })

		bus.Publish(Event{Type: Tick})
		bus.Publish(Event{Type: Tick})

		assert.Equal(t, 2, calls["a"])
		assert.Equal(t, 1, calls["b"])
	})
}

func TestBusHandlerPanicPropagates(t *testing.T) {
	bus := NewBus()
	var order []string

	bus.Subscribe(Tick, func(Event) { order = append(order, "before") })
	bus.Subscribe(Tick, func(Event) { panic("render failed") })
	bus.Subscribe(Tick, func(Event) { order = append(order, "after") })

	assert.PanicsWithValue(t, "render failed", func() {
		bus.Publish(Event{Type: Tick})
	})
	assert.Equal(t, []string{"before"}, order, "handlers after a panicking one are skipped")

	// the bus stays usable
	bus.Subscribe(Perf, func(Event) { order = append(order, "perf") })
	bus.Publish(Event{Type: Perf})
	assert.Equal(t, []string{"before", "perf"}, order)
}

func TestBusesAreIndependent(t *testing.T) {
	a, b := NewBus(), NewBus()
	calls := 0
	a.Subscribe(Tick, func(Event) { calls++ })

	b.Publish(Event{Type: Tick})
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, b.Len(Tick))
}
