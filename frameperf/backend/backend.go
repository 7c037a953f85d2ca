package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/valerio/go-frameperf/frameperf/input"
	"github.com/valerio/go-frameperf/frameperf/input/action"
	"github.com/valerio/go-frameperf/frameperf/timing"
	"github.com/valerio/go-frameperf/frameperf/visibility"
)

// Backend represents a complete host platform (refresh source + rendering + input).
// Backends are responsible for:
// - Delivering display refreshes through the FrameSource they return from Init
// - Rendering the workload of every tick to their specific output
// - Translating platform events (keys, focus, signals) to Actions via the Input manager
type Backend interface {
	// Init configures the backend and returns the host primitives the
	// scheduler runs on. This is a required step before calling Update or Run.
	Init(config Config) (Host, error)

	// Update renders the workload of a tick. It is called from the tick
	// handler, on the goroutine running the frame source. Returned events
	// are triggered on the Input manager by the caller.
	Update(frame Frame) ([]InputEvent, error)

	// Run drives the frame source until ctx is done. It returns nil when
	// stopped through ctx.
	Run(ctx context.Context) error

	// Cleanup resources when shutting down
	Cleanup() error
}

// Config holds configuration for backends
type Config struct {
	Title       string
	RefreshRate float64        // display refreshes per second
	UnitCost    time.Duration  // render cost of a single workload unit
	LogLevel    slog.Level     // Backends installing their own log handler honor it
	Input       *input.Manager // Shared input manager for unified input handling
}

// Host is what a backend offers to the frame scheduler.
type Host struct {
	Clock      clock.Clock
	Source     timing.FrameSource
	Visibility *visibility.Toggle
}

// Frame is the state rendered on a tick.
type Frame struct {
	Tick     uint64
	Delta    time.Duration // time since the previous tick
	Units    int           // workload units to render
	MaxUnits int           // upper bound of Units
	Ratio    float64       // last performance ratio, valid when HasRatio
	HasRatio bool
	Target   time.Duration // target frame duration
}

// InputEvent is an action a backend wants the driver to perform.
type InputEvent struct {
	Action action.Action
}
