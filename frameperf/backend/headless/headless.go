package headless

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/valerio/go-frameperf/frameperf/backend"
	"github.com/valerio/go-frameperf/frameperf/input/action"
	"github.com/valerio/go-frameperf/frameperf/timing"
	"github.com/valerio/go-frameperf/frameperf/visibility"
)

// maxIdleRefreshes bounds how long Run keeps refreshing without a pending
// frame request when no hide cycle explains it.
const maxIdleRefreshes = 1000

var ErrStalled = errors.New("headless: frame loop stalled")

// Backend simulates a display on a mock clock for automated testing and batch
// runs. Rendering costs UnitCost per workload unit of simulated time, and a
// refresh that renders a tick is pushed back until the work completes.
type Backend struct {
	config   backend.Config
	clock    *clock.Mock
	source   *timing.ManualSource
	toggle   *visibility.Toggle
	period   time.Duration
	maxTicks int
	hide     HideCycle

	ticks    int
	workCost time.Duration // cost of the tick rendered on the current refresh
	stats    Stats
}

// HideCycle hides the host once after After ticks, for For of simulated
// time. A zero After disables it.
type HideCycle struct {
	After int
	For   time.Duration
}

// Stats summarizes a completed run.
type Stats struct {
	Refreshes int
	Ticks     int
	Hidden    int // refreshes spent hidden
	Elapsed   time.Duration
	LastUnits int
}

func New(maxTicks int, hide HideCycle) *Backend {
	return &Backend{
		maxTicks: maxTicks,
		hide:     hide,
	}
}

func (h *Backend) Init(config backend.Config) (backend.Host, error) {
	if config.RefreshRate <= 0 {
		return backend.Host{}, errors.New("headless: refresh rate must be positive")
	}
	if h.maxTicks <= 0 {
		return backend.Host{}, errors.New("headless: tick count must be positive")
	}

	h.config = config
	h.clock = clock.NewMock()
	h.clock.Set(time.Unix(0, 0))
	h.source = timing.NewManualSource()
	h.toggle = visibility.NewToggle(true)
	h.period = timing.FrameDuration(config.RefreshRate)

	slog.Info("Running headless mode",
		"ticks", h.maxTicks,
		"refresh_rate", config.RefreshRate,
		"unit_cost", config.UnitCost,
		"hide_after", h.hide.After,
		"hide_for", h.hide.For)

	return backend.Host{
		Clock:      h.clock,
		Source:     h.source,
		Visibility: h.toggle,
	}, nil
}

// Update accounts for the simulated render cost of a tick
func (h *Backend) Update(frame backend.Frame) ([]backend.InputEvent, error) {
	var events []backend.InputEvent

	h.ticks++
	h.workCost = time.Duration(frame.Units) * h.config.UnitCost
	h.stats.LastUnits = frame.Units

	// Log progress periodically
	if h.ticks%60 == 0 {
		slog.Info("Tick progress",
			"completed", h.ticks,
			"total", h.maxTicks,
			"units", frame.Units,
			"delta_ms", frame.Delta.Milliseconds())
	}

	if h.ticks >= h.maxTicks {
		slog.Info("Headless execution completed", "ticks", h.ticks)
		events = append(events, backend.InputEvent{Action: action.Quit})
	}

	return events, nil
}

// Run advances the mock clock one refresh at a time and fires the pending
// frame on each. It stops when ctx is done.
func (h *Backend) Run(ctx context.Context) error {
	start := h.clock.Now()
	hiddenUntil := time.Time{}
	hideDone := false
	idle := 0

	defer func() {
		h.stats.Ticks = h.ticks
		h.stats.Elapsed = h.clock.Now().Sub(start)
	}()

	for ctx.Err() == nil {
		h.clock.Add(h.advance())
		now := h.clock.Now()
		h.stats.Refreshes++

		switch {
		case !hiddenUntil.IsZero() && !now.Before(hiddenUntil):
			hiddenUntil = time.Time{}
			slog.Info("Host visible again", "tick", h.ticks)
			h.toggle.Set(true)
		case !hideDone && h.hide.After > 0 && h.ticks >= h.hide.After:
			hideDone = true
			hiddenUntil = now.Add(h.hide.For)
			slog.Info("Host hidden", "tick", h.ticks, "for", h.hide.For)
			h.toggle.Set(false)
		}

		if !h.toggle.Visible() {
			h.stats.Hidden++
		}

		if h.source.Fire(now) {
			idle = 0
			continue
		}
		if hiddenUntil.IsZero() {
			idle++
			if idle > maxIdleRefreshes {
				return ErrStalled
			}
		}
	}
	return nil
}

// advance returns how far the clock moves to the next refresh: one period,
// or as many periods as the last tick's render work needed.
func (h *Backend) advance() time.Duration {
	cost := h.workCost
	h.workCost = 0
	if cost <= h.period {
		return h.period
	}
	periods := (cost + h.period - 1) / h.period
	return periods * h.period
}

// Stats returns the counters of the last run.
func (h *Backend) Stats() Stats {
	return h.stats
}

func (h *Backend) Cleanup() error {
	return nil
}
