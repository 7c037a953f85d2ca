// Package frameperf throttles a display-refresh callback down to a target
// tick rate and reports how closely the achieved cadence tracks that target.
//
// A Scheduler consumes one raw callback per refresh from a timing.FrameSource.
// Once more than a frame duration has elapsed since the previous tick it
// publishes an events.Tick carrying the time since that tick. Every closed
// sampling window additionally publishes an events.Perf carrying the
// performance ratio, before the tick of the same refresh. Consumers use the
// ratio to decide whether to shed or add per-frame work; the scheduler never
// changes its target rate on its own.
package frameperf

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/valerio/go-frameperf/frameperf/config"
	"github.com/valerio/go-frameperf/frameperf/events"
	"github.com/valerio/go-frameperf/frameperf/perf"
	"github.com/valerio/go-frameperf/frameperf/timing"
	"github.com/valerio/go-frameperf/frameperf/visibility"
)

var ErrNilSource = errors.New("frame source is required")

// Option configures the host collaborators of a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used to anchor the loop on Start.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithVisibility suspends the loop while the signal reports the host hidden.
func WithVisibility(signal visibility.Signal) Option {
	return func(s *Scheduler) { s.signal = signal }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// Scheduler turns raw per-refresh callbacks into throttled ticks.
//
// Handlers run on the goroutine delivering raw frames, without any scheduler
// lock held, so they may call Start, Stop or Reset. A panicking handler is not
// recovered: the panic escapes the raw callback and the loop is not re-armed
// until it is restarted with Reset or Stop followed by Start.
type Scheduler struct {
	cfg           config.Config
	frameDuration time.Duration

	source  timing.FrameSource
	clock   clock.Clock
	signal  visibility.Signal
	logger  *slog.Logger
	bus     *events.Bus
	gate    *visibility.Gate
	sampler *perf.Sampler

	mu          sync.Mutex
	running     bool
	visible     bool
	prev        time.Time // reference for gating, carries the drift remainder
	windowStart time.Time // time of the previous tick
	pending     timing.Handle
	seq         uint64 // id of the current request, stale callbacks are ignored
}

// New validates cfg and creates a stopped Scheduler driven by source.
func New(cfg config.Config, source timing.FrameSource, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrNilSource
	}

	s := &Scheduler{
		cfg:           cfg,
		frameDuration: cfg.FrameDuration(),
		source:        source,
		bus:           events.NewBus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.sampler = perf.New(s.frameDuration, cfg.Performances.SamplesCount, cfg.Performances.SampleDuration)
	s.gate = visibility.NewGate(s.signal, controller{s})
	s.reset()

	return s, nil
}

// Start runs the loop. It is a no-op when already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.start()
	s.logger.Info("Frame scheduler started",
		"fps", s.cfg.FPS,
		"frame_duration_ms", durationMs(s.frameDuration),
		"performances", s.cfg.Performances.Enabled,
		"visible", s.visible)
}

// Stop detaches from the visibility signal, cancels the pending frame
// request and resets all timing state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gate.Detach()
	s.reset()
	s.logger.Info("Frame scheduler stopped")
}

// Reset cancels the pending frame request and restores the timing and
// sampling state to their initial values. The configuration is kept, and so
// is the visibility subscription of a started scheduler.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Scheduler) start() {
	if s.running {
		return
	}
	now := s.clock.Now()

	s.running = true
	s.visible = s.gate.Visible()
	s.prev = now
	s.windowStart = now
	s.sampler.Reset(now)

	s.gate.Attach()
	s.schedule()
}

func (s *Scheduler) reset() {
	s.cancel()
	s.running = false
	s.visible = true
	s.prev = time.Time{}
	s.windowStart = time.Time{}
	s.sampler.Reset(time.Time{})
}

// schedule requests the next raw frame and records its handle.
func (s *Scheduler) schedule() {
	s.seq++
	seq := s.seq
	s.pending = s.source.RequestFrame(func(now time.Time) {
		s.frame(seq, now)
	})
}

// cancel releases the pending request and invalidates any callback of it
// that is already in flight.
func (s *Scheduler) cancel() {
	s.seq++
	if s.pending != 0 {
		s.source.CancelFrame(s.pending)
		s.pending = 0
	}
}

// frame is the raw per-refresh callback.
func (s *Scheduler) frame(seq uint64, now time.Time) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.pending = 0

	// Not re-arming here ends the chain: a hidden host is resumed by the
	// visibility gate, a stopped one by Start.
	if !s.running || !s.visible {
		s.mu.Unlock()
		return
	}

	notifications := s.step(now)
	s.mu.Unlock()

	for _, e := range notifications {
		s.bus.Publish(e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a handler may have stopped or restarted the loop
	if s.running && s.seq == seq {
		s.schedule()
	}
}

// step applies one raw frame and returns the notifications it produced,
// perf first.
func (s *Scheduler) step(now time.Time) []events.Event {
	delta := now.Sub(s.prev)
	frameDelta := now.Sub(s.windowStart)

	if delta <= s.frameDuration {
		return nil
	}

	notifications := make([]events.Event, 0, 2)

	if s.cfg.Performances.Enabled {
		if ratio, closed := s.sampler.Record(frameDelta, now); closed {
			s.logger.Debug("Performance window closed",
				"ratio", ratio,
				"target_ms", durationMs(s.frameDuration))
			notifications = append(notifications, events.Event{Type: events.Perf, Ratio: ratio})
		}
	}

	// Carry the overshoot forward instead of anchoring on now, so the tick
	// rate does not drift below target.
	s.prev = now.Add(-(delta % s.frameDuration))
	s.windowStart = now

	return append(notifications, events.Event{Type: events.Tick, Delta: frameDelta})
}

func (s *Scheduler) suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.Attached() {
		return
	}

	s.visible = false
	s.logger.Debug("Frame loop suspended, host hidden")
}

// resume discards drift and sampling state instead of continuing the
// interrupted window.
//
// Transitions that reach the scheduler after Stop detached the gate are
// dropped, so a late show cannot restart a stopped loop.
func (s *Scheduler) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.Attached() {
		return
	}

	s.reset()
	s.start()
	s.logger.Debug("Frame loop resumed, host visible")
}

// Subscribe registers h for events of type t and returns its unsubscribe
// function.
func (s *Scheduler) Subscribe(t events.Type, h events.Handler) (unsubscribe func()) {
	return s.bus.Subscribe(t, h)
}

// OnTick registers fn to receive the time elapsed since the previous tick.
func (s *Scheduler) OnTick(fn func(delta time.Duration)) (unsubscribe func()) {
	return s.bus.Subscribe(events.Tick, func(e events.Event) { fn(e.Delta) })
}

// OnPerf registers fn to receive the ratio of every closed sampling window.
func (s *Scheduler) OnPerf(fn func(ratio float64)) (unsubscribe func()) {
	return s.bus.Subscribe(events.Perf, func(e events.Event) { fn(e.Ratio) })
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Visible reports whether the loop considers the host visible.
func (s *Scheduler) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Performance returns the ratio of the most recently closed sampling window.
// The boolean is false until a window closes after the last reset.
func (s *Scheduler) Performance() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampler.Ratio()
}

// FrameDuration returns the target duration of a tick, 1000/fps ms.
func (s *Scheduler) FrameDuration() time.Duration {
	return s.frameDuration
}

func (s *Scheduler) Config() config.Config {
	return s.cfg
}

// controller adapts the scheduler to the visibility gate.
type controller struct {
	s *Scheduler
}

func (c controller) Suspend() { c.s.suspend() }
func (c controller) Resume()  { c.s.resume() }

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
