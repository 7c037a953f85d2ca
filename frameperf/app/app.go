// Package app drives a frame scheduler on a backend and sizes the rendered
// workload from the performance ratio it reports.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/valerio/go-frameperf/frameperf"
	"github.com/valerio/go-frameperf/frameperf/backend"
	"github.com/valerio/go-frameperf/frameperf/config"
	"github.com/valerio/go-frameperf/frameperf/input"
	"github.com/valerio/go-frameperf/frameperf/input/action"
	"github.com/valerio/go-frameperf/frameperf/metrics"
	"github.com/valerio/go-frameperf/frameperf/workload"
)

const (
	DefaultMaxUnits    = 380
	DefaultRefreshRate = 240
	DefaultUnitCost    = 50 * time.Microsecond

	toggleDebounce = 250 * time.Millisecond
)

var ErrAlreadyRan = errors.New("app: already ran")

// Options tunes the demo around the scheduler configuration.
type Options struct {
	Title       string
	MaxUnits    int
	RefreshRate float64
	UnitCost    time.Duration
	LogLevel    slog.Level
	Metrics     *metrics.Metrics // optional
}

// App wires a scheduler, a workload governor and a backend.
type App struct {
	cfg      config.Config
	backend  backend.Backend
	opts     Options
	governor *workload.Governor
	input    *input.Manager
	ticks    atomic.Uint64
	ran      atomic.Bool
}

func New(cfg config.Config, b backend.Backend, opts Options) *App {
	if opts.MaxUnits <= 0 {
		opts.MaxUnits = DefaultMaxUnits
	}
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = DefaultRefreshRate
	}

	return &App{
		cfg:      cfg,
		backend:  b,
		opts:     opts,
		governor: workload.NewGovernor(opts.MaxUnits),
		input:    input.NewManager(clock.New()),
	}
}

// Run initializes the backend and runs until ctx is done or a Quit action
// arrives. An App runs once.
func (a *App) Run(ctx context.Context) error {
	if !a.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRan
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	host, err := a.backend.Init(backend.Config{
		Title:       a.opts.Title,
		RefreshRate: a.opts.RefreshRate,
		UnitCost:    a.opts.UnitCost,
		LogLevel:    a.opts.LogLevel,
		Input:       a.input,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.backend.Cleanup(); err != nil {
			slog.Error("Backend cleanup failed", "error", err)
		}
	}()

	// Init may have replaced the default logger.
	sched, err := frameperf.New(a.cfg, host.Source,
		frameperf.WithClock(host.Clock),
		frameperf.WithVisibility(host.Visibility),
		frameperf.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	a.input.Debounce(action.ToggleVisibility, toggleDebounce)
	a.input.On(action.Quit, cancel)
	a.input.On(action.ToggleVisibility, func() {
		slog.Info("Visibility toggled", "visible", host.Visibility.Flip())
	})
	a.input.On(action.LoadIncrease, func() {
		slog.Info("Load increased", "units", a.governor.Set(a.governor.Units()+a.governor.Grow))
	})
	a.input.On(action.LoadDecrease, func() {
		slog.Info("Load decreased", "units", a.governor.Set(a.governor.Units()-a.governor.Shed))
	})

	if a.opts.Metrics != nil {
		defer a.opts.Metrics.Attach(sched)()
	}

	updateErr := make(chan error, 1)
	sched.OnPerf(func(ratio float64) {
		a.governor.Adjust(ratio)
	})
	sched.OnTick(func(delta time.Duration) {
		ratio, ok := sched.Performance()
		events, err := a.backend.Update(backend.Frame{
			Tick:     a.ticks.Add(1),
			Delta:    delta,
			Units:    a.governor.Units(),
			MaxUnits: a.governor.Max,
			Ratio:    ratio,
			HasRatio: ok,
			Target:   sched.FrameDuration(),
		})
		if err != nil {
			select {
			case updateErr <- err:
			default:
			}
			cancel()
			return
		}
		for _, ev := range events {
			a.input.Trigger(ev.Action)
		}
	})

	sched.Start()
	defer sched.Stop()

	if err := a.backend.Run(ctx); err != nil {
		return err
	}

	select {
	case err := <-updateErr:
		return err
	default:
		slog.Info("Run finished", "ticks", a.ticks.Load(), "units", a.governor.Units())
		return nil
	}
}

// Ticks returns the number of ticks rendered so far.
func (a *App) Ticks() uint64 {
	return a.ticks.Load()
}

// Units returns the current workload size.
func (a *App) Units() int {
	return a.governor.Units()
}
