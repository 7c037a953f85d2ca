package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-frameperf/frameperf/backend"
	"github.com/valerio/go-frameperf/frameperf/backend/headless"
	"github.com/valerio/go-frameperf/frameperf/config"
	"github.com/valerio/go-frameperf/frameperf/input/action"
	"github.com/valerio/go-frameperf/frameperf/metrics"
)

func testConfig(samples int) config.Config {
	cfg := config.Default()
	cfg.Performances.SamplesCount = samples
	cfg.Performances.SampleDuration = 0
	return cfg
}

func TestHeadlessRunKeepsUp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New("frameperf", reg)
	require.NoError(t, err)

	h := headless.New(50, headless.HideCycle{})
	a := New(testConfig(10), h, Options{
		MaxUnits:    100,
		RefreshRate: 240,
		Metrics:     m,
	})

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, uint64(50), a.Ticks())
	assert.Equal(t, 100, a.Units())
	assert.Equal(t, 50, h.Stats().Ticks)

	expected := `
# HELP frameperf_ticks_total Number of throttled ticks published
# TYPE frameperf_ticks_total counter
frameperf_ticks_total 50
# HELP frameperf_perf_windows_total Number of closed performance sampling windows
# TYPE frameperf_perf_windows_total counter
frameperf_perf_windows_total 4
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"frameperf_ticks_total", "frameperf_perf_windows_total"))

	assert.ErrorIs(t, a.Run(context.Background()), ErrAlreadyRan)
}

func TestHeadlessRunShedsLoad(t *testing.T) {
	// 200 units at 100us cost 20ms per tick, more than a 60fps frame.
	h := headless.New(120, headless.HideCycle{})
	a := New(testConfig(5), h, Options{
		MaxUnits:    200,
		RefreshRate: 240,
		UnitCost:    100 * time.Microsecond,
	})

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, uint64(120), a.Ticks())
	assert.GreaterOrEqual(t, a.Units(), 150)
	assert.LessOrEqual(t, a.Units(), 175)
}

func TestHeadlessRunSurvivesHideCycle(t *testing.T) {
	h := headless.New(40, headless.HideCycle{After: 10, For: 100 * time.Millisecond})
	a := New(testConfig(10), h, Options{RefreshRate: 240})

	require.NoError(t, a.Run(context.Background()))

	stats := h.Stats()
	assert.Equal(t, 40, stats.Ticks)
	assert.Greater(t, stats.Hidden, 0)
	assert.Equal(t, uint64(40), a.Ticks())
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(testConfig(10), headless.New(1000, headless.HideCycle{}), Options{})
	assert.NoError(t, a.Run(ctx))
	assert.Equal(t, uint64(0), a.Ticks())
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FPS = 0

	a := New(cfg, headless.New(10, headless.HideCycle{}), Options{})
	assert.ErrorIs(t, a.Run(context.Background()), config.ErrInvalidFPS)
}

// failingBackend wraps headless and fails the Nth update.
type failingBackend struct {
	*headless.Backend
	failAt  int
	updates int
}

var errRender = errors.New("render failed")

func (f *failingBackend) Update(frame backend.Frame) ([]backend.InputEvent, error) {
	f.updates++
	if f.updates == f.failAt {
		return nil, errRender
	}
	return f.Backend.Update(frame)
}

func TestRunReportsUpdateError(t *testing.T) {
	b := &failingBackend{Backend: headless.New(100, headless.HideCycle{}), failAt: 5}
	a := New(testConfig(10), b, Options{})

	assert.ErrorIs(t, a.Run(context.Background()), errRender)
	assert.Equal(t, 5, b.updates)
}

func TestLoadActions(t *testing.T) {
	h := headless.New(1, headless.HideCycle{})
	a := New(testConfig(10), h, Options{MaxUnits: 100})
	require.NoError(t, a.Run(context.Background()))

	a.governor.Set(50)
	a.input.Trigger(action.LoadDecrease)
	assert.Equal(t, 40, a.Units())
	a.input.Trigger(action.LoadIncrease)
	assert.Equal(t, 45, a.Units())
}
