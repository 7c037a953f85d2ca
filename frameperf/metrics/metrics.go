package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/valerio/go-frameperf/frameperf/events"
)

// Subscriber is anything publishing tick and perf events, typically a
// *frameperf.Scheduler.
type Subscriber interface {
	Subscribe(t events.Type, h events.Handler) (unsubscribe func())
}

// Metrics exports the tick cadence and performance ratio of a scheduler.
type Metrics struct {
	ticks       prometheus.Counter
	tickDelta   prometheus.Histogram
	perfWindows prometheus.Counter
	perfRatio   prometheus.Gauge
}

// New creates the collectors and registers them with registerer.
func New(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Number of throttled ticks published",
		}),
		tickDelta: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_delta_seconds",
			Help:      "Time elapsed between consecutive ticks",
			Buckets:   prometheus.ExponentialBuckets(0.004, 1.5, 12),
		}),
		perfWindows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "perf_windows_total",
			Help:      "Number of closed performance sampling windows",
		}),
		perfRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "perf_ratio",
			Help:      "Target frame duration over the average tick delta of the last closed window",
		}),
	}

	err := errors.Join(
		registerer.Register(m.ticks),
		registerer.Register(m.tickDelta),
		registerer.Register(m.perfWindows),
		registerer.Register(m.perfRatio),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Attach starts observing the events of s. The returned function stops it.
func (m *Metrics) Attach(s Subscriber) (detach func()) {
	unsubTick := s.Subscribe(events.Tick, func(e events.Event) { m.ObserveTick(e.Delta) })
	unsubPerf := s.Subscribe(events.Perf, func(e events.Event) { m.ObservePerf(e.Ratio) })
	return func() {
		unsubTick()
		unsubPerf()
	}
}

func (m *Metrics) ObserveTick(delta time.Duration) {
	m.ticks.Inc()
	m.tickDelta.Observe(delta.Seconds())
}

func (m *Metrics) ObservePerf(ratio float64) {
	m.perfWindows.Inc()
	m.perfRatio.Set(ratio)
}
