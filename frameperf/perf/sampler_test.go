package perf

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Unix(1000, 0)

func ms(n float64) time.Duration {
	return time.Duration(n * float64(time.Millisecond))
}

func TestSamplerClosesOnCountStrictly(t *testing.T) {
	s := New(ms(100), 3, 0)
	s.Reset(base)

	deltas := []time.Duration{ms(110), ms(100), ms(120), ms(150)}
	now := base
	for i, d := range deltas[:3] {
		now = now.Add(d)
		_, closed := s.Record(d, now)
		assert.False(t, closed, "sample %d must not close a window of 3", i+1)
		assert.Equal(t, i+1, s.Len())
	}

	now = now.Add(deltas[3])
	ratio, closed := s.Record(deltas[3], now)
	require.True(t, closed, "the 4th sample closes since 4 > 3")

	// 100 / mean(110, 100, 120, 150) = 100 / 120
	assert.InDelta(t, 100.0/120.0, ratio, 1e-9)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, now, s.WindowStart())

	got, ok := s.Ratio()
	assert.True(t, ok)
	assert.Equal(t, ratio, got)
}

func TestSamplerClosesOnDuration(t *testing.T) {
	s := New(ms(100), 200, time.Second)
	s.Reset(base)

	now := base
	for i := 0; i < 10; i++ {
		now = now.Add(ms(100))
		_, closed := s.Record(ms(100), now)
		assert.False(t, closed, "exactly one second elapsed is not beyond the window")
	}
	require.Equal(t, base.Add(time.Second), now)

	now = now.Add(ms(100))
	ratio, closed := s.Record(ms(100), now)
	require.True(t, closed)
	assert.InDelta(t, 1.0, ratio, 1e-9)
	assert.Equal(t, now, s.WindowStart())
	assert.Equal(t, 0, s.Len())
}

func TestSamplerZeroDurationDisablesTimeClosing(t *testing.T) {
	s := New(ms(100), 5, 0)
	s.Reset(base)

	// a huge gap alone never closes the window
	_, closed := s.Record(ms(100), base.Add(time.Hour))
	assert.False(t, closed)
	assert.Equal(t, 1, s.Len())
}

func TestSamplerSteadyStateRatioIsOne(t *testing.T) {
	target := ms(1000.0 / 60)
	s := New(target, 200, 0)
	s.Reset(base)

	now := base
	var ratio float64
	closed := false
	for i := 0; i < 201; i++ {
		now = now.Add(target)
		ratio, closed = s.Record(target, now)
	}
	require.True(t, closed)
	assert.Equal(t, 1.0, ratio)
}

func TestSamplerRatioDirection(t *testing.T) {
	t.Run("slow ticks", func(t *testing.T) {
		s := New(ms(100), 1, 0)
		s.Reset(base)
		s.Record(ms(200), base.Add(ms(200)))
		ratio, closed := s.Record(ms(200), base.Add(ms(400)))
		require.True(t, closed)
		assert.InDelta(t, 0.5, ratio, 1e-9)
	})

	t.Run("fast ticks", func(t *testing.T) {
		s := New(ms(100), 1, 0)
		s.Reset(base)
		s.Record(ms(50), base.Add(ms(50)))
		ratio, closed := s.Record(ms(50), base.Add(ms(100)))
		require.True(t, closed)
		assert.InDelta(t, 2.0, ratio, 1e-9)
	})
}

func TestSamplerPreservesInsertionOrder(t *testing.T) {
	s := New(ms(100), 10, 0)
	s.Reset(base)

	s.Record(ms(120), base)
	s.Record(ms(90), base)
	s.Record(ms(101), base)

	assert.Equal(t, []time.Duration{ms(120), ms(90), ms(101)}, s.Samples())
}

func TestSamplerReset(t *testing.T) {
	s := New(ms(100), 1, 0)
	s.Reset(base)

	_, ok := s.Ratio()
	assert.False(t, ok, "no ratio before the first window closes")

	s.Record(ms(100), base.Add(ms(100)))
	_, closed := s.Record(ms(100), base.Add(ms(200)))
	require.True(t, closed)
	s.Record(ms(100), base.Add(ms(300)))

	restart := base.Add(time.Minute)
	s.Reset(restart)

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, restart, s.WindowStart())
	_, ok = s.Ratio()
	assert.False(t, ok)
}

func TestSamplerWindowStartIsMonotonic(t *testing.T) {
	s := New(ms(10), 2, 0)
	s.Reset(base)

	prev := s.WindowStart()
	now := base
	for i := 0; i < 30; i++ {
		now = now.Add(ms(11))
		if _, closed := s.Record(ms(11), now); closed {
			assert.True(t, s.WindowStart().After(prev))
			prev = s.WindowStart()
		}
	}
}

func TestSamplerHugeCountClosesOnDuration(t *testing.T) {
	var s *Sampler
	require.NotPanics(t, func() { s = New(ms(100), math.MaxInt, ms(250)) })
	s.Reset(base)

	now := base
	closedAt := 0
	for i := 1; i <= 3; i++ {
		now = now.Add(ms(100))
		if _, closed := s.Record(ms(100), now); closed {
			closedAt = i
		}
	}
	assert.Equal(t, 3, closedAt)
	assert.Equal(t, 0, s.Len())
}

func TestSamplerGrowsPastPreallocation(t *testing.T) {
	count := maxPrealloc * 2
	s := New(ms(10), count, 0)
	s.Reset(base)

	now := base
	for i := 0; i < count; i++ {
		now = now.Add(ms(10))
		_, closed := s.Record(ms(10), now)
		require.False(t, closed)
	}
	assert.Equal(t, count, s.Len())

	ratio, closed := s.Record(ms(10), now.Add(ms(10)))
	assert.True(t, closed)
	assert.InDelta(t, 1.0, ratio, 1e-9)
}
