package timing

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// TickerSource emulates a display refreshing at a fixed rate using a ticker.
// Simple and consistent, less accurate than AdaptiveSource.
type TickerSource struct {
	slot
	clock  clock.Clock
	period time.Duration
}

var _ FrameSource = (*TickerSource)(nil)

// NewTickerSource creates a source refreshing refreshRate times per second.
func NewTickerSource(clk clock.Clock, refreshRate float64) *TickerSource {
	return &TickerSource{
		clock:  clk,
		period: FrameDuration(refreshRate),
	}
}

func (t *TickerSource) RequestFrame(fn FrameFunc) Handle {
	return t.request(fn)
}

func (t *TickerSource) CancelFrame(h Handle) {
	t.cancel(h)
}

// Period returns the refresh interval.
func (t *TickerSource) Period() time.Duration {
	return t.period
}

// Run delivers the pending callback on every refresh until ctx is done.
// Callbacks run on the calling goroutine.
func (t *TickerSource) Run(ctx context.Context) error {
	ticker := t.clock.Ticker(t.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if fn := t.take(); fn != nil {
				fn(now)
			}
		}
	}
}
