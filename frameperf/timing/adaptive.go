package timing

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	spinThreshold  = 2 * time.Millisecond
	maxLag         = 5 * time.Millisecond
	driftThreshold = 10 * time.Millisecond
	driftCheck     = 60
)

// AdaptiveSource paces refreshes with drift compensation. It combines sleep
// for efficiency with busy-waiting for accuracy, so it needs a real clock.
type AdaptiveSource struct {
	slot
	clock        clock.Clock
	period       time.Duration
	next         time.Time
	refreshCount int64
}

var _ FrameSource = (*AdaptiveSource)(nil)

func NewAdaptiveSource(clk clock.Clock, refreshRate float64) *AdaptiveSource {
	return &AdaptiveSource{
		clock:  clk,
		period: FrameDuration(refreshRate),
	}
}

func (a *AdaptiveSource) RequestFrame(fn FrameFunc) Handle {
	return a.request(fn)
}

func (a *AdaptiveSource) CancelFrame(h Handle) {
	a.cancel(h)
}

// Run paces refreshes and delivers the pending callback on each one until
// ctx is done. Callbacks run on the calling goroutine.
func (a *AdaptiveSource) Run(ctx context.Context) error {
	a.next = a.clock.Now()
	a.refreshCount = 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := a.waitForRefresh()
		if fn := a.take(); fn != nil {
			fn(now)
		}
	}
}

// waitForRefresh blocks until the next refresh is due and returns its time.
// Returns immediately when running behind schedule.
func (a *AdaptiveSource) waitForRefresh() time.Time {
	now := a.clock.Now()
	wait := a.next.Sub(now)

	if wait > 0 {
		if wait >= spinThreshold {
			a.clock.Sleep(wait - time.Millisecond)
		}
		for a.clock.Now().Before(a.next) {
			// busy-wait the last stretch, higher accuracy.
		}
	} else if wait < -maxLag {
		// too far behind, don't try to catch up with a burst of refreshes
		a.next = now
	}

	due := a.next
	a.next = a.next.Add(a.period)
	a.refreshCount++

	if a.refreshCount%driftCheck == 0 {
		drift := a.clock.Now().Sub(due)
		if drift.Abs() > driftThreshold {
			a.next = a.next.Add(drift / 10)
			slog.Debug("Refresh timing drift correction",
				"drift_ms", drift.Milliseconds(),
				"refreshes", a.refreshCount)
		}
	}

	return a.clock.Now()
}
