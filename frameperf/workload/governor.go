// Package workload sizes per-tick work from the performance ratio.
package workload

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Governor sheds work units while ticks run slower than their target and
// adds them back once the host keeps up again.
type Governor struct {
	Min       int     // never shed below this
	Max       int     // never grow above this
	Shed      int     // units removed on a slow window
	Grow      int     // units added on a healthy window
	Threshold float64 // ratios below this count as slow

	mu    sync.Mutex
	units int
}

// NewGovernor starts at max units. It sheds 10 units below a 0.9 ratio and
// grows 5 otherwise.
func NewGovernor(max int) *Governor {
	return &Governor{
		Min:       0,
		Max:       max,
		Shed:      10,
		Grow:      5,
		Threshold: 0.9,
		units:     max,
	}
}

// Adjust applies a performance ratio and returns the new number of units.
// Zero, negative and NaN ratios carry no information and are ignored.
func (g *Governor) Adjust(ratio float64) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ratio <= 0 || math.IsNaN(ratio) {
		return g.units
	}

	before := g.units
	if ratio < g.Threshold {
		g.units = max(g.units-g.Shed, g.Min)
	} else if g.units < g.Max {
		g.units = min(g.units+g.Grow, g.Max)
	}

	if g.units != before {
		slog.Debug("Workload adjusted", "ratio", ratio, "from", before, "to", g.units)
	}
	return g.units
}

// Units returns the current number of work units.
func (g *Governor) Units() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.units
}

// Set overrides the number of units, clamped to [Min, Max].
func (g *Governor) Set(units int) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.units = min(max(units, g.Min), g.Max)
	return g.units
}

// Burn busy-waits for d on clk, standing in for per-unit render work. It
// needs a clock that advances on its own.
func Burn(clk clock.Clock, d time.Duration) {
	if d <= 0 {
		return
	}
	end := clk.Now().Add(d)
	for clk.Now().Before(end) {
	}
}
