// Package telemetry provides morph progress tracking, perf timing, bookmarks
// and CSV/JSON run output.
package telemetry

// Sample is the agent state the collector needs at a window boundary.
type Sample struct {
	Active, Halted int
	GoalDistances  []float64 // active agents only
	Speeds         []float64 // active agents only
	Settled        bool
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	runID string

	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	windowStartTick int64

	// Event counters for current window
	halts int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(runID string, windowDurationSec, dt float64) *Collector {
	ticks := int64(1)
	if dt > 0 {
		ticks = max(1, int64(windowDurationSec/dt+0.5))
	}
	return &Collector{
		runID:               runID,
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticks,
		dt:                  dt,
	}
}

// RecordHalts records agents that reached the floor this tick.
func (c *Collector) RecordHalts(n int) {
	c.halts += n
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64, simTime float64, s Sample) WindowStats {
	dist := Summarize(s.GoalDistances)
	speed := Summarize(s.Speeds)

	stats := WindowStats{
		RunID:           c.runID,
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      simTime,

		Active: s.Active,
		Halted: s.Halted,
		Halts:  c.halts,

		GoalDistMean: dist.Mean,
		GoalDistP50:  dist.P50,
		GoalDistP90:  dist.P90,
		GoalDistMax:  dist.Max,

		SpeedMean: speed.Mean,
		SpeedMax:  speed.Max,

		Settled: s.Settled,
	}

	c.windowStartTick = currentTick
	c.halts = 0
	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
