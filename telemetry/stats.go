package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	RunID           string  `csv:"run_id"`
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Agent counts at window end
	Active int `csv:"active"`
	Halted int `csv:"halted"`

	// Events during window
	Halts int `csv:"halts"`

	// Distance to target over active agents, sampled at window end
	GoalDistMean float64 `csv:"goal_dist_mean"`
	GoalDistP50  float64 `csv:"goal_dist_p50"`
	GoalDistP90  float64 `csv:"goal_dist_p90"`
	GoalDistMax  float64 `csv:"goal_dist_max"`

	SpeedMean float64 `csv:"speed_mean"`
	SpeedMax  float64 `csv:"speed_max"`

	Settled bool `csv:"settled"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, P50, P90, Max float64
}

// Summarize computes mean, median, 90th percentile and maximum of values.
// Percentiles use the inverse empirical CDF, so they are always sample values.
// An empty sample yields all zeros. values is not modified.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Distribution{
		Mean: stat.Mean(sorted, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.9, stat.Empirical, sorted, nil),
		Max:  floats.Max(sorted),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("active", s.Active),
		slog.Int("halted", s.Halted),
		slog.Int("halts", s.Halts),
		slog.Float64("goal_dist_mean", s.GoalDistMean),
		slog.Float64("goal_dist_p50", s.GoalDistP50),
		slog.Float64("goal_dist_p90", s.GoalDistP90),
		slog.Float64("goal_dist_max", s.GoalDistMax),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Bool("settled", s.Settled),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
