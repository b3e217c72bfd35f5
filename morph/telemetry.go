package morph

import (
	"log/slog"

	"github.com/edipowladeo/enxame/components"
	"github.com/edipowladeo/enxame/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Session) flushTelemetry() {
	tick := s.system.Tick()
	if !s.collector.ShouldFlush(tick) {
		return
	}

	ms := s.system.Stats()
	stats := s.collector.Flush(tick, s.system.Time(), telemetry.Sample{
		Active:        ms.Active,
		Halted:        ms.Halted,
		GoalDistances: ms.GoalDistances,
		Speeds:        ms.Speeds,
		Settled:       s.Settled(),
	})
	s.lastStats = stats
	perfStats := s.perfCollector.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	s.perfCollector.StartPhase(telemetry.PhaseOutput)
	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if s.outputManager != nil {
			s.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot writes a snapshot tagged with bookmark to the output directory.
func (s *Session) saveSnapshot(bookmark *telemetry.Bookmark) {
	path, err := s.outputManager.WriteSnapshot(s.createSnapshot(bookmark))
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", s.system.Tick())
}

// createSnapshot builds a snapshot from the current state.
func (s *Session) createSnapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:    telemetry.SnapshotVersion,
		RunID:      s.runID,
		Seed:       s.seed,
		Tick:       s.system.Tick(),
		SimTimeSec: s.system.Time(),
		Bookmark:   bookmark,
		Agents:     make([]telemetry.AgentState, s.system.Len()),
	}
	for i, v := range s.system.Snapshot() {
		end := s.system.Plan(i).End
		snap.Agents[i] = telemetry.AgentState{
			Position: [3]float64{v.Position.X, v.Position.Y, v.Position.Z},
			Target:   [3]float64{end.X, end.Y, end.Z},
			Halted:   v.State == components.Halted,
		}
	}
	return snap
}
