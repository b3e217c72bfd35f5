// Package morph wires figures, the correspondence solver and the integrator
// into a runnable session with telemetry.
package morph

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/assign"
	"github.com/edipowladeo/enxame/components"
	"github.com/edipowladeo/enxame/config"
	"github.com/edipowladeo/enxame/figure"
	"github.com/edipowladeo/enxame/stl"
	"github.com/edipowladeo/enxame/systems"
	"github.com/edipowladeo/enxame/telemetry"
)

// ErrCountMismatch is returned when the two figures have different sizes.
var ErrCountMismatch = errors.New("morph: figures differ in size")

// stallHistory is the number of stats windows without progress that count
// as a stall.
const stallHistory = 10

// maxSubsteps bounds how many integrator steps one long frame is split
// into. Frame time beyond maxSubsteps*MaxStep is dropped.
const maxSubsteps = 8

// Options configures a session beyond what the config file holds.
type Options struct {
	Seed           int64   // 0 = morph.seed from config, then time-based
	LogStats       bool    // log window stats and bookmarks via slog
	StatsWindowSec float64 // 0 = telemetry.stats_window from config
	OutputDir      string  // empty disables CSV and snapshot output
	StepsPerUpdate int     // ticks per Update call, at least 1
}

// Session holds a complete morph run.
type Session struct {
	cfg  *config.Config
	seed int64
	rng  *rand.Rand

	cache *stl.Cache

	start, end figure.Figure
	assignment []int
	cost       float64

	system *systems.MorphSystem

	runID          string
	stepsPerUpdate int
	logStats       bool

	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	bookmarks     *telemetry.BookmarkDetector
	outputManager *telemetry.OutputManager

	statsCallback func(telemetry.WindowStats)
	lastStats     telemetry.WindowStats
}

// New builds both figures, solves the correspondence between them and
// creates one agent per start point aimed at its assigned end point.
func New(cfg *config.Config, opts Options) (*Session, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = cfg.Morph.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Session{
		cfg:            cfg,
		seed:           seed,
		rng:            rand.New(rand.NewSource(seed)),
		cache:          stl.NewCache(),
		runID:          telemetry.NewRunID(),
		stepsPerUpdate: max(1, opts.StepsPerUpdate),
		logStats:       opts.LogStats,
	}

	var err error
	if s.start, err = s.buildFigure(cfg.Morph.Start, cfg.Morph.Count); err != nil {
		return nil, fmt.Errorf("start figure: %w", err)
	}
	if s.end, err = s.buildFigure(cfg.Morph.End, cfg.Morph.Count); err != nil {
		return nil, fmt.Errorf("end figure: %w", err)
	}
	if s.start.Len() != s.end.Len() {
		return nil, fmt.Errorf("%w: start has %d points, end has %d", ErrCountMismatch, s.start.Len(), s.end.Len())
	}

	startPos, endPos := s.start.Positions(), s.end.Positions()
	if s.assignment, s.cost, err = solve(startPos, endPos); err != nil {
		return nil, err
	}

	bodies := s.start.Particles()
	plans := make([]components.MorphPlan, len(bodies))
	for i := range bodies {
		plans[i] = components.MorphPlan{Start: startPos[i], End: endPos[s.assignment[i]]}
	}

	model, err := systems.NewForceModel(cfg, s.rng)
	if err != nil {
		return nil, err
	}
	s.system, err = systems.NewMorphSystem(bodies, plans, systems.ParamsFromConfig(cfg), model)
	if err != nil {
		return nil, err
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	s.collector = telemetry.NewCollector(s.runID, statsWindow, cfg.Physics.DT)
	s.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	s.bookmarks = telemetry.NewBookmarkDetector(cfg.Morph.SettleTolerance, stallHistory)

	s.outputManager, err = telemetry.NewOutputManager(opts.OutputDir, s.runID)
	if err != nil {
		return nil, err
	}
	if err := s.outputManager.WriteConfig(cfg); err != nil {
		s.outputManager.Close()
		return nil, err
	}
	if err := s.outputManager.WriteAssignment(s.assignmentRecords(startPos, endPos)); err != nil {
		s.outputManager.Close()
		return nil, err
	}

	slog.Info("morph session ready",
		"run_id", s.runID,
		"seed", seed,
		"agents", s.system.Len(),
		"start", cfg.Morph.Start.Kind,
		"end", cfg.Morph.End.Kind,
		"force_model", cfg.Physics.ForceModel,
	)
	return s, nil
}

func (s *Session) buildFigure(fc config.FigureConfig, count int) (figure.Figure, error) {
	creator, err := figure.FromConfig(fc, count, s.cache, s.rng)
	if err != nil {
		return figure.Figure{}, err
	}
	return creator.Create()
}

// solve runs the assignment and logs its total squared-distance cost.
func solve(from, to []r3.Vec) ([]int, float64, error) {
	started := time.Now()
	perm, err := assign.Solve(from, to)
	if errors.Is(err, assign.ErrSizeMismatch) {
		return nil, 0, fmt.Errorf("%w: %w", ErrCountMismatch, err)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("solve assignment: %w", err)
	}
	cost := assign.TotalCost(assign.CostMatrix(from, to), perm)
	slog.Info("assignment solved",
		"points", len(perm),
		"cost", cost,
		"elapsed", time.Since(started).Round(time.Microsecond),
	)
	return perm, cost, nil
}

func (s *Session) assignmentRecords(from, to []r3.Vec) []telemetry.AssignmentRecord {
	records := make([]telemetry.AssignmentRecord, len(s.assignment))
	for i, j := range s.assignment {
		a, b := from[i], to[j]
		d := r3.Sub(b, a)
		records[i] = telemetry.AssignmentRecord{
			RunID:  s.runID,
			Index:  i,
			Target: j,
			StartX: a.X, StartY: a.Y, StartZ: a.Z,
			EndX: b.X, EndY: b.Y, EndZ: b.Z,
			Cost: r3.Dot(d, d),
		}
	}
	return records
}

// SetStatsCallback registers a function called with every flushed window.
func (s *Session) SetStatsCallback(fn func(telemetry.WindowStats)) {
	s.statsCallback = fn
}

// Update advances the simulation by StepsPerUpdate updates of dt seconds
// each. An update longer than the integrator's max step is split into equal
// substeps, so a scaled frame time is simulated rather than clamped.
func (s *Session) Update(dt float64) {
	n := substeps(dt, s.system.Params().MaxStep)
	h := dt / float64(n)
	for range s.stepsPerUpdate {
		for range n {
			s.step(h)
		}
	}
}

// substeps returns how many steps of at most maxStep cover dt, between 1
// and maxSubsteps.
func substeps(dt, maxStep float64) int {
	if !(dt > maxStep) {
		return 1
	}
	return int(min(math.Ceil(dt/maxStep), maxSubsteps))
}

// UpdateHeadless advances by StepsPerUpdate ticks of the configured fixed dt.
func (s *Session) UpdateHeadless() {
	s.Update(s.cfg.Physics.DT)
}

func (s *Session) step(dt float64) {
	s.perfCollector.StartTick()

	s.perfCollector.StartPhase(telemetry.PhaseSimulate)
	halts := s.system.Update(dt)
	s.collector.RecordHalts(halts)

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()

	s.perfCollector.EndTick()
}

// SetDragScale multiplies the configured drag by k; see systems.MorphSystem.SetDragScale.
func (s *Session) SetDragScale(k float64) {
	s.system.SetDragScale(k)
}

// DragScale returns the current drag multiplier.
func (s *Session) DragScale() float64 {
	return s.system.DragScale()
}

// RecordFrame marks a rendered frame for FPS tracking.
func (s *Session) RecordFrame() {
	s.perfCollector.RecordFrame()
}

// Snapshot returns the position and state of every agent.
func (s *Session) Snapshot() []systems.ParticleView {
	return s.system.Snapshot()
}

// Plans returns a copy of every agent's plan, in agent order.
func (s *Session) Plans() []components.MorphPlan {
	plans := make([]components.MorphPlan, s.system.Len())
	for i := range plans {
		plans[i] = s.system.Plan(i)
	}
	return plans
}

// Retarget solves a new correspondence from the current agent positions to
// the figure described by fc and aims every agent at its new point.
func (s *Session) Retarget(fc config.FigureConfig) error {
	fig, err := s.buildFigure(fc, s.system.Len())
	if err != nil {
		return fmt.Errorf("retarget figure: %w", err)
	}
	if fig.Len() != s.system.Len() {
		return fmt.Errorf("%w: %d agents, new figure has %d points", ErrCountMismatch, s.system.Len(), fig.Len())
	}

	from, to := s.system.Positions(), fig.Positions()
	perm, cost, err := solve(from, to)
	if err != nil {
		return err
	}
	ends := make([]r3.Vec, len(perm))
	for i, j := range perm {
		ends[i] = to[j]
	}
	if err := s.system.Retarget(ends); err != nil {
		return err
	}

	s.end, s.assignment, s.cost = fig, perm, cost
	s.bookmarks.Reset()
	if err := s.outputManager.WriteAssignment(s.assignmentRecords(from, to)); err != nil {
		slog.Error("failed to write assignment", "error", err)
	}
	slog.Info("retargeted", "kind", fc.Kind, "tick", s.system.Tick())
	return nil
}

// Settled reports whether every active agent rests at its target within
// the configured tolerance.
func (s *Session) Settled() bool {
	return s.system.Settled(s.cfg.Morph.SettleTolerance)
}

// Stats summarizes the current agent state.
func (s *Session) Stats() systems.MorphStats {
	return s.system.Stats()
}

// Tick returns the current simulation tick.
func (s *Session) Tick() int64 {
	return s.system.Tick()
}

// Time returns the simulated time in seconds.
func (s *Session) Time() float64 {
	return s.system.Time()
}

// Len returns the number of agents.
func (s *Session) Len() int {
	return s.system.Len()
}

// StepsPerUpdate returns the number of ticks each Update takes.
func (s *Session) StepsPerUpdate() int {
	return s.stepsPerUpdate
}

// Seed returns the seed the session was built with.
func (s *Session) Seed() int64 {
	return s.seed
}

// RunID returns the identifier tagging every output record.
func (s *Session) RunID() string {
	return s.runID
}

// Cost returns the total squared distance of the current assignment.
func (s *Session) Cost() float64 {
	return s.cost
}

// Assignment returns a copy of the current start-to-end permutation.
func (s *Session) Assignment() []int {
	out := make([]int, len(s.assignment))
	copy(out, s.assignment)
	return out
}

// StartFigure returns the figure the agents were created from.
func (s *Session) StartFigure() figure.Figure {
	return s.start
}

// EndFigure returns the figure the agents are currently heading to.
func (s *Session) EndFigure() figure.Figure {
	return s.end
}

// LastStats returns the most recently flushed stats window.
func (s *Session) LastStats() telemetry.WindowStats {
	return s.lastStats
}

// PerfStats returns rolling performance statistics.
func (s *Session) PerfStats() telemetry.PerfStats {
	return s.perfCollector.Stats()
}

// Config returns the configuration the session runs with.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Close saves a final snapshot and closes output files.
func (s *Session) Close() error {
	if s.outputManager == nil {
		return nil
	}
	if _, err := s.outputManager.WriteSnapshot(s.createSnapshot(nil)); err != nil {
		slog.Error("failed to save final snapshot", "error", err)
	}
	return s.outputManager.Close()
}
