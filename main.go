package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/guptarohit/asciigraph"

	"github.com/edipowladeo/enxame/config"
	"github.com/edipowladeo/enxame/morph"
	"github.com/edipowladeo/enxame/renderer"
	"github.com/edipowladeo/enxame/telemetry"
	"github.com/edipowladeo/enxame/ui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml or config.toml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, snapshots and config")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, then time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = until settled in headless mode, unlimited otherwise)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster headless runs)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := morph.Options{
		Seed:           *seed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		StepsPerUpdate: *stepsPerUpdate,
	}

	if *headless {
		if err := runHeadless(cfg, opts, int64(*maxTicks)); err != nil {
			slog.Error("headless run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Enxame")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	s, err := morph.New(cfg, opts)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	viewer := renderer.NewViewer(cfg, int32(cfg.Screen.Width), int32(cfg.Screen.Height))
	for !rl.WindowShouldClose() {
		viewer.HandleInput()
		s.SetDragScale(viewer.DragScale())
		s.Update(viewer.StepDt(rl.GetFrameTime()))
		s.RecordFrame()

		viewer.Draw(s, hudData(s), s.PerfStats())

		if *maxTicks > 0 && s.Tick() >= int64(*maxTicks) {
			break
		}
	}
}

// runHeadless steps with the configured dt until the morph settles or
// maxTicks is reached, then prints a chart of the mean goal distance.
func runHeadless(cfg *config.Config, opts morph.Options, maxTicks int64) error {
	s, err := morph.New(cfg, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	var goalDist []float64
	s.SetStatsCallback(func(ws telemetry.WindowStats) {
		goalDist = append(goalDist, ws.GoalDistMean)
	})

	slog.Info("starting headless simulation",
		"seed", s.Seed(),
		"agents", s.Len(),
		"max_ticks", maxTicks,
		"steps_per_update", opts.StepsPerUpdate,
	)

	for {
		s.UpdateHeadless()

		if maxTicks > 0 && s.Tick() >= maxTicks {
			slog.Info("max ticks reached", "tick", s.Tick())
			break
		}
		if maxTicks == 0 && s.Settled() {
			slog.Info("settled", "tick", s.Tick(), "sim_time", s.Time())
			break
		}
	}

	if len(goalDist) > 1 {
		fmt.Fprintln(os.Stderr, asciigraph.Plot(goalDist,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption("mean goal distance per stats window"),
		))
	}
	return nil
}

func hudData(s *morph.Session) ui.HUDData {
	st := s.Stats()
	last := s.LastStats()
	return ui.HUDData{
		Title:          "Enxame",
		Agents:         s.Len(),
		Active:         st.Active,
		Halted:         st.Halted,
		Tick:           s.Tick(),
		SimTimeSec:     s.Time(),
		StepsPerUpdate: s.StepsPerUpdate(),
		FPS:            rl.GetFPS(),
		Settled:        s.Settled(),
		GoalDistMean:   last.GoalDistMean,
		GoalDistMax:    last.GoalDistMax,
		Cost:           s.Cost(),
	}
}
