package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/edipowladeo/enxame/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title          string
	Agents         int
	Active         int
	Halted         int
	Tick           int64
	SimTimeSec     float64
	StepsPerUpdate int
	TimeScale      float64
	FPS            int32
	Paused         bool
	Settled        bool
	AutoCenter     bool
	DragScale      float64

	// Last flushed stats window
	GoalDistMean float64
	GoalDistMax  float64
	Cost         float64
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD in the top left corner.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	x, y := int32(10), int32(10)

	rl.DrawText(data.Title, x, y, 20, rl.White)
	y += 26

	y = r.DrawLabelValue(x, y, "Agents", fmt.Sprintf("%d (active %d, halted %d)", data.Agents, data.Active, data.Halted))
	y = r.DrawLabelValue(x, y, "Tick", fmt.Sprintf("%d  t=%.2fs", data.Tick, data.SimTimeSec))
	y = r.DrawLabelValue(x, y, "Speed", fmt.Sprintf("%dx  scale %.2f  FPS %d", data.StepsPerUpdate, data.TimeScale, data.FPS))
	y = r.DrawLabelValue(x, y, "Goal dist", fmt.Sprintf("mean %.3f  max %.3f", data.GoalDistMean, data.GoalDistMax))
	y = r.DrawLabelValue(x, y, "Cost", fmt.Sprintf("%.1f", data.Cost))

	arrived := float32(0)
	if data.Agents > 0 && data.Settled {
		arrived = 1
	} else if data.GoalDistMax > 0 {
		arrived = float32(1 - data.GoalDistMean/data.GoalDistMax)
	}
	y = r.DrawBar(x, y, "Progress", arrived, 300)

	status, color := "Running", rl.Green
	switch {
	case data.Paused:
		status, color = "PAUSED", rl.Yellow
	case data.Settled:
		status, color = "Settled", rl.SkyBlue
	}
	rl.DrawText(status, x, y+4, 16, color)
	if data.AutoCenter {
		rl.DrawText("auto-center", x+90, y+6, 12, rl.Gray)
	}
	if data.DragScale != 1 {
		rl.DrawText(fmt.Sprintf("drag x%.2f", data.DragScale), x+170, y+6, 12, rl.Gray)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-phase tick timing.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	const width, height = 220, 110
	r.DrawPanel(p.x, p.y, width, height)

	x, y := p.x+r.Theme.Padding, p.y+r.Theme.Padding/2
	y = r.DrawSectionHeader(x, y, "Performance")
	y = r.DrawLabelValue(x, y, "Tick avg", stats.AvgTickDuration.Round(time.Microsecond).String())
	y = r.DrawLabelValue(x, y, "Ticks/s", fmt.Sprintf("%.0f", stats.TicksPerSecond))

	for _, phase := range []string{telemetry.PhaseSimulate, telemetry.PhaseTelemetry, telemetry.PhaseOutput} {
		pct := stats.PhasePct[phase]
		color := rl.LightGray
		if pct > 50 {
			color = rl.Orange
		}
		rl.DrawText(fmt.Sprintf("%-10s %5.1f%%", phase, pct), x, y, r.Theme.FontSize, color)
		y += 14
	}
}
