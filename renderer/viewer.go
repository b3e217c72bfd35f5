// Package renderer draws a running morph in 3D with raylib.
//
// The viewer only reads agent state; it never changes the simulation.
// Physics coordinates are Z-up and are mapped to raylib's Y-up frame on draw.
package renderer

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/camera"
	"github.com/edipowladeo/enxame/components"
	"github.com/edipowladeo/enxame/config"
	"github.com/edipowladeo/enxame/systems"
	"github.com/edipowladeo/enxame/telemetry"
	"github.com/edipowladeo/enxame/ui"
)

// Scene is the read-only view of a morph the viewer draws.
type Scene interface {
	Snapshot() []systems.ParticleView
	Plans() []components.MorphPlan
}

// Particle colors by state.
var (
	ActiveColor = rl.Color{R: 120, G: 200, B: 255, A: 255}
	HaltedColor = rl.Color{R: 200, G: 90, B: 60, A: 255}
	StartColor  = rl.Color{R: 255, G: 255, B: 255, A: 60}
	EndColor    = rl.Color{R: 120, G: 255, B: 120, A: 90}
)

const (
	maxTimeScale = 4.0
	panelWidth   = 220
	lowDragScale = 0.01
)

// Viewer owns the camera and every presentation toggle.
type Viewer struct {
	camera *camera.Orbit
	hud    *ui.HUD
	perf   *ui.PerfPanel

	particleRadius float32
	floorZ         float64

	paused     bool
	autoCenter bool
	showStart  bool
	showEnd    bool
	showPerf   bool
	lowDrag    bool
	timeScale  float32

	framed bool

	width, height int32
}

// NewViewer creates a viewer for a window of the given size. It does not
// open the window.
func NewViewer(cfg *config.Config, width, height int32) *Viewer {
	return &Viewer{
		camera:         camera.New(float64(width), float64(height)),
		hud:            ui.NewHUD(),
		perf:           ui.NewPerfPanel(width-panelWidth-10, 60),
		particleRadius: float32(cfg.Render.ParticleRadius),
		floorZ:         cfg.Physics.FloorZ,
		autoCenter:     cfg.Render.AutoCenter,
		showStart:      cfg.Render.ShowStart,
		showEnd:        cfg.Render.ShowEnd,
		timeScale:      1,
		width:          width,
		height:         height,
	}
}

// DragScale returns the drag multiplier selected with the D key.
func (v *Viewer) DragScale() float64 {
	if v.lowDrag {
		return lowDragScale
	}
	return 1
}

// StepDt converts a frame's wall time into the simulation step to take.
// It is zero while paused.
func (v *Viewer) StepDt(frameTime float32) float64 {
	if v.paused {
		return 0
	}
	return float64(frameTime * v.timeScale)
}

// HandleInput processes keyboard and mouse input.
func (v *Viewer) HandleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}
	if rl.IsKeyPressed(rl.KeyC) {
		v.autoCenter = !v.autoCenter
	}
	if rl.IsKeyPressed(rl.KeyS) {
		v.showStart = !v.showStart
	}
	if rl.IsKeyPressed(rl.KeyE) {
		v.showEnd = !v.showEnd
	}
	if rl.IsKeyPressed(rl.KeyD) {
		v.lowDrag = !v.lowDrag
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.showPerf = !v.showPerf
	}
	if rl.IsKeyPressed(rl.KeyF) || rl.IsKeyPressed(rl.KeyHome) {
		v.framed = false
	}

	// Orbit with the left mouse button, but not while using the controls
	mouse := rl.GetMousePosition()
	overPanel := mouse.X > float32(v.width-panelWidth-10) && mouse.Y < 50
	if rl.IsMouseButtonDown(rl.MouseLeftButton) && !overPanel {
		d := rl.GetMouseDelta()
		v.camera.Rotate(float64(d.X), float64(d.Y))
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.camera.Zoom(float64(wheel))
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	if w == v.width && h == v.height {
		return
	}
	v.width, v.height = w, h
	v.camera.Resize(float64(w), float64(h))
	v.perf.SetPosition(w-panelWidth-10, 60)
}

// Draw renders one frame of scene. hud carries the text the overlay shows.
func (v *Viewer) Draw(scene Scene, hud ui.HUDData, perf telemetry.PerfStats) {
	views := scene.Snapshot()
	v.updateCamera(views)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 12, G: 14, B: 20, A: 255})

	rl.BeginMode3D(v.camera3D())
	v.drawFloor()
	if v.showStart || v.showEnd {
		v.drawGhosts(scene.Plans())
	}
	v.drawParticles(views)
	rl.EndMode3D()

	hud.Paused = v.paused
	hud.TimeScale = float64(v.timeScale)
	hud.AutoCenter = v.autoCenter
	hud.DragScale = v.DragScale()
	v.hud.Draw(hud)
	if v.showPerf {
		v.perf.Draw(perf)
	}
	v.drawControls()
	v.hud.DrawControls(v.height, "[Space] pause  [C] auto-center  [S/E] start/end  [D] low drag  [F] frame  [P] perf  drag: orbit  wheel: zoom")

	rl.EndDrawing()
}

// updateCamera frames the cloud on the first frame and keeps the target on
// its centroid while auto-centering.
func (v *Viewer) updateCamera(views []systems.ParticleView) {
	if len(views) == 0 {
		return
	}
	pts := make([]r3.Vec, len(views))
	for i := range views {
		pts[i] = views[i].Position
	}
	if !v.framed {
		v.camera.FramePoints(pts)
		v.framed = true
		return
	}
	if v.autoCenter {
		v.camera.Target = components.Centroid(pts)
	}
}

func (v *Viewer) camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   toRaylib(v.camera.Eye()),
		Target:     toRaylib(v.camera.Target),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       float32(v.camera.FovY),
		Projection: rl.CameraPerspective,
	}
}

// drawFloor draws a grid on the halting plane.
func (v *Viewer) drawFloor() {
	const half, spacing = 40, 2
	color := rl.Color{R: 60, G: 60, B: 70, A: 255}
	for i := -half; i <= half; i += spacing {
		f := float64(i)
		rl.DrawLine3D(toRaylib(r3.Vec{X: f, Y: -half, Z: v.floorZ}), toRaylib(r3.Vec{X: f, Y: half, Z: v.floorZ}), color)
		rl.DrawLine3D(toRaylib(r3.Vec{X: -half, Y: f, Z: v.floorZ}), toRaylib(r3.Vec{X: half, Y: f, Z: v.floorZ}), color)
	}
}

func (v *Viewer) drawParticles(views []systems.ParticleView) {
	for _, p := range views {
		color := ActiveColor
		if p.State == components.Halted {
			color = HaltedColor
		}
		rl.DrawSphereEx(toRaylib(p.Position), v.particleRadius, 6, 8, color)
	}
}

// drawGhosts marks each agent's plan endpoints.
func (v *Viewer) drawGhosts(plans []components.MorphPlan) {
	r := v.particleRadius * 0.6
	for _, p := range plans {
		if v.showStart {
			rl.DrawCubeWires(toRaylib(p.Start), r, r, r, StartColor)
		}
		if v.showEnd {
			rl.DrawCubeWires(toRaylib(p.End), r, r, r, EndColor)
		}
	}
}

// drawControls renders the raygui pause button and time-scale slider.
func (v *Viewer) drawControls() {
	x := float32(v.width - panelWidth - 10)
	if gui.Button(rl.Rectangle{X: x, Y: 10, Width: 70, Height: 30}, pauseLabel(v.paused)) {
		v.paused = !v.paused
	}
	v.timeScale = gui.SliderBar(
		rl.Rectangle{X: x + 80, Y: 15, Width: panelWidth - 120, Height: 20},
		"", fmt.Sprintf("%.2fx", v.timeScale),
		v.timeScale, 0.1, maxTimeScale,
	)
}

func pauseLabel(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}

// toRaylib converts a physics position to a raylib vector.
func toRaylib(p r3.Vec) rl.Vector3 {
	y := camera.YUp(p)
	return rl.Vector3{X: float32(y.X), Y: float32(y.Y), Z: float32(y.Z)}
}
