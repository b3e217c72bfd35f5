// Force law preview tool - plots pair force against distance with sliders.
//
// Usage: go run ./cmd/forcepreview [-config morph.yaml]
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/edipowladeo/enxame/config"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
)

var (
	repulsionColor = rl.NewColor(220, 90, 60, 255)
	ljColor        = rl.NewColor(60, 120, 220, 255)
)

func main() {
	configPath := flag.String("config", "", "Config file to start from (empty = defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	initial := paramsFromConfig(cfg)
	params := initial
	maxR := float32(3 * max(params.Repulsion.Radius, params.LennardJones.L0))

	rl.InitWindow(windowWidth, windowHeight, "Force Law Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	var curves Curves
	var curveErr error
	needsRebuild := true

	for !rl.WindowShouldClose() {
		if needsRebuild {
			curves, curveErr = buildCurves(params, float64(maxR))
			needsRebuild = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		drawPlot(curves, params)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		if curveErr != nil {
			rl.DrawText(curveErr.Error(), 15, statsY, 16, rl.Red)
		} else {
			lo, hi := valueRange(curves.Repulsion, curves.LennardJones)
			rl.DrawText(fmt.Sprintf("Distance: 0 .. %.2f   Force: %.3g .. %.3g", maxR, lo, hi), 15, statsY, 16, rl.DarkGray)
		}
		rl.DrawText("repulsion", 15, statsY+22, 16, repulsionColor)
		rl.DrawText("lennard-jones", 115, statsY+22, 16, ljColor)

		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Force Law Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		changed := false
		slider := func(label string, value *float64, lo, hi float32, format string) {
			rl.DrawText(label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			v := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				fmt.Sprint(lo), fmt.Sprint(hi),
				float32(*value), lo, hi,
			)
			rl.DrawText(fmt.Sprintf(format, *value), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if v != float32(*value) {
				*value = float64(v)
				changed = true
			}
			panelY += 35
		}

		slider("Repulsion radius", &params.Repulsion.Radius, 0.05, 10, "%.2f")
		slider("Repulsion strength (peak at contact)", &params.Repulsion.Strength, 0, 20, "%.2f")
		slider("Repulsion clamp", &params.Repulsion.MaxForce, 0, 50, "%.1f")

		rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.LightGray)
		panelY += 15

		slider("LJ epsilon (well depth)", &params.LennardJones.Epsilon, 0, 5, "%.3f")
		slider("LJ l0 (zero-force distance)", &params.LennardJones.L0, 0.05, 10, "%.2f")
		slider("LJ cutoff (units of sigma)", &params.LennardJones.CutoffSigma, 1, 5, "%.2f")
		slider("LJ softening", &params.LennardJones.Softening, 0.001, 1, "%.3f")

		rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.LightGray)
		panelY += 15

		rl.DrawText("Plot range", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newMaxR := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0.5", "30",
			maxR, 0.5, 30,
		)
		rl.DrawText(fmt.Sprintf("%.1f", maxR), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newMaxR != maxR {
			maxR = newMaxR
			changed = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = initial
			changed = true
		}
		panelY += 45

		if changed {
			needsRebuild = true
		}

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yamlText := params.YAML()
		for _, line := range strings.Split(strings.TrimRight(yamlText, "\n"), "\n") {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yamlText)
		}

		rl.EndDrawing()
	}
}

// drawPlot draws both curves into the preview square with a zero axis and
// markers at the repulsion radius and the LJ equilibrium distance.
func drawPlot(c Curves, p PreviewParams) {
	if len(c.R) == 0 {
		return
	}
	const x0, y0 = 10, 10
	maxR := c.R[len(c.R)-1]
	lo, hi := valueRange(c.Repulsion, c.LennardJones)
	// Clip the softened LJ spike so the rest of the curve stays readable.
	hi = min(hi, 4*max(p.Repulsion.Strength, -lo, 1))

	toScreen := func(r, v float64) rl.Vector2 {
		v = min(max(v, lo), hi)
		return rl.Vector2{
			X: float32(x0 + r/maxR*previewSize),
			Y: float32(y0 + (hi-v)/(hi-lo)*previewSize),
		}
	}

	zero := toScreen(0, 0)
	rl.DrawLineV(zero, toScreen(maxR, 0), rl.LightGray)
	for _, r := range []float64{p.Repulsion.Radius, p.LennardJones.L0} {
		if r > maxR {
			continue
		}
		rl.DrawLineV(toScreen(r, lo), toScreen(r, hi), rl.Fade(rl.Gray, 0.4))
	}

	for i := 1; i < len(c.R); i++ {
		rl.DrawLineV(toScreen(c.R[i-1], c.Repulsion[i-1]), toScreen(c.R[i], c.Repulsion[i]), repulsionColor)
		rl.DrawLineV(toScreen(c.R[i-1], c.LennardJones[i-1]), toScreen(c.R[i], c.LennardJones[i]), ljColor)
	}
}
