package main

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/edipowladeo/enxame/components"
	"github.com/edipowladeo/enxame/config"
	"github.com/edipowladeo/enxame/systems"
)

// curveSamples is the number of distances evaluated per curve.
const curveSamples = 256

// PreviewParams holds the force-law parameters shown on the sliders.
type PreviewParams struct {
	Repulsion    config.RepulsionConfig    `yaml:"repulsion"`
	LennardJones config.LennardJonesConfig `yaml:"lennard_jones"`
}

// paramsFromConfig copies the slider-controlled fields out of cfg.
func paramsFromConfig(cfg *config.Config) PreviewParams {
	return PreviewParams{Repulsion: cfg.Repulsion, LennardJones: cfg.LennardJones}
}

// YAML renders p as a config fragment that can be pasted into a config file.
func (p PreviewParams) YAML() string {
	out, err := yaml.Marshal(p)
	if err != nil {
		return err.Error()
	}
	return string(out)
}

// Curves holds force magnitude against distance for both models.
// Positive values push the pair apart.
type Curves struct {
	R            []float64
	Repulsion    []float64
	LennardJones []float64
}

// buildCurves samples both force laws over (0, maxR].
func buildCurves(p PreviewParams, maxR float64) (Curves, error) {
	rep, err := systems.NewGoalRepulsion(systems.GoalRepulsionParams{
		Radius:       p.Repulsion.Radius,
		Strength:     p.Repulsion.Strength,
		MaxRepulsion: p.Repulsion.MaxForce,
	}, rand.New(rand.NewSource(1)))
	if err != nil {
		return Curves{}, err
	}
	lj, err := systems.NewLennardJones(systems.LennardJonesParams{
		Epsilon:     p.LennardJones.Epsilon,
		L0:          p.LennardJones.L0,
		CutoffSigma: p.LennardJones.CutoffSigma,
		Softening:   p.LennardJones.Softening,
	})
	if err != nil {
		return Curves{}, err
	}

	c := Curves{
		R:            make([]float64, curveSamples),
		Repulsion:    make([]float64, curveSamples),
		LennardJones: make([]float64, curveSamples),
	}
	for i := range curveSamples {
		r := maxR * float64(i+1) / curveSamples
		c.R[i] = r
		c.Repulsion[i] = pairForce(rep, r)
		c.LennardJones[i] = pairForce(lj, r)
	}
	return c, nil
}

// pairForce returns the X force m exerts on an agent at (r, 0, 0) whose
// partner sits at the origin. Both agents sit on their targets, so only the
// pair interaction contributes.
func pairForce(m systems.ForceModel, r float64) float64 {
	bodies := [2]components.Particle{
		components.NewParticle(r3.Vec{}),
		components.NewParticle(r3.Vec{X: r}),
	}
	plans := [2]components.MorphPlan{{}, {Start: bodies[1].Position, End: bodies[1].Position}}
	agents := []components.MorphAgent{
		{Body: &bodies[0], Plan: &plans[0]},
		{Body: &bodies[1], Plan: &plans[1]},
	}
	forces := make([]r3.Vec, len(agents))
	m.Apply(agents, forces)
	return forces[1].X
}

// valueRange returns the min and max over all samples, always spanning zero.
func valueRange(series ...[]float64) (lo, hi float64) {
	for _, s := range series {
		for _, v := range s {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}
