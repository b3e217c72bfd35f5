package systems

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/components"
)

// ForceModel accumulates the non-dissipative force on every agent.
// Apply reads positions only, so every agent sees the same start-of-tick
// state. Forces on halted agents are ignored by the integrator.
type ForceModel interface {
	Apply(agents []components.MorphAgent, forces []r3.Vec)
}

// GoalRepulsionParams configures GoalRepulsion.
type GoalRepulsionParams struct {
	Elasticity   float64 // spring constant toward the goal
	MaxGoalForce float64
	Radius       float64 // repulsion vanishes at this distance
	Strength     float64 // repulsion magnitude at zero distance
	MaxRepulsion float64 // clamp on the summed repulsion
}

// GoalRepulsion pulls each agent toward its target with a clamped spring
// and pushes it away from close neighbours with a linear falloff.
type GoalRepulsion struct {
	params    GoalRepulsionParams
	rng       *rand.Rand
	grid      *SpatialGrid
	neighbors []Neighbor
}

// NewGoalRepulsion validates p. rng picks a direction when two agents
// coincide exactly; seed it for reproducible runs.
func NewGoalRepulsion(p GoalRepulsionParams, rng *rand.Rand) (*GoalRepulsion, error) {
	if p.Radius <= 0 {
		return nil, fmt.Errorf("%w: repulsion radius must be positive, got %v", ErrInvalidConfig, p.Radius)
	}
	if p.MaxGoalForce < 0 || p.MaxRepulsion < 0 {
		return nil, fmt.Errorf("%w: force clamps must not be negative", ErrInvalidConfig)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: goal/repulsion model needs a random source", ErrInvalidConfig)
	}
	return &GoalRepulsion{params: p, rng: rng, grid: NewSpatialGrid(p.Radius)}, nil
}

// Apply implements ForceModel.
func (g *GoalRepulsion) Apply(agents []components.MorphAgent, forces []r3.Vec) {
	g.grid.Rebuild(agents)
	for i, a := range agents {
		if a.Body.IsHalted() {
			continue
		}
		f := r3.Add(g.goal(a), g.repulsion(i, agents))
		forces[i] = r3.Add(forces[i], f)
	}
}

// goal returns the clamped spring force on a.
func (g *GoalRepulsion) goal(a components.MorphAgent) r3.Vec {
	f := r3.Scale(g.params.Elasticity, a.GoalVector())
	return components.ClampNorm(f, g.params.MaxGoalForce)
}

func (g *GoalRepulsion) repulsion(i int, agents []components.MorphAgent) r3.Vec {
	g.neighbors = g.grid.QueryRadiusInto(g.neighbors[:0], agents[i].Body.Position, g.params.Radius, i)
	var sum r3.Vec
	for _, n := range g.neighbors {
		d := r3.Scale(-1, n.Delta)
		dist := math.Sqrt(n.DistSq)
		if dist >= g.params.Radius {
			continue
		}
		if dist == 0 {
			sum = r3.Add(sum, r3.Scale(g.params.Strength, g.randomDirection()))
			continue
		}
		mag := g.params.Strength * (1 - dist/g.params.Radius)
		sum = r3.Add(sum, r3.Scale(mag/dist, d))
	}
	return components.ClampNorm(sum, g.params.MaxRepulsion)
}

// randomDirection returns a uniformly distributed unit vector.
func (g *GoalRepulsion) randomDirection() r3.Vec {
	for {
		v := r3.Vec{X: g.rng.NormFloat64(), Y: g.rng.NormFloat64(), Z: g.rng.NormFloat64()}
		if u := components.Normalize(v); u != (r3.Vec{}) {
			return u
		}
	}
}

// LennardJonesParams configures LennardJones.
type LennardJonesParams struct {
	Epsilon     float64 // well depth
	L0          float64 // equilibrium distance, where the force vanishes
	CutoffSigma float64 // pairs farther than CutoffSigma*sigma are ignored
	Softening   float64 // distances below this are treated as this
}

// LennardJones is a pairwise 12-6 potential. It replaces the goal spring:
// agents settle into a packed cluster instead of onto their targets.
type LennardJones struct {
	epsilon float64
	sigma2  float64
	rc      float64
	rc2     float64
	soft2   float64

	grid      *SpatialGrid
	neighbors []Neighbor
}

// NewLennardJones derives sigma so that the force is zero at p.L0.
func NewLennardJones(p LennardJonesParams) (*LennardJones, error) {
	if p.L0 <= 0 || p.CutoffSigma <= 0 || p.Softening <= 0 {
		return nil, fmt.Errorf("%w: lennard-jones l0, cutoff and softening must be positive", ErrInvalidConfig)
	}
	sigma := p.L0 / math.Pow(2, 1.0/6.0)
	rc := p.CutoffSigma * sigma
	return &LennardJones{
		epsilon: p.Epsilon,
		sigma2:  sigma * sigma,
		rc:      rc,
		rc2:     rc * rc,
		soft2:   p.Softening * p.Softening,
		grid:    NewSpatialGrid(rc),
	}, nil
}

// Sigma returns the length scale of the potential.
func (lj *LennardJones) Sigma() float64 {
	return math.Sqrt(lj.sigma2)
}

// Apply implements ForceModel. Pairs are visited once and receive equal and
// opposite forces; halted agents still push on active ones.
func (lj *LennardJones) Apply(agents []components.MorphAgent, forces []r3.Vec) {
	lj.grid.Rebuild(agents)
	for i, a := range agents {
		lj.neighbors = lj.grid.QueryRadiusInto(lj.neighbors[:0], a.Body.Position, lj.rc, i)
		for _, n := range lj.neighbors {
			j := n.Index
			if j < i || n.DistSq > lj.rc2 {
				continue
			}
			f := r3.Scale(-lj.coefficient(n.DistSq), n.Delta)
			forces[i] = r3.Add(forces[i], f)
			forces[j] = r3.Sub(forces[j], f)
		}
	}
}

// coefficient returns F(r)/r for squared distance r2, computed without a sqrt:
// 24ε/r² · (2(σ/r)¹² − (σ/r)⁶).
func (lj *LennardJones) coefficient(r2 float64) float64 {
	r2 = math.Max(r2, lj.soft2)
	inv := 1 / r2
	sr2 := lj.sigma2 * inv
	sr6 := sr2 * sr2 * sr2
	return 24 * lj.epsilon * inv * (2*sr6*sr6 - sr6)
}
