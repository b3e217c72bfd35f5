// Package systems contains the morph integrator and its force models.
package systems

import (
	"errors"
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/components"
)

// ErrInvalidConfig is returned for parameters the integrator cannot run with.
var ErrInvalidConfig = errors.New("systems: invalid configuration")

// DefaultMaxStep bounds a single integration step.
const DefaultMaxStep = 1.0 / 30.0

// Params holds the global integrator parameters.
type Params struct {
	MaxStep    float64 // dt is clamped to [0, MaxStep]
	Drag       float64 // linear drag coefficient (1/s)
	FloorZ     float64 // ground height; reaching it halts a particle
	Gravity    r3.Vec
	UseGravity bool
}

// ParticleView is the read-only state handed to renderers.
type ParticleView struct {
	Position r3.Vec
	State    components.ParticleState
}

// MorphStats summarizes the agents at one instant.
type MorphStats struct {
	Active int
	Halted int

	// Per active agent, in agent order.
	GoalDistances []float64
	Speeds        []float64
}

// MorphSystem advances morph agents stored in an ECS world.
// It is single-threaded: callers drive it with Update once per frame.
type MorphSystem struct {
	world  *ecs.World
	mapper *ecs.Map2[components.Particle, components.MorphPlan]
	filter *ecs.Filter2[components.Particle, components.MorphPlan]

	entities []ecs.Entity
	agents   []components.MorphAgent
	forces   []r3.Vec

	params    Params
	model     ForceModel
	dragScale float64

	tick int64
	time float64
}

// NewMorphSystem creates one agent per (body, plan) pair. bodies are copied
// into the system's world; the caller keeps no reference to simulated state.
func NewMorphSystem(bodies []components.Particle, plans []components.MorphPlan, params Params, model ForceModel) (*MorphSystem, error) {
	if len(bodies) != len(plans) {
		return nil, fmt.Errorf("%w: %d bodies but %d plans", ErrInvalidConfig, len(bodies), len(plans))
	}
	if params.MaxStep <= 0 {
		return nil, fmt.Errorf("%w: max step must be positive, got %v", ErrInvalidConfig, params.MaxStep)
	}
	if params.Drag < 0 {
		return nil, fmt.Errorf("%w: drag must not be negative, got %v", ErrInvalidConfig, params.Drag)
	}
	if model == nil {
		return nil, fmt.Errorf("%w: no force model", ErrInvalidConfig)
	}

	world := ecs.NewWorld()
	s := &MorphSystem{
		world:     world,
		mapper:    ecs.NewMap2[components.Particle, components.MorphPlan](world),
		filter:    ecs.NewFilter2[components.Particle, components.MorphPlan](world),
		entities:  make([]ecs.Entity, len(bodies)),
		agents:    make([]components.MorphAgent, len(bodies)),
		forces:    make([]r3.Vec, len(bodies)),
		params:    params,
		model:     model,
		dragScale: 1,
	}

	for i := range bodies {
		body, plan := bodies[i], plans[i]
		s.entities[i] = s.mapper.NewEntity(&body, &plan)
	}
	// Component pointers are only stable once no more entities are added.
	for i, e := range s.entities {
		body, plan := s.mapper.Get(e)
		s.agents[i] = components.MorphAgent{Body: body, Plan: plan}
	}
	return s, nil
}

// Len returns the number of agents.
func (s *MorphSystem) Len() int {
	return len(s.agents)
}

// Tick returns the number of steps taken with a positive dt.
func (s *MorphSystem) Tick() int64 {
	return s.tick
}

// Time returns the simulated time in seconds.
func (s *MorphSystem) Time() float64 {
	return s.time
}

// Params returns the integrator parameters.
func (s *MorphSystem) Params() Params {
	return s.params
}

// SetDragScale multiplies the configured drag by k from the next step on.
// A near-zero scale lets a Lennard-Jones cluster keep its kinetic energy.
// Negative and NaN values are ignored.
func (s *MorphSystem) SetDragScale(k float64) {
	if k >= 0 {
		s.dragScale = k
	}
}

// DragScale returns the current drag multiplier.
func (s *MorphSystem) DragScale() float64 {
	return s.dragScale
}

// Update advances every active agent by dt seconds and returns how many
// agents halted during this step. dt is clamped to [0, MaxStep]; a zero
// step leaves all state untouched.
func (s *MorphSystem) Update(dt float64) int {
	if !(dt > 0) {
		return 0
	}
	dt = math.Min(dt, s.params.MaxStep)

	clear(s.forces)
	s.model.Apply(s.agents, s.forces)

	halted := 0
	for i, a := range s.agents {
		p := a.Body
		if p.IsHalted() {
			continue
		}

		f := r3.Sub(s.forces[i], r3.Scale(s.params.Drag*s.dragScale, p.Velocity))
		if s.params.UseGravity {
			f = r3.Add(f, s.params.Gravity)
		}

		// semi-implicit Euler, unit mass
		p.Velocity = r3.Add(p.Velocity, r3.Scale(dt, f))
		p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))

		if p.Position.Z <= s.params.FloorZ {
			p.Halt(s.params.FloorZ)
			halted++
		}
	}

	s.tick++
	s.time += dt
	return halted
}

// Snapshot copies the position and state of every agent, in agent order.
func (s *MorphSystem) Snapshot() []ParticleView {
	out := make([]ParticleView, len(s.agents))
	for i, a := range s.agents {
		out[i] = ParticleView{Position: a.Body.Position, State: a.Body.State}
	}
	return out
}

// Positions returns the current body positions, in agent order.
func (s *MorphSystem) Positions() []r3.Vec {
	out := make([]r3.Vec, len(s.agents))
	for i, a := range s.agents {
		out[i] = a.Body.Position
	}
	return out
}

// Plan returns a copy of agent i's plan.
func (s *MorphSystem) Plan(i int) components.MorphPlan {
	return *s.agents[i].Plan
}

// Retarget replaces every plan's end point; ends[i] becomes agent i's new
// target and its current position becomes the plan's start. Halted agents
// are retargeted too but stay halted.
func (s *MorphSystem) Retarget(ends []r3.Vec) error {
	if len(ends) != len(s.agents) {
		return fmt.Errorf("%w: %d targets for %d agents", ErrInvalidConfig, len(ends), len(s.agents))
	}
	for i, a := range s.agents {
		a.Plan.Start = a.Body.Position
		a.Plan.End = ends[i]
	}
	return nil
}

// Stats summarizes the current state of all agents.
func (s *MorphSystem) Stats() MorphStats {
	var st MorphStats
	for _, a := range s.agents {
		if a.Body.IsHalted() {
			st.Halted++
			continue
		}
		st.Active++
		st.GoalDistances = append(st.GoalDistances, r3.Norm(a.GoalVector()))
		st.Speeds = append(st.Speeds, r3.Norm(a.Body.Velocity))
	}
	return st
}

// Settled reports whether every active agent is within tol of its target
// and moving slower than tol. A system with no active agents is settled.
func (s *MorphSystem) Settled(tol float64) bool {
	query := s.filter.Query()
	for query.Next() {
		body, plan := query.Get()
		if body.IsHalted() {
			continue
		}
		if r3.Norm(r3.Sub(plan.End, body.Position)) > tol || r3.Norm(body.Velocity) > tol {
			query.Close()
			return false
		}
	}
	return true
}
