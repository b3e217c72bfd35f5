// Package components defines ECS components for the morph simulation.
package components

import "gonum.org/v1/gonum/spatial/r3"

// ParticleState is the lifecycle state of a particle.
type ParticleState uint8

const (
	Active ParticleState = iota // Moving under forces
	Halted                      // Touched the ground; frozen for good
)

// String implements fmt.Stringer.
func (s ParticleState) String() string {
	switch s {
	case Active:
		return "active"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// Particle is the simulated body of an agent.
type Particle struct {
	Position r3.Vec
	Velocity r3.Vec
	State    ParticleState
}

// NewParticle returns an active particle at rest at pos.
func NewParticle(pos r3.Vec) Particle {
	return Particle{Position: pos}
}

// Halt clamps the particle to the ground height and freezes it.
func (p *Particle) Halt(floorZ float64) {
	p.Position.Z = floorZ
	p.Velocity = r3.Vec{}
	p.State = Halted
}

// IsHalted reports whether the particle reached its terminal state.
func (p *Particle) IsHalted() bool {
	return p.State == Halted
}
