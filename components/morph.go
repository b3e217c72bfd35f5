package components

import "gonum.org/v1/gonum/spatial/r3"

// MorphPlan holds where an agent started and where it is headed.
type MorphPlan struct {
	Start r3.Vec // reference only; never read by the integrator
	End   r3.Vec // current target, may be swapped while running
}

// MorphAgent pairs a body with its plan. Both pointers refer to component
// storage owned by the simulation world and are only valid until the next
// structural change of that world.
type MorphAgent struct {
	Body *Particle
	Plan *MorphPlan
}

// GoalVector returns the displacement from the body to its target.
func (a MorphAgent) GoalVector() r3.Vec {
	return r3.Sub(a.Plan.End, a.Body.Position)
}
