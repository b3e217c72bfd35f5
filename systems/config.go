package systems

import (
	"fmt"
	"math/rand"

	"github.com/edipowladeo/enxame/config"
)

// ParamsFromConfig extracts integrator parameters from cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	p := Params{
		MaxStep:    cfg.Physics.MaxStep,
		Drag:       cfg.Physics.Drag,
		FloorZ:     cfg.Physics.FloorZ,
		Gravity:    cfg.Physics.Gravity.R3(),
		UseGravity: cfg.Physics.UseGravity,
	}
	if p.MaxStep <= 0 {
		p.MaxStep = DefaultMaxStep
	}
	return p
}

// NewForceModel builds the force model selected by cfg.Physics.ForceModel.
func NewForceModel(cfg *config.Config, rng *rand.Rand) (ForceModel, error) {
	switch cfg.Physics.ForceModel {
	case config.ForceGoalRepulsion:
		m, err := NewGoalRepulsion(GoalRepulsionParams{
			Elasticity:   cfg.Goal.Elasticity,
			MaxGoalForce: cfg.Goal.MaxForce,
			Radius:       cfg.Repulsion.Radius,
			Strength:     cfg.Repulsion.Strength,
			MaxRepulsion: cfg.Repulsion.MaxForce,
		}, rng)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.ForceLennardJones:
		m, err := NewLennardJones(LennardJonesParams{
			Epsilon:     cfg.LennardJones.Epsilon,
			L0:          cfg.LennardJones.L0,
			CutoffSigma: cfg.LennardJones.CutoffSigma,
			Softening:   cfg.LennardJones.Softening,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unknown force model %q", ErrInvalidConfig, cfg.Physics.ForceModel)
}
