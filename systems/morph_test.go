package systems

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/components"
	"github.com/edipowladeo/enxame/config"
)

// nopModel applies no force, leaving drag and gravity alone.
type nopModel struct{}

func (nopModel) Apply([]components.MorphAgent, []r3.Vec) {}

func defaultParams() Params {
	return Params{MaxStep: DefaultMaxStep, Drag: 3.5}
}

func newGoalRepulsion(t *testing.T, p GoalRepulsionParams, seed int64) *GoalRepulsion {
	t.Helper()
	m, err := NewGoalRepulsion(p, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func defaultGoalRepulsion(t *testing.T) *GoalRepulsion {
	return newGoalRepulsion(t, GoalRepulsionParams{
		Elasticity: 5, MaxGoalForce: 5,
		Radius: 1, Strength: 2, MaxRepulsion: 4,
	}, 42)
}

// agentsAt builds free-standing agents whose targets equal their positions.
func agentsAt(pos ...r3.Vec) []components.MorphAgent {
	out := make([]components.MorphAgent, len(pos))
	for i, p := range pos {
		body := components.NewParticle(p)
		plan := components.MorphPlan{Start: p, End: p}
		out[i] = components.MorphAgent{Body: &body, Plan: &plan}
	}
	return out
}

func newSystem(t *testing.T, bodies []components.Particle, ends []r3.Vec, params Params, model ForceModel) *MorphSystem {
	t.Helper()
	plans := make([]components.MorphPlan, len(bodies))
	for i := range bodies {
		plans[i] = components.MorphPlan{Start: bodies[i].Position, End: ends[i]}
	}
	s, err := NewMorphSystem(bodies, plans, params, model)
	if err != nil {
		t.Fatalf("NewMorphSystem: %v", err)
	}
	return s
}

func approxVec(a, b r3.Vec, tol float64) bool {
	return r3.Norm(r3.Sub(a, b)) <= tol
}

// ---------- integrator ----------

func TestUpdate_ZeroDtIsNoOp(t *testing.T) {
	bodies := []components.Particle{
		{Position: r3.Vec{X: 1, Y: 2, Z: 10}, Velocity: r3.Vec{X: 3, Z: -1}},
		{Position: r3.Vec{X: 1.2, Y: 2, Z: 10}},
		{Position: r3.Vec{Z: 0}, State: components.Halted},
	}
	ends := []r3.Vec{{Z: 20}, {X: -5, Z: 20}, {Z: 20}}
	s := newSystem(t, bodies, ends, defaultParams(), defaultGoalRepulsion(t))

	before := s.Snapshot()
	for _, dt := range []float64{0, -0.5, math.NaN()} {
		if n := s.Update(dt); n != 0 {
			t.Errorf("Update(%v) halted %d agents", dt, n)
		}
	}
	after := s.Snapshot()

	for i := range before {
		if before[i] != after[i] {
			t.Errorf("agent %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
	if s.Tick() != 0 || s.Time() != 0 {
		t.Errorf("tick=%d time=%v, want 0", s.Tick(), s.Time())
	}
}

func TestUpdate_GroundCollisionHaltsAtFloor(t *testing.T) {
	floor := 2.0
	bodies := []components.Particle{
		{Position: r3.Vec{X: 1, Y: 1, Z: floor - 1e-6}, Velocity: r3.Vec{X: 0.5, Z: -3}},
	}
	params := defaultParams()
	params.FloorZ = floor
	s := newSystem(t, bodies, []r3.Vec{{Z: 30}}, params, defaultGoalRepulsion(t))

	if n := s.Update(1.0 / 60.0); n != 1 {
		t.Fatalf("Update halted %d agents, want 1", n)
	}

	v := s.Snapshot()[0]
	if v.Position.Z != floor {
		t.Errorf("z = %v, want exactly %v", v.Position.Z, floor)
	}
	if v.State != components.Halted {
		t.Errorf("state = %v, want halted", v.State)
	}
	if vel := s.agents[0].Body.Velocity; vel != (r3.Vec{}) {
		t.Errorf("velocity = %v, want exactly zero", vel)
	}
	if st := s.Stats(); st.Halted != 1 || st.Active != 0 {
		t.Errorf("stats = %+v, want 1 halted", st)
	}
}

func TestUpdate_HaltedAgentsNeverMove(t *testing.T) {
	bodies := []components.Particle{
		{Position: r3.Vec{X: 0.1, Z: 5}, Velocity: r3.Vec{Z: -300}},
		{Position: r3.Vec{X: 0, Z: 1}},
	}
	params := defaultParams()
	params.UseGravity = true
	params.Gravity = r3.Vec{Z: -1.7}
	s := newSystem(t, bodies, []r3.Vec{{Z: 5}, {Z: 5}}, params, defaultGoalRepulsion(t))

	s.Update(DefaultMaxStep)
	halted := s.Snapshot()[0]
	if halted.State != components.Halted {
		t.Fatalf("agent 0 should have hit the floor, got %+v", halted)
	}

	for i := 0; i < 100; i++ {
		s.Update(1.0 / 60.0)
		if got := s.Snapshot()[0]; got != halted {
			t.Fatalf("tick %d: halted agent changed to %+v", i, got)
		}
	}
}

func TestUpdate_ClampsStep(t *testing.T) {
	bodies := []components.Particle{{Position: r3.Vec{Z: 10}, Velocity: r3.Vec{X: 1}}}
	params := Params{MaxStep: DefaultMaxStep}
	s := newSystem(t, bodies, []r3.Vec{{Z: 10}}, params, nopModel{})

	s.Update(1.0)

	got := s.Snapshot()[0].Position
	want := r3.Vec{X: DefaultMaxStep, Z: 10}
	if !approxVec(got, want, 1e-12) {
		t.Errorf("position = %v, want %v", got, want)
	}
	if math.Abs(s.Time()-DefaultMaxStep) > 1e-15 {
		t.Errorf("time = %v, want %v", s.Time(), DefaultMaxStep)
	}
}

func TestUpdate_Drag(t *testing.T) {
	bodies := []components.Particle{{Position: r3.Vec{Z: 10}, Velocity: r3.Vec{X: 2}}}
	s := newSystem(t, bodies, []r3.Vec{{Z: 10}}, Params{MaxStep: 1, Drag: 3}, nopModel{})

	s.Update(0.1)

	// v' = v - drag*v*dt = 2 - 0.6
	if got := s.Stats().Speeds[0]; math.Abs(got-1.4) > 1e-12 {
		t.Errorf("speed = %v, want 1.4", got)
	}
}

func TestUpdate_DragScale(t *testing.T) {
	bodies := []components.Particle{{Position: r3.Vec{Z: 10}, Velocity: r3.Vec{X: 2}}}
	s := newSystem(t, bodies, []r3.Vec{{Z: 10}}, Params{MaxStep: 1, Drag: 3}, nopModel{})

	s.SetDragScale(0.01)
	s.SetDragScale(-1)
	s.SetDragScale(math.NaN())
	if s.DragScale() != 0.01 {
		t.Fatalf("DragScale() = %v, want 0.01", s.DragScale())
	}
	s.Update(0.1)

	// v' = 2 - 0.03*2*0.1
	if got := s.Stats().Speeds[0]; math.Abs(got-1.994) > 1e-12 {
		t.Errorf("speed = %v, want 1.994", got)
	}
}

func TestUpdate_Converges(t *testing.T) {
	bodies := []components.Particle{
		components.NewParticle(r3.Vec{X: -3, Z: 10}),
		components.NewParticle(r3.Vec{X: 3, Z: 10}),
	}
	ends := []r3.Vec{{X: -1, Y: 2, Z: 12}, {X: 1, Y: -2, Z: 12}}
	s := newSystem(t, bodies, ends, defaultParams(), defaultGoalRepulsion(t))

	if s.Settled(0.05) {
		t.Fatal("system settled before moving")
	}
	for i := 0; i < 2000; i++ {
		s.Update(1.0 / 60.0)
	}
	if !s.Settled(0.05) {
		t.Errorf("system did not settle: %+v", s.Stats())
	}
	for i, v := range s.Snapshot() {
		if !approxVec(v.Position, ends[i], 0.05) {
			t.Errorf("agent %d at %v, want near %v", i, v.Position, ends[i])
		}
	}
}

func TestRetarget(t *testing.T) {
	bodies := []components.Particle{
		components.NewParticle(r3.Vec{Z: 10}),
		{Position: r3.Vec{X: 4}, State: components.Halted},
	}
	s := newSystem(t, bodies, []r3.Vec{{Z: 10}, {Z: 10}}, defaultParams(), defaultGoalRepulsion(t))

	ends := []r3.Vec{{X: 1, Z: 11}, {X: 2, Z: 11}}
	if err := s.Retarget(ends); err != nil {
		t.Fatal(err)
	}
	for i := range ends {
		plan := s.Plan(i)
		if plan.End != ends[i] {
			t.Errorf("plan %d end = %v, want %v", i, plan.End, ends[i])
		}
		if plan.Start != bodies[i].Position {
			t.Errorf("plan %d start = %v, want %v", i, plan.Start, bodies[i].Position)
		}
	}
	if s.Snapshot()[1].State != components.Halted {
		t.Error("retarget must not revive a halted agent")
	}

	if err := s.Retarget(ends[:1]); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("short target list: err = %v, want ErrInvalidConfig", err)
	}
}

func TestNewMorphSystem_Invalid(t *testing.T) {
	one := []components.Particle{components.NewParticle(r3.Vec{Z: 1})}
	plan := []components.MorphPlan{{}}

	tests := []struct {
		name   string
		bodies []components.Particle
		plans  []components.MorphPlan
		params Params
		model  ForceModel
	}{
		{"length mismatch", one, nil, defaultParams(), nopModel{}},
		{"zero max step", one, plan, Params{}, nopModel{}},
		{"negative drag", one, plan, Params{MaxStep: 1, Drag: -1}, nopModel{}},
		{"nil model", one, plan, defaultParams(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMorphSystem(tt.bodies, tt.plans, tt.params, tt.model)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}

	s, err := NewMorphSystem(nil, nil, defaultParams(), nopModel{})
	if err != nil {
		t.Fatalf("empty system: %v", err)
	}
	if s.Update(0.01) != 0 || !s.Settled(0) || s.Len() != 0 {
		t.Error("empty system should tick trivially and be settled")
	}
}

func TestNewMorphSystem_CopiesBodies(t *testing.T) {
	bodies := []components.Particle{components.NewParticle(r3.Vec{Z: 10})}
	s := newSystem(t, bodies, []r3.Vec{{Z: 20}}, defaultParams(), defaultGoalRepulsion(t))

	bodies[0].Position.Z = -100
	if got := s.Snapshot()[0].Position.Z; got != 10 {
		t.Errorf("simulated z = %v, want 10 (caller's slice must not alias)", got)
	}
}

// ---------- forces ----------

func TestGoalForce_Clamped(t *testing.T) {
	m := defaultGoalRepulsion(t)

	agents := agentsAt(r3.Vec{Z: 10}, r3.Vec{X: 50, Z: 10})
	agents[0].Plan.End = r3.Vec{X: 0.1, Z: 10} // 5 * 0.1 = 0.5
	agents[1].Plan.End = r3.Vec{X: 50, Z: 100} // 5 * 90 clamped to 5

	forces := make([]r3.Vec, 2)
	m.Apply(agents, forces)

	if !approxVec(forces[0], r3.Vec{X: 0.5}, 1e-12) {
		t.Errorf("small goal force = %v, want (0.5,0,0)", forces[0])
	}
	if !approxVec(forces[1], r3.Vec{Z: 5}, 1e-12) {
		t.Errorf("clamped goal force = %v, want (0,0,5)", forces[1])
	}
}

func TestRepulsion_LinearFalloff(t *testing.T) {
	m := newGoalRepulsion(t, GoalRepulsionParams{Radius: 1, Strength: 2, MaxRepulsion: 10}, 1)

	agents := agentsAt(r3.Vec{X: 0}, r3.Vec{X: 0.5}, r3.Vec{X: 5})
	forces := make([]r3.Vec, 3)
	m.Apply(agents, forces)

	// d = 0.5 of radius 1: magnitude 2 * (1 - 0.5) = 1, pushing apart
	if !approxVec(forces[0], r3.Vec{X: -1}, 1e-12) {
		t.Errorf("force on 0 = %v, want (-1,0,0)", forces[0])
	}
	if !approxVec(forces[1], r3.Vec{X: 1}, 1e-12) {
		t.Errorf("force on 1 = %v, want (1,0,0)", forces[1])
	}
	if forces[2] != (r3.Vec{}) {
		t.Errorf("agent outside radius got %v", forces[2])
	}
}

func TestRepulsion_HaltedNeighboursStillPush(t *testing.T) {
	m := newGoalRepulsion(t, GoalRepulsionParams{Radius: 1, Strength: 2, MaxRepulsion: 10}, 1)

	agents := agentsAt(r3.Vec{}, r3.Vec{X: 0.5})
	agents[0].Body.Halt(0)
	forces := make([]r3.Vec, 2)
	m.Apply(agents, forces)

	if forces[0] != (r3.Vec{}) {
		t.Errorf("halted agent received %v", forces[0])
	}
	if !approxVec(forces[1], r3.Vec{X: 1}, 1e-12) {
		t.Errorf("force on active agent = %v, want (1,0,0)", forces[1])
	}
}

func TestRepulsion_CoincidentIsSeeded(t *testing.T) {
	p := GoalRepulsionParams{Radius: 1, Strength: 2, MaxRepulsion: 10}
	run := func(seed int64) []r3.Vec {
		m := newGoalRepulsion(t, p, seed)
		forces := make([]r3.Vec, 2)
		m.Apply(agentsAt(r3.Vec{Z: 3}, r3.Vec{Z: 3}), forces)
		return forces
	}

	a, b := run(7), run(7)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("agent %d: same seed gave %v and %v", i, a[i], b[i])
		}
		if n := r3.Norm(a[i]); math.Abs(n-2) > 1e-9 {
			t.Errorf("agent %d: coincident push magnitude %v, want peak 2", i, n)
		}
	}
}

func TestRepulsion_Clamped(t *testing.T) {
	m := newGoalRepulsion(t, GoalRepulsionParams{Radius: 1, Strength: 2, MaxRepulsion: 3}, 1)

	agents := agentsAt(r3.Vec{}, r3.Vec{X: 0.1}, r3.Vec{X: 0.2}, r3.Vec{X: 0.3})
	forces := make([]r3.Vec, len(agents))
	m.Apply(agents, forces)

	// agent 0 is pushed by all three: 1.8 + 1.6 + 1.4 = 4.8, clamped to 3
	if !approxVec(forces[0], r3.Vec{X: -3}, 1e-12) {
		t.Errorf("force on 0 = %v, want (-3,0,0)", forces[0])
	}
}

func TestNewGoalRepulsion_Invalid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := NewGoalRepulsion(GoalRepulsionParams{Radius: 0}, rng); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero radius: err = %v", err)
	}
	if _, err := NewGoalRepulsion(GoalRepulsionParams{Radius: 1, MaxGoalForce: -1}, rng); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative clamp: err = %v", err)
	}
	if _, err := NewGoalRepulsion(GoalRepulsionParams{Radius: 1}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil rng: err = %v", err)
	}
}

func TestLennardJones(t *testing.T) {
	lj, err := NewLennardJones(LennardJonesParams{Epsilon: 1, L0: 1, CutoffSigma: 2.5, Softening: 1e-9})
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Pow(2, -1.0/6.0); math.Abs(lj.Sigma()-want) > 1e-12 {
		t.Errorf("sigma = %v, want %v", lj.Sigma(), want)
	}

	t.Run("zero at L0", func(t *testing.T) {
		forces := make([]r3.Vec, 2)
		lj.Apply(agentsAt(r3.Vec{}, r3.Vec{X: 1}), forces)
		if r3.Norm(forces[0]) > 1e-9 {
			t.Errorf("force at equilibrium = %v", forces[0])
		}
	})

	t.Run("repulsive inside, attractive outside", func(t *testing.T) {
		forces := make([]r3.Vec, 2)
		lj.Apply(agentsAt(r3.Vec{}, r3.Vec{X: 0.9}), forces)
		if forces[0].X >= 0 {
			t.Errorf("close pair: force on 0 = %v, want pointing away (-x)", forces[0])
		}

		forces = make([]r3.Vec, 2)
		lj.Apply(agentsAt(r3.Vec{}, r3.Vec{X: 1.5}), forces)
		if forces[0].X <= 0 {
			t.Errorf("far pair: force on 0 = %v, want pointing toward (+x)", forces[0])
		}
	})

	t.Run("cutoff", func(t *testing.T) {
		forces := make([]r3.Vec, 2)
		lj.Apply(agentsAt(r3.Vec{}, r3.Vec{X: 3}), forces)
		if forces[0] != (r3.Vec{}) || forces[1] != (r3.Vec{}) {
			t.Errorf("forces beyond cutoff = %v", forces)
		}
	})

	t.Run("equal and opposite", func(t *testing.T) {
		agents := agentsAt(r3.Vec{}, r3.Vec{X: 0.8, Y: 0.3}, r3.Vec{Y: 1.1, Z: 0.4})
		forces := make([]r3.Vec, 3)
		lj.Apply(agents, forces)
		var sum r3.Vec
		for _, f := range forces {
			sum = r3.Add(sum, f)
		}
		if r3.Norm(sum) > 1e-9 {
			t.Errorf("net force = %v, want 0", sum)
		}
	})
}

func TestNewForceModel(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))

	m, err := NewForceModel(cfg, rng)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(*GoalRepulsion); !ok {
		t.Errorf("default model = %T, want *GoalRepulsion", m)
	}

	cfg.Physics.ForceModel = config.ForceLennardJones
	if m, err = NewForceModel(cfg, rng); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.(*LennardJones); !ok {
		t.Errorf("model = %T, want *LennardJones", m)
	}

	cfg.Physics.ForceModel = "magic"
	if _, err := NewForceModel(cfg, rng); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("unknown model: err = %v", err)
	}

	p := ParamsFromConfig(cfg)
	if p.Drag != cfg.Physics.Drag || p.MaxStep != cfg.Physics.MaxStep {
		t.Errorf("params = %+v", p)
	}
}
