// Package config provides configuration loading for the morph simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Figure kinds.
const (
	KindGrid    = "grid"
	KindCircle  = "circle"
	KindLattice = "lattice"
	KindMesh    = "mesh"
)

// Force models.
const (
	ForceGoalRepulsion = "goal_repulsion"
	ForceLennardJones  = "lennard_jones"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen       ScreenConfig       `yaml:"screen" toml:"screen"`
	Render       RenderConfig       `yaml:"render" toml:"render"`
	Physics      PhysicsConfig      `yaml:"physics" toml:"physics"`
	Goal         GoalConfig         `yaml:"goal" toml:"goal"`
	Repulsion    RepulsionConfig    `yaml:"repulsion" toml:"repulsion"`
	LennardJones LennardJonesConfig `yaml:"lennard_jones" toml:"lennard_jones"`
	Morph        MorphConfig        `yaml:"morph" toml:"morph"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" toml:"telemetry"`
}

// Vec3 is a point or direction written as a three element list.
type Vec3 [3]float64

// R3 converts v to a gonum vector.
func (v Vec3) R3() r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int `yaml:"width" toml:"width"`
	Height    int `yaml:"height" toml:"height"`
	TargetFPS int `yaml:"target_fps" toml:"target_fps"`
}

// RenderConfig holds viewer defaults. None of it affects the simulation.
type RenderConfig struct {
	ParticleRadius float64 `yaml:"particle_radius" toml:"particle_radius"`
	AutoCenter     bool    `yaml:"auto_center" toml:"auto_center"`
	ShowStart      bool    `yaml:"show_start" toml:"show_start"`
	ShowEnd        bool    `yaml:"show_end" toml:"show_end"`
}

// PhysicsConfig holds integrator parameters.
type PhysicsConfig struct {
	DT         float64 `yaml:"dt" toml:"dt"`             // fixed step used by headless runs
	MaxStep    float64 `yaml:"max_step" toml:"max_step"` // upper clamp for any step
	Drag       float64 `yaml:"drag" toml:"drag"`         // linear drag (1/s)
	FloorZ     float64 `yaml:"floor_z" toml:"floor_z"`
	Gravity    Vec3    `yaml:"gravity" toml:"gravity"`
	UseGravity bool    `yaml:"use_gravity" toml:"use_gravity"`
	ForceModel string  `yaml:"force_model" toml:"force_model"`
}

// GoalConfig holds the spring pulling each agent toward its target.
type GoalConfig struct {
	Elasticity float64 `yaml:"elasticity" toml:"elasticity"`
	MaxForce   float64 `yaml:"max_force" toml:"max_force"`
}

// RepulsionConfig holds the short-range separation force between agents.
type RepulsionConfig struct {
	Radius   float64 `yaml:"radius" toml:"radius"`       // force vanishes at this distance
	Strength float64 `yaml:"strength" toml:"strength"`   // peak magnitude at zero distance
	MaxForce float64 `yaml:"max_force" toml:"max_force"` // clamp on the summed force
}

// LennardJonesConfig holds the alternate pairwise potential.
type LennardJonesConfig struct {
	Epsilon     float64 `yaml:"epsilon" toml:"epsilon"`           // well depth
	L0          float64 `yaml:"l0" toml:"l0"`                     // distance where the force is zero
	CutoffSigma float64 `yaml:"cutoff_sigma" toml:"cutoff_sigma"` // cutoff in units of sigma
	Softening   float64 `yaml:"softening" toml:"softening"`       // minimum distance used in the force
}

// MorphConfig describes the two figures and the particle count.
type MorphConfig struct {
	Count           int          `yaml:"count" toml:"count"`
	Seed            int64        `yaml:"seed" toml:"seed"` // 0 = time-based
	SettleTolerance float64      `yaml:"settle_tolerance" toml:"settle_tolerance"`
	Start           FigureConfig `yaml:"start" toml:"start"`
	End             FigureConfig `yaml:"end" toml:"end"`
}

// AspectConfig holds target lattice proportions.
type AspectConfig struct {
	RowsOverCols    float64 `yaml:"rows_over_cols" toml:"rows_over_cols"`       // ny / nx
	PlaneOverLayers float64 `yaml:"plane_over_layers" toml:"plane_over_layers"` // sqrt(nx*ny) / nz
}

// FigureConfig selects a figure variant. Only the fields relevant to Kind are read.
type FigureConfig struct {
	Kind  string `yaml:"kind" toml:"kind"`
	Count int    `yaml:"count,omitempty" toml:"count"` // 0 = morph.count

	Center Vec3 `yaml:"center" toml:"center"`

	// grid
	Separation       float64 `yaml:"separation,omitempty" toml:"separation"`
	PreferredColumns int     `yaml:"preferred_columns,omitempty" toml:"preferred_columns"`

	// circle
	Radius float64 `yaml:"radius,omitempty" toml:"radius"`

	// lattice
	SeparationXYZ Vec3         `yaml:"separation_xyz,omitempty" toml:"separation_xyz"`
	Aspect        AspectConfig `yaml:"aspect,omitempty" toml:"aspect"`
	Dims          [3]int       `yaml:"dims,omitempty" toml:"dims"` // all zero = solve from aspect
	Shear         float64      `yaml:"shear,omitempty" toml:"shear"`

	// mesh
	Path    string  `yaml:"path,omitempty" toml:"path"`
	Scale   float64 `yaml:"scale,omitempty" toml:"scale"`
	Offset  Vec3    `yaml:"offset,omitempty" toml:"offset"`
	Limit   int     `yaml:"limit,omitempty" toml:"limit"` // 0 = figure count
	Shuffle bool    `yaml:"shuffle,omitempty" toml:"shuffle"`
}

// TelemetryConfig holds stats windowing parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window" toml:"stats_window"` // seconds of sim time
	PerfWindow  int     `yaml:"perf_window" toml:"perf_window"`   // ticks
}

// Load loads configuration from a YAML or TOML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			// Decoding over the defaults only overwrites keys present in the file
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills values that have a natural default but no sensible YAML zero.
func (c *Config) applyDefaults() {
	for _, f := range []*FigureConfig{&c.Morph.Start, &c.Morph.End} {
		if f.Kind == KindMesh && f.Scale == 0 {
			f.Scale = 1
		}
		if f.Kind == KindLattice {
			if f.Aspect.RowsOverCols == 0 {
				f.Aspect.RowsOverCols = 1
			}
			if f.Aspect.PlaneOverLayers == 0 {
				f.Aspect.PlaneOverLayers = 1
			}
		}
	}
}

// Validate checks parameters that would make setup or ticking meaningless.
func (c *Config) Validate() error {
	p := c.Physics
	if p.DT <= 0 {
		return fmt.Errorf("%w: physics.dt must be positive, got %v", ErrInvalid, p.DT)
	}
	if p.MaxStep <= 0 {
		return fmt.Errorf("%w: physics.max_step must be positive, got %v", ErrInvalid, p.MaxStep)
	}
	if p.Drag < 0 {
		return fmt.Errorf("%w: physics.drag must not be negative, got %v", ErrInvalid, p.Drag)
	}

	switch p.ForceModel {
	case ForceGoalRepulsion:
		if c.Repulsion.Radius <= 0 {
			return fmt.Errorf("%w: repulsion.radius must be positive, got %v", ErrInvalid, c.Repulsion.Radius)
		}
		if c.Goal.MaxForce < 0 || c.Repulsion.MaxForce < 0 {
			return fmt.Errorf("%w: force clamps must not be negative", ErrInvalid)
		}
	case ForceLennardJones:
		lj := c.LennardJones
		if lj.L0 <= 0 || lj.CutoffSigma <= 0 || lj.Softening <= 0 {
			return fmt.Errorf("%w: lennard_jones.l0, cutoff_sigma and softening must be positive", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown physics.force_model %q", ErrInvalid, p.ForceModel)
	}

	if c.Morph.Count < 0 {
		return fmt.Errorf("%w: morph.count must not be negative, got %d", ErrInvalid, c.Morph.Count)
	}
	if err := c.Morph.Start.Validate(); err != nil {
		return fmt.Errorf("morph.start: %w", err)
	}
	if err := c.Morph.End.Validate(); err != nil {
		return fmt.Errorf("morph.end: %w", err)
	}
	return nil
}

// Validate checks a single figure description.
func (f FigureConfig) Validate() error {
	if f.Count < 0 {
		return fmt.Errorf("%w: count must not be negative, got %d", ErrInvalid, f.Count)
	}
	switch f.Kind {
	case KindGrid:
		if f.PreferredColumns < 0 {
			return fmt.Errorf("%w: preferred_columns must not be negative", ErrInvalid)
		}
	case KindCircle:
		if f.Radius < 0 {
			return fmt.Errorf("%w: radius must not be negative", ErrInvalid)
		}
	case KindLattice:
		for _, d := range f.Dims {
			if d < 0 {
				return fmt.Errorf("%w: dims must not be negative, got %v", ErrInvalid, f.Dims)
			}
		}
	case KindMesh:
		if f.Path == "" {
			return fmt.Errorf("%w: mesh figure needs a path", ErrInvalid)
		}
		if f.Limit < 0 {
			return fmt.Errorf("%w: limit must not be negative", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown figure kind %q", ErrInvalid, f.Kind)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
