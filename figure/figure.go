// Package figure generates ordered point arrangements used as morph endpoints.
package figure

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/components"
	"github.com/edipowladeo/enxame/config"
	"github.com/edipowladeo/enxame/stl"
)

// Errors returned by creators.
var (
	ErrInvalidConfig = errors.New("figure: invalid configuration")
	ErrEmptySource   = errors.New("figure: source has no usable points")
)

// Figure is an immutable ordered set of particles.
type Figure struct {
	particles []components.Particle
}

// New builds a figure of active, resting particles at the given positions.
func New(positions []r3.Vec) Figure {
	ps := make([]components.Particle, len(positions))
	for i, p := range positions {
		ps[i] = components.NewParticle(p)
	}
	return Figure{particles: ps}
}

// Len returns the number of points.
func (f Figure) Len() int {
	return len(f.particles)
}

// Particles returns a copy of the figure's particles.
func (f Figure) Particles() []components.Particle {
	out := make([]components.Particle, len(f.particles))
	copy(out, f.particles)
	return out
}

// Positions returns a copy of the figure's point positions.
func (f Figure) Positions() []r3.Vec {
	out := make([]r3.Vec, len(f.particles))
	for i := range f.particles {
		out[i] = f.particles[i].Position
	}
	return out
}

// At returns the i-th particle.
func (f Figure) At(i int) components.Particle {
	return f.particles[i]
}

// Centroid returns the mean point position, or the origin for an empty figure.
func (f Figure) Centroid() r3.Vec {
	return components.Centroid(f.Positions())
}

// Creator produces a figure.
type Creator interface {
	Create() (Figure, error)
}

func checkCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: count must not be negative, got %d", ErrInvalidConfig, n)
	}
	return nil
}

// FromConfig builds the creator described by fc. count is used when fc does
// not set its own. cache may be nil; rng seeds mesh shuffling and may be
// nil, in which case a time-seeded source is used.
func FromConfig(fc config.FigureConfig, count int, cache *stl.Cache, rng *rand.Rand) (Creator, error) {
	if err := fc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if fc.Count > 0 {
		count = fc.Count
	}

	switch fc.Kind {
	case config.KindGrid:
		return Grid{
			Center:           fc.Center.R3(),
			Separation:       fc.Separation,
			Count:            count,
			PreferredColumns: fc.PreferredColumns,
		}, nil

	case config.KindCircle:
		return Circle{
			Center: fc.Center.R3(),
			Radius: fc.Radius,
			Count:  count,
		}, nil

	case config.KindLattice:
		l := Lattice{
			Center:     fc.Center.R3(),
			Separation: fc.SeparationXYZ.R3(),
			Count:      count,
			Ratios: AspectRatios{
				RowsOverCols:    fc.Aspect.RowsOverCols,
				PlaneOverLayers: fc.Aspect.PlaneOverLayers,
			},
			Shear: fc.Shear,
		}
		if fc.Dims != [3]int{} {
			dims := fc.Dims
			l.Dims = &dims
		}
		return l, nil

	case config.KindMesh:
		limit := fc.Limit
		if limit == 0 {
			limit = count
		}
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		return Mesh{
			Source:  FileSource{Path: fc.Path, Cache: cache},
			Scale:   fc.Scale,
			Offset:  fc.Offset.R3(),
			Limit:   limit,
			Shuffle: fc.Shuffle,
			Rand:    rng,
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, fc.Kind)
}
