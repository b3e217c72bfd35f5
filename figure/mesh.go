package figure

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/components"
	"github.com/edipowladeo/enxame/stl"
)

// Source yields the deduplicated vertices of a mesh.
type Source interface {
	Vertices() ([]r3.Vec, error)
}

// FileSource reads an STL file, through Cache when it is set.
type FileSource struct {
	Path  string
	Cache *stl.Cache
}

// Vertices implements Source.
func (s FileSource) Vertices() ([]r3.Vec, error) {
	if s.Cache != nil {
		return s.Cache.Load(s.Path, true)
	}
	return stl.ReadFile(s.Path, true)
}

// BytesSource parses an in-memory STL payload.
type BytesSource []byte

// Vertices implements Source.
func (s BytesSource) Vertices() ([]r3.Vec, error) {
	return stl.Extract(s, true)
}

// Mesh samples a figure from mesh vertices: they are centered on their
// centroid, scaled, and moved to Offset.
type Mesh struct {
	Source  Source
	Scale   float64
	Offset  r3.Vec
	Limit   int        // maximum number of points; 0 = all vertices
	Shuffle bool       // randomize which vertices survive Limit
	Rand    *rand.Rand // required when Shuffle is set
}

// Create implements Creator.
func (m Mesh) Create() (Figure, error) {
	if m.Limit < 0 {
		return Figure{}, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidConfig, m.Limit)
	}
	if m.Source == nil {
		return Figure{}, fmt.Errorf("%w: mesh has no source", ErrInvalidConfig)
	}
	if m.Shuffle && m.Rand == nil {
		return Figure{}, fmt.Errorf("%w: shuffle needs a random source", ErrInvalidConfig)
	}

	verts, err := m.Source.Vertices()
	if err != nil {
		return Figure{}, err
	}
	if len(verts) == 0 {
		return Figure{}, ErrEmptySource
	}

	if m.Shuffle {
		m.Rand.Shuffle(len(verts), func(i, j int) {
			verts[i], verts[j] = verts[j], verts[i]
		})
	}

	centroid := components.Centroid(verts)

	n := len(verts)
	if m.Limit > 0 && m.Limit < n {
		n = m.Limit
	}

	pts := make([]r3.Vec, n)
	for i := range pts {
		pts[i] = r3.Add(r3.Scale(m.Scale, r3.Sub(verts[i], centroid)), m.Offset)
	}
	return New(pts), nil
}
