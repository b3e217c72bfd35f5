package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/components"
)

// Neighbor holds a nearby agent with precomputed spatial data.
type Neighbor struct {
	Index  int
	Delta  r3.Vec  // neighbor position minus query origin
	DistSq float64 // squared distance (avoid sqrt in hot path)
}

type cellKey struct{ X, Y, Z int }

type gridEntry struct {
	index int
	pos   r3.Vec
}

// SpatialGrid buckets agent positions into cubic cells for radius queries.
// The grid is unbounded; only occupied cells are stored.
type SpatialGrid struct {
	cellSize float64
	cells    map[cellKey][]gridEntry
}

// NewSpatialGrid creates a grid with the given cell edge length.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]gridEntry),
	}
}

// Clear removes all agents from the grid. Cells left empty by the previous
// clear are dropped; the rest keep their capacity.
func (g *SpatialGrid) Clear() {
	for k, v := range g.cells {
		if len(v) == 0 {
			delete(g.cells, k)
			continue
		}
		g.cells[k] = v[:0]
	}
}

// Insert adds agent i at position p.
func (g *SpatialGrid) Insert(i int, p r3.Vec) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], gridEntry{index: i, pos: p})
}

// Rebuild clears the grid and inserts every agent, halted ones included.
func (g *SpatialGrid) Rebuild(agents []components.MorphAgent) {
	g.Clear()
	for i, a := range agents {
		g.Insert(i, a.Body.Position)
	}
}

// QueryRadiusInto appends every agent within radius of p, other than
// exclude, to dst and returns it. Reuse dst across calls to avoid
// allocations. Results are ordered by cell, then by insertion.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, p r3.Vec, radius float64, exclude int) []Neighbor {
	cellRadius := int(math.Ceil(radius / g.cellSize))
	center := g.key(p)
	radiusSq := radius * radius

	for dx := -cellRadius; dx <= cellRadius; dx++ {
		for dy := -cellRadius; dy <= cellRadius; dy++ {
			for dz := -cellRadius; dz <= cellRadius; dz++ {
				k := cellKey{center.X + dx, center.Y + dy, center.Z + dz}
				for _, e := range g.cells[k] {
					if e.index == exclude {
						continue
					}
					d := r3.Sub(e.pos, p)
					distSq := r3.Dot(d, d)
					if distSq <= radiusSq {
						dst = append(dst, Neighbor{Index: e.index, Delta: d, DistSq: distSq})
					}
				}
			}
		}
	}
	return dst
}

// key returns the cell containing p.
func (g *SpatialGrid) key(p r3.Vec) cellKey {
	return cellKey{
		X: int(math.Floor(p.X / g.cellSize)),
		Y: int(math.Floor(p.Y / g.cellSize)),
		Z: int(math.Floor(p.Z / g.cellSize)),
	}
}
