package figure

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Grid lays points out row-major on a horizontal plane, centered on Center.
// The last row is short when Count is not a multiple of the column count.
type Grid struct {
	Center           r3.Vec
	Separation       float64
	Count            int
	PreferredColumns int // 0 = ceil(sqrt(Count))
}

// Columns returns the number of columns used for n points.
func (g Grid) Columns() int {
	if g.PreferredColumns > 0 {
		return g.PreferredColumns
	}
	if g.Count <= 0 {
		return 0
	}
	return int(math.Ceil(math.Sqrt(float64(g.Count))))
}

// Rows returns the number of rows used for n points.
func (g Grid) Rows() int {
	cols := g.Columns()
	if g.Count <= 0 || cols == 0 {
		return 0
	}
	return (g.Count + cols - 1) / cols
}

// Create implements Creator.
func (g Grid) Create() (Figure, error) {
	if err := checkCount(g.Count); err != nil {
		return Figure{}, err
	}
	if g.PreferredColumns < 0 {
		return Figure{}, fmt.Errorf("%w: preferred columns must not be negative", ErrInvalidConfig)
	}
	if g.Count == 0 {
		return Figure{}, nil
	}

	cols, rows := g.Columns(), g.Rows()
	width := float64(cols-1) * g.Separation
	height := float64(rows-1) * g.Separation

	pts := make([]r3.Vec, g.Count)
	for i := range pts {
		r, c := i/cols, i%cols
		pts[i] = r3.Vec{
			X: g.Center.X - width/2 + float64(c)*g.Separation,
			Y: g.Center.Y - height/2 + float64(r)*g.Separation,
			Z: g.Center.Z,
		}
	}
	return New(pts), nil
}
