package figure

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Circle spaces points evenly on a horizontal circle, starting at angle 0.
type Circle struct {
	Center r3.Vec
	Radius float64
	Count  int
}

// Create implements Creator.
func (c Circle) Create() (Figure, error) {
	if err := checkCount(c.Count); err != nil {
		return Figure{}, err
	}
	if c.Count == 0 {
		return Figure{}, nil
	}

	step := 2 * math.Pi / float64(c.Count)
	pts := make([]r3.Vec, c.Count)
	for i := range pts {
		theta := float64(i) * step
		pts[i] = r3.Vec{
			X: c.Center.X + c.Radius*math.Cos(theta),
			Y: c.Center.Y + c.Radius*math.Sin(theta),
			Z: c.Center.Z,
		}
	}
	return New(pts), nil
}
