package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Normalize returns the unit vector of v, or the zero vector when v has no length.
func Normalize(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// ClampNorm rescales v so that its length does not exceed max, keeping its direction.
func ClampNorm(v r3.Vec, max float64) r3.Vec {
	n := r3.Norm(v)
	if n > max && n > 0 {
		return r3.Scale(max/n, v)
	}
	return v
}

// Centroid returns the arithmetic mean of pts. The centroid of no points is the origin.
func Centroid(pts []r3.Vec) r3.Vec {
	if len(pts) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, p := range pts {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(pts)), sum)
}
