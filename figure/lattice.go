package figure

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// AspectRatios are the target proportions of a lattice.
type AspectRatios struct {
	RowsOverCols    float64 // ny / nx
	PlaneOverLayers float64 // sqrt(nx*ny) / nz
}

// Lattice fills a sheared box of nx*ny*nz sites, z-major then y then x,
// and keeps the first Count of them.
type Lattice struct {
	Center     r3.Vec
	Separation r3.Vec // spacing along each basis vector
	Count      int
	Ratios     AspectRatios
	Dims       *[3]int // explicit (nx, ny, nz); nil = SolveDims
	Shear      float64 // x offset per y step, in units of Separation.Y
}

// Create implements Creator.
func (l Lattice) Create() (Figure, error) {
	if err := checkCount(l.Count); err != nil {
		return Figure{}, err
	}
	if l.Count == 0 {
		return Figure{}, nil
	}

	var nx, ny, nz int
	if l.Dims != nil {
		nx, ny, nz = l.Dims[0], l.Dims[1], l.Dims[2]
		if nx <= 0 || ny <= 0 || nz <= 0 || nx*ny*nz < l.Count {
			return Figure{}, fmt.Errorf("%w: dims %dx%dx%d cannot hold %d points",
				ErrInvalidConfig, nx, ny, nz, l.Count)
		}
	} else {
		nx, ny, nz = SolveDims(l.Count, l.Ratios)
	}

	a := r3.Vec{X: l.Separation.X}
	b := r3.Vec{X: l.Separation.Y * l.Shear, Y: l.Separation.Y}
	c := r3.Vec{Z: l.Separation.Z}

	extent := r3.Add(r3.Add(r3.Scale(float64(nx-1), a), r3.Scale(float64(ny-1), b)), r3.Scale(float64(nz-1), c))
	origin := r3.Sub(l.Center, r3.Scale(0.5, extent))

	pts := make([]r3.Vec, 0, l.Count)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				if len(pts) == l.Count {
					return New(pts), nil
				}
				off := r3.Add(r3.Add(r3.Scale(float64(i), a), r3.Scale(float64(j), b)), r3.Scale(float64(k), c))
				pts = append(pts, r3.Add(origin, off))
			}
		}
	}
	return New(pts), nil
}

// SolveDims picks integer dimensions with capacity for n sites whose
// proportions stay close to r. It starts from the continuous solution and
// grows one axis at a time, choosing the axis with the smallest log-ratio error.
func SolveDims(n int, r AspectRatios) (nx, ny, nz int) {
	if n <= 0 {
		return 0, 0, 0
	}
	const eps = 1e-9
	rc := math.Max(r.RowsOverCols, eps)
	pl := math.Max(r.PlaneOverLayers, eps)

	// nx*ny*nz = n with ny = rc*nx and sqrt(nx*ny) = pl*nz
	nx = int(math.Round(math.Max(1, math.Cbrt(float64(n)*pl/math.Pow(rc, 1.5)))))
	ny = max(1, int(math.Round(rc*float64(nx))))
	nz = max(1, int(math.Round(float64(nx)*math.Sqrt(rc)/pl)))

	ratioError := func(x, y, z int) float64 {
		r1 := float64(y) / float64(x)
		r2 := math.Sqrt(float64(x)*float64(y)) / float64(z)
		return math.Abs(math.Log(r1/rc)) + math.Abs(math.Log(r2/pl))
	}

	for nx*ny*nz < n {
		candidates := [3][3]int{{nx + 1, ny, nz}, {nx, ny + 1, nz}, {nx, ny, nz + 1}}
		best := candidates[0]
		bestErr := ratioError(best[0], best[1], best[2])
		for _, cand := range candidates[1:] {
			if e := ratioError(cand[0], cand[1], cand[2]); e < bestErr {
				best, bestErr = cand, e
			}
		}
		nx, ny, nz = best[0], best[1], best[2]
	}
	return nx, ny, nz
}
