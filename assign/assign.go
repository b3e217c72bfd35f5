// Package assign matches two equal-size point sets with minimum total
// squared distance.
package assign

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSizeMismatch is returned when the two sets differ in length.
var ErrSizeMismatch = errors.New("assign: point sets differ in size")

// ErrNonFinite is returned when a point or a squared distance is NaN or infinite.
var ErrNonFinite = errors.New("assign: non-finite cost")

// Solve returns perm such that start[i] is matched to end[perm[i]] and the
// sum of squared distances is minimal.
func Solve(start, end []r3.Vec) ([]int, error) {
	if len(start) != len(end) {
		return nil, fmt.Errorf("%w: %d start points, %d end points", ErrSizeMismatch, len(start), len(end))
	}
	if len(start) == 0 {
		return []int{}, nil
	}
	cost := CostMatrix(start, end)
	n, _ := cost.Dims()
	for i := range n {
		for j := range n {
			if c := cost.At(i, j); math.IsNaN(c) || math.IsInf(c, 0) {
				return nil, fmt.Errorf("%w: start %d (%v) to end %d (%v)", ErrNonFinite, i, start[i], j, end[j])
			}
		}
	}
	return Hungarian(cost), nil
}

// CostMatrix returns the n×n matrix of squared distances from start[i] to end[j].
// The square root is skipped; it does not change which assignment is cheapest.
func CostMatrix(start, end []r3.Vec) *mat.Dense {
	cost := mat.NewDense(len(start), len(end), nil)
	for i, s := range start {
		for j, e := range end {
			d := r3.Sub(s, e)
			cost.Set(i, j, r3.Dot(d, d))
		}
	}
	return cost
}

// TotalCost sums cost[i][perm[i]].
func TotalCost(cost mat.Matrix, perm []int) float64 {
	var sum float64
	for i, j := range perm {
		sum += cost.At(i, j)
	}
	return sum
}

// Hungarian solves the square minimum-cost assignment problem with the
// Kuhn-Munkres algorithm using row/column potentials and shortest
// augmenting paths. It runs in O(n³) time. It panics if cost is not
// square or holds a NaN or infinite entry.
func Hungarian(cost mat.Matrix) []int {
	n, c := cost.Dims()
	if n != c {
		panic(fmt.Sprintf("assign: cost matrix is %dx%d, want square", n, c))
	}

	// Index 0 is a sentinel column; rows and columns are 1-based below.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j]: row matched to column j
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			if j1 == 0 {
				// Only NaN or +Inf reduced costs leave every column unreachable.
				panic("assign: non-finite cost matrix entry")
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// augment along the alternating path
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	perm := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			perm[p[j]-1] = j - 1
		}
	}
	return perm
}
