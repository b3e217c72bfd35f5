package figure

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/config"
	"github.com/edipowladeo/enxame/stl"
)

const tol = 1e-9

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < tol
}

func TestGridPerfectSquare(t *testing.T) {
	g := Grid{Center: r3.Vec{Z: 30}, Separation: 1, Count: 9}
	if g.Columns() != 3 || g.Rows() != 3 {
		t.Fatalf("layout = %dx%d, want 3x3", g.Columns(), g.Rows())
	}

	f, err := g.Create()
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 9 {
		t.Fatalf("Len() = %d, want 9", f.Len())
	}

	want := map[int]r3.Vec{
		0: {X: -1, Y: -1, Z: 30},
		1: {X: 0, Y: -1, Z: 30},
		4: {X: 0, Y: 0, Z: 30},
		8: {X: 1, Y: 1, Z: 30},
	}
	for i, w := range want {
		if got := f.At(i).Position; !near(got, w) {
			t.Errorf("point %d = %v, want %v", i, got, w)
		}
	}
}

func TestGridShortLastRow(t *testing.T) {
	g := Grid{Separation: 1, Count: 5, PreferredColumns: 2}
	if g.Rows() != 3 {
		t.Fatalf("Rows() = %d, want 3", g.Rows())
	}
	f, err := g.Create()
	if err != nil {
		t.Fatal(err)
	}
	// width 1, height 2: the fifth point opens the third row
	if got, want := f.At(4).Position, (r3.Vec{X: -0.5, Y: 1}); !near(got, want) {
		t.Errorf("last point = %v, want %v", got, want)
	}
}

func TestGridParticlesStartAtRest(t *testing.T) {
	f, err := Grid{Separation: 2, Count: 4}.Create()
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range f.Particles() {
		if p.Velocity != (r3.Vec{}) || p.IsHalted() {
			t.Errorf("particle %d = %+v, want active at rest", i, p)
		}
	}
}

func TestCountEdgeCases(t *testing.T) {
	creators := []struct {
		name string
		make func(n int) Creator
	}{
		{"grid", func(n int) Creator { return Grid{Separation: 1, Count: n} }},
		{"circle", func(n int) Creator { return Circle{Radius: 1, Count: n} }},
		{"lattice", func(n int) Creator {
			return Lattice{Separation: r3.Vec{X: 1, Y: 1, Z: 1}, Count: n, Ratios: AspectRatios{1, 1}}
		}},
	}

	for _, c := range creators {
		t.Run(c.name, func(t *testing.T) {
			f, err := c.make(0).Create()
			if err != nil || f.Len() != 0 {
				t.Errorf("count 0: len=%d err=%v, want empty figure", f.Len(), err)
			}
			if _, err := c.make(-1).Create(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("count -1: err=%v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCircle(t *testing.T) {
	center := r3.Vec{X: 1, Y: 2, Z: 3}
	f, err := Circle{Center: center, Radius: 2, Count: 8}.Create()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < f.Len(); i++ {
		p := f.At(i).Position
		if d := r3.Norm(r3.Sub(p, center)); math.Abs(d-2) > tol {
			t.Errorf("point %d at distance %v, want 2", i, d)
		}
		if p.Z != 3 {
			t.Errorf("point %d z = %v, want 3", i, p.Z)
		}
		theta := math.Atan2(p.Y-center.Y, p.X-center.X)
		want := float64(i) * math.Pi / 4
		if diff := math.Remainder(theta-want, 2*math.Pi); math.Abs(diff) > 1e-9 {
			t.Errorf("point %d angle = %v, want %v", i, theta, want)
		}
	}
}

func TestSolveDims(t *testing.T) {
	tests := []struct {
		n          int
		r          AspectRatios
		nx, ny, nz int
	}{
		{1, AspectRatios{1, 1}, 1, 1, 1},
		{8, AspectRatios{1, 1}, 2, 2, 2},
		{10, AspectRatios{1, 1}, 2, 2, 3},
		{27, AspectRatios{1, 1}, 3, 3, 3},
	}
	for _, tt := range tests {
		nx, ny, nz := SolveDims(tt.n, tt.r)
		if nx != tt.nx || ny != tt.ny || nz != tt.nz {
			t.Errorf("SolveDims(%d, %v) = (%d,%d,%d), want (%d,%d,%d)",
				tt.n, tt.r, nx, ny, nz, tt.nx, tt.ny, tt.nz)
		}
	}

	for _, n := range []int{2, 5, 17, 100, 400, 1001} {
		for _, r := range []AspectRatios{{1, 1}, {2, 1}, {1, 4}, {0.5, 0.25}} {
			nx, ny, nz := SolveDims(n, r)
			if nx*ny*nz < n {
				t.Errorf("SolveDims(%d, %v) = (%d,%d,%d) has no room", n, r, nx, ny, nz)
			}
		}
	}
}

func TestLatticeOrder(t *testing.T) {
	f, err := Lattice{
		Separation: r3.Vec{X: 1, Y: 1, Z: 1},
		Count:      8,
		Ratios:     AspectRatios{1, 1},
	}.Create()
	if err != nil {
		t.Fatal(err)
	}

	want := map[int]r3.Vec{
		0: {X: -0.5, Y: -0.5, Z: -0.5},
		1: {X: 0.5, Y: -0.5, Z: -0.5}, // x varies fastest
		2: {X: -0.5, Y: 0.5, Z: -0.5},
		4: {X: -0.5, Y: -0.5, Z: 0.5}, // z varies slowest
		7: {X: 0.5, Y: 0.5, Z: 0.5},
	}
	for i, w := range want {
		if got := f.At(i).Position; !near(got, w) {
			t.Errorf("site %d = %v, want %v", i, got, w)
		}
	}
}

func TestLatticePartialFill(t *testing.T) {
	f, err := Lattice{Separation: r3.Vec{X: 1, Y: 1, Z: 1}, Count: 10, Ratios: AspectRatios{1, 1}}.Create()
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", f.Len())
	}
}

func TestLatticeShear(t *testing.T) {
	f, err := Lattice{
		Separation: r3.Vec{X: 1, Y: 1, Z: 1},
		Count:      2,
		Dims:       &[3]int{1, 2, 1},
		Shear:      0.5,
	}.Create()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := f.At(0).Position, (r3.Vec{X: -0.25, Y: -0.5}); !near(got, want) {
		t.Errorf("site 0 = %v, want %v", got, want)
	}
	if got, want := f.At(1).Position, (r3.Vec{X: 0.25, Y: 0.5}); !near(got, want) {
		t.Errorf("site 1 = %v, want %v", got, want)
	}
}

func TestLatticeDimsTooSmall(t *testing.T) {
	_, err := Lattice{Separation: r3.Vec{X: 1, Y: 1, Z: 1}, Count: 9, Dims: &[3]int{2, 2, 2}}.Create()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

// tetraSTL is an ASCII tetrahedron with 4 distinct corners repeated across 4 facets.
func tetraSTL() []byte {
	corners := []string{"0 0 0", "2 0 0", "0 2 0", "0 0 2"}
	faces := [][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}

	var b strings.Builder
	b.WriteString("solid tetra\n")
	for _, f := range faces {
		b.WriteString("  facet normal 0 0 0\n    outer loop\n")
		for _, i := range f {
			b.WriteString("      vertex " + corners[i] + "\n")
		}
		b.WriteString("    endloop\n  endfacet\n")
	}
	b.WriteString("endsolid tetra\n")

	text := b.String()
	for len(text) >= 84 && (len(text)-84)%50 == 0 {
		text += "\n"
	}
	return []byte(text)
}

func TestMeshCentersAndScales(t *testing.T) {
	f, err := Mesh{
		Source: BytesSource(tetraSTL()),
		Scale:  2,
		Offset: r3.Vec{Z: 10},
	}.Create()
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 4 {
		t.Fatalf("Len() = %d, want 4 unique vertices", f.Len())
	}
	// centroid (0.5, 0.5, 0.5)
	want := []r3.Vec{
		{X: -1, Y: -1, Z: 9},
		{X: 3, Y: -1, Z: 9},
		{X: -1, Y: 3, Z: 9},
		{X: -1, Y: -1, Z: 13},
	}
	for i, w := range want {
		if got := f.At(i).Position; !near(got, w) {
			t.Errorf("point %d = %v, want %v", i, got, w)
		}
	}
}

func TestMeshLimit(t *testing.T) {
	f, err := Mesh{Source: BytesSource(tetraSTL()), Scale: 1, Limit: 2}.Create()
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	// the centroid still covers every vertex
	if got, want := f.At(0).Position, (r3.Vec{X: -0.5, Y: -0.5, Z: -0.5}); !near(got, want) {
		t.Errorf("point 0 = %v, want %v", got, want)
	}

	f, err = Mesh{Source: BytesSource(tetraSTL()), Scale: 1, Limit: 100}.Create()
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != 4 {
		t.Errorf("limit above vertex count: Len() = %d, want 4", f.Len())
	}

	if _, err := (Mesh{Source: BytesSource(tetraSTL()), Limit: -1}).Create(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative limit: err = %v, want ErrInvalidConfig", err)
	}
}

func TestMeshShuffleIsSeeded(t *testing.T) {
	create := func(seed int64) []r3.Vec {
		f, err := Mesh{
			Source:  BytesSource(tetraSTL()),
			Scale:   1,
			Shuffle: true,
			Rand:    rand.New(rand.NewSource(seed)),
		}.Create()
		if err != nil {
			t.Fatal(err)
		}
		return f.Positions()
	}

	a, b := create(42), create(42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different order at %d: %v vs %v", i, a[i], b[i])
		}
	}

	if _, err := (Mesh{Source: BytesSource(tetraSTL()), Shuffle: true}).Create(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("shuffle without rand: err = %v, want ErrInvalidConfig", err)
	}
}

type emptySource struct{}

func (emptySource) Vertices() ([]r3.Vec, error) { return nil, nil }

func TestMeshEmptySource(t *testing.T) {
	if _, err := (Mesh{Source: emptySource{}, Scale: 1}).Create(); !errors.Is(err, ErrEmptySource) {
		t.Errorf("err = %v, want ErrEmptySource", err)
	}
}

func TestMeshSourceErrors(t *testing.T) {
	_, err := Mesh{Source: BytesSource("not a mesh"), Scale: 1}.Create()
	if !errors.Is(err, stl.ErrParse) {
		t.Errorf("garbage bytes: err = %v, want stl.ErrParse", err)
	}

	_, err = Mesh{Source: FileSource{Path: filepath.Join(t.TempDir(), "missing.stl")}, Scale: 1}.Create()
	if !errors.Is(err, stl.ErrIO) {
		t.Errorf("missing file: err = %v, want stl.ErrIO", err)
	}
}

func TestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tetra.stl")
	if err := os.WriteFile(path, tetraSTL(), 0644); err != nil {
		t.Fatal(err)
	}
	cache := stl.NewCache()

	tests := []struct {
		name string
		fc   config.FigureConfig
		want int
	}{
		{"grid", config.FigureConfig{Kind: config.KindGrid, Separation: 1}, 6},
		{"circle own count", config.FigureConfig{Kind: config.KindCircle, Radius: 3, Count: 4}, 4},
		{"lattice", config.FigureConfig{
			Kind:          config.KindLattice,
			SeparationXYZ: config.Vec3{1, 1, 1},
			Aspect:        config.AspectConfig{RowsOverCols: 1, PlaneOverLayers: 1},
		}, 6},
		{"lattice dims", config.FigureConfig{
			Kind:          config.KindLattice,
			SeparationXYZ: config.Vec3{1, 1, 1},
			Dims:          [3]int{6, 1, 1},
		}, 6},
		{"mesh capped by vertices", config.FigureConfig{Kind: config.KindMesh, Path: path, Scale: 1}, 4},
		{"mesh limit", config.FigureConfig{Kind: config.KindMesh, Path: path, Scale: 1, Limit: 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromConfig(tt.fc, 6, cache, rand.New(rand.NewSource(1)))
			if err != nil {
				t.Fatal(err)
			}
			f, err := c.Create()
			if err != nil {
				t.Fatal(err)
			}
			if f.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", f.Len(), tt.want)
			}
		})
	}

	if cache.Hits() != 1 {
		t.Errorf("cache hits = %d, want 1 (mesh loaded twice)", cache.Hits())
	}

	if _, err := FromConfig(config.FigureConfig{Kind: "blob"}, 6, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("unknown kind: err = %v, want ErrInvalidConfig", err)
	}
}

func TestFigureCentroid(t *testing.T) {
	f, err := Grid{Center: r3.Vec{X: 2, Z: 30}, Separation: 1.5, Count: 9}.Create()
	if err != nil {
		t.Fatal(err)
	}
	if c := f.Centroid(); !near(c, r3.Vec{X: 2, Z: 30}) {
		t.Errorf("Centroid() = %v, want (2,0,30)", c)
	}
	if c := (Figure{}).Centroid(); c != (r3.Vec{}) {
		t.Errorf("empty Centroid() = %v, want origin", c)
	}
}
