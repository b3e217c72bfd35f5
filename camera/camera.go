// Package camera provides an orbit camera that frames a point cloud.
//
// Coordinates are physics coordinates with Z up. Angles are in degrees.
package camera

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/edipowladeo/enxame/components"
)

// Orbit circles a target point at a given distance.
type Orbit struct {
	Target r3.Vec

	// Yaw turns around the vertical axis; Pitch lifts the eye above the
	// target's horizontal plane.
	Yaw, Pitch float64
	Distance   float64

	// Vertical field of view
	FovY float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float64

	// Distance constraints
	MinDistance, MaxDistance float64

	// Degrees per dragged pixel
	Sensitivity float64
}

// New creates a camera looking slightly down at the origin.
func New(viewportW, viewportH float64) *Orbit {
	return &Orbit{
		Pitch:       20,
		Distance:    100,
		FovY:        45,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
		MinDistance: 1,
		MaxDistance: 5000,
		Sensitivity: 0.2,
	}
}

// BoundingSphere returns the centroid of pts and the largest distance from
// it. The radius is at least 1 so that tiny or empty clouds stay framable.
func BoundingSphere(pts []r3.Vec) (center r3.Vec, radius float64) {
	center = components.Centroid(pts)
	radius = 1
	for _, p := range pts {
		radius = math.Max(radius, r3.Norm(r3.Sub(p, center)))
	}
	return center, radius
}

// Rotate orbits by a mouse drag of (dx, dy) pixels.
func (o *Orbit) Rotate(dx, dy float64) {
	o.Yaw = math.Mod(o.Yaw+dx*o.Sensitivity, 360)
	o.Pitch = clamp(o.Pitch+dy*o.Sensitivity, -89, 89)
}

// Zoom moves toward the target for positive wheel delta.
func (o *Orbit) Zoom(delta float64) {
	o.Distance = clamp(o.Distance*(1-delta*0.1), o.MinDistance, o.MaxDistance)
}

// Frame aims at center and backs off until a sphere of the given radius
// fits in both the vertical and horizontal field of view, with a margin.
func (o *Orbit) Frame(center r3.Vec, radius float64) {
	o.Target = center
	o.Distance = clamp(o.FitDistance(radius), o.MinDistance, o.MaxDistance)
}

// FitDistance returns the distance at which a sphere of radius fills the
// view with a 20% margin.
func (o *Orbit) FitDistance(radius float64) float64 {
	vfov := o.FovY * math.Pi / 180
	aspect := 1.0
	if o.ViewportH > 0 {
		aspect = o.ViewportW / o.ViewportH
	}
	hfov := 2 * math.Atan(math.Tan(vfov/2)*aspect)
	distV := radius / math.Tan(vfov/2)
	distH := radius / math.Tan(hfov/2)
	return math.Max(distV, distH) * 1.2
}

// FramePoints frames the bounding sphere of pts.
func (o *Orbit) FramePoints(pts []r3.Vec) {
	o.Frame(BoundingSphere(pts))
}

// Eye returns the camera position.
func (o *Orbit) Eye() r3.Vec {
	yaw := o.Yaw * math.Pi / 180
	pitch := o.Pitch * math.Pi / 180
	dir := r3.Vec{
		X: math.Cos(pitch) * math.Cos(yaw),
		Y: math.Cos(pitch) * math.Sin(yaw),
		Z: math.Sin(pitch),
	}
	return r3.Add(o.Target, r3.Scale(o.Distance, dir))
}

// YUp maps a Z-up physics vector into the Y-up frame used for drawing,
// keeping the frame right-handed.
func YUp(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Z, Z: -v.Y}
}

// Resize updates viewport dimensions.
func (o *Orbit) Resize(viewportW, viewportH float64) {
	o.ViewportW = viewportW
	o.ViewportH = viewportH
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
