// Package geom holds the 2D collision kernel used by the rover simulator.
//
// All angles inside this package are radians. Callers that track headings in
// degrees convert with Radians/Degrees at the boundary.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// OBB is an oriented rectangle. HalfLength runs along the local x axis
// (the heading direction), HalfWidth along the local y axis.
type OBB struct {
	Center     r2.Vec
	HalfLength float64
	HalfWidth  float64
	Angle      float64
}

// Axes returns the unit local x and y axes in world coordinates.
func (b OBB) Axes() [2]r2.Vec {
	s, c := math.Sincos(b.Angle)
	return [2]r2.Vec{{X: c, Y: s}, {X: -s, Y: c}}
}

// Corners are returned counter-clockwise starting at the front-left corner.
func (b OBB) Corners() [4]r2.Vec {
	ax := b.Axes()
	fx := r2.Scale(b.HalfLength, ax[0])
	fy := r2.Scale(b.HalfWidth, ax[1])
	return [4]r2.Vec{
		r2.Add(b.Center, r2.Add(fx, fy)),
		r2.Add(b.Center, r2.Sub(fy, fx)),
		r2.Sub(b.Center, r2.Add(fx, fy)),
		r2.Add(b.Center, r2.Sub(fx, fy)),
	}
}

// ToLocal maps a world point into the rectangle frame.
func (b OBB) ToLocal(p r2.Vec) r2.Vec {
	ax := b.Axes()
	d := r2.Sub(p, b.Center)
	return r2.Vec{X: r2.Dot(d, ax[0]), Y: r2.Dot(d, ax[1])}
}

// ToWorld maps a point in the rectangle frame back to world coordinates.
func (b OBB) ToWorld(l r2.Vec) r2.Vec {
	ax := b.Axes()
	return r2.Add(b.Center, r2.Add(r2.Scale(l.X, ax[0]), r2.Scale(l.Y, ax[1])))
}

// AABB is an axis-aligned rectangle with inclusive bounds.
type AABB struct {
	Min r2.Vec
	Max r2.Vec
}

func BoxAround(center r2.Vec, width, height float64) AABB {
	h := r2.Vec{X: width / 2, Y: height / 2}
	return AABB{Min: r2.Sub(center, h), Max: r2.Add(center, h)}
}

func (a AABB) Contains(p r2.Vec) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X && p.Y >= a.Min.Y && p.Y <= a.Max.Y
}

func (a AABB) Center() r2.Vec {
	return r2.Scale(0.5, r2.Add(a.Min, a.Max))
}

func (a AABB) Size() r2.Vec {
	return r2.Sub(a.Max, a.Min)
}

func (a AABB) Corners() [4]r2.Vec {
	return [4]r2.Vec{
		a.Min,
		{X: a.Max.X, Y: a.Min.Y},
		a.Max,
		{X: a.Min.X, Y: a.Max.Y},
	}
}

type Circle struct {
	Center r2.Vec
	Radius float64
}

// RectVsRect runs a separating-axis test over the rectangle's two local axes
// and the two world axes. Touching edges count as contact.
func RectVsRect(a OBB, b AABB) bool {
	ac := a.Corners()
	bc := b.Corners()
	ax := a.Axes()
	axes := [4]r2.Vec{ax[0], ax[1], {X: 1}, {Y: 1}}
	for _, axis := range axes {
		aMin, aMax := project(ac, axis)
		bMin, bMax := project(bc, axis)
		if aMax < bMin || bMax < aMin {
			return false
		}
	}
	return true
}

func project(pts [4]r2.Vec, axis r2.Vec) (lo, hi float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, p := range pts {
		d := r2.Dot(p, axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// RectVsCircle clamps the circle center to the rectangle in its local frame
// and compares squared distances.
func RectVsCircle(a OBB, c Circle) bool {
	l := a.ToLocal(c.Center)
	cx := clamp(l.X, -a.HalfLength, a.HalfLength)
	cy := clamp(l.Y, -a.HalfWidth, a.HalfWidth)
	dx := l.X - cx
	dy := l.Y - cy
	return dx*dx+dy*dy < c.Radius*c.Radius
}

// PointOutsideBoundary reports whether any corner sits on or beyond the
// boundary inset by margin.
func PointOutsideBoundary(corners [4]r2.Vec, bounds AABB, margin float64) bool {
	for _, p := range corners {
		if p.X <= bounds.Min.X+margin || p.X >= bounds.Max.X-margin {
			return true
		}
		if p.Y <= bounds.Min.Y+margin || p.Y >= bounds.Max.Y-margin {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Radians(deg float64) float64 { return deg * math.Pi / 180 }
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// WrapDegrees maps any angle into [0, 360).
func WrapDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// WrapRadians maps any angle into [-pi, pi].
func WrapRadians(rad float64) float64 {
	r := math.Mod(rad+math.Pi, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	return r - math.Pi
}

// HeadingDelta is the absolute shorter-arc difference between two headings
// in degrees, in [0, 180].
func HeadingDelta(a, b float64) float64 {
	d := math.Abs(WrapDegrees(a) - WrapDegrees(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Forward returns the unit direction of a heading given in degrees.
func Forward(headingDeg float64) r2.Vec {
	s, c := math.Sincos(Radians(headingDeg))
	return r2.Vec{X: c, Y: s}
}
