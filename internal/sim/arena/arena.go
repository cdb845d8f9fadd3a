// Package arena owns the per-episode scene: static obstacles and the
// diggable orbs, regenerated on every reset.
package arena

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/sim/geom"
)

type Shape int

const (
	Circle Shape = iota
	Rectangle
)

func (s Shape) String() string {
	if s == Rectangle {
		return "rectangle"
	}
	return "circle"
}

// Collidable is an obstacle the rover may not touch. It never moves during
// an episode.
type Collidable struct {
	Name     string
	Shape    Shape
	Position r2.Vec
	Radius   float64
	Width    float64
	Height   float64
	Color    string
}

func (c Collidable) Circle() geom.Circle {
	return geom.Circle{Center: c.Position, Radius: c.Radius}
}

func (c Collidable) Box() geom.AABB {
	return geom.BoxAround(c.Position, c.Width, c.Height)
}

// Samples returns 8 evenly spaced points on the object's outline: points on
// the circumference for circles, corners and edge midpoints for rectangles.
func (c Collidable) Samples() [8]r2.Vec {
	if c.Shape == Rectangle {
		return boxSamples(c.Box())
	}
	return circleSamples(c.Position, c.Radius)
}

// Clearance is the distance from p to the object's outline, negative inside.
func (c Collidable) Clearance(p r2.Vec) float64 {
	if c.Shape == Rectangle {
		b := c.Box()
		dx := math.Max(math.Max(b.Min.X-p.X, p.X-b.Max.X), 0)
		dy := math.Max(math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y), 0)
		if dx == 0 && dy == 0 {
			return -1
		}
		return math.Hypot(dx, dy)
	}
	return r2.Norm(r2.Sub(p, c.Position)) - c.Radius
}

type Orb struct {
	Position    r2.Vec
	Radius      float64
	PickedUp    bool
	LocalOffset r2.Vec
}

func (o Orb) Samples() [8]r2.Vec {
	return circleSamples(o.Position, o.Radius)
}

func circleSamples(c r2.Vec, r float64) [8]r2.Vec {
	var out [8]r2.Vec
	for i := range out {
		s, co := math.Sincos(float64(i) * math.Pi / 4)
		out[i] = r2.Vec{X: c.X + r*co, Y: c.Y + r*s}
	}
	return out
}

func boxSamples(b geom.AABB) [8]r2.Vec {
	c := b.Center()
	return [8]r2.Vec{
		b.Min,
		{X: c.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: c.Y},
		b.Max,
		{X: c.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
		{X: b.Min.X, Y: c.Y},
	}
}

type Scene struct {
	Obstacles []Collidable
	Orbs      []Orb
}

// NearestUnheld returns the index and center distance of the closest orb not
// currently carried, or (-1, +Inf) when none remain.
func (s *Scene) NearestUnheld(p r2.Vec) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for i := range s.Orbs {
		if s.Orbs[i].PickedUp {
			continue
		}
		d := r2.Norm(r2.Sub(s.Orbs[i].Position, p))
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

func (s *Scene) HeldCount() int {
	n := 0
	for i := range s.Orbs {
		if s.Orbs[i].PickedUp {
			n++
		}
	}
	return n
}
