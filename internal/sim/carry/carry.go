package carry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/sim/arena"
	"rovergym/internal/sim/body"
	"rovergym/internal/sim/geom"
)

// Bucket describes the grab zone in front of the rover.
type Bucket struct {
	RoverLength float64
	Width       float64
	Depth       float64
	// OffsetFraction moves the zone center past the front edge by a
	// fraction of Depth.
	OffsetFraction float64
	// ReachFraction sets the zone's forward extent as a fraction of
	// RoverLength.
	ReachFraction float64
}

func DefaultBucket() Bucket {
	return Bucket{
		RoverLength:    1.5,
		Width:          0.75,
		Depth:          0.3,
		OffsetFraction: 0.5,
		ReachFraction:  0.3,
	}
}

type Carrier struct {
	bucket Bucket
	scene  *arena.Scene
}

func New(b Bucket) *Carrier { return &Carrier{bucket: b} }

// Attach points the carrier at the orbs of a freshly generated scene.
func (c *Carrier) Attach(s *arena.Scene) { c.scene = s }

// Zone returns the grab rectangle for the given rover state.
func (c *Carrier) Zone(rover body.State) geom.OBB {
	fwd := c.bucket.RoverLength/2 + c.bucket.OffsetFraction*c.bucket.Depth
	return geom.OBB{
		Center:     r2.Add(rover.Position, r2.Scale(fwd, geom.Forward(rover.Heading))),
		HalfLength: c.bucket.ReachFraction * c.bucket.RoverLength / 2,
		HalfWidth:  c.bucket.Width / 2,
		Angle:      geom.Radians(rover.Heading),
	}
}

// Eligible lists free orbs whose center lies inside the grab zone.
func (c *Carrier) Eligible(rover body.State) []int {
	if c.scene == nil {
		return nil
	}
	z := c.Zone(rover)
	var out []int
	for i, o := range c.scene.Orbs {
		if o.PickedUp {
			continue
		}
		l := z.ToLocal(o.Position)
		if math.Abs(l.X) <= z.HalfLength && math.Abs(l.Y) <= z.HalfWidth {
			out = append(out, i)
		}
	}
	return out
}

func (c *Carrier) CanGrab(rover body.State) bool {
	return len(c.Eligible(rover)) > 0
}

func (c *Carrier) HeldCount() int {
	if c.scene == nil {
		return 0
	}
	return c.scene.HeldCount()
}

// SetDigMode grabs every eligible orb when enabled and nothing is held yet,
// or releases all held orbs in place when disabled. It returns how many orbs
// changed state.
func (c *Carrier) SetDigMode(enabled bool, rover body.State) int {
	if c.scene == nil {
		return 0
	}
	if enabled {
		if c.HeldCount() > 0 {
			return 0
		}
		idx := c.Eligible(rover)
		for _, i := range idx {
			o := &c.scene.Orbs[i]
			o.PickedUp = true
			o.LocalOffset = r2.Rotate(r2.Sub(o.Position, rover.Position), -geom.Radians(rover.Heading), r2.Vec{})
		}
		return len(idx)
	}
	n := 0
	for i := range c.scene.Orbs {
		o := &c.scene.Orbs[i]
		if !o.PickedUp {
			continue
		}
		o.PickedUp = false
		o.LocalOffset = r2.Vec{}
		n++
	}
	return n
}

// Toggle flips the carry state: release if holding, otherwise grab.
func (c *Carrier) Toggle(rover body.State) (grabbed, released int) {
	if c.HeldCount() > 0 {
		return 0, c.SetDigMode(false, rover)
	}
	return c.SetDigMode(true, rover), 0
}

// Update re-projects carried orbs onto the rover.
func (c *Carrier) Update(rover body.State) {
	if c.scene == nil {
		return
	}
	h := geom.Radians(rover.Heading)
	for i := range c.scene.Orbs {
		o := &c.scene.Orbs[i]
		if o.PickedUp {
			o.Position = r2.Add(rover.Position, r2.Rotate(o.LocalOffset, h, r2.Vec{}))
		}
	}
}
