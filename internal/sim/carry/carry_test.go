package carry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/sim/arena"
	"rovergym/internal/sim/body"
	"rovergym/internal/sim/geom"
)

func roverAt(x, y, h float64) body.State {
	return body.State{Position: r2.Vec{X: x, Y: y}, Heading: h}
}

// Grab zone for the default bucket at (1,1) heading 0 spans x in [1.675, 2.125].
func sceneWithOrbs(pos ...r2.Vec) *arena.Scene {
	s := &arena.Scene{}
	for _, p := range pos {
		s.Orbs = append(s.Orbs, arena.Orb{Position: p, Radius: 0.075})
	}
	return s
}

func TestGrabAllEligible(t *testing.T) {
	s := sceneWithOrbs(r2.Vec{X: 1.9, Y: 1}, r2.Vec{X: 1.9, Y: 1.2}, r2.Vec{X: 3, Y: 1})
	c := New(DefaultBucket())
	c.Attach(s)
	r := roverAt(1, 1, 0)

	if !c.CanGrab(r) {
		t.Fatalf("expected orbs in reach")
	}
	if n := c.SetDigMode(true, r); n != 2 {
		t.Fatalf("grabbed %d want 2", n)
	}
	if c.HeldCount() != 2 || s.Orbs[2].PickedUp {
		t.Fatalf("wrong orbs held: %+v", s.Orbs)
	}
	if c.CanGrab(r) {
		t.Fatalf("no free orb left in reach")
	}
	for _, i := range c.Eligible(r) {
		if s.Orbs[i].PickedUp {
			t.Fatalf("held orb %d reported eligible", i)
		}
	}
}

func TestGrabNeedsOrbCenterInZone(t *testing.T) {
	// Rim overlaps the far edge at x=2.125 but the center sits past it.
	s := sceneWithOrbs(r2.Vec{X: 2.18, Y: 1}, r2.Vec{X: 1.9, Y: 1.4})
	c := New(DefaultBucket())
	c.Attach(s)
	r := roverAt(1, 1, 0)

	if c.CanGrab(r) || len(c.Eligible(r)) != 0 {
		t.Fatalf("CanGrab=%v Eligible=%v, want nothing in reach", c.CanGrab(r), c.Eligible(r))
	}
	if n := c.SetDigMode(true, r); n != 0 {
		t.Fatalf("grabbed %d orbs whose centers are outside the zone", n)
	}

	s.Orbs[0].Position.X = 2.12
	if got := c.Eligible(r); len(got) != 1 || got[0] != 0 {
		t.Fatalf("Eligible=%v want [0]", got)
	}
}

func TestGrabIsAllOrNothing(t *testing.T) {
	s := sceneWithOrbs(r2.Vec{X: 1.9, Y: 1}, r2.Vec{X: 1.9, Y: 3})
	c := New(DefaultBucket())
	c.Attach(s)
	c.SetDigMode(true, roverAt(1, 1, 0))
	if n := c.SetDigMode(true, roverAt(1, 3, 0)); n != 0 {
		t.Fatalf("no further grabs allowed while holding, grabbed %d", n)
	}
}

func TestCarriedOrbFollowsRover(t *testing.T) {
	s := sceneWithOrbs(r2.Vec{X: 1.9, Y: 1.1})
	c := New(DefaultBucket())
	c.Attach(s)
	start := roverAt(1, 1, 0)
	c.SetDigMode(true, start)
	offset := r2.Sub(s.Orbs[0].Position, start.Position)

	moved := roverAt(3, 2, 90)
	c.Update(moved)
	want := r2.Add(moved.Position, r2.Rotate(offset, geom.Radians(90), r2.Vec{}))
	if r2.Norm(r2.Sub(s.Orbs[0].Position, want)) > 1e-9 {
		t.Fatalf("orb at %v want %v", s.Orbs[0].Position, want)
	}
	if math.Abs(s.Orbs[0].Position.X-(3-0.1)) > 1e-9 {
		t.Fatalf("rotation applied incorrectly: %v", s.Orbs[0].Position)
	}
}

func TestReleaseDropsInPlace(t *testing.T) {
	s := sceneWithOrbs(r2.Vec{X: 1.9, Y: 1})
	c := New(DefaultBucket())
	c.Attach(s)
	c.SetDigMode(true, roverAt(1, 1, 0))
	c.Update(roverAt(2, 1, 0))
	grabbed, released := c.Toggle(roverAt(2, 1, 0))
	if grabbed != 0 || released != 1 {
		t.Fatalf("Toggle=(%d,%d) want (0,1)", grabbed, released)
	}
	if s.Orbs[0].PickedUp || math.Abs(s.Orbs[0].Position.X-2.9) > 1e-9 {
		t.Fatalf("orb should rest at release point: %+v", s.Orbs[0])
	}
}
