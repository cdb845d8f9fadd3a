// Package body integrates rover motion and detects the first contact with
// an obstacle or the arena boundary.
package body

import (
	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/sim/arena"
	"rovergym/internal/sim/geom"
)

// State is the kinematic state of the rover. Heading is in degrees.
type State struct {
	Position        r2.Vec
	Heading         float64
	Velocity        r2.Vec
	AngularVelocity float64
}

// Pose is the placement used by ResetBody.
type Pose struct {
	Position r2.Vec
	Heading  float64
}

type Config struct {
	Length float64
	Width  float64
	Bounds geom.AABB
	Margin float64
}

type ContactKind string

const (
	ContactObstacle ContactKind = "obstacle"
	ContactBoundary ContactKind = "boundary"
)

type Collision struct {
	Tick uint64
	Kind ContactKind
	Name string
}

type Simulator struct {
	cfg   Config
	state State
	tick  uint64

	static   []arena.Collidable
	collided bool
	onHit    func(Collision)
}

func New(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

func (s *Simulator) Config() Config { return s.cfg }

// OnCollision registers the single collision callback.
func (s *Simulator) OnCollision(fn func(Collision)) { s.onHit = fn }

func (s *Simulator) Register(static ...arena.Collidable) {
	s.static = append(s.static, static...)
}

func (s *Simulator) ClearCollidables() { s.static = s.static[:0] }

func (s *Simulator) SetVelocity(vx, vy float64) {
	s.state.Velocity = r2.Vec{X: vx, Y: vy}
}

func (s *Simulator) SetAngularVelocity(w float64) {
	s.state.AngularVelocity = w
}

// ResetBody places the rover at rest and re-arms collision reporting.
func (s *Simulator) ResetBody(p Pose) {
	s.state = State{Position: p.Position, Heading: geom.WrapDegrees(p.Heading)}
	s.collided = false
	s.tick = 0
}

func (s *Simulator) State() State { return s.state }

func (s *Simulator) Collided() bool { return s.collided }

// ForwardSpeed is the signed velocity component along the heading.
func (s *Simulator) ForwardSpeed() float64 {
	return r2.Dot(s.state.Velocity, geom.Forward(s.state.Heading))
}

func (s *Simulator) Footprint() geom.OBB {
	return geom.OBB{
		Center:     s.state.Position,
		HalfLength: s.cfg.Length / 2,
		HalfWidth:  s.cfg.Width / 2,
		Angle:      geom.Radians(s.state.Heading),
	}
}

// Advance integrates one step of dt seconds. There is no friction and no
// positional correction on contact; the caller resets the episode instead.
func (s *Simulator) Advance(dt float64) {
	s.tick++
	s.state.Heading = geom.WrapDegrees(s.state.Heading + s.state.AngularVelocity*dt)
	s.state.Position = r2.Add(s.state.Position, r2.Scale(dt, s.state.Velocity))

	if s.collided {
		return
	}
	if hit, ok := s.detect(); ok {
		s.collided = true
		if s.onHit != nil {
			s.onHit(hit)
		}
	}
}

func (s *Simulator) detect() (Collision, bool) {
	fp := s.Footprint()
	for _, c := range s.static {
		var touching bool
		switch c.Shape {
		case arena.Rectangle:
			touching = geom.RectVsRect(fp, c.Box())
		default:
			touching = geom.RectVsCircle(fp, c.Circle())
		}
		if touching {
			return Collision{Tick: s.tick, Kind: ContactObstacle, Name: c.Name}, true
		}
	}
	if geom.PointOutsideBoundary(fp.Corners(), s.cfg.Bounds, s.cfg.Margin) {
		return Collision{Tick: s.tick, Kind: ContactBoundary, Name: "boundary"}, true
	}
	return Collision{}, false
}
