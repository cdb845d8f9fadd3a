package sensor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/sim/arena"
	"rovergym/internal/sim/geom"
)

// Frustum is a forward-facing trapezoid anchored at the rover's front edge.
// NearWidth matches the rover width; the far edge is Depth ahead.
type Frustum struct {
	NearWidth float64
	FarWidth  float64
	Depth     float64
}

// Contains tests a point given in the rover frame.
func (f Frustum) Contains(local r2.Vec, halfLength float64) bool {
	u := local.X - halfLength
	if u < 0 || u > f.Depth {
		return false
	}
	w := f.NearWidth
	if f.Depth > 0 {
		w += (f.FarWidth - f.NearWidth) * u / f.Depth
	}
	return math.Abs(local.Y) <= w/2
}

// Range is the farthest center distance a corner of the frustum reaches.
func (f Frustum) Range(halfLength float64) float64 {
	return math.Hypot(halfLength+f.Depth, math.Max(f.NearWidth, f.FarWidth)/2)
}

// Detected is one object inside the frustum. Angle is relative to the
// heading, in radians.
type Detected struct {
	Index    int
	Name     string
	Distance float64
	Angle    float64
}

type Detection struct {
	Obstacles []Detected
	Orbs      []Detected
}

// Detect samples each candidate's outline at 8 points and reports it when
// any sample falls inside the frustum. Carried orbs are skipped. Both lists
// are sorted by distance.
func (f Frustum) Detect(rover geom.OBB, obstacles []arena.Collidable, orbs []arena.Orb) Detection {
	var d Detection
	for i, o := range obstacles {
		if f.any(rover, o.Samples()) {
			d.Obstacles = append(d.Obstacles, describe(rover, i, o.Name, o.Position))
		}
	}
	for i, o := range orbs {
		if o.PickedUp {
			continue
		}
		if f.any(rover, o.Samples()) {
			d.Orbs = append(d.Orbs, describe(rover, i, "orb", o.Position))
		}
	}
	sortByDistance(d.Obstacles)
	sortByDistance(d.Orbs)
	return d
}

func (f Frustum) any(rover geom.OBB, pts [8]r2.Vec) bool {
	for _, p := range pts {
		if f.Contains(rover.ToLocal(p), rover.HalfLength) {
			return true
		}
	}
	return false
}

func describe(rover geom.OBB, idx int, name string, center r2.Vec) Detected {
	l := rover.ToLocal(center)
	return Detected{
		Index:    idx,
		Name:     name,
		Distance: r2.Norm(l),
		Angle:    geom.WrapRadians(math.Atan2(l.Y, l.X)),
	}
}

func sortByDistance(ds []Detected) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Distance < ds[j].Distance })
}
