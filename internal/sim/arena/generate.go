package arena

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"

	"rovergym/internal/sim/geom"
	"rovergym/internal/sim/zone"
)

// Params controls scene generation. Counts are inclusive ranges.
type Params struct {
	BoulderCount  [2]int
	CraterCount   [2]int
	BoulderRadius r1.Interval
	CraterRadius  r1.Interval

	// Column is the fixed rectangular obstacle in the middle of the arena.
	ColumnCenter r2.Vec
	ColumnSize   r2.Vec

	OrbCount   int
	OrbRadius  float64
	OrbSpacing float64

	// Spacing is the minimum gap between any two obstacles and between an
	// obstacle and a protected zone.
	Spacing     float64
	EdgeMargin  float64
	MaxAttempts int
}

func DefaultParams() Params {
	return Params{
		BoulderCount:  [2]int{6, 12},
		CraterCount:   [2]int{3, 5},
		BoulderRadius: r1.Interval{Min: 0.15, Max: 0.20},
		CraterRadius:  r1.Interval{Min: 0.20, Max: 0.25},
		ColumnCenter:  r2.Vec{X: 3.44, Y: 2.5},
		ColumnSize:    r2.Vec{X: 0.5, Y: 0.5},
		OrbCount:      10,
		OrbRadius:     0.075,
		OrbSpacing:    0.2,
		Spacing:       0.3,
		EdgeMargin:    0.1,
		MaxAttempts:   50,
	}
}

type sampler struct {
	src rand.Source
}

func (s sampler) uniform(iv r1.Interval) float64 {
	if iv.Max <= iv.Min {
		return iv.Min
	}
	return distuv.Uniform{Min: iv.Min, Max: iv.Max, Src: s.src}.Rand()
}

func (s sampler) count(r [2]int) int {
	if r[1] <= r[0] {
		return r[0]
	}
	n := r[0] + int(s.uniform(r1.Interval{Min: 0, Max: float64(r[1]-r[0]+1)}))
	if n > r[1] {
		n = r[1]
	}
	return n
}

func (s sampler) point(b geom.AABB, inset float64) (r2.Vec, bool) {
	xs := r1.Interval{Min: b.Min.X + inset, Max: b.Max.X - inset}
	ys := r1.Interval{Min: b.Min.Y + inset, Max: b.Max.Y - inset}
	if xs.Max <= xs.Min || ys.Max <= ys.Min {
		return r2.Vec{}, false
	}
	return r2.Vec{X: s.uniform(xs), Y: s.uniform(ys)}, true
}

// Generate builds a fresh scene. The same source state always yields the same
// scene. Candidates that cannot be placed within MaxAttempts are skipped.
func Generate(src rand.Source, p Params, layout zone.Layout) Scene {
	s := sampler{src: src}
	var scene Scene

	scene.Obstacles = append(scene.Obstacles, Collidable{
		Name:     "column",
		Shape:    Rectangle,
		Position: p.ColumnCenter,
		Width:    p.ColumnSize.X,
		Height:   p.ColumnSize.Y,
		Color:    "#7a7a7a",
	})

	scene.Obstacles = placeCircles(s, p, layout, scene.Obstacles, "boulder", s.count(p.BoulderCount), p.BoulderRadius, "#8b5a2b")
	scene.Obstacles = placeCircles(s, p, layout, scene.Obstacles, "crater", s.count(p.CraterCount), p.CraterRadius, "#3b3b3b")
	scene.Orbs = placeOrbs(s, p, layout, scene.Obstacles)
	return scene
}

func placeCircles(s sampler, p Params, layout zone.Layout, existing []Collidable, kind string, count int, radius r1.Interval, color string) []Collidable {
	placed := 0
	for i := 0; i < count; i++ {
		r := s.uniform(radius)
		for attempt := 0; attempt < p.MaxAttempts; attempt++ {
			pos, ok := s.point(layout.Obstacle, r+p.EdgeMargin)
			if !ok {
				return existing
			}
			if inflated(layout.Construction, p.Spacing+r).Contains(pos) {
				continue
			}
			if !clearOf(existing, pos, r+p.Spacing) {
				continue
			}
			placed++
			existing = append(existing, Collidable{
				Name:     fmt.Sprintf("%s-%d", kind, placed),
				Shape:    Circle,
				Position: pos,
				Radius:   r,
				Color:    color,
			})
			break
		}
	}
	return existing
}

func placeOrbs(s sampler, p Params, layout zone.Layout, obstacles []Collidable) []Orb {
	orbs := make([]Orb, 0, p.OrbCount)
	for i := 0; i < p.OrbCount; i++ {
		for attempt := 0; attempt < p.MaxAttempts; attempt++ {
			pos, ok := s.point(layout.Excavation, p.OrbRadius+p.EdgeMargin)
			if !ok {
				return orbs
			}
			if inflated(layout.Starting, p.OrbRadius).Contains(pos) {
				continue
			}
			if !clearOf(obstacles, pos, p.OrbRadius+p.OrbSpacing) {
				continue
			}
			crowded := false
			for _, o := range orbs {
				if r2.Norm(r2.Sub(o.Position, pos)) < o.Radius+p.OrbRadius+p.OrbSpacing {
					crowded = true
					break
				}
			}
			if crowded {
				continue
			}
			orbs = append(orbs, Orb{Position: pos, Radius: p.OrbRadius})
			break
		}
	}
	return orbs
}

func clearOf(objs []Collidable, pos r2.Vec, gap float64) bool {
	for _, o := range objs {
		if o.Clearance(pos) < gap {
			return false
		}
	}
	return true
}

func inflated(b geom.AABB, by float64) geom.AABB {
	d := r2.Vec{X: by, Y: by}
	return geom.AABB{Min: r2.Sub(b.Min, d), Max: r2.Add(b.Max, d)}
}
