package zone

import (
	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/sim/geom"
)

type Zone int

// Numeric codes are stable: observations carry them.
const (
	Starting Zone = iota
	Excavation
	Obstacle
	Construction
	TargetBerm
	None
)

func (z Zone) String() string {
	switch z {
	case Starting:
		return "STARTING"
	case Excavation:
		return "EXCAVATION"
	case Obstacle:
		return "OBSTACLE"
	case Construction:
		return "CONSTRUCTION"
	case TargetBerm:
		return "TARGET_BERM"
	default:
		return "NONE"
	}
}

// Index is the stable numeric code used in observations.
func (z Zone) Index() int { return int(z) }

// Count is the number of zone codes including None.
const Count = 6

// Deposit reports whether dropping orbs here counts as a deposit.
func (z Zone) Deposit() bool { return z == Construction || z == TargetBerm }

// Layout is the fixed arena partition. TargetBerm must sit strictly inside
// Construction.
type Layout struct {
	Arena        geom.AABB
	Starting     geom.AABB
	Excavation   geom.AABB
	Obstacle     geom.AABB
	Construction geom.AABB
	TargetBerm   geom.AABB
}

const (
	ArenaWidth  = 6.88
	ArenaHeight = 5.0
)

func DefaultLayout() Layout {
	return Layout{
		Arena:        geom.AABB{Max: r2.Vec{X: ArenaWidth, Y: ArenaHeight}},
		Starting:     geom.AABB{Max: r2.Vec{X: 2.0, Y: 2.0}},
		Excavation:   geom.AABB{Max: r2.Vec{X: 2.5, Y: ArenaHeight}},
		Obstacle:     geom.AABB{Min: r2.Vec{X: 2.5}, Max: r2.Vec{X: ArenaWidth, Y: ArenaHeight}},
		Construction: geom.AABB{Min: r2.Vec{X: 3.88}, Max: r2.Vec{X: ArenaWidth, Y: 1.5}},
		TargetBerm:   geom.AABB{Min: r2.Vec{X: 4.58, Y: 0.35}, Max: r2.Vec{X: 6.28, Y: 1.15}},
	}
}

// Classify maps a world point to exactly one zone. Overlapping regions are
// resolved by evaluation order: Starting, Construction (TargetBerm nested),
// Excavation, Obstacle.
func (l Layout) Classify(p r2.Vec) Zone {
	switch {
	case l.Starting.Contains(p):
		return Starting
	case l.Construction.Contains(p):
		if l.TargetBerm.Contains(p) {
			return TargetBerm
		}
		return Construction
	case l.Excavation.Contains(p):
		return Excavation
	case l.Obstacle.Contains(p):
		return Obstacle
	default:
		return None
	}
}

func (l Layout) ConstructionCenter() r2.Vec { return l.Construction.Center() }

// Valid reports whether the berm is strictly inside the construction area.
func (l Layout) Valid() bool {
	c, b := l.Construction, l.TargetBerm
	return b.Min.X > c.Min.X && b.Min.Y > c.Min.Y && b.Max.X < c.Max.X && b.Max.Y < c.Max.Y
}
