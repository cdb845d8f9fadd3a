package env

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Action is one control input. Speed and TurnRate are fractions of the
// rover's maximum linear and angular rates; Dig toggles the carry state on
// an upward crossing of DigThreshold.
type Action struct {
	Speed    float64
	TurnRate float64
	Dig      float64
}

const DigThreshold = 0.5

var unit = r1.Interval{Min: -1, Max: 1}

// ActionFromSlice reads the wire form [speed, turn_rate, dig_action].
// Missing entries are zero.
func ActionFromSlice(v []float64) Action {
	var a Action
	if len(v) > 0 {
		a.Speed = v[0]
	}
	if len(v) > 1 {
		a.TurnRate = v[1]
	}
	if len(v) > 2 {
		a.Dig = v[2]
	}
	return a
}

func (a Action) Slice() []float64 { return []float64{a.Speed, a.TurnRate, a.Dig} }

// Sanitized zeroes non-finite components and clamps speed and turn rate.
func (a Action) Sanitized() Action {
	return Action{
		Speed:    clampUnit(a.Speed),
		TurnRate: clampUnit(a.TurnRate),
		Dig:      finite(a.Dig),
	}
}

func clampUnit(x float64) float64 {
	x = finite(x)
	return math.Max(unit.Min, math.Min(unit.Max, x))
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
