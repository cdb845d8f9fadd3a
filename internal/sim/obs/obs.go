// Package obs flattens the rover's situation into the fixed-length vector
// sent to the trainer.
//
// Layout (Version 1):
//
//	0  x / arena width
//	1  y / arena height
//	2  heading / 360
//	3  forward speed / max speed
//	4  angular velocity / max angular velocity
//	5  zone index / 5
//	6  orbs held / orb count
//	7  steps / max episode steps
//	8..17   five obstacles, (distance / range, angle / pi), closest first
//	18..27  five orbs, same encoding
//
// Empty slots are (1, 0). Every entry is finite and within [-1, 1].
package obs

import (
	"math"

	"rovergym/internal/sim/body"
	"rovergym/internal/sim/sensor"
	"rovergym/internal/sim/zone"
)

const (
	Version      = 1
	Size         = 28
	MaxObstacles = 5
	MaxOrbs      = 5

	scalars = 8
)

type Limits struct {
	ArenaWidth  float64
	ArenaHeight float64
	MaxSpeed    float64
	MaxAngular  float64
	OrbCount    int
	Range       float64
}

type Input struct {
	Rover        body.State
	ForwardSpeed float64
	Zone         zone.Zone
	Held         int
	Steps        int
	MaxSteps     int
	Detection    sensor.Detection
}

func Build(in Input, lim Limits) []float64 {
	v := make([]float64, Size)
	v[0] = ratio(in.Rover.Position.X, lim.ArenaWidth)
	v[1] = ratio(in.Rover.Position.Y, lim.ArenaHeight)
	v[2] = in.Rover.Heading / 360
	v[3] = ratio(in.ForwardSpeed, lim.MaxSpeed)
	v[4] = ratio(in.Rover.AngularVelocity, lim.MaxAngular)
	v[5] = float64(in.Zone.Index()) / float64(zone.Count-1)
	v[6] = ratio(float64(in.Held), float64(lim.OrbCount))
	v[7] = ratio(float64(in.Steps), float64(in.MaxSteps))

	fill(v[scalars:scalars+2*MaxObstacles], in.Detection.Obstacles, lim.Range)
	fill(v[scalars+2*MaxObstacles:], in.Detection.Orbs, lim.Range)
	return Sanitize(v)
}

func fill(dst []float64, ds []sensor.Detected, rng float64) {
	for i := 0; i < len(dst)/2; i++ {
		if i >= len(ds) {
			dst[2*i] = 1
			dst[2*i+1] = 0
			continue
		}
		dst[2*i] = ratio(ds[i].Distance, rng)
		dst[2*i+1] = ds[i].Angle / math.Pi
	}
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Sanitize replaces NaN with 0, maps infinities to +-1 and clamps the rest
// into [-1, 1]. It modifies v in place and returns it.
func Sanitize(v []float64) []float64 {
	for i, x := range v {
		switch {
		case math.IsNaN(x):
			v[i] = 0
		case x > 1:
			v[i] = 1
		case x < -1:
			v[i] = -1
		}
	}
	return v
}
