package obs

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/sim/body"
	"rovergym/internal/sim/sensor"
	"rovergym/internal/sim/zone"
)

var lim = Limits{ArenaWidth: 6.88, ArenaHeight: 5, MaxSpeed: 0.5, MaxAngular: 90, OrbCount: 10, Range: 3}

func TestBuildLayout(t *testing.T) {
	in := Input{
		Rover:        body.State{Position: r2.Vec{X: 3.44, Y: 2.5}, Heading: 90, AngularVelocity: -45},
		ForwardSpeed: 0.25,
		Zone:         zone.Obstacle,
		Held:         2,
		Steps:        50,
		MaxSteps:     100,
		Detection: sensor.Detection{
			Obstacles: []sensor.Detected{{Distance: 1.5, Angle: math.Pi / 2}},
			Orbs:      []sensor.Detected{{Distance: 0.3, Angle: -math.Pi / 4}, {Distance: 0.6}},
		},
	}
	v := Build(in, lim)
	if len(v) != Size {
		t.Fatalf("len=%d", len(v))
	}
	want := map[int]float64{
		0: 0.5, 1: 0.5, 2: 0.25, 3: 0.5, 4: -0.5, 5: 0.4, 6: 0.2, 7: 0.5,
		8: 0.5, 9: 0.5, 10: 1, 11: 0,
		18: 0.1, 19: -0.25, 20: 0.2, 21: 0, 22: 1, 27: 0,
	}
	for i, w := range want {
		if math.Abs(v[i]-w) > 1e-12 {
			t.Fatalf("v[%d]=%v want %v (full=%v)", i, v[i], w, v)
		}
	}
}

func TestBuildAlwaysFiniteAndBounded(t *testing.T) {
	in := Input{
		Rover:        body.State{Position: r2.Vec{X: math.NaN(), Y: math.Inf(1)}, AngularVelocity: math.Inf(-1)},
		ForwardSpeed: 10,
		MaxSteps:     0,
		Detection: sensor.Detection{
			Obstacles: []sensor.Detected{{Distance: math.NaN(), Angle: math.Inf(1)}},
		},
	}
	for _, x := range Build(in, lim) {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < -1 || x > 1 {
			t.Fatalf("entry out of range: %v", x)
		}
	}
}

func TestSanitize(t *testing.T) {
	v := Sanitize([]float64{math.NaN(), math.Inf(1), math.Inf(-1), 0.3, -7})
	want := []float64{0, 1, -1, 0.3, -1}
	for i := range want {
		if v[i] != want[i] {
			t.Fatalf("Sanitize[%d]=%v want %v", i, v[i], want[i])
		}
	}
}
