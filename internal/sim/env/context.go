package env

import (
	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/sim/arena"
	"rovergym/internal/sim/body"
	"rovergym/internal/sim/carry"
	"rovergym/internal/sim/obs"
	"rovergym/internal/sim/reward"
	"rovergym/internal/sim/sensor"
	"rovergym/internal/sim/zone"
)

// SimulationContext is the whole mutable state of one environment. It is
// owned by a single goroutine and handed by pointer to every step function.
type SimulationContext struct {
	Body    *body.Simulator
	Scene   arena.Scene
	Carrier *carry.Carrier
	Frustum sensor.Frustum
	Layout  zone.Layout
	Reward  *reward.Engine

	Episode   uint64
	Steps     int
	PrevDig   float64
	Zone      zone.Zone
	Detection sensor.Detection
	Hit       *body.Collision
}

func rewardState(sc *SimulationContext, maxSpeed float64) reward.State {
	st := sc.Body.State()
	_, nearest := sc.Scene.NearestUnheld(st.Position)
	return reward.State{
		OrbsHeld:             sc.Carrier.HeldCount(),
		Zone:                 sc.Zone,
		X:                    st.Position.X,
		Y:                    st.Position.Y,
		NearestOrbDistance:   nearest,
		ConstructionDistance: r2.Norm(r2.Sub(st.Position, sc.Layout.ConstructionCenter())),
		Speed:                sc.Body.ForwardSpeed() / maxSpeed,
		Heading:              st.Heading,
	}
}

func observe(sc *SimulationContext, cfg Config) []float64 {
	return obs.Build(obs.Input{
		Rover:        sc.Body.State(),
		ForwardSpeed: sc.Body.ForwardSpeed(),
		Zone:         sc.Zone,
		Held:         sc.Carrier.HeldCount(),
		Steps:        sc.Steps,
		MaxSteps:     sc.Reward.Config().MaxEpisodeSteps,
		Detection:    sc.Detection,
	}, obs.Limits{
		ArenaWidth:  sc.Layout.Arena.Size().X,
		ArenaHeight: sc.Layout.Arena.Size().Y,
		MaxSpeed:    cfg.MaxSpeed,
		MaxAngular:  cfg.MaxAngularRate,
		OrbCount:    cfg.Scene.OrbCount,
		Range:       sc.Frustum.Range(cfg.RoverLength / 2),
	})
}

func sense(sc *SimulationContext) {
	st := sc.Body.State()
	sc.Zone = sc.Layout.Classify(st.Position)
	sc.Detection = sc.Frustum.Detect(sc.Body.Footprint(), sc.Scene.Obstacles, sc.Scene.Orbs)
}
