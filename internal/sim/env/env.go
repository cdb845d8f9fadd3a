// Package env runs the rover episode loop: reset, step, reward and
// observation, on top of the sim packages.
package env

import (
	"math/rand/v2"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r2"

	"rovergym/internal/events"
	"rovergym/internal/sim/arena"
	"rovergym/internal/sim/body"
	"rovergym/internal/sim/carry"
	"rovergym/internal/sim/geom"
	"rovergym/internal/sim/reward"
	"rovergym/internal/sim/sensor"
	"rovergym/internal/sim/zone"
)

type Config struct {
	// StepRateHz fixes the simulated time per step (dt = 1/StepRateHz).
	StepRateHz float64
	Seed       uint64

	RoverLength    float64
	RoverWidth     float64
	BoundaryMargin float64
	MaxSpeed       float64 // m/s
	MaxAngularRate float64 // deg/s
	Spawn          body.Pose

	Scene   arena.Params
	Bucket  carry.Bucket
	Frustum sensor.Frustum
}

func DefaultConfig() Config {
	return Config{
		StepRateHz:     30,
		Seed:           1337,
		RoverLength:    1.5,
		RoverWidth:     0.75,
		BoundaryMargin: 0.02,
		MaxSpeed:       1.0,
		MaxAngularRate: 90,
		Spawn:          body.Pose{Position: r2.Vec{X: 1, Y: 1}},
		Scene:          arena.DefaultParams(),
		Bucket:         carry.DefaultBucket(),
		Frustum:        sensor.Frustum{NearWidth: 0.75, FarWidth: 2.0, Depth: 2.0},
	}
}

type StepResult struct {
	Observation []float64
	Reward      float64
	Done        bool
	Info        map[string]any
}

// EpisodeStats is the running summary of the current episode.
type EpisodeStats struct {
	Episode uint64 `json:"episode"`
	Steps   int    `json:"steps"`
	reward.Stats
}

type Env struct {
	cfg Config
	sc  *SimulationContext
	src rand.Source

	pending *reward.Config

	bus *events.Bus
	log zerolog.Logger
}

func New(cfg Config, rc reward.Config, bus *events.Bus, log zerolog.Logger) (*Env, error) {
	eng, err := reward.NewEngine(rc)
	if err != nil {
		return nil, err
	}
	layout := zone.DefaultLayout()
	sim := body.New(body.Config{
		Length: cfg.RoverLength,
		Width:  cfg.RoverWidth,
		Bounds: layout.Arena,
		Margin: cfg.BoundaryMargin,
	})
	e := &Env{
		cfg: cfg,
		src: rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15),
		bus: bus,
		log: log.With().Str("component", "env").Logger(),
		sc: &SimulationContext{
			Body:    sim,
			Carrier: carry.New(cfg.Bucket),
			Frustum: cfg.Frustum,
			Layout:  layout,
			Reward:  eng,
		},
	}
	sim.OnCollision(func(c body.Collision) {
		hit := c
		e.sc.Hit = &hit
	})
	return e, nil
}

// Context exposes the simulation state for read-only inspection.
func (e *Env) Context() *SimulationContext { return e.sc }

// Reset starts a new episode and returns its first observation. A staged
// reward config takes effect here.
func (e *Env) Reset() []float64 {
	sc := e.sc
	if e.pending != nil {
		// Already validated in ApplyConfig.
		_ = sc.Reward.SetConfig(*e.pending)
		e.pending = nil
	}
	sc.Reward.ResetEpisode()

	sc.Scene = arena.Generate(e.src, e.cfg.Scene, sc.Layout)
	sc.Body.ClearCollidables()
	sc.Body.Register(sc.Scene.Obstacles...)
	sc.Body.ResetBody(e.cfg.Spawn)
	sc.Carrier.Attach(&sc.Scene)

	sc.Episode++
	sc.Steps = 0
	sc.PrevDig = 0
	sc.Hit = nil
	sense(sc)

	e.log.Debug().
		Uint64("episode", sc.Episode).
		Int("obstacles", len(sc.Scene.Obstacles)).
		Int("orbs", len(sc.Scene.Orbs)).
		Msg("episode reset")
	return observe(sc, e.cfg)
}

// Step applies one action for one fixed time step.
func (e *Env) Step(a Action) StepResult {
	sc := e.sc
	a = a.Sanitized()

	st := sc.Body.State()
	v := r2.Scale(a.Speed*e.cfg.MaxSpeed, geom.Forward(st.Heading))
	sc.Body.SetVelocity(v.X, v.Y)
	sc.Body.SetAngularVelocity(a.TurnRate * e.cfg.MaxAngularRate)

	if sc.PrevDig < DigThreshold && a.Dig >= DigThreshold {
		grabbed, released := sc.Carrier.Toggle(st)
		e.log.Debug().Int("grabbed", grabbed).Int("released", released).Msg("dig toggled")
	}
	sc.PrevDig = a.Dig

	prevZone := sc.Zone
	sc.Body.Advance(1 / e.cfg.StepRateHz)
	sc.Carrier.Update(sc.Body.State())
	sc.Steps++
	sense(sc)

	if sc.Zone != prevZone {
		e.bus.Publish(events.Event{
			Kind:    events.ZoneChanged,
			Episode: sc.Episode,
			Step:    sc.Steps,
			From:    prevZone.String(),
			To:      sc.Zone.String(),
		})
	}

	var (
		r    float64
		done bool
		info map[string]any
	)
	if sc.Hit != nil {
		r, done = sc.Reward.CollisionReward()
		info = map[string]any{
			"collision":          true,
			"collision_object":   sc.Hit.Name,
			"termination_reason": "collision",
		}
		e.bus.Publish(events.Event{
			Kind:    events.Collision,
			Episode: sc.Episode,
			Step:    sc.Steps,
			Reason:  string(sc.Hit.Kind),
			Detail:  map[string]any{"object": sc.Hit.Name},
		})
	} else {
		r, done, info = sc.Reward.Calculate(nil, rewardState(sc, e.cfg.MaxSpeed))
	}

	if !done && sc.Steps >= sc.Reward.Config().MaxEpisodeSteps {
		done = true
		info["truncated"] = true
		info["timeout"] = true
		info["termination_reason"] = "max_steps"
	}

	info["zone"] = sc.Zone.String()
	info["steps"] = sc.Steps
	info["orbs_held"] = sc.Carrier.HeldCount()
	info["episode"] = sc.Episode

	if done {
		stats := sc.Reward.Stats()
		info["episode_length"] = sc.Steps
		info["total_reward"] = stats.TotalReward
		info["orbs_collected"] = stats.OrbsDeposited
		reason, _ := info["termination_reason"].(string)
		e.bus.Publish(events.Event{
			Kind:    events.EpisodeEnd,
			Episode: sc.Episode,
			Step:    sc.Steps,
			Reason:  reason,
			Reward:  stats.TotalReward,
		})
		e.log.Info().
			Uint64("episode", sc.Episode).
			Int("steps", sc.Steps).
			Float64("total_reward", stats.TotalReward).
			Int("orbs_deposited", stats.OrbsDeposited).
			Str("reason", reason).
			Msg("episode finished")
	}

	return StepResult{
		Observation: observe(sc, e.cfg),
		Reward:      r,
		Done:        done,
		Info:        info,
	}
}

// ApplyConfig validates and stages a reward config for the next Reset.
func (e *Env) ApplyConfig(cfg reward.Config) error {
	if err := cfg.Validate(); err != nil {
		e.log.Warn().Err(err).Msg("reward config rejected")
		e.bus.Publish(events.Event{Kind: events.ConfigRejected, Reason: err.Error()})
		return err
	}
	e.pending = &cfg
	return nil
}

// SetMaxEpisodeSteps stages a change of the episode length limit.
func (e *Env) SetMaxEpisodeSteps(n int) error {
	cfg := e.sc.Reward.Config()
	if e.pending != nil {
		cfg = *e.pending
	}
	cfg.MaxEpisodeSteps = n
	return e.ApplyConfig(cfg)
}

func (e *Env) Stats() EpisodeStats {
	return EpisodeStats{Episode: e.sc.Episode, Steps: e.sc.Steps, Stats: e.sc.Reward.Stats()}
}

func (e *Env) Zone() zone.Zone { return e.sc.Zone }

func (e *Env) Detection() sensor.Detection { return e.sc.Detection }
