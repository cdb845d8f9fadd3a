// Package reward turns consecutive rover snapshots into a scalar reward, a
// termination flag and a diagnostic info map.
package reward

import (
	"math"

	"rovergym/internal/sim/geom"
	"rovergym/internal/sim/zone"
)

// State is the per-step snapshot the engine scores. Speed is the signed
// forward speed normalized by the rover's maximum speed; Heading is degrees.
type State struct {
	OrbsHeld             int
	Zone                 zone.Zone
	X, Y                 float64
	NearestOrbDistance   float64
	ConstructionDistance float64
	Speed                float64
	Heading              float64
}

type Info map[string]any

// Stats summarizes the current episode.
type Stats struct {
	TotalReward               float64 `json:"total_reward"`
	OrbsDeposited             int     `json:"orbs_deposited"`
	OrbsDepositedConstruction int     `json:"orbs_deposited_construction"`
	OrbsDepositedBerm         int     `json:"orbs_deposited_berm"`
	ConsecutiveBadDrops       int     `json:"consecutive_bad_drops"`
}

// oscillation ignores speeds at or below this magnitude.
const oscillationDeadband = 0.1

type Engine struct {
	cfg Config

	prev          *State
	prevHeld      int
	prevZone      zone.Zone
	havePrevZone  bool
	episodeReward float64

	deposited             int
	depositedConstruction int
	depositedBerm         int

	leftStart          bool
	leftExcavationHeld bool
	enteredBuildHeld   bool

	speeds []float64

	badDrops    int
	lastDropped int
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// SetConfig swaps the whole config. An invalid config is rejected and the
// previous one stays in effect.
func (e *Engine) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

func (e *Engine) ResetEpisode() {
	cfg := e.cfg
	*e = Engine{cfg: cfg}
}

func (e *Engine) Stats() Stats {
	return Stats{
		TotalReward:               e.episodeReward,
		OrbsDeposited:             e.deposited,
		OrbsDepositedConstruction: e.depositedConstruction,
		OrbsDepositedBerm:         e.depositedBerm,
		ConsecutiveBadDrops:       e.badDrops,
	}
}

// CollisionReward is the terminal result for a collision. It bypasses the
// per-step rules; only the episode tally is updated.
func (e *Engine) CollisionReward() (float64, bool) {
	e.episodeReward += e.cfg.CollisionPenalty
	return e.cfg.CollisionPenalty, true
}

// Calculate scores the transition prev -> curr. A nil prev uses the snapshot
// retained from the previous call.
func (e *Engine) Calculate(prev *State, curr State) (float64, bool, Info) {
	if prev == nil {
		prev = e.prev
	}
	c := &e.cfg
	r := c.StepPenalty
	done := false
	info := Info{}

	inBuild := curr.Zone.Deposit()

	if curr.OrbsHeld > e.prevHeld {
		r += c.GrabOrbReward
		info["grabbed_orb"] = true
		if e.lastDropped > 0 && e.prevHeld == 0 && curr.OrbsHeld > e.lastDropped {
			net := curr.OrbsHeld - e.lastDropped
			r += c.OrbSwapReward * math.Pow(0.5, float64(net-1))
			info["orb_swap"] = true
			info["orb_swap_net_gain"] = net
			e.badDrops = 0
		}
		e.lastDropped = 0
	}

	if !e.leftExcavationHeld && prev != nil &&
		prev.Zone == zone.Excavation && curr.Zone != zone.Excavation && curr.OrbsHeld > 0 {
		r += c.LeaveExcavationWithOrbsReward
		e.leftExcavationHeld = true
		info["left_excavation_with_orbs"] = true
	}

	if !e.enteredBuildHeld && !(e.havePrevZone && e.prevZone.Deposit()) && inBuild && curr.OrbsHeld > 0 {
		r += c.EnterConstructionWithOrbsReward
		e.enteredBuildHeld = true
		info["entered_construction_with_orbs"] = true
	}

	if curr.OrbsHeld < e.prevHeld {
		e.lastDropped = e.prevHeld - curr.OrbsHeld
		dr := e.dropReward(curr.Zone)
		r += dr
		info["dropped_orb"] = true
		info["drop_zone"] = curr.Zone.String()
		info["drop_reward"] = dr

		if inBuild {
			if curr.Zone == zone.TargetBerm {
				e.depositedBerm++
			} else {
				e.depositedConstruction++
			}
			e.deposited++
			e.badDrops = 0
		} else {
			e.badDrops++
			info["bad_drop"] = true
			info["consecutive_bad_drops"] = e.badDrops
			if e.badDrops > c.WastefulDropThreshold {
				r += c.WastefulDropPenalty
				info["wasteful_drop_penalty"] = true
			}
		}
		e.leftExcavationHeld = false
		e.enteredBuildHeld = false

		if curr.Zone == zone.Obstacle {
			done = true
			info["termination_reason"] = "dropped_orb_in_obstacle_zone"
		}
	}

	if prev != nil && prev.Zone != zone.Excavation && curr.Zone == zone.Excavation &&
		e.prevHeld == 0 && e.deposited > 0 {
		r += c.ReturnToExcavationReward
		info["returned_to_excavation"] = true
	}

	if curr.OrbsHeld > 0 {
		switch {
		case curr.Zone == zone.Excavation:
			r += c.HoldingOrbsInExcavationReward
			info["holding_in_excavation"] = true
		case curr.Zone == zone.Obstacle:
			r += c.HoldingOrbsInObstacleReward
			info["holding_in_obstacle"] = true
		case inBuild:
			r += c.HoldingOrbsInConstructionReward
			info["holding_in_construction"] = true
		}
		if !c.DisableHoldingPenalty && !inBuild {
			r += c.HoldingOrbsOutsideConstructionPenalty
			info["holding_outside_construction"] = true
		}
	}

	if !e.leftStart && curr.Zone != zone.Starting {
		r += c.LeavingStartingZoneBonus
		e.leftStart = true
		info["left_starting_zone"] = true
	}
	if curr.Zone == zone.Starting {
		r += c.StuckInStartingZonePenalty
		info["stuck_in_starting"] = true
	}

	if prev != nil {
		d := math.Hypot(curr.X-prev.X, curr.Y-prev.Y)
		dr := d * c.DistanceTraveledReward
		r += dr
		if dr > 0 {
			info["distance_traveled"] = d
		}
	}

	e.speeds = append(e.speeds, curr.Speed)
	if len(e.speeds) > c.OscillationWindow {
		e.speeds = e.speeds[len(e.speeds)-c.OscillationWindow:]
	}
	if len(e.speeds) >= c.OscillationWindow && oscillating(e.speeds) {
		r += c.SpeedOscillationPenalty
		info["speed_oscillating"] = true
	}

	moving := math.Abs(curr.Speed) > c.IdleSpeedThreshold
	if prev != nil && moving {
		dv := math.Abs(curr.Speed - prev.Speed)
		dh := geom.HeadingDelta(curr.Heading, prev.Heading)

		smooth := 0.0
		if dv <= c.SmoothThreshold {
			smooth += c.SmoothAccelerationReward
		}
		if dh/360 <= c.SmoothThreshold {
			smooth += c.SmoothTurningReward
		}
		r += smooth
		if smooth > 0 {
			info["smooth_control"] = true
		}
		if dv <= c.MaintainingSpeedThreshold {
			r += c.MaintainingSpeedReward
			info["maintaining_speed"] = true
		}
		if math.Abs(curr.Speed) >= c.HighSpeedThreshold {
			r += c.HighSpeedReward
			info["high_speed"] = true
		}
		if dh <= c.MaintainingHeadingThreshold {
			r += c.MaintainingHeadingReward
			info["maintaining_heading"] = true
		}
	}

	if math.Abs(curr.Speed) < c.IdleSpeedThreshold {
		r += c.IdlePenalty
		info["idle"] = true
	}

	switch {
	case curr.Speed < -c.IdleSpeedThreshold:
		r += c.BackwardMovementPenalty
		info["moving_backward"] = true
	case curr.Speed > c.IdleSpeedThreshold:
		r += c.ForwardMovementReward
		info["moving_forward"] = true
	}

	if c.UseShapingRewards && prev != nil {
		r += e.shaping(prev, &curr)
	}

	snap := curr
	e.prev = &snap
	e.prevHeld = curr.OrbsHeld
	e.prevZone = curr.Zone
	e.havePrevZone = true
	e.episodeReward += r

	info["episode_reward"] = e.episodeReward
	info["orbs_deposited"] = e.deposited
	info["orbs_deposited_construction"] = e.depositedConstruction
	info["orbs_deposited_berm"] = e.depositedBerm
	return r, done, info
}

func (e *Engine) dropReward(z zone.Zone) float64 {
	switch z {
	case zone.TargetBerm:
		return e.cfg.DepositBermReward
	case zone.Construction:
		return e.cfg.DepositConstructionReward
	case zone.Excavation:
		return e.cfg.DropExcavationPenalty
	case zone.Obstacle:
		return e.cfg.DropObstaclePenalty
	case zone.Starting:
		return e.cfg.DropStartingPenalty
	default:
		return e.cfg.DropNonePenalty
	}
}

func (e *Engine) shaping(prev, curr *State) float64 {
	s := 0.0
	if curr.OrbsHeld == 0 && !math.IsInf(curr.NearestOrbDistance, 1) && curr.NearestOrbDistance < prev.NearestOrbDistance {
		s += e.cfg.ShapingRewardScale
	}
	if curr.OrbsHeld > 0 && curr.ConstructionDistance < prev.ConstructionDistance {
		s += e.cfg.ShapingRewardScale
	}
	return s
}

// oscillating reports full forward/backward alternation across the window.
func oscillating(speeds []float64) bool {
	if len(speeds) < 3 {
		return false
	}
	flips := 0
	for i := 1; i < len(speeds); i++ {
		a, b := speeds[i-1], speeds[i]
		if math.Abs(a) > oscillationDeadband && math.Abs(b) > oscillationDeadband && math.Signbit(a) != math.Signbit(b) {
			flips++
		}
	}
	return flips >= len(speeds)-1
}
