package reward

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"rovergym/internal/sim/zone"
)

func quietConfig() Config {
	return Config{
		MaxEpisodeSteps:             100,
		IdleSpeedThreshold:          0.05,
		WastefulDropThreshold:       2,
		SmoothThreshold:             0.12,
		MaintainingSpeedThreshold:   0.04,
		HighSpeedThreshold:          0.65,
		MaintainingHeadingThreshold: 2.5,
		OscillationWindow:           3,
	}
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func at(z zone.Zone, held int) State {
	return State{Zone: z, OrbsHeld: held, NearestOrbDistance: math.Inf(1), ConstructionDistance: 3}
}

func TestGrabRewardedOnce(t *testing.T) {
	cfg := quietConfig()
	cfg.GrabOrbReward = 10
	e := mustEngine(t, cfg)

	if r, _, _ := e.Calculate(nil, at(zone.Excavation, 0)); r != 0 {
		t.Fatalf("idle step reward=%v", r)
	}
	r, _, info := e.Calculate(nil, at(zone.Excavation, 2))
	if r != 10 || info["grabbed_orb"] != true {
		t.Fatalf("grab reward=%v info=%v", r, info)
	}
	if r, _, _ := e.Calculate(nil, at(zone.Excavation, 2)); r != 0 {
		t.Fatalf("holding steady should not re-reward the grab, got %v", r)
	}
}

func TestLeaveExcavationLatchedPerCycle(t *testing.T) {
	cfg := quietConfig()
	cfg.LeaveExcavationWithOrbsReward = 40
	e := mustEngine(t, cfg)

	seq := []struct {
		s    State
		want float64
	}{
		{at(zone.Excavation, 1), 0},
		{at(zone.Obstacle, 1), 40},
		{at(zone.Excavation, 1), 0},
		{at(zone.Obstacle, 1), 0},
		{at(zone.Excavation, 1), 0},
		{at(zone.Excavation, 0), 0}, // drop clears the latch
		{at(zone.Excavation, 1), 0},
		{at(zone.Obstacle, 1), 40},
	}
	for i, step := range seq {
		r, _, _ := e.Calculate(nil, step.s)
		if r != step.want {
			t.Fatalf("step %d: reward=%v want %v", i, r, step.want)
		}
	}
}

func TestExcavationThroughNoneToConstruction(t *testing.T) {
	cfg := quietConfig()
	cfg.LeaveExcavationWithOrbsReward = 40
	cfg.EnterConstructionWithOrbsReward = 100
	e := mustEngine(t, cfg)

	seq := []struct {
		s    State
		want float64
	}{
		{at(zone.Excavation, 2), 0},
		{at(zone.None, 2), 40},
		{at(zone.None, 2), 0},
		{at(zone.Construction, 2), 100},
		{at(zone.None, 2), 0},
		{at(zone.Construction, 2), 0},
	}
	var left, entered int
	for i, step := range seq {
		r, _, info := e.Calculate(nil, step.s)
		if r != step.want {
			t.Fatalf("step %d: reward=%v want %v (info=%v)", i, r, step.want, info)
		}
		if info["left_excavation_with_orbs"] == true {
			left++
		}
		if info["entered_construction_with_orbs"] == true {
			entered++
		}
	}
	if left != 1 || entered != 1 {
		t.Fatalf("left_excavation_with_orbs=%d entered_construction_with_orbs=%d, want 1 each", left, entered)
	}
}

func TestEnterConstructionLatch(t *testing.T) {
	cfg := quietConfig()
	cfg.EnterConstructionWithOrbsReward = 100
	e := mustEngine(t, cfg)

	e.Calculate(nil, at(zone.Obstacle, 2))
	if r, _, _ := e.Calculate(nil, at(zone.Construction, 2)); r != 100 {
		t.Fatalf("entering construction with orbs: %v", r)
	}
	if r, _, _ := e.Calculate(nil, at(zone.TargetBerm, 2)); r != 0 {
		t.Fatalf("moving from construction into the berm is not a new entry: %v", r)
	}
	e.Calculate(nil, at(zone.Obstacle, 2))
	if r, _, _ := e.Calculate(nil, at(zone.Construction, 2)); r != 0 {
		t.Fatalf("latch should hold until a drop: %v", r)
	}
}

func TestBermDepositUpdatesCounters(t *testing.T) {
	cfg := quietConfig()
	cfg.DepositBermReward = 2000
	cfg.ReturnToExcavationReward = 150
	e := mustEngine(t, cfg)

	e.Calculate(nil, at(zone.TargetBerm, 3))
	r, done, info := e.Calculate(nil, at(zone.TargetBerm, 0))
	if r != 2000 || done {
		t.Fatalf("berm deposit reward=%v done=%v", r, done)
	}
	if info["drop_zone"] != "TARGET_BERM" {
		t.Fatalf("drop_zone=%v", info["drop_zone"])
	}
	st := e.Stats()
	if st.OrbsDeposited != 1 || st.OrbsDepositedBerm != 1 || st.OrbsDepositedConstruction != 0 {
		t.Fatalf("stats=%+v", st)
	}

	e.Calculate(nil, at(zone.Obstacle, 0))
	r, _, info = e.Calculate(nil, at(zone.Excavation, 0))
	if r != 150 || info["returned_to_excavation"] != true {
		t.Fatalf("return to excavation reward=%v info=%v", r, info)
	}
}

func TestObstacleDropTerminates(t *testing.T) {
	cfg := quietConfig()
	cfg.DropObstaclePenalty = -500
	e := mustEngine(t, cfg)

	e.Calculate(nil, at(zone.Obstacle, 1))
	r, done, info := e.Calculate(nil, at(zone.Obstacle, 0))
	if !done || r != -500 {
		t.Fatalf("obstacle drop reward=%v done=%v", r, done)
	}
	if info["termination_reason"] != "dropped_orb_in_obstacle_zone" {
		t.Fatalf("termination_reason=%v", info["termination_reason"])
	}
}

func TestWastefulDropAfterThreshold(t *testing.T) {
	cfg := quietConfig()
	cfg.WastefulDropPenalty = -300
	e := mustEngine(t, cfg)

	var rewards []float64
	for i := 0; i < 3; i++ {
		e.Calculate(nil, at(zone.Excavation, 1))
		r, _, _ := e.Calculate(nil, at(zone.Excavation, 0))
		rewards = append(rewards, r)
	}
	if rewards[0] != 0 || rewards[1] != 0 || rewards[2] != -300 {
		t.Fatalf("drop rewards=%v, want penalty only on the third bad drop", rewards)
	}
	if e.Stats().ConsecutiveBadDrops != 3 {
		t.Fatalf("bad drops=%d", e.Stats().ConsecutiveBadDrops)
	}
}

func TestOrbSwapResetsBadDrops(t *testing.T) {
	cfg := quietConfig()
	cfg.OrbSwapReward = 8
	e := mustEngine(t, cfg)

	e.Calculate(nil, at(zone.Excavation, 1))
	e.Calculate(nil, at(zone.Excavation, 0))
	r, _, info := e.Calculate(nil, at(zone.Excavation, 3))
	if r != 4 || info["orb_swap_net_gain"] != 2 {
		t.Fatalf("swap reward=%v info=%v", r, info)
	}
	if e.Stats().ConsecutiveBadDrops != 0 {
		t.Fatalf("swap should reset bad drops")
	}
}

func TestSwapNotCountedWithoutNetGain(t *testing.T) {
	cfg := quietConfig()
	cfg.OrbSwapReward = 8
	e := mustEngine(t, cfg)

	e.Calculate(nil, at(zone.Excavation, 2))
	e.Calculate(nil, at(zone.Excavation, 0))
	r, _, info := e.Calculate(nil, at(zone.Excavation, 2))
	if r != 0 || info["orb_swap"] != nil {
		t.Fatalf("equal pickup must not count as a swap: r=%v info=%v", r, info)
	}
	if e.Stats().ConsecutiveBadDrops != 1 {
		t.Fatalf("bad drop counter should be kept")
	}
}

func TestSpeedOscillation(t *testing.T) {
	cfg := quietConfig()
	cfg.SpeedOscillationPenalty = -5
	e := mustEngine(t, cfg)

	moving := func(v float64) State {
		s := at(zone.Obstacle, 0)
		s.Speed = v
		return s
	}
	e.Calculate(nil, moving(0.5))
	e.Calculate(nil, moving(-0.5))
	r, _, info := e.Calculate(nil, moving(0.5))
	if r != -5 || info["speed_oscillating"] != true {
		t.Fatalf("alternating speeds: r=%v info=%v", r, info)
	}

	e.ResetEpisode()
	e.Calculate(nil, moving(0.5))
	e.Calculate(nil, moving(0.05))
	if r, _, _ := e.Calculate(nil, moving(-0.5)); r != 0 {
		t.Fatalf("near-zero speed must break the oscillation pattern, got %v", r)
	}
}

func TestIdleAndDirection(t *testing.T) {
	cfg := quietConfig()
	cfg.IdlePenalty = -3
	cfg.BackwardMovementPenalty = -8
	cfg.ForwardMovementReward = 1
	e := mustEngine(t, cfg)

	s := at(zone.Obstacle, 0)
	if r, _, _ := e.Calculate(nil, s); r != -3 {
		t.Fatalf("idle reward=%v", r)
	}
	s.Speed = -0.3
	if r, _, _ := e.Calculate(nil, s); r != -8 {
		t.Fatalf("backward reward=%v", r)
	}
	s.Speed = 0.3
	if r, _, _ := e.Calculate(nil, s); r != 1 {
		t.Fatalf("forward reward=%v", r)
	}
}

func TestSmoothTurningWrapsHeading(t *testing.T) {
	cfg := quietConfig()
	cfg.MaintainingHeadingReward = 1
	e := mustEngine(t, cfg)

	a := at(zone.Obstacle, 0)
	a.Speed, a.Heading = 0.3, 359
	b := a
	b.Heading = 1
	e.Calculate(nil, a)
	if r, _, _ := e.Calculate(nil, b); r != 1 {
		t.Fatalf("359 -> 1 is a 2 degree change, reward=%v", r)
	}
}

func TestShapingTowardTargets(t *testing.T) {
	cfg := quietConfig()
	cfg.UseShapingRewards = true
	cfg.ShapingRewardScale = 2
	e := mustEngine(t, cfg)

	s := at(zone.Excavation, 0)
	s.NearestOrbDistance = 1.0
	e.Calculate(nil, s)
	s.NearestOrbDistance = 0.8
	if r, _, _ := e.Calculate(nil, s); r != 2 {
		t.Fatalf("approaching an orb: %v", r)
	}
	s.NearestOrbDistance = 0.9
	if r, _, _ := e.Calculate(nil, s); r != 0 {
		t.Fatalf("moving away from an orb: %v", r)
	}
}

func TestCollisionReward(t *testing.T) {
	e := mustEngine(t, DefaultConfig())
	r, done := e.CollisionReward()
	if r != -1000 || !done {
		t.Fatalf("CollisionReward=(%v,%v)", r, done)
	}
	if e.Stats().TotalReward != -1000 {
		t.Fatalf("collision should be tallied")
	}
}

func TestSetConfigRejectsNonFinite(t *testing.T) {
	e := mustEngine(t, DefaultConfig())
	bad := DefaultConfig()
	bad.GrabOrbReward = math.NaN()
	err := e.SetConfig(bad)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	if e.Config().GrabOrbReward != 15 {
		t.Fatalf("previous config must stay in effect")
	}
	bad = DefaultConfig()
	bad.MaxEpisodeSteps = 0
	if err := e.SetConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestDeterministic(t *testing.T) {
	seq := []State{
		{Zone: zone.Starting, Speed: 0.2, Heading: 10, X: 1, Y: 1, NearestOrbDistance: 2, ConstructionDistance: 4},
		{Zone: zone.Excavation, Speed: 0.4, Heading: 12, X: 1.2, Y: 1.5, NearestOrbDistance: 1.5, ConstructionDistance: 4},
		{Zone: zone.Excavation, OrbsHeld: 2, Speed: -0.3, Heading: 40, X: 1.3, Y: 2.5, NearestOrbDistance: 1, ConstructionDistance: 4.2},
		{Zone: zone.Obstacle, OrbsHeld: 2, Speed: 0.7, Heading: 41, X: 2.6, Y: 2, NearestOrbDistance: 1, ConstructionDistance: 3},
		{Zone: zone.Construction, OrbsHeld: 2, Speed: 0.7, Heading: 41, X: 4.5, Y: 1, NearestOrbDistance: 2, ConstructionDistance: 1},
		{Zone: zone.Construction, OrbsHeld: 0, Speed: 0, Heading: 41, X: 4.5, Y: 1, NearestOrbDistance: 2, ConstructionDistance: 1},
	}
	cfg := DefaultConfig()
	cfg.UseShapingRewards = true
	cfg.ShapingRewardScale = 1
	a := mustEngine(t, cfg)
	b := mustEngine(t, cfg)
	for i, s := range seq {
		ra, da, ia := a.Calculate(nil, s)
		rb, db, ib := b.Calculate(nil, s)
		if math.Float64bits(ra) != math.Float64bits(rb) || da != db || !reflect.DeepEqual(ia, ib) {
			t.Fatalf("step %d diverged: %v/%v %v/%v", i, ra, rb, da, db)
		}
	}
}

func TestResetEpisodeClearsState(t *testing.T) {
	cfg := quietConfig()
	cfg.GrabOrbReward = 10
	e := mustEngine(t, cfg)
	e.Calculate(nil, at(zone.Excavation, 2))
	e.ResetEpisode()
	if e.Stats() != (Stats{}) {
		t.Fatalf("stats not cleared: %+v", e.Stats())
	}
	if r, _, _ := e.Calculate(nil, at(zone.Excavation, 2)); r != 10 {
		t.Fatalf("held count should restart from zero after reset, got %v", r)
	}
	if e.Config().GrabOrbReward != 10 {
		t.Fatalf("reset must keep the config")
	}
}
