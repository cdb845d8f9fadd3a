package reward

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

var (
	ErrNonFinite     = errors.New("non-finite reward value")
	ErrInvalidConfig = errors.New("invalid reward config")
)

// Config holds every reward weight and threshold. Values are copied into the
// engine as a whole; the engine never observes a partially updated config.
type Config struct {
	MaxEpisodeSteps  int     `yaml:"max_episode_steps" json:"max_episode_steps"`
	StepPenalty      float64 `yaml:"step_penalty" json:"step_penalty"`
	CollisionPenalty float64 `yaml:"collision_penalty" json:"collision_penalty"`

	GrabOrbReward                   float64 `yaml:"grab_orb_reward" json:"grab_orb_reward"`
	LeaveExcavationWithOrbsReward   float64 `yaml:"leave_excavation_with_orbs_reward" json:"leave_excavation_with_orbs_reward"`
	EnterConstructionWithOrbsReward float64 `yaml:"enter_construction_with_orbs_reward" json:"enter_construction_with_orbs_reward"`
	DepositBermReward               float64 `yaml:"deposit_berm_reward" json:"deposit_berm_reward"`
	DepositConstructionReward       float64 `yaml:"deposit_construction_reward" json:"deposit_construction_reward"`
	ReturnToExcavationReward        float64 `yaml:"return_to_excavation_reward" json:"return_to_excavation_reward"`

	HoldingOrbsInExcavationReward   float64 `yaml:"holding_orbs_in_excavation_reward" json:"holding_orbs_in_excavation_reward"`
	HoldingOrbsInObstacleReward     float64 `yaml:"holding_orbs_in_obstacle_reward" json:"holding_orbs_in_obstacle_reward"`
	HoldingOrbsInConstructionReward float64 `yaml:"holding_orbs_in_construction_reward" json:"holding_orbs_in_construction_reward"`

	DistanceTraveledReward   float64 `yaml:"distance_traveled_reward" json:"distance_traveled_reward"`
	LeavingStartingZoneBonus float64 `yaml:"leaving_starting_zone_bonus" json:"leaving_starting_zone_bonus"`

	DropExcavationPenalty float64 `yaml:"drop_excavation_penalty" json:"drop_excavation_penalty"`
	DropObstaclePenalty   float64 `yaml:"drop_obstacle_penalty" json:"drop_obstacle_penalty"`
	DropStartingPenalty   float64 `yaml:"drop_starting_penalty" json:"drop_starting_penalty"`
	DropNonePenalty       float64 `yaml:"drop_none_penalty" json:"drop_none_penalty"`

	IdlePenalty                float64 `yaml:"idle_penalty" json:"idle_penalty"`
	IdleSpeedThreshold         float64 `yaml:"idle_speed_threshold" json:"idle_speed_threshold"`
	StuckInStartingZonePenalty float64 `yaml:"stuck_in_starting_zone_penalty" json:"stuck_in_starting_zone_penalty"`

	BackwardMovementPenalty float64 `yaml:"backward_movement_penalty" json:"backward_movement_penalty"`
	ForwardMovementReward   float64 `yaml:"forward_movement_reward" json:"forward_movement_reward"`

	WastefulDropPenalty                   float64 `yaml:"wasteful_drop_penalty" json:"wasteful_drop_penalty"`
	WastefulDropThreshold                 int     `yaml:"wasteful_drop_threshold" json:"wasteful_drop_threshold"`
	OrbSwapReward                         float64 `yaml:"orb_swap_reward" json:"orb_swap_reward"`
	HoldingOrbsOutsideConstructionPenalty float64 `yaml:"holding_orbs_outside_construction_penalty" json:"holding_orbs_outside_construction_penalty"`
	DisableHoldingPenalty                 bool    `yaml:"disable_holding_penalty" json:"disable_holding_penalty"`

	SmoothAccelerationReward float64 `yaml:"smooth_acceleration_reward" json:"smooth_acceleration_reward"`
	SmoothTurningReward      float64 `yaml:"smooth_turning_reward" json:"smooth_turning_reward"`
	SmoothThreshold          float64 `yaml:"smooth_threshold" json:"smooth_threshold"`

	MaintainingSpeedReward    float64 `yaml:"maintaining_speed_reward" json:"maintaining_speed_reward"`
	MaintainingSpeedThreshold float64 `yaml:"maintaining_speed_threshold" json:"maintaining_speed_threshold"`
	HighSpeedReward           float64 `yaml:"high_speed_reward" json:"high_speed_reward"`
	HighSpeedThreshold        float64 `yaml:"high_speed_threshold" json:"high_speed_threshold"`

	MaintainingHeadingReward    float64 `yaml:"maintaining_heading_reward" json:"maintaining_heading_reward"`
	MaintainingHeadingThreshold float64 `yaml:"maintaining_heading_threshold" json:"maintaining_heading_threshold"`

	SpeedOscillationPenalty float64 `yaml:"speed_oscillation_penalty" json:"speed_oscillation_penalty"`
	OscillationWindow       int     `yaml:"oscillation_window" json:"oscillation_window"`

	UseShapingRewards  bool    `yaml:"use_shaping_rewards" json:"use_shaping_rewards"`
	ShapingRewardScale float64 `yaml:"shaping_reward_scale" json:"shaping_reward_scale"`
}

// DefaultConfig is the full-task curriculum stage.
func DefaultConfig() Config {
	return Config{
		MaxEpisodeSteps:  10000,
		StepPenalty:      -0.2,
		CollisionPenalty: -1000,

		GrabOrbReward:                   15,
		LeaveExcavationWithOrbsReward:   40,
		EnterConstructionWithOrbsReward: 100,
		DepositBermReward:               2000,
		DepositConstructionReward:       1000,
		ReturnToExcavationReward:        150,

		HoldingOrbsInExcavationReward:   -2,
		HoldingOrbsInObstacleReward:     -0.5,
		HoldingOrbsInConstructionReward: 5,

		DropExcavationPenalty: -150,
		DropObstaclePenalty:   -500,
		DropStartingPenalty:   -200,
		DropNonePenalty:       -200,

		IdlePenalty:                -3,
		IdleSpeedThreshold:         0.05,
		StuckInStartingZonePenalty: -8,

		BackwardMovementPenalty: -8,

		WastefulDropPenalty:                   -300,
		WastefulDropThreshold:                 2,
		OrbSwapReward:                         8,
		HoldingOrbsOutsideConstructionPenalty: -2,

		SmoothThreshold:             0.12,
		MaintainingSpeedThreshold:   0.04,
		HighSpeedThreshold:          0.65,
		MaintainingHeadingThreshold: 2.5,

		SpeedOscillationPenalty: -5,
		OscillationWindow:       3,
	}
}

// Validate rejects configs with NaN/Inf weights or unusable counts.
func (c Config) Validate() error {
	v := reflect.ValueOf(c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.Float64 {
			continue
		}
		x := f.Float()
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%s=%v: %w", t.Field(i).Tag.Get("yaml"), x, ErrNonFinite)
		}
	}
	if c.MaxEpisodeSteps <= 0 {
		return fmt.Errorf("max_episode_steps must be positive, got %d: %w", c.MaxEpisodeSteps, ErrInvalidConfig)
	}
	if c.OscillationWindow < 1 {
		return fmt.Errorf("oscillation_window must be at least 1, got %d: %w", c.OscillationWindow, ErrInvalidConfig)
	}
	if c.WastefulDropThreshold < 0 {
		return fmt.Errorf("wasteful_drop_threshold must not be negative: %w", ErrInvalidConfig)
	}
	if c.IdleSpeedThreshold < 0 {
		return fmt.Errorf("idle_speed_threshold must not be negative: %w", ErrInvalidConfig)
	}
	return nil
}
