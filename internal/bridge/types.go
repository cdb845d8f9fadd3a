package bridge

import (
	"time"

	"rovergym/internal/sim/env"
	"rovergym/internal/sim/reward"
)

type ConnState string

const (
	Disconnected ConnState = "disconnected"
	Connecting   ConnState = "connecting"
	Connected    ConnState = "connected"
)

// Environment is the part of env.Env the bridge drives. Only the apply
// loop goroutine calls it.
type Environment interface {
	Reset() []float64
	Step(env.Action) env.StepResult
	ApplyConfig(reward.Config) error
	SetMaxEpisodeSteps(int) error
}

// Presets resolves the curriculum stage names sent in set_config.
type Presets interface {
	Resolve(name string) (reward.Config, error)
}

type Config struct {
	TrainerURL     string
	TickRateHz     float64
	Timescale      float64
	BufferCapacity int
	// ActionTimeout is how long the trainer may stay silent before the
	// restart sequence runs.
	ActionTimeout time.Duration
	// HandshakeGrace suppresses stall detection right after (re)connecting.
	HandshakeGrace time.Duration
	WriteTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		TrainerURL:     "ws://localhost:8765",
		TickRateHz:     30,
		Timescale:      1,
		BufferCapacity: 3,
		ActionTimeout:  5 * time.Second,
		HandshakeGrace: 2 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// Status is a point-in-time snapshot of the bridge.
type Status struct {
	SessionID  string    `json:"session_id"`
	State      ConnState `json:"state"`
	Training   bool      `json:"training"`
	TrainerURL string    `json:"trainer_url"`

	InFlight int `json:"in_flight"`
	Buffered int `json:"buffered"`

	LastLatencyMS float64 `json:"last_latency_ms"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`

	StepsSent      uint64 `json:"steps_sent"`
	ActionsDropped uint64 `json:"actions_dropped"`
	Restarts       int    `json:"restarts"`

	CheckpointName  string `json:"checkpoint_name,omitempty"`
	CheckpointSteps int64  `json:"checkpoint_steps,omitempty"`
	EnvCount        int    `json:"env_count,omitempty"`
	EnvID           int    `json:"env_id,omitempty"`

	Timescale float64 `json:"timescale"`
	LastError string  `json:"last_error,omitempty"`
}
