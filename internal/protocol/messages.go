package protocol

// state (env -> trainer)
type StateMsg struct {
	Type        string         `json:"type"`
	Observation []float64      `json:"observation"`
	Reward      float64        `json:"reward"`
	Done        bool           `json:"done"`
	Info        map[string]any `json:"info"`
}

// reset_complete (env -> trainer)
type ResetCompleteMsg struct {
	Type        string         `json:"type"`
	Observation []float64      `json:"observation"`
	Info        map[string]any `json:"info"`
}

// restart_request (env -> trainer)
type RestartRequestMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// action (trainer -> env): [speed, turn_rate, dig_action]
type ActionMsg struct {
	Type   string    `json:"type"`
	Action []float64 `json:"action"`
}

// reset_request (trainer -> env)
type ResetRequestMsg struct {
	Type string `json:"type"`
}

// set_timescale (trainer -> env)
type SetTimescaleMsg struct {
	Type      string  `json:"type"`
	Timescale float64 `json:"timescale"`
}

// set_config (trainer -> env). Preset names a reward curriculum stage.
type SetConfigMsg struct {
	Type            string `json:"type"`
	MaxEpisodeSteps *int   `json:"max_episode_steps,omitempty"`
	Preset          string `json:"preset,omitempty"`
}

// checkpoint_info (trainer -> env); opaque metadata.
type CheckpointInfoMsg struct {
	Type            string `json:"type"`
	CheckpointName  string `json:"checkpoint_name"`
	CheckpointSteps int64  `json:"checkpoint_steps"`
}

// parallel_training_info (trainer -> env)
type ParallelTrainingInfoMsg struct {
	Type     string `json:"type"`
	EnvCount int    `json:"env_count"`
	EnvID    int    `json:"env_id"`
}

// ready_to_resume (trainer -> env)
type ReadyToResumeMsg struct {
	Type string `json:"type"`
}
