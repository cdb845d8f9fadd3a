package protocol

import "encoding/json"

// ObservationVersion identifies the positional observation layout.
const ObservationVersion = 1

// Message types sent by the environment.
const (
	TypeState          = "state"
	TypeResetComplete  = "reset_complete"
	TypeRestartRequest = "restart_request"
)

// Message types sent by the trainer.
const (
	TypeAction               = "action"
	TypeResetRequest         = "reset_request"
	TypeSetTimescale         = "set_timescale"
	TypeSetConfig            = "set_config"
	TypeCheckpointInfo       = "checkpoint_info"
	TypeParallelTrainingInfo = "parallel_training_info"
	TypeReadyToResume        = "ready_to_resume"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
