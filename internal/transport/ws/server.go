// Package ws is the trainer half of the rover protocol: it accepts the
// simulator's websocket, answers every observation with an action from a
// Policy and asks for a reset after each finished episode.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"rovergym/internal/protocol"
)

// Policy maps an observation to [speed, turn_rate, dig_action].
type Policy interface {
	Act(observation []float64) []float64
}

// Options are announced to the simulator right after it connects.
type Options struct {
	Timescale       float64
	CheckpointName  string
	CheckpointSteps int64
	EnvCount        int
	EnvID           int
	Preset          string
	MaxEpisodeSteps int
}

type Stats struct {
	Connections int64 `json:"connections"`
	States      int64 `json:"states"`
	Episodes    int64 `json:"episodes"`
	Restarts    int64 `json:"restarts"`
}

type Server struct {
	policy Policy
	opts   Options
	valid  *protocol.Validator
	log    zerolog.Logger

	upgrader websocket.Upgrader

	mu     sync.Mutex
	active *websocket.Conn

	connections atomic.Int64
	states      atomic.Int64
	episodes    atomic.Int64
	restarts    atomic.Int64
}

func NewServer(p Policy, opts Options, logger zerolog.Logger) (*Server, error) {
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Server{
		policy: p,
		opts:   opts,
		valid:  v,
		log:    logger.With().Str("component", "trainer").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}, nil
}

func (s *Server) Stats() Stats {
	return Stats{
		Connections: s.connections.Load(),
		States:      s.states.Load(),
		Episodes:    s.episodes.Load(),
		Restarts:    s.restarts.Load(),
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.connections.Add(1)
		s.replaceActive(conn)
		defer s.clearActive(conn)
		s.log.Info().Str("remote", r.RemoteAddr).Msg("simulator connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 16)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for _, m := range s.greeting() {
			if !enqueue(ctx, out, m) {
				return
			}
		}

		// Reader loop.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				s.log.Info().Err(err).Msg("simulator disconnected")
				return
			}
			base, err := s.valid.Validate(msg)
			if err != nil {
				s.log.Warn().Err(err).Msg("ignoring simulator message")
				continue
			}
			for _, reply := range s.handle(base.Type, msg) {
				if !enqueue(ctx, out, reply) {
					return
				}
			}
		}
	}
}

func (s *Server) greeting() []any {
	var msgs []any
	if s.opts.Timescale > 0 {
		msgs = append(msgs, protocol.SetTimescaleMsg{Type: protocol.TypeSetTimescale, Timescale: s.opts.Timescale})
	}
	if s.opts.CheckpointName != "" {
		msgs = append(msgs, protocol.CheckpointInfoMsg{
			Type:            protocol.TypeCheckpointInfo,
			CheckpointName:  s.opts.CheckpointName,
			CheckpointSteps: s.opts.CheckpointSteps,
		})
	}
	if s.opts.EnvCount > 0 {
		msgs = append(msgs, protocol.ParallelTrainingInfoMsg{
			Type:     protocol.TypeParallelTrainingInfo,
			EnvCount: s.opts.EnvCount,
			EnvID:    s.opts.EnvID,
		})
	}
	if s.opts.Preset != "" || s.opts.MaxEpisodeSteps > 0 {
		sc := protocol.SetConfigMsg{Type: protocol.TypeSetConfig, Preset: s.opts.Preset}
		if s.opts.MaxEpisodeSteps > 0 {
			n := s.opts.MaxEpisodeSteps
			sc.MaxEpisodeSteps = &n
		}
		msgs = append(msgs, sc)
	}
	return msgs
}

// handle returns the replies to one validated simulator message.
func (s *Server) handle(typ string, raw []byte) []any {
	switch typ {
	case protocol.TypeResetComplete:
		var m protocol.ResetCompleteMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil
		}
		return []any{s.action(m.Observation)}

	case protocol.TypeState:
		var m protocol.StateMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil
		}
		s.states.Add(1)
		replies := []any{s.action(m.Observation)}
		if m.Done {
			s.episodes.Add(1)
			s.log.Debug().Float64("reward", m.Reward).Interface("reason", m.Info["termination_reason"]).Msg("episode finished")
			replies = append(replies, protocol.ResetRequestMsg{Type: protocol.TypeResetRequest})
		}
		return replies

	case protocol.TypeRestartRequest:
		var m protocol.RestartRequestMsg
		_ = json.Unmarshal(raw, &m)
		s.restarts.Add(1)
		s.log.Warn().Str("reason", m.Reason).Msg("simulator requested a restart")
		return nil
	}
	return nil
}

func (s *Server) action(observation []float64) protocol.ActionMsg {
	return protocol.ActionMsg{Type: protocol.TypeAction, Action: s.policy.Act(observation)}
}

// replaceActive keeps one simulator connection; a newcomer closes the
// previous one.
func (s *Server) replaceActive(conn *websocket.Conn) {
	s.mu.Lock()
	prev := s.active
	s.active = conn
	s.mu.Unlock()
	if prev != nil {
		s.log.Info().Msg("closing previous simulator connection")
		_ = prev.Close()
	}
}

func (s *Server) clearActive(conn *websocket.Conn) {
	s.mu.Lock()
	if s.active == conn {
		s.active = nil
	}
	s.mu.Unlock()
}

func enqueue(ctx context.Context, out chan<- []byte, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
