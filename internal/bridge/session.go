// Package bridge connects the rover environment to a remote trainer over a
// websocket. The trainer sends actions; the bridge steps the environment at
// a fixed rate and streams states back, keeping at most a few states in
// flight.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"rovergym/internal/events"
	"rovergym/internal/protocol"
	"rovergym/internal/sim/env"
	"rovergym/internal/telemetry"
)

var (
	ErrAlreadyTraining = errors.New("training already running")
	errNotConnected    = errors.New("not connected")
)

type Deps struct {
	Presets Presets
	Bus     *events.Bus
	Metrics *telemetry.Metrics
	Log     zerolog.Logger
}

// control is a trainer message (or a read failure) handed from a reader
// goroutine to the apply loop.
type control struct {
	gen uint64
	msg any
	err error
}

type Session struct {
	cfg     Config
	env     Environment
	presets Presets
	valid   *protocol.Validator
	bus     *events.Bus
	metrics *telemetry.Metrics
	log     zerolog.Logger
	id      string

	buf  *ActionBuffer
	ctrl chan control

	mu           sync.RWMutex
	state        ConnState
	training     bool
	lastErr      string
	timescale    float64
	restarts     int
	stepsSent    uint64
	dropped      uint64
	checkpoint   protocol.CheckpointInfoMsg
	parallel     protocol.ParallelTrainingInfoMsg
	latency      latencyRing
	lastSentAt   time.Time
	lastActionAt time.Time
	conn         *websocket.Conn
	gen          uint64
	cancel       context.CancelFunc
	done         chan struct{}

	writeMu sync.Mutex
	readers sync.WaitGroup

	// Owned by the apply loop.
	lastAction  env.Action
	awaitReset  bool
	connectedAt time.Time
}

func NewSession(cfg Config, e Environment, deps Deps) (*Session, error) {
	def := DefaultConfig()
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = def.TickRateHz
	}
	if cfg.Timescale <= 0 {
		cfg.Timescale = def.Timescale
	}
	if cfg.BufferCapacity < 1 {
		cfg.BufferCapacity = def.BufferCapacity
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = def.ActionTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("protocol schemas: %w", err)
	}
	id := uuid.NewString()
	return &Session{
		cfg:       cfg,
		env:       e,
		presets:   deps.Presets,
		valid:     v,
		bus:       deps.Bus,
		metrics:   deps.Metrics.WithSession(id),
		log:       deps.Log.With().Str("component", "bridge").Str("session", id).Logger(),
		id:        id,
		buf:       NewActionBuffer(cfg.BufferCapacity),
		ctrl:      make(chan control, 64),
		state:     Disconnected,
		timescale: cfg.Timescale,
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		SessionID:       s.id,
		State:           s.state,
		Training:        s.training,
		TrainerURL:      s.cfg.TrainerURL,
		InFlight:        s.buf.Pending(),
		Buffered:        s.buf.Len(),
		LastLatencyMS:   s.latency.last,
		AvgLatencyMS:    s.latency.avg(),
		StepsSent:       s.stepsSent,
		ActionsDropped:  s.dropped,
		Restarts:        s.restarts,
		CheckpointName:  s.checkpoint.CheckpointName,
		CheckpointSteps: s.checkpoint.CheckpointSteps,
		EnvCount:        s.parallel.EnvCount,
		EnvID:           s.parallel.EnvID,
		Timescale:       s.timescale,
		LastError:       s.lastErr,
	}
}

// StartTraining dials the trainer, resets the environment, announces it with
// reset_complete and starts the apply loop. ctx only bounds the dial; the
// loop runs until StopTraining or a connection error.
func (s *Session) StartTraining(ctx context.Context) error {
	s.mu.Lock()
	if s.training {
		s.mu.Unlock()
		return ErrAlreadyTraining
	}
	s.training = true
	prevCancel := s.cancel
	s.mu.Unlock()
	if prevCancel != nil {
		prevCancel()
	}

	s.buf.Reset(0)
	s.setState(Connecting, "")
	conn, err := s.dial(ctx)
	if err != nil {
		s.mu.Lock()
		s.training = false
		s.mu.Unlock()
		s.setState(Disconnected, err.Error())
		return fmt.Errorf("dial trainer: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	gen := s.attach(conn)
	go s.readLoop(loopCtx, conn, gen)

	if err := s.resetEpisode(); err != nil {
		cancel()
		s.detach()
		s.mu.Lock()
		s.training = false
		s.mu.Unlock()
		s.setState(Disconnected, err.Error())
		close(done)
		return err
	}
	s.setState(Connected, "")
	s.bus.Publish(events.Event{Kind: events.TrainingStatus, To: "started"})
	s.log.Info().Str("trainer", s.cfg.TrainerURL).Msg("training started")

	go s.applyLoop(loopCtx, done)
	return nil
}

// StopTraining halts the loop, drops buffered actions and counters and
// closes the connection. It is safe to call at any time.
func (s *Session) StopTraining() {
	s.mu.Lock()
	cancel, done, wasTraining := s.cancel, s.done, s.training
	s.cancel = nil
	s.training = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	s.detach()
	s.readers.Wait()
	s.buf.Reset(0)

	s.mu.Lock()
	s.latency = latencyRing{}
	s.lastSentAt = time.Time{}
	s.mu.Unlock()
	s.setState(Disconnected, "")
	if wasTraining {
		s.bus.Publish(events.Event{Kind: events.TrainingStatus, To: "stopped"})
		s.log.Info().Msg("training stopped")
	}
}

func (s *Session) interval() time.Duration {
	s.mu.RLock()
	ts := s.timescale
	s.mu.RUnlock()
	d := time.Duration(float64(time.Second) / (s.cfg.TickRateHz * ts))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

func (s *Session) applyLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-s.ctrl:
			if !s.handleControl(ctx, c, ticker) {
				return
			}
		case now := <-ticker.C:
			if !s.tick(ctx, now) {
				return
			}
		}
	}
}

func (s *Session) tick(ctx context.Context, now time.Time) bool {
	if s.stalled(now) {
		return s.restart(ctx, fmt.Sprintf("no action from trainer for %s", s.cfg.ActionTimeout))
	}
	if s.awaitReset {
		return true
	}
	a, fresh, ok := s.buf.TryStep()
	if !ok {
		return true
	}
	if !fresh {
		a = s.lastAction
	}
	s.lastAction = a

	res := s.env.Step(a)
	s.mu.Lock()
	s.stepsSent++
	s.lastSentAt = time.Now()
	s.mu.Unlock()
	if err := s.send(protocol.StateMsg{
		Type:        protocol.TypeState,
		Observation: res.Observation,
		Reward:      res.Reward,
		Done:        res.Done,
		Info:        res.Info,
	}); err != nil {
		return s.fail(err)
	}

	if res.Done {
		reason, _ := res.Info["termination_reason"].(string)
		s.metrics.EpisodeFinished(ctx, reason)
		s.awaitReset = true
		s.log.Debug().Str("reason", reason).Float64("reward", res.Reward).Msg("episode done, waiting for reset")
	}
	return true
}

func (s *Session) stalled(now time.Time) bool {
	if now.Sub(s.connectedAt) < s.cfg.HandshakeGrace {
		return false
	}
	s.mu.RLock()
	last := s.lastActionAt
	s.mu.RUnlock()
	return now.Sub(last) > s.cfg.ActionTimeout
}

// restart asks the trainer to restart, then reconnects and offers a fresh
// episode.
func (s *Session) restart(ctx context.Context, reason string) bool {
	s.log.Warn().Str("reason", reason).Msg("trainer stalled, restarting")
	if err := s.send(protocol.RestartRequestMsg{Type: protocol.TypeRestartRequest, Reason: reason}); err != nil {
		s.log.Warn().Err(err).Msg("restart_request not delivered")
	}
	s.detach()
	s.mu.Lock()
	s.restarts++
	s.mu.Unlock()
	s.metrics.Restarted(ctx)
	s.bus.Publish(events.Event{Kind: events.Restart, Reason: reason})

	s.setState(Connecting, "")
	conn, err := s.dial(ctx)
	if err != nil {
		return s.fail(err)
	}
	gen := s.attach(conn)
	go s.readLoop(ctx, conn, gen)
	if err := s.resetEpisode(); err != nil {
		return s.fail(err)
	}
	s.setState(Connected, "")
	return true
}

// resetEpisode resets the environment and sends reset_complete. The
// reset_complete itself counts as one unanswered message.
func (s *Session) resetEpisode() error {
	obs := s.env.Reset()
	s.buf.Reset(1)
	s.lastAction = env.Action{}
	s.awaitReset = false
	now := time.Now()
	s.connectedAt = now
	s.mu.Lock()
	s.lastActionAt = now
	s.lastSentAt = now
	s.mu.Unlock()
	return s.send(protocol.ResetCompleteMsg{
		Type:        protocol.TypeResetComplete,
		Observation: obs,
		Info: map[string]any{
			"session_id":          s.id,
			"observation_version": protocol.ObservationVersion,
		},
	})
}

func (s *Session) handleControl(ctx context.Context, c control, ticker *time.Ticker) bool {
	if c.gen != s.currentGen() {
		return true
	}
	if c.err != nil {
		s.log.Error().Err(c.err).Msg("trainer connection lost")
		return s.fail(c.err)
	}
	switch m := c.msg.(type) {
	case protocol.ResetRequestMsg, protocol.ReadyToResumeMsg:
		if err := s.resetEpisode(); err != nil {
			return s.fail(err)
		}
	case protocol.SetTimescaleMsg:
		s.mu.Lock()
		s.timescale = m.Timescale
		s.mu.Unlock()
		ticker.Reset(s.interval())
		s.log.Info().Float64("timescale", m.Timescale).Msg("timescale changed")
	case protocol.SetConfigMsg:
		s.applySetConfig(m)
	case protocol.CheckpointInfoMsg:
		s.mu.Lock()
		s.checkpoint = m
		s.mu.Unlock()
		s.bus.Publish(events.Event{Kind: events.Checkpoint, Detail: map[string]any{
			"checkpoint_name":  m.CheckpointName,
			"checkpoint_steps": m.CheckpointSteps,
		}})
	case protocol.ParallelTrainingInfoMsg:
		s.mu.Lock()
		s.parallel = m
		s.mu.Unlock()
	}
	return true
}

func (s *Session) applySetConfig(m protocol.SetConfigMsg) {
	if m.Preset != "" {
		if s.presets == nil {
			s.log.Warn().Str("preset", m.Preset).Msg("no presets loaded, ignoring")
		} else if cfg, err := s.presets.Resolve(m.Preset); err != nil {
			s.log.Warn().Err(err).Msg("set_config ignored")
		} else if err := s.env.ApplyConfig(cfg); err != nil {
			s.log.Warn().Err(err).Str("preset", m.Preset).Msg("set_config rejected")
		}
	}
	if m.MaxEpisodeSteps != nil {
		if err := s.env.SetMaxEpisodeSteps(*m.MaxEpisodeSteps); err != nil {
			s.log.Warn().Err(err).Msg("set_config rejected")
		}
	}
}

// fail records a connection error and halts the loop. There is no automatic
// reconnect.
func (s *Session) fail(err error) bool {
	s.detach()
	s.mu.Lock()
	s.training = false
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.setState(Disconnected, err.Error())
	return false
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn, gen uint64) {
	defer s.readers.Done()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.deliver(ctx, control{gen: gen, err: err})
			return
		}
		msg, err := s.decode(raw)
		if err != nil {
			s.log.Warn().Err(err).Msg("ignoring trainer message")
			continue
		}
		if a, ok := msg.(protocol.ActionMsg); ok {
			if gen == s.currentGen() {
				s.onAction(ctx, a)
			}
			continue
		}
		if !s.deliver(ctx, control{gen: gen, msg: msg}) {
			return
		}
	}
}

func (s *Session) deliver(ctx context.Context, c control) bool {
	select {
	case s.ctrl <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) onAction(ctx context.Context, m protocol.ActionMsg) {
	dropped := s.buf.Push(env.ActionFromSlice(m.Action))
	now := time.Now()
	s.mu.Lock()
	s.lastActionAt = now
	var ms float64
	sampled := !s.lastSentAt.IsZero()
	if sampled {
		ms = float64(now.Sub(s.lastSentAt)) / float64(time.Millisecond)
		s.latency.add(ms)
	}
	s.dropped += uint64(dropped)
	s.mu.Unlock()
	if sampled {
		s.metrics.RecordLatency(ctx, ms)
	}
	s.metrics.ActionsDropped(ctx, dropped)
}

func (s *Session) decode(raw []byte) (any, error) {
	base, err := s.valid.Validate(raw)
	if err != nil {
		return nil, err
	}
	switch base.Type {
	case protocol.TypeAction:
		return decodeAs[protocol.ActionMsg](raw)
	case protocol.TypeResetRequest:
		return protocol.ResetRequestMsg{Type: base.Type}, nil
	case protocol.TypeReadyToResume:
		return protocol.ReadyToResumeMsg{Type: base.Type}, nil
	case protocol.TypeSetTimescale:
		return decodeAs[protocol.SetTimescaleMsg](raw)
	case protocol.TypeSetConfig:
		return decodeAs[protocol.SetConfigMsg](raw)
	case protocol.TypeCheckpointInfo:
		return decodeAs[protocol.CheckpointInfoMsg](raw)
	case protocol.TypeParallelTrainingInfo:
		return decodeAs[protocol.ParallelTrainingInfoMsg](raw)
	default:
		return nil, fmt.Errorf("%w: %q is not a trainer message", protocol.ErrUnknownType, base.Type)
	}
}

func decodeAs[T any](raw []byte) (any, error) {
	var m T
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrMalformed, err)
	}
	return m, nil
}

func (s *Session) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return errNotConnected
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.DialContext(ctx, s.cfg.TrainerURL, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Session) attach(conn *websocket.Conn) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	s.gen++
	s.readers.Add(1)
	return s.gen
}

func (s *Session) detach() {
	s.mu.Lock()
	c := s.conn
	s.conn = nil
	s.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func (s *Session) currentGen() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *Session) setState(to ConnState, errMsg string) {
	s.mu.Lock()
	from := s.state
	s.state = to
	if errMsg != "" {
		s.lastErr = errMsg
	}
	s.mu.Unlock()
	if from == to {
		return
	}
	s.bus.Publish(events.Event{Kind: events.ConnectionStatus, From: string(from), To: string(to), Reason: errMsg})
	s.log.Info().Str("from", string(from)).Str("to", string(to)).Msg("connection state")
}
