package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rovergym/internal/bridge"
	"rovergym/internal/config"
	"rovergym/internal/events"
	"rovergym/internal/logging"
	"rovergym/internal/sim/env"
	"rovergym/internal/sim/tuning"
	"rovergym/internal/telemetry"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a config file (yaml, json or toml)")
		trainerURL  = flag.String("trainer", "", "trainer websocket url (overrides trainer.url)")
		preset      = flag.String("preset", "", "reward curriculum stage (overrides reward.preset)")
		statusEvery = flag.Duration("status_every", 10*time.Second, "status log interval (0 disables)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if s := strings.TrimSpace(*trainerURL); s != "" {
		cfg.Trainer.URL = s
	}
	if s := strings.TrimSpace(*preset); s != "" {
		cfg.Reward.Preset = s
	}

	logger, closer, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		GelfAddress: cfg.Log.GelfAddress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()

	presets := tuning.Defaults()
	if cfg.Reward.File != "" {
		if presets, err = tuning.Load(cfg.Reward.File); err != nil {
			logger.Fatal().Err(err).Str("file", cfg.Reward.File).Msg("load reward presets")
		}
	}
	rc, err := presets.Resolve(cfg.Reward.Preset)
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve reward preset")
	}

	metrics, err := telemetry.New(cfg.Telemetry.Enabled)
	if err != nil {
		logger.Fatal().Err(err).Msg("telemetry")
	}

	bus := events.NewBus(256)
	e, err := env.New(envConfig(cfg), rc, bus, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create environment")
	}

	sess, err := bridge.NewSession(bridge.Config{
		TrainerURL:     cfg.Trainer.URL,
		TickRateHz:     cfg.Sim.TickRateHz,
		Timescale:      cfg.Sim.Timescale,
		BufferCapacity: cfg.Trainer.BufferCapacity,
		ActionTimeout:  cfg.Trainer.ActionTimeout,
		HandshakeGrace: cfg.Trainer.HandshakeGrace,
		WriteTimeout:   cfg.Trainer.WriteTimeout,
	}, e, bridge.Deps{Presets: presets, Bus: bus, Metrics: metrics, Log: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("create bridge")
	}

	ctx, cancel := signalContext()
	defer cancel()
	go logEvents(ctx, bus, logger)

	logger.Info().
		Str("session", sess.ID()).
		Str("preset", cfg.Reward.Preset).
		Uint64("seed", cfg.Sim.Seed).
		Msg("rover environment ready")
	if err := sess.StartTraining(ctx); err != nil {
		logger.Fatal().Err(err).Msg("start training")
	}

	var statusC <-chan time.Time
	if *statusEvery > 0 {
		t := time.NewTicker(*statusEvery)
		defer t.Stop()
		statusC = t.C
	}
	for {
		select {
		case <-ctx.Done():
			sess.StopTraining()
			logger.Info().Msg("shutdown")
			return
		case <-statusC:
			st := sess.Status()
			logger.Info().
				Str("state", string(st.State)).
				Bool("training", st.Training).
				Int("in_flight", st.InFlight).
				Uint64("steps", st.StepsSent).
				Float64("avg_latency_ms", st.AvgLatencyMS).
				Int("restarts", st.Restarts).
				Msg("status")
			if !st.Training {
				logger.Error().Str("error", st.LastError).Msg("training halted")
				return
			}
		}
	}
}

// envConfig ties the simulated step to the tick rate so one tick advances
// the world by 1/tick_rate_hz. Timescale only changes wall-clock pacing.
func envConfig(cfg config.Config) env.Config {
	ecfg := env.DefaultConfig()
	ecfg.Seed = cfg.Sim.Seed
	ecfg.StepRateHz = cfg.Sim.TickRateHz
	return ecfg
}

func logEvents(ctx context.Context, bus *events.Bus, logger zerolog.Logger) {
	log := logger.With().Str("component", "events").Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-bus.C():
			level := zerolog.DebugLevel
			switch ev.Kind {
			case events.EpisodeEnd, events.Restart, events.ConnectionStatus, events.TrainingStatus:
				level = zerolog.InfoLevel
			case events.ConfigRejected:
				level = zerolog.WarnLevel
			}
			log.WithLevel(level).Str("kind", string(ev.Kind)).
				Uint64("episode", ev.Episode).
				Int("step", ev.Step).
				Str("from", ev.From).
				Str("to", ev.To).
				Str("reason", ev.Reason).
				Fields(ev.Detail).
				Msg("event")
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
