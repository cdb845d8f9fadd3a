package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rovergym/internal/config"
	"rovergym/internal/logging"
	"rovergym/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a config file (yaml, json or toml)")
		addr       = flag.String("addr", "", "listen address (overrides mocktrainer.listen)")
		seed       = flag.Uint64("seed", 1, "random policy seed")
		statsEvery = flag.Duration("stats_every", 10*time.Second, "stats log interval")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	listen := cfg.MockTrainer.Listen
	if *addr != "" {
		listen = *addr
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

	srv, err := ws.NewServer(ws.NewRandomPolicy(*seed), ws.Options{
		Timescale:       cfg.MockTrainer.Timescale,
		CheckpointName:  cfg.MockTrainer.CheckpointName,
		CheckpointSteps: cfg.MockTrainer.CheckpointSteps,
		EnvCount:        cfg.MockTrainer.EnvCount,
		EnvID:           cfg.MockTrainer.EnvID,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create trainer server")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.Handler())
	hs := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = hs.Shutdown(ctx2)
	}()
	go func() {
		t := time.NewTicker(*statsEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st := srv.Stats()
				logger.Info().
					Int64("connections", st.Connections).
					Int64("states", st.States).
					Int64("episodes", st.Episodes).
					Int64("restarts", st.Restarts).
					Msg("stats")
			}
		}
	}()

	logger.Info().Str("addr", listen).Msg("mock trainer listening")
	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("ListenAndServe")
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
