package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trainer.URL != "ws://localhost:8765" || cfg.Trainer.BufferCapacity != 3 {
		t.Fatalf("trainer defaults: %+v", cfg.Trainer)
	}
	if cfg.Trainer.ActionTimeout != 5*time.Second || cfg.Trainer.HandshakeGrace != 2*time.Second {
		t.Fatalf("timeouts: %+v", cfg.Trainer)
	}
	if cfg.Sim.TickRateHz != 30 || cfg.Sim.Seed != 1337 || cfg.Sim.Timescale != 1 {
		t.Fatalf("sim defaults: %+v", cfg.Sim)
	}
	if cfg.Reward.Preset != "stage_4" || cfg.Log.Level != "info" || cfg.Telemetry.Enabled {
		t.Fatalf("misc defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rover.yaml")
	body := strings.Join([]string{
		"trainer:",
		"  url: ws://trainer:9000",
		"  action_timeout: 750ms",
		"reward:",
		"  preset: stage_2",
		"log:",
		"  format: json",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ROVERGYM_SIM_SEED", "7")
	t.Setenv("ROVERGYM_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trainer.URL != "ws://trainer:9000" || cfg.Trainer.ActionTimeout != 750*time.Millisecond {
		t.Fatalf("file values not applied: %+v", cfg.Trainer)
	}
	if cfg.Reward.Preset != "stage_2" || cfg.Log.Format != "json" {
		t.Fatalf("file values not applied: %+v %+v", cfg.Reward, cfg.Log)
	}
	if cfg.Sim.Seed != 7 || cfg.Log.Level != "debug" {
		t.Fatalf("env overrides not applied: seed=%d level=%s", cfg.Sim.Seed, cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/rover.yaml")
	if err == nil || !strings.Contains(err.Error(), "error reading config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bad := cfg
	bad.Trainer.BufferCapacity = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	bad = cfg
	bad.Sim.TickRateHz = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
