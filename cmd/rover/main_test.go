package main

import (
	"testing"

	"rovergym/internal/config"
)

func TestEnvConfigFollowsTickRate(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Sim.TickRateHz = 60
	cfg.Sim.Seed = 7

	ecfg := envConfig(cfg)
	if ecfg.StepRateHz != 60 || ecfg.Seed != 7 {
		t.Fatalf("StepRateHz=%v Seed=%v", ecfg.StepRateHz, ecfg.Seed)
	}
}
