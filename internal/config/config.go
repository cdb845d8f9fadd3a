// Package config loads runtime settings for the rover binaries with viper:
// built-in defaults, an optional config file, then ROVERGYM_* environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "ROVERGYM"

type TrainerConfig struct {
	URL            string        `mapstructure:"url"`
	BufferCapacity int           `mapstructure:"buffer_capacity"`
	ActionTimeout  time.Duration `mapstructure:"action_timeout"`
	HandshakeGrace time.Duration `mapstructure:"handshake_grace"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type SimConfig struct {
	TickRateHz float64 `mapstructure:"tick_rate_hz"`
	Timescale  float64 `mapstructure:"timescale"`
	Seed       uint64  `mapstructure:"seed"`
}

type RewardConfig struct {
	Preset string `mapstructure:"preset"`
	// File optionally overrides the embedded curriculum presets.
	File string `mapstructure:"file"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	GelfAddress string `mapstructure:"gelf_address"`
}

type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type MockTrainerConfig struct {
	Listen          string  `mapstructure:"listen"`
	Timescale       float64 `mapstructure:"timescale"`
	CheckpointName  string  `mapstructure:"checkpoint_name"`
	CheckpointSteps int64   `mapstructure:"checkpoint_steps"`
	EnvCount        int     `mapstructure:"env_count"`
	EnvID           int     `mapstructure:"env_id"`
}

type Config struct {
	Trainer     TrainerConfig     `mapstructure:"trainer"`
	Sim         SimConfig         `mapstructure:"sim"`
	Reward      RewardConfig      `mapstructure:"reward"`
	Log         LogConfig         `mapstructure:"log"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	MockTrainer MockTrainerConfig `mapstructure:"mocktrainer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trainer.url", "ws://localhost:8765")
	v.SetDefault("trainer.buffer_capacity", 3)
	v.SetDefault("trainer.action_timeout", "5s")
	v.SetDefault("trainer.handshake_grace", "2s")
	v.SetDefault("trainer.write_timeout", "5s")

	v.SetDefault("sim.tick_rate_hz", 30.0)
	v.SetDefault("sim.timescale", 1.0)
	v.SetDefault("sim.seed", 1337)

	v.SetDefault("reward.preset", "stage_4")
	v.SetDefault("reward.file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.gelf_address", "")

	v.SetDefault("telemetry.enabled", false)

	v.SetDefault("mocktrainer.listen", ":8765")
	v.SetDefault("mocktrainer.timescale", 1.0)
	v.SetDefault("mocktrainer.checkpoint_name", "")
	v.SetDefault("mocktrainer.checkpoint_steps", 0)
	v.SetDefault("mocktrainer.env_count", 0)
	v.SetDefault("mocktrainer.env_id", 0)
}

// Load reads path (any viper-supported extension) when non-empty. A missing
// path is an error; an empty path means defaults plus environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var ErrInvalid = errors.New("invalid config")

func (c Config) Validate() error {
	switch {
	case c.Trainer.URL == "":
		return fmt.Errorf("%w: trainer.url is empty", ErrInvalid)
	case c.Trainer.BufferCapacity < 1:
		return fmt.Errorf("%w: trainer.buffer_capacity must be >= 1", ErrInvalid)
	case c.Trainer.ActionTimeout <= 0:
		return fmt.Errorf("%w: trainer.action_timeout must be positive", ErrInvalid)
	case c.Trainer.HandshakeGrace < 0:
		return fmt.Errorf("%w: trainer.handshake_grace is negative", ErrInvalid)
	case c.Sim.TickRateHz <= 0:
		return fmt.Errorf("%w: sim.tick_rate_hz must be positive", ErrInvalid)
	case c.Sim.Timescale <= 0:
		return fmt.Errorf("%w: sim.timescale must be positive", ErrInvalid)
	}
	return nil
}
