package tuning

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"rovergym/internal/sim/reward"
)

//go:embed presets.yaml
var builtin []byte

// Presets is a named set of reward configs.
type Presets struct {
	Default string                   `yaml:"default"`
	Stages  map[string]reward.Config `yaml:"stages"`
}

// Defaults returns the built-in curriculum.
func Defaults() Presets {
	p, err := parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("built-in presets: %v", err))
	}
	return p
}

// Load reads a presets file. Stages it defines replace the built-in stage of
// the same name; the rest are kept.
func Load(path string) (Presets, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Presets{}, err
	}
	file, err := parse(raw)
	if err != nil {
		return Presets{}, fmt.Errorf("%s: %w", path, err)
	}
	out := Defaults()
	for name, cfg := range file.Stages {
		out.Stages[name] = cfg
	}
	if file.Default != "" {
		out.Default = file.Default
	}
	return out, nil
}

func parse(raw []byte) (Presets, error) {
	var p Presets
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Presets{}, fmt.Errorf("presets.yaml: %w", err)
	}
	if p.Stages == nil {
		p.Stages = map[string]reward.Config{}
	}
	for name, cfg := range p.Stages {
		if err := cfg.Validate(); err != nil {
			return Presets{}, fmt.Errorf("stage %s: %w", name, err)
		}
	}
	return p, nil
}

// Resolve returns the named stage, or the default stage when name is empty.
func (p Presets) Resolve(name string) (reward.Config, error) {
	if name == "" {
		name = p.Default
	}
	cfg, ok := p.Stages[name]
	if !ok {
		return reward.Config{}, fmt.Errorf("unknown reward preset %q (have %v)", name, p.Names())
	}
	return cfg, nil
}

func (p Presets) Names() []string {
	out := make([]string, 0, len(p.Stages))
	for k := range p.Stages {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
