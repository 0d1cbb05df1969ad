package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/nldkit/internal/integrators"
)

const (
	DefaultSignal     = "white"
	DefaultLength     = 2048
	DefaultDim        = 5
	DefaultDelay      = 4
	DefaultHorizon    = 5
	DefaultTimeScale  = 1
	DefaultMinBox     = 4
	DefaultMaxBox     = 64
	DefaultIterations = 5
)

type Config struct {
	Signal    SignalConfig    `yaml:"signal"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Lyapunov  LyapunovConfig  `yaml:"lyapunov"`
	DFA       DFAConfig       `yaml:"dfa"`
	// Strategy names the distance kernel: generic or specialized.
	Strategy string `yaml:"strategy"`
	// LaneWidth overrides the detected vector width when non-zero.
	LaneWidth int `yaml:"lane_width"`
	// Iterations is the number of timed repetitions per strategy in compare.
	Iterations int `yaml:"iterations"`
}

type SignalConfig struct {
	// Source is a generator name or a path to a CSV file.
	Source string `yaml:"source"`
	Length int    `yaml:"length"`
	Seed   int64  `yaml:"seed"`
	// Column selects the CSV column holding samples.
	Column int `yaml:"column"`
	// Integrator names the ODE stepper of attractor sources (rk4, euler).
	Integrator string `yaml:"integrator,omitempty"`
	// Params overrides attractor parameters by name, e.g. c for rossler.
	Params map[string]float64 `yaml:"params,omitempty"`
}

type EmbeddingConfig struct {
	Dim    int    `yaml:"dim"`
	Delay  int    `yaml:"delay"`
	Layout string `yaml:"layout"`
}

type LyapunovConfig struct {
	Horizon   int `yaml:"horizon"`
	TimeScale int `yaml:"time_scale"`
}

type DFAConfig struct {
	MinBox   int    `yaml:"min_box"`
	MaxBox   int    `yaml:"max_box"`
	Schedule string `yaml:"schedule"`
}

func DefaultConfig() *Config {
	return &Config{
		Signal: SignalConfig{
			Source: DefaultSignal,
			Length: DefaultLength,
			Seed:   42,
		},
		Embedding: EmbeddingConfig{
			Dim:    DefaultDim,
			Delay:  DefaultDelay,
			Layout: "padded",
		},
		Lyapunov: LyapunovConfig{
			Horizon:   DefaultHorizon,
			TimeScale: DefaultTimeScale,
		},
		DFA: DFAConfig{
			MinBox:   DefaultMinBox,
			MaxBox:   DefaultMaxBox,
			Schedule: "geometric",
		},
		Strategy:   "specialized",
		Iterations: DefaultIterations,
	}
}

// Load reads a config file on top of DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a config file over cfg. Keys absent from the file keep
// their current values, so a partial file refines a preset.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields that do not depend on the signal itself.
func (c *Config) Validate() error {
	switch {
	case c.Signal.Source == "":
		return fmt.Errorf("config: signal source is empty")
	case c.Signal.Length < 1:
		return fmt.Errorf("config: signal length must be positive, got %d", c.Signal.Length)
	case c.Embedding.Dim < 2:
		return fmt.Errorf("config: embedding dim must be at least 2, got %d", c.Embedding.Dim)
	case c.Embedding.Delay < 1:
		return fmt.Errorf("config: embedding delay must be at least 1, got %d", c.Embedding.Delay)
	case c.Lyapunov.Horizon < 0 || c.Lyapunov.TimeScale < 0:
		return fmt.Errorf("config: lyapunov horizon and time scale must not be negative")
	case c.LaneWidth < 0:
		return fmt.Errorf("config: lane width must not be negative, got %d", c.LaneWidth)
	case c.Iterations < 1:
		return fmt.Errorf("config: iterations must be positive, got %d", c.Iterations)
	}
	if _, err := integrators.Lookup(c.Signal.Integrator); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Clone returns a copy of c that can be modified independently.
func (c *Config) Clone() *Config {
	cp := *c
	if c.Signal.Params != nil {
		cp.Signal.Params = make(map[string]float64, len(c.Signal.Params))
		for k, v := range c.Signal.Params {
			cp.Signal.Params[k] = v
		}
	}
	return &cp
}
