package config

import "sort"

// Presets holds named run configurations per signal domain.
var Presets = map[string]map[string]*Config{
	"ppg": {
		"rest": {
			Signal:     SignalConfig{Source: "sine", Length: 1500, Seed: 1},
			Embedding:  EmbeddingConfig{Dim: 5, Delay: 4, Layout: "padded"},
			Lyapunov:   LyapunovConfig{Horizon: 5, TimeScale: 1},
			DFA:        DFAConfig{MinBox: 4, MaxBox: 64, Schedule: "geometric"},
			Strategy:   "specialized",
			Iterations: DefaultIterations,
		},
		"exercise": {
			Signal:     SignalConfig{Source: "sine", Length: 3000, Seed: 2},
			Embedding:  EmbeddingConfig{Dim: 5, Delay: 2, Layout: "padded"},
			Lyapunov:   LyapunovConfig{Horizon: 8, TimeScale: 1},
			DFA:        DFAConfig{MinBox: 4, MaxBox: 128, Schedule: "geometric"},
			Strategy:   "specialized",
			Iterations: DefaultIterations,
		},
	},
	"gait": {
		"walk": {
			Signal:     SignalConfig{Source: "walk", Length: 2048, Seed: 7},
			Embedding:  EmbeddingConfig{Dim: 3, Delay: 2, Layout: "contiguous"},
			Lyapunov:   LyapunovConfig{Horizon: 5, TimeScale: 1},
			DFA:        DFAConfig{MinBox: 16, MaxBox: 256, Schedule: "geometric"},
			Strategy:   "specialized",
			Iterations: DefaultIterations,
		},
		"noise": {
			Signal:     SignalConfig{Source: "white", Length: 2048, Seed: 7},
			Embedding:  EmbeddingConfig{Dim: 3, Delay: 1, Layout: "contiguous"},
			Lyapunov:   LyapunovConfig{Horizon: 5, TimeScale: 1},
			DFA:        DFAConfig{MinBox: 8, MaxBox: 256, Schedule: "linear"},
			Strategy:   "generic",
			Iterations: DefaultIterations,
		},
	},
	"chaos": {
		"rossler": {
			Signal:     SignalConfig{Source: "rossler", Length: 2000},
			Embedding:  EmbeddingConfig{Dim: 3, Delay: 15, Layout: "padded"},
			Lyapunov:   LyapunovConfig{Horizon: 10, TimeScale: 1},
			DFA:        DFAConfig{MinBox: 4, MaxBox: 200, Schedule: "geometric"},
			Strategy:   "specialized",
			Iterations: DefaultIterations,
		},
		"rossler-periodic": {
			Signal: SignalConfig{
				Source: "rossler",
				Length: 2000,
				Params: map[string]float64{"c": 2.5},
			},
			Embedding:  EmbeddingConfig{Dim: 3, Delay: 15, Layout: "padded"},
			Lyapunov:   LyapunovConfig{Horizon: 10, TimeScale: 1},
			DFA:        DFAConfig{MinBox: 4, MaxBox: 200, Schedule: "geometric"},
			Strategy:   "specialized",
			Iterations: DefaultIterations,
		},
		"lorenz": {
			Signal:     SignalConfig{Source: "lorenz", Length: 2000},
			Embedding:  EmbeddingConfig{Dim: 3, Delay: 5, Layout: "padded"},
			Lyapunov:   LyapunovConfig{Horizon: 10, TimeScale: 1},
			DFA:        DFAConfig{MinBox: 4, MaxBox: 200, Schedule: "geometric"},
			Strategy:   "specialized",
			Iterations: DefaultIterations,
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(domain, preset string) *Config {
	domainPresets, ok := Presets[domain]
	if !ok {
		return nil
	}
	cfg, ok := domainPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

// ListPresets returns the preset names of a domain in sorted order.
func ListPresets(domain string) []string {
	domainPresets, ok := Presets[domain]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(domainPresets))
	for name := range domainPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Domains returns the preset domains in sorted order.
func Domains() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
