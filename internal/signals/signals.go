// Package signals generates deterministic Q15 test signals: stochastic
// references with known DFA exponents and attractor trajectories with known
// Lyapunov exponents.
package signals

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/san-kum/nldkit/internal/dynamo"
	"github.com/san-kum/nldkit/internal/integrators"
	"github.com/san-kum/nldkit/internal/physics"
	"github.com/san-kum/nldkit/internal/q15"
)

// Peak is the absolute amplitude attractor trajectories are normalized to.
const Peak = 0.9

// WhiteNoise returns uniform noise in [-amplitude, amplitude). Its DFA
// exponent is 0.5.
func WhiteNoise(n int, amplitude float64, seed int64) q15.Signal {
	rng := rand.New(rand.NewSource(seed))
	out := make(q15.Signal, n)
	for i := range out {
		out[i] = q15.FromFloat((rng.Float64()*2 - 1) * amplitude)
	}
	return out
}

// RandomWalk returns the running sum of integer steps drawn uniformly from
// [-step, step] LSB, saturated to Q15. Its DFA exponent is 1.5.
func RandomWalk(n, step int, seed int64) q15.Signal {
	rng := rand.New(rand.NewSource(seed))
	out := make(q15.Signal, n)
	var y int64
	for i := range out {
		y += int64(rng.Intn(2*step+1) - step)
		out[i] = q15.Saturate(y)
	}
	return out
}

// SineNoise returns amplitude*sin(2*pi*freq*i) plus uniform noise of the
// given amplitude. freq is in cycles per sample.
func SineNoise(n int, freq, amplitude, noise float64, seed int64) q15.Signal {
	rng := rand.New(rand.NewSource(seed))
	osc := newOscillator(freq)
	out := make(q15.Signal, n)
	for i := range out {
		v := amplitude * osc.next()
		if noise > 0 {
			v += (rng.Float64()*2 - 1) * noise
		}
		out[i] = q15.FromFloat(v)
	}
	return out
}

// Trajectory configures an attractor sampling run.
type Trajectory struct {
	// Dt is the integration step.
	Dt float64
	// Every is the number of integration steps per output sample.
	Every int
	// Transient is the number of samples discarded before recording.
	Transient int
	// Component is the state index recorded.
	Component int
	// Integrator names the stepper. Empty selects RK4.
	Integrator string
	// Initial overrides the system's default state when non-nil.
	Initial dynamo.State
}

// DefaultTrajectory samples the first component every 0.1 time units after
// 500 discarded samples.
var DefaultTrajectory = Trajectory{Dt: 0.01, Every: 10, Transient: 500}

// SampleInterval is the simulated time between two output samples.
func (tr Trajectory) SampleInterval() float64 {
	return tr.Dt * float64(tr.Every)
}

// Attractor integrates dyn from its initial state and returns n samples of
// one component, mean-removed and scaled to Peak.
func Attractor(dyn dynamo.System, n int, tr Trajectory) (q15.Signal, error) {
	if tr.Dt <= 0 || tr.Every < 1 || tr.Transient < 0 {
		return nil, fmt.Errorf("signals: invalid trajectory %+v", tr)
	}
	integ, err := integrators.Lookup(tr.Integrator)
	if err != nil {
		return nil, err
	}
	x := dyn.DefaultState()
	if tr.Initial != nil {
		x = tr.Initial.Clone()
	}
	if len(x) != dyn.StateDim() || !x.IsValid() {
		return nil, &dynamo.IntegrationError{State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
	}
	if tr.Component < 0 || tr.Component >= len(x) {
		return nil, fmt.Errorf("signals: component %d out of range for %d-dimensional state", tr.Component, len(x))
	}

	raw := make([]float64, 0, n)
	t := 0.0
	for s := 0; s < tr.Transient+n; s++ {
		for k := 0; k < tr.Every; k++ {
			x = integ.Step(dyn, x, t, tr.Dt)
			t += tr.Dt
		}
		if !x.IsValid() {
			return nil, &dynamo.IntegrationError{Step: s, Time: t, State: x.Clone(), Wrapped: dynamo.ErrUnstable}
		}
		if s >= tr.Transient {
			raw = append(raw, x[tr.Component])
		}
	}
	return normalize(raw), nil
}

// normalize removes the mean and scales the peak magnitude to Peak.
func normalize(xs []float64) q15.Signal {
	if len(xs) == 0 {
		return q15.Signal{}
	}
	mean := 0.0
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))

	peak := 0.0
	for _, v := range xs {
		peak = math.Max(peak, math.Abs(v-mean))
	}
	scale := 0.0
	if peak > 0 {
		scale = Peak / peak
	}

	out := make(q15.Signal, len(xs))
	for i, v := range xs {
		out[i] = q15.FromFloat((v - mean) * scale)
	}
	return out
}

// Generator produces n samples for a seed.
type Generator func(n int, seed int64) q15.Signal

// Model is the ODE system and sampling run behind an attractor signal.
type Model struct {
	System     dynamo.System
	Trajectory Trajectory
}

// Options customizes a named signal.
type Options struct {
	// Params overrides model parameters by name. Only attractor signals
	// accept them.
	Params map[string]float64
	// Integrator names the stepper of attractor signals. Empty keeps the
	// signal's default.
	Integrator string
}

// source is either a stochastic generator or an attractor model.
type source struct {
	gen   Generator
	model func() Model
}

var registry = map[string]source{
	"white": {gen: func(n int, seed int64) q15.Signal {
		return WhiteNoise(n, 0.5, seed)
	}},
	"walk": {gen: func(n int, seed int64) q15.Signal {
		return RandomWalk(n, 65, seed)
	}},
	"sine": {gen: func(n int, seed int64) q15.Signal {
		return SineNoise(n, 1.0/50, 0.8, 0.05, seed)
	}},
	"zero": {gen: func(n int, _ int64) q15.Signal {
		return make(q15.Signal, n)
	}},
	"rossler": {model: func() Model {
		return Model{System: physics.NewRossler(), Trajectory: DefaultTrajectory}
	}},
	"lorenz": {model: func() Model {
		tr := DefaultTrajectory
		tr.Dt, tr.Every = 0.005, 4
		return Model{System: physics.NewLorenz(), Trajectory: tr}
	}},
	"vanderpol": {model: func() Model {
		return Model{System: physics.NewVanDerPol(), Trajectory: DefaultTrajectory}
	}},
}

// LookupModel returns the attractor model behind name with opts applied.
// The boolean is false for stochastic signals, which have no model.
func LookupModel(name string, opts Options) (Model, bool, error) {
	src, ok := registry[name]
	if !ok {
		return Model{}, false, fmt.Errorf("unknown signal: %s", name)
	}
	if src.model == nil {
		if len(opts.Params) > 0 {
			return Model{}, false, fmt.Errorf("signals: %s takes no parameters", name)
		}
		return Model{}, false, nil
	}
	m := src.model()
	if err := applyParams(m.System, opts.Params); err != nil {
		return Model{}, false, fmt.Errorf("%s: %w", name, err)
	}
	if opts.Integrator != "" {
		m.Trajectory.Integrator = opts.Integrator
	}
	return m, true, nil
}

func applyParams(dyn dynamo.System, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := dyn.(dynamo.Configurable)
	if !ok {
		return fmt.Errorf("signals: %T has no parameters", dyn)
	}
	known := c.GetParams()
	for _, name := range sortedKeys(params) {
		v := params[name]
		if _, ok := known[name]; !ok {
			return fmt.Errorf("signals: unknown parameter %q (have %v)", name, sortedKeys(known))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("signals: parameter %s is not finite", name)
		}
		c.SetParam(name, v)
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Generate produces n samples of the named signal with default options.
func Generate(name string, n int, seed int64) (q15.Signal, error) {
	return GenerateWith(name, n, seed, Options{})
}

// GenerateWith produces n samples of the named signal. Stochastic signals
// ignore opts.Integrator.
func GenerateWith(name string, n int, seed int64, opts Options) (q15.Signal, error) {
	if n < 1 {
		return nil, fmt.Errorf("signals: length must be positive, got %d", n)
	}
	m, ok, err := LookupModel(name, opts)
	if err != nil {
		return nil, err
	}
	if ok {
		return Attractor(m.System, n, m.Trajectory)
	}
	return registry[name].gen(n, seed), nil
}

// Names lists the registered signal names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
