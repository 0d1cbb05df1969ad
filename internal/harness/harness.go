// Package harness runs the generic and specialized distance strategies over
// the same signal and reports their relative cost.
package harness

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/nldkit/internal/analysis"
	"github.com/san-kum/nldkit/internal/engine"
	"github.com/san-kum/nldkit/internal/integrators"
	"github.com/san-kum/nldkit/internal/kernel"
	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/q15"
	"github.com/san-kum/nldkit/internal/signals"
)

const (
	// DefaultSample is the number of phase-space points checked pairwise
	// for cross-strategy consistency.
	DefaultSample = 128

	baseline  = "generic"
	candidate = "specialized"

	// ReferenceDuration is the simulated time integrated for a model's
	// trajectory exponent.
	ReferenceDuration = 200.0
	// referencePerturbation is the initial separation of the two
	// trajectories.
	referencePerturbation = 1e-8
)

type Config struct {
	Signal q15.Signal
	// Source labels the signal in reports.
	Source string
	// Model is the attractor behind Signal, if any. It adds a
	// two-trajectory reference exponent to the report.
	Model *signals.Model

	Dim       int
	Delay     int
	Layout    phase.Layout
	LaneWidth int
	Lyapunov  analysis.LyapunovOptions

	MinBox   int
	MaxBox   int
	Schedule analysis.Schedule

	// Strategies defaults to every registered strategy.
	Strategies []string
	Iterations int
	Sample     int
}

type Harness struct {
	cfg      Config
	log      *logrus.Entry
	exporter *perf.Exporter
}

type Option func(*Harness)

// WithLogger routes run logs to l.
func WithLogger(l *logrus.Logger) Option {
	return func(h *Harness) { h.log = logrus.NewEntry(l) }
}

// WithExporter publishes every session's metrics to e.
func WithExporter(e *perf.Exporter) Option {
	return func(h *Harness) { h.exporter = e }
}

func New(cfg Config, opts ...Option) *Harness {
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = kernel.Names()
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	if cfg.Sample < 1 {
		cfg.Sample = DefaultSample
	}
	h := &Harness{cfg: cfg, log: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("source", cfg.Source)
	return h
}

func (h *Harness) engine() *engine.Engine {
	return engine.New(engine.Options{
		LaneWidth: h.cfg.LaneWidth,
		Layout:    h.cfg.Layout,
		Lyapunov:  h.cfg.Lyapunov,
		Schedule:  h.cfg.Schedule,
	})
}

// Run executes the full comparison: Lyapunov per strategy, DFA with its
// spectral cross-check, and the pairwise consistency check.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	e := h.engine()
	rep := &Report{
		Source:     h.cfg.Source,
		Length:     len(h.cfg.Signal),
		Dim:        h.cfg.Dim,
		Delay:      h.cfg.Delay,
		Layout:     h.cfg.Layout.String(),
		LaneWidth:  e.Options().LaneWidth,
		Iterations: h.cfg.Iterations,
	}

	runs, err := h.lyapunov(ctx, e, h.cfg.Dim)
	if err != nil {
		return nil, err
	}
	rep.Runs = runs
	rep.summarize()

	if h.cfg.MaxBox > 0 {
		dfa, err := h.dfa(e)
		if err != nil {
			return nil, err
		}
		rep.DFA = dfa
	}

	cons, err := h.consistency(e.Options().LaneWidth)
	if err != nil {
		return nil, err
	}
	rep.Consistency = cons

	q, err := h.quantization(rep)
	if err != nil {
		return nil, err
	}
	rep.Quantization = q

	if h.cfg.Model != nil {
		ref, err := ModelExponent(*h.cfg.Model, h.cfg.Lyapunov.TimeScale)
		if err != nil {
			h.log.WithError(err).Warn("trajectory reference skipped")
		} else {
			rep.Reference = ref
		}
	}

	h.log.WithFields(logrus.Fields{
		"speedup":           fmt.Sprintf("%.2f", rep.Speedup),
		"instruction_ratio": fmt.Sprintf("%.2f", rep.InstructionRatio),
		"utilization_delta": fmt.Sprintf("%.1f", rep.UtilizationDelta),
		"lyapunov_error":    fmt.Sprintf("%.2e", rep.Quantization.LyapunovAbsError),
		"consistent":        rep.Consistency.OK(),
	}).Info("comparison finished")
	return rep, nil
}

// quantization measures the Q15 estimates of rep against float64
// estimators run on the same samples.
func (h *Harness) quantization(rep *Report) (Quantization, error) {
	q := Quantization{}
	if len(rep.Runs) == 0 {
		return q, nil
	}
	x := h.cfg.Signal.Floats()

	ref, err := analysis.LyapunovReference(x, h.cfg.Dim, h.cfg.Delay, h.cfg.Lyapunov)
	if err != nil {
		return q, fmt.Errorf("fp64 lyapunov: %w", err)
	}
	q.Lyapunov = ref
	q.LyapunovAbsError = math.Abs(rep.Runs[0].Exponent.Float() - ref)

	if len(rep.DFA.Fluctuations) > 0 {
		alpha, err := analysis.DFAReference(x, analysis.DFAOptions{
			MinBox:   h.cfg.MinBox,
			MaxBox:   h.cfg.MaxBox,
			Schedule: h.cfg.Schedule,
		})
		if err != nil {
			return q, fmt.Errorf("fp64 dfa: %w", err)
		}
		q.Alpha = alpha
		q.AlphaAbsError = math.Abs(rep.DFA.Alpha.Float() - alpha)
	}
	return q, nil
}

// ModelExponent integrates two nearby trajectories of m and returns the
// largest Lyapunov exponent per time unit and per output sample, the
// latter times timeScale to match the embedded estimate.
func ModelExponent(m signals.Model, timeScale int) (*ReferenceRun, error) {
	integ, err := integrators.Lookup(m.Trajectory.Integrator)
	if err != nil {
		return nil, err
	}
	x0 := m.System.DefaultState()
	if m.Trajectory.Initial != nil {
		x0 = m.Trajectory.Initial
	}
	perTime, err := analysis.TrajectoryExponent(m.System, integ, x0, m.Trajectory.Dt, ReferenceDuration, referencePerturbation)
	if err != nil {
		return nil, err
	}
	if timeScale < 1 {
		timeScale = analysis.DefaultTimeScale
	}
	return &ReferenceRun{
		PerTime:   perTime,
		PerSample: perTime * m.Trajectory.SampleInterval() * float64(timeScale),
	}, nil
}

// Sweep repeats the Lyapunov comparison for each embedding dimension.
func (h *Harness) Sweep(ctx context.Context, dims []int) ([]SweepPoint, error) {
	e := h.engine()
	points := make([]SweepPoint, 0, len(dims))
	for _, dim := range dims {
		runs, err := h.lyapunov(ctx, e, dim)
		if err != nil {
			return nil, fmt.Errorf("dim %d: %w", dim, err)
		}
		rep := &Report{Runs: runs}
		rep.summarize()
		points = append(points, SweepPoint{
			Dim:              dim,
			Speedup:          rep.Speedup,
			InstructionRatio: rep.InstructionRatio,
			UtilizationDelta: rep.UtilizationDelta,
		})
	}
	return points, nil
}

func (h *Harness) lyapunov(ctx context.Context, e *engine.Engine, dim int) ([]StrategyRun, error) {
	runs := make([]StrategyRun, 0, len(h.cfg.Strategies))
	for _, name := range h.cfg.Strategies {
		s, err := e.Strategy(name)
		if err != nil {
			return nil, err
		}
		run := StrategyRun{Strategy: s.Name()}
		for i := 0; i < h.cfg.Iterations; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res, m, err := e.Lyapunov(h.cfg.Signal, dim, h.cfg.Delay, s)
			if err != nil {
				return nil, fmt.Errorf("%s lyapunov: %w", s.Name(), err)
			}
			run.Exponent = res.Exponent
			run.Curve = res.Curve
			run.Slope = res.Slope
			run.Metrics = run.Metrics.Add(m)
			if h.exporter != nil {
				h.exporter.Observe("lyapunov", s.Name(), m)
			}
			h.log.WithFields(logrus.Fields{
				"strategy":  s.Name(),
				"dim":       dim,
				"iteration": i,
				"elapsed":   m.ProcessingTime,
			}).Debug("lyapunov run")
		}
		run.MeanTime = run.Metrics.ProcessingTime / time.Duration(h.cfg.Iterations)
		runs = append(runs, run)
	}
	return runs, nil
}

func (h *Harness) dfa(e *engine.Engine) (DFARun, error) {
	res, m, err := e.DFA(h.cfg.Signal, h.cfg.MinBox, h.cfg.MaxBox)
	if err != nil {
		return DFARun{}, fmt.Errorf("dfa: %w", err)
	}
	if h.exporter != nil {
		h.exporter.Observe("dfa", "vek", m)
	}
	run := DFARun{
		Alpha:        res.Alpha,
		Intercept:    res.Intercept,
		Fluctuations: res.Fluctuations,
		Metrics:      m,
	}

	beta, err := analysis.SpectralExponent(h.cfg.Signal, nil)
	if err != nil {
		h.log.WithError(err).Warn("spectral cross-check skipped")
	} else {
		run.SpectralBeta = beta
		run.SpectralAlpha = analysis.AlphaFromBeta(beta)
	}
	return run, nil
}

// consistency compares all pairwise distances of the first Sample points
// between the baseline and every other strategy.
func (h *Harness) consistency(width int) (Consistency, error) {
	span := (h.cfg.Dim - 1) * h.cfg.Delay
	n := min(len(h.cfg.Signal), h.cfg.Sample+span)
	ps, err := phase.Reconstruct(h.cfg.Signal[:n], phase.Config{
		Dim:    h.cfg.Dim,
		Delay:  h.cfg.Delay,
		Layout: phase.LayoutPadded,
		Align:  width,
	}, nil)
	if err != nil {
		return Consistency{}, err
	}

	base, err := kernel.Lookup(baseline, width)
	if err != nil {
		return Consistency{}, err
	}
	want, err := kernel.Compute(ps, kernel.ModeAllPairs, base, nil)
	if err != nil {
		return Consistency{}, err
	}

	cons := Consistency{Pairs: len(want)}
	for _, name := range h.cfg.Strategies {
		s, err := kernel.Lookup(name, width)
		if err != nil {
			return Consistency{}, err
		}
		if s.Name() == base.Name() {
			continue
		}
		got, err := kernel.Compute(ps, kernel.ModeAllPairs, s, nil)
		if err != nil {
			return Consistency{}, err
		}
		for k := range want {
			d := got[k].Squared - want[k].Squared
			if d < 0 {
				d = -d
			}
			if d != 0 {
				cons.Mismatches++
				cons.MaxAbsDiff = max(cons.MaxAbsDiff, d)
			}
		}
	}
	if !cons.OK() {
		h.log.WithFields(logrus.Fields{
			"mismatches": cons.Mismatches,
			"max_diff":   cons.MaxAbsDiff,
		}).Error("strategies disagree")
	}
	return cons, nil
}
