// Package engine is the entry point to nonlinear-dynamics estimation on Q15
// signals. It ties reconstruction, distance kernels and estimators to a
// single measurement session per call.
//
// Each estimate opens its own session on the engine's monitor, so an engine
// runs one estimate at a time; a concurrent call fails with ErrSessionBusy
// instead of mixing counters. Callers that want to meter a custom pipeline
// open a session with BeginSession and pass its Counters to the phase,
// kernel and analysis packages directly.
package engine

import (
	"fmt"

	"github.com/san-kum/nldkit/internal/analysis"
	"github.com/san-kum/nldkit/internal/cpu"
	"github.com/san-kum/nldkit/internal/kernel"
	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/q15"
)

var (
	ErrInvalidParameters = analysis.ErrInvalidParameters
	ErrInsufficientData  = analysis.ErrInsufficientData
	ErrDimensionMismatch = kernel.ErrDimensionMismatch
	ErrLayout            = kernel.ErrLayout
	ErrSessionBusy       = perf.ErrSessionBusy
	ErrSessionClosed     = perf.ErrSessionClosed
)

type Options struct {
	// LaneWidth is the modelled vector width. Zero selects the host
	// default from cpu.DefaultLaneWidth.
	LaneWidth int
	// Layout is used for every reconstruction the engine performs.
	Layout   phase.Layout
	Lyapunov analysis.LyapunovOptions
	Schedule analysis.Schedule
}

// DefaultOptions uses padded rows at the host lane width.
func DefaultOptions() Options {
	return Options{Layout: phase.LayoutPadded}
}

type Engine struct {
	monitor *perf.Monitor
	opts    Options
}

func New(opts Options) *Engine {
	if opts.LaneWidth <= 0 {
		opts.LaneWidth = cpu.DefaultLaneWidth()
	}
	return &Engine{monitor: perf.NewMonitor(), opts: opts}
}

func (e *Engine) Options() Options { return e.opts }

// Strategy looks up a distance strategy by name at the engine's lane width.
func (e *Engine) Strategy(name string) (kernel.Strategy, error) {
	return kernel.Lookup(name, e.opts.LaneWidth)
}

// BeginSession opens a measurement session. Only one may be open at a time.
func (e *Engine) BeginSession() (*perf.Session, error) {
	return e.monitor.Begin()
}

// EndSession closes s and returns its metrics.
func (e *Engine) EndSession(s *perf.Session) (perf.Metrics, error) {
	return e.monitor.End(s)
}

// ReconstructPhaseSpace embeds sig with padded rows at the host lane width,
// which every strategy accepts. No counters are charged.
func ReconstructPhaseSpace(sig q15.Signal, dim, delay int) (phase.Space, error) {
	return phase.Reconstruct(sig, phase.Config{
		Dim:    dim,
		Delay:  delay,
		Layout: phase.LayoutPadded,
		Align:  cpu.DefaultLaneWidth(),
	}, nil)
}

// ComputeDistances runs strategy over ps without charging any counters.
func ComputeDistances(ps phase.Space, mode kernel.Mode, strategy kernel.Strategy) ([]kernel.Record, error) {
	return kernel.Compute(ps, mode, strategy, nil)
}

// EstimateLyapunov returns the largest Lyapunov exponent of sig and the
// metrics of the session that computed it.
func (e *Engine) EstimateLyapunov(sig q15.Signal, dim, delay int, strategy kernel.Strategy) (q15.Fixed, perf.Metrics, error) {
	res, m, err := e.Lyapunov(sig, dim, delay, strategy)
	return res.Exponent, m, err
}

// Lyapunov is EstimateLyapunov with the full result, including the
// divergence curve.
func (e *Engine) Lyapunov(sig q15.Signal, dim, delay int, strategy kernel.Strategy) (analysis.LyapunovResult, perf.Metrics, error) {
	if strategy == nil {
		return analysis.LyapunovResult{}, perf.Metrics{}, fmt.Errorf("%w: nil strategy", ErrInvalidParameters)
	}
	s, err := e.monitor.Begin()
	if err != nil {
		return analysis.LyapunovResult{}, perf.Metrics{}, err
	}
	res, runErr := e.lyapunov(sig, dim, delay, strategy, s.Counters())
	m, err := e.monitor.End(s)
	if runErr != nil {
		return analysis.LyapunovResult{}, m, runErr
	}
	return res, m, err
}

func (e *Engine) lyapunov(sig q15.Signal, dim, delay int, strategy kernel.Strategy, c *perf.Counters) (analysis.LyapunovResult, error) {
	ps, err := phase.Reconstruct(sig, phase.Config{
		Dim:    dim,
		Delay:  delay,
		Layout: e.opts.Layout,
		Align:  e.opts.LaneWidth,
	}, c)
	if err != nil {
		return analysis.LyapunovResult{}, fmt.Errorf("reconstruct: %w", err)
	}
	nn, err := kernel.Compute(ps, kernel.ModeNearest, strategy, c)
	if err != nil {
		return analysis.LyapunovResult{}, fmt.Errorf("nearest neighbors: %w", err)
	}
	return analysis.Lyapunov(ps, nn, strategy, e.opts.Lyapunov, c)
}

// EstimateDFA returns the DFA scaling exponent of sig over box sizes
// [minBox, maxBox] and the metrics of the session that computed it.
func (e *Engine) EstimateDFA(sig q15.Signal, minBox, maxBox int) (q15.Fixed, perf.Metrics, error) {
	res, m, err := e.DFA(sig, minBox, maxBox)
	return res.Alpha, m, err
}

// DFA is EstimateDFA with the full fluctuation table.
func (e *Engine) DFA(sig q15.Signal, minBox, maxBox int) (analysis.DFAResult, perf.Metrics, error) {
	s, err := e.monitor.Begin()
	if err != nil {
		return analysis.DFAResult{}, perf.Metrics{}, err
	}
	res, runErr := analysis.DFA(sig, analysis.DFAOptions{
		MinBox:   minBox,
		MaxBox:   maxBox,
		Schedule: e.opts.Schedule,
	}, s.Counters())
	m, err := e.monitor.End(s)
	if runErr != nil {
		return res, m, runErr
	}
	return res, m, err
}
