package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/nldkit/internal/analysis"
	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/q15"
)

type StrategyRun struct {
	Strategy string       `json:"strategy"`
	Exponent q15.Fixed    `json:"lyapunov_q15"`
	Slope    float64      `json:"divergence_slope"`
	Curve    []float64    `json:"divergence_curve"`
	Metrics  perf.Metrics `json:"metrics"`
	// MeanTime is the mean session time over all iterations.
	MeanTime time.Duration `json:"mean_time_ns"`
}

type DFARun struct {
	Alpha        q15.Fixed              `json:"alpha_q15"`
	Intercept    float64                `json:"intercept"`
	Fluctuations []analysis.Fluctuation `json:"fluctuations"`
	// SpectralBeta is zero when the periodogram had too few bins.
	SpectralBeta  float64      `json:"spectral_beta"`
	SpectralAlpha float64      `json:"spectral_alpha"`
	Metrics       perf.Metrics `json:"metrics"`
}

// Consistency counts pairwise distances on which strategies disagree.
type Consistency struct {
	Pairs      int   `json:"pairs"`
	Mismatches int   `json:"mismatches"`
	MaxAbsDiff int64 `json:"max_abs_diff"`
}

func (c Consistency) OK() bool { return c.Mismatches == 0 }

// Quantization compares the Q15 estimates with float64 estimators on the
// same samples. The DFA fields are zero when DFA was not run.
type Quantization struct {
	Lyapunov         float64 `json:"lyapunov_fp64"`
	LyapunovAbsError float64 `json:"lyapunov_abs_error"`
	Alpha            float64 `json:"alpha_fp64"`
	AlphaAbsError    float64 `json:"alpha_abs_error"`
}

// ReferenceRun is the exponent of the ODE system behind an attractor
// signal, from two-trajectory separation.
type ReferenceRun struct {
	PerTime   float64 `json:"per_time"`
	PerSample float64 `json:"per_sample"`
}

type SweepPoint struct {
	Dim              int     `json:"dim"`
	Speedup          float64 `json:"speedup"`
	InstructionRatio float64 `json:"instruction_ratio"`
	UtilizationDelta float64 `json:"utilization_delta"`
}

type Report struct {
	Source     string `json:"source"`
	Length     int    `json:"length"`
	Dim        int    `json:"dim"`
	Delay      int    `json:"delay"`
	Layout     string `json:"layout"`
	LaneWidth  int    `json:"lane_width"`
	Iterations int    `json:"iterations"`

	Runs []StrategyRun `json:"lyapunov"`
	DFA  DFARun        `json:"dfa"`

	// Speedup is baseline mean time over specialized mean time.
	Speedup float64 `json:"speedup"`
	// InstructionRatio is the same ratio over modelled instruction counts,
	// which does not depend on host timing.
	InstructionRatio float64 `json:"instruction_ratio"`
	// UtilizationDelta is specialized minus baseline utilization, in
	// percentage points.
	UtilizationDelta float64 `json:"utilization_delta"`
	// ExponentsAgree reports whether every strategy produced the same
	// Q15 exponent.
	ExponentsAgree bool        `json:"exponents_agree"`
	Consistency    Consistency `json:"consistency"`

	Quantization Quantization `json:"quantization"`
	// Reference is set for attractor sources only.
	Reference *ReferenceRun `json:"reference,omitempty"`
}

// Run returns the run of the named strategy, or nil.
func (r *Report) Run(strategy string) *StrategyRun {
	for i := range r.Runs {
		if r.Runs[i].Strategy == strategy {
			return &r.Runs[i]
		}
	}
	return nil
}

func (r *Report) summarize() {
	if len(r.Runs) == 0 {
		return
	}
	r.ExponentsAgree = true
	for _, run := range r.Runs[1:] {
		if run.Exponent != r.Runs[0].Exponent {
			r.ExponentsAgree = false
		}
	}

	b, c := r.Run(baseline), r.Run(candidate)
	if b == nil || c == nil {
		return
	}
	if c.MeanTime > 0 {
		r.Speedup = float64(b.MeanTime) / float64(c.MeanTime)
	}
	if c.Metrics.TotalInstructions > 0 {
		r.InstructionRatio = float64(b.Metrics.TotalInstructions) / float64(c.Metrics.TotalInstructions)
	}
	r.UtilizationDelta = c.Metrics.VectorUtilization - b.Metrics.VectorUtilization
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(20)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

// Render formats the report for a terminal.
func (r *Report) Render() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("%s  n=%d dim=%d delay=%d %s/%d lanes",
		r.Source, r.Length, r.Dim, r.Delay, r.Layout, r.LaneWidth)) + "\n\n")

	for _, run := range r.Runs {
		s.WriteString(titleStyle.Render(strings.ToUpper(run.Strategy)) + "\n")
		s.WriteString(row("lyapunov", fmt.Sprintf("%.5f (q15 %d)", run.Exponent.Float(), run.Exponent)))
		s.WriteString(row("mean time", run.MeanTime.String()))
		s.WriteString(row("instructions", fmt.Sprintf("%d", run.Metrics.TotalInstructions)))
		s.WriteString(row("vector util", fmt.Sprintf("%.1f%%", run.Metrics.VectorUtilization)))
		s.WriteString(row("tail", fmt.Sprintf("%d", run.Metrics.TailInstructions)))
		s.WriteString(row("bandwidth", fmt.Sprintf("%.3f GiB/s", run.Metrics.BandwidthGBps())))
		s.WriteString("\n")
	}

	if r.Speedup > 0 || r.InstructionRatio > 0 {
		s.WriteString(row("speedup", fmt.Sprintf("%.2fx", r.Speedup)))
		s.WriteString(row("instruction ratio", fmt.Sprintf("%.2fx", r.InstructionRatio)))
		s.WriteString(row("utilization delta", fmt.Sprintf("%+.1f pts", r.UtilizationDelta)))
	}
	if len(r.DFA.Fluctuations) > 0 {
		s.WriteString(row("dfa alpha", fmt.Sprintf("%.4f", r.DFA.Alpha.Float())))
		s.WriteString(row("spectral alpha", fmt.Sprintf("%.4f (beta %.3f)", r.DFA.SpectralAlpha, r.DFA.SpectralBeta)))
	}

	if len(r.Runs) > 0 {
		s.WriteString(row("fp64 lyapunov", fmt.Sprintf("%.5f (abs err %.2e)", r.Quantization.Lyapunov, r.Quantization.LyapunovAbsError)))
	}
	if len(r.DFA.Fluctuations) > 0 {
		s.WriteString(row("fp64 alpha", fmt.Sprintf("%.4f (abs err %.2e)", r.Quantization.Alpha, r.Quantization.AlphaAbsError)))
	}
	if r.Reference != nil {
		s.WriteString(row("trajectory ref", fmt.Sprintf("%.5f (%.4f per time unit)", r.Reference.PerSample, r.Reference.PerTime)))
	}

	status := goodStyle.Render("consistent")
	if !r.Consistency.OK() || !r.ExponentsAgree {
		status = badStyle.Render(fmt.Sprintf("MISMATCH (%d pairs, max %d)", r.Consistency.Mismatches, r.Consistency.MaxAbsDiff))
	}
	s.WriteString(labelStyle.Render("strategies") + status)

	return panelStyle.Render(s.String())
}
