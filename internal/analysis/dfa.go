package analysis

import (
	"fmt"
	"math"

	"github.com/viterin/vek"

	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/q15"
)

// Schedule selects which box sizes in [MinBox, MaxBox] are evaluated.
type Schedule int

const (
	// ScheduleGeometric grows box sizes by a factor of 1.5 (at least +1).
	ScheduleGeometric Schedule = iota
	// ScheduleLinear evaluates every integer box size.
	ScheduleLinear
)

func (s Schedule) String() string {
	if s == ScheduleLinear {
		return "linear"
	}
	return "geometric"
}

// ParseSchedule maps a schedule name to its Schedule.
func ParseSchedule(name string) (Schedule, error) {
	switch name {
	case "", "geometric":
		return ScheduleGeometric, nil
	case "linear":
		return ScheduleLinear, nil
	}
	return 0, fmt.Errorf("unknown box schedule: %s", name)
}

// minFluctuation is far below the smallest non-zero fluctuation an integer
// profile can produce; anything smaller is rounding noise from an exact fit,
// as with boxes of two samples.
const minFluctuation = 1e-9

type DFAOptions struct {
	MinBox   int
	MaxBox   int
	Schedule Schedule
}

// Fluctuation is the mean detrended RMS fluctuation for one box size.
type Fluctuation struct {
	Box     int
	Windows int
	F       float64
}

type DFAResult struct {
	// Alpha is the slope of log F(n) against log n.
	Alpha q15.Fixed
	// Intercept of the log-log fit.
	Intercept float64
	// Fluctuations lists every evaluated box size, including skipped
	// ones with F == 0.
	Fluctuations []Fluctuation
}

// BoxSizes returns the box sizes the schedule visits between lo and hi.
func BoxSizes(lo, hi int, s Schedule) []int {
	var sizes []int
	for n := lo; n <= hi; {
		sizes = append(sizes, n)
		next := n + 1
		if s == ScheduleGeometric {
			next = max(int(float64(n)*1.5), n+1)
		}
		n = next
	}
	return sizes
}

// DFA computes the detrended-fluctuation scaling exponent of sig.
//
// The mean-subtracted profile is integrated in int64, so it cannot overflow
// for any Q15 input; the per-window linear detrend and the final log-log
// regression run in float64.
func DFA(sig q15.Signal, opts DFAOptions, c *perf.Counters) (DFAResult, error) {
	if err := validateDFA(len(sig), opts); err != nil {
		return DFAResult{}, err
	}
	res, alpha, err := fitProfile(integrate(sig, c), opts, c)
	if err != nil {
		return res, err
	}
	res.Alpha = q15.FixedFromFloat(alpha)
	return res, nil
}

func validateDFA(n int, opts DFAOptions) error {
	if opts.MinBox < 2 {
		return fmt.Errorf("%w: min box size %d < 2", ErrInvalidParameters, opts.MinBox)
	}
	if opts.MaxBox > n/4 {
		return fmt.Errorf("%w: max box size %d > signal length/4 (%d)", ErrInvalidParameters, opts.MaxBox, n/4)
	}
	if opts.MinBox > opts.MaxBox {
		return fmt.Errorf("%w: min box size %d > max box size %d", ErrInvalidParameters, opts.MinBox, opts.MaxBox)
	}
	return nil
}

// fitProfile evaluates every scheduled box size on a profile in LSB units
// and fits log F(n) against log n. It fills everything but Alpha.
func fitProfile(profile []float64, opts DFAOptions, c *perf.Counters) (DFAResult, float64, error) {
	res := DFAResult{}
	var logN, logF []float64
	for _, n := range BoxSizes(opts.MinBox, opts.MaxBox, opts.Schedule) {
		f, windows := fluctuation(profile, n, c)
		res.Fluctuations = append(res.Fluctuations, Fluctuation{Box: n, Windows: windows, F: f})
		if f <= minFluctuation {
			continue
		}
		logN = append(logN, math.Log(float64(n)))
		logF = append(logF, math.Log(f))
		c.RecordInstructions(2)
	}

	if len(logN) < 2 {
		return res, 0, fmt.Errorf("%w: %d box sizes with non-zero fluctuation", ErrInsufficientData, len(logN))
	}

	alpha, intercept := fitLine(logN, logF)
	c.RecordVectorInstructions(4 * lanes(len(logN)))
	res.Intercept = intercept
	return res, alpha, nil
}

// integrate returns the cumulative sum of sig minus its mean, in units of
// one Q15 LSB. The mean is floored; the remaining sub-LSB offset is a
// linear trend that every window's detrend removes.
func integrate(sig q15.Signal, c *perf.Counters) []float64 {
	var sum int64
	for _, x := range sig {
		sum += int64(x)
	}
	mean := floorDiv(sum, int64(len(sig)))

	profile := make([]float64, len(sig))
	var y int64
	for k, x := range sig {
		y += int64(x) - mean
		profile[k] = float64(y)
	}
	c.RecordInstructions(5 * len(sig))
	c.RecordMemoryAccess(2 * len(sig))
	return profile
}

// fluctuation partitions the profile into non-overlapping windows of n
// samples, removes a least-squares line from each and returns the mean RMS
// of the residuals in Q15 units.
func fluctuation(profile []float64, n int, c *perf.Counters) (float64, int) {
	windows := len(profile) / n
	if windows == 0 {
		return 0, 0
	}

	// centered abscissa; its mean is zero so the fit decouples
	xc := make([]float64, n)
	for k := range xc {
		xc[k] = float64(k) - float64(n-1)/2
	}
	sxx := vek.Dot(xc, xc)

	trend := make([]float64, n)
	resid := make([]float64, n)
	total := 0.0
	for w := 0; w < windows; w++ {
		seg := profile[w*n : (w+1)*n]
		mean := vek.Mean(seg)
		slope := vek.Dot(xc, seg) / sxx

		copy(trend, xc)
		vek.MulNumber_Inplace(trend, slope)
		copy(resid, seg)
		vek.Sub_Inplace(resid, trend)
		vek.SubNumber_Inplace(resid, mean)

		total += math.Sqrt(vek.Dot(resid, resid) / float64(n))

		c.RecordVectorInstructions(6 * lanes(n))
		c.RecordInstructions(6) // sqrt, divides, window bookkeeping
		c.RecordMemoryAccess(n)
	}
	return total / float64(windows) / q15.One, windows
}

// lanes is the number of 256-bit float64 vector operations covering n values.
func lanes(n int) int {
	return (n + 3) / 4
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
