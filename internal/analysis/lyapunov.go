package analysis

import (
	"fmt"

	"github.com/san-kum/nldkit/internal/kernel"
	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/q15"
)

const (
	DefaultHorizon   = 5
	DefaultTimeScale = 1

	// guardBits keeps extra fraction bits while terms are divided by their
	// offset and averaged.
	guardBits = 8
)

type LyapunovOptions struct {
	// Horizon is the largest forward offset tracked; offsets 1..Horizon are
	// used. Zero selects DefaultHorizon.
	Horizon int
	// TimeScale converts the per-sample rate into the caller's time unit,
	// e.g. the sampling rate in Hz for a per-second exponent. Zero selects
	// DefaultTimeScale.
	TimeScale int
}

type LyapunovResult struct {
	// Exponent is the mean log-divergence rate times TimeScale.
	Exponent q15.Fixed
	// Terms is the number of (point, offset) pairs averaged.
	Terms int
	// Points is the number of reference points that contributed.
	Points int
	// Curve holds the mean ln-distance at offsets 0..Horizon over the
	// contributing neighbor pairs (the Rosenstein divergence curve).
	Curve []float64
	// Slope is the least-squares slope of Curve times TimeScale.
	Slope float64
}

// Lyapunov estimates the largest Lyapunov exponent from the nearest-neighbor
// records of ps. For every point i with neighbor j and every offset dt with
// i+dt and j+dt inside the phase space it averages
//
//	ln(d(i+dt, j+dt) / d(i, j)) / dt
//
// where ln uses the fixed-point table logarithm of q15.Log2 on squared
// distances floored at one LSB. Points without any valid offset are left
// out of the average. A constant signal therefore yields exactly zero.
//
// Every division floors, so the exponent is rounded toward negative
// infinity whatever its sign.
func Lyapunov(ps phase.Space, nn []kernel.Record, s kernel.Strategy, opts LyapunovOptions, c *perf.Counters) (LyapunovResult, error) {
	horizon, scale := opts.Horizon, opts.TimeScale
	if horizon == 0 {
		horizon = DefaultHorizon
	}
	if scale == 0 {
		scale = DefaultTimeScale
	}
	if horizon < 1 || scale < 1 {
		return LyapunovResult{}, fmt.Errorf("%w: horizon=%d time scale=%d", ErrInvalidParameters, horizon, scale)
	}
	if len(nn) != ps.Len() {
		return LyapunovResult{}, fmt.Errorf("%w: %d records for %d points", kernel.ErrDimensionMismatch, len(nn), ps.Len())
	}

	n := ps.Len()
	var acc int64
	terms, points := 0, 0
	curveSum := make([]int64, horizon+1)
	curveCnt := make([]int, horizon+1)

	for _, r := range nn {
		if !r.Found() {
			continue
		}
		i, j := r.I, r.J
		maxDt := min(horizon, n-1-i, n-1-j)
		if maxDt < 1 {
			continue
		}

		l0 := q15.Log2(r.Squared)
		curveSum[0] += int64(l0)
		curveCnt[0]++
		points++

		for dt := 1; dt <= maxDt; dt++ {
			d, err := kernel.Distance(ps, s, i+dt, j+dt, c)
			if err != nil {
				return LyapunovResult{}, err
			}
			acc += termRate(int64(q15.LnRatio(d, r.Squared)), dt)
			terms++

			curveSum[dt] += int64(q15.Log2(d))
			curveCnt[dt]++

			c.RecordInstructions(9) // two table logs, sub, mul, shift, div, add, bookkeeping
			c.RecordMemoryAccess(2)
		}
	}

	if terms == 0 {
		return LyapunovResult{}, fmt.Errorf("%w: no neighbor pair has a forward offset within %d points", ErrInsufficientData, n)
	}

	mean := floorDiv(acc, int64(terms)) >> guardBits
	res := LyapunovResult{
		Exponent: saturateFixed(mean * int64(scale)),
		Terms:    terms,
		Points:   points,
		Curve:    make([]float64, 0, horizon+1),
	}

	ln2 := q15.Ln2.Float()
	for dt := 0; dt <= horizon && curveCnt[dt] > 0; dt++ {
		l2 := float64(curveSum[dt]) / float64(curveCnt[dt]) / q15.One
		res.Curve = append(res.Curve, 0.5*ln2*l2)
	}
	if len(res.Curve) >= 2 {
		xs := make([]float64, len(res.Curve))
		for k := range xs {
			xs[k] = float64(k)
		}
		slope, _ := fitLine(xs, res.Curve)
		res.Slope = slope * float64(scale)
	}
	return res, nil
}

// termRate turns ln(d1^2/d0^2) into ln(d1/d0)/dt with guardBits extra
// fraction bits. Shifting by guardBits-1 instead of guardBits is the halving
// from squared distances to distances. The division floors.
func termRate(lnSquared int64, dt int) int64 {
	return floorDiv(lnSquared<<(guardBits-1), int64(dt))
}

func saturateFixed(v int64) q15.Fixed {
	const maxFixed, minFixed = 1<<31 - 1, -1 << 31
	if v > maxFixed {
		return maxFixed
	}
	if v < minFixed {
		return minFixed
	}
	return q15.Fixed(v)
}
