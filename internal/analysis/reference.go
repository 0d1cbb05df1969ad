package analysis

import (
	"fmt"
	"math"

	"github.com/viterin/vek"

	"github.com/san-kum/nldkit/internal/dynamo"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/q15"
)

// TrajectoryExponent estimates the largest Lyapunov exponent of an ODE
// system directly, by integrating two nearby trajectories and averaging
// their log separation with periodic renormalization:
//
//	lambda ≈ (1/t) * ln(|dx(t)| / |dx(0)|)
//
// The result is per unit of simulated time. It serves as ground truth for
// the embedded estimate on synthetic attractor signals. A diverging run
// returns an *dynamo.IntegrationError.
func TrajectoryExponent(
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt, duration float64,
	perturbation float64,
) (float64, error) {
	if perturbation <= 0 || dt <= 0 || duration < dt {
		return 0, fmt.Errorf("%w: dt=%g duration=%g perturbation=%g", ErrInvalidParameters, dt, duration, perturbation)
	}
	if len(x0) == 0 || !x0.IsValid() {
		return 0, &dynamo.IntegrationError{State: x0.Clone(), Wrapped: dynamo.ErrInvalidState}
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation
	d0 := perturbation

	t := 0.0
	sumLog := 0.0
	count := 0

	for step := 0; t < duration; step++ {
		x = integ.Step(dyn, x, t, dt)
		xp = integ.Step(dyn, xp, t, dt)
		t += dt
		if !x.IsValid() || !xp.IsValid() {
			return 0, &dynamo.IntegrationError{Step: step, Time: t, State: x.Clone(), Wrapped: dynamo.ErrUnstable}
		}

		sep := xp.Sub(x).Norm()
		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++

			// Renormalize so the separation stays in the linear regime
			scale := d0 / sep
			for i := range xp {
				xp[i] = x[i] + (xp[i]-x[i])*scale
			}
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * dt), nil
}

// minSquared is one Q15 LSB squared, the distance floor shared with the
// fixed-point estimator.
const minSquared = q15.Epsilon * q15.Epsilon

// LyapunovReference is the float64 counterpart of the embedded estimator:
// the same delay embedding, nearest neighbors under the same temporal
// exclusion and tie rule, the same offsets and distance floor, but with
// exact logarithms and no fixed-point rounding. x is in signal units, so
// Q15 input is passed as Signal.Floats().
func LyapunovReference(x []float64, dim, delay int, opts LyapunovOptions) (float64, error) {
	horizon, scale := opts.Horizon, opts.TimeScale
	if horizon == 0 {
		horizon = DefaultHorizon
	}
	if scale == 0 {
		scale = DefaultTimeScale
	}
	if horizon < 1 || scale < 1 {
		return 0, fmt.Errorf("%w: horizon=%d time scale=%d", ErrInvalidParameters, horizon, scale)
	}
	if err := phase.Validate(len(x), dim, delay); err != nil {
		return 0, err
	}

	n := phase.Size(len(x), dim, delay)
	squared := func(i, j int) float64 {
		s := 0.0
		for k := 0; k < dim; k++ {
			d := x[i+k*delay] - x[j+k*delay]
			s += d * d
		}
		return s
	}

	sum, terms := 0.0, 0
	for i := 0; i < n; i++ {
		j, best := -1, math.Inf(1)
		for cand := 0; cand < n; cand++ {
			if cand-i < delay && i-cand < delay {
				continue
			}
			if d := squared(i, cand); d < best {
				j, best = cand, d
			}
		}
		if j < 0 {
			continue
		}
		d0 := math.Max(best, minSquared)
		for dt := 1; dt <= min(horizon, n-1-i, n-1-j); dt++ {
			d := math.Max(squared(i+dt, j+dt), minSquared)
			sum += 0.5 * math.Log(d/d0) / float64(dt)
			terms++
		}
	}

	if terms == 0 {
		return 0, fmt.Errorf("%w: no neighbor pair has a forward offset within %d points", ErrInsufficientData, n)
	}
	return sum / float64(terms) * float64(scale), nil
}

// DFAReference is the float64 counterpart of DFA. The profile subtracts
// the exact mean instead of the floored integer one; box schedule,
// detrending and fit are shared.
func DFAReference(x []float64, opts DFAOptions) (float64, error) {
	if err := validateDFA(len(x), opts); err != nil {
		return 0, err
	}
	centered := vek.SubNumber(x, vek.Mean(x))
	vek.MulNumber_Inplace(centered, q15.One)
	_, alpha, err := fitProfile(vek.CumSum(centered), opts, nil)
	return alpha, err
}
