package analysis

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/q15"
)

// minSpectrumLength is the shortest signal whose low band holds enough bins
// for a slope fit.
const minSpectrumLength = 16

// PowerSpectrum returns |X(k)|^2 for k in [0, n/2] of the mean-removed
// signal.
func PowerSpectrum(sig q15.Signal) []float64 {
	xs := sig.Floats()
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for i := range xs {
		xs[i] -= mean
	}

	spec := fft.FFTReal(xs)
	ps := make([]float64, len(spec)/2+1)
	for k := range ps {
		a := cmplx.Abs(spec[k])
		ps[k] = a * a
	}
	return ps
}

// SpectralExponent fits P(f) ~ f^-beta to the lowest quarter of the
// periodogram and returns beta. For fractional noises and their sums
// alpha = (beta+1)/2, which makes it a cross-check for DFA.
func SpectralExponent(sig q15.Signal, c *perf.Counters) (float64, error) {
	n := len(sig)
	if n < minSpectrumLength {
		return 0, fmt.Errorf("%w: spectrum needs %d samples, got %d", ErrInsufficientData, minSpectrumLength, n)
	}

	ps := PowerSpectrum(sig)
	c.RecordInstructions(5 * n * bits.Len(uint(n)))
	c.RecordMemoryAccess(2 * n)

	var logF, logP []float64
	for k := 1; k <= n/4; k++ {
		if ps[k] <= 0 {
			continue
		}
		logF = append(logF, math.Log(float64(k)/float64(n)))
		logP = append(logP, math.Log(ps[k]))
	}
	if len(logF) < 2 {
		return 0, fmt.Errorf("%w: %d non-zero spectral bins", ErrInsufficientData, len(logF))
	}

	slope, _ := fitLine(logF, logP)
	c.RecordVectorInstructions(4 * lanes(len(logF)))
	return -slope, nil
}

// AlphaFromBeta converts a spectral exponent into the DFA exponent it
// implies.
func AlphaFromBeta(beta float64) float64 {
	return (beta + 1) / 2
}
