// Package analysis estimates nonlinear-dynamics features from Q15 signals.
//
//   - [Lyapunov]: largest Lyapunov exponent from nearest-neighbor
//     divergence in a reconstructed phase space
//   - [DFA]: detrended-fluctuation scaling exponent alpha
//   - [SpectralExponent]: periodogram slope beta, a cross-check for DFA
//   - [TrajectoryExponent]: reference exponent of an ODE system by
//     trajectory separation, used to sanity-check the embedded estimate
//   - [LyapunovReference], [DFAReference]: float64 versions of the two
//     estimators that measure the quantization error of the Q15 path
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	nn, _ := kernel.Compute(ps, kernel.ModeNearest, strat, c)
//	res, _ := analysis.Lyapunov(ps, nn, strat, analysis.LyapunovOptions{}, c)
//	if res.Exponent > 0 {
//	    // System is chaotic
//	}
//
// DFA alpha is about 0.5 for white noise, 1.0 for 1/f noise and 1.5 for a
// random walk.
package analysis
