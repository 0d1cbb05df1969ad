// Package kernel computes squared Euclidean distances between phase-space
// vectors with two interchangeable strategies.
//
//   - [Generic] processes each pair in lane-width chunks, reduces every
//     chunk horizontally and finishes with a scalar remainder loop. It works
//     on any [phase.Space] layout.
//   - [Specialized] needs a strided layout. It keeps lane-wide accumulators
//     across the whole row and reduces once per pair; with a padded layout
//     the row stride is a multiple of the lane width and no scalar tail is
//     executed.
//
// Both strategies return the exact wide sum of squared differences, so
// their results are identical for the same phase space. [Record.Q15]
// applies the engine-wide downscaling rule (arithmetic >>15, saturating).
package kernel
