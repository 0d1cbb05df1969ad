// Package simd models a fixed-width integer vector unit for Q15 kernels.
//
// Go has no portable SIMD intrinsics, so [Unit] executes each lane
// operation as a short loop over Width lanes and charges the session's
// counters as the equivalent hardware instruction would. The lane loops are
// straight-line and bounds-check friendly, which lets the compiler keep
// them tight; the point of the model is that both kernel strategies pay for
// exactly the operations they issue.
//
// Operation costs (vector instructions per call):
//
//	Diff             4  two loads + widening subtract (low/high halves)
//	Square           2  widening multiply (low/high)
//	SquareAccumulate 2  widening multiply-accumulate (low/high)
//	Add, Zero        1
//	ReduceAdd        1  horizontal add
//	MinIndex         3  compare, select distance, select index
//	ReduceMin        1  horizontal min
package simd
