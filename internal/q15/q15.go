package q15

import "math"

// Q15 is a signed 16-bit fixed-point fraction in [-1, 1) with 15 fractional bits.
type Q15 int16

// Fixed is a wide Q15 value: 15 fractional bits in an int32, used for results
// that may leave [-1, 1) such as DFA alpha.
type Fixed int32

const (
	FracBits = 15
	One      = 1 << FracBits // 1.0 as Fixed
	Max      = Q15(math.MaxInt16)
	Min      = Q15(math.MinInt16)

	// Epsilon is the value of one LSB.
	Epsilon = 1.0 / One
)

// Signal is an ordered sequence of Q15 samples. Components borrow it and
// never write to it.
type Signal []Q15

// FromFloat converts x to Q15, clipping to [-1, 1-2^-15] and rounding half
// away from zero.
func FromFloat(x float64) Q15 {
	if math.IsNaN(x) {
		return 0
	}
	if x >= 1-Epsilon {
		return Max
	}
	if x <= -1 {
		return Min
	}
	return Q15(math.Round(x * One))
}

// Float returns the fractional value of q.
func (q Q15) Float() float64 {
	return float64(q) / One
}

// Saturate clamps a wide integer into the Q15 range.
func Saturate(v int64) Q15 {
	if v > math.MaxInt16 {
		return Max
	}
	if v < math.MinInt16 {
		return Min
	}
	return Q15(v)
}

// Downscale returns v >> 15 (arithmetic shift, floor, no rounding) saturated
// to int16. Every wide-to-Q15 conversion in the engine goes through here.
func Downscale(v int64) Q15 {
	return Saturate(v >> FracBits)
}

// Mul multiplies two Q15 values with a 32-bit intermediate.
func Mul(a, b Q15) Q15 {
	return Downscale(int64(int32(a) * int32(b)))
}

// DiffSquare returns the full-precision square of the difference a-b. The
// difference needs 17 bits, so the product can exceed int32.
func DiffSquare(a, b Q15) int64 {
	d := int64(a) - int64(b)
	return d * d
}

// FixedFromFloat converts x to a wide Q15 value, rounding half away from zero
// and saturating at the int32 bounds.
func FixedFromFloat(x float64) Fixed {
	if math.IsNaN(x) {
		return 0
	}
	v := math.Round(x * One)
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return Fixed(v)
}

// Float returns the value of f as a float64.
func (f Fixed) Float() float64 {
	return float64(f) / One
}

// Sat truncates f into the Q15 range.
func (f Fixed) Sat() Q15 {
	return Saturate(int64(f))
}

// FromFloats converts a float slice into a Signal.
func FromFloats(xs []float64) Signal {
	out := make(Signal, len(xs))
	for i, x := range xs {
		out[i] = FromFloat(x)
	}
	return out
}

// Floats converts s back into float64 values.
func (s Signal) Floats() []float64 {
	out := make([]float64, len(s))
	for i, q := range s {
		out[i] = q.Float()
	}
	return out
}
