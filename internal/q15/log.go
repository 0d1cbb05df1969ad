package q15

import (
	"math"
	"math/bits"
)

// log2Segments is the number of linear segments the mantissa table spans.
const log2Segments = 32

// Ln2 is ln(2) as a wide Q15 value.
const Ln2 = Fixed(22713)

// log2Table holds log2(1 + k/32) in Q15 for k in [0, 32]. The final entry is
// exactly One, so interpolation is continuous across octaves.
var log2Table = newLog2Table()

func newLog2Table() [log2Segments + 1]int32 {
	var t [log2Segments + 1]int32
	for k := range t {
		t[k] = int32(math.Round(math.Log2(1+float64(k)/log2Segments) * One))
	}
	return t
}

// Log2 returns log2(x) as a wide Q15 value using the octave of x plus a
// table lookup with linear interpolation over the mantissa. The result is
// monotonic non-decreasing in x and its fractional part lies in [0, 1).
// Values below 1 are treated as 1.
func Log2(x int64) Fixed {
	if x <= 1 {
		return 0
	}
	u := uint64(x)
	msb := bits.Len64(u) - 1

	// mantissa in Q15, 1.0 <= m < 2.0
	var m uint64
	if msb >= FracBits {
		m = u >> uint(msb-FracBits)
	} else {
		m = u << uint(FracBits-msb)
	}
	frac := int32(m - One)

	const segShift = FracBits - 5 // 32 segments
	idx := frac >> segShift
	rem := frac & (1<<segShift - 1)
	lo, hi := log2Table[idx], log2Table[idx+1]
	val := lo + ((hi-lo)*rem)>>segShift

	return Fixed(int32(msb)<<FracBits + val)
}

// LnRatio returns ln(num/den) as a wide Q15 value. Both arguments are
// floored at 1.
func LnRatio(num, den int64) Fixed {
	d := int64(Log2(num)) - int64(Log2(den))
	return Fixed((d * int64(Ln2)) >> FracBits)
}
