package signals

import "math"

const (
	tableBits = 12
	tableSize = 1 << tableBits
	fracBits  = 32 - tableBits
)

// sineTable holds one cycle of sin with a guard entry equal to the first,
// so interpolation never wraps the index.
var sineTable = newSineTable()

func newSineTable() [tableSize + 1]float64 {
	var t [tableSize + 1]float64
	for i := 0; i < tableSize; i++ {
		t[i] = math.Sin(2 * math.Pi * float64(i) / tableSize)
	}
	t[tableSize] = t[0]
	return t
}

// oscillator is a table-lookup sine source driven by a 32-bit phase
// accumulator. The top tableBits of the phase select the entry and the rest
// interpolate linearly to the next one.
type oscillator struct {
	phase uint32
	step  uint32
}

// newOscillator returns an oscillator at freq cycles per sample, starting at
// phase zero. Only the fractional part of freq matters.
func newOscillator(freq float64) *oscillator {
	f := freq - math.Floor(freq)
	return &oscillator{step: uint32(uint64(math.Round(f * (1 << 32))))}
}

// next returns the current sample and advances the phase.
func (o *oscillator) next() float64 {
	idx := o.phase >> fracBits
	frac := float64(o.phase&(1<<fracBits-1)) / (1 << fracBits)
	v := sineTable[idx]*(1-frac) + sineTable[idx+1]*frac
	o.phase += o.step
	return v
}
