package simd

import (
	"fmt"
	"math"

	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/q15"
)

// Widths the unit can model: 64-, 128-, 256- and 512-bit registers of int16.
var supportedWidths = map[int]bool{4: true, 8: true, 16: true, 32: true}

// NoIndex marks an empty lane in index registers.
const NoIndex = -1

// Unit is a vector unit with Width int16 lanes. Wide intermediate lanes
// (int32 differences, int64 accumulators) are modelled with the same lane
// count.
type Unit struct {
	width    int
	counters *perf.Counters
}

// NewUnit returns a unit charging c. c may be nil.
func NewUnit(width int, c *perf.Counters) (*Unit, error) {
	if !supportedWidths[width] {
		return nil, fmt.Errorf("simd: unsupported lane width %d", width)
	}
	return &Unit{width: width, counters: c}, nil
}

func (u *Unit) Width() int { return u.width }

// Counters returns the counter set the unit charges.
func (u *Unit) Counters() *perf.Counters { return u.counters }

// Diff loads Width lanes from a and b and stores the widened difference
// a-b into dst. a and b must hold at least Width elements.
func (u *Unit) Diff(dst []int32, a, b []q15.Q15) {
	w := u.width
	a, b, dst = a[:w], b[:w], dst[:w]
	for l := range dst {
		dst[l] = int32(a[l]) - int32(b[l])
	}
	u.counters.RecordVectorInstructions(4)
	u.counters.RecordMemoryAccess(2 * w)
}

// Square stores d[l]*d[l] into dst.
func (u *Unit) Square(dst []int64, d []int32) {
	w := u.width
	dst, d = dst[:w], d[:w]
	for l := range dst {
		v := int64(d[l])
		dst[l] = v * v
	}
	u.counters.RecordVectorInstructions(2)
}

// SquareAccumulate adds d[l]*d[l] to acc[l].
func (u *Unit) SquareAccumulate(acc []int64, d []int32) {
	w := u.width
	acc, d = acc[:w], d[:w]
	for l := range acc {
		v := int64(d[l])
		acc[l] += v * v
	}
	u.counters.RecordVectorInstructions(2)
}

// Add adds x to acc lane-wise.
func (u *Unit) Add(acc, x []int64) {
	w := u.width
	acc, x = acc[:w], x[:w]
	for l := range acc {
		acc[l] += x[l]
	}
	u.counters.RecordVectorInstructions(1)
}

// Zero clears acc.
func (u *Unit) Zero(acc []int64) {
	clear(acc[:u.width])
	u.counters.RecordVectorInstructions(1)
}

// ReduceAdd returns the sum of all lanes.
func (u *Unit) ReduceAdd(acc []int64) int64 {
	var s int64
	for _, v := range acc[:u.width] {
		s += v
	}
	u.counters.RecordVectorInstructions(1)
	return s
}

// FillMin sets every lane of best to the largest distance and an empty
// index. It is the vector broadcast that seeds a running minimum.
func (u *Unit) FillMin(best []int64, idx []int32) {
	w := u.width
	best, idx = best[:w], idx[:w]
	for l := range best {
		best[l] = math.MaxInt64
		idx[l] = NoIndex
	}
	u.counters.RecordVectorInstructions(2)
}

// MinIndex keeps, per lane, the smaller of best and cand together with its
// index. Equal distances keep the existing lane, so feeding candidates in
// ascending index order yields the smallest index per lane.
func (u *Unit) MinIndex(best []int64, bestIdx []int32, cand []int64, candIdx []int32) {
	w := u.width
	best, bestIdx, cand, candIdx = best[:w], bestIdx[:w], cand[:w], candIdx[:w]
	for l := range best {
		if candIdx[l] != NoIndex && cand[l] < best[l] {
			best[l] = cand[l]
			bestIdx[l] = candIdx[l]
		}
	}
	u.counters.RecordVectorInstructions(3)
}

// ReduceMin returns the smallest lane distance and its index. Ties resolve
// to the smallest index. It returns (0, NoIndex) when every lane is empty.
func (u *Unit) ReduceMin(best []int64, idx []int32) (int64, int) {
	lo := int64(math.MaxInt64)
	at := int32(NoIndex)
	for l, v := range best[:u.width] {
		i := idx[l]
		if i == NoIndex {
			continue
		}
		if at == NoIndex || v < lo || (v == lo && i < at) {
			lo, at = v, i
		}
	}
	u.counters.RecordVectorInstructions(1)
	if at == NoIndex {
		return 0, NoIndex
	}
	return lo, int(at)
}
