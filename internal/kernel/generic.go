package kernel

import (
	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/q15"
	"github.com/san-kum/nldkit/internal/simd"
)

// Generic mirrors a general-purpose vector library: every chunk of Width
// components is loaded, squared and reduced on its own, and the remainder
// runs as scalar code.
type Generic struct {
	width int
}

func NewGeneric(width int) (*Generic, error) {
	if _, err := simd.NewUnit(width, nil); err != nil {
		return nil, err
	}
	return &Generic{width: width}, nil
}

func (g *Generic) Name() string                 { return "generic" }
func (g *Generic) Width() int                   { return g.width }
func (g *Generic) Supports(ps phase.Space) bool { return ps != nil }

func (g *Generic) SquaredDistance(a, b []q15.Q15, c *perf.Counters) (int64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	u, _ := simd.NewUnit(g.width, c)
	diff := make([]int32, g.width)
	sq := make([]int64, g.width)
	return g.distance(u, diff, sq, a, b), nil
}

func (g *Generic) distance(u *simd.Unit, diff []int32, sq []int64, a, b []q15.Q15) int64 {
	c := u.Counters()
	var sum int64
	k := 0
	for ; k+g.width <= len(a); k += g.width {
		u.Diff(diff, a[k:], b[k:])
		u.Square(sq, diff)
		sum += u.ReduceAdd(sq)
		c.RecordInstructions(2) // scalar add, loop
	}
	for ; k < len(a); k++ {
		sum += q15.DiffSquare(a[k], b[k])
		c.RecordTailInstructions(5) // 2 loads, sub, mul, add
		c.RecordMemoryAccess(2)
	}
	return sum
}

func (g *Generic) Nearest(ps phase.Space, i, exclusion int, c *perf.Counters) (Record, error) {
	u, _ := simd.NewUnit(g.width, c)
	diff := make([]int32, g.width)
	sq := make([]int64, g.width)

	best := Record{I: i, J: -1}
	rowI := ps.Row(i)
	for j := 0; j < ps.Len(); j++ {
		c.RecordInstructions(1) // exclusion test
		if !eligible(i, j, exclusion) {
			continue
		}
		rowJ := ps.Row(j)
		if len(rowJ) != len(rowI) {
			return Record{}, ErrDimensionMismatch
		}
		d := g.distance(u, diff, sq, rowI, rowJ)
		c.RecordInstructions(2) // compare, select
		if best.J < 0 || d < best.Squared {
			best.J, best.Squared = j, d
		}
	}
	return best, nil
}
