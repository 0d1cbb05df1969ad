package kernel

import (
	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/q15"
	"github.com/san-kum/nldkit/internal/simd"
)

// Specialized assumes a single-buffer row-major layout. Squares accumulate
// in lane-wide registers across the row and are reduced once per pair; the
// nearest-neighbor search keeps a lane-wide running minimum over blocks of
// Width candidates and reduces it horizontally once per query point.
type Specialized struct {
	width int
}

func NewSpecialized(width int) (*Specialized, error) {
	if _, err := simd.NewUnit(width, nil); err != nil {
		return nil, err
	}
	return &Specialized{width: width}, nil
}

func (s *Specialized) Name() string { return "specialized" }
func (s *Specialized) Width() int   { return s.width }

func (s *Specialized) Supports(ps phase.Space) bool {
	_, ok := ps.(phase.Strided)
	return ok
}

func (s *Specialized) SquaredDistance(a, b []q15.Q15, c *perf.Counters) (int64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	u, _ := simd.NewUnit(s.width, c)
	return s.distance(u, make([]int32, s.width), make([]int64, s.width), a, b), nil
}

// distance runs over full rows including any zero padding. A scalar tail
// runs only when len(a) is not a multiple of the lane width.
func (s *Specialized) distance(u *simd.Unit, diff []int32, acc []int64, a, b []q15.Q15) int64 {
	c := u.Counters()
	u.Zero(acc)
	k := 0
	for ; k+s.width <= len(a); k += s.width {
		u.Diff(diff, a[k:], b[k:])
		u.SquareAccumulate(acc, diff)
		c.RecordInstructions(1) // loop
	}
	sum := u.ReduceAdd(acc)
	for ; k < len(a); k++ {
		sum += q15.DiffSquare(a[k], b[k])
		c.RecordTailInstructions(5)
		c.RecordMemoryAccess(2)
	}
	return sum
}

func (s *Specialized) strideRow(ps phase.Strided, i int) []q15.Q15 {
	stride := ps.Stride()
	return ps.Data()[i*stride : (i+1)*stride]
}

func (s *Specialized) rowDistance(ps phase.Strided, i, j int, c *perf.Counters) (int64, error) {
	u, _ := simd.NewUnit(s.width, c)
	return s.distance(u, make([]int32, s.width), make([]int64, s.width), s.strideRow(ps, i), s.strideRow(ps, j)), nil
}

func (s *Specialized) Nearest(ps phase.Space, i, exclusion int, c *perf.Counters) (Record, error) {
	sp, ok := ps.(phase.Strided)
	if !ok {
		return Record{}, ErrLayout
	}
	u, _ := simd.NewUnit(s.width, c)
	w := s.width
	diff := make([]int32, w)
	acc := make([]int64, w)
	best := make([]int64, w)
	bestIdx := make([]int32, w)
	cand := make([]int64, w)
	candIdx := make([]int32, w)

	u.FillMin(best, bestIdx)
	rowI := s.strideRow(sp, i)
	n := ps.Len()
	for base := 0; base < n; base += w {
		for l := 0; l < w; l++ {
			j := base + l
			c.RecordInstructions(1) // exclusion test
			if j >= n || !eligible(i, j, exclusion) {
				candIdx[l] = simd.NoIndex
				continue
			}
			cand[l] = s.distance(u, diff, acc, rowI, s.strideRow(sp, j))
			candIdx[l] = int32(j)
		}
		u.MinIndex(best, bestIdx, cand, candIdx)
	}

	d, j := u.ReduceMin(best, bestIdx)
	return Record{I: i, J: j, Squared: d}, nil
}
