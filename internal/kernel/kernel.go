package kernel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/q15"
)

var (
	// ErrDimensionMismatch indicates two vectors of unequal length were
	// compared. Phase spaces never produce this; it signals a defect.
	ErrDimensionMismatch = errors.New("kernel: dimension mismatch")

	// ErrLayout indicates a strategy was given a layout it cannot use.
	ErrLayout = errors.New("kernel: unsupported phase-space layout")
)

// Mode selects which distances Compute produces.
type Mode int

const (
	// ModeAllPairs yields one record per pair i<j.
	ModeAllPairs Mode = iota
	// ModeNearest yields one record per point: its nearest eligible
	// neighbor, excluding temporal neighbors with |i-j| < delay.
	ModeNearest
)

func (m Mode) String() string {
	if m == ModeNearest {
		return "nearest"
	}
	return "all-pairs"
}

// Record is a distance between vectors I and J. In nearest-neighbor mode a
// point without any eligible candidate has J == -1 and Squared == 0.
type Record struct {
	I       int
	J       int
	Squared int64
}

// Found reports whether the record holds a neighbor.
func (r Record) Found() bool { return r.J >= 0 }

// Q15 returns the squared distance downscaled into 16 bits.
func (r Record) Q15() q15.Q15 { return q15.Downscale(r.Squared) }

// Strategy computes distances for one execution model.
type Strategy interface {
	Name() string
	// Width is the modelled lane count.
	Width() int
	// SquaredDistance returns sum_k (a[k]-b[k])^2.
	SquaredDistance(a, b []q15.Q15, c *perf.Counters) (int64, error)
	// Nearest returns the nearest neighbor of point i among points j with
	// |i-j| >= exclusion. Ties resolve to the smallest j.
	Nearest(ps phase.Space, i, exclusion int, c *perf.Counters) (Record, error)
	// Supports reports whether the strategy can run on ps.
	Supports(ps phase.Space) bool
}

// Compute runs strategy s over ps in the given mode.
func Compute(ps phase.Space, mode Mode, s Strategy, c *perf.Counters) ([]Record, error) {
	if !s.Supports(ps) {
		return nil, fmt.Errorf("%w: %s strategy on %s layout", ErrLayout, s.Name(), ps.Layout())
	}

	n := ps.Len()
	switch mode {
	case ModeAllPairs:
		out := make([]Record, 0, n*(n-1)/2)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				d, err := distance(ps, s, i, j, c)
				if err != nil {
					return nil, err
				}
				out = append(out, Record{I: i, J: j, Squared: d})
				c.RecordMemoryAccess(1)
			}
		}
		return out, nil

	case ModeNearest:
		out := make([]Record, n)
		for i := 0; i < n; i++ {
			r, err := s.Nearest(ps, i, ps.Delay(), c)
			if err != nil {
				return nil, err
			}
			out[i] = r
			c.RecordMemoryAccess(1)
		}
		return out, nil
	}
	return nil, fmt.Errorf("kernel: unknown mode %d", mode)
}

// Distance returns the squared distance between points i and j of ps using
// the strategy's preferred row access.
func Distance(ps phase.Space, s Strategy, i, j int, c *perf.Counters) (int64, error) {
	if !s.Supports(ps) {
		return 0, fmt.Errorf("%w: %s strategy on %s layout", ErrLayout, s.Name(), ps.Layout())
	}
	return distance(ps, s, i, j, c)
}

func distance(ps phase.Space, s Strategy, i, j int, c *perf.Counters) (int64, error) {
	if sp, ok := s.(*Specialized); ok {
		st, ok := ps.(phase.Strided)
		if !ok {
			return 0, fmt.Errorf("%w: %s strategy on %s layout", ErrLayout, s.Name(), ps.Layout())
		}
		return sp.rowDistance(st, i, j, c)
	}
	return s.SquaredDistance(ps.Row(i), ps.Row(j), c)
}

func eligible(i, j, exclusion int) bool {
	d := i - j
	if d < 0 {
		d = -d
	}
	return d >= exclusion
}

// Lookup returns the strategy registered under name with the given lane
// width.
func Lookup(name string, width int) (Strategy, error) {
	switch strings.ToLower(name) {
	case "generic", "cmsis", "baseline":
		return NewGeneric(width)
	case "specialized", "nld", "optimized":
		return NewSpecialized(width)
	}
	return nil, fmt.Errorf("unknown strategy: %s", name)
}

// Names lists the canonical strategy names.
func Names() []string {
	return []string{"generic", "specialized"}
}
