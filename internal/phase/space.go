// Package phase reconstructs delay-embedded phase spaces from Q15 signals.
//
// A phase space with embedding dimension m and delay tau holds one vector
// per valid start index i:
//
//	v_i = (x[i], x[i+tau], ..., x[i+(m-1)tau])
//
// Three memory layouts implement the same read-only [Space] interface and
// always produce identical values:
//
//   - [LayoutContiguous]: one buffer, vector i at offset i*m
//   - [LayoutPadded]: one buffer, rows padded with zeros to a multiple of
//     the lane width so vector loads never straddle rows
//   - [LayoutRowwise]: one allocation per vector, the non-contiguous baseline
package phase

import (
	"errors"
	"fmt"

	"github.com/san-kum/nldkit/internal/q15"
)

// ErrInvalidParameters indicates an embedding configuration that yields no
// phase-space points.
var ErrInvalidParameters = errors.New("phase: invalid embedding parameters")

// Layout selects how embedding vectors are stored.
type Layout int

const (
	LayoutContiguous Layout = iota
	LayoutPadded
	LayoutRowwise
)

func (l Layout) String() string {
	switch l {
	case LayoutContiguous:
		return "contiguous"
	case LayoutPadded:
		return "padded"
	case LayoutRowwise:
		return "rowwise"
	default:
		return "unknown"
	}
}

// ParseLayout maps a layout name to its Layout.
func ParseLayout(name string) (Layout, error) {
	switch name {
	case "contiguous":
		return LayoutContiguous, nil
	case "padded":
		return LayoutPadded, nil
	case "rowwise":
		return LayoutRowwise, nil
	}
	return 0, fmt.Errorf("unknown layout: %s", name)
}

// Space is a reconstructed phase space. Implementations are immutable.
type Space interface {
	// Len is the number of embedding vectors.
	Len() int
	// Dim is the embedding dimension.
	Dim() int
	// Delay is the time delay used for the embedding.
	Delay() int
	// At returns component k of vector i.
	At(i, k int) q15.Q15
	// Row returns the Dim components of vector i. Callers must not modify it.
	Row(i int) []q15.Q15
	Layout() Layout
}

// Strided is implemented by single-buffer layouts. Row i occupies
// Data()[i*Stride() : i*Stride()+Dim()], and any padding up to Stride() is
// zero.
type Strided interface {
	Space
	Stride() int
	Data() []q15.Q15
}

// Size returns the number of phase-space points for a signal of the given
// length: length - (dim-1)*delay.
func Size(length, dim, delay int) int {
	return length - (dim-1)*delay
}

// Validate checks an embedding configuration against a signal length.
func Validate(length, dim, delay int) error {
	if dim < 2 {
		return fmt.Errorf("%w: embedding dimension %d < 2", ErrInvalidParameters, dim)
	}
	if delay < 1 {
		return fmt.Errorf("%w: time delay %d < 1", ErrInvalidParameters, delay)
	}
	if Size(length, dim, delay) <= 0 {
		return fmt.Errorf("%w: signal length %d too short for dim=%d delay=%d",
			ErrInvalidParameters, length, dim, delay)
	}
	return nil
}

type contiguous struct {
	data   []q15.Q15
	n      int
	dim    int
	stride int
	delay  int
	layout Layout
}

func (c *contiguous) Len() int            { return c.n }
func (c *contiguous) Dim() int            { return c.dim }
func (c *contiguous) Delay() int          { return c.delay }
func (c *contiguous) Layout() Layout      { return c.layout }
func (c *contiguous) Stride() int         { return c.stride }
func (c *contiguous) Data() []q15.Q15     { return c.data }
func (c *contiguous) At(i, k int) q15.Q15 { return c.data[i*c.stride+k] }

func (c *contiguous) Row(i int) []q15.Q15 {
	off := i * c.stride
	return c.data[off : off+c.dim : off+c.dim]
}

type rowwise struct {
	rows  [][]q15.Q15
	dim   int
	delay int
}

func (r *rowwise) Len() int            { return len(r.rows) }
func (r *rowwise) Dim() int            { return r.dim }
func (r *rowwise) Delay() int          { return r.delay }
func (r *rowwise) Layout() Layout      { return LayoutRowwise }
func (r *rowwise) At(i, k int) q15.Q15 { return r.rows[i][k] }
func (r *rowwise) Row(i int) []q15.Q15 { return r.rows[i] }
