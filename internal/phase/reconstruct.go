package phase

import (
	"fmt"

	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/q15"
)

// Config describes one embedding.
type Config struct {
	Dim    int
	Delay  int
	Layout Layout
	// Align is the lane width rows are padded to with LayoutPadded, and the
	// gather width used to charge contiguous reconstruction. Defaults to 8.
	Align int
}

// Reconstruct builds the phase space of sig. The signal is only read.
func Reconstruct(sig q15.Signal, cfg Config, c *perf.Counters) (Space, error) {
	if err := Validate(len(sig), cfg.Dim, cfg.Delay); err != nil {
		return nil, err
	}
	align := cfg.Align
	if align <= 0 {
		align = 8
	}

	n := Size(len(sig), cfg.Dim, cfg.Delay)
	switch cfg.Layout {
	case LayoutContiguous:
		return buildContiguous(sig, n, cfg.Dim, cfg.Dim, cfg.Delay, align, LayoutContiguous, c), nil
	case LayoutPadded:
		stride := (cfg.Dim + align - 1) / align * align
		return buildContiguous(sig, n, cfg.Dim, stride, cfg.Delay, align, LayoutPadded, c), nil
	case LayoutRowwise:
		return buildRowwise(sig, n, cfg.Dim, cfg.Delay, c), nil
	default:
		return nil, fmt.Errorf("%w: unknown layout %d", ErrInvalidParameters, cfg.Layout)
	}
}

// buildContiguous gathers each row in lane-width groups: the delayed samples
// are inserted lane by lane and stored with one vector store, and the
// remainder of the row is copied with scalar moves.
func buildContiguous(sig q15.Signal, n, dim, stride, delay, width int, layout Layout, c *perf.Counters) *contiguous {
	data := make([]q15.Q15, n*stride)
	for i := 0; i < n; i++ {
		row := data[i*stride : i*stride+dim]
		k := 0
		for ; k+width <= dim; k += width {
			for l := 0; l < width; l++ {
				row[k+l] = sig[i+(k+l)*delay]
			}
			c.RecordInstructions(width)
			c.RecordVectorInstructions(1)
		}
		for ; k < dim; k++ {
			row[k] = sig[i+k*delay]
			c.RecordInstructions(2)
		}
		c.RecordMemoryAccess(2 * dim)
	}
	return &contiguous{data: data, n: n, dim: dim, stride: stride, delay: delay, layout: layout}
}

// buildRowwise allocates every vector separately.
func buildRowwise(sig q15.Signal, n, dim, delay int, c *perf.Counters) *rowwise {
	rows := make([][]q15.Q15, n)
	for i := range rows {
		row := make([]q15.Q15, dim)
		for k := range row {
			row[k] = sig[i+k*delay]
		}
		rows[i] = row
		c.RecordInstructions(2*dim + 1)
		c.RecordMemoryAccess(2 * dim)
	}
	return &rowwise{rows: rows, dim: dim, delay: delay}
}
