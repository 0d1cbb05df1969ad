package perf

import "time"

// ElementSize is the size in bytes of one Q15 sample.
const ElementSize = 2

// Counters accumulates instruction and memory-access counts for one
// measurement session. A nil *Counters discards everything, so kernels can be
// called without instrumentation.
type Counters struct {
	total   uint64
	vector  uint64
	tail    uint64
	memory  uint64
	started time.Time
}

// Reset zeroes all counts and restarts the session clock.
func (c *Counters) Reset() {
	if c == nil {
		return
	}
	*c = Counters{started: time.Now()}
}

// RecordInstructions counts n scalar instructions.
func (c *Counters) RecordInstructions(n int) {
	if c == nil {
		return
	}
	c.total += uint64(n)
}

// RecordVectorInstructions counts n vector instructions. They are part of
// the total as well.
func (c *Counters) RecordVectorInstructions(n int) {
	if c == nil {
		return
	}
	c.vector += uint64(n)
	c.total += uint64(n)
}

// RecordTailInstructions counts n scalar instructions spent in a remainder
// loop that a vector kernel could not cover.
func (c *Counters) RecordTailInstructions(n int) {
	if c == nil {
		return
	}
	c.tail += uint64(n)
	c.total += uint64(n)
}

// RecordMemoryAccess counts n element loads or stores.
func (c *Counters) RecordMemoryAccess(n int) {
	if c == nil {
		return
	}
	c.memory += uint64(n)
}

// Snapshot derives metrics from the current counts and the time elapsed
// since Reset. It does not modify the counters.
func (c *Counters) Snapshot() Metrics {
	if c == nil {
		return Metrics{}
	}
	var elapsed time.Duration
	if !c.started.IsZero() {
		elapsed = time.Since(c.started)
	}
	return newMetrics(c.total, c.vector, c.tail, c.memory, elapsed)
}
