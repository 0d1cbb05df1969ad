package perf

import (
	"fmt"
	"time"
)

// Metrics is a read-only snapshot derived from Counters.
type Metrics struct {
	ProcessingTime     time.Duration `json:"processing_time_ns"`
	TotalInstructions  uint64        `json:"total_instructions"`
	VectorInstructions uint64        `json:"vector_instructions"`
	TailInstructions   uint64        `json:"tail_instructions"`
	MemoryAccesses     uint64        `json:"memory_accesses"`

	// VectorUtilization is vector/total*100, or 0 when nothing was counted.
	VectorUtilization float64 `json:"vector_utilization_percent"`

	// MemoryBandwidth is bytes moved per second, or 0 when no time elapsed.
	MemoryBandwidth float64 `json:"memory_bandwidth_bytes_per_second"`
}

func newMetrics(total, vector, tail, memory uint64, elapsed time.Duration) Metrics {
	m := Metrics{
		ProcessingTime:     elapsed,
		TotalInstructions:  total,
		VectorInstructions: vector,
		TailInstructions:   tail,
		MemoryAccesses:     memory,
	}
	if total > 0 {
		m.VectorUtilization = float64(vector) / float64(total) * 100
	}
	if secs := elapsed.Seconds(); secs > 0 {
		m.MemoryBandwidth = float64(memory*ElementSize) / secs
	}
	return m
}

// Add returns the element-wise sum of two snapshots. Derived rates are
// recomputed from the summed counts.
func (m Metrics) Add(o Metrics) Metrics {
	return newMetrics(
		m.TotalInstructions+o.TotalInstructions,
		m.VectorInstructions+o.VectorInstructions,
		m.TailInstructions+o.TailInstructions,
		m.MemoryAccesses+o.MemoryAccesses,
		m.ProcessingTime+o.ProcessingTime,
	)
}

// BandwidthGBps reports bandwidth in GiB/s, the unit mobile profilers
// print.
func (m Metrics) BandwidthGBps() float64 {
	return m.MemoryBandwidth / (1 << 30)
}

func (m Metrics) String() string {
	return fmt.Sprintf("time=%v instr=%d vector=%d (%.1f%%) tail=%d mem=%d bw=%.3fGiB/s",
		m.ProcessingTime, m.TotalInstructions, m.VectorInstructions,
		m.VectorUtilization, m.TailInstructions, m.MemoryAccesses, m.BandwidthGBps())
}
