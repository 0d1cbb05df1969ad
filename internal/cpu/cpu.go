// Package cpu detects the host's SIMD capabilities and derives the Q15 lane
// width the kernels model by default.
package cpu

import (
	"runtime"
	"sync"
)

// SIMDLevel names the widest integer SIMD extension available.
type SIMDLevel int

const (
	SIMDNone SIMDLevel = iota
	SIMDSSE2
	SIMDAVX2
	SIMDNEON
)

func (s SIMDLevel) String() string {
	switch s {
	case SIMDNone:
		return "none"
	case SIMDSSE2:
		return "sse2"
	case SIMDAVX2:
		return "avx2"
	case SIMDNEON:
		return "neon"
	default:
		return "unknown"
	}
}

// Features describes the CPU capabilities relevant to lane width selection.
type Features struct {
	Architecture string
	HasSSE2      bool
	HasAVX2      bool
	HasNEON      bool
}

var (
	detected   Features
	detectOnce sync.Once
)

// DetectFeatures returns the cached host features.
func DetectFeatures() Features {
	detectOnce.Do(func() {
		detected = detectFeaturesImpl()
		detected.Architecture = runtime.GOARCH
	})
	return detected
}

// Level returns the best SIMD level of f.
func (f Features) Level() SIMDLevel {
	switch {
	case f.HasAVX2:
		return SIMDAVX2
	case f.HasNEON:
		return SIMDNEON
	case f.HasSSE2:
		return SIMDSSE2
	default:
		return SIMDNone
	}
}

// LaneWidth returns the number of int16 lanes in one vector register at the
// given level: 16 for 256-bit AVX2, 8 for 128-bit SSE2/NEON. Without SIMD the
// kernels still model 128-bit vectors so results stay comparable.
func LaneWidth(level SIMDLevel) int {
	if level == SIMDAVX2 {
		return 16
	}
	return 8
}

// DefaultLaneWidth is LaneWidth for the host.
func DefaultLaneWidth() int {
	return LaneWidth(DetectFeatures().Level())
}
