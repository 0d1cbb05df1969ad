//go:build amd64

package cpu

import "golang.org/x/sys/cpu"

// SSE2 is part of the x86-64 baseline.
func detectFeaturesImpl() Features {
	return Features{
		HasSSE2: true,
		HasAVX2: cpu.X86.HasAVX2,
	}
}
