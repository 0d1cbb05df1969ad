package perf

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSnapshot_ZeroInstructions(t *testing.T) {
	var c Counters
	c.Reset()

	m := c.Snapshot()
	if m.VectorUtilization != 0 || math.IsNaN(m.VectorUtilization) {
		t.Errorf("expected utilization 0, got %v", m.VectorUtilization)
	}
	if math.IsNaN(m.MemoryBandwidth) || math.IsInf(m.MemoryBandwidth, 0) {
		t.Errorf("expected finite bandwidth, got %v", m.MemoryBandwidth)
	}
}

func TestSnapshot_NeverReset(t *testing.T) {
	var c Counters
	c.RecordMemoryAccess(100)

	m := c.Snapshot()
	if m.ProcessingTime != 0 || m.MemoryBandwidth != 0 {
		t.Errorf("expected zero time and bandwidth without a clock, got %v", m)
	}
}

func TestCounters_Record(t *testing.T) {
	g := NewWithT(t)

	var c Counters
	c.Reset()
	c.RecordInstructions(3)
	c.RecordVectorInstructions(6)
	c.RecordTailInstructions(1)
	c.RecordMemoryAccess(16)

	m := c.Snapshot()
	g.Expect(m.TotalInstructions).To(Equal(uint64(10)))
	g.Expect(m.VectorInstructions).To(Equal(uint64(6)))
	g.Expect(m.TailInstructions).To(Equal(uint64(1)))
	g.Expect(m.MemoryAccesses).To(Equal(uint64(16)))
	g.Expect(m.VectorUtilization).To(BeNumerically("~", 60, 1e-9))

	// snapshot does not mutate
	g.Expect(c.Snapshot().TotalInstructions).To(Equal(uint64(10)))

	c.Reset()
	g.Expect(c.Snapshot().TotalInstructions).To(BeZero())
}

func TestCounters_Nil(t *testing.T) {
	var c *Counters
	c.Reset()
	c.RecordInstructions(1)
	c.RecordVectorInstructions(1)
	c.RecordTailInstructions(1)
	c.RecordMemoryAccess(1)
	if m := c.Snapshot(); m.TotalInstructions != 0 {
		t.Errorf("nil counters should discard, got %v", m)
	}
}

func TestBandwidth(t *testing.T) {
	m := newMetrics(10, 5, 0, 1000, 2*time.Second)
	if m.MemoryBandwidth != 1000 {
		t.Errorf("expected 1000 B/s, got %v", m.MemoryBandwidth)
	}
	if sum := m.Add(m); sum.MemoryBandwidth != 1000 || sum.TotalInstructions != 20 {
		t.Errorf("unexpected sum %v", sum)
	}
}

func TestMonitor_SessionBusy(t *testing.T) {
	g := NewWithT(t)
	mon := NewMonitor()

	first, err := mon.Begin()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(mon.Active()).To(BeTrue())

	_, err = mon.Begin()
	g.Expect(errors.Is(err, ErrSessionBusy)).To(BeTrue())

	first.Counters().RecordVectorInstructions(4)
	m, err := mon.End(first)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(m.VectorUtilization).To(BeNumerically("==", 100))
	g.Expect(mon.Active()).To(BeFalse())

	_, err = mon.End(first)
	g.Expect(err).To(MatchError(ErrSessionClosed))

	second, err := mon.Begin()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(second.Counters().Snapshot().TotalInstructions).To(BeZero())
}

func TestMonitor_ForeignSession(t *testing.T) {
	a, b := NewMonitor(), NewMonitor()
	s, err := a.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.End(s); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestExporter(t *testing.T) {
	g := NewWithT(t)
	e := NewExporter()

	m := newMetrics(100, 60, 4, 400, time.Millisecond)
	e.Observe("lyapunov", "generic", m)

	g.Expect(testutil.ToFloat64(e.utilization.WithLabelValues("lyapunov", "generic"))).To(BeNumerically("~", 60, 1e-9))
	g.Expect(testutil.ToFloat64(e.instructions.WithLabelValues("lyapunov", "generic", "scalar"))).To(BeNumerically("==", 36))
	g.Expect(testutil.ToFloat64(e.memory.WithLabelValues("lyapunov", "generic"))).To(BeNumerically("==", 400))

	var sb strings.Builder
	g.Expect(e.WriteText(&sb)).To(Succeed())
	g.Expect(sb.String()).To(ContainSubstring(`nld_vector_utilization_percent{operation="lyapunov",strategy="generic"} 60`))
}
