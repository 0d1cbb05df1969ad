package kernel

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/gomega"

	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/q15"
)

func noise(seed int64, n int) q15.Signal {
	rng := rand.New(rand.NewSource(seed))
	s := make(q15.Signal, n)
	for i := range s {
		s[i] = q15.Q15(rng.Intn(65536) - 32768)
	}
	return s
}

func mustSpace(t *testing.T, sig q15.Signal, dim, delay int, layout phase.Layout, align int) phase.Space {
	t.Helper()
	ps, err := phase.Reconstruct(sig, phase.Config{Dim: dim, Delay: delay, Layout: layout, Align: align}, nil)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	return ps
}

func bruteDistance(a, b []q15.Q15) int64 {
	var s int64
	for k := range a {
		s += q15.DiffSquare(a[k], b[k])
	}
	return s
}

func TestStrategies_AllPairsAgree(t *testing.T) {
	sig := noise(1, 60)
	for _, width := range []int{4, 8, 16} {
		gen, _ := NewGeneric(width)
		spec, _ := NewSpecialized(width)
		for _, dim := range []int{2, 3, 5, 8, 9, 16} {
			ref := mustSpace(t, sig, dim, 2, phase.LayoutRowwise, width)
			want, err := Compute(ref, ModeAllPairs, gen, nil)
			if err != nil {
				t.Fatal(err)
			}
			for _, layout := range []phase.Layout{phase.LayoutContiguous, phase.LayoutPadded} {
				ps := mustSpace(t, sig, dim, 2, layout, width)
				got, err := Compute(ps, ModeAllPairs, spec, nil)
				if err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("width=%d dim=%d %v: strategies disagree (-generic +specialized):\n%s", width, dim, layout, diff)
				}
			}
		}
	}
}

func TestAllPairs_MatchesBruteForce(t *testing.T) {
	sig := noise(2, 30)
	ps := mustSpace(t, sig, 5, 3, phase.LayoutContiguous, 8)
	gen, _ := NewGeneric(8)

	recs, err := Compute(ps, ModeAllPairs, gen, nil)
	if err != nil {
		t.Fatal(err)
	}
	n := ps.Len()
	if len(recs) != n*(n-1)/2 {
		t.Fatalf("expected %d records, got %d", n*(n-1)/2, len(recs))
	}
	for _, r := range recs {
		if r.I >= r.J {
			t.Fatalf("expected i<j, got %d,%d", r.I, r.J)
		}
		if want := bruteDistance(ps.Row(r.I), ps.Row(r.J)); r.Squared != want {
			t.Fatalf("pair %d,%d: got %d, want %d", r.I, r.J, r.Squared, want)
		}
	}
}

func TestNearest_ExclusionAndAgreement(t *testing.T) {
	for _, delay := range []int{1, 3, 7} {
		sig := noise(int64(delay), 80)
		gen, _ := NewGeneric(8)
		spec, _ := NewSpecialized(8)

		rw := mustSpace(t, sig, 4, delay, phase.LayoutRowwise, 8)
		pd := mustSpace(t, sig, 4, delay, phase.LayoutPadded, 8)

		want, err := Compute(rw, ModeNearest, gen, nil)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Compute(pd, ModeNearest, spec, nil)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("delay=%d: nearest records disagree:\n%s", delay, diff)
		}

		for _, r := range got {
			if !r.Found() {
				t.Fatalf("point %d: expected a neighbor", r.I)
			}
			d := r.I - r.J
			if d < 0 {
				d = -d
			}
			if d < delay {
				t.Fatalf("point %d: neighbor %d violates exclusion %d", r.I, r.J, delay)
			}
			// no eligible candidate is strictly closer, and ties go to the smallest index
			for j := 0; j < rw.Len(); j++ {
				if !eligible(r.I, j, delay) {
					continue
				}
				dj := bruteDistance(rw.Row(r.I), rw.Row(j))
				if dj < r.Squared || (dj == r.Squared && j < r.J) {
					t.Fatalf("point %d: candidate %d (%d) beats %d (%d)", r.I, j, dj, r.J, r.Squared)
				}
			}
		}
	}
}

func TestNearest_TiesAndEmpty(t *testing.T) {
	g := NewWithT(t)

	// constant signal: every candidate ties at zero
	sig := make(q15.Signal, 12)
	for i := range sig {
		sig[i] = 1234
	}
	ps := mustSpace(t, sig, 2, 2, phase.LayoutPadded, 4)
	for _, name := range Names() {
		s, err := Lookup(name, 4)
		g.Expect(err).ToNot(HaveOccurred())
		recs, err := Compute(ps, ModeNearest, s, nil)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(recs[0]).To(Equal(Record{I: 0, J: 2, Squared: 0}))
		g.Expect(recs[5]).To(Equal(Record{I: 5, J: 0, Squared: 0}))
	}

	// two points closer than the exclusion window
	short := mustSpace(t, noise(3, 4), 2, 3, phase.LayoutPadded, 4)
	for _, name := range Names() {
		s, _ := Lookup(name, 4)
		recs, err := Compute(short, ModeNearest, s, nil)
		g.Expect(err).ToNot(HaveOccurred())
		for _, r := range recs {
			g.Expect(r.Found()).To(BeFalse())
			g.Expect(r.J).To(Equal(-1))
		}
	}
}

func TestSquaredDistance_DimensionMismatch(t *testing.T) {
	a := []q15.Q15{1, 2, 3}
	b := []q15.Q15{1, 2}
	for _, name := range Names() {
		s, _ := Lookup(name, 8)
		if _, err := s.SquaredDistance(a, b, nil); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("%s: expected ErrDimensionMismatch, got %v", name, err)
		}
	}
}

func TestSquaredDistance_Extremes(t *testing.T) {
	a := make([]q15.Q15, 16)
	b := make([]q15.Q15, 16)
	for i := range a {
		a[i], b[i] = q15.Max, q15.Min
	}
	want := int64(16) * 65535 * 65535
	for _, name := range Names() {
		s, _ := Lookup(name, 8)
		d, err := s.SquaredDistance(a, b, nil)
		if err != nil {
			t.Fatal(err)
		}
		if d != want {
			t.Errorf("%s: got %d, want %d", name, d, want)
		}
		if (Record{Squared: d}).Q15() != q15.Max {
			t.Errorf("%s: expected saturated Q15 distance", name)
		}
	}
}

func TestRecord_Q15Scaling(t *testing.T) {
	tests := []struct {
		sq   int64
		want q15.Q15
	}{
		{0, 0},
		{32767, 0},
		{32768, 1},
		{3 * 32768, 3},
		{1 << 40, q15.Max},
	}
	for _, tt := range tests {
		if got := (Record{Squared: tt.sq}).Q15(); got != tt.want {
			t.Errorf("Q15(%d) = %d, want %d", tt.sq, got, tt.want)
		}
	}
}

func TestSpecialized_RejectsRowwise(t *testing.T) {
	ps := mustSpace(t, noise(4, 20), 3, 1, phase.LayoutRowwise, 8)
	spec, _ := NewSpecialized(8)
	if _, err := Compute(ps, ModeNearest, spec, nil); !errors.Is(err, ErrLayout) {
		t.Errorf("expected ErrLayout, got %v", err)
	}
	if _, err := spec.Nearest(ps, 0, 1, nil); !errors.Is(err, ErrLayout) {
		t.Errorf("expected ErrLayout, got %v", err)
	}
	if _, err := Distance(ps, spec, 0, 1, nil); !errors.Is(err, ErrLayout) {
		t.Errorf("expected ErrLayout, got %v", err)
	}
	// the row accessor itself must reject a non-strided space, not panic
	if _, err := distance(ps, spec, 0, 1, nil); !errors.Is(err, ErrLayout) {
		t.Errorf("expected ErrLayout, got %v", err)
	}
}

func TestCounters_TailAndUtilization(t *testing.T) {
	g := NewWithT(t)
	sig := noise(5, 64)

	run := func(s Strategy, layout phase.Layout) perf.Metrics {
		var c perf.Counters
		c.Reset()
		ps := mustSpace(t, sig, 5, 1, layout, 8)
		_, err := Compute(ps, ModeNearest, s, &c)
		g.Expect(err).ToNot(HaveOccurred())
		return c.Snapshot()
	}

	gen, _ := NewGeneric(8)
	spec, _ := NewSpecialized(8)

	generic := run(gen, phase.LayoutRowwise)
	padded := run(spec, phase.LayoutPadded)
	unpadded := run(spec, phase.LayoutContiguous)

	// dim 5 < width 8: the generic kernel never fills a vector
	g.Expect(generic.VectorInstructions).To(BeZero())
	g.Expect(generic.TailInstructions).To(BeNumerically(">", 0))

	// padding to the lane width removes the scalar tail entirely
	g.Expect(padded.TailInstructions).To(BeZero())
	g.Expect(padded.VectorUtilization).To(BeNumerically(">", generic.VectorUtilization))

	g.Expect(unpadded.TailInstructions).To(BeNumerically(">", 0))
}

func TestLookup(t *testing.T) {
	g := NewWithT(t)
	for _, tt := range []struct{ in, want string }{
		{"generic", "generic"},
		{"CMSIS", "generic"},
		{"specialized", "specialized"},
		{"nld", "specialized"},
	} {
		s, err := Lookup(tt.in, 8)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(s.Name()).To(Equal(tt.want))
		g.Expect(s.Width()).To(Equal(8))
	}
	_, err := Lookup("avx9000", 8)
	g.Expect(err).To(HaveOccurred())
	_, err = Lookup("generic", 6)
	g.Expect(err).To(HaveOccurred())
}
