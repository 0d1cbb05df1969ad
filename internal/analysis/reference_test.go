package analysis

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/nldkit/internal/dynamo"
	"github.com/san-kum/nldkit/internal/integrators"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/physics"
	"github.com/san-kum/nldkit/internal/q15"
	"github.com/san-kum/nldkit/internal/signals"
)

func TestTrajectoryExponent(t *testing.T) {
	tests := []struct {
		name     string
		dyn      dynamo.System
		lo, hi   float64
		duration float64
	}{
		{"lorenz", physics.NewLorenz(), 0.6, 1.2, 60},
		{"vanderpol", physics.NewVanDerPol(), -0.1, 0.1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrajectoryExponent(tt.dyn, integrators.NewRK4(), tt.dyn.DefaultState(), 0.01, tt.duration, 1e-8)
			if err != nil {
				t.Fatal(err)
			}
			if got < tt.lo || got > tt.hi {
				t.Errorf("exponent %.4f outside [%.2f, %.2f]", got, tt.lo, tt.hi)
			}
		})
	}
}

type blowup struct{}

func (blowup) Derive(x dynamo.State, _ float64) dynamo.State { return dynamo.State{x[0] * x[0]} }
func (blowup) StateDim() int                                 { return 1 }
func (blowup) DefaultState() dynamo.State                    { return dynamo.State{10} }

func TestTrajectoryExponent_Errors(t *testing.T) {
	g := NewWithT(t)
	lorenz := physics.NewLorenz()

	_, err := TrajectoryExponent(lorenz, integrators.NewRK4(), dynamo.State{math.NaN(), 0, 0}, 0.01, 1, 1e-8)
	g.Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())

	_, err = TrajectoryExponent(blowup{}, integrators.NewEuler(), blowup{}.DefaultState(), 0.1, 10, 1e-8)
	g.Expect(errors.Is(err, dynamo.ErrUnstable)).To(BeTrue())
	var ie *dynamo.IntegrationError
	g.Expect(errors.As(err, &ie)).To(BeTrue())
	g.Expect(ie.Step).To(BeNumerically(">", 0))

	_, err = TrajectoryExponent(lorenz, integrators.NewRK4(), lorenz.DefaultState(), 0, 1, 1e-8)
	g.Expect(errors.Is(err, ErrInvalidParameters)).To(BeTrue())
}

// The fixed-point estimators must stay close to their float64
// counterparts: the Q15 path only adds table-log interpolation and
// truncating shifts to the Lyapunov estimate, and a sub-LSB linear trend
// that detrending removes to the DFA profile.
func TestQuantizationError(t *testing.T) {
	rossler, err := signals.Generate("rossler", 2000, 0)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name       string
		sig        q15.Signal
		dim, delay int
		dfa        DFAOptions
	}{
		{"white", signals.WhiteNoise(2048, 0.5, 42), 5, 4, DFAOptions{MinBox: 8, MaxBox: 256}},
		{"walk", signals.RandomWalk(2048, 65, 42), 5, 4, DFAOptions{MinBox: 8, MaxBox: 256}},
		{"rossler", rossler, 3, 15, DFAOptions{MinBox: 4, MaxBox: 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			res, err := estimate(t, tt.sig, tt.dim, tt.delay, "specialized", phase.LayoutPadded)
			g.Expect(err).NotTo(HaveOccurred())
			ref, err := LyapunovReference(tt.sig.Floats(), tt.dim, tt.delay, LyapunovOptions{})
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(math.Abs(res.Exponent.Float()-ref)).To(BeNumerically("<", 5e-3),
				"q15 %.6f vs fp64 %.6f", res.Exponent.Float(), ref)

			dfa, err := DFA(tt.sig, tt.dfa, nil)
			g.Expect(err).NotTo(HaveOccurred())
			alpha, err := DFAReference(tt.sig.Floats(), tt.dfa)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(math.Abs(dfa.Alpha.Float()-alpha)).To(BeNumerically("<", 1e-3),
				"q15 %.6f vs fp64 %.6f", dfa.Alpha.Float(), alpha)
		})
	}
}

func TestLyapunovReference_Edges(t *testing.T) {
	g := NewWithT(t)

	got, err := LyapunovReference(make([]float64, 32), 2, 1, LyapunovOptions{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(BeZero())

	_, err = LyapunovReference([]float64{0.1, 0.2, 0.3}, 2, 1, LyapunovOptions{})
	g.Expect(errors.Is(err, ErrInsufficientData)).To(BeTrue())

	_, err = LyapunovReference(make([]float64, 32), 1, 1, LyapunovOptions{})
	g.Expect(errors.Is(err, ErrInvalidParameters)).To(BeTrue())

	_, err = DFAReference(make([]float64, 32), DFAOptions{MinBox: 2, MaxBox: 16})
	g.Expect(errors.Is(err, ErrInvalidParameters)).To(BeTrue())
}

func TestLyapunovReference_TimeScale(t *testing.T) {
	g := NewWithT(t)
	x := signals.WhiteNoise(512, 0.5, 9).Floats()
	one, err := LyapunovReference(x, 4, 2, LyapunovOptions{TimeScale: 1})
	g.Expect(err).NotTo(HaveOccurred())
	four, err := LyapunovReference(x, 4, 2, LyapunovOptions{TimeScale: 4})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(four).To(BeNumerically("~", 4*one, 1e-12))
	g.Expect(one).To(BeNumerically(">", 0))
}
