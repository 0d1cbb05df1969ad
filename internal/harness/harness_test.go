package harness_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/san-kum/nldkit/internal/engine"
	"github.com/san-kum/nldkit/internal/harness"
	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/signals"
)

func baseConfig() harness.Config {
	return harness.Config{
		Signal:     signals.WhiteNoise(512, 0.5, 42),
		Source:     "white",
		Dim:        5,
		Delay:      2,
		Layout:     phase.LayoutPadded,
		LaneWidth:  8,
		MinBox:     4,
		MaxBox:     64,
		Iterations: 2,
	}
}

var _ = Describe("Harness", func() {
	var (
		logger *logrus.Logger
		hook   *test.Hook
	)

	BeforeEach(func() {
		logger, hook = test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
	})

	Describe("Run", func() {
		var rep *harness.Report

		BeforeEach(func() {
			var err error
			rep, err = harness.New(baseConfig(), harness.WithLogger(logger)).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs every strategy with identical exponents", func() {
			Expect(rep.Runs).To(HaveLen(2))
			Expect(rep.Run("generic")).NotTo(BeNil())
			Expect(rep.Run("specialized")).NotTo(BeNil())
			Expect(rep.Run("scalar")).To(BeNil())
			Expect(rep.ExponentsAgree).To(BeTrue())
			Expect(rep.Run("specialized").Curve).To(Equal(rep.Run("generic").Curve))
		})

		It("finds no pairwise mismatches", func() {
			Expect(rep.Consistency.OK()).To(BeTrue())
			Expect(rep.Consistency.Pairs).To(Equal(harness.DefaultSample * (harness.DefaultSample - 1) / 2))
		})

		It("reports the specialized strategy as cheaper and more vectorized", func() {
			Expect(rep.InstructionRatio).To(BeNumerically(">", 1))
			Expect(rep.UtilizationDelta).To(BeNumerically(">", 0))
			Expect(rep.Run("generic").Metrics.TailInstructions).To(BeNumerically(">", 0))
			Expect(rep.Run("specialized").Metrics.TailInstructions).To(BeZero())
		})

		It("includes DFA with a spectral cross-check", func() {
			Expect(rep.DFA.Fluctuations).NotTo(BeEmpty())
			Expect(rep.DFA.Alpha.Float()).To(BeNumerically("~", 0.5, 0.25))
			Expect(rep.DFA.SpectralAlpha).To(BeNumerically("~", 0.5, 0.25))
		})

		It("logs per-iteration runs and a summary", func() {
			debug := 0
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.DebugLevel {
					debug++
				}
			}
			Expect(debug).To(Equal(4))
			Expect(hook.LastEntry().Message).To(Equal("comparison finished"))
			Expect(hook.LastEntry().Data).To(HaveKeyWithValue("consistent", true))
		})

		It("encodes as JSON", func() {
			var buf bytes.Buffer
			Expect(rep.WriteJSON(&buf)).To(Succeed())
			var decoded map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
			Expect(decoded).To(HaveKey("lyapunov"))
			Expect(decoded).To(HaveKey("quantization"))
			Expect(decoded).NotTo(HaveKey("reference"))
			Expect(decoded).To(HaveKeyWithValue("lane_width", BeNumerically("==", 8)))
		})

		It("renders a terminal panel", func() {
			out := rep.Render()
			Expect(out).To(ContainSubstring("GENERIC"))
			Expect(out).To(ContainSubstring("SPECIALIZED"))
			Expect(out).To(ContainSubstring("consistent"))
			Expect(out).To(ContainSubstring("fp64 lyapunov"))
			Expect(out).NotTo(ContainSubstring("trajectory ref"))
		})

		It("bounds the quantization error against float64 estimators", func() {
			Expect(rep.Quantization.Lyapunov).To(BeNumerically(">", 0))
			Expect(rep.Quantization.LyapunovAbsError).To(BeNumerically("<", 5e-3))
			Expect(rep.Quantization.Alpha).To(BeNumerically("~", 0.5, 0.25))
			Expect(rep.Quantization.AlphaAbsError).To(BeNumerically("<", 1e-3))
			Expect(rep.Reference).To(BeNil())
		})
	})

	Describe("attractor sources", func() {
		var model signals.Model

		BeforeEach(func() {
			var ok bool
			var err error
			model, ok, err = signals.LookupModel("rossler", signals.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("adds the trajectory reference exponent", func() {
			sig, err := signals.Generate("rossler", 1000, 0)
			Expect(err).NotTo(HaveOccurred())
			cfg := baseConfig()
			cfg.Signal, cfg.Source, cfg.Model = sig, "rossler", &model
			cfg.Dim, cfg.Delay, cfg.Iterations = 3, 15, 1

			rep, err := harness.New(cfg, harness.WithLogger(logger)).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Reference).NotTo(BeNil())
			Expect(rep.Reference.PerTime).To(BeNumerically("~", 0.07, 0.05))
			Expect(rep.Reference.PerSample).To(BeNumerically("~", rep.Reference.PerTime*0.1, 1e-12))
			Expect(rep.Quantization.LyapunovAbsError).To(BeNumerically("<", 5e-3))
			Expect(rep.Render()).To(ContainSubstring("trajectory ref"))
		})

		It("follows the model's integrator and parameters", func() {
			rk4, err := harness.ModelExponent(model, 1)
			Expect(err).NotTo(HaveOccurred())

			scaled, err := harness.ModelExponent(model, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(scaled.PerSample).To(BeNumerically("~", 10*rk4.PerSample, 1e-12))

			euler := model
			euler.Trajectory.Integrator = "euler"
			e, err := harness.ModelExponent(euler, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.PerTime).NotTo(Equal(rk4.PerTime))

			periodic, _, err := signals.LookupModel("rossler", signals.Options{Params: map[string]float64{"c": 2.5}})
			Expect(err).NotTo(HaveOccurred())
			p, err := harness.ModelExponent(periodic, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.PerTime).To(BeNumerically("<", rk4.PerTime))

			bad := model
			bad.Trajectory.Integrator = "verlet"
			_, err = harness.ModelExponent(bad, 1)
			Expect(err).To(MatchError(ContainSubstring("unknown integrator")))
		})
	})

	It("publishes session metrics to an exporter", func() {
		exp := perf.NewExporter()
		_, err := harness.New(baseConfig(), harness.WithLogger(logger), harness.WithExporter(exp)).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		Expect(exp.WriteText(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("nld_instructions_total"))
		Expect(buf.String()).To(ContainSubstring(`operation="dfa"`))
		Expect(buf.String()).To(ContainSubstring(`strategy="specialized"`))
	})

	It("skips DFA when no box range is set", func() {
		cfg := baseConfig()
		cfg.MaxBox = 0
		rep, err := harness.New(cfg, harness.WithLogger(logger)).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.DFA.Fluctuations).To(BeEmpty())
	})

	It("sweeps embedding dimensions", func() {
		points, err := harness.New(baseConfig(), harness.WithLogger(logger)).Sweep(context.Background(), []int{2, 4, 8})
		Expect(err).NotTo(HaveOccurred())
		Expect(points).To(HaveLen(3))
		for _, p := range points {
			Expect(p.InstructionRatio).To(BeNumerically(">", 1), "dim %d", p.Dim)
		}
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := harness.New(baseConfig(), harness.WithLogger(logger)).Run(ctx)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("propagates configuration errors", func() {
		cfg := baseConfig()
		cfg.Signal = cfg.Signal[:8]
		_, err := harness.New(cfg, harness.WithLogger(logger)).Run(context.Background())
		Expect(errors.Is(err, engine.ErrInvalidParameters)).To(BeTrue())

		cfg = baseConfig()
		cfg.Strategies = []string{"scalar"}
		_, err = harness.New(cfg, harness.WithLogger(logger)).Run(context.Background())
		Expect(err).To(MatchError(ContainSubstring("unknown strategy")))
	})
})
