package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/nldkit/internal/analysis"
	"github.com/san-kum/nldkit/internal/config"
	"github.com/san-kum/nldkit/internal/cpu"
	"github.com/san-kum/nldkit/internal/engine"
	"github.com/san-kum/nldkit/internal/harness"
	"github.com/san-kum/nldkit/internal/integrators"
	"github.com/san-kum/nldkit/internal/perf"
	"github.com/san-kum/nldkit/internal/phase"
	"github.com/san-kum/nldkit/internal/signals"
)

var (
	configFile string
	preset     string
	verbose    bool
	// Signal
	length int
	seed   int64
	column int
	raw    bool
	// Attractor sources
	integrator string
	params     map[string]string
	// Embedding
	dim       int
	delay     int
	layout    string
	strategy  string
	laneWidth int
	horizon   int
	timeScale int
	// DFA
	minBox   int
	maxBox   int
	schedule string
	// Compare
	iterations int
	sweep      string
	// Output
	asJSON      bool
	showMetrics bool
	showPlot    bool
	// Phase plot axes
	xAxis int
	yAxis int
)

var log = logrus.New()

// main registers the commands and exits with status 1 if one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "nldkit",
		Short:         "fixed-point nonlinear dynamics toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(os.Stderr)
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration (domain/name)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [signal|file.csv]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLyapunov,
	}
	signalFlags(lyapunovCmd)
	embeddingFlags(lyapunovCmd)
	outputFlags(lyapunovCmd)

	dfaCmd := &cobra.Command{
		Use:   "dfa [signal|file.csv]",
		Short: "estimate the DFA scaling exponent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDFA,
	}
	signalFlags(dfaCmd)
	dfaFlags(dfaCmd)
	dfaCmd.Flags().IntVar(&laneWidth, "lanes", 0, "modelled vector lanes (0 = detect)")
	outputFlags(dfaCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [signal|file.csv]",
		Short: "compare the generic and specialized distance strategies",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCompare,
	}
	signalFlags(compareCmd)
	embeddingFlags(compareCmd)
	dfaFlags(compareCmd)
	outputFlags(compareCmd)
	compareCmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "timed repetitions per strategy")
	compareCmd.Flags().StringVar(&sweep, "sweep", "", "comma-separated embedding dimensions to sweep")

	phaseCmd := &cobra.Command{
		Use:   "phase [signal|file.csv]",
		Short: "plot a 2D projection of the reconstructed phase space",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPhase,
	}
	signalFlags(phaseCmd)
	embeddingFlags(phaseCmd)
	phaseCmd.Flags().IntVar(&xAxis, "x", 0, "x-axis component")
	phaseCmd.Flags().IntVar(&yAxis, "y", 1, "y-axis component")

	genCmd := &cobra.Command{
		Use:   "gen [signal]",
		Short: "write a synthetic signal as csv",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGen,
	}
	signalFlags(genCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets and signal generators",
		RunE:  listPresets,
	}

	cpuCmd := &cobra.Command{
		Use:   "cpu",
		Short: "show detected simd features",
		RunE:  showCPU,
	}

	rootCmd.AddCommand(lyapunovCmd, dfaCmd, compareCmd, phaseCmd, genCmd, presetsCmd, cpuCmd)

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func signalFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&length, "length", config.DefaultLength, "samples to generate or read (0 = all rows)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "generator seed")
	cmd.Flags().IntVar(&column, "column", 0, "csv column holding samples")
	cmd.Flags().BoolVar(&raw, "raw", false, "csv values are raw q15 integers")
	cmd.Flags().StringVar(&integrator, "integrator", integrators.Default, "ode stepper for attractor signals (rk4, euler)")
	cmd.Flags().StringToStringVar(&params, "param", nil, "attractor parameter override, e.g. --param c=4")
}

func embeddingFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&dim, "dim", config.DefaultDim, "embedding dimension")
	cmd.Flags().IntVar(&delay, "delay", config.DefaultDelay, "time delay in samples")
	cmd.Flags().StringVar(&layout, "layout", "padded", "phase-space layout (contiguous, padded, rowwise)")
	cmd.Flags().StringVar(&strategy, "strategy", "specialized", "distance strategy (generic, specialized)")
	cmd.Flags().IntVar(&laneWidth, "lanes", 0, "modelled vector lanes (0 = detect)")
	cmd.Flags().IntVar(&horizon, "horizon", config.DefaultHorizon, "largest forward offset")
	cmd.Flags().IntVar(&timeScale, "time-scale", config.DefaultTimeScale, "exponent scale, e.g. sampling rate")
}

func dfaFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&minBox, "min-box", config.DefaultMinBox, "smallest box size")
	cmd.Flags().IntVar(&maxBox, "max-box", config.DefaultMaxBox, "largest box size")
	cmd.Flags().StringVar(&schedule, "schedule", "geometric", "box schedule (geometric, linear)")
}

func outputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&asJSON, "json", false, "print json")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "dump prometheus metrics")
	cmd.Flags().BoolVar(&showPlot, "plot", false, "plot the divergence curve or fluctuation function")
}

// resolveConfig layers preset, config file and explicit flags, in that
// order of precedence from lowest to highest.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		domain, name, _ := strings.Cut(preset, "/")
		p := config.GetPreset(domain, name)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (domains: %v)", preset, config.Domains())
		}
		cfg = p
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("length") {
		cfg.Signal.Length = length
	}
	if flags.Changed("seed") {
		cfg.Signal.Seed = seed
	}
	if flags.Changed("column") {
		cfg.Signal.Column = column
	}
	if flags.Changed("integrator") {
		cfg.Signal.Integrator = integrator
	}
	if flags.Changed("param") {
		overrides, err := parseParams(params)
		if err != nil {
			return nil, err
		}
		if cfg.Signal.Params == nil {
			cfg.Signal.Params = make(map[string]float64, len(overrides))
		}
		for k, v := range overrides {
			cfg.Signal.Params[k] = v
		}
	}
	if flags.Changed("dim") {
		cfg.Embedding.Dim = dim
	}
	if flags.Changed("delay") {
		cfg.Embedding.Delay = delay
	}
	if flags.Changed("layout") {
		cfg.Embedding.Layout = layout
	}
	if flags.Changed("strategy") {
		cfg.Strategy = strategy
	}
	if flags.Changed("lanes") {
		cfg.LaneWidth = laneWidth
	}
	if flags.Changed("horizon") {
		cfg.Lyapunov.Horizon = horizon
	}
	if flags.Changed("time-scale") {
		cfg.Lyapunov.TimeScale = timeScale
	}
	if flags.Changed("min-box") {
		cfg.DFA.MinBox = minBox
	}
	if flags.Changed("max-box") {
		cfg.DFA.MaxBox = maxBox
	}
	if flags.Changed("schedule") {
		cfg.DFA.Schedule = schedule
	}
	if flags.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if len(args) > 0 {
		cfg.Signal.Source = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	l, err := phase.ParseLayout(cfg.Embedding.Layout)
	if err != nil {
		return nil, err
	}
	sched, err := analysis.ParseSchedule(cfg.DFA.Schedule)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Options{
		LaneWidth: cfg.LaneWidth,
		Layout:    l,
		Lyapunov: analysis.LyapunovOptions{
			Horizon:   cfg.Lyapunov.Horizon,
			TimeScale: cfg.Lyapunov.TimeScale,
		},
		Schedule: sched,
	}), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dumpMetrics(exp *perf.Exporter) error {
	fmt.Println()
	return exp.WriteText(os.Stdout)
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	sig, err := loadSignal(cfg.Signal, raw)
	if err != nil {
		return err
	}
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}
	s, err := e.Strategy(cfg.Strategy)
	if err != nil {
		return err
	}

	res, m, err := e.Lyapunov(sig, cfg.Embedding.Dim, cfg.Embedding.Delay, s)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"strategy": s.Name(),
		"terms":    res.Terms,
		"points":   res.Points,
	}).Debug("lyapunov estimated")

	model, err := signalModel(cfg.Signal)
	if err != nil {
		return err
	}
	var ref *harness.ReferenceRun
	if model != nil {
		if ref, err = harness.ModelExponent(*model, cfg.Lyapunov.TimeScale); err != nil {
			log.WithError(err).Warn("reference exponent skipped")
		}
	}

	if asJSON {
		return printJSON(map[string]any{
			"source":    cfg.Signal.Source,
			"strategy":  s.Name(),
			"exponent":  res.Exponent.Float(),
			"q15":       res.Exponent,
			"slope":     res.Slope,
			"curve":     res.Curve,
			"reference": ref,
			"metrics":   m,
		})
	}

	fmt.Printf("signal: %s (%d samples)\n", cfg.Signal.Source, len(sig))
	fmt.Printf("embedding: dim=%d delay=%d layout=%s lanes=%d\n",
		cfg.Embedding.Dim, cfg.Embedding.Delay, e.Options().Layout, e.Options().LaneWidth)
	fmt.Printf("strategy: %s\n\n", s.Name())
	fmt.Printf("lyapunov exponent: %.5f (q15 %d)\n", res.Exponent.Float(), res.Exponent)
	fmt.Printf("divergence slope:  %.5f\n", res.Slope)
	if ref != nil {
		fmt.Printf("trajectory ref:    %.5f (%.4f per time unit)\n", ref.PerSample, ref.PerTime)
	}
	fmt.Printf("terms: %d over %d points\n", res.Terms, res.Points)
	fmt.Printf("%s\n", m)

	if showPlot && len(res.Curve) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(res.Curve,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption("mean ln divergence vs offset"),
		))
	}

	if showMetrics {
		exp := perf.NewExporter()
		exp.Observe("lyapunov", s.Name(), m)
		return dumpMetrics(exp)
	}
	return nil
}

func runDFA(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	sig, err := loadSignal(cfg.Signal, raw)
	if err != nil {
		return err
	}
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}

	res, m, err := e.DFA(sig, cfg.DFA.MinBox, cfg.DFA.MaxBox)
	if err != nil {
		return err
	}
	beta, specErr := analysis.SpectralExponent(sig, nil)
	if specErr != nil {
		log.WithError(specErr).Warn("spectral cross-check skipped")
	}

	if asJSON {
		return printJSON(map[string]any{
			"source":         cfg.Signal.Source,
			"alpha":          res.Alpha.Float(),
			"q15":            res.Alpha,
			"intercept":      res.Intercept,
			"fluctuations":   res.Fluctuations,
			"spectral_beta":  beta,
			"spectral_alpha": analysis.AlphaFromBeta(beta),
			"metrics":        m,
		})
	}

	fmt.Printf("signal: %s (%d samples)\n", cfg.Signal.Source, len(sig))
	fmt.Printf("boxes: %d..%d (%s)\n\n", cfg.DFA.MinBox, cfg.DFA.MaxBox, cfg.DFA.Schedule)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BOX\tWINDOWS\tF(n)")
	for _, f := range res.Fluctuations {
		fmt.Fprintf(w, "%d\t%d\t%.6g\n", f.Box, f.Windows, f.F)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nalpha: %.4f (q15 %d)\n", res.Alpha.Float(), res.Alpha)
	if specErr == nil {
		fmt.Printf("spectral alpha: %.4f (beta %.3f)\n", analysis.AlphaFromBeta(beta), beta)
	}
	fmt.Printf("%s\n", m)

	if showPlot {
		var logF []float64
		for _, f := range res.Fluctuations {
			if f.F > 0 {
				logF = append(logF, math.Log(f.F))
			}
		}
		if len(logF) > 1 {
			fmt.Println()
			fmt.Println(asciigraph.Plot(logF,
				asciigraph.Height(10),
				asciigraph.Width(60),
				asciigraph.Caption("ln F(n) over box sizes"),
			))
		}
	}

	if showMetrics {
		exp := perf.NewExporter()
		exp.Observe("dfa", "vek", m)
		return dumpMetrics(exp)
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	sig, err := loadSignal(cfg.Signal, raw)
	if err != nil {
		return err
	}
	l, err := phase.ParseLayout(cfg.Embedding.Layout)
	if err != nil {
		return err
	}
	sched, err := analysis.ParseSchedule(cfg.DFA.Schedule)
	if err != nil {
		return err
	}

	model, err := signalModel(cfg.Signal)
	if err != nil {
		return err
	}

	exp := perf.NewExporter()
	h := harness.New(harness.Config{
		Signal:    sig,
		Source:    cfg.Signal.Source,
		Model:     model,
		Dim:       cfg.Embedding.Dim,
		Delay:     cfg.Embedding.Delay,
		Layout:    l,
		LaneWidth: cfg.LaneWidth,
		Lyapunov: analysis.LyapunovOptions{
			Horizon:   cfg.Lyapunov.Horizon,
			TimeScale: cfg.Lyapunov.TimeScale,
		},
		MinBox:     cfg.DFA.MinBox,
		MaxBox:     cfg.DFA.MaxBox,
		Schedule:   sched,
		Iterations: cfg.Iterations,
	}, harness.WithLogger(log), harness.WithExporter(exp))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if sweep != "" {
		dims, err := parseInts(sweep)
		if err != nil {
			return err
		}
		points, err := h.Sweep(ctx, dims)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(points)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DIM\tSPEEDUP\tINSTR RATIO\tUTIL DELTA")
		for _, p := range points {
			fmt.Fprintf(w, "%d\t%.2fx\t%.2fx\t%+.1f\n", p.Dim, p.Speedup, p.InstructionRatio, p.UtilizationDelta)
		}
		return w.Flush()
	}

	rep, err := h.Run(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		if err := rep.WriteJSON(os.Stdout); err != nil {
			return err
		}
	} else {
		fmt.Println(rep.Render())
		if showPlot {
			for _, run := range rep.Runs {
				if len(run.Curve) > 1 {
					fmt.Println(asciigraph.Plot(run.Curve,
						asciigraph.Height(8),
						asciigraph.Width(60),
						asciigraph.Caption(run.Strategy+" divergence"),
					))
				}
			}
		}
	}
	if showMetrics {
		return dumpMetrics(exp)
	}
	if !rep.Consistency.OK() || !rep.ExponentsAgree {
		return fmt.Errorf("strategies disagree on %d of %d pairs", rep.Consistency.Mismatches, rep.Consistency.Pairs)
	}
	return nil
}

func runPhase(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	sig, err := loadSignal(cfg.Signal, raw)
	if err != nil {
		return err
	}
	l, err := phase.ParseLayout(cfg.Embedding.Layout)
	if err != nil {
		return err
	}
	ps, err := phase.Reconstruct(sig, phase.Config{
		Dim:    cfg.Embedding.Dim,
		Delay:  cfg.Embedding.Delay,
		Layout: l,
		Align:  cpu.DefaultLaneWidth(),
	}, nil)
	if err != nil {
		return err
	}

	plot := phase.Portrait(ps, xAxis, yAxis, 60, 24)
	if plot == "" {
		return fmt.Errorf("axes %d,%d out of range for dim %d", xAxis, yAxis, ps.Dim())
	}
	fmt.Printf("phase space: %s, %d points, x%d vs x%d\n\n", cfg.Signal.Source, ps.Len(), xAxis, yAxis)
	fmt.Println(plot)
	return nil
}

func runGen(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	sig, err := signals.GenerateWith(cfg.Signal.Source, cfg.Signal.Length, cfg.Signal.Seed, signalOptions(cfg.Signal))
	if err != nil {
		return err
	}
	return writeSignal(os.Stdout, sig)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSIGNAL\tLENGTH\tDIM\tDELAY\tBOXES")
	for _, domain := range config.Domains() {
		for _, name := range config.ListPresets(domain) {
			p := config.GetPreset(domain, name)
			fmt.Fprintf(w, "%s/%s\t%s\t%d\t%d\t%d\t%d..%d\n", domain, name,
				p.Signal.Source, p.Signal.Length, p.Embedding.Dim, p.Embedding.Delay, p.DFA.MinBox, p.DFA.MaxBox)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nsignals: %s\n", strings.Join(signals.Names(), ", "))
	return nil
}

func showCPU(cmd *cobra.Command, args []string) error {
	f := cpu.DetectFeatures()
	fmt.Printf("arch: %s\n", f.Architecture)
	fmt.Printf("sse2: %v  avx2: %v  neon: %v\n", f.HasSSE2, f.HasAVX2, f.HasNEON)
	fmt.Printf("level: %s\n", f.Level())
	fmt.Printf("q15 lanes: %d\n", cpu.LaneWidth(f.Level()))
	return nil
}

// parseParams converts --param name=value pairs to floats.
func parseParams(kv map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(kv))
	for k, v := range kv {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for parameter %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", part, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return out, nil
}
