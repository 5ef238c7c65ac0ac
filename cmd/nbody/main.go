package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/nbody/internal/analysis"
	"github.com/san-kum/nbody/internal/config"
	"github.com/san-kum/nbody/internal/experiment"
	"github.com/san-kum/nbody/internal/export"
	"github.com/san-kum/nbody/internal/metrics"
	"github.com/san-kum/nbody/internal/sim"
	"github.com/san-kum/nbody/internal/storage"
	"github.com/san-kum/nbody/internal/trajectory"
	"github.com/san-kum/nbody/internal/tui"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	progress   bool

	// run flags; resolved through config.Resolve, never read directly
	particles   int
	threads     int
	initName    string
	seed        int64
	integrator  string
	dt          float64
	maxTime     float64
	sampleEvery int
	remainder   string
	order       string
	validate    bool
	gravConst   float64
	boxLength   float64
	softening   float64
	separation  float64
	speed       float64

	format   string
	outPath  string
	particle int
	axis     string
	plotW    int
	plotH    int

	benchSizes   []int
	benchThreads []int
	benchSteps   int

	ensembleRuns     int
	ensembleParallel int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "nbody",
		Short:         "parallel direct-summation gravity simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir, "run storage directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")

	defaults := config.DefaultConfig()

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store its trajectory",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "start from a preset configuration")
	runCmd.Flags().BoolVar(&progress, "progress", false, "show a live progress bar")
	runCmd.Flags().IntVarP(&particles, "particles", "n", defaults.Particles, "number of particles")
	runCmd.Flags().IntVarP(&threads, "threads", "t", defaults.Threads, "worker goroutines")
	runCmd.Flags().StringVar(&initName, "init", defaults.Init, "initial condition (uniform, lattice, pair, figure8)")
	runCmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "random seed")
	runCmd.Flags().StringVar(&integrator, "integrator", defaults.Integrator, "integrator (threaded-euler, euler, leapfrog)")
	runCmd.Flags().Float64Var(&dt, "dt", defaults.Dt, "timestep, 0 derives it from the characteristic time")
	runCmd.Flags().Float64Var(&maxTime, "max-time", defaults.MaxTime, "simulated duration, 0 derives it from the characteristic time")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", defaults.SampleEvery, "record every k-th step")
	runCmd.Flags().StringVar(&remainder, "remainder", defaults.Remainder, "partition remainder policy (last, drop, strict)")
	runCmd.Flags().StringVar(&order, "order", defaults.Order, "trajectory order (index, time)")
	runCmd.Flags().BoolVar(&validate, "validate", defaults.ValidateState, "abort on non-finite positions or velocities")
	runCmd.Flags().Float64Var(&gravConst, "g", defaults.Physics.G, "gravitational constant")
	runCmd.Flags().Float64Var(&boxLength, "box", defaults.Physics.BoxLength, "box length")
	runCmd.Flags().Float64Var(&softening, "softening", defaults.Physics.Softening, "softening length")
	runCmd.Flags().Float64Var(&separation, "separation", defaults.Pair.Separation, "pair separation (init=pair)")
	runCmd.Flags().Float64Var(&speed, "speed", defaults.Pair.Speed, "pair speed (init=pair)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run (json, parquet, arrow, svg)",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "output format")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.<ext>)")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot energy, momentum and a phase portrait",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&particle, "particle", 0, "particle index for the phase portrait")
	plotCmd.Flags().StringVar(&axis, "axis", "x", "phase portrait axis (x, y, z)")
	plotCmd.Flags().IntVar(&plotW, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotH, "height", 12, "plot height")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id] [other_run_id]",
		Short: "energy spectrum, and divergence from a second run",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  analyzeRun,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time the threaded engine over sizes and thread counts",
		Args:  cobra.NoArgs,
		RunE:  benchEngine,
	}
	benchCmd.Flags().IntSliceVar(&benchSizes, "sizes", []int{256, 512, 1024}, "particle counts")
	benchCmd.Flags().IntSliceVar(&benchThreads, "threads", []int{1, 2, 4, 8}, "thread counts")
	benchCmd.Flags().IntVar(&benchSteps, "steps", 10, "steps per timing")
	benchCmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "random seed")
	benchCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the table to a file")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "repeat a run over consecutive seeds and summarize its metrics",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	ensembleCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	ensembleCmd.Flags().StringVar(&preset, "preset", "", "start from a preset configuration")
	ensembleCmd.Flags().IntVar(&ensembleRuns, "runs", 8, "number of seeds")
	ensembleCmd.Flags().IntVar(&ensembleParallel, "parallel", 1, "runs executing at once")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, exportCmd, plotCmd, analyzeCmd, benchCmd, ensembleCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}

func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	base := config.DefaultConfig()
	if preset != "" {
		base = config.GetPreset(preset)
		if base == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	cfg, err := config.Resolve(base, configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg, logger)
	var result *experiment.Result
	runExp := func(ctx context.Context) error {
		r, err := exp.Run(ctx)
		result = r
		return err
	}

	logger.WithFields(logrus.Fields{
		"particles":  cfg.Particles,
		"threads":    cfg.Threads,
		"integrator": cfg.Integrator,
	}).Info("running simulation")

	if progress {
		title := fmt.Sprintf("nbody %s n=%d threads=%d", cfg.Integrator, cfg.Particles, cfg.Threads)
		err = tui.RunWithProgress(ctx, title, tui.Options{}, func(ctx context.Context, t *tui.Tracker) error {
			exp.AddObserver(t)
			return runExp(ctx)
		})
	} else {
		err = runExp(ctx)
	}
	if err != nil {
		return err
	}

	st := storage.New(cfg.DataDir).WithLogger(logger)
	if err := st.Init(); err != nil {
		return err
	}
	meta := exp.Metadata(result, time.Now())
	runID, err := st.Save(meta, result.Trajectory)
	if err != nil {
		return err
	}
	meta.ID = runID
	meta.Samples = len(result.Trajectory)

	series := metrics.NewSeries(trajectory.Frames(result.Trajectory), result.Config.Physics)
	fmt.Println(tui.Summary(meta, series.Total))
	return nil
}

func openStore() (*storage.Store, *logrus.Logger, error) {
	logger, err := setupLogger(logLevel)
	if err != nil {
		return nil, nil, err
	}
	return storage.New(dataDir).WithLogger(logger), logger, nil
}

func loadRun(runID string) (*storage.RunMetadata, sim.Trajectory, error) {
	st, _, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, traj, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}
	fmt.Println(tui.RunTable(runs))
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	series := metrics.NewSeries(trajectory.Frames(traj), meta.Physics.WithDefaults())
	fmt.Println(tui.Summary(*meta, series.Total))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := outPath
	if path == "" {
		path = meta.ID + "." + f.Extension()
	}
	summary := export.NewSummary(*meta, trajectory.Frames(traj))
	if err := export.WriteFile(path, f, summary, traj); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", meta.ID, path)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	ax, err := analysis.ParseAxis(axis)
	if err != nil {
		return err
	}
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	series := metrics.NewSeries(trajectory.Frames(traj), meta.Physics.WithDefaults())
	if series.Len() < 2 {
		return fmt.Errorf("run %s has too few frames to plot", meta.ID)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("frames: %d\n\n", series.Len())

	for _, p := range []struct {
		caption string
		data    []float64
	}{
		{"total energy", series.Total},
		{"kinetic energy", series.Kinetic},
		{"|momentum|", series.Momentum},
	} {
		graph := asciigraph.Plot(p.data,
			asciigraph.Height(plotH),
			asciigraph.Width(plotW),
			asciigraph.Caption(p.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	portrait := analysis.NewPhasePortrait(traj, particle, ax)
	if portrait == nil {
		return fmt.Errorf("run %s has no samples of particle %d", meta.ID, particle)
	}
	fmt.Printf("phase portrait: particle %d, %s vs v%s\n", particle, axis, axis)
	fmt.Println(analysis.PhasePortraitToASCII(portrait, plotW, plotH*2))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(args[0])
	if err != nil {
		return err
	}
	series := metrics.NewSeries(trajectory.Frames(traj), meta.Physics.WithDefaults())
	if series.Len() < 2 {
		return fmt.Errorf("run %s has too few frames to analyze", meta.ID)
	}

	spacing := series.Times[1] - series.Times[0]
	spectrum, err := analysis.PowerSpectrum(series.Total, spacing)
	if err != nil {
		return err
	}
	freq, power := analysis.DominantFrequency(spectrum)

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("frames: %d, spacing %.6g\n", series.Len(), spacing)
	fmt.Printf("dominant energy frequency: %.6g (amplitude %.6g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.6g\n", 1/freq)
	}
	for _, name := range slices.Sorted(maps.Keys(meta.Metrics)) {
		fmt.Printf("  %s: %.6g\n", name, meta.Metrics[name])
	}

	if len(args) < 2 {
		return nil
	}

	_, other, err := loadRun(args[1])
	if err != nil {
		return err
	}
	div, err := analysis.Divergence(traj, other)
	if err != nil {
		return err
	}
	fmt.Printf("\ndivergence from %s: rate %.6g per unit time\n", args[1], div.Rate)

	logs := make([]float64, 0, len(div.Separation))
	for _, s := range div.Separation {
		if s > 0 {
			logs = append(logs, math.Log(s))
		}
	}
	if len(logs) > 1 {
		fmt.Println(asciigraph.Plot(logs, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("ln separation")))
	}
	return nil
}

func benchEngine(cmd *cobra.Command, args []string) error {
	logger, err := setupLogger(logLevel)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	timings, err := experiment.Sweep(ctx, benchSizes, benchThreads, experiment.SweepOptions{
		Steps:  benchSteps,
		Seed:   seed,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return err
		}
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return experiment.WriteTimings(w, timings)
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ens := experiment.NewEnsemble(cfg, ensembleRuns, logger)
	ens.Parallel = ensembleParallel
	results, err := ens.Run(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "seeds %d..%d, n=%d, %s\n\n", cfg.Seed, cfg.Seed+int64(ensembleRuns)-1, cfg.Particles, cfg.Integrator)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, s := range experiment.Summarize(results) {
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.6g\n", s.Name, s.Mean, s.StdDev, s.Min, s.Max)
	}
	return w.Flush()
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("presets:")
		for _, name := range config.ListPresets() {
			p := config.GetPreset(name)
			fmt.Printf("  %-10s n=%-5d threads=%-2d init=%-8s integrator=%s\n",
				name, p.Particles, p.Threads, p.Init, p.Integrator)
		}
		return nil
	}

	p := config.GetPreset(args[0])
	if p == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(p)
}
