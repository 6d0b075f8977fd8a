package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsim/internal/collision"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/experiment"
	"github.com/san-kum/gravsim/internal/export"
	"github.com/san-kum/gravsim/internal/netsync"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	settingsFile  string
	scenarioFile  string
	stepsPerFrame int
	themeName     string
	ckptTick      uint64
	outFile       string
	svgWidth      int
	svgHeight     int

	v        *viper.Viper
	settings *config.Settings
	log      zerolog.Logger
)

// overrideFlags maps scenario override flags to their viper keys.
var overrideFlags = map[string]string{
	"integrator":     config.KeyIntegrator,
	"evaluator":      config.KeyEvaluator,
	"tick-rate":      config.KeyTickRate,
	"time-scale":     config.KeyTimeScale,
	"max-substeps":   config.KeySubsteps,
	"softening":      config.KeySoftening,
	"theta":          config.KeyTheta,
	"collision-mode": config.KeyCollisionMode,
	"steps":          config.KeySteps,
	"workers":        config.KeyWorkers,
}

// main registers commands and flags, opens the scenario picker when no
// subcommand is given, and exits with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:               "gravsim",
		Short:             "gravitational n-body simulator",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPicker()
		},
	}
	rootCmd.PersistentFlags().String("data", "./runs", "data directory")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "config", "", "settings file (yaml, toml or json)")
	rootCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 1, "simulation steps per rendered frame")
	rootCmd.Flags().StringVar(&themeName, "theme", viz.Themes[0].Name, "colour theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario and store its trajectory and checkpoints",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario file (yaml)")
	addOverrideFlags(runCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue a stored run from a checkpoint as a new run",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeRun,
	}
	resumeCmd.Flags().Uint64Var(&ckptTick, "tick", 0, "checkpoint tick (default latest)")
	addOverrideFlags(resumeCmd)

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scenario with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario file (yaml)")
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 1, "simulation steps per rendered frame")
	liveCmd.Flags().StringVar(&themeName, "theme", viz.Themes[0].Name, "colour theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	addOverrideFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve [preset]",
		Short: "serve a scenario over websocket with prometheus metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario file (yaml)")
	serveCmd.Flags().String("listen", ":8080", "listen address")
	addOverrideFlags(serveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot body distances and checkpoint energies of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata, checkpoints and trajectory as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	svgCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw a run's trajectories to an SVG file",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	svgCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default <run_id>.svg)")
	svgCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	svgCmd.Flags().IntVar(&svgHeight, "height", 800, "image height")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [integrators...]",
		Short: "run one scenario under several integrators concurrently",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addOverrideFlags(compareCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets or print one as a scenario file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	checkpointCmd := &cobra.Command{
		Use:   "checkpoint [run_id]",
		Short: "list a run's checkpoints or print one",
		Args:  cobra.ExactArgs(1),
		RunE:  showCheckpoints,
	}
	checkpointCmd.Flags().Uint64Var(&ckptTick, "tick", 0, "print the checkpoint at this tick")

	rootCmd.AddCommand(runCmd, resumeCmd, liveCmd, serveCmd, listCmd, plotCmd, exportCmd, svgCmd, compareCmd, presetsCmd, checkpointCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addOverrideFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("integrator", "", "integrator (euler, verlet, leapfrog, rk4, rk45, radau)")
	f.String("evaluator", "", "force evaluator (direct, barneshut)")
	f.Float64("tick-rate", 0, "steps per simulated-time unit of wall clock")
	f.Float64("time-scale", 0, "simulated time per tick-rate interval")
	f.Int("max-substeps", 0, "sub-steps per step")
	f.Float64("softening", 0, "softening length")
	f.Float64("theta", 0, "barnes-hut opening angle")
	f.String("collision-mode", "", "collision mode (none, inelastic_merge)")
	f.Int("steps", 0, "number of steps")
	f.Int("workers", 0, "force evaluation workers")
}

// setup layers flags over GRAVSIM_* env over the settings file, then
// builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if v, err = config.NewViper(settingsFile); err != nil {
		return err
	}

	root := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{"data": "data", "log_level": "log-level"} {
		if err := v.BindPFlag(key, root.Lookup(flag)); err != nil {
			return err
		}
	}
	if f := cmd.Flags().Lookup("listen"); f != nil {
		if err := v.BindPFlag("listen", f); err != nil {
			return err
		}
	}
	for flag, key := range overrideFlags {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if settings, err = config.LoadSettings(v); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", settings.LogLevel, err)
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
	return nil
}

// loadScenario reads --scenario or the named preset and applies overrides.
func loadScenario(args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case scenarioFile != "":
		var err error
		if cfg, err = config.Load(scenarioFile); err != nil {
			return nil, err
		}
	case len(args) > 0:
		if cfg = config.GetPreset(args[0]); cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (have %s)", args[0], strings.Join(config.ListPresets(), ", "))
		}
	default:
		return nil, errors.New("need a preset name or --scenario")
	}
	if err := config.ApplyOverrides(cfg, v); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// progress prints a bar to stderr every few percent of the run.
func progress(total int) sim.Observer {
	every := uint64(max(total/50, 1))
	var done uint64
	return sim.ObserverFunc(func(snap *sim.Snapshot, _ []collision.MergeEvent) {
		done++
		if done%every != 0 && done != uint64(total) {
			return
		}
		pct := float64(done) / float64(max(total, 1))
		fmt.Fprintf(os.Stderr, "\r%s %3.0f%%  tick %d  bodies %d", viz.ProgressBar(pct, 30), pct*100, snap.Tick, len(snap.Bodies))
		if done == uint64(total) {
			fmt.Fprintln(os.Stderr)
		}
	})
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, storage.New(settings.DataDir), log)
	if err := exp.Setup(); err != nil {
		return err
	}
	exp.Simulator().AddObserver(progress(cfg.Steps))

	ctx, cancel := signalContext()
	defer cancel()

	result, err := exp.Run(ctx)
	if result != nil {
		printResult(exp.RunID(), cfg, result)
	}
	return err
}

func resumeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(settings.DataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	var cp *sim.Checkpoint
	if cmd.Flags().Changed("tick") {
		cp, err = st.LoadCheckpoint(meta.ID, ckptTick)
	} else {
		cp, err = st.LatestCheckpoint(meta.ID)
	}
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Name = meta.Scenario
	cfg.Seed = meta.Seed
	cfg.Steps = meta.Steps
	cfg.Simulation = cp.Config
	if err := config.ApplyOverrides(cfg, v); err != nil {
		return err
	}
	cp.Config = cfg.Simulation

	exp := experiment.New(cfg, st, log)
	if err := exp.SetupFrom(cp, meta.ID); err != nil {
		return err
	}
	exp.Simulator().AddObserver(progress(cfg.Steps))
	log.Info().Str("from", meta.ID).Uint64("tick", cp.Tick).Msg("resuming")

	ctx, cancel := signalContext()
	defer cancel()

	result, err := exp.Run(ctx)
	if result != nil {
		printResult(exp.RunID(), cfg, result)
	}
	return err
}

func printResult(runID string, cfg *config.Config, r *sim.Result) {
	fmt.Printf("run:        %s\n", runID)
	fmt.Printf("scenario:   %s\n", cfg.Name)
	fmt.Printf("integrator: %s / %s\n", cfg.Simulation.Integrator, cfg.Simulation.Evaluator)
	fmt.Printf("steps:      %d (t = %.6g)\n", r.StepsTaken, r.SimTime)
	fmt.Printf("bodies:     %d (%d merges)\n", r.Bodies, r.Merges)
	fmt.Printf("energy:     %.9g -> %.9g (drift %.3e)\n", r.Initial.Total, r.Final.Total, r.Drift)
	for _, name := range slices.Sorted(maps.Keys(r.Metrics)) {
		fmt.Printf("  %-16s %.6g\n", name, r.Metrics[name])
	}
}

// buildSimulator returns an initialized simulator holding the scenario's
// bodies.
func buildSimulator(cfg *config.Config) (*sim.Simulator, error) {
	s, err := sim.New(cfg.SimConfig(), sim.WithLogger(log))
	if err != nil {
		return nil, err
	}
	for _, spec := range cfg.BodySpecs() {
		if _, err := s.AddBody(spec); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", cfg.Name, err)
		}
	}
	return s, s.Initialize()
}

func presetChoices() []viz.Choice {
	names := config.ListPresets()
	choices := make([]viz.Choice, len(names))
	for i, name := range names {
		choices[i] = viz.Choice{Name: name, Description: config.GetPreset(name).Description}
	}
	return choices
}

func launchPreset(name string) (*sim.Simulator, error) {
	cfg, err := loadScenario([]string{name})
	if err != nil {
		return nil, err
	}
	return buildSimulator(cfg)
}

func runPicker() error {
	theme, err := viz.LookupTheme(themeName)
	if err != nil {
		return err
	}
	return viz.RunPicker(presetChoices(), launchPreset, stepsPerFrame, theme)
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && scenarioFile == "" {
		return runPicker()
	}
	theme, err := viz.LookupTheme(themeName)
	if err != nil {
		return err
	}
	cfg, err := loadScenario(args)
	if err != nil {
		return err
	}
	s, err := buildSimulator(cfg)
	if err != nil {
		return err
	}
	return viz.Run(s, cfg.Name, stepsPerFrame, theme)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(args)
	if err != nil {
		return err
	}
	s, err := buildSimulator(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hub := netsync.NewHub(s, netsync.NewMetrics(reg), log)

	ctx, cancel := signalContext()
	defer cancel()

	log.Info().Str("scenario", cfg.Name).Int("bodies", len(s.Snapshot().Bodies)).Msg("serving")
	return hub.ListenAndServe(ctx, settings.Listen, reg)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(settings.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tSTEPS\tBODIES\tINTEG\tEVAL\tDRIFT\tFROM")

	for _, run := range runs {
		drift := "-"
		if run.Result != nil {
			drift = fmt.Sprintf("%.2e", run.Result.Drift)
		}
		from := run.ResumedFrom
		if from == "" {
			from = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Bodies,
			run.Config.Integrator,
			run.Config.Evaluator,
			drift,
			from,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(settings.DataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(traj.Tracks) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("bodies: %d\n\n", len(traj.Tracks))

	const maxPlots = 4
	for i, tr := range traj.Tracks {
		if i == maxPlots {
			fmt.Printf("(%d more bodies not shown)\n\n", len(traj.Tracks)-maxPlots)
			break
		}
		if len(tr.Positions) < 2 {
			continue
		}
		data := make([]float64, len(tr.Positions))
		for j, p := range tr.Positions {
			data[j] = p.Len()
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("body %d |r| vs time", tr.ID)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	ticks, err := st.Checkpoints(runID)
	if err != nil {
		return err
	}
	if len(ticks) < 2 {
		return nil
	}
	energies := make([]float64, 0, len(ticks))
	for _, tick := range ticks {
		cp, err := st.LoadCheckpoint(runID, tick)
		if err != nil {
			return err
		}
		energies = append(energies, cp.Metrics.Total)
	}
	fmt.Println(asciigraph.Plot(energies,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("total energy at checkpoints"),
	))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(settings.DataDir).ExportJSON(os.Stdout, args[0])
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	traj, err := storage.New(settings.DataDir).LoadTrajectory(runID)
	if err != nil {
		return err
	}

	svg := export.TrajectoryToSVG(traj, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("run %s has no trajectory to draw", runID)
	}

	path := outFile
	if path == "" {
		path = filepath.Clean(runID + ".svg")
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bodies)\n", path, len(traj.Tracks))
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(args[:1])
	if err != nil {
		return err
	}
	names := args[1:]

	s, err := buildSimulator(cfg)
	if err != nil {
		return err
	}
	start := s.CreateCheckpoint()

	cfgs := make([]sim.Config, len(names))
	for i, name := range names {
		cfgs[i] = cfg.SimConfig()
		cfgs[i].Integrator = name
	}

	registry := experiment.NewRegistry()
	specs := cfg.BodySpecs()
	newMetrics := func() []sim.Metric {
		return registry.DefaultMetrics(cfg.SimConfig(), specs)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing integrators for %s (dt=%.4g, steps=%d)\n\n", cfg.Name, cfg.Simulation.Dt(), cfg.Steps)

	began := time.Now()
	results, err := sim.NewEnsemble(start, newMetrics, log).Run(ctx, cfgs, cfg.Steps)
	elapsed := time.Since(began)

	fmt.Printf("%-10s  %-14s  %-12s  %-12s  %-8s\n", "integrator", "final_energy", "energy_drift", "momentum", "merges")
	fmt.Println(strings.Repeat("-", 64))
	for i, name := range names {
		r := results[i]
		if r == nil {
			fmt.Printf("%-10s  error\n", name)
			continue
		}
		fmt.Printf("%-10s  %14.6g  %12.2e  %12.2e  %8d\n", name, r.Final.Total, r.Drift, r.Metrics["momentum_drift"], r.Merges)
	}
	fmt.Printf("\n%d runs in %s\n", len(names), elapsed.Round(time.Millisecond))
	return err
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return fmt.Errorf("unknown preset %q", args[0])
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS\tINTEG\tEVAL\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", name, cfg.Steps, cfg.Simulation.Integrator, cfg.Simulation.Evaluator, cfg.Description)
	}
	return w.Flush()
}

func showCheckpoints(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(settings.DataDir)

	if cmd.Flags().Changed("tick") {
		cp, err := st.LoadCheckpoint(runID, ckptTick)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cp)
	}

	ticks, err := st.Checkpoints(runID)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		fmt.Println("no checkpoints")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICK\tTIME\tBODIES\tENERGY\tDRIFT\tCREATED")
	var e0 float64
	for i, tick := range ticks {
		cp, err := st.LoadCheckpoint(runID, tick)
		if err != nil {
			return err
		}
		if i == 0 {
			e0 = cp.Metrics.Total
		}
		drift := 0.0
		if e0 != 0 {
			drift = math.Abs((cp.Metrics.Total - e0) / e0)
		}
		fmt.Fprintf(w, "%d\t%.6g\t%d\t%.9g\t%.2e\t%s\n",
			cp.Tick, cp.SimTime, len(cp.Bodies), cp.Metrics.Total, drift, cp.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
