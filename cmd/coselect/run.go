package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"coselect/internal/asyncrt"
	"coselect/internal/bench"
	"coselect/internal/config"
	"coselect/internal/observ"
	"coselect/internal/trace"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Run select benchmark scenarios",
	Long: `Run every configured scenario (or the ones named with --scenario) and
report the time per iteration. Flags override values from coselect.toml.`,
	Args: cobra.NoArgs,
	RunE: runBenchmarks,
}

func init() {
	runCmd.Flags().Int("iterations", config.DefaultIterations, "iterations per scenario")
	runCmd.Flags().Int("jobs", 0, "scenarios run in parallel (0 = GOMAXPROCS)")
	runCmd.Flags().String("clock", "virtual", "drive latency clock (virtual|real)")
	runCmd.Flags().Bool("fuzz", false, "pick the next runnable task at random")
	runCmd.Flags().Uint64("seed", 0, "seed for fuzz scheduling and random scan order")
	runCmd.Flags().Uint64("max-polls", 0, "abort an iteration after this many task drives (0 = unlimited)")
	runCmd.Flags().String("order", "", "override the scan order of every scenario (fixed|random)")
	runCmd.Flags().StringSlice("scenario", nil, "run only the named scenarios")
	runCmd.Flags().String("baseline", "", "compare against this baseline file")
	runCmd.Flags().Bool("save-baseline", false, "write the results to the baseline file")
	runCmd.Flags().String("format", "pretty", "report format (pretty|json)")
	runCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

type runFlags struct {
	format       string
	ui           uiMode
	quiet        bool
	timings      bool
	saveBaseline bool
	order        string
	scenarios    []string
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, _, err := config.Discover(wd)
	return cfg, err
}

// applyRunFlags overrides config values with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) (runFlags, error) {
	var rf runFlags
	flags := cmd.Flags()
	var err error

	if flags.Changed("iterations") {
		n, err := flags.GetInt("iterations")
		if err != nil {
			return rf, err
		}
		if n < 1 {
			return rf, fmt.Errorf("--iterations must be positive, got %d", n)
		}
		cfg.Run.Iterations = n
	}
	if flags.Changed("jobs") {
		if cfg.Run.Jobs, err = flags.GetInt("jobs"); err != nil {
			return rf, err
		}
	}
	if flags.Changed("clock") {
		value, err := flags.GetString("clock")
		if err != nil {
			return rf, err
		}
		if cfg.Run.Clock, err = asyncrt.ParseClockMode(value); err != nil {
			return rf, err
		}
	}
	if flags.Changed("fuzz") {
		if cfg.Run.Fuzz, err = flags.GetBool("fuzz"); err != nil {
			return rf, err
		}
	}
	if flags.Changed("seed") {
		if cfg.Run.Seed, err = flags.GetUint64("seed"); err != nil {
			return rf, err
		}
	}
	if flags.Changed("max-polls") {
		if cfg.Run.MaxPolls, err = flags.GetUint64("max-polls"); err != nil {
			return rf, err
		}
	}
	if flags.Changed("baseline") {
		if cfg.Run.Baseline, err = flags.GetString("baseline"); err != nil {
			return rf, err
		}
	}

	if rf.format, err = flags.GetString("format"); err != nil {
		return rf, err
	}
	rf.format = strings.ToLower(rf.format)
	if rf.format != "pretty" && rf.format != "json" {
		return rf, fmt.Errorf("unsupported format %q (must be pretty or json)", rf.format)
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return rf, err
	}
	if rf.ui, err = readUIMode(uiValue); err != nil {
		return rf, err
	}
	if rf.saveBaseline, err = flags.GetBool("save-baseline"); err != nil {
		return rf, err
	}
	if rf.saveBaseline && cfg.Run.Baseline == "" {
		return rf, fmt.Errorf("--save-baseline needs --baseline or [run].baseline")
	}
	if rf.order, err = flags.GetString("order"); err != nil {
		return rf, err
	}
	if rf.scenarios, err = flags.GetStringSlice("scenario"); err != nil {
		return rf, err
	}
	if rf.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return rf, err
	}
	if rf.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return rf, err
	}
	return rf, nil
}

func selectScenarios(cfg *config.Config, rf runFlags) ([]bench.Scenario, error) {
	scenarios, err := cfg.Select(rf.scenarios)
	if err != nil {
		return nil, err
	}
	if rf.order != "" {
		order, err := asyncrt.ParseScanOrder(rf.order)
		if err != nil {
			return nil, err
		}
		for i := range scenarios {
			scenarios[i].Order = order
		}
	}
	return scenarios, nil
}

func runBenchmarks(cmd *cobra.Command, _ []string) (err error) {
	timer := observ.NewTimer()

	var cfg *config.Config
	if err := timer.Track("config", func() error {
		var loadErr error
		cfg, loadErr = loadConfig(cmd)
		return loadErr
	}); err != nil {
		return err
	}
	rf, err := applyRunFlags(cmd, cfg)
	if err != nil {
		return err
	}
	scenarios, err := selectScenarios(cfg, rf)
	if err != nil {
		return err
	}

	monitor := bench.NewMonitor()
	tr, err := setupTracing(cmd, monitor.String)
	if err != nil {
		return err
	}
	defer tr.close()
	defer func() {
		if err != nil {
			tr.dumpRing()
		}
	}()

	session, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := session.Stop(); stopErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profiling: %v\n", stopErr)
		}
	}()

	ctx := cmd.Context()
	runSpan := trace.Begin(tr.tracer, trace.ScopeRun, "run", 0)
	ctx = trace.WithSpan(ctx, runSpan)

	opts := cfg.Run.Options()
	opts.Monitor = monitor
	title := fmt.Sprintf("coselect: %d scenarios x %d iterations (%s clock)", len(scenarios), cfg.Run.Iterations, cfg.Run.Clock)
	var reports []bench.Report
	runPhase := timer.Begin("run")
	if shouldUseTUI(rf.ui, rf.quiet) {
		reports, err = runWithUI(ctx, title, scenarios, opts)
	} else {
		reports, err = bench.RunAll(ctx, scenarios, opts)
	}
	timer.End(runPhase, fmt.Sprintf("%d scenarios", len(scenarios)))
	if err != nil {
		runSpan.Fail(err)
		return fmt.Errorf("benchmark failed: %w", err)
	}
	runSpan.End("")
	for _, r := range reports {
		timer.Record(r.Scenario, r.Elapsed, fmt.Sprintf("%d iterations", r.Iterations))
	}

	var deltas []bench.Delta
	if cfg.Run.Baseline != "" {
		if err := timer.Track("baseline", func() error {
			base, found, loadErr := bench.LoadBaseline(cfg.Run.Baseline)
			if loadErr != nil {
				return loadErr
			}
			if found {
				deltas = bench.Compare(base, cfg.Run.Clock.String(), reports)
			}
			if rf.saveBaseline {
				return bench.SaveBaseline(cfg.Run.Baseline, bench.NewBaseline(cfg.Run.Clock.String(), reports))
			}
			return nil
		}); err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
	}

	rows := buildRows(reports, deltas)
	out := cmd.OutOrStdout()
	if rf.format == "json" {
		if err := renderReportJSON(out, rows); err != nil {
			return err
		}
	} else if !rf.quiet {
		renderReportPretty(out, rows)
	}
	if rf.timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return nil
}
