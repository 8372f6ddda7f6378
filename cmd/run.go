package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/termglyph/termglyph/internal/aggregate"
	"github.com/termglyph/termglyph/internal/config"
	"github.com/termglyph/termglyph/internal/detect"
	"github.com/termglyph/termglyph/internal/display"
	"github.com/termglyph/termglyph/internal/launch"
	"github.com/termglyph/termglyph/internal/orchestrator"
	"github.com/termglyph/termglyph/internal/output"
	"github.com/termglyph/termglyph/internal/profile"
	"github.com/termglyph/termglyph/internal/report"
	"github.com/termglyph/termglyph/internal/supervisor"
)

var (
	// Run command flags
	runMethod       string
	runResultsDir   string
	runWorkers      int
	runTimeout      time.Duration
	runProbe        string
	runRankPolicy   string
	runProfilesFile string
)

var errNoTerminals = errors.New("no terminals available to test")

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [terminal,terminal,...]",
	Short: "Run the Unicode probe across terminal emulators",
	Long: `Launch each selected terminal emulator, run the Unicode capability
probe inside it, collect the per-terminal YAML reports, and print the
ranked comparison. Without an argument every detected terminal is
tested.

Example:
  termglyph run xterm,tmux,screen
  termglyph run --method docker --workers 4
  termglyph run kitty --timeout 3m --rank-policy available`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMethod, "method", config.DefaultMethod, "Launch method (auto, native, scripted, docker)")
	runCmd.Flags().StringVar(&runResultsDir, "results-dir", config.DefaultResultsDir, "Directory receiving reports and artifacts")
	runCmd.Flags().IntVar(&runWorkers, "workers", config.DefaultWorkers, "Concurrent terminal runs")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", config.DefaultRunTimeout, "Per-terminal run timeout")
	runCmd.Flags().StringVar(&runProbe, "probe", config.DefaultProbeBinary, "Probe binary executed inside each terminal")
	runCmd.Flags().StringVar(&runRankPolicy, "rank-policy", config.DefaultRankPolicy, "Ranking policy when exercised categories differ (intersect, available)")
	runCmd.Flags().StringVar(&runProfilesFile, "profiles-file", "", "YAML overlay extending the built-in terminal profiles")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger(rootVerbose)

	var names []string
	if len(args) == 1 {
		names = splitTerminalList(args[0])
	}

	return executeBatch(log, cfg, names)
}

// loadRunConfig loads the environment configuration and lets explicitly
// set flags override it.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	flags := cmd.Flags()

	if flags.Changed("method") {
		cfg.Method = runMethod
	}

	if flags.Changed("results-dir") {
		cfg.ResultsDir = runResultsDir
	}

	if flags.Changed("workers") {
		cfg.Workers = runWorkers
	}

	if flags.Changed("timeout") {
		cfg.RunTimeout = runTimeout
	}

	if flags.Changed("probe") {
		cfg.ProbeBinary = runProbe
	}

	if flags.Changed("rank-policy") {
		cfg.RankPolicy = runRankPolicy
	}

	if flags.Changed("profiles-file") {
		cfg.ProfilesFile = runProfilesFile
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("invalid workers: %d", cfg.Workers)
	}

	return cfg, nil
}

// executeBatch wires the full pipeline and runs the selected terminals.
// An empty names slice means every detected terminal.
func executeBatch(log *logrus.Logger, cfg *config.Config, names []string) error {
	policy, err := aggregate.ParsePolicy(cfg.RankPolicy)
	if err != nil {
		return err
	}

	method, err := launch.ResolveMethod(cfg.Method, cfg.XvfbPath, cfg.XvfbRunPath)
	if err != nil {
		return err
	}

	registry, err := profile.NewLoader(log).Load(cfg.ProfilesFile)
	if err != nil {
		return err
	}

	detector := detect.NewDetector(log, cfg.DetectTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandler(log, cancel)

	profiles, err := selectProfiles(ctx, log, registry, detector, names)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.ResultsDir, 0o755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}

	launcher := launch.NewLauncher(log, launch.Config{
		ProbeBinary:    cfg.ProbeBinary,
		Method:         method,
		XvfbRunPath:    cfg.XvfbRunPath,
		ScreenGeometry: config.ScreenGeometry,
		DockerImage:    cfg.DockerImage,
	})

	allocator := display.NewAllocator(log, display.Config{
		Min:         cfg.DisplayMin,
		Max:         cfg.DisplayMax,
		LockDir:     cfg.LockDir,
		ServerPath:  cfg.XvfbPath,
		ServerArgs:  []string{display.DisplayPlaceholder, "-screen", "0", config.ScreenGeometry},
		SettleDelay: cfg.SettleDelay,
	})

	sup := supervisor.NewSupervisor(supervisor.Config{
		Logger:       log,
		Launcher:     launcher,
		Allocator:    allocator,
		Detector:     detector,
		Collector:    report.NewCollector(log),
		ResultsDir:   cfg.ResultsDir,
		RunTimeout:   cfg.RunTimeout,
		PollInterval: cfg.PollInterval,
	})

	orch := orchestrator.NewOrchestrator(orchestrator.Config{
		Logger:     log,
		Supervisor: sup,
		Policy:     policy,
		Workers:    cfg.Workers,
	})

	started := time.Now()
	outcome := orch.Run(ctx, profiles)

	printOutcome(log, outcome, time.Since(started))

	if err := writeArtifacts(log, cfg.ResultsDir, outcome); err != nil {
		return err
	}

	if len(outcome.Failures) > 0 {
		return fmt.Errorf("%d of %d terminal runs failed", len(outcome.Failures), len(outcome.Results))
	}

	return nil
}

// setupSignalHandler cancels the batch on the first interrupt so every
// supervisor can release its display and terminal session before exit.
func setupSignalHandler(log logrus.FieldLogger, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Warn("received interrupt, canceling remaining runs")
		cancel()
	}()
}

// selectProfiles resolves the requested terminal names, or detects every
// available profile when none were named.
func selectProfiles(
	ctx context.Context,
	log *logrus.Logger,
	registry *profile.Registry,
	detector detect.Detector,
	names []string,
) ([]*profile.TerminalProfile, error) {
	if len(names) > 0 {
		return registry.Select(names)
	}

	available, missing := detector.Detect(ctx, registry.All())

	if len(missing) > 0 {
		skipped := make([]string, 0, len(missing))
		for _, p := range missing {
			skipped = append(skipped, p.Name)
		}

		log.WithField("terminals", strings.Join(skipped, ",")).Info("skipping unavailable terminals")
	}

	if len(available) == 0 {
		return nil, errNoTerminals
	}

	return available, nil
}

func splitTerminalList(arg string) []string {
	parts := strings.Split(arg, ",")
	names := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}

	return names
}

func printOutcome(log *logrus.Logger, outcome *orchestrator.Outcome, elapsed time.Duration) {
	renderer := output.NewTableRenderer(log)

	fmt.Println(output.FormatComparison(renderer, outcome.Aggregate))
	fmt.Println(output.FormatGrades(renderer, outcome.Aggregate))

	if failures := output.FormatFailures(renderer, outcome.Failures); failures != "" {
		fmt.Println(failures)
	}

	fmt.Println(output.FormatBatchSummary(renderer, outcome, elapsed))
}

func writeArtifacts(log *logrus.Logger, dir string, outcome *orchestrator.Outcome) error {
	writer := output.NewWriter(log)
	now := time.Now()

	if _, err := writer.WriteJSON(dir, outcome.Aggregate, outcome.Failures, now); err != nil {
		return err
	}

	if _, err := writer.WriteMarkdown(dir, outcome.Aggregate, outcome.Failures, now); err != nil {
		return err
	}

	return nil
}
