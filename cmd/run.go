package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"specrun/internal/color"
	"specrun/internal/config"
	"specrun/internal/engine"
	"specrun/internal/gherkin"
	"specrun/internal/kube"
	"specrun/internal/plugins"
	"specrun/internal/reporting"
	"specrun/internal/results"
	"specrun/internal/stepdef"
	"specrun/internal/steplib"
	"specrun/internal/tui"
	"specrun/pkg/logging"
)

var (
	runTags        string
	runName        string
	runConcurrency int
	runFailFast    bool
	runStepTimeout time.Duration
	runUndefinedOk bool
	runTimeout     time.Duration
	runFormat      string
	runQuiet       bool
	runVerbose     bool
	runReportDir   string
	runNoColor     bool
	runStepPaths   []string
	// Kubernetes World flags
	runKube        bool
	runKubeconfig  string
	runKubeContext string
	runKubePrefix  string
)

// maxConcurrency caps the --concurrency flag. Scenario workers share one
// process; hundreds of them only hide scheduling problems.
const maxConcurrency = 64

// tuiEventBuffer sizes the channel feeding run events to the terminal UI.
const tuiEventBuffer = 512

// completeFormatFlag provides shell completion for the format flag
func completeFormatFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"console", "json", "tui"}, cobra.ShellCompDirectiveDefault
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [path ...]",
	Short: "Execute feature files and report scenario results",
	Long: `The run command executes Gherkin feature files against the registered
step definitions and reports every scenario outcome.

Paths name .feature files or directories, searched recursively. Without
arguments the configured default paths are used (normally ./features).

Scenarios execute concurrently up to the --concurrency limit, each with
its own isolated World state, and results are printed in source order
regardless of completion order. Step definitions come from the built-in
library, from --steps plugin sources, and (with --kube) from the
Kubernetes step library.

Example usage:
  specrun run                                    # Run everything under ./features
  specrun run features/checkout.feature          # Run a single file
  specrun run --tags "@smoke and not @wip"       # Scenarios by tag expression
  specrun run --name "refund"                    # Scenarios by name pattern
  specrun run --concurrency 8 --fail-fast        # Wider pool, stop on first failure
  specrun run --step-timeout 30s                 # Bound each step invocation
  specrun run --format tui                       # Live terminal UI
  specrun run --format json --report-dir report  # Machine-readable output for CI
  specrun run --steps ./glue --kube              # Plugin steps plus Kubernetes Worlds

The exit code is 0 when every selected scenario passes, 1 when any
scenario fails (or the run is interrupted), and 2 for configuration or
parse errors.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Scenario selection
	runCmd.Flags().StringVar(&runTags, "tags", "", "Tag expression selecting scenarios, e.g. '@smoke and not @wip'")
	runCmd.Flags().StringVar(&runName, "name", "", "Regular expression selecting scenarios by name")

	// Execution control
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", engine.DefaultConcurrency, "Maximum scenarios in flight at once (1-64)")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "Stop scheduling new scenarios after the first failure")
	runCmd.Flags().DurationVar(&runStepTimeout, "step-timeout", 0, "Per-step timeout, e.g. 30s (0 disables)")
	runCmd.Flags().BoolVar(&runUndefinedOk, "undefined-ok", false, "Report undefined steps without failing the run")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall run timeout, e.g. 10m (0 disables)")

	// Output and reporting
	runCmd.Flags().StringVar(&runFormat, "format", "", "Output format: console, json or tui")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Print failures and the final summary only")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Print every step of every scenario")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "", "Directory receiving a timestamped JSON report after the run")
	runCmd.Flags().BoolVar(&runNoColor, "no-color", false, "Disable ANSI colors")

	// Step definition sources
	runCmd.Flags().StringSliceVar(&runStepPaths, "steps", nil, "Step definition sources (.go files or directories), repeatable")

	// Kubernetes Worlds
	runCmd.Flags().BoolVar(&runKube, "kube", false, "Give each scenario an isolated Kubernetes namespace as its World")
	runCmd.Flags().StringVar(&runKubeconfig, "kubeconfig", "", "Path to the kubeconfig file (default: standard loading rules)")
	runCmd.Flags().StringVar(&runKubeContext, "kube-context", "", "Kubeconfig context to use (default: current context)")
	runCmd.Flags().StringVar(&runKubePrefix, "kube-prefix", "", "Prefix for the per-scenario namespaces")

	// Shell completion for run flags
	_ = runCmd.RegisterFlagCompletionFunc("format", completeFormatFlag)

	runCmd.MarkFlagsMutuallyExclusive("quiet", "verbose")

	// Validate flag values before running
	runCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if runConcurrency < 1 || runConcurrency > maxConcurrency {
			return fmt.Errorf("concurrency must be between 1 and %d, got %d", maxConcurrency, runConcurrency)
		}
		if runFormat != "" && runFormat != "console" && runFormat != "json" && runFormat != "tui" {
			return fmt.Errorf("invalid format '%s', must be 'console', 'json' or 'tui'", runFormat)
		}
		return nil
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)

	tuiMode := cfg.Output.Format == "tui"
	initRunLogging(logging.ParseLevel(cfg.LogLevel), tuiMode)
	if cfg.Output.NoColor {
		color.Disable()
	} else {
		color.Initialize(color.DetectDarkMode())
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	factory, err := buildWorldFactory(cfg)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Features
	}
	features, err := gherkin.LoadFeatures(paths...)
	if err != nil {
		return err
	}
	if len(features) == 0 {
		return fmt.Errorf("no feature files found under %s", strings.Join(paths, ", "))
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupts gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		if !tuiMode {
			fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, stopping the run...")
		}
		cancel()
	}()

	// Create timeout context for the whole run
	runCtx := ctx
	if runTimeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(ctx, runTimeout)
		defer timeoutCancel()
	}

	bus := reporting.NewEventBus()
	defer bus.Close()

	runner, err := engine.NewRunner(registry, factory, bus, cfg.Run)
	if err != nil {
		return err
	}

	var summary *results.RunSummary
	var runErr error
	switch cfg.Output.Format {
	case "tui":
		summary, runErr = runWithTUI(runCtx, cancel, runner, bus, features)
	case "json":
		sub := reporting.NewJSONReporter(os.Stdout).Attach(bus)
		defer bus.Unsubscribe(sub)
		summary, runErr = runner.Run(runCtx, features)
	default:
		reporter := reporting.NewConsoleReporter(os.Stdout, verbosityFromConfig(cfg.Output.Verbosity))
		sub := reporter.Attach(bus)
		defer bus.Unsubscribe(sub)
		summary, runErr = runner.Run(runCtx, features)
	}
	if summary == nil {
		return runErr
	}

	if cfg.Output.ReportDir != "" {
		path, err := reporting.WriteReportFile(cfg.Output.ReportDir, summary)
		if err != nil {
			logging.Error("Reporter", err, "Failed to save the JSON report")
		} else if !tuiMode && cfg.Output.Format != "json" {
			fmt.Fprintf(os.Stderr, "Report saved to %s\n", path)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}

	// Set exit code based on results. An interrupted or timed-out run never
	// exits zero even when every scenario that ran passed.
	if runErr != nil || summary.Failing() {
		os.Exit(exitFailed)
	}
	return nil
}

// runWithTUI drives the run on a background goroutine while the terminal UI
// owns the foreground. The UI stays up after the run finishes so the final
// verdict remains readable; quitting it mid-run cancels the run context.
func runWithTUI(ctx context.Context, cancel context.CancelFunc, runner *engine.Runner, bus reporting.EventBus, features []*gherkin.Feature) (*results.RunSummary, error) {
	reporter := reporting.NewTUIReporter(tuiEventBuffer)
	sub := reporter.Attach(bus)

	var summary *results.RunSummary
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = runner.Run(ctx, features)
		bus.Unsubscribe(sub)
		reporter.Close()
	}()

	program := tui.NewProgram(reporter.Messages(), cancel)
	_, uiErr := program.Run()
	if uiErr != nil {
		cancel()
	}

	// The UI stopped consuming. Keep the channel moving so result-bearing
	// events cannot block the engine while it winds down; the drain ends
	// when the engine goroutine closes the reporter.
	go func() {
		for range reporter.Messages() {
		}
	}()
	<-done

	if uiErr != nil {
		return summary, fmt.Errorf("terminal UI failed: %w", uiErr)
	}
	return summary, runErr
}

// applyRunFlags overlays flags the user actually set onto the file-derived
// configuration, so flags always win over config files.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("tags") {
		cfg.Run.Tags = runTags
	}
	if flags.Changed("name") {
		cfg.Run.NameFilter = runName
	}
	if flags.Changed("concurrency") {
		cfg.Run.Concurrency = runConcurrency
	}
	if flags.Changed("fail-fast") {
		cfg.Run.FailFast = runFailFast
	}
	if flags.Changed("step-timeout") {
		cfg.Run.StepTimeout = runStepTimeout
	}
	if flags.Changed("undefined-ok") {
		cfg.Run.UndefinedStepsOk = runUndefinedOk
	}
	if flags.Changed("format") {
		cfg.Output.Format = runFormat
	}
	if flags.Changed("quiet") && runQuiet {
		cfg.Output.Verbosity = "quiet"
	}
	if flags.Changed("verbose") && runVerbose {
		cfg.Output.Verbosity = "verbose"
	}
	if flags.Changed("report-dir") {
		cfg.Output.ReportDir = runReportDir
	}
	if flags.Changed("no-color") {
		cfg.Output.NoColor = runNoColor
	}
	if flags.Changed("steps") {
		cfg.Plugins.Paths = append(cfg.Plugins.Paths, runStepPaths...)
	}
	if flags.Changed("kube") {
		cfg.Kube.Enabled = runKube
	}
	if flags.Changed("kubeconfig") {
		cfg.Kube.Kubeconfig = runKubeconfig
	}
	if flags.Changed("kube-context") {
		cfg.Kube.Context = runKubeContext
	}
	if flags.Changed("kube-prefix") {
		cfg.Kube.NamespacePrefix = runKubePrefix
	}
}

// buildRegistry assembles the step registry from the built-in library, the
// Kubernetes library when enabled, and any configured plugin sources.
func buildRegistry(cfg config.Config) (*stepdef.Registry, error) {
	builder := stepdef.NewBuilder()
	steplib.RegisterSteps(builder)
	if cfg.Kube.Enabled {
		kube.RegisterSteps(builder)
	}
	if err := plugins.RegisterPaths(builder, cfg.Plugins.Paths); err != nil {
		return nil, err
	}
	return builder.Build()
}

// buildWorldFactory returns the Kubernetes World factory when kube mode is
// enabled, nil otherwise (the engine then uses in-memory map Worlds).
func buildWorldFactory(cfg config.Config) (engine.WorldFactory, error) {
	if !cfg.Kube.Enabled {
		return nil, nil
	}
	client, err := kube.NewClientset(cfg.Kube.Kubeconfig, cfg.Kube.Context)
	if err != nil {
		return nil, fmt.Errorf("connecting to the cluster: %w", err)
	}
	return kube.NewWorldFactory(client, cfg.Kube.NamespacePrefix), nil
}

func verbosityFromConfig(s string) reporting.Verbosity {
	switch s {
	case "quiet":
		return reporting.VerbosityQuiet
	case "verbose":
		return reporting.VerbosityVerbose
	default:
		return reporting.VerbosityNormal
	}
}

// initRunLogging sends logs to stderr in CLI mode. The inline terminal UI
// owns the terminal, so TUI runs log to a file instead.
func initRunLogging(level logging.LogLevel, tuiMode bool) {
	if !tuiMode {
		logging.InitForCLI(level, os.Stderr)
		return
	}
	logPath := filepath.Join(os.TempDir(), "specrun.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logging.InitForCLI(level, io.Discard)
		return
	}
	logging.InitForCLI(level, f)
}
