package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/cicd"
	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/gitutil"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
	"github.com/wasm-slim/wasm-slim/pkg/pipeline"
	"github.com/wasm-slim/wasm-slim/pkg/workflow"
)

var buildCmdLog = logger.New("cli:build")

type buildOptions struct {
	dryRun    bool
	check     bool
	jsonOut   bool
	targetDir string
	watch     bool
	telemetry bool
	verbose   bool
}

// NewBuildCommand creates the build command: optimize manifests, run the
// build pipeline, and report sizes.
func NewBuildCommand() *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Optimize and build the WASM bundle",
		Long: `Build the crate in the current directory with size optimizations.

The build edits every Cargo.toml release profile for size (with backups),
runs cargo, wasm-bindgen, and the optional wasm-opt and wasm-snip passes,
and reports the before/after size. A failed build restores the original
manifests.

Examples:
  wasm-slim build                  # Optimize and build
  wasm-slim build --dry-run        # Show what would change, build as-is
  wasm-slim build --check          # Fail if the size budget is exceeded
  wasm-slim build --check --json   # CI mode: budget report on stdout
  wasm-slim build --watch          # Rebuild on source changes
  wasm-slim build -t /tmp/target   # Use a separate cargo target dir`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.watch {
				return runWatch(ctx, root, opts)
			}
			return runBuild(ctx, root, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "d", false, "Preview manifest changes without applying them")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Enforce the configured size budget")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Write a machine-readable report to stdout")
	cmd.Flags().StringVarP(&opts.targetDir, "target-dir", "t", "", "Override cargo's target directory")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Watch sources and rebuild on change")
	cmd.Flags().BoolVar(&opts.telemetry, "telemetry", false, "Print build metrics as they are recorded")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show detailed progress")

	return cmd
}

// runBuild executes one complete build and renders the outcome. Watch mode
// calls this once per trigger.
func runBuild(ctx context.Context, root string, opts *buildOptions) error {
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	console.LogVerbose(opts.verbose, fmt.Sprintf("Using template %q", effectiveTemplateName(cfg)))
	if opts.verbose {
		renderPipelinePlan(os.Stderr, cfg)
	}

	fmt.Fprintln(os.Stderr, console.FormatProgressMessage("wasm-slim Build Pipeline"))

	wf := workflow.NewBuildWorkflow(root, cfg)
	if opts.telemetry {
		wf.SetCollector(pipeline.NewStdoutCollector(telemetryWriter(opts)))
	}

	result, err := wf.Execute(ctx, workflow.ExecuteOptions{
		DryRun:      opts.dryRun,
		CheckBudget: opts.check,
		TargetDir:   opts.targetDir,
	})
	if err != nil {
		emitFailureReport(cfg, opts, err)
		return err
	}

	return renderBuildSuccess(ctx, root, cfg, opts, result)
}

// telemetryWriter keeps [METRIC] lines off stdout when a JSON report is
// requested there.
func telemetryWriter(opts *buildOptions) io.Writer {
	if opts.jsonOut {
		return os.Stderr
	}
	return os.Stdout
}

func effectiveTemplateName(cfg *config.ConfigFile) string {
	if cfg.Template != "" {
		return cfg.Template
	}
	return config.DefaultTemplateName
}

// renderPipelinePlan sketches the stages this run will attempt, in order.
// Optional stages still depend on their tool being installed.
func renderPipelinePlan(w io.Writer, cfg *config.ConfigFile) {
	tmpl, err := config.Resolve(cfg)
	if err != nil {
		return
	}

	children := []console.TreeNode{
		{Value: "optimize Cargo.toml profiles"},
		{Value: "cargo build"},
		{Value: "wasm-bindgen"},
	}
	if len(tmpl.WasmOpt.Flags) > 0 {
		children = append(children, console.TreeNode{Value: fmt.Sprintf("wasm-opt (%d flags)", len(tmpl.WasmOpt.Flags))})
	}
	children = append(children, console.TreeNode{Value: "wasm-snip (if installed)"})

	fmt.Fprint(w, console.RenderTree(console.TreeNode{Value: "Build pipeline", Children: children}))
}

// emitFailureReport writes the JSON budget report for a build that failed
// its budget check, so --check --json callers get the report and the
// non-zero exit.
func emitFailureReport(cfg *config.ConfigFile, opts *buildOptions, err error) {
	var budgetErr *workflow.BudgetExceededError
	if !opts.jsonOut || !errors.As(err, &budgetErr) || cfg.SizeBudget == nil {
		return
	}

	checker := cicd.NewBudgetChecker(*cfg.SizeBudget)
	report := cicd.NewJSONOutput(budgetErr.ActualBytes).WithBudget(checker.Check(budgetErr.ActualBytes))
	data, jsonErr := report.JSON()
	if jsonErr != nil {
		buildCmdLog.Printf("Could not serialize failure report: %v", jsonErr)
		return
	}
	fmt.Println(string(data))
}

func renderBuildSuccess(ctx context.Context, root string, cfg *config.ConfigFile, opts *buildOptions, result *workflow.BuildResult) error {
	renderChanges(os.Stderr, result)

	metrics := result.Metrics
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage("Build completed successfully!"))
	fmt.Fprintf(os.Stderr, "   Final size: %s\n", pipeline.FormatBytes(metrics.AfterBytes))
	if saved := metrics.ReductionBytes(); saved > 0 {
		fmt.Fprintf(os.Stderr, "   Reduction: %s (%.1f%%)\n", pipeline.FormatBytes(uint64(saved)), metrics.ReductionPercent())
	}

	var budget *cicd.BudgetResult
	if opts.check {
		budget = renderBudgetStatus(os.Stderr, cfg, metrics.AfterBytes)
	}

	store := cicd.NewHistoryStore(infra.NewOSFileSystem())
	regression := renderRegression(os.Stderr, store, root, metrics.AfterBytes)

	if !result.DryRun {
		recordHistory(ctx, store, root, metrics)
	}

	if opts.jsonOut {
		return emitSuccessReport(metrics.AfterBytes, budget, regression)
	}
	return nil
}

func renderChanges(w io.Writer, result *workflow.BuildResult) {
	if result.DryRun {
		if len(result.DryRunFiles) == 0 {
			return
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, console.FormatInfoMessage(fmt.Sprintf("[DRY RUN] Would optimize %d file(s):", len(result.DryRunFiles))))
		for _, file := range result.DryRunFiles {
			fmt.Fprintln(w, "   → Would optimize: "+console.ToRelativePath(file))
		}
		return
	}

	if len(result.Changes) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, console.FormatSuccessMessage(fmt.Sprintf("Applied %d optimization(s):", len(result.Changes))))
	for _, change := range result.Changes {
		fmt.Fprintln(w, console.FormatListItem(change))
	}
}

// renderBudgetStatus classifies the final size against every configured
// threshold. The workflow already failed the run when the hard limit was
// exceeded, so anything rendered here passed.
func renderBudgetStatus(w io.Writer, cfg *config.ConfigFile, sizeBytes uint64) *cicd.BudgetResult {
	if cfg.SizeBudget == nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, console.FormatInfoMessage("No size budget configured"))
		fmt.Fprintln(w, "   Add a [size-budget] section to .wasm-slim.toml to enforce limits")
		return nil
	}

	result := cicd.NewBudgetChecker(*cfg.SizeBudget).Check(sizeBytes)
	result.Render(w)
	return &result
}

func renderRegression(w io.Writer, store *cicd.HistoryStore, root string, sizeBytes uint64) *cicd.RegressionResult {
	hist, err := store.Load(root)
	if err != nil {
		buildCmdLog.Printf("Could not load build history: %v", err)
		return nil
	}

	regression := hist.CheckRegression(sizeBytes)
	if regression != nil {
		fmt.Fprintln(w)
		regression.Render(w)
	}
	return regression
}

// recordHistory appends this build to .wasm-slim/history.jsonl. Git metadata
// and the artifact digest are best-effort; a build outside a repo records
// sizes only.
func recordHistory(ctx context.Context, store *cicd.HistoryStore, root string, metrics pipeline.SizeMetrics) {
	rec := cicd.NewBuildRecord(metrics.BeforeBytes, metrics.AfterBytes)

	runner := infra.NewOSRunner()
	rec.Commit = gitutil.HeadSHA(ctx, runner, root)
	rec.Branch = gitutil.CurrentBranch(ctx, runner, root)

	if metrics.ArtifactPath != "" {
		if data, err := infra.NewOSFileSystem().ReadFile(metrics.ArtifactPath); err == nil {
			rec.Digest = cicd.ArtifactDigest(data)
		} else {
			buildCmdLog.Printf("Could not digest %s: %v", metrics.ArtifactPath, err)
		}
	}

	if _, err := store.Record(root, rec); err != nil {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage(fmt.Sprintf("Failed to record build history: %v", err)))
	}
}

func emitSuccessReport(sizeBytes uint64, budget *cicd.BudgetResult, regression *cicd.RegressionResult) error {
	report := cicd.NewJSONOutput(sizeBytes)
	if budget != nil {
		report = report.WithBudget(*budget)
	}
	if regression != nil {
		report = report.WithRegression(*regression)
	}

	data, err := report.JSON()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
