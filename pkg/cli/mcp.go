package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/cicd"
	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
	"github.com/wasm-slim/wasm-slim/pkg/pipeline"
	"github.com/wasm-slim/wasm-slim/pkg/workflow"
)

var mcpCommandLog = logger.New("cli:mcp")

// NewMCPCommand creates the mcp command group.
func NewMCPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose the optimizer over the Model Context Protocol",
		Long: `Model Context Protocol (MCP) integration.

MCP lets coding agents call wasm-slim directly: an agent can trigger
optimized builds, check the toolchain, and evaluate sizes against the
budget without parsing CLI output.

Examples:
  wasm-slim mcp serve   # Serve build tools on stdio`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newMCPServeCommand(version))

	return cmd
}

func newMCPServeCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve build tools on stdio",
		Long: `Run an MCP server on stdin/stdout for the project in the current
directory. The server exposes three tools:

  • build        - Run the optimize, compile, and report pipeline
  • status       - Probe the external build tools
  • budget_check - Classify a size against the configured budget

Examples:
  wasm-slim mcp serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}

			server, err := newMCPServer(version, root)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mcpCommandLog.Printf("serving MCP on stdio for %s", root)
			return server.Run(ctx, &mcp.StdioTransport{})
		},
	}
}

type mcpBuildInput struct {
	DryRun    bool   `json:"dry_run,omitempty" jsonschema:"preview configuration changes without modifying any file"`
	Check     bool   `json:"check,omitempty" jsonschema:"fail when the artifact exceeds the configured size budget"`
	TargetDir string `json:"target_dir,omitempty" jsonschema:"override cargo's target directory"`
}

type mcpBuildResult struct {
	Success          bool     `json:"success"`
	DryRun           bool     `json:"dry_run"`
	Changes          []string `json:"changes,omitempty"`
	DryRunFiles      []string `json:"dry_run_files,omitempty"`
	BeforeBytes      uint64   `json:"before_bytes"`
	AfterBytes       uint64   `json:"after_bytes"`
	ReductionBytes   int64    `json:"reduction_bytes"`
	ReductionPercent float64  `json:"reduction_percent"`
	FinalSize        string   `json:"final_size"`
	BudgetPassed     *bool    `json:"budget_passed,omitempty"`
}

type mcpStatusInput struct{}

type mcpStatusResult struct {
	Ready bool              `json:"ready"`
	Tools []toolReportEntry `json:"tools"`
}

type mcpBudgetInput struct {
	SizeBytes uint64 `json:"size_bytes" jsonschema:"artifact size in bytes to classify against the budget"`
}

type mcpBudgetResult struct {
	Status          string  `json:"status"`
	Passed          bool    `json:"passed"`
	Message         string  `json:"message"`
	SizeKB          float64 `json:"size_kb"`
	TargetKB        *uint64 `json:"target_kb,omitempty"`
	WarnThresholdKB *uint64 `json:"warn_threshold_kb,omitempty"`
	MaxSizeKB       *uint64 `json:"max_size_kb,omitempty"`
}

func newMCPServer(version, root string) (*mcp.Server, error) {
	server := mcp.NewServer(&mcp.Implementation{Name: "wasm-slim", Version: version}, nil)

	buildSchema, err := config.GenerateSchema[mcpBuildResult]()
	if err != nil {
		return nil, err
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:         "build",
		Description:  "Optimize the crate configuration, build the WASM bundle, and report sizes",
		OutputSchema: buildSchema,
	}, mcpBuildHandler(root))

	statusSchema, err := config.GenerateSchema[mcpStatusResult]()
	if err != nil {
		return nil, err
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:         "status",
		Description:  "Probe cargo, wasm-bindgen, wasm-opt, and wasm-snip and report versions",
		OutputSchema: statusSchema,
	}, mcpStatusHandler())

	budgetSchema, err := config.GenerateSchema[mcpBudgetResult]()
	if err != nil {
		return nil, err
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:         "budget_check",
		Description:  "Classify an artifact size against the project's size budget",
		OutputSchema: budgetSchema,
	}, mcpBudgetHandler(root))

	return server, nil
}

func mcpBuildHandler(root string) func(context.Context, *mcp.CallToolRequest, mcpBuildInput) (*mcp.CallToolResult, mcpBuildResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, in mcpBuildInput) (*mcp.CallToolResult, mcpBuildResult, error) {
		cfg, err := config.Load(root)
		if err != nil {
			return mcpToolFailure(err), mcpBuildResult{}, nil
		}

		wf := workflow.NewBuildWorkflow(root, cfg)
		result, err := wf.Execute(ctx, workflow.ExecuteOptions{
			DryRun:      in.DryRun,
			CheckBudget: in.Check,
			TargetDir:   in.TargetDir,
		})
		if err != nil {
			return mcpToolFailure(err), mcpBuildResult{}, nil
		}

		return nil, mcpBuildResult{
			Success:          true,
			DryRun:           result.DryRun,
			Changes:          result.Changes,
			DryRunFiles:      result.DryRunFiles,
			BeforeBytes:      result.Metrics.BeforeBytes,
			AfterBytes:       result.Metrics.AfterBytes,
			ReductionBytes:   result.Metrics.ReductionBytes(),
			ReductionPercent: result.Metrics.ReductionPercent(),
			FinalSize:        pipeline.FormatBytes(result.Metrics.AfterBytes),
			BudgetPassed:     result.BudgetPassed,
		}, nil
	}
}

func mcpStatusHandler() func(context.Context, *mcp.CallToolRequest, mcpStatusInput) (*mcp.CallToolResult, mcpStatusResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, in mcpStatusInput) (*mcp.CallToolResult, mcpStatusResult, error) {
		chain := pipeline.NewToolChain(infra.NewOSRunner())
		statuses := chain.CheckAll(ctx)

		out := mcpStatusResult{Ready: true, Tools: make([]toolReportEntry, 0, len(statuses))}
		for _, status := range statuses {
			if status.Tool.Required && !status.Installed {
				out.Ready = false
			}
			out.Tools = append(out.Tools, toolReportEntry{
				Name:       status.Tool.Name,
				Binary:     status.Tool.Binary,
				Required:   status.Tool.Required,
				Installed:  status.Installed,
				Version:    status.Version,
				MinVersion: status.Tool.MinVersion,
				MeetsMin:   status.MeetsMin,
			})
		}
		return nil, out, nil
	}
}

func mcpBudgetHandler(root string) func(context.Context, *mcp.CallToolRequest, mcpBudgetInput) (*mcp.CallToolResult, mcpBudgetResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, in mcpBudgetInput) (*mcp.CallToolResult, mcpBudgetResult, error) {
		cfg, err := config.Load(root)
		if err != nil {
			return mcpToolFailure(err), mcpBudgetResult{}, nil
		}
		if cfg.SizeBudget == nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{
					Text: "no size budget configured; add a [size-budget] section to " + config.ConfigFileName,
				}},
			}, mcpBudgetResult{}, nil
		}

		result := cicd.NewBudgetChecker(*cfg.SizeBudget).Check(in.SizeBytes)
		return nil, mcpBudgetResult{
			Status:          string(result.Status),
			Passed:          result.Passed(),
			Message:         result.Message,
			SizeKB:          result.SizeKB,
			TargetKB:        result.TargetKB,
			WarnThresholdKB: result.WarnThresholdKB,
			MaxSizeKB:       result.MaxSizeKB,
		}, nil
	}
}

func mcpToolFailure(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
