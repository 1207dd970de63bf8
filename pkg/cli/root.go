package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var rootLog = logger.New("cli:root")

// NewRootCommand assembles the wasm-slim command tree. version is stamped
// by the build and shown by the version subcommand and --version.
func NewRootCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wasm-slim",
		Short:   "WASM bundle size optimizer",
		Version: version,
		Long: `wasm-slim optimizes the size of Rust WebAssembly bundles.

It rewrites the crate's release profile for size, runs the build pipeline
(cargo, wasm-bindgen, wasm-opt, wasm-snip), and enforces the configured
size budget. Configuration lives in .wasm-slim.toml in the project root.

Examples:
  wasm-slim init                   # Create .wasm-slim.toml interactively
  wasm-slim build                  # Optimize and build the current crate
  wasm-slim build --dry-run        # Preview what a build would change
  wasm-slim build --check --json   # CI mode: enforce budget, emit JSON
  wasm-slim tools                  # Check the external tool chain
  wasm-slim ci init                # Generate the GitHub Actions size check`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noEmoji, _ := cmd.Flags().GetBool("no-emoji"); noEmoji {
				rootLog.Print("Disabling emoji output")
				os.Setenv("NO_EMOJI", "1")
			}
		},
	}

	cmd.PersistentFlags().Bool("no-emoji", false, "Disable emoji in output")

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	cmd.AddCommand(NewBuildCommand())
	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewConfigCommand())
	cmd.AddCommand(NewToolsCommand())
	cmd.AddCommand(NewCICommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewMCPCommand(version))
	cmd.AddCommand(NewVersionCommand(version))
	cmd.AddCommand(NewCompletionCommand())

	return cmd
}

// projectRoot is the directory every command operates on. Commands run from
// wherever the user invokes them; there is no repo-root discovery.
func projectRoot() (string, error) {
	root, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return root, nil
}
