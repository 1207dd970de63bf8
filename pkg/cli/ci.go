package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cli/go-gh/v2/pkg/repository"
	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/cicd"
	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var ciLog = logger.New("cli:ci")

// IsRunningInCI checks if we're running in a CI environment
func IsRunningInCI() bool {
	// Common CI environment variables
	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
	}

	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			ciLog.Printf("CI environment detected via %s", v)
			return true
		}
	}
	ciLog.Print("No CI environment detected")
	return false
}

// NewCICommand creates the ci command group.
func NewCICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci",
		Short: "Manage the GitHub Actions size check",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCIInitCommand())

	return cmd
}

func newCIInitCommand() *cobra.Command {
	var check bool
	var branch string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate the size budget workflow",
		Long: `Write .github/workflows/wasm-size.yml, a GitHub Actions workflow
that builds the crate on every push and pull request and fails when the
bundle exceeds the [size-budget] maximum from .wasm-slim.toml.

With --check, compare the existing workflow against what would be
generated and exit non-zero when it is out of date. The generated
workflow runs this check itself so drift shows up in CI.

Examples:
  wasm-slim ci init
  wasm-slim ci init --branch release
  wasm-slim ci init --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			return runCIInit(root, branch, check)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Verify the workflow is current instead of writing it")
	cmd.Flags().StringVar(&branch, "branch", "main", "Push branch that triggers the check")

	return cmd
}

func runCIInit(root, branch string, check bool) error {
	opts := cicd.WorkflowOptions{RepoSlug: currentRepoSlug(), Branch: branch}

	want, err := cicd.GenerateWorkflow(opts)
	if err != nil {
		return err
	}
	if err := cicd.ValidateWorkflow(want); err != nil {
		return err
	}

	filesystem := infra.NewOSFileSystem()
	path := cicd.WorkflowPath(root)
	rel := console.ToRelativePath(path)

	if check {
		existing, err := filesystem.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return &WorkflowStaleError{Path: rel}
			}
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		upToDate, err := cicd.WorkflowUpToDate(existing, opts)
		if err != nil {
			return err
		}
		if !upToDate {
			return &WorkflowStaleError{Path: rel}
		}
		fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(rel+" is up to date"))
		return nil
	}

	if err := filesystem.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create workflow directory: %w", err)
	}
	if err := filesystem.WriteFile(path, want, 0644); err != nil {
		return fmt.Errorf("failed to write workflow: %w", err)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage("Created "+rel))
	fmt.Fprintln(os.Stderr, "   The job builds the crate and fails when the bundle exceeds the")
	fmt.Fprintln(os.Stderr, "   [size-budget] maximum from "+config.ConfigFileName+".")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "   Commit it with:")
	fmt.Fprintln(os.Stderr, "   "+console.FormatCommandMessage("git add "+rel))
	return nil
}

// currentRepoSlug resolves owner/name from the local checkout. The slug
// only decorates the workflow header, so failures are fine.
func currentRepoSlug() string {
	repo, err := repository.Current()
	if err != nil {
		ciLog.Printf("no GitHub repository detected: %v", err)
		return ""
	}
	return repo.Owner + "/" + repo.Name
}
