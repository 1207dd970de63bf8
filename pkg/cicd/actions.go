package cicd

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rhysd/actionlint"

	"github.com/wasm-slim/wasm-slim/pkg/pipeline"
)

const (
	workflowFileName = "wasm-size.yml"
	defaultCIBranch  = "main"
)

// WorkflowPath returns the budget-check workflow location under projectRoot.
func WorkflowPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".github", "workflows", workflowFileName)
}

// WorkflowOptions customizes the generated GitHub Actions workflow.
type WorkflowOptions struct {
	// RepoSlug is "owner/name" when the project lives in a GitHub repository.
	// It only appears in the header comment.
	RepoSlug string
	// Branch is the push branch that triggers the check. Empty means main.
	Branch string
}

type workflowDoc struct {
	Name        string              `yaml:"name"`
	On          workflowTriggers    `yaml:"on"`
	Permissions workflowPermissions `yaml:"permissions"`
	Jobs        workflowJobs        `yaml:"jobs"`
}

type workflowTriggers struct {
	Push        pushTrigger `yaml:"push"`
	PullRequest struct{}    `yaml:"pull_request"`
}

type pushTrigger struct {
	Branches []string `yaml:"branches"`
}

type workflowPermissions struct {
	Contents string `yaml:"contents"`
}

type workflowJobs struct {
	SizeBudget workflowJob `yaml:"size-budget"`
}

type workflowJob struct {
	RunsOn string         `yaml:"runs-on"`
	Steps  []workflowStep `yaml:"steps"`
}

type workflowStep struct {
	Name string         `yaml:"name,omitempty"`
	Uses string         `yaml:"uses,omitempty"`
	With *toolchainWith `yaml:"with,omitempty"`
	Run  string         `yaml:"run,omitempty"`
}

type toolchainWith struct {
	Targets string `yaml:"targets"`
}

// GenerateWorkflow renders the GitHub Actions workflow that builds the crate
// and enforces the size budget on every push and pull request. Output is
// byte-stable for identical options so freshness checks can compare files
// directly.
func GenerateWorkflow(opts WorkflowOptions) ([]byte, error) {
	branch := opts.Branch
	if branch == "" {
		branch = defaultCIBranch
	}

	doc := workflowDoc{
		Name: "WASM Size Budget",
		On: workflowTriggers{
			Push: pushTrigger{Branches: []string{branch}},
		},
		Permissions: workflowPermissions{Contents: "read"},
		Jobs: workflowJobs{
			SizeBudget: workflowJob{
				RunsOn: "ubuntu-latest",
				Steps: []workflowStep{
					{Uses: "actions/checkout@v4"},
					{
						Name: "Install Rust with wasm target",
						Uses: "dtolnay/rust-toolchain@stable",
						With: &toolchainWith{Targets: string(pipeline.TargetWasm32UnknownUnknown)},
					},
					{
						Name: "Install wasm tooling",
						Run:  "cargo install wasm-bindgen-cli wasm-slim",
					},
					{
						Name: "Build and enforce size budget",
						Run:  "wasm-slim build --check --json",
					},
				},
			},
		},
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workflow: %w", err)
	}

	var buf bytes.Buffer
	if opts.RepoSlug != "" {
		fmt.Fprintf(&buf, "# Size budget check for %s.\n", opts.RepoSlug)
	} else {
		buf.WriteString("# Size budget check.\n")
	}
	buf.WriteString("# Generated by wasm-slim ci init. Edit .wasm-slim.toml instead of this\n")
	buf.WriteString("# file, then rerun wasm-slim ci init.\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// ValidateWorkflow runs actionlint over workflow content and returns an error
// describing every finding. The generator is expected to produce clean
// output, so any finding is a bug worth surfacing loudly.
func ValidateWorkflow(data []byte) error {
	linter, err := actionlint.NewLinter(io.Discard, &actionlint.LinterOptions{})
	if err != nil {
		return fmt.Errorf("failed to initialize actionlint: %w", err)
	}

	lintErrs, err := linter.Lint(workflowFileName, data, nil)
	if err != nil {
		return fmt.Errorf("actionlint failed: %w", err)
	}
	if len(lintErrs) == 0 {
		return nil
	}

	findings := make([]string, 0, len(lintErrs))
	for _, e := range lintErrs {
		findings = append(findings, fmt.Sprintf("line %d, col %d: %s", e.Line, e.Column, e.Message))
	}
	return fmt.Errorf("workflow failed actionlint: %s", strings.Join(findings, "; "))
}

// WorkflowUpToDate reports whether existing content matches what
// GenerateWorkflow would produce for the same options.
func WorkflowUpToDate(existing []byte, opts WorkflowOptions) (bool, error) {
	want, err := GenerateWorkflow(opts)
	if err != nil {
		return false, err
	}
	return bytes.Equal(existing, want), nil
}
