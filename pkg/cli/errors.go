package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/optimizer"
	"github.com/wasm-slim/wasm-slim/pkg/pipeline"
	"github.com/wasm-slim/wasm-slim/pkg/workflow"
)

// Process exit codes, following the sysexits convention where one fits.
const (
	exitFailure     = 1
	exitUsage       = 64
	exitDataErr     = 65
	exitNoInput     = 66
	exitIOErr       = 74
	exitToolMissing = 127
)

// UsageError marks a command-line parsing failure so it exits with the
// usage code instead of a generic failure.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// ConfigNotFoundError reports a command that needs .wasm-slim.toml when the
// project has none.
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s", e.Path)
}

// ConfigInvalidError reports a .wasm-slim.toml that exists but does not
// validate.
type ConfigInvalidError struct {
	Path string
	Err  error
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("invalid configuration in %s: %v", e.Path, e.Err)
}

func (e *ConfigInvalidError) Unwrap() error { return e.Err }

// TemplateNotFoundError reports a template name that matches no built-in
// template.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %q not found", e.Name)
}

// WorkflowStaleError reports a generated CI workflow that no longer matches
// what ci init would write today.
type WorkflowStaleError struct {
	Path string
}

func (e *WorkflowStaleError) Error() string {
	return fmt.Sprintf("%s is out of date", e.Path)
}

// ExitCode maps an error to the process exit code main should use.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var usageErr *UsageError
	var toolErr *pipeline.ToolMissingError
	var manifestErr *optimizer.ManifestIOError
	var artifactErr *pipeline.ArtifactNotFoundError
	var configMissingErr *ConfigNotFoundError
	var configInvalidErr *ConfigInvalidError
	var templateErr *TemplateNotFoundError

	switch {
	case errors.As(err, &usageErr):
		return exitUsage
	case errors.As(err, &toolErr):
		return exitToolMissing
	case errors.As(err, &manifestErr):
		return exitIOErr
	case errors.As(err, &artifactErr):
		return exitNoInput
	case errors.As(err, &configMissingErr):
		return exitNoInput
	case errors.As(err, &configInvalidErr):
		return exitDataErr
	case errors.As(err, &templateErr):
		return exitDataErr
	}
	return exitFailure
}

// RenderError formats an error for the final stderr line, attaching the
// recovery suggestions the error type calls for.
func RenderError(err error) string {
	suggestions := errorSuggestions(err)
	if len(suggestions) == 0 {
		return console.FormatErrorMessage(err.Error())
	}
	return strings.TrimRight(console.FormatErrorWithSuggestions(err.Error(), suggestions), "\n")
}

func errorSuggestions(err error) []string {
	var toolErr *pipeline.ToolMissingError
	if errors.As(err, &toolErr) {
		if hint := installHintForTool(toolErr.Tool); hint != "" {
			return []string{"Install with: " + hint}
		}
		return nil
	}

	var budgetErr *workflow.BudgetExceededError
	if errors.As(err, &budgetErr) {
		return []string{
			fmt.Sprintf("Bundle is %.1f%% over the configured maximum", budgetErr.PercentOver),
			"Try a more aggressive template: wasm-slim init --template aggressive --force",
			"Preview further optimizations: wasm-slim build --dry-run",
		}
	}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		if strings.Contains(stageErr.Stderr, "wasm32-unknown-unknown") {
			return []string{"Install WASM target: rustup target add wasm32-unknown-unknown"}
		}
		return nil
	}

	var configMissingErr *ConfigNotFoundError
	if errors.As(err, &configMissingErr) {
		return []string{"Run 'wasm-slim init' to create a configuration file"}
	}

	var templateErr *TemplateNotFoundError
	if errors.As(err, &templateErr) {
		return []string{"Available templates: " + strings.Join(config.TemplateNames(), ", ")}
	}

	var staleErr *WorkflowStaleError
	if errors.As(err, &staleErr) {
		return []string{"Run 'wasm-slim ci init' to regenerate it"}
	}

	return nil
}

// installHintForTool resolves a tool's display name back to its install
// command. CheckRequired reports the display name, not the binary.
func installHintForTool(name string) string {
	for _, tool := range pipeline.DefaultTools() {
		if tool.Name == name {
			return pipeline.InstallHint(tool.Binary)
		}
	}
	return pipeline.InstallHint(name)
}
