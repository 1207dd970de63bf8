package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var completionLog = logger.New("cli:completion")

// NewCompletionCommand creates the completion command with install subcommand
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [shell]",
		Short: "Generate shell completion scripts for wasm-slim commands",
		Long: `Generate shell completion scripts to enable tab completion for wasm-slim commands.

Tab completion provides:
- Command name completion (build, init, tools, etc.)
- Template name completion for the init --template flag
- Directory path completion for --target-dir

Supported shells: bash, zsh, fish, powershell

Examples:
  # Install completions automatically (detects your shell)
  wasm-slim completion install

  # Generate completion script for bash
  wasm-slim completion bash > ~/.bash_completion.d/wasm-slim
  source ~/.bash_completion.d/wasm-slim

  # Generate completion script for zsh
  wasm-slim completion zsh > "${fpath[1]}/_wasm-slim"
  compinit

  # Generate completion script for fish
  wasm-slim completion fish > ~/.config/fish/completions/wasm-slim.fish

  # Generate completion script for PowerShell
  wasm-slim completion powershell | Out-String | Invoke-Expression`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := args[0]
			completionLog.Printf("Generating %s completion script", shell)

			switch shell {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletion(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", shell)
			}
		},
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install shell completion for the detected shell",
		Long: `Automatically install shell completion for your current shell.

This command detects your shell (bash, zsh, fish, or PowerShell) and installs
the completion script to the appropriate location. After installation, restart
your shell or source your shell configuration file.

Supported shells:
  - Bash:       Installs to ~/.bash_completion.d/ or /etc/bash_completion.d/
  - Zsh:        Installs to ~/.zsh/completions/
  - Fish:       Installs to ~/.config/fish/completions/
  - PowerShell: Provides instructions to add to PowerShell profile

Examples:
  wasm-slim completion install`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return InstallShellCompletion(cmd.Root())
		},
	}

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall shell completion for the detected shell",
		Long: `Automatically uninstall shell completion for your current shell.

This command detects your shell (bash, zsh, fish, or PowerShell) and removes
the completion script from the appropriate location. After uninstallation,
restart your shell for changes to take effect.

Examples:
  wasm-slim completion uninstall`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return UninstallShellCompletion()
		},
	}

	cmd.AddCommand(installCmd)
	cmd.AddCommand(uninstallCmd)

	return cmd
}
