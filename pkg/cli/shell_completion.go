package cli

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var shellCompletionLog = logger.New("cli:shell_completion")

// ShellType represents the detected shell type
type ShellType string

const (
	ShellBash       ShellType = "bash"
	ShellZsh        ShellType = "zsh"
	ShellFish       ShellType = "fish"
	ShellPowerShell ShellType = "powershell"
	ShellUnknown    ShellType = "unknown"
)

// DetectShell detects the current shell from environment variables
func DetectShell() ShellType {
	// Shell-specific version variables are the most reliable signal
	if os.Getenv("ZSH_VERSION") != "" {
		return ShellZsh
	}
	if os.Getenv("BASH_VERSION") != "" {
		return ShellBash
	}
	if os.Getenv("FISH_VERSION") != "" {
		return ShellFish
	}

	// Fall back to $SHELL
	shell := os.Getenv("SHELL")
	if shell == "" {
		if runtime.GOOS == "windows" {
			return ShellPowerShell
		}
		shellCompletionLog.Print("Could not detect shell")
		return ShellUnknown
	}

	shellName := filepath.Base(shell)
	shellCompletionLog.Printf("Shell base name: %s", shellName)

	switch {
	case strings.Contains(shellName, "bash"):
		return ShellBash
	case strings.Contains(shellName, "zsh"):
		return ShellZsh
	case strings.Contains(shellName, "fish"):
		return ShellFish
	case strings.Contains(shellName, "pwsh") || strings.Contains(shellName, "powershell"):
		return ShellPowerShell
	default:
		shellCompletionLog.Printf("Unknown shell: %s", shellName)
		return ShellUnknown
	}
}

// InstallShellCompletion installs shell completion for the detected shell
func InstallShellCompletion(rootCmd *cobra.Command) error {
	shellType := DetectShell()
	shellCompletionLog.Printf("Detected shell type: %s", shellType)

	if shellType == ShellUnknown {
		return fmt.Errorf("could not detect shell type. Please install completions manually using: wasm-slim completion <shell>")
	}

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("Detected shell: %s", shellType)))

	switch shellType {
	case ShellBash:
		return installBashCompletion(rootCmd)
	case ShellZsh:
		return installZshCompletion(rootCmd)
	case ShellFish:
		return installFishCompletion(rootCmd)
	case ShellPowerShell:
		return installPowerShellCompletion()
	default:
		return fmt.Errorf("shell completion not supported for: %s", shellType)
	}
}

func installBashCompletion(cmd *cobra.Command) error {
	var buf bytes.Buffer
	if err := cmd.GenBashCompletion(&buf); err != nil {
		return fmt.Errorf("failed to generate bash completion: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	var completionPath string
	if runtime.GOOS == "darwin" {
		brewPrefix := os.Getenv("HOMEBREW_PREFIX")
		if brewPrefix == "" {
			for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
				if _, err := os.Stat(filepath.Join(prefix, "etc", "bash_completion.d")); err == nil {
					brewPrefix = prefix
					break
				}
			}
		}
		if brewPrefix != "" {
			completionPath = filepath.Join(brewPrefix, "etc", "bash_completion.d", "wasm-slim")
		} else {
			completionPath = filepath.Join(homeDir, ".bash_completion.d", "wasm-slim")
		}
	} else {
		if _, err := os.Stat("/etc/bash_completion.d"); err == nil {
			completionPath = "/etc/bash_completion.d/wasm-slim"
		} else {
			completionPath = filepath.Join(homeDir, ".bash_completion.d", "wasm-slim")
		}
	}

	completionDir := filepath.Dir(completionPath)
	if strings.HasPrefix(completionDir, homeDir) {
		if err := os.MkdirAll(completionDir, 0750); err != nil {
			return fmt.Errorf("failed to create completion directory: %w", err)
		}
	}

	err = os.WriteFile(completionPath, buf.Bytes(), 0600)
	if err != nil && strings.HasPrefix(completionPath, "/etc") {
		// System-wide install needs root; fall back to the user directory
		shellCompletionLog.Printf("Failed to install system-wide, falling back to user directory: %v", err)
		completionPath = filepath.Join(homeDir, ".bash_completion.d", "wasm-slim")
		if err := os.MkdirAll(filepath.Dir(completionPath), 0750); err != nil {
			return fmt.Errorf("failed to create user completion directory: %w", err)
		}
		if err := os.WriteFile(completionPath, buf.Bytes(), 0600); err != nil {
			return fmt.Errorf("failed to write completion file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to write completion file: %w", err)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Installed bash completion to: %s", completionPath)))

	if strings.HasPrefix(completionPath, homeDir) {
		bashrcContent, err := os.ReadFile(filepath.Join(homeDir, ".bashrc"))
		needsSourceLine := true
		if err == nil {
			if strings.Contains(string(bashrcContent), ".bash_completion.d") ||
				strings.Contains(string(bashrcContent), completionPath) {
				needsSourceLine = false
			}
		}

		if needsSourceLine {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage("To enable completions, add the following to your ~/.bashrc:"))
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintf(os.Stderr, "  for f in ~/.bash_completion.d/*; do [ -f \"$f\" ] && source \"$f\"; done\n")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Then restart your shell or run: source ~/.bashrc"))
			return nil
		}
	}

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Please restart your shell for completions to take effect"))
	return nil
}

func installZshCompletion(cmd *cobra.Command) error {
	var buf bytes.Buffer
	if err := cmd.GenZshCompletion(&buf); err != nil {
		return fmt.Errorf("failed to generate zsh completion: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	userCompletionDir := filepath.Join(homeDir, ".zsh", "completions")
	if err := os.MkdirAll(userCompletionDir, 0750); err != nil {
		return fmt.Errorf("failed to create completion directory: %w", err)
	}
	completionPath := filepath.Join(userCompletionDir, "_wasm-slim")

	if err := os.WriteFile(completionPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write completion file: %w", err)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Installed zsh completion to: %s", completionPath)))

	zshrcContent, err := os.ReadFile(filepath.Join(homeDir, ".zshrc"))
	needsFpath := true
	if err == nil && strings.Contains(string(zshrcContent), userCompletionDir) {
		needsFpath = false
	}

	if needsFpath {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage("To enable completions, add the following to your ~/.zshrc:"))
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintf(os.Stderr, "  fpath=(~/.zsh/completions $fpath)\n")
		fmt.Fprintf(os.Stderr, "  autoload -Uz compinit && compinit\n")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Then restart your shell or run: source ~/.zshrc"))
	} else {
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Please restart your shell for completions to take effect"))
	}

	return nil
}

func installFishCompletion(cmd *cobra.Command) error {
	var buf bytes.Buffer
	if err := cmd.GenFishCompletion(&buf, true); err != nil {
		return fmt.Errorf("failed to generate fish completion: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	completionDir := filepath.Join(homeDir, ".config", "fish", "completions")
	if err := os.MkdirAll(completionDir, 0750); err != nil {
		return fmt.Errorf("failed to create completion directory: %w", err)
	}

	completionPath := filepath.Join(completionDir, "wasm-slim.fish")
	if err := os.WriteFile(completionPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write completion file: %w", err)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Installed fish completion to: %s", completionPath)))
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Fish will automatically load completions on next shell start"))

	return nil
}

func installPowerShellCompletion() error {
	profilePath, err := powershellProfilePath()
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("PowerShell profile path: %s", profilePath)))
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("To enable completions, add the following to your PowerShell profile:"))
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "  wasm-slim completion powershell | Out-String | Invoke-Expression")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Then restart your shell or run: . $PROFILE"))

	return nil
}

// UninstallShellCompletion uninstalls shell completion for the detected shell
func UninstallShellCompletion() error {
	shellType := DetectShell()
	shellCompletionLog.Printf("Detected shell type: %s", shellType)

	if shellType == ShellUnknown {
		return fmt.Errorf("could not detect shell type. Please uninstall completions manually")
	}

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("Detected shell: %s", shellType)))

	switch shellType {
	case ShellBash:
		return uninstallBashCompletion()
	case ShellZsh:
		return uninstallZshCompletion()
	case ShellFish:
		return uninstallFishCompletion()
	case ShellPowerShell:
		return uninstallPowerShellCompletion()
	default:
		return fmt.Errorf("shell completion not supported for: %s", shellType)
	}
}

func uninstallBashCompletion() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	possiblePaths := []string{filepath.Join(homeDir, ".bash_completion.d", "wasm-slim")}

	if runtime.GOOS == "darwin" {
		brewPrefix := os.Getenv("HOMEBREW_PREFIX")
		if brewPrefix == "" {
			for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
				if _, err := os.Stat(filepath.Join(prefix, "etc", "bash_completion.d")); err == nil {
					possiblePaths = append(possiblePaths, filepath.Join(prefix, "etc", "bash_completion.d", "wasm-slim"))
				}
			}
		} else {
			possiblePaths = append(possiblePaths, filepath.Join(brewPrefix, "etc", "bash_completion.d", "wasm-slim"))
		}
	}
	if runtime.GOOS == "linux" {
		possiblePaths = append(possiblePaths, "/etc/bash_completion.d/wasm-slim")
	}

	removed := false
	var lastErr error

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			shellCompletionLog.Printf("Found completion file at: %s", path)
			if err := os.Remove(path); err != nil {
				shellCompletionLog.Printf("Failed to remove %s: %v", path, err)
				lastErr = err
				continue
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Removed bash completion from: %s", path)))
			removed = true
		}
	}

	if !removed {
		return fmt.Errorf("no bash completion file found to remove")
	}
	if lastErr != nil {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage("Some completion files could not be removed (may require elevated permissions)"))
	}

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Please restart your shell for changes to take effect"))
	return nil
}

func uninstallZshCompletion() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	completionPath := filepath.Join(homeDir, ".zsh", "completions", "_wasm-slim")
	if _, err := os.Stat(completionPath); err != nil {
		return fmt.Errorf("no zsh completion file found at: %s", completionPath)
	}

	if err := os.Remove(completionPath); err != nil {
		return fmt.Errorf("failed to remove completion file: %w", err)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Removed zsh completion from: %s", completionPath)))
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Please restart your shell for changes to take effect"))
	return nil
}

func uninstallFishCompletion() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	completionPath := filepath.Join(homeDir, ".config", "fish", "completions", "wasm-slim.fish")
	if _, err := os.Stat(completionPath); err != nil {
		return fmt.Errorf("no fish completion file found at: %s", completionPath)
	}

	if err := os.Remove(completionPath); err != nil {
		return fmt.Errorf("failed to remove completion file: %w", err)
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("Removed fish completion from: %s", completionPath)))
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Fish will automatically detect the removal on next shell start"))
	return nil
}

func uninstallPowerShellCompletion() error {
	profilePath, err := powershellProfilePath()
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("PowerShell profile path: %s", profilePath)))
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("To uninstall completions, remove the following line from your PowerShell profile:"))
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "  wasm-slim completion powershell | Out-String | Invoke-Expression")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage("Then restart your shell or run: . $PROFILE"))
	return nil
}

func powershellProfilePath() (string, error) {
	shell := "pwsh"
	if runtime.GOOS == "windows" {
		shell = "powershell"
	}

	profileCmd := exec.Command(shell, "-NoProfile", "-Command", "echo $PROFILE")
	var profileBuf bytes.Buffer
	profileCmd.Stdout = &profileBuf
	if err := profileCmd.Run(); err != nil {
		return "", fmt.Errorf("failed to get PowerShell profile path: %w", err)
	}
	return strings.TrimSpace(profileBuf.String()), nil
}
