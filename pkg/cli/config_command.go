package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/infra"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the project configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSchemaCommand())
	cmd.AddCommand(newConfigValidateCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Long: `Print the configuration the build would use, with the template,
file settings, and environment overrides merged.

Examples:
  wasm-slim config show
  wasm-slim config show > .wasm-slim.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			return runConfigShow(root)
		},
	}
}

func runConfigShow(root string) error {
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	if !config.Exists(root) {
		fmt.Fprintln(os.Stderr, console.FormatInfoMessage("No config file found, showing defaults"))
	}

	tmpl, err := config.Resolve(cfg)
	if err != nil {
		return &ConfigInvalidError{Path: config.ConfigFileName, Err: err}
	}
	fmt.Fprintln(os.Stderr, console.FormatInfoMessage(fmt.Sprintf("Effective template: %s", tmpl.Name)))

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}

func newConfigSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for .wasm-slim.toml",
		Long: `Print the JSON schema describing valid configuration files.

Examples:
  wasm-slim config schema > wasm-slim.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.FileSchemaJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate .wasm-slim.toml against the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			return runConfigValidate(root)
		},
	}
}

func runConfigValidate(root string) error {
	filesystem := infra.NewOSFileSystem()
	path := filepath.Join(root, config.ConfigFileName)

	raw, err := filesystem.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ConfigNotFoundError{Path: config.ConfigFileName}
		}
		return fmt.Errorf("failed to read %s: %w", config.ConfigFileName, err)
	}

	if err := config.ValidateDocument(raw); err != nil {
		return &ConfigInvalidError{Path: config.ConfigFileName, Err: err}
	}

	cfg, err := config.Load(root)
	if err != nil {
		return &ConfigInvalidError{Path: config.ConfigFileName, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigInvalidError{Path: config.ConfigFileName, Err: err}
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage("Configuration is valid"))
	return nil
}
