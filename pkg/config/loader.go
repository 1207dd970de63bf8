package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/wasm-slim/wasm-slim/pkg/infra"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var loaderLog = logger.New("config:loader")

// envBoundKeys are the config keys overridable through WASM_SLIM_* environment
// variables, e.g. WASM_SLIM_TEMPLATE or WASM_SLIM_SIZE_BUDGET_MAX_SIZE_KB.
var envBoundKeys = []string{
	"template",
	"profile.opt-level",
	"profile.lto",
	"profile.strip",
	"profile.codegen-units",
	"profile.panic",
	"size-budget.max-size-kb",
	"size-budget.warn-threshold-kb",
	"size-budget.target-size-kb",
}

// Loader reads and writes .wasm-slim.toml through a FileSystem.
type Loader struct {
	fs infra.FileSystem
}

// NewLoader returns a loader bound to the given filesystem.
func NewLoader(filesystem infra.FileSystem) *Loader {
	return &Loader{fs: filesystem}
}

// Load reads the config file from projectRoot, overlaying WASM_SLIM_*
// environment variables. A missing file yields the default configuration;
// everything else that goes wrong is a hard error.
func (l *Loader) Load(projectRoot string) (*ConfigFile, error) {
	path := filepath.Join(projectRoot, ConfigFileName)

	contents, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			loaderLog.Printf("no %s in %s, using defaults", ConfigFileName, projectRoot)
			return applyEnvOnly()
		}
		return nil, fmt.Errorf("failed to read .wasm-slim.toml: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(contents)); err != nil {
		return nil, fmt.Errorf("failed to parse .wasm-slim.toml: %w", err)
	}

	return unmarshalConfig(v)
}

// applyEnvOnly builds a config from defaults plus environment overrides.
func applyEnvOnly() (*ConfigFile, error) {
	return unmarshalConfig(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("WASM_SLIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("template", DefaultTemplateName)
	for _, key := range envBoundKeys {
		_ = v.BindEnv(key)
	}
	return v
}

func unmarshalConfig(v *viper.Viper) (*ConfigFile, error) {
	var cfg ConfigFile
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse .wasm-slim.toml: %w", err)
	}

	if cfg.SizeBudget != nil {
		if err := cfg.SizeBudget.Validate(); err != nil {
			return nil, fmt.Errorf("invalid size budget configuration: %w", err)
		}
	}

	return &cfg, nil
}

// Save writes the config to projectRoot/.wasm-slim.toml.
func (l *Loader) Save(cfg *ConfigFile, projectRoot string) error {
	path := filepath.Join(projectRoot, ConfigFileName)

	var buf bytes.Buffer
	buf.WriteString("# wasm-slim configuration\n")
	buf.WriteString("# Run 'wasm-slim config show' to see the resolved settings.\n\n")

	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := l.fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write .wasm-slim.toml: %w", err)
	}

	loaderLog.Printf("wrote %s", path)
	return nil
}

// Exists reports whether projectRoot has a config file.
func (l *Loader) Exists(projectRoot string) bool {
	_, err := l.fs.Stat(filepath.Join(projectRoot, ConfigFileName))
	return err == nil
}

// Load reads config from the real filesystem.
func Load(projectRoot string) (*ConfigFile, error) {
	return NewLoader(infra.NewOSFileSystem()).Load(projectRoot)
}

// Save writes config to the real filesystem.
func Save(cfg *ConfigFile, projectRoot string) error {
	return NewLoader(infra.NewOSFileSystem()).Save(cfg, projectRoot)
}

// Exists checks for a config file on the real filesystem.
func Exists(projectRoot string) bool {
	return NewLoader(infra.NewOSFileSystem()).Exists(projectRoot)
}
