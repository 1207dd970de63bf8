// Package config loads, validates, and saves .wasm-slim.toml project
// configuration and provides the built-in optimization templates.
package config

import "fmt"

// ConfigFileName is the project configuration file name, looked up in the
// project root.
const ConfigFileName = ".wasm-slim.toml"

// DefaultTemplateName is used when the config file is missing or does not
// name a template.
const DefaultTemplateName = "balanced"

// ConfigFile mirrors the on-disk .wasm-slim.toml structure. Optional
// sections override the selected template.
type ConfigFile struct {
	// Template names the base optimization template.
	Template string `toml:"template" mapstructure:"template" json:"template"`

	// Profile overrides individual cargo profile settings.
	Profile *ProfileSettings `toml:"profile,omitempty" mapstructure:"profile" json:"profile,omitempty"`

	// WasmOpt overrides wasm-opt settings.
	WasmOpt *WasmOptSettings `toml:"wasm-opt,omitempty" mapstructure:"wasm-opt" json:"wasm-opt,omitempty"`

	// SizeBudget configures artifact size limits.
	SizeBudget *SizeBudget `toml:"size-budget,omitempty" mapstructure:"size-budget" json:"size-budget,omitempty"`
}

// ProfileSettings holds optional cargo profile overrides. Nil fields fall
// back to the template value.
type ProfileSettings struct {
	OptLevel     *string `toml:"opt-level,omitempty" mapstructure:"opt-level" json:"opt-level,omitempty"`
	LTO          *string `toml:"lto,omitempty" mapstructure:"lto" json:"lto,omitempty"`
	Strip        *bool   `toml:"strip,omitempty" mapstructure:"strip" json:"strip,omitempty"`
	CodegenUnits *int    `toml:"codegen-units,omitempty" mapstructure:"codegen-units" json:"codegen-units,omitempty"`
	Panic        *string `toml:"panic,omitempty" mapstructure:"panic" json:"panic,omitempty"`
}

// WasmOptSettings holds optional wasm-opt overrides.
type WasmOptSettings struct {
	Flags []string `toml:"flags,omitempty" mapstructure:"flags" json:"flags,omitempty"`
}

// SizeBudget configures the size thresholds checked after a build. All
// fields are optional; an absent max disables hard budget enforcement.
type SizeBudget struct {
	// MaxSizeKB is the hard limit. Builds over it fail budget checks.
	MaxSizeKB *uint64 `toml:"max-size-kb,omitempty" mapstructure:"max-size-kb" json:"max-size-kb,omitempty"`

	// WarnThresholdKB triggers a warning without failing.
	WarnThresholdKB *uint64 `toml:"warn-threshold-kb,omitempty" mapstructure:"warn-threshold-kb" json:"warn-threshold-kb,omitempty"`

	// TargetSizeKB is the ideal size to aim for.
	TargetSizeKB *uint64 `toml:"target-size-kb,omitempty" mapstructure:"target-size-kb" json:"target-size-kb,omitempty"`
}

// Validate checks that configured thresholds are ordered target <= warn <= max.
func (b *SizeBudget) Validate() error {
	if b.TargetSizeKB != nil && b.WarnThresholdKB != nil && *b.TargetSizeKB > *b.WarnThresholdKB {
		return fmt.Errorf("Target size (%d KB) cannot exceed warning threshold (%d KB)", *b.TargetSizeKB, *b.WarnThresholdKB)
	}
	if b.WarnThresholdKB != nil && b.MaxSizeKB != nil && *b.WarnThresholdKB > *b.MaxSizeKB {
		return fmt.Errorf("Warning threshold (%d KB) cannot exceed max size (%d KB)", *b.WarnThresholdKB, *b.MaxSizeKB)
	}
	if b.TargetSizeKB != nil && b.MaxSizeKB != nil && *b.TargetSizeKB > *b.MaxSizeKB {
		return fmt.Errorf("Target size (%d KB) cannot exceed max size (%d KB)", *b.TargetSizeKB, *b.MaxSizeKB)
	}
	return nil
}

// DefaultConfigFile returns the configuration used when no .wasm-slim.toml
// exists: the balanced template with no overrides.
func DefaultConfigFile() *ConfigFile {
	return &ConfigFile{Template: DefaultTemplateName}
}

// Validate checks the config references a known template and carries a
// consistent size budget.
func (c *ConfigFile) Validate() error {
	name := c.Template
	if name == "" {
		name = DefaultTemplateName
	}
	if _, ok := TemplateByName(name); !ok {
		return fmt.Errorf("template %q not found (available: %s)", name, templateNameList())
	}
	if c.SizeBudget != nil {
		if err := c.SizeBudget.Validate(); err != nil {
			return fmt.Errorf("invalid size budget configuration: %w", err)
		}
	}
	return nil
}
