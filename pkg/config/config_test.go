//go:build !integration

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kb(v uint64) *uint64 { return &v }

func TestDefaultConfigFileUsesBalancedTemplate(t *testing.T) {
	cfg := DefaultConfigFile()
	assert.Equal(t, "balanced", cfg.Template)
	assert.Nil(t, cfg.Profile)
	assert.Nil(t, cfg.SizeBudget)
}

func TestSizeBudgetValidate(t *testing.T) {
	tests := []struct {
		name    string
		budget  SizeBudget
		wantErr string
	}{
		{
			name:   "correct order succeeds",
			budget: SizeBudget{TargetSizeKB: kb(100), WarnThresholdKB: kb(150), MaxSizeKB: kb(200)},
		},
		{
			name:   "equal thresholds succeed",
			budget: SizeBudget{TargetSizeKB: kb(200), WarnThresholdKB: kb(200), MaxSizeKB: kb(200)},
		},
		{
			name:   "partial budget succeeds",
			budget: SizeBudget{MaxSizeKB: kb(500)},
		},
		{
			name:   "empty budget succeeds",
			budget: SizeBudget{},
		},
		{
			name:    "target exceeds warn",
			budget:  SizeBudget{TargetSizeKB: kb(200), WarnThresholdKB: kb(100)},
			wantErr: "Target size (200 KB) cannot exceed warning threshold (100 KB)",
		},
		{
			name:    "warn exceeds max",
			budget:  SizeBudget{WarnThresholdKB: kb(300), MaxSizeKB: kb(200)},
			wantErr: "Warning threshold (300 KB) cannot exceed max size (200 KB)",
		},
		{
			name:    "target exceeds max",
			budget:  SizeBudget{TargetSizeKB: kb(300), MaxSizeKB: kb(200)},
			wantErr: "Target size (300 KB) cannot exceed max size (200 KB)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budget.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			}
		})
	}
}

func TestConfigFileValidate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfigFile().Validate())
	})

	t.Run("empty template falls back to default", func(t *testing.T) {
		cfg := &ConfigFile{}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown template is rejected", func(t *testing.T) {
		cfg := &ConfigFile{Template: "turbo"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.Contains(t, err.Error(), "balanced")
	})

	t.Run("bad budget is rejected", func(t *testing.T) {
		cfg := &ConfigFile{
			Template:   "balanced",
			SizeBudget: &SizeBudget{TargetSizeKB: kb(600), MaxSizeKB: kb(500)},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid size budget configuration")
	})
}
