package config

import (
	"sort"
	"strings"
)

// ProfileConfig is a fully resolved cargo release profile.
type ProfileConfig struct {
	OptLevel     string `json:"opt-level"`
	LTO          string `json:"lto"`
	Strip        bool   `json:"strip"`
	CodegenUnits int    `json:"codegen-units"`
	Panic        string `json:"panic"`
}

// WasmOptConfig is the resolved wasm-opt invocation.
type WasmOptConfig struct {
	Flags []string `json:"flags"`
}

// WasmBindgenConfig is the resolved wasm-bindgen invocation.
type WasmBindgenConfig struct {
	Debug                  bool     `json:"debug"`
	RemoveProducersSection bool     `json:"remove-producers-section"`
	Flags                  []string `json:"flags"`
}

// Template is a complete named optimization preset: cargo profile settings,
// post-processing flags, and guidance for the project's dependencies.
type Template struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Profile         ProfileConfig     `json:"profile"`
	WasmOpt         WasmOptConfig     `json:"wasm-opt"`
	WasmBindgen     WasmBindgenConfig `json:"wasm-bindgen"`
	DependencyHints []string          `json:"dependency-hints,omitempty"`
	Notes           []string          `json:"notes,omitempty"`
}

// baseWasmOptFlags are shared by every non-aggressive template. The feature
// enables match what wasm-bindgen emits for current rustc targets.
func baseWasmOptFlags() []string {
	return []string{
		"-Oz",
		"--enable-mutable-globals",
		"--enable-bulk-memory",
		"--enable-sign-ext",
		"--enable-nontrapping-float-to-int",
		"--strip-debug",
		"--strip-dwarf",
		"--strip-producers",
	}
}

func minimalTemplate() Template {
	return Template{
		Name:        "minimal",
		Description: "Maximum size reduction, may affect performance",
		Profile: ProfileConfig{
			OptLevel:     "z",
			LTO:          "fat",
			Strip:        true,
			CodegenUnits: 1,
			Panic:        "abort",
		},
		WasmOpt: WasmOptConfig{Flags: baseWasmOptFlags()},
		WasmBindgen: WasmBindgenConfig{
			Debug:                  false,
			RemoveProducersSection: true,
		},
		DependencyHints: []string{
			"Set default-features = false on all dependencies",
			"Enable the getrandom js feature for wasm targets",
		},
		Notes: []string{
			"Prioritizes size over performance",
			"May increase compile time significantly",
		},
	}
}

func balancedTemplate() Template {
	return Template{
		Name:        "balanced",
		Description: "Balanced size/performance (recommended)",
		Profile: ProfileConfig{
			OptLevel:     "s",
			LTO:          "fat",
			Strip:        true,
			CodegenUnits: 1,
			Panic:        "abort",
		},
		WasmOpt: WasmOptConfig{Flags: baseWasmOptFlags()},
		WasmBindgen: WasmBindgenConfig{
			Debug:                  false,
			RemoveProducersSection: true,
		},
		DependencyHints: []string{
			"Minimize feature flags where possible",
			"Enable the getrandom js feature for wasm targets",
		},
		Notes: []string{
			"Production-validated settings (60%+ size reduction observed)",
			"Good balance between size and performance",
			"Recommended for most projects",
		},
	}
}

func aggressiveTemplate() Template {
	return Template{
		Name:        "aggressive",
		Description: "All optimizations enabled, maximum reduction",
		Profile: ProfileConfig{
			OptLevel:     "z",
			LTO:          "fat",
			Strip:        true,
			CodegenUnits: 1,
			Panic:        "abort",
		},
		WasmOpt: WasmOptConfig{
			Flags: append(baseWasmOptFlags(),
				"--vacuum",
				"--closed-world",
				"--gufa-optimizing",
			),
		},
		WasmBindgen: WasmBindgenConfig{
			Debug:                  false,
			RemoveProducersSection: true,
			Flags:                  []string{"--omit-default-module-path"},
		},
		DependencyHints: []string{
			"Set default-features = false on ALL dependencies",
			"Enable the getrandom js feature for wasm targets",
			"Consider lighter alternatives for heavy deps",
			"Externalize assets (fonts, images)",
		},
		Notes: []string{
			"Maximum size reduction at all costs",
			"Significantly longer compile times",
			"May affect runtime performance",
			"Use for production builds with strict size budgets",
			"Use nightly Rust for build-std (additional 10-20% reduction)",
		},
	}
}

func yewTemplate() Template {
	t := balancedTemplate()
	t.Name = "yew"
	t.Description = "Optimized for Yew framework projects"
	t.DependencyHints = []string{
		"yew = { version = \"*\", default-features = false }",
		"Use yew-router with minimal features",
		"Avoid heavy dependencies in components",
		"Consider code-splitting for large apps",
	}
	t.Notes = []string{
		"Based on balanced template",
		"Optimized for Yew's component model",
		"Minimizes framework overhead",
	}
	return t
}

func leptosTemplate() Template {
	t := balancedTemplate()
	t.Name = "leptos"
	t.Description = "Optimized for Leptos framework projects"
	t.DependencyHints = []string{
		"leptos = { version = \"*\", default-features = false }",
		"Enable only needed features (csr, hydrate, ssr)",
		"Use leptos_router with minimal features",
		"Leverage Leptos's fine-grained reactivity",
	}
	t.Notes = []string{
		"Based on balanced template",
		"Optimized for Leptos's fine-grained reactivity",
		"Supports both CSR and SSR modes",
		"Use nightly + build-std for 10-20% additional reduction",
		"Consider lightweight serialization (miniserde, serde-lite)",
	}
	return t
}

func dioxusTemplate() Template {
	t := balancedTemplate()
	t.Name = "dioxus"
	t.Description = "Optimized for Dioxus framework projects"
	t.DependencyHints = []string{
		"dioxus = { version = \"*\", default-features = false }",
		"Enable only target features (web, desktop, mobile)",
		"Use dioxus-router with minimal features",
		"Leverage Dioxus's virtual DOM efficiently",
	}
	t.Notes = []string{
		"Based on balanced template",
		"Optimized for Dioxus's component model",
		"Supports multiple platforms",
	}
	return t
}

// Templates returns every built-in template in recommendation order.
func Templates() []Template {
	return []Template{
		minimalTemplate(),
		balancedTemplate(),
		aggressiveTemplate(),
		yewTemplate(),
		leptosTemplate(),
		dioxusTemplate(),
	}
}

// TemplateByName returns the template with the given name, matched
// case-insensitively.
func TemplateByName(name string) (Template, bool) {
	lower := strings.ToLower(name)
	for _, t := range Templates() {
		if t.Name == lower {
			return t, true
		}
	}
	return Template{}, false
}

// TemplateNames returns the built-in template names, sorted.
func TemplateNames() []string {
	ts := Templates()
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

func templateNameList() string {
	return strings.Join(TemplateNames(), ", ")
}
