package optimizer

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
)

var editorLog = logger.New("optimizer:editor")

// ManifestEditor rewrites a Cargo.toml so its release profile and
// wasm-pack metadata match the configured optimization settings, and
// known heavyweight dependencies are trimmed to minimal features.
//
// The editor works on content, not files: values are checked against a
// decoded copy of the document, and only the lines carrying settings that
// actually differ are rewritten. Comments, ordering, and formatting on
// every other line come through untouched, and applying the same
// configuration twice returns the input byte for byte.
type ManifestEditor struct {
	profile config.ProfileConfig
	wasmOpt config.WasmOptConfig
}

func NewManifestEditor(profile config.ProfileConfig, wasmOpt config.WasmOptConfig) *ManifestEditor {
	return &ManifestEditor{profile: profile, wasmOpt: wasmOpt}
}

// keyEdit is one pending "key = value" write plus its reportable change
// description.
type keyEdit struct {
	key    string
	value  string
	change string
}

// Apply returns the rewritten manifest and a description of every change
// made. When nothing needs changing, the input content is returned
// unchanged with an empty change list.
func (e *ManifestEditor) Apply(content string) (string, []string, error) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return "", nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	file := parseTOMLLines(content)
	var changes []string

	profileChanges, err := e.applyProfileSettings(doc, file)
	if err != nil {
		return "", nil, err
	}
	changes = append(changes, profileChanges...)

	wasmOptChanges, err := e.applyWasmOptFlags(doc, file)
	if err != nil {
		return "", nil, err
	}
	changes = append(changes, wasmOptChanges...)

	changes = append(changes, e.applyDependencyMinimization(doc, file)...)
	changes = append(changes, e.applyWasmCompatFixes(doc, file)...)

	if len(changes) == 0 {
		return content, nil, nil
	}
	return file.String(), changes, nil
}

// applyProfileSettings brings [profile.release] in line with the
// configured values. Settings already holding the configured value are
// left alone, including their comments and formatting.
func (e *ManifestEditor) applyProfileSettings(doc map[string]any, file *tomlFile) ([]string, error) {
	release, err := tableAt(doc, "profile", "release")
	if err != nil {
		return nil, fmt.Errorf("invalid Cargo.toml structure: %w", err)
	}

	p := e.profile
	var edits []keyEdit

	if current, ok := stringAt(release, "lto"); !ok || current != p.LTO {
		edits = append(edits, keyEdit{
			key:    "lto",
			value:  renderTOMLString(p.LTO),
			change: fmt.Sprintf("Set lto = %q (15-30%% reduction)", p.LTO),
		})
	}

	if current, ok := intAt(release, "codegen-units"); !ok || current != int64(p.CodegenUnits) {
		edits = append(edits, keyEdit{
			key:    "codegen-units",
			value:  strconv.Itoa(p.CodegenUnits),
			change: fmt.Sprintf("Set codegen-units = %d (better optimization)", p.CodegenUnits),
		})
	}

	// opt-level may legitimately hold either a string ("z") or an
	// integer (3), so both spellings of the configured value count as
	// already set.
	optLevelSet := false
	if s, ok := stringAt(release, "opt-level"); ok && s == p.OptLevel {
		optLevelSet = true
	} else if n, ok := intAt(release, "opt-level"); ok && strconv.FormatInt(n, 10) == p.OptLevel {
		optLevelSet = true
	}
	if !optLevelSet {
		edits = append(edits, keyEdit{
			key:    "opt-level",
			value:  renderTOMLString(p.OptLevel),
			change: fmt.Sprintf("Set opt-level = %q (size-optimized)", p.OptLevel),
		})
	}

	if current, ok := boolAt(release, "strip"); !ok || current != p.Strip {
		edits = append(edits, keyEdit{
			key:    "strip",
			value:  renderTOMLBool(p.Strip),
			change: "Set strip = true (remove debug symbols)",
		})
	}

	if current, ok := stringAt(release, "panic"); !ok || current != p.Panic {
		edits = append(edits, keyEdit{
			key:    "panic",
			value:  renderTOMLString(p.Panic),
			change: fmt.Sprintf("Set panic = %q (smaller panic handler)", p.Panic),
		})
	}

	if len(edits) == 0 {
		return nil, nil
	}

	start, end := file.ensureTable("profile.release")
	changes := make([]string, 0, len(edits))
	for _, edit := range edits {
		end = file.setKey(start, end, edit.key, edit.value)
		editorLog.Printf("Applied profile edit: %s", edit.change)
		changes = append(changes, edit.change)
	}
	return changes, nil
}

// applyWasmOptFlags writes the wasm-opt flag list into the wasm-pack
// release metadata when the existing flags differ from the configured
// ones.
func (e *ManifestEditor) applyWasmOptFlags(doc map[string]any, file *tomlFile) ([]string, error) {
	if len(e.wasmOpt.Flags) == 0 {
		return nil, nil
	}

	release, err := tableAt(doc, "package", "metadata", "wasm-pack", "profile", "release")
	if err != nil {
		return nil, fmt.Errorf("invalid Cargo.toml structure: %w", err)
	}
	if current, ok := stringsAt(release, "wasm-opt"); ok && slices.Equal(current, e.wasmOpt.Flags) {
		return nil, nil
	}

	start, end := file.ensureTable("package.metadata.wasm-pack.profile.release")
	file.setKey(start, end, "wasm-opt", renderTOMLArray(e.wasmOpt.Flags))
	change := fmt.Sprintf("Set wasm-opt flags (%d optimizations)", len(e.wasmOpt.Flags))
	editorLog.Printf("Applied metadata edit: %s", change)
	return []string{change}, nil
}
