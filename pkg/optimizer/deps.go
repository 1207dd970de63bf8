package optimizer

import (
	"fmt"
	"slices"
	"strings"
)

// applyDependencyMinimization turns off default features for known
// heavyweight crates, keeping the minimal feature list each one needs.
// Dependencies that already pin default-features are left alone, whatever
// the pinned value, since the author has made an explicit choice.
func (e *ManifestEditor) applyDependencyMinimization(doc map[string]any, file *tomlFile) []string {
	deps, err := tableAt(doc, "dependencies")
	if err != nil || deps == nil {
		return nil
	}

	var changes []string
	for _, name := range dependencyOrder(file, deps) {
		features, known := heavyDependencies[name]
		if !known {
			continue
		}
		if minimizeDependency(file, deps, name, features) {
			change := fmt.Sprintf("Set default-features = false for %s (feature minimization)", name)
			editorLog.Printf("Applied dependency edit: %s", change)
			changes = append(changes, change)
		}
	}
	return changes
}

// applyWasmCompatFixes makes getrandom usable on wasm32-unknown-unknown
// by adding the JavaScript entropy backend feature when it is missing.
func (e *ManifestEditor) applyWasmCompatFixes(doc map[string]any, file *tomlFile) []string {
	deps, err := tableAt(doc, "dependencies")
	if err != nil || deps == nil {
		return nil
	}
	value, ok := deps["getrandom"]
	if !ok {
		return nil
	}

	var added []string
	switch v := value.(type) {
	case string:
		added = wasmCompatFeatures(v)
		entries := []string{
			"version = " + renderTOMLString(v),
			"features = " + renderTOMLArray(added),
		}
		if !rewriteDependencyLine(file, "getrandom", "{ "+strings.Join(entries, ", ")+" }") {
			return nil
		}
	case map[string]any:
		version, _ := stringAt(v, "version")
		existing, _ := stringsAt(v, "features")
		var missing []string
		for _, feature := range wasmCompatFeatures(version) {
			if !slices.Contains(existing, feature) {
				missing = append(missing, feature)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		combined := append(slices.Clone(existing), missing...)
		if !appendDependencyFeatures(file, "getrandom", missing, combined) {
			return nil
		}
		added = missing
	default:
		return nil
	}

	change := fmt.Sprintf("Set getrandom features = %s (wasm compatibility)", renderTOMLArray(added))
	editorLog.Printf("Applied dependency edit: %s", change)
	return []string{change}
}

// dependencyOrder lists dependency names in the order they appear in the
// manifest, covering both entries inside [dependencies] and standalone
// [dependencies.name] sections. Decoded maps do not preserve order, so
// the line view supplies it.
func dependencyOrder(file *tomlFile, deps map[string]any) []string {
	var names []string
	seen := make(map[string]bool)

	if start, end, ok := file.findTable("dependencies"); ok {
		depth := 0
		for i := start + 1; i < end; i++ {
			if depth == 0 {
				if key, ok := lineKeyName(file.lines[i]); ok {
					if _, present := deps[key]; present && !seen[key] {
						names = append(names, key)
						seen[key] = true
					}
				}
			}
			depth += bracketDelta(file.lines[i])
		}
	}

	for _, line := range file.lines {
		header, ok := tableHeaderName(line)
		if !ok || !strings.HasPrefix(header, "dependencies.") {
			continue
		}
		name := strings.TrimPrefix(header, "dependencies.")
		if strings.Contains(name, ".") {
			continue
		}
		if _, present := deps[name]; present && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	return names
}

// minimizeDependency rewrites one dependency declaration to disable
// default features. Bare version strings become inline tables; table
// forms gain the missing keys in place.
func minimizeDependency(file *tomlFile, deps map[string]any, name string, features []string) bool {
	switch v := deps[name].(type) {
	case string:
		entries := []string{
			"version = " + renderTOMLString(v),
			"default-features = false",
		}
		if len(features) > 0 {
			entries = append(entries, "features = "+renderTOMLArray(features))
		}
		return rewriteDependencyLine(file, name, "{ "+strings.Join(entries, ", ")+" }")
	case map[string]any:
		if hasKey(v, "default-features") {
			return false
		}
		additions := []string{"default-features = false"}
		if len(features) > 0 && !hasKey(v, "features") {
			additions = append(additions, "features = "+renderTOMLArray(features))
		}
		return addDependencyEntries(file, name, additions)
	default:
		return false
	}
}

// rewriteDependencyLine replaces the whole value of a dependency declared
// on a single line inside [dependencies], keeping any trailing comment.
func rewriteDependencyLine(file *tomlFile, name, value string) bool {
	start, end, ok := file.findTable("dependencies")
	if !ok {
		return false
	}
	idx, ok := file.findKey(start, end, name)
	if !ok {
		return false
	}

	line := getIndentation(file.lines[idx]) + name + " = " + value
	if _, comment := splitValueAndComment(afterAssign(file.lines[idx])); comment != "" {
		line += " " + comment
	}
	file.replaceLine(idx, line)
	return true
}

// addDependencyEntries appends "key = value" entries to a dependency
// declared as an inline table or as its own [dependencies.name] section.
func addDependencyEntries(file *tomlFile, name string, entries []string) bool {
	if start, end, ok := file.findTable("dependencies"); ok {
		if idx, ok := file.findKey(start, end, name); ok {
			line, ok := insertIntoInlineTable(file.lines[idx], entries)
			if !ok {
				return false
			}
			file.replaceLine(idx, line)
			return true
		}
	}

	if start, end, ok := file.findTable("dependencies." + name); ok {
		for _, entry := range entries {
			key, value, found := strings.Cut(entry, " = ")
			if !found {
				continue
			}
			end = file.setKey(start, end, key, value)
		}
		return true
	}
	return false
}

// appendDependencyFeatures grows a dependency's features array. Inline
// declarations get just the missing entries appended to preserve their
// formatting; section declarations have the array rewritten with the
// combined list.
func appendDependencyFeatures(file *tomlFile, name string, missing, combined []string) bool {
	if start, end, ok := file.findTable("dependencies"); ok {
		if idx, ok := file.findKey(start, end, name); ok {
			if line, ok := appendToInlineArray(file.lines[idx], "features", missing); ok {
				file.replaceLine(idx, line)
				return true
			}
			line, ok := insertIntoInlineTable(file.lines[idx], []string{"features = " + renderTOMLArray(combined)})
			if !ok {
				return false
			}
			file.replaceLine(idx, line)
			return true
		}
	}

	if start, end, ok := file.findTable("dependencies." + name); ok {
		file.setKey(start, end, "features", renderTOMLArray(combined))
		return true
	}
	return false
}
