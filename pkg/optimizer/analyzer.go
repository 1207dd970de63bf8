package optimizer

import "github.com/BurntSushi/toml"

// IsWasmCrate reports whether manifest content declares a wasm-bindgen
// dependency or carries wasm-pack metadata. Unparseable content counts
// as not a wasm crate.
func IsWasmCrate(content string) bool {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		return false
	}

	if deps, err := tableAt(doc, "dependencies"); err == nil && hasKey(deps, "wasm-bindgen") {
		return true
	}
	metadata, err := tableAt(doc, "package", "metadata")
	return err == nil && hasKey(metadata, "wasm-pack")
}
