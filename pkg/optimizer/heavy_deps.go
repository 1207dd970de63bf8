package optimizer

import "strings"

// heavyDependencies maps crates whose default feature sets carry large
// transitive weight to the minimal feature list that keeps common WASM
// use cases working. A nil list means the crate needs only
// default-features = false.
var heavyDependencies = map[string][]string{
	"lopdf": {"pom_parser"},
	"image": {"png"},
	"regex": nil,
}

// wasmCompatFeatures returns the getrandom feature required for browser
// targets. The flag was renamed between releases: 0.2 uses "js", 0.3 and
// later use "wasm_js".
func wasmCompatFeatures(version string) []string {
	if strings.HasPrefix(version, "0.2") || strings.HasPrefix(version, "^0.2") {
		return []string{"js"}
	}
	return []string{"wasm_js"}
}
