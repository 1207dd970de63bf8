package pipeline

// WasmTarget is the compilation target triple passed to cargo.
type WasmTarget string

const (
	TargetWasm32UnknownUnknown WasmTarget = "wasm32-unknown-unknown"
	TargetWasm32WASI           WasmTarget = "wasm32-wasi"
	TargetWasm32Emscripten     WasmTarget = "wasm32-unknown-emscripten"
)

// BindgenTarget selects the JavaScript module flavor wasm-bindgen emits.
type BindgenTarget string

const (
	BindgenWeb       BindgenTarget = "web"
	BindgenNodeJS    BindgenTarget = "nodejs"
	BindgenBundler   BindgenTarget = "bundler"
	BindgenDeno      BindgenTarget = "deno"
	BindgenNoModules BindgenTarget = "no-modules"
)

// WasmOptLevel is the optimization level flag passed to wasm-opt.
type WasmOptLevel string

const (
	OptLevelO1 WasmOptLevel = "-O1"
	OptLevelO2 WasmOptLevel = "-O2"
	OptLevelO3 WasmOptLevel = "-O3"
	OptLevelO4 WasmOptLevel = "-O4"
	OptLevelOz WasmOptLevel = "-Oz"
)

// Config controls which stages the pipeline runs and with what arguments.
type Config struct {
	Target WasmTarget

	// Profile is the cargo profile to build. It also names the directory
	// under the target dir where cargo deposits the artifact.
	Profile string

	// TargetDir overrides cargo's target directory when non-empty.
	TargetDir string

	BindgenTarget BindgenTarget
	RunWasmOpt    bool
	RunWasmSnip   bool
	OptLevel      WasmOptLevel
}

// DefaultConfig returns the size-focused defaults: a release build for the
// browser target with wasm-opt -Oz enabled and wasm-snip off.
func DefaultConfig() Config {
	return Config{
		Target:        TargetWasm32UnknownUnknown,
		Profile:       "release",
		BindgenTarget: BindgenWeb,
		RunWasmOpt:    true,
		OptLevel:      OptLevelOz,
	}
}
