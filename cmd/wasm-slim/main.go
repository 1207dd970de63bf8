package main

import (
	"fmt"
	"os"

	"github.com/wasm-slim/wasm-slim/pkg/cli"
)

// version is stamped by the linker at release time.
var version = "dev"

func main() {
	rootCmd := cli.NewRootCommand(version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError(err))
		os.Exit(cli.ExitCode(err))
	}
}
