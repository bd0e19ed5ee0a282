// Package main provides the VoiceDNA command line tool.
//
// Usage:
//
//	voicedna [flags] <command> [args]
//
// Commands:
//
//	convert  - Convert a recording with a voice model
//	inspect  - Describe a model artifact
//	pack     - Build a model artifact from a TOML description
//	history  - List recorded conversion runs
//
// Configuration:
//
//	Settings are read from a TOML file (--config or $VOICEDNA_CONFIG),
//	then VOICEDNA_* environment variables, then flags.
package main

import (
	"fmt"
	"os"

	"github.com/himanishpuri/VoiceDNA/cmd/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
