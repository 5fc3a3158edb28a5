// vzb - command-line client for the vizbench data workbench
//
// Uploads CSV/Excel files to a vizbench backend, then shows the AI summary
// and chart specs for a file and lets you chat with the assistant about it.
// Chart specs are resolved locally from the backend's suggestions and the
// file's raw rows.
package main

import (
	"fmt"
	"os"

	"github.com/vizbench/vzb/internal/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
