// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the RDE CLI for submitting repositories and
// running the documentation worker.
//
// Usage:
//
//	rde init                        Create rde.yaml and the data layout
//	rde submit <address>            Queue a repository for documentation
//	rde worker                      Run the processing worker
//	rde status [--json]             Show repository queue status
//	rde reset                       Requeue failed repositories
package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// main is the entry point for the RDE CLI.
//
// It parses global flags and dispatches to command handlers.
//
// Global flags:
//   - --version: Display version information and exit
//   - --config: Path to rde.yaml configuration file
//   - --no-color: Disable colored output
//   - --verbose: Enable debug logging
//
// Commands:
//   - init: Create rde.yaml and initialize the data directories
//   - submit: Queue a git URL or local directory for documentation
//   - worker: Run the processing worker and incremental updater
//   - status: Show the repository queue and documentation progress
//   - reset: Requeue failed repositories
func main() {
	// Global flags
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to rde.yaml (default: ./rde.yaml)")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `RDE - Repository Documentation Engine

RDE turns a code repository into a browsable documentation site: it
clones the repository, asks a language model to read and classify the
code, and generates an overview, a mind map, and a structured set of
documentation pages. A background updater keeps the documentation in
sync with new commits.

Usage:
  rde <command> [options]

Commands:
  init      Create rde.yaml and initialize the data directories
  submit    Queue a git URL or local directory for documentation
  worker    Run the processing worker and incremental updater
  status    Show the repository queue and documentation progress
  reset     Requeue failed repositories

Global Options:
  --config      Path to rde.yaml
  --no-color    Disable colored output
  --verbose     Enable debug logging
  --version     Show version and exit

Examples:
  rde init                                    Create default configuration
  rde submit https://github.com/gin-gonic/gin Queue a public repository
  rde submit /src/myproject                   Queue a local directory
  rde worker                                  Start processing the queue
  rde status --json                           Output queue as JSON

Getting Started:
  1. Initialize configuration:  rde init
  2. Queue a repository:        rde submit <address>
  3. Start the worker:          rde worker
  4. Check progress:            rde status

Data Storage:
  The database lives in ~/.rde/data and cloned working trees in
  ~/.rde/repos unless overridden in rde.yaml.

Environment Variables:
  OPENAI_API_KEY       API key for the OpenAI provider
  ANTHROPIC_API_KEY    API key for the Anthropic provider

For detailed command help: rde <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("rde version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	logger := newLogger(*verbose)

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, *configPath, logger)
	case "submit":
		runSubmit(cmdArgs, *configPath, *noColor, logger)
	case "worker":
		runWorker(cmdArgs, *configPath, logger)
	case "status":
		runStatus(cmdArgs, *configPath, *noColor, logger)
	case "reset":
		runReset(cmdArgs, *configPath, *noColor, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

// newLogger builds the process logger. Logs go to stderr so that stdout
// stays clean for --json output.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
