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

package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rde/internal/bootstrap"
	"github.com/kraklabs/rde/internal/config"
	"github.com/kraklabs/rde/internal/errors"
	"github.com/kraklabs/rde/internal/output"
	"github.com/kraklabs/rde/internal/ui"
)

// ResetResult represents the reset outcome for JSON output.
type ResetResult struct {
	Requeued int `json:"requeued"`
}

// runReset executes the 'reset' CLI command, requeueing failed repositories.
//
// Failed rows go back to Pending with their error and lease cleared, so the
// next worker iteration picks them up again.
//
// Flags:
//   - --json: Output the count as JSON
//
// Examples:
//
//	rde reset
func runReset(args []string, configPath string, noColor bool, logger *slog.Logger) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rde reset [options]

Requeues failed repositories for another processing attempt.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	ui.InitColors(noColor)

	cfg, err := config.Load(configPath)
	if err != nil {
		errors.FatalError(err, *jsonOutput)
	}
	app, err := bootstrap.Open(cfg, logger)
	if err != nil {
		errors.FatalError(err, *jsonOutput)
	}
	defer func() { _ = app.Close() }()

	n, err := app.Store.ResetFailed()
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot reset failed repositories",
			err.Error(),
			"Check that the data directory is writable and not locked by another process",
			err,
		), *jsonOutput)
	}

	if *jsonOutput {
		_ = output.JSON(ResetResult{Requeued: n})
		return
	}
	if n == 0 {
		ui.Info("No failed repositories to requeue.")
		return
	}
	ui.Successf("Requeued %d failed repositories", n)
}
