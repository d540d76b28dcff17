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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rde/internal/bootstrap"
	"github.com/kraklabs/rde/internal/config"
	"github.com/kraklabs/rde/internal/errors"
	"github.com/kraklabs/rde/internal/output"
	"github.com/kraklabs/rde/internal/ui"
	"github.com/kraklabs/rde/pkg/store"
)

// RepositoryStatus represents one queue row for JSON output.
type RepositoryStatus struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Classify   string    `json:"classify,omitempty"`
	DocsDone   int       `json:"docs_done"`
	DocsTotal  int       `json:"docs_total"`
	Error      string    `json:"error,omitempty"`
	LastUpdate time.Time `json:"last_update,omitempty"`
}

// StatusResult represents the full queue for JSON output.
type StatusResult struct {
	DataDir      string             `json:"data_dir"`
	Repositories []RepositoryStatus `json:"repositories"`
	Timestamp    time.Time          `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, displaying the repository
// queue and per-repository documentation progress.
//
// Progress counts documentation pages: a page is a live catalogue leaf, and
// it is done once its content has been generated and committed.
//
// Flags:
//   - --json: Output results as JSON (default: false)
//
// Examples:
//
//	rde status           Display formatted status
//	rde status --json    Output as JSON for programmatic use
func runStatus(args []string, configPath string, noColor bool, logger *slog.Logger) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rde status [options]

Shows the repository queue and documentation progress.

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

	repos, err := app.Store.ListRepositories()
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot list repositories",
			err.Error(),
			"Check that the data directory is readable",
			err,
		), *jsonOutput)
	}

	result := StatusResult{
		DataDir:   cfg.DataDir,
		Timestamp: time.Now(),
	}
	for i := range repos {
		result.Repositories = append(result.Repositories, repositoryStatus(app.Store, &repos[i]))
	}

	if *jsonOutput {
		_ = output.JSON(result)
		return
	}
	printStatus(result)
}

// repositoryStatus collects the row plus its documentation progress.
func repositoryStatus(st *store.Store, repo *store.Repository) RepositoryStatus {
	rs := RepositoryStatus{
		ID:       repo.ID,
		Address:  repo.Address,
		Type:     string(repo.Type),
		Status:   string(repo.Status),
		Classify: repo.Classify,
		Error:    repo.Error,
	}

	if doc, err := st.GetDocument(repo.ID); err == nil && doc != nil {
		rs.LastUpdate = doc.LastUpdate
	}

	nodes, err := st.ListCatalogue(repo.ID, false)
	if err != nil {
		return rs
	}
	hasChildren := map[string]bool{}
	for _, n := range nodes {
		if n.ParentID != "" {
			hasChildren[n.ParentID] = true
		}
	}
	for _, n := range nodes {
		if hasChildren[n.ID] {
			continue
		}
		rs.DocsTotal++
		if n.IsCompleted {
			rs.DocsDone++
		}
	}
	return rs
}

// printStatus prints the queue as formatted text to stdout.
func printStatus(result StatusResult) {
	ui.Header("RDE Repository Status")
	fmt.Printf("%s %s\n", ui.Label("Data Dir:"), result.DataDir)
	fmt.Println()

	if len(result.Repositories) == 0 {
		ui.Info("No repositories queued. Run 'rde submit <address>' to add one.")
		return
	}

	for _, rs := range result.Repositories {
		fmt.Printf("%s %s\n", statusBadge(rs.Status), rs.Address)
		fmt.Printf("  %s %s  %s %s\n", ui.Label("ID:"), ui.DimText(rs.ID), ui.Label("Type:"), rs.Type)
		if rs.Classify != "" {
			fmt.Printf("  %s %s\n", ui.Label("Classification:"), rs.Classify)
		}
		if rs.DocsTotal > 0 {
			fmt.Printf("  %s %s of %s pages generated\n",
				ui.Label("Progress:"), ui.CountText(rs.DocsDone), ui.CountText(rs.DocsTotal))
		}
		if !rs.LastUpdate.IsZero() {
			fmt.Printf("  %s %s\n", ui.Label("Last update:"), rs.LastUpdate.Format(time.RFC3339))
		}
		if rs.Error != "" {
			fmt.Printf("  %s %s\n", ui.Label("Error:"), rs.Error)
		}
		fmt.Println()
	}
}

// statusBadge maps a repository status to a colored marker.
func statusBadge(status string) string {
	switch store.Status(status) {
	case store.StatusCompleted:
		return ui.Green.Sprint("✓")
	case store.StatusFailed:
		return ui.Red.Sprint("✗")
	case store.StatusProcessing:
		return ui.Cyan.Sprint("▶")
	default:
		return ui.Yellow.Sprint("•")
	}
}
