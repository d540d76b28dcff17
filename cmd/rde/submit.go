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
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rde/internal/bootstrap"
	"github.com/kraklabs/rde/internal/config"
	"github.com/kraklabs/rde/internal/errors"
	"github.com/kraklabs/rde/internal/output"
	"github.com/kraklabs/rde/internal/ui"
	"github.com/kraklabs/rde/pkg/gitrepo"
	"github.com/kraklabs/rde/pkg/store"
)

// SubmitResult represents a queued repository for JSON output.
type SubmitResult struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Type    string `json:"type"`
	Branch  string `json:"branch,omitempty"`
	Status  string `json:"status"`
}

// runSubmit executes the 'submit' CLI command, queueing a repository for
// documentation.
//
// The address is either a git URL or a local directory. Local directories
// are resolved to absolute paths and queued as file repositories; anything
// else must be a valid http(s) or git URL.
//
// Flags:
//   - --branch: Branch to clone (default: the remote default branch)
//   - --username: Username for private repositories
//   - --password: Password or token for private repositories
//   - --json: Output the queued row as JSON
//
// Examples:
//
//	rde submit https://github.com/gin-gonic/gin
//	rde submit https://github.com/org/private --username bot --password $TOKEN
//	rde submit /src/myproject
func runSubmit(args []string, configPath string, noColor bool, logger *slog.Logger) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	var (
		branch     = fs.String("branch", "", "Branch to clone")
		username   = fs.String("username", "", "Username for private repositories")
		password   = fs.String("password", "", "Password or token for private repositories")
		jsonOutput = fs.Bool("json", false, "Output as JSON")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rde submit <address> [options]

Queues a git URL or local directory for documentation.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	ui.InitColors(noColor)

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	address := fs.Arg(0)

	repoType, address, err := detectRepoType(address)
	if err != nil {
		errors.FatalError(err, *jsonOutput)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		errors.FatalError(err, *jsonOutput)
	}
	app, err := bootstrap.Open(cfg, logger)
	if err != nil {
		errors.FatalError(err, *jsonOutput)
	}
	defer func() { _ = app.Close() }()

	repo, err := app.Store.CreateRepository(store.Repository{
		Address:  address,
		Branch:   *branch,
		Username: *username,
		Password: *password,
		Type:     repoType,
	})
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot queue repository",
			err.Error(),
			"Check that the data directory is writable and not locked by another process",
			err,
		), *jsonOutput)
	}

	if *jsonOutput {
		_ = output.JSON(SubmitResult{
			ID:      repo.ID,
			Address: repo.Address,
			Type:    string(repo.Type),
			Branch:  repo.Branch,
			Status:  string(repo.Status),
		})
		return
	}

	ui.Successf("Submitted repository %s", repo.Address)
	fmt.Printf("  ID:     %s\n", repo.ID)
	fmt.Printf("  Type:   %s\n", repo.Type)
	if repo.Branch != "" {
		fmt.Printf("  Branch: %s\n", repo.Branch)
	}
	fmt.Println()
	fmt.Println("Run 'rde worker' to start processing.")
}

// detectRepoType classifies the address. Existing local directories become
// file repositories with an absolute address; everything else must be a
// valid git URL.
func detectRepoType(address string) (store.RepoType, string, error) {
	if info, err := os.Stat(address); err == nil {
		if !info.IsDir() {
			return "", "", errors.NewInputError(
				"Address is a file, not a directory",
				fmt.Sprintf("%s exists but is not a directory", address),
				"Pass the repository root directory instead",
			)
		}
		abs, err := filepath.Abs(address)
		if err != nil {
			return "", "", fmt.Errorf("resolve %s: %w", address, err)
		}
		return store.RepoTypeFile, abs, nil
	}

	if err := gitrepo.ValidateURL(address); err != nil {
		return "", "", errors.NewInputError(
			"Invalid repository address",
			err.Error(),
			"Pass an http(s) or git URL, or an existing local directory",
		)
	}
	return store.RepoTypeGit, address, nil
}
