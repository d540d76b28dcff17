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
)

// runInit executes the 'init' CLI command, creating rde.yaml and the data
// layout.
//
// It writes a default configuration file (unless one exists), then creates
// the data and repository directories and the database. Re-running init
// against an existing installation is safe.
//
// Flags:
//   - --force: Overwrite an existing rde.yaml with defaults
//   - --data-dir: Database directory (default: ~/.rde/data)
//   - --repos-dir: Cloned working tree directory (default: ~/.rde/repos)
//   - --provider: Model provider (OpenAI, AzureOpenAI, Anthropic)
//   - --model: Chat model name
//   - --endpoint: Provider base URL override
//
// Examples:
//
//	rde init                                 Create default configuration
//	rde init --provider Anthropic --model claude-sonnet-4-5
//	rde init --data-dir /var/lib/rde/data
func runInit(args []string, configPath string, logger *slog.Logger) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var (
		force    = fs.Bool("force", false, "Overwrite existing configuration")
		dataDir  = fs.String("data-dir", "", "Database directory (default: ~/.rde/data)")
		reposDir = fs.String("repos-dir", "", "Cloned working tree directory (default: ~/.rde/repos)")
		provider = fs.String("provider", "", "Model provider (OpenAI, AzureOpenAI, Anthropic)")
		model    = fs.String("model", "", "Chat model name")
		endpoint = fs.String("endpoint", "", "Provider base URL override")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rde init [options]

Creates rde.yaml and initializes the data directories.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if configPath == "" {
		configPath = config.DefaultFileName
	}

	cfg, created, err := initConfigFile(configPath, *force, func(c *config.Config) {
		if *dataDir != "" {
			c.DataDir = *dataDir
		}
		if *reposDir != "" {
			c.ReposDir = *reposDir
		}
		if *provider != "" {
			c.OpenAI.ModelProvider = *provider
		}
		if *model != "" {
			c.OpenAI.ChatModel = *model
		}
		if *endpoint != "" {
			c.OpenAI.Endpoint = *endpoint
		}
	})
	if err != nil {
		errors.FatalError(err, false)
	}

	if err := bootstrap.Init(cfg, logger); err != nil {
		errors.FatalError(err, false)
	}

	if created {
		fmt.Printf("Created %s\n", configPath)
	} else {
		fmt.Printf("Keeping existing %s\n", configPath)
	}
	fmt.Printf("Initialized data directory %s\n", cfg.DataDir)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Set OPENAI_API_KEY (or chat_api_key in rde.yaml)")
	fmt.Println("  2. Queue a repository:  rde submit <address>")
	fmt.Println("  3. Start the worker:    rde worker")
}

// initConfigFile loads or creates the configuration at path. An existing
// file is kept unless force is set; a new file starts from defaults with
// the flag overrides applied.
func initConfigFile(path string, force bool, apply func(*config.Config)) (config.Config, bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		cfg, err := config.Load(path)
		if err != nil {
			return cfg, false, errors.NewConfigError(
				"Cannot read existing configuration",
				err.Error(),
				fmt.Sprintf("Fix or remove %s, or pass --force to overwrite it", path),
				err,
			)
		}
		return cfg, false, nil
	}

	cfg := config.Default()
	apply(&cfg)
	if cfg.DataDir == "" || cfg.ReposDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, false, fmt.Errorf("resolve home dir: %w", err)
		}
		if cfg.DataDir == "" {
			cfg.DataDir = filepath.Join(home, ".rde", "data")
		}
		if cfg.ReposDir == "" {
			cfg.ReposDir = filepath.Join(home, ".rde", "repos")
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, false, errors.NewInputError(
			"Invalid configuration",
			err.Error(),
			"Check the --provider and other flag values",
		)
	}
	if err := cfg.Write(path); err != nil {
		return cfg, false, errors.NewPermissionError(
			"Cannot write configuration",
			err.Error(),
			fmt.Sprintf("Check write permissions for %s", path),
			err,
		)
	}
	return cfg, true, nil
}
