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

package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kraklabs/rde/internal/config"
	"github.com/kraklabs/rde/pkg/gitrepo"
	"github.com/kraklabs/rde/pkg/kernel"
	"github.com/kraklabs/rde/pkg/llm"
	"github.com/kraklabs/rde/pkg/pipeline"
	"github.com/kraklabs/rde/pkg/store"
	"github.com/kraklabs/rde/pkg/worker"
)

// App bundles the long-lived components assembled from configuration.
type App struct {
	Config   config.Config
	Store    *store.Store
	Git      *gitrepo.Client
	Provider llm.Provider
	Logger   *slog.Logger
}

// Init creates the data and repository directories and the store database.
// It is idempotent: running it against an initialized layout succeeds.
func Init(cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("bootstrap.init.start",
		"data_dir", cfg.DataDir,
		"repos_dir", cfg.ReposDir,
	)
	for _, dir := range []string{cfg.DataDir, cfg.ReposDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	st, err := store.Open(store.Config{Path: cfg.DataDir, Logger: logger})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	logger.Info("bootstrap.init.success", "data_dir", cfg.DataDir)
	return nil
}

// Open assembles the application from configuration: the store, the git
// client, and the configured LLM provider. Callers own Close.
func Open(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("data directory %s not found (run 'rde init' first)", cfg.DataDir)
	}

	st, err := store.Open(store.Config{Path: cfg.DataDir, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	provider, err := llm.NewProvider(llm.ProviderConfig{
		Provider:     normalizeProvider(cfg.OpenAI.ModelProvider),
		Endpoint:     cfg.OpenAI.Endpoint,
		APIKey:       cfg.OpenAI.ChatApiKey,
		DefaultModel: cfg.OpenAI.ChatModel,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create provider: %w", err)
	}

	return &App{
		Config:   cfg,
		Store:    st,
		Git:      gitrepo.NewClient(cfg.ReposDir, logger),
		Provider: provider,
		Logger:   logger,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewWorker builds a worker wired to this application's components.
func (a *App) NewWorker(owner string) *worker.Worker {
	doc := a.Config.Document
	return worker.New(a.Store, a.Git, a.Provider, worker.Config{
		Owner:               owner,
		UpdateInterval:      time.Duration(doc.UpdateIntervalDays) * 24 * time.Hour,
		CommitGeneratedDocs: doc.EnableWarehouseCommit,
		Kernel: kernel.Config{
			Model:                    a.Config.OpenAI.ChatModel,
			AnalysisModel:            a.Config.OpenAI.AnalysisModel,
			CatalogueFormat:          doc.CatalogueFormat,
			EnableCodeCompression:    doc.EnableCodeCompression,
			CodeAnalysisPlugin:       a.Config.Plugins.CodeAnalysisEnabled,
			EnableDependencyAnalysis: doc.EnableCodeDependencyAnalysis,
		},
		Pipeline: pipeline.Config{
			EnableSmartFilter: doc.EnableSmartFilter,
			CatalogueFormat:   doc.CatalogueFormat,
		},
	}, a.Logger)
}

// normalizeProvider maps the configuration spelling onto the provider
// registry's names.
func normalizeProvider(name string) string {
	switch strings.ToLower(name) {
	case "", "openai":
		return "openai"
	case "azureopenai", "azure":
		return "azureopenai"
	case "anthropic", "claude":
		return "anthropic"
	default:
		return name
	}
}
