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

// Package config loads the RDE configuration from rde.yaml, layered over a
// .env file and the process environment. Secrets belong in the environment;
// the yaml file holds everything else.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no explicit
// path is given.
const DefaultFileName = "rde.yaml"

// OpenAI configures the LLM provider. The section name is historical; it
// covers OpenAI, Azure OpenAI, and Anthropic.
type OpenAI struct {
	// Endpoint overrides the provider base URL. Required for Azure.
	Endpoint string `yaml:"endpoint"`

	// ChatApiKey authenticates requests. Falls back to OPENAI_API_KEY or
	// ANTHROPIC_API_KEY depending on the provider.
	ChatApiKey string `yaml:"chat_api_key"`

	// ChatModel generates documentation content.
	ChatModel string `yaml:"chat_model"`

	// AnalysisModel handles classification and outline analysis. Empty
	// falls back to ChatModel.
	AnalysisModel string `yaml:"analysis_model"`

	// ModelProvider selects the backend: OpenAI, AzureOpenAI, or Anthropic.
	ModelProvider string `yaml:"model_provider"`
}

// Document configures pipeline behavior.
type Document struct {
	// EnableSmartFilter lets the model compact manifests of large trees.
	EnableSmartFilter bool `yaml:"enable_smart_filter"`

	// EnableCodeCompression strips comments from code read by the model.
	EnableCodeCompression bool `yaml:"enable_code_compression"`

	// EnableCodeDependencyAnalysis is the global dependency analysis
	// switch. The code analysis plugin must also be enabled for the
	// dependency tools to appear.
	EnableCodeDependencyAnalysis bool `yaml:"enable_code_dependency_analysis"`

	// CatalogueFormat selects the file tree rendering: compact, json, or
	// pathlist.
	CatalogueFormat string `yaml:"catalogue_format"`

	// UpdateIntervalDays is the documentation staleness threshold for the
	// incremental updater. Zero disables updating.
	UpdateIntervalDays int `yaml:"update_interval_days"`

	// EnableWarehouseCommit records generated documents back into the
	// working tree as commits.
	EnableWarehouseCommit bool `yaml:"enable_warehouse_commit"`
}

// Plugins configures optional kernel capabilities.
type Plugins struct {
	// CodeAnalysisEnabled exposes the dependency analysis tools to the
	// model when the global dependency analysis switch is also on.
	CodeAnalysisEnabled bool `yaml:"code_analysis_enabled"`
}

// Config is the root configuration.
type Config struct {
	// DataDir holds the store database. Defaults to ~/.rde/data.
	DataDir string `yaml:"data_dir"`

	// ReposDir holds cloned working trees. Defaults to ~/.rde/repos.
	ReposDir string `yaml:"repos_dir"`

	OpenAI   OpenAI   `yaml:"openai"`
	Document Document `yaml:"document"`
	Plugins  Plugins  `yaml:"plugins"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		OpenAI: OpenAI{
			ModelProvider: "OpenAI",
		},
		Document: Document{
			EnableSmartFilter:            true,
			EnableCodeDependencyAnalysis: true,
			CatalogueFormat:              "compact",
			UpdateIntervalDays:           7,
		},
		Plugins: Plugins{
			CodeAnalysisEnabled: true,
		},
	}
}

// Load reads the configuration file at path, layering it over defaults. A
// .env file next to the config is loaded into the environment first; missing
// files of either kind are not errors.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultFileName
	}

	// Secrets first, so ${VAR} style fallbacks in code see them.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return withDirDefaults(cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return withDirDefaults(cfg)
}

func withDirDefaults(cfg Config) (Config, error) {
	if cfg.DataDir == "" || cfg.ReposDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolve home dir: %w", err)
		}
		if cfg.DataDir == "" {
			cfg.DataDir = filepath.Join(home, ".rde", "data")
		}
		if cfg.ReposDir == "" {
			cfg.ReposDir = filepath.Join(home, ".rde", "repos")
		}
	}
	return cfg, nil
}

// Validate checks the fields that have a closed value set.
func (c Config) Validate() error {
	switch c.OpenAI.ModelProvider {
	case "", "OpenAI", "AzureOpenAI", "Anthropic":
	default:
		return fmt.Errorf("unknown model_provider %q (supported: OpenAI, AzureOpenAI, Anthropic)", c.OpenAI.ModelProvider)
	}
	switch c.Document.CatalogueFormat {
	case "", "compact", "json", "pathlist":
	default:
		return fmt.Errorf("unknown catalogue_format %q (supported: compact, json, pathlist)", c.Document.CatalogueFormat)
	}
	if c.Document.UpdateIntervalDays < 0 {
		return fmt.Errorf("update_interval_days must not be negative")
	}
	return nil
}

// Write saves the configuration to path, creating parent directories.
func (c Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
