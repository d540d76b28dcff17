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

// Package pipeline turns a checked-out repository into its documentation
// artifacts: readme, directory manifest, classification, mind map, overview,
// catalogue forest, per-page documents, and changelog. Stages persist their
// outputs as they complete, so a rerun resumes from store state instead of
// starting over.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kraklabs/rde/pkg/gitrepo"
	"github.com/kraklabs/rde/pkg/kernel"
	"github.com/kraklabs/rde/pkg/store"
)

// smartFilterThreshold is the file count at which the directory simplifier
// kicks in. The cutoff is strict: exactly 800 files goes through the model.
const smartFilterThreshold = 800

// Config holds the pipeline behavior switches.
type Config struct {
	// EnableSmartFilter lets the model compact large directory manifests.
	EnableSmartFilter bool

	// CatalogueFormat selects the scanner render form for directory
	// manifests (compact, json, pathlist). Empty renders compact.
	CatalogueFormat string
}

// Pipeline drives the stage sequence for one repository at a time.
type Pipeline struct {
	store  *store.Store
	kernel *kernel.Kernel
	git    *gitrepo.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a pipeline. git may be nil when only file repositories are
// processed; the changelog stage then skips itself.
func New(st *store.Store, k *kernel.Kernel, git *gitrepo.Client, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{store: st, kernel: k, git: git, cfg: cfg, logger: logger}
}

// state carries the inter-stage values of one run.
type state struct {
	repo     *store.Repository
	doc      *store.Document
	readme   string
	manifest string
}

type stage struct {
	name string
	run  func(ctx context.Context, st *state) error
}

// Run executes stages 1 through 8 in order against a claimed repository.
// Earlier outputs already present in the store are reused, which makes the
// whole sequence safe to re-enter after a crash.
func (p *Pipeline) Run(ctx context.Context, repo *store.Repository, doc *store.Document) error {
	st := &state{repo: repo, doc: doc}

	stages := []stage{
		{"readme", p.stageReadme},
		{"catalogue", p.stageCatalogue},
		{"classify", p.stageClassify},
		{"mindmap", p.stageMindMap},
		{"overview", p.stageOverview},
		{"catalogue_think", p.stageCatalogueThink},
		{"per_doc", p.stagePerDoc},
		{"changelog", p.stageChangeLog},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		p.logger.Info("pipeline.stage.start",
			"repository.id", repo.ID,
			"stage", s.name,
		)
		if err := s.run(ctx, st); err != nil {
			stageFailures.WithLabelValues(s.name).Inc()
			p.logger.Error("pipeline.stage.failed",
				"repository.id", repo.ID,
				"stage", s.name,
				"error", err,
			)
			return fmt.Errorf("stage %s: %w", s.name, err)
		}
		stageDuration.WithLabelValues(s.name).Observe(time.Since(started).Seconds())
		p.logger.Info("pipeline.stage.done",
			"repository.id", repo.ID,
			"stage", s.name,
			"elapsed", time.Since(started),
		)
	}
	return nil
}

// invokeLLM runs one prompt invocation under a retry policy. Only the
// complete response matters here; stages that need deltas go through
// Kernel.InvokeStreaming directly.
func (p *Pipeline) invokeLLM(ctx context.Context, stageName, promptName, template string, vars map[string]string, dc *kernel.DocumentContext, policy backoff.BackOff) (string, error) {
	var out string
	op := func() error {
		stageAttempts.WithLabelValues(stageName).Inc()
		res, err := p.kernel.InvokeTemplate(ctx, promptName, template, vars, dc, nil)
		if err != nil {
			p.logger.Warn("pipeline.llm.retry",
				"stage", stageName,
				"prompt", promptName,
				"error", err,
			)
			return err
		}
		out = res
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return out, nil
}
