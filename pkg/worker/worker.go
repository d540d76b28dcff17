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

// Package worker runs the background loops: claiming queued repositories and
// driving the pipeline against them, and refreshing completed repositories
// whose documentation has gone stale. Multiple worker processes may share one
// store; the repository lease is the only coordination between them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/rde/pkg/gitrepo"
	"github.com/kraklabs/rde/pkg/kernel"
	"github.com/kraklabs/rde/pkg/llm"
	"github.com/kraklabs/rde/pkg/pipeline"
	"github.com/kraklabs/rde/pkg/store"
)

// idleSleep is the pause between polls when the queue is empty, and the
// pause after a failed repository before its lease is released.
const idleSleep = 5 * time.Second

var errUnsupportedType = errors.New("unsupported repository type")

// Config holds worker behavior. Kernel and Pipeline are passed through to
// the per-repository kernel and pipeline instances.
type Config struct {
	// Owner identifies this worker in leases. Empty derives one from the
	// hostname and a random suffix.
	Owner string

	// LeaseTTL must exceed the longest expected pipeline run; an expired
	// lease makes the repository claimable again.
	LeaseTTL time.Duration

	// UpdateInterval is the documentation staleness threshold.
	UpdateInterval time.Duration

	// UpdateCheckPeriod is how often the updater scans for stale work.
	UpdateCheckPeriod time.Duration

	// CommitGeneratedDocs writes generated pages into the working tree under
	// docs/ and commits them after a successful run. Git repositories only.
	CommitGeneratedDocs bool

	Kernel   kernel.Config
	Pipeline pipeline.Config
}

// Worker processes one repository at a time from the shared queue.
type Worker struct {
	store    *store.Store
	git      *gitrepo.Client
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
}

// New creates a worker. git handles clone and pull for git-type
// repositories.
func New(st *store.Store, git *gitrepo.Client, provider llm.Provider, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Owner == "" {
		host, _ := os.Hostname()
		cfg.Owner = fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
	}
	if cfg.LeaseTTL == 0 {
		cfg.LeaseTTL = store.DefaultLeaseTTL
	}
	if cfg.UpdateCheckPeriod == 0 {
		cfg.UpdateCheckPeriod = time.Hour
	}
	return &Worker{store: st, git: git, provider: provider, cfg: cfg, logger: logger}
}

// Owner returns the lease identity of this worker.
func (w *Worker) Owner() string { return w.cfg.Owner }

// Run polls the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker.start", "owner", w.cfg.Owner)
	for {
		claimed, err := w.ProcessOne(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("worker.iteration.failed", "error", err)
		}
		if !claimed {
			if err := sleep(ctx, idleSleep); err != nil {
				return err
			}
		}
	}
}

// ProcessOne claims and processes at most one repository. It reports whether
// a claim was made; a processing failure is recorded on the repository row
// and not returned as an error.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	repo, err := w.store.ClaimNext(w.cfg.Owner, w.cfg.LeaseTTL)
	if err != nil {
		return false, fmt.Errorf("claim repository: %w", err)
	}
	if repo == nil {
		return false, nil
	}

	w.logger.Info("worker.lease.acquired",
		"repository.id", repo.ID,
		"address", repo.Address,
		"type", repo.Type,
	)

	if err := w.process(ctx, repo); err != nil {
		w.logger.Error("worker.repository.failed",
			"repository.id", repo.ID,
			"error", err,
		)
		_ = sleep(ctx, idleSleep)
		// The document row mirrors the repository status in both outcomes.
		if _, docErr := w.store.UpsertDocument(repo.ID, "", store.StatusFailed); docErr != nil {
			return true, fmt.Errorf("record document failure: %w", docErr)
		}
		if _, releaseErr := w.store.ReleaseLease(repo.ID, store.StatusFailed, err.Error()); releaseErr != nil {
			return true, fmt.Errorf("release lease after failure: %w", releaseErr)
		}
		return true, nil
	}

	if _, err := w.store.ReleaseLease(repo.ID, store.StatusCompleted, ""); err != nil {
		return true, fmt.Errorf("release lease: %w", err)
	}
	w.logger.Info("worker.repository.completed", "repository.id", repo.ID)
	return true, nil
}

func (w *Worker) process(ctx context.Context, repo *store.Repository) error {
	workdir, err := w.prepareWorkingTree(ctx, repo)
	if err != nil {
		return err
	}
	repo, err = w.store.GetRepository(repo.ID)
	if err != nil {
		return err
	}

	doc, err := w.store.UpsertDocument(repo.ID, workdir, store.StatusProcessing)
	if err != nil {
		return err
	}

	pipe := w.newPipeline(workdir)
	if err := pipe.Run(ctx, repo, doc); err != nil {
		return err
	}

	if _, err := w.store.UpsertDocument(repo.ID, "", store.StatusCompleted); err != nil {
		return err
	}

	if w.cfg.CommitGeneratedDocs && repo.Type == store.RepoTypeGit {
		if err := w.commitDocs(ctx, repo); err != nil {
			w.logger.Warn("worker.docs.commit.failed",
				"repository.id", repo.ID,
				"error", err,
			)
		}
	}
	return nil
}

// prepareWorkingTree resolves the local path the pipeline will run against
// and records clone metadata on the repository row.
func (w *Worker) prepareWorkingTree(ctx context.Context, repo *store.Repository) (string, error) {
	switch repo.Type {
	case store.RepoTypeGit:
		res, err := w.git.Clone(ctx, repo.Address, repo.Username, repo.Password, repo.Branch)
		if err != nil {
			return "", fmt.Errorf("clone %s: %w", repo.Address, err)
		}
		if _, err := w.store.UpdateRepository(repo.ID, func(r *store.Repository) {
			r.LocalPath = res.LocalPath
			r.Name = res.Name
			r.Branch = res.Branch
			r.Organization = res.Organization
			r.Version = res.Version
		}); err != nil {
			return "", err
		}
		return res.LocalPath, nil

	case store.RepoTypeFile:
		info, err := os.Stat(repo.Address)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("local path %s is not a directory", repo.Address)
		}
		if _, err := w.store.UpdateRepository(repo.ID, func(r *store.Repository) {
			r.LocalPath = repo.Address
		}); err != nil {
			return "", err
		}
		return repo.Address, nil

	default:
		return "", errUnsupportedType
	}
}

func (w *Worker) newPipeline(workdir string) *pipeline.Pipeline {
	k := kernel.New(w.provider, workdir, w.cfg.Kernel, w.logger)
	return pipeline.New(w.store, k, w.git, w.cfg.Pipeline, w.logger)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
