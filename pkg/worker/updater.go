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

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/rde/pkg/gitrepo"
	"github.com/kraklabs/rde/pkg/kernel"
	"github.com/kraklabs/rde/pkg/prompts"
	"github.com/kraklabs/rde/pkg/store"
)

// RunUpdater periodically refreshes completed repositories whose
// documentation is older than the configured interval. Only git repositories
// are refreshed; a local directory has no history to diff against. Each
// refresh holds the repository lease for its duration, so concurrent
// workers never rewrite the same row or working tree.
func (w *Worker) RunUpdater(ctx context.Context) error {
	w.logger.Info("updater.start",
		"interval", w.cfg.UpdateInterval,
		"period", w.cfg.UpdateCheckPeriod,
	)
	ticker := time.NewTicker(w.cfg.UpdateCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := w.updatePass(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("updater.pass.failed", "error", err)
		}
	}
}

func (w *Worker) updatePass(ctx context.Context) error {
	if w.cfg.UpdateInterval <= 0 {
		return nil
	}
	repos, err := w.store.ListRepositories()
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().Add(-w.cfg.UpdateInterval)

	for i := range repos {
		repo := &repos[i]
		if repo.Status != store.StatusCompleted || repo.Type != store.RepoTypeGit {
			continue
		}
		doc, err := w.store.GetDocument(repo.ID)
		if err != nil || !doc.LastUpdate.Before(cutoff) {
			continue
		}

		// A refresh rewrites the row and pulls into the working tree, so it
		// runs under the same lease discipline as initial processing.
		claimed, err := w.store.ClaimForUpdate(repo.ID, w.cfg.Owner, w.cfg.LeaseTTL)
		if err != nil {
			return err
		}
		if claimed == nil {
			continue
		}

		if err := w.UpdateOne(ctx, claimed); err != nil {
			w.logger.Error("updater.repository.failed",
				"repository.id", repo.ID,
				"error", err,
			)
			if _, relErr := w.store.ReleaseLease(repo.ID, store.StatusFailed, err.Error()); relErr != nil {
				return relErr
			}
			_ = sleep(ctx, idleSleep)
			continue
		}
		if _, err := w.store.ReleaseLease(repo.ID, store.StatusCompleted, ""); err != nil {
			return err
		}
	}
	return nil
}

// UpdateOne pulls new commits, asks the model which catalogue entries they
// touch, applies the returned actions, and regenerates the affected pages.
func (w *Worker) UpdateOne(ctx context.Context, repo *store.Repository) error {
	pull, err := w.git.Pull(ctx, repo.LocalPath, repo.Version, repo.Username, repo.Password)
	if err != nil {
		return fmt.Errorf("pull %s: %w", repo.LocalPath, err)
	}
	if len(pull.Commits) == 0 {
		return w.finishUpdate(repo, pull.HeadVersion)
	}
	w.logger.Info("updater.commits.found",
		"repository.id", repo.ID,
		"commits", len(pull.Commits),
	)

	summary, err := w.commitSummary(ctx, repo, pull.Commits)
	if err != nil {
		return err
	}
	existing, err := w.store.ListCatalogue(repo.ID, false)
	if err != nil {
		return err
	}

	k := kernel.New(w.provider, repo.LocalPath, w.cfg.Kernel, w.logger)
	out, err := k.InvokePrompt(ctx, prompts.AnalyzeNewCatalogue, map[string]string{
		"git_commit":         summary,
		"document_catalogue": catalogueJSON(existing),
		"catalogue":          repo.OptimizedDirectoryStructure,
		"git_repository":     repo.Address,
	}, kernel.NewDocumentContext())
	if err != nil {
		return fmt.Errorf("analyze new catalogue: %w", err)
	}

	var diff catalogueDiff
	if err := json.Unmarshal([]byte(prompts.ExtractJSON(out, "response")), &diff); err != nil {
		return fmt.Errorf("parse catalogue diff: %w", err)
	}
	if err := w.applyCatalogueDiff(repo, existing, diff); err != nil {
		return err
	}

	pipe := w.newPipeline(repo.LocalPath)
	if err := pipe.GenerateIncompleteDocs(ctx, repo); err != nil {
		return err
	}

	// The commit record set reflects the latest update window, oldest first.
	records := make([]store.CommitRecord, 0, len(pull.Commits))
	for i := len(pull.Commits) - 1; i >= 0; i-- {
		records = append(records, store.CommitRecord{
			Title:       pull.Commits[i].Title,
			Description: pull.Commits[i].Body,
			Date:        pull.Commits[i].Date,
		})
	}
	if err := w.store.ReplaceCommitRecords(repo.ID, records); err != nil {
		return err
	}
	return w.finishUpdate(repo, pull.HeadVersion)
}

func (w *Worker) finishUpdate(repo *store.Repository, headVersion string) error {
	if _, err := w.store.UpdateRepository(repo.ID, func(r *store.Repository) {
		r.Version = headVersion
	}); err != nil {
		return err
	}
	return w.store.TouchDocument(repo.ID)
}

// commitSummary renders the new commits as blocks the analysis prompt
// understands: the message followed by one status line per changed file.
func (w *Worker) commitSummary(ctx context.Context, repo *store.Repository, commits []gitrepo.Commit) (string, error) {
	var sb strings.Builder
	for _, c := range commits {
		changes, err := w.git.Diff(ctx, repo.LocalPath, c.Hash+"^", c.Hash)
		if err != nil {
			// Root commits have no parent; summarize the message alone.
			changes = nil
		}
		sb.WriteString(formatCommitBlock(c, changes))
	}
	return sb.String(), nil
}

func formatCommitBlock(c gitrepo.Commit, changes []gitrepo.ChangedFile) string {
	var sb strings.Builder
	sb.WriteString("<commit>\n")
	sb.WriteString(c.Title)
	sb.WriteString("\n")
	for _, ch := range changes {
		fmt.Fprintf(&sb, " - %s: %s\n", ch.Status, ch.Path)
	}
	sb.WriteString("</commit>\n")
	return sb.String()
}

// catalogueDiff is the action set the model returns for stale documentation.
// Entries reference catalogue nodes by title slug.
type catalogueDiff struct {
	Add []struct {
		Title       string `json:"title"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Prompt      string `json:"prompt,omitempty"`
		Parent      string `json:"parent,omitempty"`
	} `json:"add"`
	Update []struct {
		Title  string `json:"title"`
		Prompt string `json:"prompt,omitempty"`
	} `json:"update"`
	Delete []string `json:"delete"`
}

// applyCatalogueDiff mutates the stored forest: deletions are soft, updated
// nodes drop their completed flag so stage 7 regenerates them, and additions
// start incomplete.
func (w *Worker) applyCatalogueDiff(repo *store.Repository, existing []store.CatalogueNode, diff catalogueDiff) error {
	byTitle := map[string]store.CatalogueNode{}
	for _, node := range existing {
		byTitle[node.Title] = node
	}

	for _, title := range diff.Delete {
		node, ok := byTitle[title]
		if !ok {
			continue
		}
		if _, err := w.store.UpdateCatalogueNode(repo.ID, node.ID, func(n *store.CatalogueNode) {
			n.IsDeleted = true
		}); err != nil {
			return err
		}
	}

	for _, upd := range diff.Update {
		node, ok := byTitle[upd.Title]
		if !ok {
			continue
		}
		if _, err := w.store.UpdateCatalogueNode(repo.ID, node.ID, func(n *store.CatalogueNode) {
			n.IsCompleted = false
			if upd.Prompt != "" {
				n.Prompt = upd.Prompt
			}
		}); err != nil {
			return err
		}
	}

	for _, add := range diff.Add {
		node := store.CatalogueNode{
			ID:           uuid.NewString(),
			RepositoryID: repo.ID,
			Title:        add.Title,
			Name:         add.Name,
			Description:  add.Description,
			Prompt:       add.Prompt,
			Order:        len(existing),
		}
		if node.Name == "" {
			node.Name = node.Title
		}
		node.URL = node.Title
		if parent, ok := byTitle[add.Parent]; ok {
			node.ParentID = parent.ID
			if parent.URL != "" {
				node.URL = parent.URL + "/" + node.Title
			}
		}
		if _, err := w.store.InsertCatalogueNode(node); err != nil {
			w.logger.Warn("updater.catalogue.add.skipped",
				"repository.id", repo.ID,
				"title", add.Title,
				"error", err,
			)
		}
	}
	return nil
}

func catalogueJSON(nodes []store.CatalogueNode) string {
	type entry struct {
		Title  string `json:"title"`
		Name   string `json:"name"`
		Parent string `json:"parent,omitempty"`
	}
	byID := map[string]store.CatalogueNode{}
	for _, node := range nodes {
		byID[node.ID] = node
	}
	entries := make([]entry, 0, len(nodes))
	for _, node := range nodes {
		e := entry{Title: node.Title, Name: node.Name}
		if parent, ok := byID[node.ParentID]; ok {
			e.Parent = parent.Title
		}
		entries = append(entries, e)
	}
	data, _ := json.Marshal(entries)
	return string(data)
}
