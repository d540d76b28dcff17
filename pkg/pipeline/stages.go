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

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kraklabs/rde/pkg/kernel"
	"github.com/kraklabs/rde/pkg/prompts"
	"github.com/kraklabs/rde/pkg/scanner"
	"github.com/kraklabs/rde/pkg/store"
)

// readmeCandidates are probed in order before asking the model to write one.
var readmeCandidates = []string{"README.md", "README.txt", "readme.md", "readme.txt"}

// stageReadme resolves the repository readme: the cached value, an existing
// file in the working tree, or a generated one.
func (p *Pipeline) stageReadme(ctx context.Context, st *state) error {
	if st.repo.Readme != "" {
		st.readme = st.repo.Readme
		return nil
	}

	for _, name := range readmeCandidates {
		data, err := os.ReadFile(filepath.Join(p.kernel.Workdir(), name))
		if err == nil && len(data) > 0 {
			st.readme = string(data)
			break
		}
	}

	if st.readme == "" {
		raw, err := p.renderScan()
		if err != nil {
			return err
		}
		template, err := prompts.Get(prompts.GenerateReadme)
		if err != nil {
			return err
		}
		out, err := p.invokeLLM(ctx, "readme", prompts.GenerateReadme, template,
			map[string]string{
				"catalogue":      raw,
				"git_repository": st.repo.Address,
				"branch":         st.repo.Branch,
			}, kernel.NewDocumentContext(), llmPolicy(ctx))
		if err != nil {
			return err
		}
		st.readme = prompts.Extract(out, "readme")
	}

	repo, err := p.store.UpdateRepository(st.repo.ID, func(r *store.Repository) {
		r.Readme = st.readme
	})
	if err != nil {
		return err
	}
	st.repo = repo
	return nil
}

// stageCatalogue builds the directory manifest. Small trees are stored in
// the configured render form; large ones go through the directory
// simplifier, fed the same form.
func (p *Pipeline) stageCatalogue(ctx context.Context, st *state) error {
	if st.repo.OptimizedDirectoryStructure != "" {
		st.manifest = st.repo.OptimizedDirectoryStructure
		return nil
	}

	paths, err := scanner.Scan(p.kernel.Workdir())
	if err != nil {
		return fmt.Errorf("scan working tree: %w", err)
	}
	raw, err := scanner.Render(scanner.BuildTree(paths), p.cfg.CatalogueFormat)
	if err != nil {
		return fmt.Errorf("render directory tree: %w", err)
	}

	st.manifest = raw
	if p.cfg.EnableSmartFilter && scanner.CountFiles(paths) >= smartFilterThreshold {
		template, err := prompts.Get(prompts.CodeDirSimplifier)
		if err != nil {
			return err
		}
		out, err := p.invokeLLM(ctx, "catalogue", prompts.CodeDirSimplifier, template,
			map[string]string{
				"code_files": raw,
				"readme":     st.readme,
			}, kernel.NewDocumentContext(), simplifierPolicy(ctx))
		if err != nil {
			return err
		}
		st.manifest = prompts.Extract(out, "response_file")
	}

	repo, err := p.store.UpdateRepository(st.repo.ID, func(r *store.Repository) {
		r.OptimizedDirectoryStructure = st.manifest
	})
	if err != nil {
		return err
	}
	st.repo = repo
	return nil
}

// stageClassify assigns the repository one of the known categories. An answer
// outside the set leaves the classification unset, which later selects the
// base prompt variants.
func (p *Pipeline) stageClassify(ctx context.Context, st *state) error {
	if st.repo.Classify != "" {
		return nil
	}

	template, err := prompts.Get(prompts.RepositoryClassification)
	if err != nil {
		return err
	}
	out, err := p.invokeLLM(ctx, "classify", prompts.RepositoryClassification, template,
		map[string]string{
			"category": strings.Join(prompts.Classifications, "\n"),
			"readme":   st.readme,
		}, kernel.NewDocumentContext(), llmPolicy(ctx))
	if err != nil {
		return err
	}

	classify := prompts.ParseClassification(prompts.ExtractClassify(out))
	if classify == "" {
		p.logger.Warn("pipeline.classify.unparseable", "repository.id", st.repo.ID)
		return nil
	}

	repo, err := p.store.UpdateRepository(st.repo.ID, func(r *store.Repository) {
		r.Classify = classify
	})
	if err != nil {
		return err
	}
	st.repo = repo
	return nil
}

// stageMindMap regenerates the navigation tree from scratch on every run.
func (p *Pipeline) stageMindMap(ctx context.Context, st *state) error {
	template, err := prompts.Get(prompts.GenerateMindMap)
	if err != nil {
		return err
	}
	out, err := p.invokeLLM(ctx, "mindmap", prompts.GenerateMindMap, template,
		map[string]string{
			"catalogue":      st.manifest,
			"repository_url": st.repo.Address,
			"branch_name":    st.repo.Branch,
		}, kernel.NewDocumentContext(), llmPolicy(ctx))
	if err != nil {
		return err
	}

	nodes := parseMindMap(prompts.StripTag(out, "thinking"))
	ResolveMindMapURLs(st.repo.Address, st.repo.Branch, nodes)
	if _, err := p.store.ReplaceMindMap(st.repo.ID, nodes); err != nil {
		return err
	}
	return nil
}

// stageOverview regenerates the project overview on every run.
func (p *Pipeline) stageOverview(ctx context.Context, st *state) error {
	template, err := prompts.GetForClassification(prompts.Overview, st.repo.Classify)
	if err != nil {
		return err
	}
	out, err := p.invokeLLM(ctx, "overview", prompts.Overview, template,
		map[string]string{
			"catalogue":      st.manifest,
			"git_repository": st.repo.Address,
			"branch":         st.repo.Branch,
			"readme":         st.readme,
		}, kernel.NewDocumentContext(), llmPolicy(ctx))
	if err != nil {
		return err
	}

	content := prompts.Extract(prompts.StripTag(out, "project_analysis"), "blog")
	if _, err := p.store.ReplaceOverview(st.doc.ID, content); err != nil {
		return err
	}
	return nil
}

// catalogueItem is the outline node shape the model returns for the
// documentation structure.
type catalogueItem struct {
	Title       string          `json:"title"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Prompt      string          `json:"prompt,omitempty"`
	Children    []catalogueItem `json:"children,omitempty"`
}

// stageCatalogueThink asks the model for a documentation outline and replaces
// the stored forest with it, all nodes starting incomplete.
func (p *Pipeline) stageCatalogueThink(ctx context.Context, st *state) error {
	template, err := prompts.GetForClassification(prompts.AnalyzeCatalogue, st.repo.Classify)
	if err != nil {
		return err
	}
	out, err := p.invokeLLM(ctx, "catalogue_think", prompts.AnalyzeCatalogue, template,
		map[string]string{
			"code_files":         st.manifest,
			"git_repository_url": st.repo.Address,
			"repository_name":    st.repo.Name,
		}, kernel.NewDocumentContext(), llmPolicy(ctx))
	if err != nil {
		return err
	}

	var outline struct {
		Items []catalogueItem `json:"items"`
	}
	raw := prompts.ExtractJSON(out, "documentation_structure")
	if err := json.Unmarshal([]byte(raw), &outline); err != nil {
		return fmt.Errorf("parse documentation structure: %w", err)
	}
	if len(outline.Items) == 0 {
		return fmt.Errorf("documentation structure has no items")
	}

	nodes := flattenOutline(st.repo.ID, "", "", outline.Items)
	return p.store.ReplaceCatalogue(st.repo.ID, nodes)
}

func flattenOutline(repositoryID, parentID, parentURL string, items []catalogueItem) []store.CatalogueNode {
	var nodes []store.CatalogueNode
	for i, item := range items {
		// The url slug is the title path from the root, so slug uniqueness
		// follows from title uniqueness within a parent.
		url := item.Title
		if parentURL != "" {
			url = parentURL + "/" + item.Title
		}
		node := store.CatalogueNode{
			ID:           uuid.NewString(),
			RepositoryID: repositoryID,
			ParentID:     parentID,
			Title:        item.Title,
			Name:         item.Name,
			URL:          url,
			Description:  item.Description,
			Prompt:       item.Prompt,
			Order:        i,
		}
		if node.Name == "" {
			node.Name = node.Title
		}
		nodes = append(nodes, node)
		nodes = append(nodes, flattenOutline(repositoryID, node.ID, url, item.Children)...)
	}
	return nodes
}

// stagePerDoc generates one page per incomplete catalogue leaf.
func (p *Pipeline) stagePerDoc(ctx context.Context, st *state) error {
	return p.GenerateIncompleteDocs(ctx, st.repo)
}

// GenerateIncompleteDocs writes a FileItem for every live catalogue leaf not
// yet completed. It is shared between the full pipeline and the incremental
// updater, and each node commits independently so progress survives a crash
// mid-stage.
func (p *Pipeline) GenerateIncompleteDocs(ctx context.Context, repo *store.Repository) error {
	nodes, err := p.store.ListCatalogue(repo.ID, false)
	if err != nil {
		return err
	}

	hasChildren := map[string]bool{}
	for _, node := range nodes {
		if node.ParentID != "" {
			hasChildren[node.ParentID] = true
		}
	}

	template, err := prompts.Get(prompts.GenerateDocs)
	if err != nil {
		return err
	}

	for _, node := range nodes {
		if hasChildren[node.ID] || node.IsCompleted {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		dc := kernel.NewDocumentContext()
		out, err := p.invokeLLM(ctx, "per_doc", prompts.GenerateDocs, template,
			map[string]string{
				"git_repository": repo.Address,
				"branch":         repo.Branch,
				"title":          node.Name,
				"catalogue":      repo.OptimizedDirectoryStructure,
				"prompt":         node.Prompt,
			}, dc, llmPolicy(ctx))
		if err != nil {
			return fmt.Errorf("document %s: %w", node.Title, err)
		}

		item := store.FileItem{
			CatalogueID: node.ID,
			Title:       node.Name,
			Content:     prompts.Extract(out, "blog"),
			Sources:     dc.Files(),
		}
		if _, err := p.store.UpsertFileItem(item); err != nil {
			return err
		}
		if _, err := p.store.UpdateCatalogueNode(repo.ID, node.ID, func(n *store.CatalogueNode) {
			n.IsCompleted = true
		}); err != nil {
			return err
		}
		p.logger.Info("pipeline.doc.done",
			"repository.id", repo.ID,
			"node", node.Title,
			"sources", len(item.Sources),
		)
	}
	return nil
}

// stageChangeLog rebuilds the commit record set from git history. Local file
// repositories have no history and keep an empty set.
func (p *Pipeline) stageChangeLog(ctx context.Context, st *state) error {
	if st.repo.Type != store.RepoTypeGit || p.git == nil {
		return nil
	}

	commits, err := p.git.Log(ctx, p.kernel.Workdir(), "")
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	// Log is newest first; records are stored oldest first.
	records := make([]store.CommitRecord, 0, len(commits))
	for i := len(commits) - 1; i >= 0; i-- {
		records = append(records, store.CommitRecord{
			Title:       commits[i].Title,
			Description: commits[i].Body,
			Date:        commits[i].Date,
		})
	}
	return p.store.ReplaceCommitRecords(st.repo.ID, records)
}

func (p *Pipeline) renderScan() (string, error) {
	paths, err := scanner.Scan(p.kernel.Workdir())
	if err != nil {
		return "", fmt.Errorf("scan working tree: %w", err)
	}
	return scanner.Render(scanner.BuildTree(paths), p.cfg.CatalogueFormat)
}
