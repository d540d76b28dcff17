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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/rde/pkg/gitrepo"
	"github.com/kraklabs/rde/pkg/llm"
	"github.com/kraklabs/rde/pkg/store"
)

func newTestWorker(t *testing.T) (*Worker, *store.Store, *llm.MockProvider) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	mock := &llm.MockProvider{Model: "mock-model"}
	git := gitrepo.NewClient(t.TempDir(), nil)
	w := New(st, git, mock, Config{Owner: "test-worker"}, nil)
	return w, st, mock
}

func seedLocalRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# local\n\nA project.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	return dir
}

func TestProcessOneEmptyQueue(t *testing.T) {
	w, _, _ := newTestWorker(t)
	claimed, err := w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestProcessOneFileRepository(t *testing.T) {
	w, st, mock := newTestWorker(t)
	dir := seedLocalRepo(t)

	repo, err := st.CreateRepository(store.Repository{
		Address: dir,
		Name:    "local",
		Type:    store.RepoTypeFile,
	})
	require.NoError(t, err)

	mock.EnqueueText("<classify>classifyName:Applications</classify>")
	mock.EnqueueText("# local\n##Main:main.go\n")
	mock.EnqueueText("<blog>overview</blog>")
	mock.EnqueueText(`<documentation_structure>{"items":[{"title":"intro","name":"Intro","prompt":"p"}]}</documentation_structure>`)
	mock.EnqueueText("<blog>intro page</blog>")

	claimed, err := w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := st.GetRepository(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Empty(t, got.Error)
	assert.Equal(t, dir, got.LocalPath)
	assert.Equal(t, "Applications", got.Classify)

	doc, err := st.GetDocument(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, doc.Status)
}

func TestProcessOneUnsupportedType(t *testing.T) {
	w, st, _ := newTestWorker(t)

	repo, err := st.CreateRepository(store.Repository{
		Address: "/nowhere",
		Type:    store.RepoType("svn"),
	})
	require.NoError(t, err)

	claimed, err := w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := st.GetRepository(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
	assert.Equal(t, "unsupported repository type", got.Error)
}

func TestProcessOneFailureRecordsError(t *testing.T) {
	w, st, mock := newTestWorker(t)
	dir := seedLocalRepo(t)

	repo, err := st.CreateRepository(store.Repository{
		Address: dir,
		Type:    store.RepoTypeFile,
	})
	require.NoError(t, err)

	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, assert.AnError
	}

	// Retry back-off sleeps real seconds; bound the test run.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	claimed, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := st.GetRepository(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)

	// The document row carries the same terminal status as the repository.
	doc, err := st.GetDocument(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, doc.Status)
}

func TestFormatCommitBlock(t *testing.T) {
	block := formatCommitBlock(
		gitrepo.Commit{Title: "fix parser"},
		[]gitrepo.ChangedFile{{Status: "M", Path: "pkg/parse.go"}, {Status: "A", Path: "pkg/parse_test.go"}},
	)
	assert.Equal(t, "<commit>\nfix parser\n - M: pkg/parse.go\n - A: pkg/parse_test.go\n</commit>\n", block)
}

func TestApplyCatalogueDiff(t *testing.T) {
	w, st, _ := newTestWorker(t)
	repo, err := st.CreateRepository(store.Repository{Address: "x", Type: store.RepoTypeGit})
	require.NoError(t, err)

	require.NoError(t, st.ReplaceCatalogue(repo.ID, []store.CatalogueNode{
		{ID: "root", Title: "guide", Name: "Guide", IsCompleted: true},
		{ID: "old", Title: "legacy", Name: "Legacy", IsCompleted: true},
	}))
	existing, err := st.ListCatalogue(repo.ID, false)
	require.NoError(t, err)

	var diff catalogueDiff
	require.NoError(t, err)
	diff.Delete = []string{"legacy", "missing"}
	diff.Update = append(diff.Update, struct {
		Title  string `json:"title"`
		Prompt string `json:"prompt,omitempty"`
	}{Title: "guide", Prompt: "rewrite it"})
	diff.Add = append(diff.Add, struct {
		Title       string `json:"title"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Prompt      string `json:"prompt,omitempty"`
		Parent      string `json:"parent,omitempty"`
	}{Title: "migration", Name: "Migration", Parent: "guide"})

	require.NoError(t, w.applyCatalogueDiff(repo, existing, diff))

	live, err := st.ListCatalogue(repo.ID, false)
	require.NoError(t, err)
	byTitle := map[string]store.CatalogueNode{}
	for _, n := range live {
		byTitle[n.Title] = n
	}

	_, deleted := byTitle["legacy"]
	assert.False(t, deleted, "deleted nodes drop out of the live listing")

	guide := byTitle["guide"]
	assert.False(t, guide.IsCompleted, "updated nodes await regeneration")
	assert.Equal(t, "rewrite it", guide.Prompt)

	migration, ok := byTitle["migration"]
	require.True(t, ok)
	assert.Equal(t, guide.ID, migration.ParentID)
	assert.False(t, migration.IsCompleted)
}

func TestCatalogueJSON(t *testing.T) {
	out := catalogueJSON([]store.CatalogueNode{
		{ID: "p", Title: "parent", Name: "Parent"},
		{ID: "c", Title: "child", Name: "Child", ParentID: "p"},
	})
	assert.Contains(t, out, `"title":"parent"`)
	assert.Contains(t, out, `"parent":"parent"`)
	assert.NotContains(t, out, `"p"`, "internal ids never reach the prompt")
}

func TestUpdatePassSkipsFreshDocuments(t *testing.T) {
	w, st, mock := newTestWorker(t)
	w.cfg.UpdateInterval = 7 * 24 * time.Hour

	repo, err := st.CreateRepository(store.Repository{
		Address: "https://github.com/org/x.git",
		Type:    store.RepoTypeGit,
		Status:  store.StatusCompleted,
	})
	require.NoError(t, err)
	_, err = st.UpsertDocument(repo.ID, "/tmp/x", store.StatusCompleted)
	require.NoError(t, err)

	// The document was just touched; nothing is stale, so no git or LLM
	// traffic happens.
	require.NoError(t, w.updatePass(context.Background()))
	assert.Empty(t, mock.Requests)

	repo, err = st.GetRepository(repo.ID)
	require.NoError(t, err)
	assert.Empty(t, repo.LeaseOwner, "fresh repositories are never claimed")
}

func TestUpdatePassSkipsLeasedRepositories(t *testing.T) {
	w, st, mock := newTestWorker(t)
	w.cfg.UpdateInterval = time.Nanosecond

	repo, err := st.CreateRepository(store.Repository{
		Address:       "https://github.com/org/x.git",
		Type:          store.RepoTypeGit,
		Status:        store.StatusCompleted,
		LeaseOwner:    "other-worker",
		LeaseDeadline: time.Now().UTC().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = st.UpsertDocument(repo.ID, "/tmp/x", store.StatusCompleted)
	require.NoError(t, err)

	require.NoError(t, w.updatePass(context.Background()))
	assert.Empty(t, mock.Requests)

	got, err := st.GetRepository(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, "other-worker", got.LeaseOwner, "a live foreign lease blocks the refresh")
}

func TestUpdatePassClaimsAndReleasesOnFailure(t *testing.T) {
	w, st, _ := newTestWorker(t)
	w.cfg.UpdateInterval = time.Nanosecond

	// LocalPath does not exist, so the pull fails after the claim.
	repo, err := st.CreateRepository(store.Repository{
		Address:   "https://github.com/org/x.git",
		Type:      store.RepoTypeGit,
		Status:    store.StatusCompleted,
		LocalPath: filepath.Join(t.TempDir(), "gone"),
	})
	require.NoError(t, err)
	_, err = st.UpsertDocument(repo.ID, repo.LocalPath, store.StatusCompleted)
	require.NoError(t, err)

	// The post-failure pause honors the context; bound it.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.updatePass(ctx))

	got, err := st.GetRepository(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)
	assert.Empty(t, got.LeaseOwner, "the lease is released with the failure")
}

func TestDocFileName(t *testing.T) {
	assert.Equal(t, "getting-started.md", docFileName("Getting Started"))
	assert.Equal(t, "core-api.md", docFileName("core/API"))
	assert.Equal(t, "page.md", docFileName("???"))
}
