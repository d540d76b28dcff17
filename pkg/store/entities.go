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

package store

import "time"

// Status is the repository/document processing state.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

// RepoType distinguishes remote git repositories from local directories.
type RepoType string

const (
	RepoTypeGit  RepoType = "git"
	RepoTypeFile RepoType = "file"
)

// Repository is a unit of documentation work submitted to the queue.
type Repository struct {
	ID           string   `json:"id"`
	Address      string   `json:"address"`
	Branch       string   `json:"branch,omitempty"`
	Username     string   `json:"username,omitempty"`
	Password     string   `json:"password,omitempty"`
	LocalPath    string   `json:"local_path,omitempty"`
	Type         RepoType `json:"type"`
	Status       Status   `json:"status"`
	Error        string   `json:"error,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Name         string   `json:"name,omitempty"`
	Version      string   `json:"version,omitempty"`

	// Cached pipeline artifacts; a set field means the producing stage
	// passes through on resume.
	OptimizedDirectoryStructure string `json:"optimized_directory_structure,omitempty"`
	Classify                    string `json:"classify,omitempty"`
	Readme                      string `json:"readme,omitempty"`

	// Lease fields; see ClaimNext.
	LeaseOwner    string    `json:"lease_owner,omitempty"`
	LeaseDeadline time.Time `json:"lease_deadline,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document tracks the generated documentation of one Repository.
type Document struct {
	ID           string    `json:"id"`
	RepositoryID string    `json:"repository_id"`
	GitPath      string    `json:"git_path,omitempty"`
	Status       Status    `json:"status"`
	LastUpdate   time.Time `json:"last_update"`
}

// CatalogueNode is one node of the documentation outline forest. A node
// with children is a folder; a leaf owns a FileItem.
type CatalogueNode struct {
	ID           string `json:"id"`
	RepositoryID string `json:"repository_id"`
	ParentID     string `json:"parent_id,omitempty"`
	Title        string `json:"title"` // stable slug, unique per repository
	Name         string `json:"name"`
	URL          string `json:"url"`
	Description  string `json:"description,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
	Order        int    `json:"order"`
	IsCompleted  bool   `json:"is_completed"`
	IsDeleted    bool   `json:"is_deleted"`
}

// FileItem is the generated page of one leaf catalogue node.
type FileItem struct {
	ID          string    `json:"id"`
	CatalogueID string    `json:"catalogue_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Sources     []string  `json:"sources,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Overview is the generated project overview of one Document.
type Overview struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// MindMapNode is one node of a repository's navigation mind map. URL holds a
// repository-relative path; rewriting it against the remote host happens at
// read time, not at rest.
type MindMapNode struct {
	Title    string         `json:"title"`
	URL      string         `json:"url,omitempty"`
	Children []*MindMapNode `json:"children,omitempty"`
}

// MindMap is the serialized navigation tree of one Repository.
type MindMap struct {
	RepositoryID string         `json:"repository_id"`
	Nodes        []*MindMapNode `json:"nodes"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CommitRecord is one changelog entry. The full set per repository is
// regenerated on each successful changelog stage run.
type CommitRecord struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}
