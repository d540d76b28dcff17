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

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Replace-style artifacts: writing a new one deletes the old row in the same
// transaction, so readers never see two generations at once.

// ReplaceOverview swaps the Overview of a document.
func (s *Store) ReplaceOverview(documentID, content string) (*Overview, error) {
	ovr := Overview{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.update(func(txn *badger.Txn) error {
		return putJSON(txn, prefixOverview+documentID, ovr)
	})
	if err != nil {
		return nil, err
	}
	return &ovr, nil
}

// GetOverview loads the Overview of a document.
func (s *Store) GetOverview(documentID string) (*Overview, error) {
	var ovr Overview
	err := s.view(func(txn *badger.Txn) error {
		return getJSON(txn, prefixOverview+documentID, &ovr)
	})
	if err != nil {
		return nil, err
	}
	return &ovr, nil
}

// ReplaceMindMap swaps the navigation tree of a repository.
func (s *Store) ReplaceMindMap(repositoryID string, nodes []*MindMapNode) (*MindMap, error) {
	m := MindMap{
		RepositoryID: repositoryID,
		Nodes:        nodes,
		CreatedAt:    time.Now().UTC(),
	}
	err := s.update(func(txn *badger.Txn) error {
		return putJSON(txn, prefixMindMap+repositoryID, m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMindMap loads the navigation tree of a repository.
func (s *Store) GetMindMap(repositoryID string) (*MindMap, error) {
	var m MindMap
	err := s.view(func(txn *badger.Txn) error {
		return getJSON(txn, prefixMindMap+repositoryID, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ReplaceCommitRecords swaps the full changelog set of a repository.
func (s *Store) ReplaceCommitRecords(repositoryID string, records []CommitRecord) error {
	return s.update(func(txn *badger.Txn) error {
		return putJSON(txn, prefixCommits+repositoryID, records)
	})
}

// ListCommitRecords loads the changelog set of a repository. A repository
// without a changelog yields an empty slice.
func (s *Store) ListCommitRecords(repositoryID string) ([]CommitRecord, error) {
	var records []CommitRecord
	err := s.view(func(txn *badger.Txn) error {
		err := getJSON(txn, prefixCommits+repositoryID, &records)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
