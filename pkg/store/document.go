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

// UpsertDocument creates or updates the Document of a repository. One
// Document exists per Repository, keyed by repository id.
func (s *Store) UpsertDocument(repositoryID, gitPath string, status Status) (*Document, error) {
	var doc Document
	err := s.update(func(txn *badger.Txn) error {
		err := getJSON(txn, prefixDoc+repositoryID, &doc)
		if errors.Is(err, ErrNotFound) {
			doc = Document{
				ID:           uuid.NewString(),
				RepositoryID: repositoryID,
			}
		} else if err != nil {
			return err
		}
		if gitPath != "" {
			doc.GitPath = gitPath
		}
		doc.Status = status
		doc.LastUpdate = time.Now().UTC()
		return putJSON(txn, prefixDoc+repositoryID, doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument loads the Document of a repository.
func (s *Store) GetDocument(repositoryID string) (*Document, error) {
	var doc Document
	err := s.view(func(txn *badger.Txn) error {
		return getJSON(txn, prefixDoc+repositoryID, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// TouchDocument refreshes a Document's last-update timestamp.
func (s *Store) TouchDocument(repositoryID string) error {
	return s.update(func(txn *badger.Txn) error {
		var doc Document
		if err := getJSON(txn, prefixDoc+repositoryID, &doc); err != nil {
			return err
		}
		doc.LastUpdate = time.Now().UTC()
		return putJSON(txn, prefixDoc+repositoryID, doc)
	})
}
