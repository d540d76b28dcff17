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
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

func catKey(repositoryID, nodeID string) string {
	return prefixCat + repositoryID + "/" + nodeID
}

// ReplaceCatalogue deletes a repository's catalogue forest and inserts the
// new one in a single transaction. Node ids are assigned when empty; parent
// references must point into the same batch.
func (s *Store) ReplaceCatalogue(repositoryID string, nodes []CatalogueNode) error {
	for i := range nodes {
		if nodes[i].ID == "" {
			nodes[i].ID = uuid.NewString()
		}
		nodes[i].RepositoryID = repositoryID
	}
	return s.update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, prefixCat+repositoryID+"/"); err != nil {
			return err
		}
		for _, node := range nodes {
			if err := putJSON(txn, catKey(repositoryID, node.ID), node); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListCatalogue returns a repository's catalogue nodes ordered by parent
// grouping and order index. Soft-deleted nodes are excluded unless
// includeDeleted is set.
func (s *Store) ListCatalogue(repositoryID string, includeDeleted bool) ([]CatalogueNode, error) {
	var nodes []CatalogueNode
	err := s.view(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixCat + repositoryID + "/")})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var node CatalogueNode
			if err := it.Item().Value(func(data []byte) error {
				return unmarshalJSON(data, &node)
			}); err != nil {
				return err
			}
			if node.IsDeleted && !includeDeleted {
				continue
			}
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].ParentID != nodes[j].ParentID {
			return nodes[i].ParentID < nodes[j].ParentID
		}
		return nodes[i].Order < nodes[j].Order
	})
	return nodes, nil
}

// GetCatalogueNode loads one node by id.
func (s *Store) GetCatalogueNode(repositoryID, nodeID string) (*CatalogueNode, error) {
	var node CatalogueNode
	err := s.view(func(txn *badger.Txn) error {
		return getJSON(txn, catKey(repositoryID, nodeID), &node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// UpdateCatalogueNode applies mutate to one node in a single transaction.
func (s *Store) UpdateCatalogueNode(repositoryID, nodeID string, mutate func(*CatalogueNode)) (*CatalogueNode, error) {
	var node CatalogueNode
	err := s.update(func(txn *badger.Txn) error {
		if err := getJSON(txn, catKey(repositoryID, nodeID), &node); err != nil {
			return err
		}
		mutate(&node)
		return putJSON(txn, catKey(repositoryID, nodeID), node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// InsertCatalogueNode adds one node to an existing forest, validating slug
// uniqueness per repository.
func (s *Store) InsertCatalogueNode(node CatalogueNode) (*CatalogueNode, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	err := s.update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixCat + node.RepositoryID + "/")})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var existing CatalogueNode
			if err := it.Item().Value(func(data []byte) error {
				return unmarshalJSON(data, &existing)
			}); err != nil {
				return err
			}
			if !existing.IsDeleted && existing.Title == node.Title {
				return fmt.Errorf("store: duplicate catalogue title %q", node.Title)
			}
		}
		return putJSON(txn, catKey(node.RepositoryID, node.ID), node)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// UpsertFileItem writes the generated page of a leaf node, keyed by
// catalogue id. Re-running a node replaces its page.
func (s *Store) UpsertFileItem(item FileItem) (*FileItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = time.Now().UTC()
	err := s.update(func(txn *badger.Txn) error {
		return putJSON(txn, prefixItem+item.CatalogueID, item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetFileItem loads the page of a leaf node.
func (s *Store) GetFileItem(catalogueID string) (*FileItem, error) {
	var item FileItem
	err := s.view(func(txn *badger.Txn) error {
		return getJSON(txn, prefixItem+catalogueID, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
