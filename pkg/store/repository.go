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
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// DefaultLeaseTTL must exceed the longest expected pipeline run; an expired
// lease on a Processing row means the owning worker died and the row is
// claimable again.
const DefaultLeaseTTL = 24 * time.Hour

// CreateRepository inserts a new Pending repository and returns it.
func (s *Store) CreateRepository(repo Repository) (*Repository, error) {
	if repo.ID == "" {
		repo.ID = uuid.NewString()
	}
	if repo.Status == "" {
		repo.Status = StatusPending
	}
	now := time.Now().UTC()
	repo.CreatedAt = now
	repo.UpdatedAt = now

	err := s.update(func(txn *badger.Txn) error {
		return putJSON(txn, prefixRepo+repo.ID, repo)
	})
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetRepository loads one repository by id.
func (s *Store) GetRepository(id string) (*Repository, error) {
	var repo Repository
	err := s.view(func(txn *badger.Txn) error {
		return getJSON(txn, prefixRepo+id, &repo)
	})
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// ListRepositories returns all repositories ordered by creation time.
func (s *Store) ListRepositories() ([]Repository, error) {
	var repos []Repository
	err := s.view(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixRepo)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var repo Repository
			if err := it.Item().Value(func(data []byte) error {
				return unmarshalJSON(data, &repo)
			}); err != nil {
				return err
			}
			repos = append(repos, repo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].CreatedAt.Before(repos[j].CreatedAt) })
	return repos, nil
}

// UpdateRepository applies mutate to the stored row in one transaction and
// returns the result. The read and write share the transaction, so
// concurrent updates to the same row conflict instead of losing writes.
func (s *Store) UpdateRepository(id string, mutate func(*Repository)) (*Repository, error) {
	var repo Repository
	err := s.update(func(txn *badger.Txn) error {
		if err := getJSON(txn, prefixRepo+id, &repo); err != nil {
			return err
		}
		mutate(&repo)
		repo.UpdatedAt = time.Now().UTC()
		return putJSON(txn, prefixRepo+id, repo)
	})
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// ClaimNext atomically leases the next workable repository for owner.
// Selection takes rows in status Pending or Processing, Processing first, and
// skips rows whose lease is held by another live owner. The claim itself is
// a conditional update: status, owner, and deadline are written in the same
// transaction that read them, so two workers cannot claim one row. Returns
// nil when nothing is claimable.
func (s *Store) ClaimNext(owner string, ttl time.Duration) (*Repository, error) {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	now := time.Now().UTC()

	var claimed *Repository
	err := s.update(func(txn *badger.Txn) error {
		claimed = nil

		var candidates []Repository
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefixRepo)})
		for it.Rewind(); it.Valid(); it.Next() {
			var repo Repository
			if err := it.Item().Value(func(data []byte) error {
				return unmarshalJSON(data, &repo)
			}); err != nil {
				it.Close()
				return err
			}
			if repo.Status != StatusPending && repo.Status != StatusProcessing {
				continue
			}
			if repo.LeaseOwner != "" && repo.LeaseOwner != owner && repo.LeaseDeadline.After(now) {
				continue
			}
			candidates = append(candidates, repo)
		}
		it.Close()

		if len(candidates) == 0 {
			return nil
		}
		// Finish interrupted work before starting new.
		sort.SliceStable(candidates, func(i, j int) bool {
			pi := candidates[i].Status == StatusProcessing
			pj := candidates[j].Status == StatusProcessing
			if pi != pj {
				return pi
			}
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		})

		repo := candidates[0]
		repo.Status = StatusProcessing
		repo.LeaseOwner = owner
		repo.LeaseDeadline = now.Add(ttl)
		repo.UpdatedAt = now
		if err := putJSON(txn, prefixRepo+repo.ID, repo); err != nil {
			return err
		}
		claimed = &repo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ClaimForUpdate leases one specific Completed repository for owner, moving
// it to Processing so no other worker touches the row or its working tree
// during an incremental refresh. Same conditional-update discipline as
// ClaimNext: the status check and the lease write share one transaction.
// Returns nil when the row is not Completed or another live owner holds it.
func (s *Store) ClaimForUpdate(id, owner string, ttl time.Duration) (*Repository, error) {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	now := time.Now().UTC()

	var claimed *Repository
	err := s.update(func(txn *badger.Txn) error {
		claimed = nil

		var repo Repository
		if err := getJSON(txn, prefixRepo+id, &repo); err != nil {
			return err
		}
		if repo.Status != StatusCompleted {
			return nil
		}
		if repo.LeaseOwner != "" && repo.LeaseOwner != owner && repo.LeaseDeadline.After(now) {
			return nil
		}

		repo.Status = StatusProcessing
		repo.LeaseOwner = owner
		repo.LeaseDeadline = now.Add(ttl)
		repo.UpdatedAt = now
		if err := putJSON(txn, prefixRepo+repo.ID, repo); err != nil {
			return err
		}
		claimed = &repo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ReleaseLease transitions a leased repository to its terminal status and
// clears the lease. errText is persisted for Failed rows and cleared
// otherwise.
func (s *Store) ReleaseLease(id string, status Status, errText string) (*Repository, error) {
	return s.UpdateRepository(id, func(repo *Repository) {
		repo.Status = status
		repo.Error = errText
		repo.LeaseOwner = ""
		repo.LeaseDeadline = time.Time{}
	})
}

// ResetFailed re-queues every Failed repository as Pending with a cleared
// error. Returns the number of rows reset.
func (s *Store) ResetFailed() (int, error) {
	repos, err := s.ListRepositories()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, repo := range repos {
		if repo.Status != StatusFailed {
			continue
		}
		_, err := s.UpdateRepository(repo.ID, func(r *Repository) {
			r.Status = StatusPending
			r.Error = ""
			r.LeaseOwner = ""
			r.LeaseDeadline = time.Time{}
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
