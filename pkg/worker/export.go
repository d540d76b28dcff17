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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kraklabs/rde/pkg/store"
)

const docsSubdir = "docs"

// commitDocs writes every generated page into the working tree under docs/
// and commits the result. A run that generated nothing new is not an error.
func (w *Worker) commitDocs(ctx context.Context, repo *store.Repository) error {
	nodes, err := w.store.ListCatalogue(repo.ID, false)
	if err != nil {
		return err
	}

	docsDir := filepath.Join(repo.LocalPath, docsSubdir)
	if err := os.MkdirAll(docsDir, 0o750); err != nil {
		return fmt.Errorf("create docs directory: %w", err)
	}

	written := 0
	for i := range nodes {
		item, err := w.store.GetFileItem(nodes[i].ID)
		if err != nil || item == nil {
			continue
		}
		name := docFileName(nodes[i].Name)
		content := fmt.Sprintf("# %s\n\n%s\n", item.Title, strings.TrimSpace(item.Content))
		if err := os.WriteFile(filepath.Join(docsDir, name), []byte(content), 0o640); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written++
	}
	if written == 0 {
		return nil
	}

	committed, err := w.git.CommitAll(ctx, repo.LocalPath, "docs: update generated documentation")
	if err != nil {
		return err
	}
	if committed {
		w.logger.Info("worker.docs.committed",
			"repository.id", repo.ID,
			"pages", written,
		)
	}
	return nil
}

// docFileName turns a catalogue node name into a safe markdown filename.
func docFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-', r == '/':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "page"
	}
	return slug + ".md"
}
