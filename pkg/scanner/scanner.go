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

// Package scanner walks a repository working tree honoring its .gitignore
// and produces deterministic compact representations of the file tree.
package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
)

// ErrInvalidRoot is returned when the scan root does not exist or is not a
// directory.
var ErrInvalidRoot = errors.New("scanner: invalid root")

// PathKind distinguishes files from directories in scan output.
type PathKind int

const (
	KindFile PathKind = iota
	KindDir
)

// PathInfo is one entry of a scan: a slash-separated path relative to the
// scan root plus its kind.
type PathInfo struct {
	Path string
	Kind PathKind
}

// defaultIgnoreDirs are always skipped regardless of .gitignore content.
// These are VCS internals, package caches, and editor litter that never
// belong in a documentation manifest.
var defaultIgnoreDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"__pycache__":  true,
	".vscode":      true,
	".idea":        true,
	".vs":          true,
	"dist":         true,
	"build":        true,
	"bin":          true,
	"obj":          true,
}

var defaultIgnoreFiles = map[string]bool{
	".DS_Store": true,
	"Thumbs.db": true,
}

// Scan walks root depth-first with lexical ordering per directory and
// returns every path that survives the repository's .gitignore plus the
// built-in ignore set. Directories appear before their contents.
func Scan(root string) ([]PathInfo, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, ErrInvalidRoot
	}

	ignore := LoadIgnore(root)
	var out []PathInfo
	if err := scanDir(root, "", ignore, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScanWithIgnore is Scan with an explicit ruleset, used by tests and by
// callers that already parsed the ignore file.
func ScanWithIgnore(root string, ignore *IgnoreList) ([]PathInfo, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, ErrInvalidRoot
	}
	if ignore == nil {
		ignore = &IgnoreList{}
	}
	var out []PathInfo
	if err := scanDir(root, "", ignore, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func scanDir(root, rel string, ignore *IgnoreList, out *[]PathInfo) error {
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		// Unreadable subdirectories are skipped, not fatal.
		if rel == "" {
			return err
		}
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		name := e.Name()
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		if e.IsDir() {
			if defaultIgnoreDirs[name] || ignore.Match(childRel, true) {
				continue
			}
			*out = append(*out, PathInfo{Path: childRel, Kind: KindDir})
			if err := scanDir(root, childRel, ignore, out); err != nil {
				return err
			}
			continue
		}

		if defaultIgnoreFiles[name] || ignore.Match(childRel, false) {
			continue
		}
		*out = append(*out, PathInfo{Path: childRel, Kind: KindFile})
	}
	return nil
}

// CountFiles returns the number of file (non-directory) entries.
func CountFiles(paths []PathInfo) int {
	n := 0
	for _, p := range paths {
		if p.Kind == KindFile {
			n++
		}
	}
	return n
}
