// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScan_InvalidRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrInvalidRoot)
}

func TestScan_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b/second.go", "package b")
	writeFile(t, root, "a/first.go", "package a")
	writeFile(t, root, "main.go", "package main")

	paths, err := Scan(root)
	require.NoError(t, err)

	got := make([]string, len(paths))
	for i, p := range paths {
		got[i] = p.Path
	}
	assert.Equal(t, []string{"a", "a/first.go", "b", "b/second.go", "main.go"}, got)

	// Same input, same output.
	again, err := Scan(root)
	require.NoError(t, err)
	assert.Equal(t, paths, again)
}

func TestScan_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\n!keep.log\nvendor/\n")
	writeFile(t, root, "app.log", "x")
	writeFile(t, root, "keep.log", "x")
	writeFile(t, root, "vendor/lib.go", "package lib")
	writeFile(t, root, "main.go", "package main")

	paths, err := Scan(root)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, p := range paths {
		seen[p.Path] = true
	}
	assert.False(t, seen["app.log"], "app.log must be ignored")
	assert.True(t, seen["keep.log"], "keep.log is re-included")
	assert.False(t, seen["vendor"], "vendor/ must be ignored")
	assert.False(t, seen["vendor/lib.go"])
	assert.True(t, seen["main.go"])
}

func TestScan_DefaultIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/config", "x")
	writeFile(t, root, "node_modules/pkg/index.js", "x")
	writeFile(t, root, "src/app.js", "x")

	paths, err := Scan(root)
	require.NoError(t, err)

	for _, p := range paths {
		assert.NotContains(t, p.Path, ".git")
		assert.NotContains(t, p.Path, "node_modules")
	}
	assert.Equal(t, 2, len(paths))
}

func TestBuildTree_CompactRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.go", "package app")
	writeFile(t, root, "README.md", "hi")

	paths, err := Scan(root)
	require.NoError(t, err)

	tree := BuildTree(paths)
	compact := Compact(tree)
	assert.Equal(t, "README.md/F\nsrc/D\nsrc/app.go/F", compact)

	// compact(build_tree(scan(root))) is a pure function of the root.
	again, _ := Scan(root)
	assert.Equal(t, compact, Compact(BuildTree(again)))
}

func TestRender_Formats(t *testing.T) {
	tree := BuildTree([]PathInfo{
		{Path: "docs", Kind: KindDir},
		{Path: "docs/a.md", Kind: KindFile},
	})

	pathlist, err := Render(tree, FormatPathList)
	require.NoError(t, err)
	assert.Equal(t, "docs\ndocs/a.md", pathlist)

	jsonOut, err := Render(tree, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, jsonOut, `"name": "docs"`)

	// Unknown formats fall back to compact.
	fallback, err := Render(tree, "bogus")
	require.NoError(t, err)
	assert.Equal(t, "docs/D\ndocs/a.md/F", fallback)
}

func TestCountFiles(t *testing.T) {
	paths := []PathInfo{
		{Path: "a", Kind: KindDir},
		{Path: "a/b.go", Kind: KindFile},
		{Path: "c.go", Kind: KindFile},
	}
	assert.Equal(t, 2, CountFiles(paths))
}
