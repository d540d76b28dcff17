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

package depgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// a.js -> b.js -> c.js -> b.js closes a file-level cycle; main -> helper ->
// shared -> helper closes a function-level one.
func cyclicFixture(t *testing.T) string {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"a.js": "const { helper } = require('./b');\n" +
			"function main() { helper(); local(); }\n" +
			"function local() { }\n",
		"b.js": "const { shared } = require('./c');\n" +
			"function helper() { shared(); }\n",
		"c.js": "const { helper } = require('./b');\n" +
			"function shared() { helper(); }\n",
	})
	return root
}

func TestAnalyzeFileDependencyTree(t *testing.T) {
	a := NewAnalyzer(cyclicFixture(t), nil)

	tree, err := a.AnalyzeFileDependencyTree(context.Background(), "a.js")
	require.NoError(t, err)

	assert.Equal(t, "a.js", tree.FilePath)
	assert.False(t, tree.IsCyclic)
	require.Len(t, tree.Children, 1)

	b := tree.Children[0]
	assert.Equal(t, "b.js", b.FilePath)
	require.Len(t, b.Children, 1)

	c := b.Children[0]
	assert.Equal(t, "c.js", c.FilePath)
	require.Len(t, c.Children, 1)

	back := c.Children[0]
	assert.Equal(t, "b.js", back.FilePath)
	assert.True(t, back.IsCyclic)
	assert.Empty(t, back.Children)
	assert.Empty(t, back.Functions, "cyclic nodes carry no function list")
}

func TestAnalyzeFileDependencyTreeFunctions(t *testing.T) {
	a := NewAnalyzer(cyclicFixture(t), nil)

	tree, err := a.AnalyzeFileDependencyTree(context.Background(), "a.js")
	require.NoError(t, err)

	names := make([]string, 0, len(tree.Functions))
	for _, fn := range tree.Functions {
		names = append(names, fn.Name)
		assert.Greater(t, fn.Line, 0)
	}
	assert.Contains(t, names, "main")
	assert.Contains(t, names, "local")
}

func TestGoMethodsIndexedOnce(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"go.mod": "module example.com/app\n\ngo 1.24\n",
		"db.go": `package app

type DB struct{}

func Open() *DB { return &DB{} }

func (d *DB) Close() error { return nil }
`,
	})
	a := NewAnalyzer(root, nil)

	tree, err := a.AnalyzeFileDependencyTree(context.Background(), "db.go")
	require.NoError(t, err)

	counts := map[string]int{}
	for _, fn := range tree.Functions {
		counts[fn.Name]++
	}
	assert.Equal(t, 1, counts["Open"])
	assert.Equal(t, 1, counts["Close"], "method declarations appear once")
}

func TestAnalyzeFunctionDependencyTree(t *testing.T) {
	a := NewAnalyzer(cyclicFixture(t), nil)

	tree, err := a.AnalyzeFunctionDependencyTree(context.Background(), "a.js", "main")
	require.NoError(t, err)

	assert.Equal(t, "main", tree.Name)
	require.Len(t, tree.Children, 2)

	helper := tree.Children[0]
	assert.Equal(t, "helper", helper.Name)
	assert.Equal(t, "b.js", helper.FilePath)

	local := tree.Children[1]
	assert.Equal(t, "local", local.Name)
	assert.Equal(t, "a.js", local.FilePath, "same-file declarations win resolution")

	require.Len(t, helper.Children, 1)
	shared := helper.Children[0]
	assert.Equal(t, "shared", shared.Name)
	assert.Equal(t, "c.js", shared.FilePath)

	require.Len(t, shared.Children, 1)
	back := shared.Children[0]
	assert.Equal(t, "helper", back.Name)
	assert.True(t, back.IsCyclic)
	assert.Empty(t, back.Children)
}

func TestAnalyzeFileDependencyTreeDepthCap(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for i := 0; i < 14; i++ {
		content := fmt.Sprintf("function f%d() { }\n", i)
		if i < 13 {
			content = fmt.Sprintf("require('./f%d');\n", i+1) + content
		}
		files[fmt.Sprintf("f%d.js", i)] = content
	}
	writeFixture(t, root, files)

	a := NewAnalyzer(root, nil)
	tree, err := a.AnalyzeFileDependencyTree(context.Background(), "f0.js")
	require.NoError(t, err)

	depth := 0
	for n := tree; len(n.Children) > 0; n = n.Children[0] {
		depth++
		if depth > 20 {
			t.Fatal("depth cap not applied")
		}
	}
	assert.Equal(t, DefaultMaxDepth, depth)
}

func TestAnalyzerHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		".gitignore": "skipped.js\n",
		"kept.js":    "function kept() { }\n",
		"skipped.js": "function skipped() { }\n",
	})

	a := NewAnalyzer(root, nil)
	_, err := a.AnalyzeFileDependencyTree(context.Background(), "kept.js")
	require.NoError(t, err)

	_, err = a.AnalyzeFileDependencyTree(context.Background(), "skipped.js")
	assert.Error(t, err)
}

func TestAnalyzerUnknownExtensionIgnored(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"notes.txt": "not source\n",
		"a.js":      "function a() { }\n",
	})

	a := NewAnalyzer(root, nil)
	require.NoError(t, a.Initialize(context.Background()))

	_, err := a.AnalyzeFileDependencyTree(context.Background(), "notes.txt")
	assert.Error(t, err)
}

func TestAnalyzerUnknownFunction(t *testing.T) {
	a := NewAnalyzer(cyclicFixture(t), nil)
	_, err := a.AnalyzeFunctionDependencyTree(context.Background(), "a.js", "nope")
	assert.Error(t, err)
}

func TestDrawFileTree(t *testing.T) {
	a := NewAnalyzer(cyclicFixture(t), nil)
	tree, err := a.AnalyzeFileDependencyTree(context.Background(), "a.js")
	require.NoError(t, err)

	out := DrawFileTree(tree)
	assert.True(t, strings.HasPrefix(out, "a.js\n"))
	assert.Contains(t, out, "└── b.js")
	assert.Contains(t, out, "(cycle)")
}

func TestFileTreeDot(t *testing.T) {
	a := NewAnalyzer(cyclicFixture(t), nil)
	tree, err := a.AnalyzeFileDependencyTree(context.Background(), "a.js")
	require.NoError(t, err)

	dot := FileTreeDot(tree)
	assert.Contains(t, dot, `"a.js" -> "b.js";`)
	assert.Contains(t, dot, `"b.js" -> "c.js";`)
	assert.Equal(t, 1, strings.Count(dot, `"c.js" -> "b.js";`))
}
