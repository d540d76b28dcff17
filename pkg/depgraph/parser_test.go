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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPythonExtractFunctions(t *testing.T) {
	source := "import os\n" +
		"from util import helper\n" +
		"\n" +
		"def top():\n" +
		"    helper()\n" +
		"    return 1\n" +
		"\n" +
		"class C:\n" +
		"    def method(self):\n" +
		"        top()\n" +
		"\n" +
		"def after():\n" +
		"    pass\n"

	p := &PythonParser{}
	assert.Equal(t, []string{"os", "util"}, p.ExtractImports(source))

	funcs := p.ExtractFunctions(source)
	require.Len(t, funcs, 3)
	assert.Equal(t, "top", funcs[0].Name)
	assert.Equal(t, 4, funcs[0].Line)
	assert.Contains(t, funcs[0].Body, "helper()")
	assert.NotContains(t, funcs[0].Body, "class C", "body ends at dedent")

	assert.Equal(t, "method", funcs[1].Name)
	assert.Contains(t, funcs[1].Body, "top()")
	assert.NotContains(t, funcs[1].Body, "def after")
}

func TestGoTextParserImports(t *testing.T) {
	source := `package x

import (
	"fmt"
	myio "example.com/mod/io"
)

import "strings"

func Run[T any](v T) error {
	fmt.Println(v)
	return nil
}
`
	p := &GoParser{}
	assert.Equal(t,
		[]string{"fmt", "example.com/mod/io", "strings"},
		p.ExtractImports(source))

	funcs := p.ExtractFunctions(source)
	require.Len(t, funcs, 1)
	assert.Equal(t, "Run", funcs[0].Name)
	assert.Contains(t, funcs[0].Body, "fmt.Println(v)")
}

func TestGoResolveImport(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"go.mod":            "module example.com/mod\n\ngo 1.24\n",
		"io/reader.go":      "package io\n",
		"io/reader_test.go": "package io\n",
		"io/writer.go":      "package io\n",
	})

	p := &GoParser{}
	resolved := p.ResolveImport("example.com/mod/io", filepath.Join(root, "main.go"), root)
	assert.Equal(t, filepath.Join(root, "io", "reader.go"), resolved,
		"first non-test file in lexical order")

	assert.Empty(t, p.ResolveImport("fmt", filepath.Join(root, "main.go"), root))
}

func TestCResolveImportPrefersImplementation(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"util.h":  "#pragma once\n",
		"util.c":  "#include \"util.h\"\n",
		"main.c":  "#include \"util.h\"\nint main(void) { return 0; }\n",
		"alone.h": "#pragma once\n",
	})

	p := &CParser{}
	main := filepath.Join(root, "main.c")
	assert.Equal(t, filepath.Join(root, "util.c"), p.ResolveImport("util.h", main, root))
	assert.Equal(t, filepath.Join(root, "alone.h"), p.ResolveImport("alone.h", main, root))
}

func TestExtractCallsFiltersKeywords(t *testing.T) {
	body := "{ if (x) { doWork(); } for (;;) { doWork(); other(1); } }"
	calls := extractCalls(body)
	assert.Equal(t, []string{"doWork", "other"}, calls)
}

func TestBraceBodyUnbalanced(t *testing.T) {
	assert.Empty(t, braceBody("func f() {", 0))
	assert.Equal(t, "{ return 1 }", braceBody("func f() { return 1 }", 0))
}

func TestJavaExtractImports(t *testing.T) {
	source := "package a;\nimport java.util.List;\nimport static a.B.c;\nimport a.b.*;\n"
	p := &JavaParser{}
	assert.Equal(t, []string{"java.util.List", "a.B.c"}, p.ExtractImports(source))
}

func TestGoSemanticAnalyzer(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"go.mod": "module example.com/app\n\ngo 1.24\n",
		"main.go": `package main

import "example.com/app/store"

func main() {
	store.Open()
}
`,
		"store/store.go": `package store

type DB struct{}

func Open() *DB { return &DB{} }

func (d *DB) Close() error { return nil }
`,
	})

	files := []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "store", "store.go"),
	}
	for _, f := range files {
		_, err := os.Stat(f)
		require.NoError(t, err)
	}

	model, err := NewGoSemanticAnalyzer(nil).AnalyzeProject(root, files)
	require.NoError(t, err)

	mainModel := model.Files[files[0]]
	require.NotNil(t, mainModel)
	require.Len(t, mainModel.Functions, 1)
	assert.Equal(t, "main", mainModel.Functions[0].Name)

	storeModel := model.Files[files[1]]
	require.NotNil(t, storeModel)
	methods := storeModel.Types["DB"]
	require.Len(t, methods, 1)
	assert.Equal(t, "Close", methods[0].Name)

	deps := model.Dependencies[files[0]]
	assert.True(t, deps[files[1]], "main.go depends on store/store.go")
}
