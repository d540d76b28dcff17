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
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoSemanticAnalyzer builds a whole-project model for Go sources with
// tree-sitter. It claims .go files ahead of the text parser.
type GoSemanticAnalyzer struct {
	logger *slog.Logger
}

// NewGoSemanticAnalyzer creates the tree-sitter backed Go analyzer.
func NewGoSemanticAnalyzer(logger *slog.Logger) *GoSemanticAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GoSemanticAnalyzer{logger: logger}
}

func (a *GoSemanticAnalyzer) Extensions() []string { return []string{".go"} }

// AnalyzeProject parses every file, collects functions, types with their
// methods, and file-level dependency edges derived from module-internal
// imports. Unreadable or unparseable files are logged and skipped.
func (a *GoSemanticAnalyzer) AnalyzeProject(root string, files []string) (*ProjectModel, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	model := &ProjectModel{
		Files:        make(map[string]*FileModel),
		Dependencies: make(map[string]map[string]bool),
	}

	// package dir -> files, for resolving import edges after the first pass
	packageFiles := make(map[string][]string)
	fileImports := make(map[string][]string)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			a.logger.Warn("depgraph.semantic.read.error", "path", file, "err", err)
			continue
		}

		tree, err := parser.ParseCtx(context.Background(), nil, content)
		if err != nil {
			a.logger.Warn("depgraph.semantic.parse.error", "path", file, "err", err)
			continue
		}

		fm := &FileModel{Types: make(map[string][]FunctionInfo)}
		var imports []string
		a.walk(tree.RootNode(), content, fm, &imports)
		tree.Close()

		model.Files[file] = fm
		fileImports[file] = imports
		dir := filepath.Dir(file)
		packageFiles[dir] = append(packageFiles[dir], file)
	}

	for file, imports := range fileImports {
		deps := make(map[string]bool)
		for _, imp := range imports {
			dir := goPackageDir(imp, root)
			if dir == "" {
				continue
			}
			for _, dep := range packageFiles[dir] {
				if dep != file {
					deps[dep] = true
				}
			}
		}
		if len(deps) > 0 {
			model.Dependencies[file] = deps
		}
	}

	return model, nil
}

func (a *GoSemanticAnalyzer) walk(node *sitter.Node, content []byte, fm *FileModel, imports *[]string) {
	switch node.Type() {
	case "function_declaration":
		if fn := a.function(node, content); fn != nil {
			fm.Functions = append(fm.Functions, *fn)
		}
	case "method_declaration":
		fn := a.function(node, content)
		if fn == nil {
			break
		}
		recv := a.receiverType(node, content)
		if recv != "" {
			fm.Types[recv] = append(fm.Types[recv], *fn)
		}
		// Methods are also addressable by simple name in the call graph.
		fm.Functions = append(fm.Functions, *fn)
	case "import_spec":
		if path := node.ChildByFieldName("path"); path != nil {
			token := strings.Trim(string(content[path.StartByte():path.EndByte()]), `"`)
			*imports = append(*imports, token)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		a.walk(node.Child(i), content, fm, imports)
	}
}

func (a *GoSemanticAnalyzer) function(node *sitter.Node, content []byte) *FunctionInfo {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	body := ""
	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		body = string(content[bodyNode.StartByte():bodyNode.EndByte()])
	}
	return &FunctionInfo{
		Name: string(content[nameNode.StartByte():nameNode.EndByte()]),
		Body: body,
		Line: int(node.StartPoint().Row) + 1,
	}
}

// receiverType extracts the bare receiver type name of a method declaration.
func (a *GoSemanticAnalyzer) receiverType(node *sitter.Node, content []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := string(content[recv.StartByte():recv.EndByte()])
	text = strings.Trim(text, "()")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	typ = strings.TrimPrefix(typ, "*")
	if idx := strings.IndexByte(typ, '['); idx > 0 {
		typ = typ[:idx]
	}
	return typ
}

// String identifies the analyzer in logs.
func (a *GoSemanticAnalyzer) String() string {
	return fmt.Sprintf("go-semantic(%s)", strings.Join(a.Extensions(), ","))
}
