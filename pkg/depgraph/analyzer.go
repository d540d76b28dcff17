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

package depgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/rde/pkg/scanner"
)

// DefaultMaxDepth bounds file-dependency DFS expansion.
const DefaultMaxDepth = 10

// Analyzer builds per-file and per-function dependency trees for one working
// tree. Construct with NewAnalyzer, then call Initialize once before the
// Analyze* methods; Initialize is also performed lazily on first use.
type Analyzer struct {
	root   string
	logger *slog.Logger

	parsers  map[string]LanguageParser   // extension -> text parser
	semantic map[string]SemanticAnalyzer // extension -> semantic analyzer

	initOnce sync.Once
	initErr  error

	funcsMu       sync.RWMutex
	fileFunctions map[string][]FunctionInfo // file -> declared functions

	depsMu   sync.RWMutex
	fileDeps map[string]map[string]bool // file -> imported files

	indexMu   sync.RWMutex
	funcIndex map[string][]string // "file:func" -> callee identifiers
	funcLine  map[string]int      // "file:func" -> declaration line
}

// NewAnalyzer creates an analyzer rooted at root with the default language
// registrations. Go is served by the tree-sitter semantic analyzer; the Go
// text parser stays registered as documentation of the fallback path and is
// shadowed for .go files.
func NewAnalyzer(root string, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{
		root:          root,
		logger:        logger,
		parsers:       make(map[string]LanguageParser),
		semantic:      make(map[string]SemanticAnalyzer),
		fileFunctions: make(map[string][]FunctionInfo),
		fileDeps:      make(map[string]map[string]bool),
		funcIndex:     make(map[string][]string),
		funcLine:      make(map[string]int),
	}
	a.RegisterParser(&JavaScriptParser{})
	a.RegisterParser(&PythonParser{})
	a.RegisterParser(&JavaParser{})
	a.RegisterParser(&CParser{})
	a.RegisterParser(&GoParser{})
	a.RegisterSemantic(NewGoSemanticAnalyzer(logger))
	return a
}

// RegisterParser adds a text parser for the extensions it claims.
func (a *Analyzer) RegisterParser(p LanguageParser) {
	for _, ext := range p.Extensions() {
		a.parsers[ext] = p
	}
}

// RegisterSemantic adds a semantic analyzer. Its extensions take precedence
// over any text parser claiming the same ones.
func (a *Analyzer) RegisterSemantic(s SemanticAnalyzer) {
	for _, ext := range s.Extensions() {
		a.semantic[ext] = s
	}
}

// Initialize scans the working tree and builds the dependency maps. Safe to
// call more than once; only the first call does work.
func (a *Analyzer) Initialize(ctx context.Context) error {
	a.initOnce.Do(func() {
		a.initErr = a.initialize(ctx)
	})
	return a.initErr
}

func (a *Analyzer) initialize(ctx context.Context) error {
	paths, err := scanner.Scan(a.root)
	if err != nil {
		return fmt.Errorf("depgraph: scan %s: %w", a.root, err)
	}

	// Partition claimed files between semantic analyzers and text parsers.
	semanticFiles := make(map[SemanticAnalyzer][]string)
	var textFiles []string
	for _, p := range paths {
		if p.Kind != scanner.KindFile {
			continue
		}
		ext := strings.ToLower(filepath.Ext(p.Path))
		abs := filepath.Join(a.root, filepath.FromSlash(p.Path))
		if s, ok := a.semantic[ext]; ok {
			semanticFiles[s] = append(semanticFiles[s], abs)
			continue
		}
		if _, ok := a.parsers[ext]; ok {
			textFiles = append(textFiles, abs)
		}
	}

	var wg sync.WaitGroup
	for s, files := range semanticFiles {
		wg.Add(1)
		go func(s SemanticAnalyzer, files []string) {
			defer wg.Done()
			a.runSemantic(s, files)
		}(s, files)
	}
	for _, file := range textFiles {
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			a.runTextParser(file)
		}(file)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	a.logger.Debug("depgraph.initialize.done",
		"root", a.root,
		"files", len(a.fileFunctions),
	)
	return nil
}

func (a *Analyzer) runSemantic(s SemanticAnalyzer, files []string) {
	model, err := s.AnalyzeProject(a.root, files)
	if err != nil {
		a.logger.Warn("depgraph.semantic.error", "err", err)
		return
	}

	for file, fm := range model.Files {
		// Methods can appear both in the flat function list and under their
		// receiver type; index each declaration once.
		type declKey struct {
			name string
			line int
		}
		seen := make(map[declKey]bool, len(fm.Functions))
		funcs := make([]FunctionInfo, 0, len(fm.Functions))
		add := func(fn FunctionInfo) {
			key := declKey{fn.Name, fn.Line}
			if seen[key] {
				return
			}
			seen[key] = true
			funcs = append(funcs, fn)
		}
		for _, fn := range fm.Functions {
			add(fn)
		}
		for _, methods := range fm.Types {
			for _, fn := range methods {
				add(fn)
			}
		}
		a.storeFunctions(file, funcs)
	}
	a.depsMu.Lock()
	for file, deps := range model.Dependencies {
		a.fileDeps[file] = deps
	}
	a.depsMu.Unlock()
}

func (a *Analyzer) runTextParser(file string) {
	ext := strings.ToLower(filepath.Ext(file))
	parser := a.parsers[ext]

	data, err := os.ReadFile(file)
	if err != nil {
		a.logger.Warn("depgraph.parse.read.error", "path", file, "err", err)
		return
	}
	source := string(data)

	a.storeFunctions(file, parser.ExtractFunctions(source))

	deps := make(map[string]bool)
	for _, token := range parser.ExtractImports(source) {
		resolved := parser.ResolveImport(token, file, a.root)
		if resolved == "" {
			continue
		}
		deps[resolved] = true
	}
	if len(deps) > 0 {
		a.depsMu.Lock()
		a.fileDeps[file] = deps
		a.depsMu.Unlock()
	}
}

// storeFunctions records a file's functions and indexes their callees under
// "file:func" keys. Bodies are discarded after callee extraction.
func (a *Analyzer) storeFunctions(file string, funcs []FunctionInfo) {
	for i := range funcs {
		key := funcKey(file, funcs[i].Name)
		calls := extractCalls(funcs[i].Body)
		funcs[i].Body = ""

		a.indexMu.Lock()
		a.funcIndex[key] = calls
		a.funcLine[key] = funcs[i].Line
		a.indexMu.Unlock()
	}

	a.funcsMu.Lock()
	a.fileFunctions[file] = funcs
	a.funcsMu.Unlock()
}

func funcKey(file, name string) string { return file + ":" + name }

// AnalyzeFileDependencyTree returns the file dependency tree rooted at path.
// Relative paths resolve against the analyzer root. Depth is capped at
// DefaultMaxDepth; nodes past the cap appear without children. A file already
// on the current DFS branch appears as a node flagged cyclic, not expanded.
func (a *Analyzer) AnalyzeFileDependencyTree(ctx context.Context, path string) (*FileNode, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}
	abs := a.absPath(path)
	a.funcsMu.RLock()
	_, known := a.fileFunctions[abs]
	a.funcsMu.RUnlock()
	if !known {
		return nil, fmt.Errorf("depgraph: file not analyzed: %s", path)
	}
	return a.fileNode(abs, map[string]bool{}, 0, DefaultMaxDepth), nil
}

func (a *Analyzer) fileNode(file string, visited map[string]bool, depth, maxDepth int) *FileNode {
	node := &FileNode{
		Name:     filepath.Base(file),
		FilePath: a.relPath(file),
	}
	if visited[file] {
		node.IsCyclic = true
		return node
	}
	a.funcsMu.RLock()
	node.Functions = append([]FunctionInfo(nil), a.fileFunctions[file]...)
	a.funcsMu.RUnlock()

	if depth >= maxDepth {
		return node
	}

	a.depsMu.RLock()
	deps := sortedKeys(a.fileDeps[file])
	a.depsMu.RUnlock()

	for _, dep := range deps {
		// Each branch carries its own visited set so a file shared by two
		// siblings is expanded under both.
		branch := make(map[string]bool, len(visited)+1)
		for k := range visited {
			branch[k] = true
		}
		branch[file] = true
		node.Children = append(node.Children, a.fileNode(dep, branch, depth+1, maxDepth))
	}
	return node
}

// AnalyzeFunctionDependencyTree returns the call tree of functionName in
// path. Callee tokens resolve in order: same file, files the current file
// imports, then any file declaring that name. Cyclic calls are flagged and
// not expanded.
func (a *Analyzer) AnalyzeFunctionDependencyTree(ctx context.Context, path, functionName string) (*FuncNode, error) {
	if err := a.Initialize(ctx); err != nil {
		return nil, err
	}
	abs := a.absPath(path)
	key := funcKey(abs, functionName)
	a.indexMu.RLock()
	_, known := a.funcIndex[key]
	a.indexMu.RUnlock()
	if !known {
		return nil, fmt.Errorf("depgraph: function not analyzed: %s in %s", functionName, path)
	}
	return a.funcNode(abs, functionName, map[string]bool{}, 0, DefaultMaxDepth), nil
}

func (a *Analyzer) funcNode(file, name string, visited map[string]bool, depth, maxDepth int) *FuncNode {
	key := funcKey(file, name)
	a.indexMu.RLock()
	line := a.funcLine[key]
	calls := append([]string(nil), a.funcIndex[key]...)
	a.indexMu.RUnlock()

	node := &FuncNode{
		Name:     name,
		FilePath: a.relPath(file),
		Line:     line,
	}
	if visited[key] {
		node.IsCyclic = true
		return node
	}
	if depth >= maxDepth {
		return node
	}

	for _, callee := range calls {
		calleeFile := a.resolveCallee(file, callee)
		if calleeFile == "" {
			continue
		}
		branch := make(map[string]bool, len(visited)+1)
		for k := range visited {
			branch[k] = true
		}
		branch[key] = true
		node.Children = append(node.Children, a.funcNode(calleeFile, callee, branch, depth+1, maxDepth))
	}
	return node
}

// resolveCallee finds the file declaring callee, preferring the current file,
// then imported files in lexical order, then any declaring file.
func (a *Analyzer) resolveCallee(file, callee string) string {
	a.indexMu.RLock()
	defer a.indexMu.RUnlock()

	if _, ok := a.funcIndex[funcKey(file, callee)]; ok {
		return file
	}

	a.depsMu.RLock()
	imports := sortedKeys(a.fileDeps[file])
	a.depsMu.RUnlock()
	for _, imp := range imports {
		if _, ok := a.funcIndex[funcKey(imp, callee)]; ok {
			return imp
		}
	}

	suffix := ":" + callee
	var candidates []string
	for key := range a.funcIndex {
		if strings.HasSuffix(key, suffix) {
			candidates = append(candidates, strings.TrimSuffix(key, suffix))
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}

func (a *Analyzer) absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.root, filepath.FromSlash(path))
}

func (a *Analyzer) relPath(file string) string {
	rel, err := filepath.Rel(a.root, file)
	if err != nil {
		return file
	}
	return filepath.ToSlash(rel)
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
