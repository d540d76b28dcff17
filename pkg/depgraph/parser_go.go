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
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// GoParser is the text parser for Go sources. It is the fallback used when
// the tree-sitter semantic analyzer is not registered.
type GoParser struct{}

var (
	goImportBlock  = regexp.MustCompile(`(?s)import\s*\((.*?)\)`)
	goImportSingle = regexp.MustCompile(`(?m)^import\s+(?:\w+\s+)?"([^"]+)"`)
	goImportLine   = regexp.MustCompile(`"([^"]+)"`)
	goFuncDecl     = regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s+)?([A-Za-z_]\w*)\s*(?:\[[^\]]*\])?\(`)
	goModule       = regexp.MustCompile(`(?m)^module\s+(\S+)`)
)

func (p *GoParser) Extensions() []string { return []string{".go"} }

func (p *GoParser) ExtractImports(source string) []string {
	var imports []string
	for _, block := range goImportBlock.FindAllStringSubmatch(source, -1) {
		for _, m := range goImportLine.FindAllStringSubmatch(block[1], -1) {
			imports = append(imports, m[1])
		}
	}
	for _, m := range goImportSingle.FindAllStringSubmatch(source, -1) {
		imports = append(imports, m[1])
	}
	return imports
}

func (p *GoParser) ExtractFunctions(source string) []FunctionInfo {
	var funcs []FunctionInfo
	for _, loc := range goFuncDecl.FindAllStringSubmatchIndex(source, -1) {
		name := source[loc[2]:loc[3]]
		funcs = append(funcs, FunctionInfo{
			Name: name,
			Body: braceBody(source, loc[0]),
			Line: lineOf(source, loc[0]),
		})
	}
	return funcs
}

func (p *GoParser) ExtractFunctionCalls(body string) []string {
	return extractCalls(body)
}

// ResolveImport maps a module-internal import path to the lexically first
// .go file of the target package directory. External module paths stay
// unresolved.
func (p *GoParser) ResolveImport(token, currentFile, root string) string {
	dir := goPackageDir(token, root)
	if dir == "" {
		return ""
	}
	files := goFilesIn(dir)
	if len(files) == 0 {
		return ""
	}
	return files[0]
}

// goPackageDir resolves an import path to a directory under root using the
// module path declared in go.mod.
func goPackageDir(token, root string) string {
	modData, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	m := goModule.FindSubmatch(modData)
	if m == nil {
		return ""
	}
	modulePath := string(m[1])
	if !strings.HasPrefix(token, modulePath) {
		return ""
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(token, modulePath), "/")
	dir := filepath.Join(root, filepath.FromSlash(rel))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

// goFilesIn lists non-test .go files of a directory in lexical order.
func goFilesIn(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files
}
