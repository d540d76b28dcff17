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
	"regexp"
	"strings"
)

// JavaScriptParser is the text parser for JavaScript and TypeScript sources.
type JavaScriptParser struct{}

var (
	jsImportFrom  = regexp.MustCompile(`import\s+(?:[\w${},*\s]+\s+from\s+)?['"]([^'"]+)['"]`)
	jsRequire     = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsFuncDecl    = regexp.MustCompile(`(?:export\s+)?(?:async\s+)?function\s+([A-Za-z_$][\w$]*)\s*\(`)
	jsArrowAssign = regexp.MustCompile(`(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s*)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`)
)

func (p *JavaScriptParser) Extensions() []string {
	return []string{".js", ".jsx", ".ts", ".tsx", ".mjs"}
}

func (p *JavaScriptParser) ExtractImports(source string) []string {
	var imports []string
	for _, m := range jsImportFrom.FindAllStringSubmatch(source, -1) {
		imports = append(imports, m[1])
	}
	for _, m := range jsRequire.FindAllStringSubmatch(source, -1) {
		imports = append(imports, m[1])
	}
	return imports
}

func (p *JavaScriptParser) ExtractFunctions(source string) []FunctionInfo {
	var funcs []FunctionInfo
	for _, loc := range jsFuncDecl.FindAllStringSubmatchIndex(source, -1) {
		name := source[loc[2]:loc[3]]
		funcs = append(funcs, FunctionInfo{
			Name: name,
			Body: braceBody(source, loc[0]),
			Line: lineOf(source, loc[0]),
		})
	}
	for _, loc := range jsArrowAssign.FindAllStringSubmatchIndex(source, -1) {
		name := source[loc[2]:loc[3]]
		funcs = append(funcs, FunctionInfo{
			Name: name,
			Body: braceBody(source, loc[1]),
			Line: lineOf(source, loc[0]),
		})
	}
	return funcs
}

func (p *JavaScriptParser) ExtractFunctionCalls(body string) []string {
	return extractCalls(body)
}

// ResolveImport handles relative specifiers only; bare module names refer to
// packages outside the working tree and stay unresolved.
func (p *JavaScriptParser) ResolveImport(token, currentFile, root string) string {
	if !strings.HasPrefix(token, ".") {
		return ""
	}
	return resolveRelative(token, currentFile, []string{
		"", ".js", ".jsx", ".ts", ".tsx", ".mjs",
		"/index.js", "/index.jsx", "/index.ts", "/index.tsx",
	})
}
