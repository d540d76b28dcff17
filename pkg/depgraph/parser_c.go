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
	"path/filepath"
	"regexp"
)

// CParser is the text parser for C and C++ sources.
type CParser struct{}

var (
	cInclude = regexp.MustCompile(`(?m)^\s*#\s*include\s+"([^"]+)"`)
	cFunc    = regexp.MustCompile(`(?m)^[\w*&:<>,\s]+?\b([A-Za-z_]\w*)\s*\([^;{]*\)\s*(?:const\s*)?\{`)
)

func (p *CParser) Extensions() []string {
	return []string{".c", ".h", ".cpp", ".cc", ".hpp", ".cxx"}
}

// ExtractImports returns quoted includes only; angle-bracket includes name
// system headers outside the working tree.
func (p *CParser) ExtractImports(source string) []string {
	var imports []string
	for _, m := range cInclude.FindAllStringSubmatch(source, -1) {
		imports = append(imports, m[1])
	}
	return imports
}

func (p *CParser) ExtractFunctions(source string) []FunctionInfo {
	var funcs []FunctionInfo
	for _, loc := range cFunc.FindAllStringSubmatchIndex(source, -1) {
		name := source[loc[2]:loc[3]]
		if callKeywords[name] {
			continue
		}
		funcs = append(funcs, FunctionInfo{
			Name: name,
			Body: braceBody(source, loc[0]),
			Line: lineOf(source, loc[0]),
		})
	}
	return funcs
}

func (p *CParser) ExtractFunctionCalls(body string) []string {
	return extractCalls(body)
}

// ResolveImport resolves a quoted include relative to the including file,
// then the project root. A matching .h resolves further to a sibling
// implementation file when one exists, so the dependency edge reaches code.
func (p *CParser) ResolveImport(token, currentFile, root string) string {
	for _, base := range []string{filepath.Dir(currentFile), root, filepath.Join(root, "include")} {
		candidate := filepath.Join(base, filepath.FromSlash(token))
		if !fileExists(candidate) {
			continue
		}
		if filepath.Ext(candidate) == ".h" || filepath.Ext(candidate) == ".hpp" {
			stem := candidate[:len(candidate)-len(filepath.Ext(candidate))]
			for _, ext := range []string{".c", ".cpp", ".cc"} {
				if fileExists(stem + ext) {
					return stem + ext
				}
			}
		}
		return candidate
	}
	return ""
}
