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
	"strings"
)

// JavaParser is the text parser for Java sources.
type JavaParser struct{}

var (
	javaImport = regexp.MustCompile(`(?m)^\s*import\s+(?:static\s+)?([\w.]+)\s*;`)
	// Modifier-prefixed method declarations. Constructors and plain-visibility
	// methods without modifiers are out of reach for a text parser.
	javaMethod = regexp.MustCompile(`(?m)^\s*(?:public|protected|private|static|final|synchronized|abstract|native|\s)+[\w<>\[\],\s]+\s+([A-Za-z_]\w*)\s*\([^;{]*\)\s*(?:throws\s+[\w.,\s]+)?\{`)
)

func (p *JavaParser) Extensions() []string { return []string{".java"} }

func (p *JavaParser) ExtractImports(source string) []string {
	var imports []string
	for _, m := range javaImport.FindAllStringSubmatch(source, -1) {
		if strings.HasSuffix(m[1], ".*") {
			continue
		}
		imports = append(imports, m[1])
	}
	return imports
}

func (p *JavaParser) ExtractFunctions(source string) []FunctionInfo {
	var funcs []FunctionInfo
	for _, loc := range javaMethod.FindAllStringSubmatchIndex(source, -1) {
		name := source[loc[2]:loc[3]]
		if name == "if" || name == "for" || name == "while" || name == "switch" {
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

func (p *JavaParser) ExtractFunctionCalls(body string) []string {
	return extractCalls(body)
}

// ResolveImport maps a.b.C onto <root>/**/a/b/C.java by trying the package
// path against the root and common source prefixes.
func (p *JavaParser) ResolveImport(token, currentFile, root string) string {
	rel := filepath.FromSlash(strings.ReplaceAll(token, ".", "/")) + ".java"
	for _, base := range []string{
		root,
		filepath.Join(root, "src"),
		filepath.Join(root, "src", "main", "java"),
	} {
		candidate := filepath.Join(base, rel)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}
