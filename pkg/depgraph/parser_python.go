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

// PythonParser is the text parser for Python sources.
type PythonParser struct{}

var (
	pyImport     = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
	pyFromImport = regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import\s`)
	pyDef        = regexp.MustCompile(`(?m)^([ \t]*)(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`)
)

func (p *PythonParser) Extensions() []string { return []string{".py"} }

func (p *PythonParser) ExtractImports(source string) []string {
	var imports []string
	for _, m := range pyImport.FindAllStringSubmatch(source, -1) {
		imports = append(imports, m[1])
	}
	for _, m := range pyFromImport.FindAllStringSubmatch(source, -1) {
		imports = append(imports, m[1])
	}
	return imports
}

// ExtractFunctions returns top-level and method definitions. The body spans
// from the def line to the next line at the same or lower indentation.
func (p *PythonParser) ExtractFunctions(source string) []FunctionInfo {
	var funcs []FunctionInfo
	locs := pyDef.FindAllStringSubmatchIndex(source, -1)
	for _, loc := range locs {
		indent := loc[3] - loc[2]
		name := source[loc[4]:loc[5]]
		funcs = append(funcs, FunctionInfo{
			Name: name,
			Body: pythonBlock(source, loc[0], indent),
			Line: lineOf(source, loc[0]),
		})
	}
	return funcs
}

// pythonBlock slices the indentation-delimited block starting at offset.
func pythonBlock(source string, offset, indent int) string {
	lines := strings.SplitAfter(source[offset:], "\n")
	if len(lines) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(lines[0])
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || trimmed == "\n" {
			sb.WriteString(line)
			continue
		}
		if len(line)-len(trimmed) <= indent {
			break
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func (p *PythonParser) ExtractFunctionCalls(body string) []string {
	return extractCalls(body)
}

// ResolveImport maps a dotted module token to a file under the importing
// package or the project root: a.b -> a/b.py or a/b/__init__.py.
func (p *PythonParser) ResolveImport(token, currentFile, root string) string {
	rel := filepath.FromSlash(strings.ReplaceAll(strings.TrimLeft(token, "."), ".", "/"))
	for _, base := range []string{filepath.Dir(currentFile), root} {
		for _, suffix := range []string{".py", string(filepath.Separator) + "__init__.py"} {
			candidate := filepath.Join(base, rel) + suffix
			if fileExists(candidate) {
				return candidate
			}
		}
	}
	return ""
}
