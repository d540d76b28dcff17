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
	"strings"
)

// callPattern matches identifier(, the shared callee-extraction heuristic
// for brace languages. Keywords are filtered afterwards.
var callPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

var callKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "func": true, "function": true, "new": true, "def": true,
	"make": true, "len": true, "append": true, "panic": true, "print": true,
	"println": true, "sizeof": true, "typeof": true, "super": true,
}

// extractCalls applies the shared callee heuristic to a function body.
func extractCalls(body string) []string {
	var calls []string
	seen := map[string]bool{}
	for _, m := range callPattern.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if callKeywords[name] || seen[name] {
			continue
		}
		seen[name] = true
		calls = append(calls, name)
	}
	return calls
}

// braceBody returns the brace-balanced body starting at the first '{' at or
// after start, or "" if braces never balance.
func braceBody(source string, start int) string {
	open := strings.IndexByte(source[start:], '{')
	if open < 0 {
		return ""
	}
	open += start
	depth := 0
	for i := open; i < len(source); i++ {
		switch source[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return source[open : i+1]
			}
		}
	}
	return ""
}

// lineOf returns the 1-based line number of byte offset in source.
func lineOf(source string, offset int) int {
	return strings.Count(source[:offset], "\n") + 1
}

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// resolveRelative resolves a ./ or ../ import token against the importing
// file, trying each candidate suffix in order.
func resolveRelative(token, currentFile string, suffixes []string) string {
	base := filepath.Join(filepath.Dir(currentFile), filepath.FromSlash(token))
	for _, suffix := range suffixes {
		candidate := base + suffix
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}
