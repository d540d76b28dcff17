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

package scanner

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreRule is a single parsed gitignore rule.
type IgnoreRule struct {
	// Pattern is the raw pattern text with flags stripped.
	Pattern string

	// Negated re-includes a path that an earlier rule excluded ("!" prefix).
	Negated bool

	// DirOnly restricts the rule to directories (trailing "/").
	DirOnly bool

	// Anchored restricts the rule to the repository root (leading "/").
	Anchored bool

	re *regexp.Regexp
}

// IgnoreList is an ordered gitignore ruleset. Order matters: the last
// matching rule decides whether a path is ignored.
type IgnoreList struct {
	rules []IgnoreRule
}

// LoadIgnore reads the .gitignore at root, if present. Parse errors and a
// missing file both degrade to an empty ruleset.
func LoadIgnore(root string) *IgnoreList {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return &IgnoreList{}
	}
	defer f.Close()

	list, err := ParseIgnore(f)
	if err != nil {
		return &IgnoreList{}
	}
	return list
}

// ParseIgnore parses gitignore rules from r. Blank lines and comment lines
// are skipped; individually malformed patterns are dropped rather than
// failing the whole ruleset.
func ParseIgnore(r io.Reader) (*IgnoreList, error) {
	list := &IgnoreList{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, ok := parseRule(line)
		if !ok {
			continue
		}
		list.rules = append(list.rules, rule)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// Len returns the number of parsed rules.
func (l *IgnoreList) Len() int { return len(l.rules) }

// Match reports whether relPath (slash-separated, relative to the repo root)
// is ignored. The last matching rule wins; a negated last match re-includes
// the path. Directory-only rules also match any file beneath a matching
// directory.
func (l *IgnoreList) Match(relPath string, isDir bool) bool {
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}

	ignored := false
	for _, rule := range l.rules {
		if rule.matches(relPath, isDir) {
			ignored = !rule.Negated
		}
	}
	return ignored
}

func (r *IgnoreRule) matches(relPath string, isDir bool) bool {
	if r.re == nil {
		return false
	}
	if r.DirOnly {
		if isDir && r.re.MatchString(relPath) {
			return true
		}
		// A directory rule covers everything inside the directory, so test
		// each parent path of a file as well.
		return matchesAnyParent(r.re, relPath)
	}
	if r.re.MatchString(relPath) {
		return true
	}
	// Non-anchored name patterns exclude whole subtrees too.
	return matchesAnyParent(r.re, relPath)
}

func matchesAnyParent(re *regexp.Regexp, relPath string) bool {
	for {
		idx := strings.LastIndex(relPath, "/")
		if idx < 0 {
			return false
		}
		relPath = relPath[:idx]
		if re.MatchString(relPath) {
			return true
		}
	}
}

func parseRule(line string) (IgnoreRule, bool) {
	rule := IgnoreRule{}

	if strings.HasPrefix(line, "!") {
		rule.Negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		rule.DirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		rule.Anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	// A slash in the middle anchors the pattern to the root as well.
	if strings.Contains(line, "/") {
		rule.Anchored = true
	}
	if line == "" {
		return rule, false
	}
	rule.Pattern = line

	expr, err := translatePattern(line, rule.Anchored)
	if err != nil {
		return rule, false
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return rule, false
	}
	rule.re = re
	return rule, true
}

// translatePattern converts a gitignore pattern into an anchored regexp:
//
//	**/ -> any (possibly empty) path prefix
//	*   -> any run of non-separator characters
//	?   -> one non-separator character
//	[..] -> character class, passed through
//
// All other regexp metacharacters are escaped.
func translatePattern(pattern string, anchored bool) (string, error) {
	var sb strings.Builder
	sb.WriteString("^")
	if !anchored {
		sb.WriteString(`(?:.*/)?`)
	}

	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if strings.HasPrefix(pattern[i:], "**/") {
				sb.WriteString(`(?:.*/)?`)
				i += 3
				continue
			}
			if pattern[i:] == "**" {
				sb.WriteString(`.*`)
				i += 2
				continue
			}
			sb.WriteString(`[^/]*`)
			i++
		case '?':
			sb.WriteString(`[^/]`)
			i++
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				sb.WriteString(regexp.QuoteMeta(string(c)))
				i++
				continue
			}
			class := pattern[i : i+end+2]
			// gitignore uses ! for negation where regexp uses ^
			class = strings.Replace(class, "[!", "[^", 1)
			sb.WriteString(class)
			i += end + 2
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	sb.WriteString("$")
	return sb.String(), nil
}
