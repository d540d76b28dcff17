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

package prompts

import (
	"regexp"
	"strings"
	"sync"
)

// Model outputs arrive wrapped in prompt-mandated tags. Extraction order:
// the named tag, then a fenced json block, then the raw output. All regexes
// run with dot-matches-newline.

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

var (
	tagMu    sync.Mutex
	tagCache = map[string]*regexp.Regexp{}
)

func tagPattern(tag string) *regexp.Regexp {
	tagMu.Lock()
	defer tagMu.Unlock()
	re, ok := tagCache[tag]
	if !ok {
		re = regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`)
		tagCache[tag] = re
	}
	return re
}

// Extract pulls the payload out of output. tag is the wrapper element name
// without angle brackets ("blog", "readme", "documentation_structure", ...).
func Extract(output, tag string) string {
	if m := tagPattern(tag).FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := fencedJSON.FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(output)
}

// ExtractJSON pulls a JSON payload: fenced json block first, then a named
// tag whose body may itself be fenced, then raw.
func ExtractJSON(output, tag string) string {
	body := Extract(output, tag)
	if m := fencedJSON.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return body
}

// ExtractClassify pulls the classification value out of a
// <classify>classifyName:Value</classify> wrapper and validates it against
// the known set. Returns "" when absent or unparseable.
func ExtractClassify(output string) string {
	m := tagPattern("classify").FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return ParseClassification(m[1])
}

// StripTag removes every <tag>...</tag> block from output.
func StripTag(output, tag string) string {
	return strings.TrimSpace(tagPattern(tag).ReplaceAllString(output, ""))
}
