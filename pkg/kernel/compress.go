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

package kernel

import (
	"regexp"
	"strings"
)

// codeExtensions are the file kinds eligible for compression before being
// handed to the model.
var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true,
	".tsx": true, ".mjs": true, ".java": true, ".c": true, ".h": true,
	".cpp": true, ".cc": true, ".hpp": true, ".cs": true, ".rb": true,
	".rs": true, ".php": true, ".kt": true, ".swift": true, ".scala": true,
}

// IsCodeFile reports whether ext (with dot) is a recognized code kind.
func IsCodeFile(ext string) bool {
	return codeExtensions[strings.ToLower(ext)]
}

var (
	lineComment  = regexp.MustCompile(`(?m)^\s*(//|#).*$`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
	trailingWS   = regexp.MustCompile(`(?m)[ \t]+$`)
)

// CompressCode reduces token load by dropping comments and collapsing blank
// runs. Strings containing comment-lookalikes may be clipped; acceptable for
// model consumption, never used to modify files.
func CompressCode(source string) string {
	out := blockComment.ReplaceAllString(source, "")
	out = lineComment.ReplaceAllString(out, "")
	out = trailingWS.ReplaceAllString(out, "")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out) + "\n"
}
