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
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one node of the nested file tree built from scan output.
type Node struct {
	Name     string  `json:"name"`
	IsDir    bool    `json:"is_dir"`
	Children []*Node `json:"children,omitempty"`
}

// Format names accepted by Render.
const (
	FormatCompact  = "compact"
	FormatJSON     = "json"
	FormatPathList = "pathlist"
)

// BuildTree nests scan output by path segment. The returned root node is
// unnamed and always a directory. Nesting is deterministic because Scan
// emits lexically ordered, parent-before-child paths.
func BuildTree(paths []PathInfo) *Node {
	root := &Node{IsDir: true}
	index := map[string]*Node{"": root}

	for _, p := range paths {
		parentPath := ""
		name := p.Path
		if idx := strings.LastIndex(p.Path, "/"); idx >= 0 {
			parentPath = p.Path[:idx]
			name = p.Path[idx+1:]
		}
		parent, ok := index[parentPath]
		if !ok {
			// Orphaned entry (parent was filtered); attach to root.
			parent = root
		}
		node := &Node{Name: name, IsDir: p.Kind == KindDir}
		parent.Children = append(parent.Children, node)
		if node.IsDir {
			index[p.Path] = node
		}
	}
	return root
}

// Compact renders the tree as one line per path with a short kind hint:
// "/D" for directories, "/F" for files.
func Compact(t *Node) string {
	var sb strings.Builder
	compactWalk(t, "", &sb)
	return strings.TrimRight(sb.String(), "\n")
}

func compactWalk(n *Node, prefix string, sb *strings.Builder) {
	for _, c := range n.Children {
		path := c.Name
		if prefix != "" {
			path = prefix + "/" + c.Name
		}
		if c.IsDir {
			fmt.Fprintf(sb, "%s/D\n", path)
			compactWalk(c, path, sb)
		} else {
			fmt.Fprintf(sb, "%s/F\n", path)
		}
	}
}

// PathList renders the tree as newline-separated relative paths.
func PathList(t *Node) string {
	var sb strings.Builder
	pathListWalk(t, "", &sb)
	return strings.TrimRight(sb.String(), "\n")
}

func pathListWalk(n *Node, prefix string, sb *strings.Builder) {
	for _, c := range n.Children {
		path := c.Name
		if prefix != "" {
			path = prefix + "/" + c.Name
		}
		sb.WriteString(path)
		sb.WriteString("\n")
		if c.IsDir {
			pathListWalk(c, path, sb)
		}
	}
}

// JSON renders the tree in structured form.
func JSON(t *Node) (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tree: %w", err)
	}
	return string(data), nil
}

// Render produces the tree in the requested format. Unknown formats fall
// back to compact.
func Render(t *Node, format string) (string, error) {
	switch format {
	case FormatJSON:
		return JSON(t)
	case FormatPathList:
		return PathList(t), nil
	default:
		return Compact(t), nil
	}
}
