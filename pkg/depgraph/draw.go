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
	"fmt"
	"strings"
)

// DrawFileTree renders a file dependency tree with box-drawing connectors.
func DrawFileTree(root *FileNode) string {
	var sb strings.Builder
	sb.WriteString(fileLabel(root))
	sb.WriteByte('\n')
	for i, child := range root.Children {
		drawFile(&sb, child, "", i == len(root.Children)-1)
	}
	return sb.String()
}

func drawFile(sb *strings.Builder, n *FileNode, prefix string, last bool) {
	connector, childPrefix := connectors(prefix, last)
	sb.WriteString(connector + fileLabel(n) + "\n")
	for i, child := range n.Children {
		drawFile(sb, child, childPrefix, i == len(n.Children)-1)
	}
}

func fileLabel(n *FileNode) string {
	if n.IsCyclic {
		return n.FilePath + " (cycle)"
	}
	return n.FilePath
}

// DrawFuncTree renders a function call tree with box-drawing connectors.
func DrawFuncTree(root *FuncNode) string {
	var sb strings.Builder
	sb.WriteString(funcLabel(root))
	sb.WriteByte('\n')
	for i, child := range root.Children {
		drawFunc(&sb, child, "", i == len(root.Children)-1)
	}
	return sb.String()
}

func drawFunc(sb *strings.Builder, n *FuncNode, prefix string, last bool) {
	connector, childPrefix := connectors(prefix, last)
	sb.WriteString(connector + funcLabel(n) + "\n")
	for i, child := range n.Children {
		drawFunc(sb, child, childPrefix, i == len(n.Children)-1)
	}
}

func funcLabel(n *FuncNode) string {
	label := fmt.Sprintf("%s (%s:%d)", n.Name, n.FilePath, n.Line)
	if n.IsCyclic {
		label += " (cycle)"
	}
	return label
}

func connectors(prefix string, last bool) (line, child string) {
	if last {
		return prefix + "└── ", prefix + "    "
	}
	return prefix + "├── ", prefix + "│   "
}

// FileTreeDot renders a file dependency tree as a Graphviz digraph. Edges are
// deduplicated; cyclic nodes get a dashed border.
func FileTreeDot(root *FileNode) string {
	var sb strings.Builder
	sb.WriteString("digraph deps {\n  rankdir=LR;\n  node [shape=box];\n")
	seen := map[string]bool{}
	var walk func(n *FileNode)
	walk = func(n *FileNode) {
		if n.IsCyclic {
			fmt.Fprintf(&sb, "  %q [style=dashed];\n", n.FilePath)
		}
		for _, child := range n.Children {
			edge := n.FilePath + " -> " + child.FilePath
			if !seen[edge] {
				seen[edge] = true
				fmt.Fprintf(&sb, "  %q -> %q;\n", n.FilePath, child.FilePath)
			}
			walk(child)
		}
	}
	walk(root)
	sb.WriteString("}\n")
	return sb.String()
}
