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

package pipeline

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kraklabs/rde/pkg/store"
)

// Models emit navigation lines as "##Title:path" without the space CommonMark
// requires after the marker; normalize before parsing.
var headingNoSpace = regexp.MustCompile(`(?m)^(#+)([^#\s].*)$`)

type headingLine struct {
	level int
	title string
	url   string
}

// parseMindMap turns a markdown heading skeleton into a node forest. Heading
// depth becomes tree depth; a "Title:path" heading carries a relative URL.
func parseMindMap(markdown string) []*store.MindMapNode {
	source := []byte(headingNoSpace.ReplaceAllString(markdown, "$1 $2"))
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var headings []headingLine
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		line := headingLine{level: h.Level, title: headingText(h, source)}
		if colon := strings.Index(line.title, ":"); colon >= 0 {
			line.url = strings.TrimSpace(line.title[colon+1:])
			line.title = strings.TrimSpace(line.title[:colon])
		}
		if line.title != "" {
			headings = append(headings, line)
		}
		return ast.WalkSkipChildren, nil
	})

	return buildForest(headings)
}

func headingText(n ast.Node, source []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return strings.TrimSpace(sb.String())
}

func buildForest(headings []headingLine) []*store.MindMapNode {
	var roots []*store.MindMapNode

	// Stack of (level, node) pairs; a heading attaches to the nearest
	// shallower entry.
	type frame struct {
		level int
		node  *store.MindMapNode
	}
	var stack []frame

	for _, h := range headings {
		node := &store.MindMapNode{Title: h.title, URL: h.url}
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, frame{level: h.level, node: node})
	}
	return roots
}

// hostedRemotes are the web hosts whose tree-browsing URL layout we know.
var hostedRemotes = map[string]bool{
	"github.com": true,
	"gitee.com":  true,
}

// ResolveMindMapURLs rewrites relative node URLs against the remote web
// host. The mind map is rebuilt from scratch on every full run, so a remote
// or branch change refreshes the stored URLs with it. Unknown hosts keep
// repository-relative URLs.
func ResolveMindMapURLs(remote, branch string, nodes []*store.MindMapNode) {
	parsed, err := url.Parse(remote)
	if err != nil || !hostedRemotes[strings.ToLower(parsed.Host)] {
		return
	}
	if branch == "" {
		branch = "main"
	}
	base := strings.TrimSuffix(strings.TrimSuffix(remote, "/"), ".git")
	prefix := base + "/tree/" + branch + "/"

	var walk func(nodes []*store.MindMapNode)
	walk = func(nodes []*store.MindMapNode) {
		for _, node := range nodes {
			if node.URL != "" && !strings.Contains(node.URL, "://") {
				node.URL = prefix + strings.TrimPrefix(node.URL, "/")
			}
			walk(node.Children)
		}
	}
	walk(nodes)
}
