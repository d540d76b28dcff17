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

// Package prompts ships the named markdown templates driving documentation
// generation, plus the renderer and output extractors. Templates use
// {{$variable}} substitution; rendering is pure and missing variables render
// as empty strings.
package prompts

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
)

//go:embed templates/*.md
var templateFS embed.FS

// Template names. Classification variants are base name + classification,
// e.g. AnalyzeCatalogue + "Libraries" = "AnalyzeCatalogueLibraries".
const (
	Overview                 = "Overview"
	RepositoryClassification = "RepositoryClassification"
	GenerateMindMap          = "GenerateMindMap"
	AnalyzeCatalogue         = "AnalyzeCatalogue"
	GenerateDocs             = "GenerateDocs"
	AnalyzeNewCatalogue      = "AnalyzeNewCatalogue"
	CodeDirSimplifier        = "CodeDirSimplifier"
	GenerateReadme           = "GenerateReadme"
)

// Classifications a repository can be tagged with.
var Classifications = []string{
	"Applications",
	"Frameworks",
	"Libraries",
	"DevelopmentTools",
	"CLITools",
	"DevOpsConfiguration",
	"Documentation",
}

// Get returns the raw template text for a name.
func Get(name string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("prompts: unknown template %q", name)
	}
	return string(data), nil
}

// GetForClassification returns the classification-specific variant of base,
// falling back to the base template when no variant exists or classify is
// empty.
func GetForClassification(base, classify string) (string, error) {
	if classify != "" {
		if text, err := Get(base + classify); err == nil {
			return text, nil
		}
	}
	return Get(base)
}

var varPattern = regexp.MustCompile(`\{\{\$(\w+)\}\}`)

// Render substitutes {{$name}} placeholders from vars. Unknown placeholders
// render as empty; no code execution, no recursion.
func Render(template string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := varPattern.FindStringSubmatch(m)[1]
		return vars[name]
	})
}

// ParseClassification matches raw model output against the known
// classification set, case-insensitively. Returns "" when nothing matches.
func ParseClassification(raw string) string {
	cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "classifyName:"))
	for _, c := range Classifications {
		if strings.EqualFold(cleaned, c) {
			return c
		}
	}
	return ""
}
