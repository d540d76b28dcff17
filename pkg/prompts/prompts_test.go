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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownTemplates(t *testing.T) {
	for _, name := range []string{
		Overview, RepositoryClassification, GenerateMindMap,
		AnalyzeCatalogue, GenerateDocs, AnalyzeNewCatalogue,
		CodeDirSimplifier, GenerateReadme,
	} {
		text, err := Get(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, text, name)
	}
}

func TestGetUnknownTemplate(t *testing.T) {
	_, err := Get("NoSuchPrompt")
	assert.Error(t, err)
}

func TestClassificationVariantsExist(t *testing.T) {
	for _, c := range Classifications {
		text, err := Get(AnalyzeCatalogue + c)
		require.NoError(t, err, c)
		assert.Contains(t, text, "documentation_structure")
	}
}

func TestGetForClassificationFallback(t *testing.T) {
	base, err := Get(AnalyzeCatalogue)
	require.NoError(t, err)

	variant, err := GetForClassification(AnalyzeCatalogue, "Libraries")
	require.NoError(t, err)
	assert.NotEqual(t, base, variant)

	// No Overview variants exist; any classification falls back.
	text, err := GetForClassification(Overview, "Libraries")
	require.NoError(t, err)
	fromBase, _ := Get(Overview)
	assert.Equal(t, fromBase, text)

	// Empty classification selects the base.
	text, err = GetForClassification(AnalyzeCatalogue, "")
	require.NoError(t, err)
	assert.Equal(t, base, text)
}

func TestRender(t *testing.T) {
	out := Render("repo {{$name}} on {{$branch}} by {{$missing}}!", map[string]string{
		"name":   "rde",
		"branch": "main",
	})
	assert.Equal(t, "repo rde on main by !", out)
}

func TestRenderIsPure(t *testing.T) {
	// Substituted values are not themselves re-expanded.
	out := Render("{{$a}}", map[string]string{"a": "{{$b}}", "b": "nested"})
	assert.Equal(t, "{{$b}}", out)
}

func TestRenderedTemplatesHaveNoLeftoverVars(t *testing.T) {
	text, err := Get(Overview)
	require.NoError(t, err)
	out := Render(text, map[string]string{
		"catalogue":      "src/D",
		"git_repository": "https://github.com/kraklabs/rde",
		"branch":         "main",
		"readme":         "# rde",
	})
	assert.NotContains(t, out, "{{$")
}

func TestParseClassification(t *testing.T) {
	assert.Equal(t, "Libraries", ParseClassification("libraries"))
	assert.Equal(t, "CLITools", ParseClassification(" clitools "))
	assert.Equal(t, "Applications", ParseClassification("classifyName:Applications"))
	assert.Empty(t, ParseClassification("middleware"))
	assert.Empty(t, ParseClassification(""))
}

func TestExtractTag(t *testing.T) {
	out := "preamble\n<blog>\n# Page\nbody\n</blog>\ntrailer"
	assert.Equal(t, "# Page\nbody", Extract(out, "blog"))
}

func TestExtractSpansNewlines(t *testing.T) {
	out := "<readme>line one\n\nline two</readme>"
	assert.Equal(t, "line one\n\nline two", Extract(out, "readme"))
}

func TestExtractFallsBackToFencedJSON(t *testing.T) {
	out := "no tags here\n```json\n{\"items\": []}\n```\n"
	assert.Equal(t, `{"items": []}`, Extract(out, "documentation_structure"))
}

func TestExtractFallsBackToRaw(t *testing.T) {
	assert.Equal(t, "plain text", Extract("  plain text \n", "blog"))
}

func TestExtractTagWinsOverFence(t *testing.T) {
	out := "<response_file>a/F</response_file>\n```json\n{}\n```"
	assert.Equal(t, "a/F", Extract(out, "response_file"))
}

func TestExtractJSONUnwrapsFencedTagBody(t *testing.T) {
	out := "<documentation_structure>\n```json\n{\"items\":[]}\n```\n</documentation_structure>"
	assert.Equal(t, `{"items":[]}`, ExtractJSON(out, "documentation_structure"))
}

func TestExtractClassify(t *testing.T) {
	assert.Equal(t, "Frameworks",
		ExtractClassify("thoughts\n<classify>classifyName:frameworks</classify>"))
	assert.Empty(t, ExtractClassify("<classify>classifyName:unknown</classify>"))
	assert.Empty(t, ExtractClassify("no wrapper at all"))
}

func TestStripTag(t *testing.T) {
	out := "<thinking>planning...</thinking>\n# Map\n- node"
	assert.Equal(t, "# Map\n- node", StripTag(out, "thinking"))

	multi := "<project_analysis>a</project_analysis>x<project_analysis>b</project_analysis>"
	assert.Equal(t, "x", StripTag(multi, "project_analysis"))
}

func TestTemplatesDeclareTheirWrappers(t *testing.T) {
	for name, wrapper := range map[string]string{
		RepositoryClassification: "<classify>",
		GenerateDocs:             "<blog>",
		GenerateReadme:           "<readme>",
		CodeDirSimplifier:        "<response_file>",
		AnalyzeCatalogue:         "<documentation_structure>",
	} {
		text, err := Get(name)
		require.NoError(t, err)
		assert.True(t, strings.Contains(text, wrapper), "%s must mandate %s", name, wrapper)
	}
}
