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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/rde/pkg/llm"
	"github.com/kraklabs/rde/pkg/prompts"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestKernel(t *testing.T, cfg Config) (*Kernel, *llm.MockProvider, string) {
	t.Helper()
	root := t.TempDir()
	mock := &llm.MockProvider{Model: "mock-model"}
	return New(mock, root, cfg, nil), mock, root
}

func TestInvokePromptToolLoop(t *testing.T) {
	k, mock, root := newTestKernel(t, Config{})
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	mock.EnqueueToolCall("call_1", "ReadFile", `{"path":"main.go"}`)
	mock.EnqueueText("The entry point is main.go.")

	dc := NewDocumentContext()
	out, err := k.InvokePrompt(context.Background(), prompts.Overview,
		map[string]string{"catalogue": "main.go/F"}, dc)
	require.NoError(t, err)
	assert.Equal(t, "The entry point is main.go.", out)

	// The tool result must have reached the model as a tool message.
	require.Len(t, mock.Requests, 2)
	second := mock.Requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "package main")

	assert.Equal(t, []string{"main.go"}, dc.Files())
	require.Len(t, dc.Calls(), 1)
	assert.Equal(t, "ReadFile", dc.Calls()[0].Name)
}

func TestInvokePromptRoundCap(t *testing.T) {
	k, mock, root := newTestKernel(t, Config{})
	writeFile(t, root, "a.txt", "x\n")

	mock.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{
			Message: llm.Message{
				Role:      "assistant",
				ToolCalls: []llm.ToolCall{{ID: "c", Name: "ReadFile", Arguments: `{"path":"a.txt"}`}},
			},
			Done: true,
		}, nil
	}

	_, err := k.InvokePrompt(context.Background(), prompts.Overview, nil, NewDocumentContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool rounds")
}

func TestToolGetTree(t *testing.T) {
	k, _, root := newTestKernel(t, Config{})
	writeFile(t, root, "src/app.js", "let x = 1\n")
	writeFile(t, root, "README.md", "# hi\n")

	out := k.toolGetTree(context.Background(), "{}", nil)
	assert.Contains(t, out, "src/D")
	assert.Contains(t, out, "src/app.js/F")
	assert.Contains(t, out, "README.md/F")
}

func TestToolFileInfo(t *testing.T) {
	k, _, root := newTestKernel(t, Config{})
	writeFile(t, root, "a.go", "package a\n\nvar X = 1\n")

	out := k.toolFileInfo(context.Background(),
		`{"paths":["a.go","a.go","missing.go"]}`, nil)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2, "duplicate paths are reported once")
	assert.Contains(t, lines[0], "name=a.go")
	assert.Contains(t, lines[0], "ext=.go")
	assert.Contains(t, lines[0], "lines=3")
	assert.Contains(t, lines[1], "File not found")
}

func TestReadFileLimits(t *testing.T) {
	k, _, root := newTestKernel(t, Config{})
	writeFile(t, root, "small.txt", "hello\n")
	writeFile(t, root, "exact.txt", strings.Repeat("a", MaxReadFileBytes))
	writeFile(t, root, "big.txt", strings.Repeat("a", MaxReadFileBytes+1))

	dc := NewDocumentContext()
	assert.Equal(t, "hello\n", k.toolReadFile(context.Background(), `{"path":"small.txt"}`, dc))
	// The cutoff is inclusive: a file of exactly MaxReadFileBytes is
	// returned whole; one byte more is rejected.
	assert.Equal(t, strings.Repeat("a", MaxReadFileBytes),
		k.toolReadFile(context.Background(), `{"path":"exact.txt"}`, dc))
	assert.Contains(t,
		k.toolReadFile(context.Background(), `{"path":"big.txt"}`, dc),
		"File too large")
	assert.Equal(t, "File not found",
		k.toolReadFile(context.Background(), `{"path":"nope.txt"}`, dc))

	// Oversized and missing files are not recorded as sources.
	assert.Equal(t, []string{"small.txt", "exact.txt"}, dc.Files())
}

func TestReadFileRejectsEscape(t *testing.T) {
	k, _, _ := newTestKernel(t, Config{})
	assert.Equal(t, "File not found",
		k.toolReadFile(context.Background(), `{"path":"../../etc/passwd"}`, nil))
}

func TestReadFilesMultiple(t *testing.T) {
	k, _, root := newTestKernel(t, Config{})
	writeFile(t, root, "a.txt", "alpha\n")
	writeFile(t, root, "b.txt", "beta\n")

	out := k.toolReadFiles(context.Background(), `{"paths":["b.txt","a.txt"]}`, nil)
	assert.Contains(t, out, "===== a.txt =====\nalpha")
	assert.Contains(t, out, "===== b.txt =====\nbeta")
}

func TestFileRangedSemantics(t *testing.T) {
	k, _, root := newTestKernel(t, Config{})
	var sb strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&sb, "line%d\n", i)
	}
	writeFile(t, root, "f.txt", sb.String())

	run := func(offset, limit int) string {
		args, _ := json.Marshal(map[string]any{
			"items": []map[string]any{{"file_path": "f.txt", "offset": offset, "limit": limit}},
		})
		return k.toolFileRanged(context.Background(), string(args), nil)
	}

	// Window [2, 5): lines 3..4 with absolute numbering.
	out := run(2, 2)
	assert.Contains(t, out, "3: line3")
	assert.Contains(t, out, "4: line4")
	assert.NotContains(t, out, "5: line5")

	// Negative offset and limit read the whole file.
	out = run(-1, -1)
	assert.Contains(t, out, "1: line1")
	assert.Contains(t, out, "10: line10")

	// Negative limit reads to the end.
	out = run(8, -1)
	assert.NotContains(t, out, "8: line8")
	assert.Contains(t, out, "9: line9")
	assert.Contains(t, out, "10: line10")

	// Window past EOF reports no content instead of erroring.
	out = run(50, 10)
	assert.NotContains(t, out, "line")
	assert.Contains(t, out, msgNoContent)
}

func TestFileRangedTruncatesLongLines(t *testing.T) {
	k, _, root := newTestKernel(t, Config{})
	writeFile(t, root, "long.txt", strings.Repeat("z", 5000)+"\n")

	args := `{"items":[{"file_path":"long.txt","offset":-1,"limit":-1}]}`
	out := k.toolFileRanged(context.Background(), args, nil)
	payload := strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(out, "===== long.txt =====")), "\n")
	assert.Equal(t, len("1: ")+maxLineChars, len(strings.TrimSpace(payload)))
}

func TestCodeCompressionApplied(t *testing.T) {
	k, _, root := newTestKernel(t, Config{EnableCodeCompression: true})
	writeFile(t, root, "x.go", "package x\n\n// comment line\nvar A = 1\n")
	writeFile(t, root, "x.txt", "// kept, not code\n")

	out := k.toolReadFile(context.Background(), `{"path":"x.go"}`, nil)
	assert.NotContains(t, out, "comment line")
	assert.Contains(t, out, "var A = 1")

	out = k.toolReadFile(context.Background(), `{"path":"x.txt"}`, nil)
	assert.Contains(t, out, "kept, not code")
}

func TestDependencyToolsGating(t *testing.T) {
	names := func(k *Kernel) []string {
		var out []string
		for _, spec := range k.specs() {
			out = append(out, spec.Name)
		}
		return out
	}

	k, _, _ := newTestKernel(t, Config{CodeAnalysisPlugin: true})
	assert.NotContains(t, names(k), "AnalyzeFileDependencyTree",
		"plugin flag alone must not expose dependency tools")

	k, _, _ = newTestKernel(t, Config{EnableDependencyAnalysis: true})
	assert.NotContains(t, names(k), "AnalyzeFileDependencyTree")

	k, _, _ = newTestKernel(t, Config{CodeAnalysisPlugin: true, EnableDependencyAnalysis: true})
	assert.Contains(t, names(k), "AnalyzeFileDependencyTree")
	assert.Contains(t, names(k), "AnalyzeFunctionDependencyTree")
}

func TestDependencyToolReturnsJSON(t *testing.T) {
	k, _, root := newTestKernel(t, Config{CodeAnalysisPlugin: true, EnableDependencyAnalysis: true})
	writeFile(t, root, "a.js", "import './b.js'\nfunction top() { mid() }\n")
	writeFile(t, root, "b.js", "function mid() {}\n")

	out := k.toolFileDeps(context.Background(), `{"file_path":"a.js"}`, nil)
	var node map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &node))
	assert.Equal(t, "a.js", node["name"])
}

func TestUnknownToolReturnsStringError(t *testing.T) {
	k, _, _ := newTestKernel(t, Config{})
	dc := NewDocumentContext()
	out := k.dispatch(context.Background(), llm.ToolCall{ID: "x", Name: "Bogus"}, dc)
	assert.Contains(t, out, "Unknown tool")
	require.Len(t, dc.Calls(), 1)
}

func TestInvokeStreamingForwardsDeltas(t *testing.T) {
	k, mock, _ := newTestKernel(t, Config{})
	mock.EnqueueText("streamed answer")

	var chunks []string
	out, err := k.InvokeStreaming(context.Background(), prompts.Overview, nil,
		NewDocumentContext(), func(chunk string) { chunks = append(chunks, chunk) })
	require.NoError(t, err)
	assert.Equal(t, "streamed answer", out)
	assert.Equal(t, []string{"streamed answer"}, chunks)
}

func TestAnalysisModelRouting(t *testing.T) {
	k, mock, _ := newTestKernel(t, Config{Model: "chat-1", AnalysisModel: "analysis-1"})

	mock.EnqueueText("ok")
	mock.EnqueueText("ok")
	dc := NewDocumentContext()

	_, err := k.InvokePrompt(context.Background(), prompts.RepositoryClassification,
		map[string]string{"category": "", "readme": ""}, dc)
	require.NoError(t, err)
	_, err = k.InvokePrompt(context.Background(), prompts.GenerateDocs,
		map[string]string{"title": "x"}, dc)
	require.NoError(t, err)

	require.Len(t, mock.Requests, 2)
	assert.Equal(t, "analysis-1", mock.Requests[0].Model)
	assert.Equal(t, "chat-1", mock.Requests[1].Model)
}
