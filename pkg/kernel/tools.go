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
	"sort"
	"strings"

	"github.com/kraklabs/rde/pkg/llm"
	"github.com/kraklabs/rde/pkg/scanner"
)

// MaxReadFileBytes is the full-read cutoff. Larger files must be read with
// the line-ranged File tool.
const MaxReadFileBytes = 100 * 1024

// maxLineChars truncates individual lines returned by the File tool.
const maxLineChars = 2000

const (
	msgFileNotFound = "File not found"
	msgFileTooLarge = "File too large: use the File tool with offset and limit to read it in line ranges"
	msgNoContent    = "No content in the requested range"
)

// tool is one callable exposed to the model. run returns a string payload;
// failures are reported in the payload, never as Go errors, so the model can
// react to them.
type tool struct {
	spec llm.ToolSpec
	run  func(ctx context.Context, args string, dc *DocumentContext) string
}

func schema(s string) json.RawMessage { return json.RawMessage(s) }

// resolve maps a model-supplied path onto the working tree, rejecting
// escapes above the root.
func (k *Kernel) resolve(path string) (string, bool) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(cleaned) {
		rel, err := filepath.Rel(k.workdir, cleaned)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", false
		}
		return cleaned, true
	}
	if strings.HasPrefix(cleaned, "..") {
		return "", false
	}
	return filepath.Join(k.workdir, cleaned), true
}

// readContent loads a file and applies code compression when configured.
func (k *Kernel) readContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	if k.cfg.EnableCodeCompression && IsCodeFile(filepath.Ext(path)) {
		content = CompressCode(content)
	}
	return content, nil
}

func (k *Kernel) baseTools() []tool {
	return []tool{
		{
			spec: llm.ToolSpec{
				Name:        "GetTree",
				Description: "Return the repository file tree, honoring ignore rules.",
				Parameters:  schema(`{"type":"object","properties":{}}`),
			},
			run: k.toolGetTree,
		},
		{
			spec: llm.ToolSpec{
				Name:        "FileInfo",
				Description: "Return name, size, extension, and line count for each path.",
				Parameters: schema(`{"type":"object","properties":{
					"paths":{"type":"array","items":{"type":"string"}}
				},"required":["paths"]}`),
			},
			run: k.toolFileInfo,
		},
		{
			spec: llm.ToolSpec{
				Name:        "ReadFiles",
				Description: "Read several files at once. Files of 100 KiB or more must be read with the File tool instead.",
				Parameters: schema(`{"type":"object","properties":{
					"paths":{"type":"array","items":{"type":"string"}}
				},"required":["paths"]}`),
			},
			run: k.toolReadFiles,
		},
		{
			spec: llm.ToolSpec{
				Name:        "ReadFile",
				Description: "Read one file. Files of 100 KiB or more must be read with the File tool instead.",
				Parameters: schema(`{"type":"object","properties":{
					"path":{"type":"string"}
				},"required":["path"]}`),
			},
			run: k.toolReadFile,
		},
		{
			spec: llm.ToolSpec{
				Name:        "File",
				Description: "Read line ranges. offset and limit below zero read the whole file; limit below zero reads to the end. Lines are numbered and truncated to 2000 characters.",
				Parameters: schema(`{"type":"object","properties":{
					"items":{"type":"array","items":{"type":"object","properties":{
						"file_path":{"type":"string"},
						"offset":{"type":"integer"},
						"limit":{"type":"integer"}
					},"required":["file_path"]}}
				},"required":["items"]}`),
			},
			run: k.toolFileRanged,
		},
	}
}

func (k *Kernel) depTools() []tool {
	return []tool{
		{
			spec: llm.ToolSpec{
				Name:        "AnalyzeFileDependencyTree",
				Description: "Return the file-level dependency tree of a source file as JSON.",
				Parameters: schema(`{"type":"object","properties":{
					"file_path":{"type":"string"}
				},"required":["file_path"]}`),
			},
			run: k.toolFileDeps,
		},
		{
			spec: llm.ToolSpec{
				Name:        "AnalyzeFunctionDependencyTree",
				Description: "Return the call tree of a function as JSON.",
				Parameters: schema(`{"type":"object","properties":{
					"file_path":{"type":"string"},
					"function_name":{"type":"string"}
				},"required":["file_path","function_name"]}`),
			},
			run: k.toolFuncDeps,
		},
	}
}

func (k *Kernel) toolGetTree(_ context.Context, _ string, _ *DocumentContext) string {
	paths, err := scanner.Scan(k.workdir)
	if err != nil {
		return fmt.Sprintf("Error scanning repository: %v", err)
	}
	out, err := scanner.Render(scanner.BuildTree(paths), k.cfg.CatalogueFormat)
	if err != nil {
		return fmt.Sprintf("Error rendering tree: %v", err)
	}
	return out
}

func (k *Kernel) toolFileInfo(_ context.Context, args string, _ *DocumentContext) string {
	var req struct {
		Paths []string `json:"paths"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return fmt.Sprintf("Invalid arguments: %v", err)
	}

	// Deduplicate, keeping request order.
	seen := map[string]bool{}
	var sb strings.Builder
	for _, path := range req.Paths {
		if seen[path] {
			continue
		}
		seen[path] = true

		abs, ok := k.resolve(path)
		if !ok {
			fmt.Fprintf(&sb, "%s: %s\n", path, msgFileNotFound)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			fmt.Fprintf(&sb, "%s: %s\n", path, msgFileNotFound)
			continue
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			fmt.Fprintf(&sb, "%s: %s\n", path, msgFileNotFound)
			continue
		}
		lines := strings.Count(string(data), "\n")
		if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
			lines++
		}
		fmt.Fprintf(&sb, "%s: name=%s size=%d ext=%s lines=%d\n",
			path, info.Name(), info.Size(), filepath.Ext(abs), lines)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (k *Kernel) readOne(path string, dc *DocumentContext) string {
	abs, ok := k.resolve(path)
	if !ok {
		return msgFileNotFound
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return msgFileNotFound
	}
	if info.Size() > MaxReadFileBytes {
		return msgFileTooLarge
	}
	content, err := k.readContent(abs)
	if err != nil {
		return msgFileNotFound
	}
	dc.RecordFile(path)
	return content
}

func (k *Kernel) toolReadFile(_ context.Context, args string, dc *DocumentContext) string {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return fmt.Sprintf("Invalid arguments: %v", err)
	}
	return k.readOne(req.Path, dc)
}

func (k *Kernel) toolReadFiles(_ context.Context, args string, dc *DocumentContext) string {
	var req struct {
		Paths []string `json:"paths"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return fmt.Sprintf("Invalid arguments: %v", err)
	}

	out := make(map[string]string, len(req.Paths))
	for _, path := range req.Paths {
		out[path] = k.readOne(path, dc)
	}
	keys := make([]string, 0, len(out))
	for key := range out {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&sb, "===== %s =====\n%s\n", key, out[key])
	}
	return sb.String()
}

type fileRangeItem struct {
	FilePath string `json:"file_path"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
}

func (k *Kernel) toolFileRanged(_ context.Context, args string, dc *DocumentContext) string {
	var req struct {
		Items []fileRangeItem `json:"items"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return fmt.Sprintf("Invalid arguments: %v", err)
	}

	var sb strings.Builder
	for _, item := range req.Items {
		fmt.Fprintf(&sb, "===== %s =====\n", item.FilePath)
		sb.WriteString(k.readRange(item, dc))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (k *Kernel) readRange(item fileRangeItem, dc *DocumentContext) string {
	abs, ok := k.resolve(item.FilePath)
	if !ok {
		return msgFileNotFound
	}
	content, err := k.readContent(abs)
	if err != nil {
		return msgFileNotFound
	}
	dc.RecordFile(item.FilePath)

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	start, end := item.Offset, 0
	switch {
	case item.Offset < 0 && item.Limit < 0:
		start, end = 0, len(lines)
	case item.Limit < 0:
		end = len(lines)
	default:
		end = item.Offset + item.Limit
	}
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return msgNoContent
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineChars {
			line = line[:maxLineChars]
		}
		fmt.Fprintf(&sb, "%d: %s\n", i+1, line)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (k *Kernel) toolFileDeps(ctx context.Context, args string, _ *DocumentContext) string {
	var req struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return fmt.Sprintf("Invalid arguments: %v", err)
	}
	tree, err := k.analyzer.AnalyzeFileDependencyTree(ctx, req.FilePath)
	if err != nil {
		return fmt.Sprintf("Error analyzing dependencies: %v", err)
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error encoding tree: %v", err)
	}
	return string(data)
}

func (k *Kernel) toolFuncDeps(ctx context.Context, args string, _ *DocumentContext) string {
	var req struct {
		FilePath     string `json:"file_path"`
		FunctionName string `json:"function_name"`
	}
	if err := json.Unmarshal([]byte(args), &req); err != nil {
		return fmt.Sprintf("Invalid arguments: %v", err)
	}
	tree, err := k.analyzer.AnalyzeFunctionDependencyTree(ctx, req.FilePath, req.FunctionName)
	if err != nil {
		return fmt.Sprintf("Error analyzing dependencies: %v", err)
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error encoding tree: %v", err)
	}
	return string(data)
}
