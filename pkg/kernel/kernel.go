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

// Package kernel drives prompt invocations against an LLM provider with
// repository tools. Each invocation renders a prompt template, sends it with
// the tool specs, executes requested tool calls locally, and loops until the
// model produces a final text answer.
package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kraklabs/rde/pkg/depgraph"
	"github.com/kraklabs/rde/pkg/llm"
	"github.com/kraklabs/rde/pkg/prompts"
	"github.com/kraklabs/rde/pkg/scanner"
)

// maxToolRounds caps the tool-call loop per invocation. A model stuck in a
// read loop gets cut off rather than burning tokens forever.
const maxToolRounds = 25

// Config controls per-repository kernel behavior.
type Config struct {
	// Model sent with every request. Empty uses the provider default.
	Model string

	// AnalysisModel overrides Model for classification and outline analysis
	// prompts. Empty falls back to Model.
	AnalysisModel string

	// CatalogueFormat selects the GetTree rendering (compact, json, pathlist).
	CatalogueFormat string

	// EnableCodeCompression strips comments from code files before they are
	// handed to the model.
	EnableCodeCompression bool

	// CodeAnalysisPlugin exposes the dependency analysis tools. Both this and
	// EnableDependencyAnalysis must be set for the tools to appear.
	CodeAnalysisPlugin bool

	// EnableDependencyAnalysis is the global dependency analysis switch.
	EnableDependencyAnalysis bool
}

// Kernel executes prompt invocations against one repository working tree.
type Kernel struct {
	provider llm.Provider
	workdir  string
	analyzer *depgraph.Analyzer
	logger   *slog.Logger
	cfg      Config
	tools    []tool
}

// New creates a kernel for the working tree at workdir.
func New(provider llm.Provider, workdir string, cfg Config, logger *slog.Logger) *Kernel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CatalogueFormat == "" {
		cfg.CatalogueFormat = scanner.FormatCompact
	}
	k := &Kernel{
		provider: provider,
		workdir:  workdir,
		logger:   logger,
		cfg:      cfg,
	}
	k.tools = k.baseTools()
	if cfg.CodeAnalysisPlugin && cfg.EnableDependencyAnalysis {
		k.analyzer = depgraph.NewAnalyzer(workdir, logger)
		k.tools = append(k.tools, k.depTools()...)
	}
	return k
}

// Workdir returns the working tree root the kernel operates on.
func (k *Kernel) Workdir() string { return k.workdir }

// analysisPrompts name the invocations routed to the analysis model when one
// is configured.
var analysisPrompts = map[string]bool{
	prompts.RepositoryClassification: true,
	prompts.AnalyzeCatalogue:         true,
	prompts.AnalyzeNewCatalogue:      true,
}

func (k *Kernel) modelFor(name string) string {
	if k.cfg.AnalysisModel != "" && analysisPrompts[name] {
		return k.cfg.AnalysisModel
	}
	return k.cfg.Model
}

func (k *Kernel) specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, len(k.tools))
	for i, t := range k.tools {
		specs[i] = t.spec
	}
	return specs
}

func (k *Kernel) dispatch(ctx context.Context, call llm.ToolCall, dc *DocumentContext) string {
	for _, t := range k.tools {
		if t.spec.Name != call.Name {
			continue
		}
		result := t.run(ctx, call.Arguments, dc)
		dc.RecordCall(call.Name, call.Arguments, result)
		return result
	}
	result := fmt.Sprintf("Unknown tool: %s", call.Name)
	dc.RecordCall(call.Name, call.Arguments, result)
	return result
}

// InvokePrompt renders the named template with vars and runs the tool loop to
// completion, returning the model's final text.
func (k *Kernel) InvokePrompt(ctx context.Context, name string, vars map[string]string, dc *DocumentContext) (string, error) {
	template, err := prompts.Get(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	return k.InvokeTemplate(ctx, name, template, vars, dc, nil)
}

// InvokeStreaming is InvokePrompt with text deltas forwarded to onDelta as
// they arrive. Deltas from rounds that end in tool calls are discarded from
// the final result but still forwarded.
func (k *Kernel) InvokeStreaming(ctx context.Context, name string, vars map[string]string, dc *DocumentContext, onDelta func(string)) (string, error) {
	template, err := prompts.Get(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	return k.InvokeTemplate(ctx, name, template, vars, dc, onDelta)
}

// InvokeTemplate runs the tool loop on an already resolved template text.
// Callers selecting classification variants resolve the template themselves
// and pass it here; name is used for logging only.
func (k *Kernel) InvokeTemplate(ctx context.Context, name, template string, vars map[string]string, dc *DocumentContext, onDelta func(string)) (string, error) {
	rendered := prompts.Render(template, vars)

	messages := []llm.Message{{Role: "user", Content: rendered}}
	started := time.Now()
	k.logger.Debug("kernel.invoke.start", "prompt", name, "tools", len(k.tools))

	for round := 0; round < maxToolRounds; round++ {
		req := llm.ChatRequest{
			Messages: messages,
			Model:    k.modelFor(name),
			Tools:    k.specs(),
		}

		var resp *llm.ChatResponse
		var err error
		if onDelta != nil {
			resp, err = k.provider.ChatStream(ctx, req, onDelta)
		} else {
			resp, err = k.provider.Chat(ctx, req)
		}
		if err != nil {
			return "", fmt.Errorf("chat completion for %s: %w", name, err)
		}

		if !resp.HasToolCalls() {
			k.logger.Debug("kernel.invoke.done",
				"prompt", name,
				"rounds", round+1,
				"tokens", resp.TotalTokens,
				"elapsed", time.Since(started),
			)
			return resp.Message.Content, nil
		}

		messages = append(messages, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			k.logger.Debug("kernel.tool.call", "prompt", name, "tool", call.Name)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    k.dispatch(ctx, call, dc),
				ToolCallID: call.ID,
			})
		}
	}
	return "", fmt.Errorf("prompt %s exceeded %d tool rounds", name, maxToolRounds)
}
