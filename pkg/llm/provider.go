// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package llm provides a unified interface for Large Language Model providers
// with streaming chat completion and function (tool) calling. Supported
// backends: OpenAI, Azure OpenAI, Anthropic, and a mock for tests.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrUnsupportedProvider is returned by NewProvider for unknown provider names.
var ErrUnsupportedProvider = errors.New("unsupported model provider")

// Provider defines the interface for chat completion backends.
type Provider interface {
	// Chat performs a blocking chat completion.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream performs a streaming chat completion, calling onDelta for
	// each text chunk as it arrives. The returned response carries the
	// accumulated message, including any tool calls. onDelta may be nil.
	ChatStream(ctx context.Context, req ChatRequest, onDelta func(chunk string)) (*ChatResponse, error)

	// Name returns the provider identifier.
	Name() string
}

// Message represents a chat message. Roles: "system", "user", "assistant",
// "tool". Tool result messages set ToolCallID to the call they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a function invocation requested by the model. Arguments is the
// raw JSON object text as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a callable tool advertised to the model. Parameters is a
// JSON schema object.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatRequest represents a chat completion request.
type ChatRequest struct {
	Messages    []Message  `json:"messages"`
	Model       string     `json:"model,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	Temperature float32    `json:"temperature,omitempty"`
	TopP        float32    `json:"top_p,omitempty"`
	Stop        []string   `json:"stop,omitempty"`
	Tools       []ToolSpec `json:"tools,omitempty"`
}

// ChatResponse contains the chat completion response.
type ChatResponse struct {
	Message      Message       `json:"message"`
	Model        string        `json:"model"`
	PromptTokens int           `json:"prompt_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	TotalTokens  int           `json:"total_tokens,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Done         bool          `json:"done"`
}

// HasToolCalls reports whether the assistant asked for tool invocations.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.Message.ToolCalls) > 0
}

// ProviderConfig holds configuration for creating providers.
type ProviderConfig struct {
	// Provider type: "openai", "azureopenai", "anthropic", "mock"
	Provider string `json:"provider"`

	// Endpoint for the API. Required for Azure; optional for OpenAI
	// (compatible gateways) and Anthropic.
	Endpoint string `json:"endpoint,omitempty"`

	// APIKey for the provider.
	APIKey string `json:"api_key,omitempty"`

	// DefaultModel to use if not specified in requests.
	DefaultModel string `json:"default_model,omitempty"`

	// Timeout per call. Streaming completions run long, so the zero value
	// means DefaultTimeout rather than a conventional HTTP timeout.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// NewProvider creates a Provider based on configuration.
// Supported providers: "openai", "azureopenai", "anthropic", "mock".
//
// Environment variables:
//   - OPENAI_API_KEY: OpenAI / Azure OpenAI API key fallback
//   - ANTHROPIC_API_KEY: Anthropic API key fallback
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return newOpenAIProvider(cfg)
	case "azureopenai", "azure":
		return newAzureProvider(cfg)
	case "anthropic", "claude":
		return newAnthropicProvider(cfg)
	case "mock", "test":
		return &MockProvider{Model: cfg.DefaultModel}, nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: openai, azureopenai, anthropic, mock)",
			ErrUnsupportedProvider, cfg.Provider)
	}
}

func envOr(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
