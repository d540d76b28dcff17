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

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderMock(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())
}

func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Provider: "bedrock"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestNewProviderAnthropic(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "anthropic", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestNewProviderAzureRequiresEndpoint(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Provider: "azureopenai", APIKey: "sk-test"})
	assert.Error(t, err)
}

func TestMaxTokensFor(t *testing.T) {
	assert.Equal(t, 8192, MaxTokensFor("gpt-4"))
	assert.Equal(t, 128000, MaxTokensFor("gpt-4-turbo"))
	assert.Equal(t, 16384, MaxTokensFor("gpt-3.5-turbo-16k"))
	assert.Equal(t, defaultMaxTokens, MaxTokensFor("some-unknown-model"))
}

func TestMockProviderQueue(t *testing.T) {
	p := &MockProvider{}
	p.EnqueueToolCall("call_1", "ReadFile", `{"path":"main.go"}`)
	p.EnqueueText("done")

	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.True(t, resp.HasToolCalls())
	assert.Equal(t, "ReadFile", resp.Message.ToolCalls[0].Name)

	resp, err = p.Chat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Message.Content)

	// Queue drained, default echo.
	resp, err = p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "echo me"}},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Message.Content, "echo me")
	assert.Len(t, p.Requests, 3)
}

func TestMockProviderStreamDelta(t *testing.T) {
	p := &MockProvider{}
	p.EnqueueText("streamed")

	var got strings.Builder
	resp, err := p.ChatStream(context.Background(), ChatRequest{}, func(chunk string) {
		got.WriteString(chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed", got.String())
	assert.Equal(t, "streamed", resp.Message.Content)
}

func TestAnthropicChat(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "Reading the file. "},
				{"type": "tool_use", "id": "toolu_1", "name": "ReadFile", "input": {"path": "go.mod"}}
			],
			"model": "claude-3-5-sonnet-20241022",
			"stop_reason": "tool_use",
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`))
	}))
	defer server.Close()

	p, err := NewProvider(ProviderConfig{
		Provider: "anthropic",
		Endpoint: server.URL,
		APIKey:   "sk-test",
	})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []Message{
			{Role: "system", Content: "You analyze repositories."},
			{Role: "user", Content: "read go.mod"},
		},
		Tools: []ToolSpec{{
			Name:        "ReadFile",
			Description: "Read one file",
			Parameters:  json.RawMessage(`{"type":"object"}`),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "You analyze repositories.", captured["system"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 1, "system prompt must not appear in messages")
	assert.NotNil(t, captured["tools"])

	assert.Equal(t, "Reading the file. ", resp.Message.Content)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.Message.ToolCalls[0].ID)
	assert.JSONEq(t, `{"path":"go.mod"}`, resp.Message.ToolCalls[0].Arguments)
	assert.Equal(t, 19, resp.TotalTokens)
	assert.True(t, resp.Done)
}

func TestAnthropicChatStream(t *testing.T) {
	events := []string{
		`{"type":"message_start","message":{"model":"claude-3-5-haiku-20241022","usage":{"input_tokens":5}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello "}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"world"}}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_2","name":"GetTree"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"a\":"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"1}"}}`,
		`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":9}}`,
		`{"type":"message_stop"}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			_, _ = w.Write([]byte("data: " + ev + "\n\n"))
		}
	}))
	defer server.Close()

	p, err := NewProvider(ProviderConfig{
		Provider: "anthropic",
		Endpoint: server.URL,
		APIKey:   "sk-test",
	})
	require.NoError(t, err)

	var chunks []string
	resp, err := p.ChatStream(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello ", "world"}, chunks)
	assert.Equal(t, "Hello world", resp.Message.Content)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "GetTree", resp.Message.ToolCalls[0].Name)
	assert.Equal(t, `{"a":1}`, resp.Message.ToolCalls[0].Arguments)
	assert.Equal(t, 5, resp.PromptTokens)
	assert.Equal(t, 9, resp.OutputTokens)
	assert.True(t, resp.Done)
}

func TestAnthropicToolResultPayload(t *testing.T) {
	p := &anthropicProvider{defaultModel: "claude-3-5-sonnet-20241022"}
	payload := p.buildPayload(ChatRequest{
		Messages: []Message{
			{Role: "assistant", ToolCalls: []ToolCall{{ID: "toolu_9", Name: "FileInfo", Arguments: `{"paths":["a"]}`}}},
			{Role: "tool", ToolCallID: "toolu_9", Content: "a: 120 bytes"},
		},
	}, false)

	msgs := payload["messages"].([]map[string]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", msgs[0]["role"])
	assert.Equal(t, "user", msgs[1]["role"], "tool results ride in user messages")
	blocks := msgs[1]["content"].([]map[string]any)
	require.Len(t, blocks, 1)
	assert.Equal(t, "tool_result", blocks[0]["type"])
	assert.Equal(t, "toolu_9", blocks[0]["tool_use_id"])
}

func TestOpenAIChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4", req["model"])
		assert.EqualValues(t, 8192, req["max_tokens"], "budget from the model table")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4",
			"choices": [{
				"message": {"role": "assistant", "content": "forty-two"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	}))
	defer server.Close()

	p, err := NewProvider(ProviderConfig{
		Provider: "openai",
		Endpoint: server.URL + "/v1",
		APIKey:   "sk-test",
	})
	require.NoError(t, err)

	resp, err := p.Chat(context.Background(), ChatRequest{
		Model:    "gpt-4",
		Messages: []Message{{Role: "user", Content: "the answer?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "forty-two", resp.Message.Content)
	assert.Equal(t, 5, resp.TotalTokens)
	assert.True(t, resp.Done)
}
