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
	"fmt"
	"sync"
	"time"
)

// MockProvider is a test provider that returns predictable responses. Set
// ChatFunc for full control, or queue scripted responses with Enqueue; the
// default echoes the last message.
type MockProvider struct {
	Model    string
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	mu       sync.Mutex
	queue    []*ChatResponse
	Requests []ChatRequest
}

func (p *MockProvider) Name() string { return "mock" }

// Enqueue appends a scripted response; queued responses are consumed in
// order before the default echo kicks in.
func (p *MockProvider) Enqueue(resp *ChatResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, resp)
}

// EnqueueText queues a plain assistant text response.
func (p *MockProvider) EnqueueText(text string) {
	p.Enqueue(&ChatResponse{
		Message: Message{Role: "assistant", Content: text},
		Model:   "mock-model",
		Done:    true,
	})
}

// EnqueueToolCall queues an assistant response requesting one tool call.
func (p *MockProvider) EnqueueToolCall(id, name, arguments string) {
	p.Enqueue(&ChatResponse{
		Message: Message{
			Role:      "assistant",
			ToolCalls: []ToolCall{{ID: id, Name: name, Arguments: arguments}},
		},
		Model: "mock-model",
		Done:  true,
	})
}

func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, req)
	}

	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	if len(p.queue) > 0 {
		resp := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		return resp, nil
	}
	p.mu.Unlock()

	lastMsg := ""
	if len(req.Messages) > 0 {
		lastMsg = req.Messages[len(req.Messages)-1].Content
	}
	return &ChatResponse{
		Message: Message{
			Role:    "assistant",
			Content: fmt.Sprintf("[mock] Response to: %.50s", lastMsg),
		},
		Model:        "mock-model",
		PromptTokens: 50,
		OutputTokens: 20,
		TotalTokens:  70,
		Duration:     10 * time.Millisecond,
		Done:         true,
	}, nil
}

func (p *MockProvider) ChatStream(ctx context.Context, req ChatRequest, onDelta func(string)) (*ChatResponse, error) {
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if onDelta != nil && resp.Message.Content != "" {
		onDelta(resp.Message.Content)
	}
	return resp, nil
}
