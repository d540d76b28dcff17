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
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout is the per-call ceiling. Streaming completions over large
// repositories run for a long time; the transport must not cut them off.
const DefaultTimeout = 16000 * time.Second

const maxRedirects = 5

// newHTTPClient builds the shared transport profile: bounded redirects and a
// keep-alive pool sized for many concurrent streams against one host.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        200,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// modelTokenLimits maps model names to their completion token budget.
var modelTokenLimits = map[string]int{
	"gpt-4":             8192,
	"gpt-4-turbo":       128000,
	"gpt-4o":            16384,
	"gpt-4o-mini":       16384,
	"gpt-3.5-turbo":     4096,
	"gpt-3.5-turbo-16k": 16384,
}

const defaultMaxTokens = 4096

// MaxTokensFor returns the completion token budget for a model name, falling
// back to a conservative default for unknown models.
func MaxTokensFor(model string) int {
	if limit, ok := modelTokenLimits[model]; ok {
		return limit
	}
	return defaultMaxTokens
}
