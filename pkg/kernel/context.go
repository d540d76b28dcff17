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

import "sync"

// ToolCallRecord is one intercepted tool invocation, kept for diagnostics.
type ToolCallRecord struct {
	Name      string
	Arguments string
	Result    string
}

// DocumentContext is a per-invocation container recording the file paths the
// model touched and every tool call made on its behalf. It is never shared
// across concurrent invocations; create a fresh one per InvokePrompt call.
type DocumentContext struct {
	mu    sync.Mutex
	files []string
	seen  map[string]bool
	calls []ToolCallRecord
}

// NewDocumentContext creates an empty recorder.
func NewDocumentContext() *DocumentContext {
	return &DocumentContext{seen: make(map[string]bool)}
}

// RecordFile notes an accessed file path, keeping first-access order.
func (dc *DocumentContext) RecordFile(path string) {
	if dc == nil {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dc.seen[path] {
		return
	}
	dc.seen[path] = true
	dc.files = append(dc.files, path)
}

// RecordCall notes one tool invocation. Results longer than 500 bytes are
// truncated; the record is diagnostic, not a transcript.
func (dc *DocumentContext) RecordCall(name, arguments, result string) {
	if dc == nil {
		return
	}
	if len(result) > 500 {
		result = result[:500] + "..."
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.calls = append(dc.calls, ToolCallRecord{Name: name, Arguments: arguments, Result: result})
}

// Files returns the accessed paths in first-access order.
func (dc *DocumentContext) Files() []string {
	if dc == nil {
		return nil
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return append([]string(nil), dc.files...)
}

// Calls returns the recorded tool invocations.
func (dc *DocumentContext) Calls() []ToolCallRecord {
	if dc == nil {
		return nil
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return append([]ToolCallRecord(nil), dc.calls...)
}
