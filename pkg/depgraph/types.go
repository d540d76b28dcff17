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

// Package depgraph builds per-file and per-function dependency trees for a
// working tree. Languages are served either by a lightweight text parser or,
// where available, by a semantic analyzer that models the whole project;
// semantic analyzers take precedence for the extensions they claim.
package depgraph

// FunctionInfo is a function extracted from source text.
type FunctionInfo struct {
	Name string `json:"name"`
	Body string `json:"-"`
	Line int    `json:"line"`
}

// LanguageParser is the capability set of a per-language text parser.
type LanguageParser interface {
	// Extensions returns the file extensions this parser claims (with dot).
	Extensions() []string

	// ExtractImports returns the raw import tokens found in source.
	ExtractImports(source string) []string

	// ExtractFunctions returns the functions defined in source.
	ExtractFunctions(source string) []FunctionInfo

	// ExtractFunctionCalls returns callee identifiers referenced in body.
	ExtractFunctionCalls(body string) []string

	// ResolveImport maps an import token to an absolute file path, given the
	// importing file and the project root. Returns "" when unresolved.
	ResolveImport(importToken, currentFile, root string) string
}

// SemanticAnalyzer models a whole project for the extensions it claims.
type SemanticAnalyzer interface {
	Extensions() []string

	// AnalyzeProject parses every claimed file and returns the project model.
	AnalyzeProject(root string, files []string) (*ProjectModel, error)
}

// ProjectModel is the merged whole-project view produced by semantic
// analyzers: per-file functions and types, plus file-level dependencies.
type ProjectModel struct {
	Files        map[string]*FileModel      `json:"files"`
	Dependencies map[string]map[string]bool `json:"dependencies"`
}

// FileModel holds the functions and types of a single file.
type FileModel struct {
	Functions []FunctionInfo            `json:"functions"`
	Types     map[string][]FunctionInfo `json:"types,omitempty"` // type name -> methods
}

// FileNode is one node of a file dependency tree.
type FileNode struct {
	Name      string         `json:"name"`
	FilePath  string         `json:"file_path"`
	IsCyclic  bool           `json:"is_cyclic,omitempty"`
	Functions []FunctionInfo `json:"functions,omitempty"`
	Children  []*FileNode    `json:"children,omitempty"`
}

// FuncNode is one node of a function call tree. Keys in the underlying call
// graph have the form "file:func".
type FuncNode struct {
	Name     string      `json:"name"`
	FilePath string      `json:"file_path"`
	Line     int         `json:"line,omitempty"`
	IsCyclic bool        `json:"is_cyclic,omitempty"`
	Children []*FuncNode `json:"children,omitempty"`
}
