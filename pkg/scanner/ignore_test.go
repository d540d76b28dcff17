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

package scanner

import (
	"strings"
	"testing"
)

func parse(t *testing.T, rules string) *IgnoreList {
	t.Helper()
	list, err := ParseIgnore(strings.NewReader(rules))
	if err != nil {
		t.Fatalf("parse ignore: %v", err)
	}
	return list
}

func TestIgnore_SimpleName(t *testing.T) {
	list := parse(t, "*.log\n")

	if !list.Match("debug.log", false) {
		t.Error("*.log should match debug.log at root")
	}
	if !list.Match("logs/debug.log", false) {
		t.Error("*.log should match at any depth")
	}
	if list.Match("debug.txt", false) {
		t.Error("*.log should not match debug.txt")
	}
}

func TestIgnore_LastMatchWins(t *testing.T) {
	list := parse(t, "*.log\n!important.log\n")

	if list.Match("important.log", false) {
		t.Error("negation should re-include important.log")
	}
	if !list.Match("other.log", false) {
		t.Error("other.log stays ignored")
	}

	// Reversed order: the exclusion is last, so it wins.
	reversed := parse(t, "!important.log\n*.log\n")
	if !reversed.Match("important.log", false) {
		t.Error("last matching rule is non-negated, file must be ignored")
	}
}

func TestIgnore_Anchored(t *testing.T) {
	list := parse(t, "/build\n")

	if !list.Match("build", true) {
		t.Error("anchored pattern should match root-level build")
	}
	if list.Match("src/build", true) {
		t.Error("anchored pattern should not match nested build")
	}
}

func TestIgnore_DirOnly(t *testing.T) {
	list := parse(t, "cache/\n")

	if !list.Match("cache", true) {
		t.Error("dir rule should match the directory")
	}
	if !list.Match("cache/data.bin", false) {
		t.Error("dir rule should match files under the directory")
	}
	if list.Match("cache", false) {
		t.Error("dir rule should not match a plain file named cache")
	}
}

func TestIgnore_DoubleStar(t *testing.T) {
	list := parse(t, "**/generated/*.go\n")

	if !list.Match("generated/a.go", false) {
		t.Error("**/ should match the empty prefix")
	}
	if !list.Match("x/y/generated/a.go", false) {
		t.Error("**/ should match a deep prefix")
	}
	if list.Match("generated/sub/a.go", false) {
		t.Error("* must not cross path separators")
	}
}

func TestIgnore_QuestionAndClass(t *testing.T) {
	list := parse(t, "file?.txt\nv[0-9].md\n")

	if !list.Match("file1.txt", false) {
		t.Error("? should match one character")
	}
	if list.Match("file12.txt", false) {
		t.Error("? should match exactly one character")
	}
	if !list.Match("v7.md", false) {
		t.Error("bracket class should pass through")
	}
	if list.Match("vx.md", false) {
		t.Error("bracket class should constrain the character")
	}
}

func TestIgnore_MetacharactersEscaped(t *testing.T) {
	list := parse(t, "a+b.txt\n")

	if !list.Match("a+b.txt", false) {
		t.Error("literal + must match itself")
	}
	if list.Match("aab.txt", false) {
		t.Error("+ must not act as a regexp quantifier")
	}
}

func TestIgnore_CommentsAndBlanks(t *testing.T) {
	list := parse(t, "# comment\n\n*.tmp\n")
	if list.Len() != 1 {
		t.Fatalf("expected 1 rule, got %d", list.Len())
	}
}
