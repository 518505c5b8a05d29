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

package parserpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageForPath(t *testing.T) {
	cases := []struct {
		path string
		want Language
		ok   bool
	}{
		{"main.go", Go, true},
		{"lib.rs", Rust, true},
		{"script.py", Python, true},
		{"a.ts", TypeScript, true},
		{"a.tsx", TypeScript, true},
		{"README.md", "", false},
	}
	for _, c := range cases {
		got, ok := LanguageForPath(c.path)
		assert.Equal(t, c.ok, ok, c.path)
		if c.ok {
			assert.Equal(t, c.want, got, c.path)
		}
	}
}

func TestPool_GetPut_ParsesGo(t *testing.T) {
	p := New()
	parser, err := p.Get(Go)
	require.NoError(t, err)
	defer p.Put(Go, parser)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte("package main\nfunc main() {}\n"))
	require.NoError(t, err)
	assert.Equal(t, "source_file", tree.RootNode().Type())
}

func TestPool_UnsupportedLanguage(t *testing.T) {
	p := New()
	_, err := p.Get(Language("cobol"))
	assert.Error(t, err)
}

func TestPool_ReusesParserAcrossGetPut(t *testing.T) {
	p := New()
	first, err := p.Get(Python)
	require.NoError(t, err)
	p.Put(Python, first)

	second, err := p.Get(Python)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
