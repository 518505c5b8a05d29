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

// Package parserpool owns one tree-sitter parser per language and hands out
// pooled *sitter.Parser values so concurrent extraction workers never share
// a single parser instance (sitter.Parser is not safe for concurrent use).
package parserpool

import (
	"fmt"
	"path/filepath"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language identifies one of the minimum supported languages.
type Language string

const (
	Go         Language = "go"
	Rust       Language = "rust"
	Python     Language = "python"
	C          Language = "c"
	Cpp        Language = "cpp"
	Java       Language = "java"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
)

var extToLanguage = map[string]Language{
	".go":   Go,
	".rs":   Rust,
	".py":   Python,
	".c":    C,
	".h":    C,
	".cc":   Cpp,
	".cpp":  Cpp,
	".cxx":  Cpp,
	".hpp":  Cpp,
	".java": Java,
	".js":   JavaScript,
	".jsx":  JavaScript,
	".mjs":  JavaScript,
	".ts":   TypeScript,
	".tsx":  TypeScript,
}

// LanguageForPath returns the language associated with a file's extension
// and whether one was recognized. Callers use the bool to record an
// UnsupportedLanguage skip reason rather than erroring.
func LanguageForPath(path string) (Language, bool) {
	lang, ok := extToLanguage[filepath.Ext(path)]
	return lang, ok
}

func grammarFor(lang Language) (*sitter.Language, error) {
	switch lang {
	case Go:
		return golang.GetLanguage(), nil
	case Rust:
		return rust.GetLanguage(), nil
	case Python:
		return python.GetLanguage(), nil
	case C:
		return c.GetLanguage(), nil
	case Cpp:
		return cpp.GetLanguage(), nil
	case Java:
		return java.GetLanguage(), nil
	case JavaScript:
		return javascript.GetLanguage(), nil
	case TypeScript:
		return typescript.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("parserpool: unsupported language %q", lang)
	}
}

// Pool hands out a *sitter.Parser per (language, goroutine) pair via
// sync.Pool, so a busy watch pipeline with many workers never blocks on a
// single shared parser.
type Pool struct {
	mu    sync.Mutex
	pools map[Language]*sync.Pool
}

// New constructs an empty pool; per-language sync.Pools are created lazily
// on first Get so a process that only ever touches Go files never pays the
// grammar-init cost of the other seven languages.
func New() *Pool {
	return &Pool{pools: make(map[Language]*sync.Pool)}
}

// Get borrows a parser for lang, creating one lazily if the pool for that
// language is empty. Callers must Put it back when done.
func (p *Pool) Get(lang Language) (*sitter.Parser, error) {
	sp, err := p.poolFor(lang)
	if err != nil {
		return nil, err
	}
	parser := sp.Get().(*sitter.Parser)
	return parser, nil
}

// Put returns a parser to its language's pool for reuse.
func (p *Pool) Put(lang Language, parser *sitter.Parser) {
	p.mu.Lock()
	sp, ok := p.pools[lang]
	p.mu.Unlock()
	if !ok {
		return
	}
	sp.Put(parser)
}

func (p *Pool) poolFor(lang Language) (*sync.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sp, ok := p.pools[lang]; ok {
		return sp, nil
	}
	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}
	sp := &sync.Pool{
		New: func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(grammar)
			return parser
		},
	}
	p.pools[lang] = sp
	return sp, nil
}
