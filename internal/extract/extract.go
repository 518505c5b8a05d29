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

// Package extract walks a tree-sitter parse tree and produces the symbol,
// reference, call, AST-node, and CFG-block facts a file contributes to the
// graph. It does not touch storage; internal/ingest turns a Result into
// graph mutations.
package extract

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/magellan/internal/idgen"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/parserpool"
)

// SymbolFact is a Symbol node candidate plus the tree position ingest needs
// to attach CONTAINS/PARENT edges and CFG blocks.
type SymbolFact struct {
	Payload  model.SymbolPayload
	ParentFQN string // enclosing symbol's FQN, empty at file scope
}

// ReferenceFact is a Reference node candidate: a named-entity use that is
// not itself a call.
type ReferenceFact struct {
	Payload model.ReferencePayload
}

// CallFact is a Call node candidate.
type CallFact struct {
	Payload model.CallPayload
}

// AstNodeFact is one AST node: every node tree-sitter marks as "named" is
// recorded, whatever its kind; no kind allow-list is applied.
type AstNodeFact struct {
	Kind     string
	Span     model.Span
	ParentIdx int // index into Result.AstNodes, -1 for file root
}

// CfgBlockFact is a control-flow block within an owning symbol.
type CfgBlockFact struct {
	OwningSymbolFQN string
	Kind            model.CfgBlockKind
	Span            model.Span
}

// Result is everything one file's parse tree yields.
type Result struct {
	Symbols    []SymbolFact
	References []ReferenceFact
	Calls      []CallFact
	AstNodes   []AstNodeFact
	CfgBlocks  []CfgBlockFact
	HasErrors  bool // tree-sitter reported a syntax error; extraction still ran best-effort
}

// Extractor parses and extracts facts for one language at a time, borrowing
// parsers from a shared pool so it is safe to run many Extractors
// concurrently across ingestion workers.
type Extractor struct {
	pool *parserpool.Pool

	mu          sync.Mutex
	moduleRoots map[string]string // projectRoot -> detected module/crate name, memoized
}

// New constructs an Extractor over pool.
func New(pool *parserpool.Pool) *Extractor {
	return &Extractor{pool: pool, moduleRoots: make(map[string]string)}
}

// Extract parses content as lang and returns the facts it contains.
// projectRoot and filePath seed the display FQN prefix (§3.1, §4.4): every
// file-scoped symbol's display_fqn is rooted at the project's module name,
// not the file's own path.
func (e *Extractor) Extract(ctx context.Context, lang parserpool.Language, projectRoot, filePath string, content []byte) (*Result, error) {
	parser, err := e.pool.Get(lang)
	if err != nil {
		return nil, err
	}
	defer e.pool.Put(lang, parser)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("extract: parse %s: %w", filePath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{HasErrors: root.HasError()}

	w := &walker{
		lang:     lang,
		content:  content,
		filePath: filePath,
		res:      res,
		scope:    newScopeStack(e.moduleRootName(projectRoot)),
	}
	w.walk(root, -1)
	return res, nil
}

// moduleRootName detects the name that prefixes every display_fqn produced
// for files under projectRoot, memoizing per root since reconcile calls
// Extract once per file and the manifest rarely changes mid-run.
func (e *Extractor) moduleRootName(projectRoot string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name, ok := e.moduleRoots[projectRoot]; ok {
		return name
	}
	name := detectModuleRoot(projectRoot)
	e.moduleRoots[projectRoot] = name
	return name
}

// buildSymbolID delegates to idgen using the exact (language, display_fqn,
// span_fingerprint) triple the spec's content-addressed id requires.
func buildSymbolID(language, displayFQN string, span model.Span) string {
	return idgen.SymbolID(language, displayFQN, span.Fingerprint())
}

// isNamed reports whether tree-sitter marks n as a named node, the only
// test extraction applies before recording an AstNode fact: anonymous and
// punctuation tokens are never recorded, and named nodes of every kind are.
func isNamed(n *sitter.Node) bool {
	return n != nil && n.IsNamed()
}
