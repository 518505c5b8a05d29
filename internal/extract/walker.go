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

package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/parserpool"
)

// walker carries per-file extraction state across a single recursive
// descent over the parse tree.
type walker struct {
	lang     parserpool.Language
	content  []byte
	filePath string
	res      *Result
	scope    *scopeStack

	// currentSymbolFQN tracks the nearest enclosing
	// function-like symbol so call/reference/cfg facts can be attached to
	// it without a second pass.
	currentSymbolFQN string

	// anonCounter numbers Go func literals as $anon_1, $anon_2, ... since
	// closures have no source name to key call resolution on.
	anonCounter int
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *walker) span(n *sitter.Node) model.Span {
	return model.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func (w *walker) lineCol(n *sitter.Node) model.LineCol {
	sp, ep := n.StartPoint(), n.EndPoint()
	return model.LineCol{
		StartLine: int(sp.Row) + 1,
		StartCol:  int(sp.Column),
		EndLine:   int(ep.Row) + 1,
		EndCol:    int(ep.Column),
	}
}

// walk records n as an AstNodeFact (if named), dispatches to
// language-specific symbol/call/reference handling, then recurses.
// parentAstIdx links AstNode facts into a tree ingest can replay as
// PARENT edges.
func (w *walker) walk(n *sitter.Node, parentAstIdx int) {
	if n == nil {
		return
	}
	myAstIdx := parentAstIdx
	if isNamed(n) {
		w.res.AstNodes = append(w.res.AstNodes, AstNodeFact{
			Kind:      n.Type(),
			Span:      w.span(n),
			ParentIdx: parentAstIdx,
		})
		myAstIdx = len(w.res.AstNodes) - 1
	}

	if w.lang == parserpool.Go {
		if w.dispatchGo(n) {
			return
		}
	} else if spec, ok := specs[string(w.lang)]; ok {
		if w.dispatchGeneric(n, spec) {
			return
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), myAstIdx)
	}
}

// dispatchGeneric handles the table-driven languages: function/type
// declarations push a scope and attach a Symbol fact, call expressions
// attach a Call fact against the current enclosing symbol, bare
// identifiers attach a Reference fact. Returns true if it fully handled
// recursion into n's children (so walk should not also recurse).
func (w *walker) dispatchGeneric(n *sitter.Node, spec langSpec) bool {
	nodeType := n.Type()

	if kind, ok := spec.funcKinds[nodeType]; ok {
		w.emitGenericSymbol(n, spec, kind)
		return true
	}
	if kind, ok := spec.typeKinds[nodeType]; ok {
		w.emitGenericSymbol(n, spec, kind)
		return true
	}
	if nodeType == spec.callKind {
		w.emitGenericCall(n, spec)
		// still recurse, arguments may contain nested calls/refs
	}
	if spec.identKinds[nodeType] && w.currentSymbolFQN != "" {
		w.res.References = append(w.res.References, ReferenceFact{Payload: model.ReferencePayload{
			ReferentName: w.text(n),
			Span:         w.span(n),
			LineCol:      w.lineCol(n),
		}})
	}
	return false
}

func (w *walker) emitGenericSymbol(n *sitter.Node, spec langSpec, kind model.SymbolKind) {
	nameNode := n.ChildByFieldName(spec.nameField)
	name := "$anon"
	if nameNode != nil {
		name = w.text(nameNode)
	}

	parentFQN := w.scope.parentFQN()
	w.scope.push(name)
	localFQN := w.scope.fqn()
	span := w.span(n)
	displayFQN := w.scope.displayFQN(localFQN)

	w.res.Symbols = append(w.res.Symbols, SymbolFact{
		Payload: model.SymbolPayload{
			Language:   string(w.lang),
			Kind:       kind,
			Name:       name,
			FQN:        localFQN,
			DisplayFQN: displayFQN,
			SymbolID:   buildSymbolID(string(w.lang), displayFQN, span),
			Span:       span,
			LineCol:    w.lineCol(n),
		},
		ParentFQN: parentFQN,
	})

	prevSymbol := w.currentSymbolFQN
	w.currentSymbolFQN = localFQN
	w.emitCfgBlocks(n, localFQN)
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), -1)
	}
	w.currentSymbolFQN = prevSymbol
	w.scope.pop()
}

func (w *walker) emitGenericCall(n *sitter.Node, spec langSpec) {
	fnNode := n.ChildByFieldName(spec.callFuncField)
	callee := "$unknown"
	if fnNode != nil {
		callee = lastSegment(w.text(fnNode))
	}
	w.res.Calls = append(w.res.Calls, CallFact{Payload: model.CallPayload{
		CallerName: w.currentSymbolFQN,
		CalleeName: callee,
		FilePath:   w.filePath,
		Span:       w.span(n),
		LineCol:    w.lineCol(n),
	}})
}

// lastSegment strips a receiver/module qualifier off a callee expression
// text, e.g. "self.foo" -> "foo", "pkg.Foo" -> "Foo", leaving a bare call
// name consistent with the spec's FQN-based resolution.
func lastSegment(expr string) string {
	for i := len(expr) - 1; i >= 0; i-- {
		switch expr[i] {
		case '.', ':':
			return expr[i+1:]
		}
	}
	return expr
}
