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
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/magellan/internal/model"
)

// dispatchGo handles Go's function_declaration, method_declaration, and
// func_literal the way a receiver-aware FQN scheme needs: a method's local
// FQN is "ReceiverType.MethodName", not the declaration's source name,
// mirroring the receiver-prefixed full name the original parser built for
// call resolution. Returns true if it fully handled recursion into n.
func (w *walker) dispatchGo(n *sitter.Node) bool {
	switch n.Type() {
	case "function_declaration":
		w.emitGoFunc(n, nameOf(n, w), model.SymFunction)
		return true
	case "method_declaration":
		recvType := goReceiverType(n, w)
		name := nameOf(n, w)
		if recvType != "" {
			name = recvType + "." + name
		}
		w.emitGoFunc(n, name, model.SymMethod)
		return true
	case "func_literal":
		w.anonCounter++
		w.emitGoFunc(n, fmt.Sprintf("$anon_%d", w.anonCounter), model.SymFunction)
		return true
	case "type_declaration":
		w.emitGoType(n)
		return true
	case "call_expression":
		w.emitGoCall(n)
		return false
	case "identifier":
		if w.currentSymbolFQN != "" {
			w.res.References = append(w.res.References, ReferenceFact{Payload: model.ReferencePayload{
				ReferentName: w.text(n),
				Span:         w.span(n),
				LineCol:      w.lineCol(n),
			}})
		}
		return false
	}
	return false
}

func nameOf(n *sitter.Node, w *walker) string {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return "$anon"
	}
	return w.text(nameNode)
}

// goReceiverType extracts "Server" out of "(s *Server)" the same way the
// original parser's extractReceiverType helper did: strip the pointer
// marker and identifier, keep the bare type name.
func goReceiverType(n *sitter.Node, w *walker) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	// receiver is a parameter_list with one parameter_declaration whose
	// "type" field is the (possibly pointer_type) receiver type.
	for i := 0; i < int(recv.ChildCount()); i++ {
		child := recv.Child(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		text := w.text(typeNode)
		if len(text) > 0 && text[0] == '*' {
			text = text[1:]
		}
		return text
	}
	return ""
}

func (w *walker) emitGoFunc(n *sitter.Node, name string, kind model.SymbolKind) {
	parentFQN := w.scope.parentFQN()
	w.scope.push(name)
	localFQN := w.scope.fqn()
	span := w.span(n)
	displayFQN := w.scope.displayFQN(localFQN)

	w.res.Symbols = append(w.res.Symbols, SymbolFact{
		Payload: model.SymbolPayload{
			Language:   "go",
			Kind:       kind,
			Name:       name,
			FQN:        localFQN,
			DisplayFQN: displayFQN,
			SymbolID:   buildSymbolID("go", displayFQN, span),
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

// emitGoType records struct/interface/type-alias declarations. Go nests
// these inside a type_declaration wrapping one or more type_spec children.
func (w *walker) emitGoType(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		spec := n.Child(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := w.text(nameNode)
		kind := model.SymTypeAlias
		if typeNode := spec.ChildByFieldName("type"); typeNode != nil {
			switch typeNode.Type() {
			case "struct_type":
				kind = model.SymClass
			case "interface_type":
				kind = model.SymInterface
			}
		}

		parentFQN := w.scope.parentFQN()
		w.scope.push(name)
		localFQN := w.scope.fqn()
		span := w.span(spec)
		displayFQN := w.scope.displayFQN(localFQN)

		w.res.Symbols = append(w.res.Symbols, SymbolFact{
			Payload: model.SymbolPayload{
				Language:   "go",
				Kind:       kind,
				Name:       name,
				FQN:        localFQN,
				DisplayFQN: displayFQN,
				SymbolID:   buildSymbolID("go", displayFQN, span),
				Span:       span,
				LineCol:    w.lineCol(spec),
			},
			ParentFQN: parentFQN,
		})
		w.scope.pop()
	}
}

func (w *walker) emitGoCall(n *sitter.Node) {
	fnNode := n.ChildByFieldName("function")
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
