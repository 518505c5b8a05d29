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
)

// cfgNodeKinds maps tree-sitter node type names, across every minimum
// supported grammar, onto the closed CfgBlockKind set (§4.4). A single
// table suffices because the grammars name these constructs consistently
// enough (if/else/for/while/switch/match/return/break) that no per-language
// CFG walker is needed on top of the per-language symbol walkers.
var cfgNodeKinds = map[string]model.CfgBlockKind{
	"if_statement":        model.CfgIf,
	"if_expression":        model.CfgIf,
	"else_clause":          model.CfgElse,
	"for_statement":        model.CfgLoop,
	"for_expression":       model.CfgLoop,
	"while_statement":      model.CfgLoop,
	"while_expression":     model.CfgLoop,
	"loop_expression":      model.CfgLoop,
	"range_statement":      model.CfgLoop,
	"switch_statement":     model.CfgMatch,
	"switch_expression":    model.CfgMatch,
	"match_expression":     model.CfgMatch,
	"match_statement":      model.CfgMatch,
	"return_statement":     model.CfgReturn,
	"break_statement":      model.CfgBreak,
	"fallthrough_statement": model.CfgFallthrough,
}

// funcLikeKinds identifies nodes that open a new symbol scope, so cfg
// block scanning can stop descending into a nested function/closure body:
// those blocks belong to the nested symbol, recorded on its own walk.
var funcLikeKinds = map[string]bool{
	"function_declaration":    true,
	"method_declaration":      true,
	"func_literal":            true,
	"function_definition":     true,
	"function_item":           true,
	"method_definition":       true,
	"constructor_declaration": true,
	"lambda":                  true,
	"closure_expression":      true,
}

// emitCfgBlocks scans body for control-flow constructs belonging to
// ownerFQN, stopping at nested function-like boundaries.
func (w *walker) emitCfgBlocks(body *sitter.Node, ownerFQN string) {
	w.scanCfg(body, ownerFQN, true)
}

func (w *walker) scanCfg(n *sitter.Node, ownerFQN string, isRoot bool) {
	if n == nil {
		return
	}
	if !isRoot && funcLikeKinds[n.Type()] {
		return
	}
	if kind, ok := cfgNodeKinds[n.Type()]; ok {
		w.res.CfgBlocks = append(w.res.CfgBlocks, CfgBlockFact{
			OwningSymbolFQN: ownerFQN,
			Kind:            kind,
			Span:            w.span(n),
		})
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.scanCfg(n.Child(i), ownerFQN, false)
	}
}
