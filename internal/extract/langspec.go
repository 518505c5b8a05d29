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

import "github.com/kraklabs/magellan/internal/model"

// langSpec maps a language's grammar node-type names onto the symbol/call
// shapes extraction looks for. Go gets a dedicated, receiver-aware walker
// (golang.go); every other minimum-supported language shares the
// table-driven generic walker (dispatchGeneric in walker.go), since their grammars agree
// closely enough on "named declaration with a body" and "call expression
// with a function field" to extract accurately from one table rather than
// one handwritten walker apiece.
type langSpec struct {
	funcKinds map[string]model.SymbolKind // declaration node type -> symbol kind
	typeKinds map[string]model.SymbolKind
	callKind  string // call-expression node type
	// callFuncField names the child field of a call node holding the
	// callee expression (often "function").
	callFuncField string
	// nameField names the child field of a declaration node holding its
	// identifier (usually "name").
	nameField string
	// identKinds are node types treated as bare-name references when not
	// part of a call (used for REFERENCES edges).
	identKinds map[string]bool
}

var specs = map[string]langSpec{
	"python": {
		funcKinds: map[string]model.SymbolKind{
			"function_definition": model.SymFunction,
		},
		typeKinds: map[string]model.SymbolKind{
			"class_definition": model.SymClass,
		},
		callKind:      "call",
		callFuncField: "function",
		nameField:     "name",
		identKinds:    map[string]bool{"identifier": true},
	},
	"rust": {
		funcKinds: map[string]model.SymbolKind{
			"function_item": model.SymFunction,
		},
		typeKinds: map[string]model.SymbolKind{
			"struct_item": model.SymClass,
			"enum_item":   model.SymEnum,
			"trait_item":  model.SymTrait,
			"mod_item":    model.SymModule,
			"type_item":   model.SymTypeAlias,
		},
		callKind:      "call_expression",
		callFuncField: "function",
		nameField:     "name",
		identKinds:    map[string]bool{"identifier": true},
	},
	"c": {
		funcKinds: map[string]model.SymbolKind{
			"function_definition": model.SymFunction,
		},
		typeKinds: map[string]model.SymbolKind{
			"struct_specifier": model.SymClass,
			"enum_specifier":   model.SymEnum,
		},
		callKind:      "call_expression",
		callFuncField: "function",
		nameField:     "declarator",
		identKinds:    map[string]bool{"identifier": true},
	},
	"cpp": {
		funcKinds: map[string]model.SymbolKind{
			"function_definition": model.SymFunction,
		},
		typeKinds: map[string]model.SymbolKind{
			"struct_specifier": model.SymClass,
			"class_specifier":  model.SymClass,
			"enum_specifier":   model.SymEnum,
			"namespace_definition": model.SymNamespace,
		},
		callKind:      "call_expression",
		callFuncField: "function",
		nameField:     "declarator",
		identKinds:    map[string]bool{"identifier": true},
	},
	"java": {
		funcKinds: map[string]model.SymbolKind{
			"method_declaration":      model.SymMethod,
			"constructor_declaration": model.SymMethod,
		},
		typeKinds: map[string]model.SymbolKind{
			"class_declaration":     model.SymClass,
			"interface_declaration": model.SymInterface,
			"enum_declaration":      model.SymEnum,
		},
		callKind:      "method_invocation",
		callFuncField: "name",
		nameField:     "name",
		identKinds:    map[string]bool{"identifier": true},
	},
	"javascript": {
		funcKinds: map[string]model.SymbolKind{
			"function_declaration": model.SymFunction,
			"method_definition":    model.SymMethod,
		},
		typeKinds: map[string]model.SymbolKind{
			"class_declaration": model.SymClass,
		},
		callKind:      "call_expression",
		callFuncField: "function",
		nameField:     "name",
		identKinds:    map[string]bool{"identifier": true},
	},
	"typescript": {
		funcKinds: map[string]model.SymbolKind{
			"function_declaration": model.SymFunction,
			"method_definition":    model.SymMethod,
		},
		typeKinds: map[string]model.SymbolKind{
			"class_declaration":     model.SymClass,
			"interface_declaration": model.SymInterface,
			"type_alias_declaration": model.SymTypeAlias,
		},
		callKind:      "call_expression",
		callFuncField: "function",
		nameField:     "name",
		identKinds:    map[string]bool{"identifier": true},
	},
}
