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

// Package model defines the node, edge, and payload types shared by the
// storage, ingestion, and query layers of the code knowledge graph.
package model

import (
	"fmt"
	"time"
)

// NodeKind is the closed set of node kinds a Node may carry.
type NodeKind string

const (
	KindFile     NodeKind = "File"
	KindSymbol   NodeKind = "Symbol"
	KindRefernc  NodeKind = "Reference"
	KindCall     NodeKind = "Call"
	KindAstNode  NodeKind = "AstNode"
	KindCfgBlock NodeKind = "CfgBlock"
)

// EdgeType is the closed set of edge types relating two nodes.
type EdgeType string

const (
	EdgeDefines    EdgeType = "DEFINES"
	EdgeReferences EdgeType = "REFERENCES"
	EdgeCalls      EdgeType = "CALLS"
	EdgeCaller     EdgeType = "CALLER"
	EdgeContains   EdgeType = "CONTAINS"
	EdgeParent     EdgeType = "PARENT"
	EdgeCfgSucc    EdgeType = "CFG_SUCC"
)

// SymbolKind is the closed set of symbol kinds.
type SymbolKind string

const (
	SymFunction  SymbolKind = "Function"
	SymMethod    SymbolKind = "Method"
	SymClass     SymbolKind = "Class"
	SymEnum      SymbolKind = "Enum"
	SymTrait     SymbolKind = "Trait"
	SymInterface SymbolKind = "Interface"
	SymModule    SymbolKind = "Module"
	SymNamespace SymbolKind = "Namespace"
	SymTypeAlias SymbolKind = "TypeAlias"
	SymField     SymbolKind = "Field"
	SymConstant  SymbolKind = "Constant"
	SymUnknown   SymbolKind = "Unknown"
)

// Node is a graph entity: an opaque id, a kind tag, a display name, an
// optional owning file path, and a kind-specific structured payload.
type Node struct {
	ID       int64
	Kind     NodeKind
	Name     string
	FilePath string
	Payload  any
}

// Edge is a typed relation between two node ids, with an insertion-ordered
// id used to make neighbor iteration deterministic.
type Edge struct {
	ID       int64
	From     int64
	To       int64
	Type     EdgeType
	Payload  any
}

// Span is a byte-offset half-open range [Start, End).
type Span struct {
	Start int
	End   int
}

// Fingerprint renders the span the way the symbol_id fingerprint requires:
// "start-end".
func (s Span) Fingerprint() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// LineCol is a line/column span: 1-indexed lines, 0-indexed byte-offset
// columns, exclusive end.
type LineCol struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// FilePayload is the payload carried by a File node.
type FilePayload struct {
	Path            string
	ContentHash     string
	LastIndexedAt   time.Time
	LastObservedMod time.Time
}

// SymbolPayload is the payload carried by a Symbol node.
type SymbolPayload struct {
	Language   string
	Kind       SymbolKind
	Name       string
	FQN        string // file-local FQN, e.g. "outer::inner::fn"
	DisplayFQN string // cross-crate FQN, e.g. "cratename::outer::inner::fn"
	SymbolID   string // 32 hex chars, content-addressed
	Span       Span
	LineCol    LineCol
}

// ReferencePayload is the payload carried by a Reference node.
type ReferencePayload struct {
	ReferentName  string
	CallerSpan    Span
	Span          Span
	LineCol       LineCol
	ResolvedSymID string // empty until resolved
}

// CallPayload is the payload carried by a Call node.
type CallPayload struct {
	CallerName    string
	CalleeName    string
	FilePath      string
	Span          Span
	LineCol       LineCol
	ResolvedSymID string // empty until resolved
}

// AstNodePayload is the payload carried by an AstNode node.
type AstNodePayload struct {
	ParentID int64 // 0 for file roots
	Kind     string
	Span     Span
}

// CfgBlockKind is the closed set of control-flow block kinds.
type CfgBlockKind string

const (
	CfgEntry       CfgBlockKind = "entry"
	CfgIf          CfgBlockKind = "if"
	CfgElse        CfgBlockKind = "else"
	CfgLoop        CfgBlockKind = "loop"
	CfgMatch       CfgBlockKind = "match"
	CfgReturn      CfgBlockKind = "return"
	CfgBreak       CfgBlockKind = "break"
	CfgFallthrough CfgBlockKind = "fallthrough"
)

// CfgBlockPayload is the payload carried by a CfgBlock node.
type CfgBlockPayload struct {
	OwningSymbolID int64
	Kind           CfgBlockKind
	Span           Span
}

// Chunk is the KV-resident source text of a Symbol's byte span.
type Chunk struct {
	FilePath    string
	Span        Span
	SymbolName  string
	SymbolKind  SymbolKind
	ContentHash string
	Text        string
}

// FileMetrics is the per-file metrics row.
type FileMetrics struct {
	SymbolCount     int
	LOC             int
	EstimatedLOC    int
	FanIn           int
	FanOut          int
	ComplexityScore float64
	LastUpdated     time.Time
}

// SymbolMetrics is the per-symbol metrics row.
type SymbolMetrics struct {
	LOC                int
	EstimatedLOC       int
	FanIn              int
	FanOut             int
	CyclomaticComplexity int
	LastUpdated        time.Time
}

// ComplexityScore computes loc*0.1 + fan_in*0.5 + fan_out*0.3.
func ComplexityScore(loc, fanIn, fanOut int) float64 {
	return float64(loc)*0.1 + float64(fanIn)*0.5 + float64(fanOut)*0.3
}

// ExecutionOutcome is the closed set of execution-log outcomes.
type ExecutionOutcome string

const (
	OutcomeRunning ExecutionOutcome = "running"
	OutcomeSuccess ExecutionOutcome = "success"
	OutcomeError   ExecutionOutcome = "error"
	OutcomePartial ExecutionOutcome = "partial"
)

// ExecutionRecord is one record per CLI invocation, stored under
// execlog:{execution_id}.
type ExecutionRecord struct {
	ExecutionID       string
	ToolVersion       string
	ArgsJSON          string
	Root              string
	DBPath            string
	StartedAt         time.Time
	FinishedAt        time.Time
	DurationMS        int64
	Outcome           ExecutionOutcome
	ErrorMessage      string
	FilesIndexed      int
	SymbolsIndexed    int
	ReferencesIndexed int
}
