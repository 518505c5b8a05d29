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

// Package ingest implements reconcile(file_path) (§4.5): the atomic,
// idempotent operation that brings the graph's view of one file up to
// date with its current on-disk contents.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/kraklabs/magellan/internal/errors"
	"github.com/kraklabs/magellan/internal/extract"
	"github.com/kraklabs/magellan/internal/metrics"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/parserpool"
	"github.com/kraklabs/magellan/internal/storage"
)

// Engine reconciles files against a Backend. One Engine is shared by the
// scan, watch, and CLI-triggered-reindex paths; it owns no per-file state
// between calls other than the cross-file FQN index used for resolution.
type Engine struct {
	backend  storage.Backend
	extractor *extract.Extractor
	logger   *slog.Logger

	resolver *Resolver
}

// New constructs an Engine over backend. pool supplies the tree-sitter
// parsers extraction borrows.
func New(backend storage.Backend, pool *parserpool.Pool, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		backend:   backend,
		extractor: extract.New(pool),
		logger:    logger,
		resolver:  NewResolver(),
	}
}

// Outcome reports what Reconcile did, for callers that aggregate stats
// (scan summaries, execution-log records).
type Outcome struct {
	Skipped       bool // content hash unchanged; no-op short-circuit
	SymbolCount   int
	ReferenceCount int
	CallCount     int
}

// Reconcile brings the graph up to date with filePath's current contents.
// Steps, all inside one write transaction committed only on success
// (§4.5): hash the content; short-circuit if unchanged; delete every node
// this file previously contributed; parse and extract facts; insert nodes
// and edges in the deterministic order the spec requires; update the KV
// FQN indexes; run the cross-file resolution sweep.
func (e *Engine) Reconcile(ctx context.Context, root, relPath string) (Outcome, error) {
	start := time.Now()
	outcome, err := e.reconcile(ctx, root, relPath)
	metrics.Ingestion.ObserveReconcile(time.Since(start), outcome.Skipped, outcome.SymbolCount, outcome.ReferenceCount, outcome.CallCount)
	return outcome, err
}

func (e *Engine) reconcile(ctx context.Context, root, relPath string) (Outcome, error) {
	fullPath := relPath
	if root != "" {
		fullPath = root + "/" + relPath
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		metrics.Ingestion.IncFilesystemError()
		return Outcome{}, errors.NewFilesystemError(
			fmt.Sprintf("cannot read %s", relPath),
			err.Error(),
			"check that the file exists and is readable",
			err,
		)
	}
	contentHash := hashContent(content)

	existing, err := e.fileNode(ctx, relPath)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil {
		if fp, ok := existing.Payload.(*model.FilePayload); ok && fp.ContentHash == contentHash {
			return Outcome{Skipped: true}, nil
		}
	}

	lang, ok := parserpool.LanguageForPath(relPath)
	if !ok {
		return Outcome{}, fmt.Errorf("ingest: unsupported language for %s", relPath)
	}

	result, err := e.extractor.Extract(ctx, lang, root, relPath, content)
	if err != nil {
		// Parse failures are non-fatal diagnostics (§4.5): the file's
		// prior graph contribution is left untouched rather than wiped.
		metrics.Ingestion.IncParseError()
		e.logger.Warn("ingest.reconcile.parse_error", "path", relPath, "err", err)
		return Outcome{}, errors.NewParseError(
			fmt.Sprintf("cannot parse %s", relPath),
			err.Error(),
			"the file is recorded as a diagnostic; no facts were inserted for it",
			err,
		)
	}

	txn, err := e.backend.Begin(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("ingest: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = txn.Rollback()
		}
	}()

	if existing != nil {
		if err := e.deleteFileContribution(ctx, existing.ID); err != nil {
			return Outcome{}, fmt.Errorf("ingest: delete prior contribution: %w", err)
		}
	}

	fileNodeID, err := e.backend.InsertNode(ctx, model.KindFile, relPath, relPath, &model.FilePayload{
		Path:            relPath,
		ContentHash:     contentHash,
		LastIndexedAt:   time.Now(),
		LastObservedMod: modTime(fullPath),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("ingest: insert file node: %w", err)
	}

	symbolIDs, err := e.insertSymbols(ctx, fileNodeID, relPath, result)
	if err != nil {
		return Outcome{}, err
	}
	if err := e.insertReferences(ctx, fileNodeID, result); err != nil {
		return Outcome{}, err
	}
	if err := e.insertCalls(ctx, fileNodeID, symbolIDs, result); err != nil {
		return Outcome{}, err
	}
	if err := e.insertAstNodes(ctx, fileNodeID, result); err != nil {
		return Outcome{}, err
	}
	if err := e.insertCfgBlocks(ctx, symbolIDs, result); err != nil {
		return Outcome{}, err
	}

	if err := txn.Commit(); err != nil {
		return Outcome{}, fmt.Errorf("ingest: commit: %w", err)
	}
	committed = true

	e.resolver.IndexFile(relPath, result.Symbols)
	newFQNs := make([]string, 0, len(result.Symbols))
	for _, s := range result.Symbols {
		newFQNs = append(newFQNs, s.Payload.DisplayFQN)
	}
	sweepStart := time.Now()
	if err := e.resolver.ResolveSweep(ctx, e.backend, newFQNs); err != nil {
		e.logger.Warn("ingest.reconcile.resolution_error", "path", relPath, "err", err)
	}
	metrics.Ingestion.ObserveResolveSweep(time.Since(sweepStart))

	if err := e.computeMetrics(ctx, relPath, content, symbolIDs, result); err != nil {
		e.logger.Warn("ingest.reconcile.metrics_error", "path", relPath, "err", err)
	}

	return Outcome{
		SymbolCount:    len(result.Symbols),
		ReferenceCount: len(result.References),
		CallCount:      len(result.Calls),
	}, nil
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func (e *Engine) fileNode(ctx context.Context, relPath string) (*model.Node, error) {
	ids, err := e.backend.EntityIDs(ctx, 0, model.KindFile)
	if err != nil {
		return nil, fmt.Errorf("ingest: list file nodes: %w", err)
	}
	for _, id := range ids {
		n, err := e.backend.GetNode(ctx, 0, id)
		if err != nil {
			continue
		}
		if n.FilePath == relPath {
			return n, nil
		}
	}
	return nil, nil
}

// deleteFileContribution removes the file node and every node it
// previously DEFINES/CONTAINS, so reconcile never leaves stale facts
// behind (§4.5 delete-then-insert).
func (e *Engine) deleteFileContribution(ctx context.Context, fileNodeID int64) error {
	children, err := e.backend.Neighbors(ctx, 0, fileNodeID, storage.NeighborQuery{
		Direction: storage.Outgoing,
		EdgeType:  model.EdgeContains,
	})
	if err != nil {
		return err
	}
	for _, id := range children {
		if err := e.backend.DeleteNode(ctx, id); err != nil {
			return err
		}
	}
	return e.backend.DeleteNode(ctx, fileNodeID)
}

// insertSymbols inserts Symbol nodes in deterministic FQN order (§4.5) and
// returns each symbol's node id keyed by its local FQN, for CFG-block
// attachment and PARENT/CONTAINS wiring.
func (e *Engine) insertSymbols(ctx context.Context, fileNodeID int64, relPath string, res *extract.Result) (map[string]int64, error) {
	ordered := make([]extract.SymbolFact, len(res.Symbols))
	copy(ordered, res.Symbols)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Payload.FQN < ordered[j].Payload.FQN
	})

	ids := make(map[string]int64, len(ordered))
	for _, sym := range ordered {
		payload := sym.Payload
		id, err := e.backend.InsertNode(ctx, model.KindSymbol, payload.Name, relPath, &payload)
		if err != nil {
			return nil, fmt.Errorf("ingest: insert symbol %s: %w", payload.DisplayFQN, err)
		}
		ids[payload.FQN] = id
		if _, err := e.backend.InsertEdge(ctx, fileNodeID, id, model.EdgeDefines, nil); err != nil {
			return nil, err
		}
		if _, err := e.backend.InsertEdge(ctx, fileNodeID, id, model.EdgeContains, nil); err != nil {
			return nil, err
		}
		if sym.ParentFQN != "" {
			if parentID, ok := ids[sym.ParentFQN]; ok {
				if _, err := e.backend.InsertEdge(ctx, parentID, id, model.EdgeParent, nil); err != nil {
					return nil, err
				}
			}
		}

		if err := indexSymbolKV(ctx, e.backend, payload); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// indexSymbolKV maintains the sym:fqn:{display_fqn} -> symbol_id and
// sym:fqn_of:{symbol_id} -> display_fqn KV entries (§6).
func indexSymbolKV(ctx context.Context, b storage.Backend, payload model.SymbolPayload) error {
	if err := b.Put(ctx, []byte("sym:fqn:"+payload.DisplayFQN), storage.Value{Kind: storage.ValString, Str: payload.SymbolID}); err != nil {
		return err
	}
	if err := b.Put(ctx, []byte("sym:fqn_of:"+payload.SymbolID), storage.Value{Kind: storage.ValString, Str: payload.DisplayFQN}); err != nil {
		return err
	}
	return nil
}

// insertReferences inserts Reference nodes ordered by (file, byte_start)
// (§4.5).
func (e *Engine) insertReferences(ctx context.Context, fileNodeID int64, res *extract.Result) error {
	ordered := make([]extract.ReferenceFact, len(res.References))
	copy(ordered, res.References)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Payload.Span.Start < ordered[j].Payload.Span.Start
	})

	for _, ref := range ordered {
		payload := ref.Payload
		id, err := e.backend.InsertNode(ctx, model.KindRefernc, payload.ReferentName, "", &payload)
		if err != nil {
			return fmt.Errorf("ingest: insert reference: %w", err)
		}
		if _, err := e.backend.InsertEdge(ctx, fileNodeID, id, model.EdgeContains, nil); err != nil {
			return err
		}
	}
	return nil
}

// insertCalls inserts Call nodes ordered by (caller_fqn, callee_name,
// byte_start) (§4.5). Resolution against a callee symbol_id happens in
// ResolveSweep; unresolved Call nodes remain visible to generic lookups
// but are excluded from callers_of/callees_of until resolved, per the
// spec's Open Question answer.
// insertCalls inserts one Call node per call site and, when the enclosing
// function is itself a known symbol, the CALLER edge from that symbol to
// the Call node (§3.1: "every Call node has exactly one CALLER edge from
// its caller Symbol"). The CALLS edge to the resolved callee is added
// later by the resolver, directly between the two symbols.
func (e *Engine) insertCalls(ctx context.Context, fileNodeID int64, symbolIDs map[string]int64, res *extract.Result) error {
	ordered := make([]extract.CallFact, len(res.Calls))
	copy(ordered, res.Calls)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].Payload, ordered[j].Payload
		if a.CallerName != b.CallerName {
			return a.CallerName < b.CallerName
		}
		if a.CalleeName != b.CalleeName {
			return a.CalleeName < b.CalleeName
		}
		return a.Span.Start < b.Span.Start
	})

	for _, call := range ordered {
		payload := call.Payload
		id, err := e.backend.InsertNode(ctx, model.KindCall, payload.CalleeName, payload.FilePath, &payload)
		if err != nil {
			return fmt.Errorf("ingest: insert call: %w", err)
		}
		if _, err := e.backend.InsertEdge(ctx, fileNodeID, id, model.EdgeContains, nil); err != nil {
			return err
		}
		if callerID, ok := symbolIDs[payload.CallerName]; ok {
			if _, err := e.backend.InsertEdge(ctx, callerID, id, model.EdgeCaller, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) insertAstNodes(ctx context.Context, fileNodeID int64, res *extract.Result) error {
	ids := make([]int64, len(res.AstNodes))
	for i, fact := range res.AstNodes {
		var parentID int64
		if fact.ParentIdx >= 0 {
			parentID = ids[fact.ParentIdx]
		}
		id, err := e.backend.InsertNode(ctx, model.KindAstNode, fact.Kind, "", &model.AstNodePayload{
			ParentID: parentID,
			Kind:     fact.Kind,
			Span:     fact.Span,
		})
		if err != nil {
			return fmt.Errorf("ingest: insert ast node: %w", err)
		}
		ids[i] = id
		if fact.ParentIdx >= 0 {
			if _, err := e.backend.InsertEdge(ctx, parentID, id, model.EdgeParent, nil); err != nil {
				return err
			}
		} else {
			if _, err := e.backend.InsertEdge(ctx, fileNodeID, id, model.EdgeContains, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// insertCfgBlocks inserts one CfgBlock node per fact and links consecutive
// blocks within the same owning symbol with CFG_SUCC edges, in the order
// extraction discovered them (source order within the body).
func (e *Engine) insertCfgBlocks(ctx context.Context, symbolIDs map[string]int64, res *extract.Result) error {
	prevByOwner := make(map[string]int64)
	for _, block := range res.CfgBlocks {
		ownerID, ok := symbolIDs[block.OwningSymbolFQN]
		if !ok {
			continue
		}
		id, err := e.backend.InsertNode(ctx, model.KindCfgBlock, string(block.Kind), "", &model.CfgBlockPayload{
			OwningSymbolID: ownerID,
			Kind:           block.Kind,
			Span:           block.Span,
		})
		if err != nil {
			return fmt.Errorf("ingest: insert cfg block: %w", err)
		}
		if prev, ok := prevByOwner[block.OwningSymbolFQN]; ok {
			if _, err := e.backend.InsertEdge(ctx, prev, id, model.EdgeCfgSucc, nil); err != nil {
				return err
			}
		}
		prevByOwner[block.OwningSymbolFQN] = id
	}
	return nil
}
