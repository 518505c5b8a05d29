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

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kraklabs/magellan/internal/extract"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
)

// computeMetrics derives and persists the file's and each of its symbols'
// `metrics:file:{path}`/`metrics:symbol:{id}` KV rows (§6) once the file's
// nodes and edges are committed and the resolution sweep has run, so
// fan_in/fan_out reflect the post-sweep graph rather than a mid-reconcile
// snapshot. fan_in/fan_out count all incoming/outgoing edges touching a
// symbol regardless of edge type or which file the other endpoint lives in;
// this is a coarser signal than the original's cross-file-only ref/call
// count, chosen because it needs no extra per-edge file-boundary lookup.
func (e *Engine) computeMetrics(ctx context.Context, relPath string, content []byte, symbolIDs map[string]int64, result *extract.Result) error {
	loc := bytes.Count(content, []byte("\n")) + 1
	estimatedLOC := int(float64(len(content)) / 40.0)

	now := time.Now()
	var fileFanIn, fileFanOut int

	for _, sym := range result.Symbols {
		id, ok := symbolIDs[sym.Payload.FQN]
		if !ok {
			continue
		}

		fanIn, err := e.countNeighbors(ctx, id, storage.Incoming)
		if err != nil {
			return err
		}
		fanOut, err := e.countNeighbors(ctx, id, storage.Outgoing)
		if err != nil {
			return err
		}
		fileFanIn += fanIn
		fileFanOut += fanOut

		symLOC := sym.Payload.LineCol.EndLine - sym.Payload.LineCol.StartLine + 1
		if symLOC < 1 {
			symLOC = 1
		}
		byteSpan := sym.Payload.Span.End - sym.Payload.Span.Start
		if byteSpan < 1 {
			byteSpan = 1
		}

		symMetrics := model.SymbolMetrics{
			LOC:                  symLOC,
			EstimatedLOC:         int(float64(byteSpan) / 40.0),
			FanIn:                fanIn,
			FanOut:               fanOut,
			CyclomaticComplexity: 1,
			LastUpdated:          now,
		}
		if err := putJSON(ctx, e.backend, []byte("metrics:symbol:"+sym.Payload.SymbolID), symMetrics); err != nil {
			return fmt.Errorf("ingest: put symbol metrics %s: %w", sym.Payload.SymbolID, err)
		}
	}

	fileMetrics := model.FileMetrics{
		SymbolCount:     len(result.Symbols),
		LOC:             loc,
		EstimatedLOC:    estimatedLOC,
		FanIn:           fileFanIn,
		FanOut:          fileFanOut,
		ComplexityScore: model.ComplexityScore(loc, fileFanIn, fileFanOut),
		LastUpdated:     now,
	}
	if err := putJSON(ctx, e.backend, []byte("metrics:file:"+relPath), fileMetrics); err != nil {
		return fmt.Errorf("ingest: put file metrics %s: %w", relPath, err)
	}

	return nil
}

func (e *Engine) countNeighbors(ctx context.Context, id int64, dir storage.Direction) (int, error) {
	ids, err := e.backend.Neighbors(ctx, 0, id, storage.NeighborQuery{Direction: dir})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func putJSON(ctx context.Context, b storage.Backend, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(ctx, key, storage.Value{Kind: storage.ValJSON, JSON: data})
}
