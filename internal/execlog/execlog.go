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

// Package execlog records one durable entry per CLI invocation under the
// execlog:{execution_id} key, so a later "status" or "verify" call can
// inspect what the last few runs did without re-scanning the graph.
package execlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
)

const keyPrefix = "execlog:"

// Recorder writes and reads execution records against a backend's KV store.
type Recorder struct {
	backend storage.KV
}

// New returns a Recorder backed by the given KV store.
func New(backend storage.KV) *Recorder {
	return &Recorder{backend: backend}
}

// Start writes an initial "running" record for executionID and returns the
// record so the caller can fill in outcome fields and call Finish.
func (r *Recorder) Start(ctx context.Context, executionID, toolVersion, argsJSON, root, dbPath string) (*model.ExecutionRecord, error) {
	rec := &model.ExecutionRecord{
		ExecutionID: executionID,
		ToolVersion: toolVersion,
		ArgsJSON:    argsJSON,
		Root:        root,
		DBPath:      dbPath,
		StartedAt:   time.Now(),
		Outcome:     model.OutcomeRunning,
	}
	return rec, r.put(ctx, rec)
}

// Finish stamps FinishedAt/DurationMS on rec and persists the final record.
// Call with outcome=OutcomeError and errMsg set when the invocation failed;
// OutcomePartial when it completed but some files could not be indexed.
func (r *Recorder) Finish(ctx context.Context, rec *model.ExecutionRecord, outcome model.ExecutionOutcome, errMsg string) error {
	rec.FinishedAt = time.Now()
	rec.DurationMS = rec.FinishedAt.Sub(rec.StartedAt).Milliseconds()
	rec.Outcome = outcome
	rec.ErrorMessage = errMsg
	return r.put(ctx, rec)
}

func (r *Recorder) put(ctx context.Context, rec *model.ExecutionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal execution record: %w", err)
	}
	return r.backend.Put(ctx, []byte(keyPrefix+rec.ExecutionID), storage.Value{Kind: storage.ValJSON, JSON: raw})
}

// Get loads a single execution record by id. Returns false if no such
// record exists.
func (r *Recorder) Get(ctx context.Context, snap storage.SnapshotID, executionID string) (*model.ExecutionRecord, bool, error) {
	val, found, err := r.backend.Get(ctx, snap, []byte(keyPrefix+executionID))
	if err != nil || !found {
		return nil, found, err
	}
	var rec model.ExecutionRecord
	if err := json.Unmarshal(val.JSON, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal execution record %s: %w", executionID, err)
	}
	return &rec, true, nil
}

// Recent returns every stored execution record, most recently started
// first. Used by "status" to show recent ingestion/watch activity.
func (r *Recorder) Recent(ctx context.Context, snap storage.SnapshotID) ([]*model.ExecutionRecord, error) {
	entries, err := r.backend.PrefixScan(ctx, snap, []byte(keyPrefix))
	if err != nil {
		return nil, err
	}
	recs := make([]*model.ExecutionRecord, 0, len(entries))
	for _, e := range entries {
		var rec model.ExecutionRecord
		if err := json.Unmarshal(e.Value.JSON, &rec); err != nil {
			continue
		}
		recs = append(recs, &rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].StartedAt.After(recs[j].StartedAt) })
	return recs, nil
}
