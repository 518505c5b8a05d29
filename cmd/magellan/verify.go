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

package main

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/query"
	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/ui"
)

// VerifyResult reports database integrity: index freshness plus orphan
// Reference/Call nodes that never resolved to a target (§3.1: "a
// validation failure").
type VerifyResult struct {
	Stale         bool    `json:"stale"`
	OrphanCalls   []int64 `json:"orphan_calls"`
	OrphanRefs    []int64 `json:"orphan_refs"`
}

// runVerify implements "magellan verify": a non-mutating integrity check.
func runVerify(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("verify", &g)
	fs.Parse(args)

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}

	snap, err := a.backend.Snapshot(ctx)
	if err != nil {
		a.finish(ctx, model.OutcomeError, indexCounts{}, err)
		return err
	}
	defer a.backend.ReleaseSnapshot(snap)

	qe := query.New(a.backend)
	stale, err := qe.IsStale(ctx, snap, time.Now())
	if err != nil {
		a.finish(ctx, model.OutcomeError, indexCounts{}, err)
		return err
	}

	orphanCalls, err := findOrphans(ctx, a.backend, snap, model.KindCall)
	if err != nil {
		a.finish(ctx, model.OutcomeError, indexCounts{}, err)
		return err
	}
	orphanRefs, err := findOrphans(ctx, a.backend, snap, model.KindRefernc)
	if err != nil {
		a.finish(ctx, model.OutcomeError, indexCounts{}, err)
		return err
	}

	result := VerifyResult{Stale: stale, OrphanCalls: orphanCalls, OrphanRefs: orphanRefs}
	outcome := model.OutcomeSuccess
	if len(orphanCalls) > 0 || len(orphanRefs) > 0 {
		outcome = model.OutcomePartial
	}
	a.finish(ctx, outcome, indexCounts{}, nil)

	return a.emit(result, func() {
		ui.Header("Verify")
		if stale {
			ui.Warning("index is stale")
		} else {
			ui.Success("index is fresh")
		}
		ui.Info(ui.CountText(len(orphanCalls)) + " orphan calls, " + ui.CountText(len(orphanRefs)) + " orphan references")
		for _, id := range orphanCalls {
			ui.Info("  call " + strconv.FormatInt(id, 10))
		}
		for _, id := range orphanRefs {
			ui.Info("  ref " + strconv.FormatInt(id, 10))
		}
	})
}

// findOrphans returns nodes of kind (Call or Reference) whose stored
// payload has an empty ResolvedSymID; edges are not consulted.
func findOrphans(ctx context.Context, b storage.Backend, snap storage.SnapshotID, kind model.NodeKind) ([]int64, error) {
	ids, err := b.EntityIDs(ctx, snap, kind)
	if err != nil {
		return nil, err
	}
	var orphans []int64
	for _, id := range ids {
		node, err := b.GetNode(ctx, snap, id)
		if err != nil {
			continue
		}
		switch p := node.Payload.(type) {
		case *model.CallPayload:
			if p.ResolvedSymID == "" {
				orphans = append(orphans, id)
			}
		case *model.ReferencePayload:
			if p.ResolvedSymID == "" {
				orphans = append(orphans, id)
			}
		}
	}
	return orphans, nil
}
