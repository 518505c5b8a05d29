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
	"context"
	"runtime"
	"sync"

	"github.com/kraklabs/magellan/internal/extract"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
)

// parallelThreshold mirrors the original sequential/parallel cutover: below
// it, goroutine overhead is not worth paying.
const parallelThreshold = 1000

// maxResolveWorkers caps the worker pool the way the original resolver
// capped it, at min(NumCPU, 8).
const maxResolveWorkers = 8

// Resolver tracks a global index of simple-name -> display FQN candidates
// built up across every file reconciled so far, used to resolve calls and
// references against symbols defined in other files.
type Resolver struct {
	mu   sync.RWMutex
	byName map[string][]string // simple name -> candidate display FQNs
}

// NewResolver constructs an empty cross-file index.
func NewResolver() *Resolver {
	return &Resolver{byName: make(map[string][]string)}
}

// IndexFile registers one file's symbols into the global name index so
// later reconciles of other files can resolve calls into this one.
func (r *Resolver) IndexFile(relPath string, symbols []extract.SymbolFact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range symbols {
		r.byName[s.Payload.Name] = appendUnique(r.byName[s.Payload.Name], s.Payload.DisplayFQN)
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// ResolveSweep tries to resolve every Call and Reference node in the graph.
// newFQNs only gates the sweep (an empty list skips it); it does not narrow
// which nodes are visited, so each sweep is a full-graph rescan.
func (r *Resolver) ResolveSweep(ctx context.Context, backend storage.Backend, newFQNs []string) error {
	if len(newFQNs) == 0 {
		return nil
	}

	callIDs, err := backend.EntityIDs(ctx, 0, model.KindCall)
	if err != nil {
		return err
	}
	refIDs, err := backend.EntityIDs(ctx, 0, model.KindRefernc)
	if err != nil {
		return err
	}

	if len(callIDs)+len(refIDs) < parallelThreshold {
		return r.resolveSequential(ctx, backend, callIDs, refIDs)
	}
	return r.resolveParallel(ctx, backend, callIDs, refIDs)
}

func (r *Resolver) resolveSequential(ctx context.Context, backend storage.Backend, callIDs, refIDs []int64) error {
	for _, id := range callIDs {
		if err := r.resolveOneCall(ctx, backend, id); err != nil {
			return err
		}
	}
	for _, id := range refIDs {
		if err := r.resolveOneReference(ctx, backend, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveParallel(ctx context.Context, backend storage.Backend, callIDs, refIDs []int64) error {
	numWorkers := runtime.NumCPU()
	if numWorkers > maxResolveWorkers {
		numWorkers = maxResolveWorkers
	}

	type job struct {
		id     int64
		isCall bool
	}
	jobs := make(chan job, len(callIDs)+len(refIDs))
	for _, id := range callIDs {
		jobs <- job{id: id, isCall: true}
	}
	for _, id := range refIDs {
		jobs <- job{id: id, isCall: false}
	}
	close(jobs)

	errs := make(chan error, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				var err error
				if j.isCall {
					err = r.resolveOneCall(ctx, backend, j.id)
				} else {
					err = r.resolveOneReference(ctx, backend, j.id)
				}
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// resolveOneCall resolves a Call node's callee and, when the call site's
// caller is itself a known symbol (linked by the CALLER edge insertCalls
// already added), inserts the CALLS edge directly between the two
// symbols (§3.1: "a resolved CALLS edge between the caller Symbol and
// callee Symbol is added separately").
func (r *Resolver) resolveOneCall(ctx context.Context, backend storage.Backend, id int64) error {
	node, err := backend.GetNode(ctx, 0, id)
	if err != nil {
		return nil // deleted concurrently; skip
	}
	payload, ok := node.Payload.(*model.CallPayload)
	if !ok || payload.ResolvedSymID != "" {
		return nil
	}
	fqn, symID, ok := r.lookupSymbolID(ctx, backend, payload.CalleeName)
	if !ok {
		return nil
	}
	payload.ResolvedSymID = symID

	calleeIDs, err := backend.EntityIDs(ctx, 0, model.KindSymbol)
	if err != nil {
		return err
	}
	calleeNodeID, ok := findSymbolNodeByID(ctx, backend, calleeIDs, symID)
	if !ok {
		return nil
	}
	_ = fqn

	callerIDs, err := backend.Neighbors(ctx, 0, id, storage.NeighborQuery{Direction: storage.Incoming, EdgeType: model.EdgeCaller})
	if err != nil {
		return err
	}
	if len(callerIDs) == 0 {
		// A top-level or otherwise symbol-less call site: the Call node
		// itself still records the raw site for later re-resolution, but
		// there is no caller Symbol to hang a CALLS edge off of.
		return nil
	}
	if _, err := backend.InsertEdge(ctx, callerIDs[0], calleeNodeID, model.EdgeCalls, nil); err != nil {
		return err
	}
	return nil
}

func (r *Resolver) resolveOneReference(ctx context.Context, backend storage.Backend, id int64) error {
	node, err := backend.GetNode(ctx, 0, id)
	if err != nil {
		return nil
	}
	payload, ok := node.Payload.(*model.ReferencePayload)
	if !ok || payload.ResolvedSymID != "" {
		return nil
	}
	_, symID, ok := r.lookupSymbolID(ctx, backend, payload.ReferentName)
	if !ok {
		return nil
	}
	payload.ResolvedSymID = symID

	symbolIDs, err := backend.EntityIDs(ctx, 0, model.KindSymbol)
	if err != nil {
		return err
	}
	targetNodeID, ok := findSymbolNodeByID(ctx, backend, symbolIDs, symID)
	if !ok {
		return nil
	}
	_, err = backend.InsertEdge(ctx, id, targetNodeID, model.EdgeReferences, nil)
	return err
}

// lookupSymbolID resolves name to one candidate display FQN and its
// content-addressed symbol_id via the sym:fqn: KV index. Ambiguous names
// (more than one candidate) are left unresolved rather than guessed at.
func (r *Resolver) lookupSymbolID(ctx context.Context, backend storage.Backend, name string) (fqn, symID string, ok bool) {
	r.mu.RLock()
	candidates := r.byName[name]
	r.mu.RUnlock()
	if len(candidates) != 1 {
		return "", "", false
	}
	fqn = candidates[0]
	val, found, err := backend.Get(ctx, 0, []byte("sym:fqn:"+fqn))
	if err != nil || !found || val.Kind != storage.ValString {
		return "", "", false
	}
	return fqn, val.Str, true
}

func findSymbolNodeByID(ctx context.Context, backend storage.Backend, symbolNodeIDs []int64, symID string) (int64, bool) {
	for _, id := range symbolNodeIDs {
		n, err := backend.GetNode(ctx, 0, id)
		if err != nil {
			continue
		}
		if sp, ok := n.Payload.(*model.SymbolPayload); ok && sp.SymbolID == symID {
			return id, true
		}
	}
	return 0, false
}
