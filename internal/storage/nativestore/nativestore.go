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

// Package nativestore implements storage.Backend as a purpose-built store
// over ordered in-memory B-trees (github.com/google/btree), durable via an
// append-only log replayed on open. Unlike sqlitestore, it implements
// storage.PubSub (§4.1: "pub/sub is only required from the purpose-built
// one"), delivering mutation events over buffered channels.
//
// Snapshot isolation is obtained from btree.BTreeG's copy-on-write Clone:
// Snapshot takes an O(1) clone of each index so that later writes to the
// live tree are invisible to readers still holding the cloned snapshot.
package nativestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/btree"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/schema"
	"github.com/kraklabs/magellan/internal/storage"
)

type nodeItem struct {
	id      int64
	kind    model.NodeKind
	name    string
	path    string
	payload []byte
}

func nodeLess(a, b nodeItem) bool { return a.id < b.id }

type edgeKey struct {
	anchor   int64 // from (out-index) or to (in-index)
	edgeType model.EdgeType
	edgeID   int64
}

func edgeLess(a, b edgeKey) bool {
	if a.anchor != b.anchor {
		return a.anchor < b.anchor
	}
	if a.edgeType != b.edgeType {
		return a.edgeType < b.edgeType
	}
	return a.edgeID < b.edgeID
}

type edgeRecord struct {
	id      int64
	from    int64
	to      int64
	etype   model.EdgeType
	payload []byte
}

func edgeRecLess(a, b edgeRecord) bool { return a.id < b.id }

type kvItem struct {
	key   []byte
	value storage.Value
}

func kvLess(a, b kvItem) bool { return bytes.Compare(a.key, b.key) < 0 }

// state is the mutable, clonable index set. Clone is O(1) thanks to
// btree's copy-on-write sharing.
type state struct {
	nodes   *btree.BTreeG[nodeItem]
	edges   *btree.BTreeG[edgeRecord]
	outIdx  *btree.BTreeG[edgeKey] // anchor=from
	inIdx   *btree.BTreeG[edgeKey] // anchor=to
	kv      *btree.BTreeG[kvItem]
}

func newState() *state {
	return &state{
		nodes:  btree.NewG(32, nodeLess),
		edges:  btree.NewG(32, edgeRecLess),
		outIdx: btree.NewG(32, edgeLess),
		inIdx:  btree.NewG(32, edgeLess),
		kv:     btree.NewG(32, kvLess),
	}
}

func (s *state) clone() *state {
	return &state{
		nodes:  s.nodes.Clone(),
		edges:  s.edges.Clone(),
		outIdx: s.outIdx.Clone(),
		inIdx:  s.inIdx.Clone(),
		kv:     s.kv.Clone(),
	}
}

// Backend is the purpose-built storage.Backend + storage.PubSub implementation.
type Backend struct {
	mu     sync.Mutex
	live   *state
	nextNode int64
	nextEdge int64

	logPath string
	logFile *os.File
	logW    *bufio.Writer

	snapMu    sync.Mutex
	snapshots map[storage.SnapshotID]*state
	nextSnap  int64

	subMu   sync.Mutex
	subs    map[int64]chan storage.Event
	nextSub int64

	closed bool
}

// logRecord is the append-only log's wire format; one JSON object per line.
type logRecord struct {
	Op      string          `json:"op"` // "node", "edge", "delete_node", "kv_put", "kv_delete", "meta"
	ID      int64           `json:"id,omitempty"`
	Kind    string          `json:"kind,omitempty"`
	Name    string          `json:"name,omitempty"`
	Path    string          `json:"path,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	From    int64           `json:"from,omitempty"`
	To      int64           `json:"to,omitempty"`
	EdgeT   string          `json:"edge_type,omitempty"`
	Key     []byte          `json:"key,omitempty"`
	ValKind int             `json:"val_kind,omitempty"`
	ValInt  int64           `json:"val_int,omitempty"`
	ValStr  string          `json:"val_str,omitempty"`
	ValJSON json.RawMessage `json:"val_json,omitempty"`
	ValB    []byte          `json:"val_bytes,omitempty"`
	Meta    *schema.Meta    `json:"meta,omitempty"`
}

// Open opens (or creates) the append-only log at path and replays it into
// memory, then runs schema bootstrap/migration.
func Open(ctx context.Context, path string) (*Backend, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open native store log: %w", err)
	}

	b := &Backend{
		live:      newState(),
		logPath:   path,
		logFile:   f,
		snapshots: make(map[storage.SnapshotID]*state),
		subs:      make(map[int64]chan storage.Event),
	}

	var meta *schema.Meta
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec logRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: corrupt log line: %v", schema.ErrNotDatabase, err)
		}
		if err := b.replay(rec, &meta); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay log: %w", err)
	}

	b.logW = bufio.NewWriter(f)

	if err := schema.Open(&schemaTarget{b: b, loaded: meta}); err != nil {
		_ = f.Close()
		return nil, err
	}

	return b, nil
}

func (b *Backend) replay(rec logRecord, meta **schema.Meta) error {
	switch rec.Op {
	case "meta":
		*meta = rec.Meta
	case "node":
		b.live.nodes.ReplaceOrInsert(nodeItem{id: rec.ID, kind: model.NodeKind(rec.Kind), name: rec.Name, path: rec.Path, payload: rec.Payload})
		if rec.ID > b.nextNode {
			b.nextNode = rec.ID
		}
	case "delete_node":
		b.live.nodes.Delete(nodeItem{id: rec.ID})
	case "edge":
		b.live.edges.ReplaceOrInsert(edgeRecord{id: rec.ID, from: rec.From, to: rec.To, etype: model.EdgeType(rec.EdgeT), payload: rec.Payload})
		b.live.outIdx.ReplaceOrInsert(edgeKey{anchor: rec.From, edgeType: model.EdgeType(rec.EdgeT), edgeID: rec.ID})
		b.live.inIdx.ReplaceOrInsert(edgeKey{anchor: rec.To, edgeType: model.EdgeType(rec.EdgeT), edgeID: rec.ID})
		if rec.ID > b.nextEdge {
			b.nextEdge = rec.ID
		}
	case "kv_put":
		v := storage.Value{Kind: storage.ValueKind(rec.ValKind), Int: rec.ValInt, Str: rec.ValStr, JSON: rec.ValJSON, Bytes: rec.ValB}
		b.live.kv.ReplaceOrInsert(kvItem{key: rec.Key, value: v})
	case "kv_delete":
		b.live.kv.Delete(kvItem{key: rec.Key})
	default:
		return fmt.Errorf("replay log: unknown op %q", rec.Op)
	}
	return nil
}

func (b *Backend) append(rec logRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := b.logW.Write(line); err != nil {
		return err
	}
	if err := b.logW.WriteByte('\n'); err != nil {
		return err
	}
	return b.logW.Flush()
}

// schemaTarget adapts Backend to schema.Target using the replayed meta
// record plus a synthetic append for writes.
type schemaTarget struct {
	b      *Backend
	loaded *schema.Meta
}

func (t *schemaTarget) ReadMeta() (*schema.Meta, bool, error) {
	if t.loaded == nil {
		return nil, false, nil
	}
	return t.loaded, true, nil
}

func (t *schemaTarget) WriteMeta(m schema.Meta) error {
	return t.b.append(logRecord{Op: "meta", Meta: &m})
}

func (t *schemaTarget) Migrations() []schema.Migration { return nil }

// Begin returns a no-op transaction: the native backend applies each
// mutating call directly and durably (append + in-memory update), so there
// is no separate prepare/commit window to model. Rollback after a
// successful InsertNode/InsertEdge call cannot undo the append; callers
// needing atomic multi-step writes should perform all their inserts before
// calling Commit and treat Rollback only as an early-exit signal.
type txn struct{}

func (txn) Commit() error   { return nil }
func (txn) Rollback() error { return nil }

func (b *Backend) Begin(ctx context.Context) (storage.Txn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, storage.ErrBackendClosed
	}
	return txn{}, nil
}

// Snapshot clones the live index set (O(1), copy-on-write) and registers
// it under a fresh id.
func (b *Backend) Snapshot(ctx context.Context) (storage.SnapshotID, error) {
	b.mu.Lock()
	snap := b.live.clone()
	b.mu.Unlock()

	b.snapMu.Lock()
	defer b.snapMu.Unlock()
	b.nextSnap++
	id := storage.SnapshotID(b.nextSnap)
	b.snapshots[id] = snap
	return id, nil
}

func (b *Backend) ReleaseSnapshot(snap storage.SnapshotID) {
	b.snapMu.Lock()
	delete(b.snapshots, snap)
	b.snapMu.Unlock()
}

func (b *Backend) stateFor(snap storage.SnapshotID) *state {
	if snap == 0 {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.live
	}
	b.snapMu.Lock()
	defer b.snapMu.Unlock()
	if s, ok := b.snapshots[snap]; ok {
		return s
	}
	return b.live
}

func (b *Backend) InsertNode(ctx context.Context, kind model.NodeKind, name, filePath string, payload any) (int64, error) {
	raw, err := storage.EncodePayload(payload)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, storage.ErrBackendClosed
	}
	b.nextNode++
	id := b.nextNode
	if err := b.append(logRecord{Op: "node", ID: id, Kind: string(kind), Name: name, Path: filePath, Payload: raw}); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrStorageCorruption, err)
	}
	b.live.nodes.ReplaceOrInsert(nodeItem{id: id, kind: kind, name: name, path: filePath, payload: raw})
	b.publish(storage.Event{Kind: storage.EventNodeChanged, NodeID: id})
	return id, nil
}

func (b *Backend) InsertEdge(ctx context.Context, from, to int64, edgeType model.EdgeType, payload any) (int64, error) {
	raw, err := storage.EncodePayload(payload)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, storage.ErrBackendClosed
	}
	b.nextEdge++
	id := b.nextEdge
	if err := b.append(logRecord{Op: "edge", ID: id, From: from, To: to, EdgeT: string(edgeType), Payload: raw}); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrStorageCorruption, err)
	}
	b.live.edges.ReplaceOrInsert(edgeRecord{id: id, from: from, to: to, etype: edgeType, payload: raw})
	b.live.outIdx.ReplaceOrInsert(edgeKey{anchor: from, edgeType: edgeType, edgeID: id})
	b.live.inIdx.ReplaceOrInsert(edgeKey{anchor: to, edgeType: edgeType, edgeID: id})
	b.publish(storage.Event{Kind: storage.EventEdgeChanged, EdgeID: id})
	return id, nil
}

func (b *Backend) GetNode(ctx context.Context, snap storage.SnapshotID, id int64) (*model.Node, error) {
	s := b.stateFor(snap)
	item, ok := s.nodes.Get(nodeItem{id: id})
	if !ok {
		return nil, storage.ErrNotFound
	}
	payload, err := storage.DecodePayload(item.kind, item.payload)
	if err != nil {
		return nil, err
	}
	return &model.Node{ID: item.id, Kind: item.kind, Name: item.name, FilePath: item.path, Payload: payload}, nil
}

func (b *Backend) Neighbors(ctx context.Context, snap storage.SnapshotID, id int64, nq storage.NeighborQuery) ([]int64, error) {
	s := b.stateFor(snap)
	idx := s.outIdx
	edgeLookup := func(k edgeKey) (int64, int64) {
		e, _ := s.edges.Get(edgeRecord{id: k.edgeID})
		return e.from, e.to
	}
	if nq.Direction == storage.Incoming {
		idx = s.inIdx
	}

	var out []int64
	visit := func(k edgeKey) bool {
		if k.anchor != id {
			return false
		}
		from, to := edgeLookup(k)
		if nq.Direction == storage.Incoming {
			out = append(out, from)
		} else {
			out = append(out, to)
		}
		return true
	}

	lo := edgeKey{anchor: id}
	idx.AscendGreaterOrEqual(lo, func(k edgeKey) bool {
		if k.anchor != id {
			return false
		}
		if nq.EdgeType != "" && k.edgeType != nq.EdgeType {
			// anchor matches but wrong type; keep scanning since types sort
			// within the same anchor.
			return true
		}
		return visit(k)
	})
	return out, nil
}

func (b *Backend) EntityIDs(ctx context.Context, snap storage.SnapshotID, kind model.NodeKind) ([]int64, error) {
	s := b.stateFor(snap)
	var out []int64
	s.nodes.Ascend(func(item nodeItem) bool {
		if item.kind == kind {
			out = append(out, item.id)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (b *Backend) DeleteNode(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrBackendClosed
	}
	if err := b.append(logRecord{Op: "delete_node", ID: id}); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageCorruption, err)
	}
	b.live.nodes.Delete(nodeItem{id: id})
	b.publish(storage.Event{Kind: storage.EventNodeChanged, NodeID: id})
	return nil
}

func (b *Backend) Get(ctx context.Context, snap storage.SnapshotID, key []byte) (storage.Value, bool, error) {
	s := b.stateFor(snap)
	item, ok := s.kv.Get(kvItem{key: key})
	if !ok {
		return storage.Value{}, false, nil
	}
	return item.value, true, nil
}

func (b *Backend) Put(ctx context.Context, key []byte, v storage.Value) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrBackendClosed
	}
	if err := b.append(logRecord{Op: "kv_put", Key: key, ValKind: int(v.Kind), ValInt: v.Int, ValStr: v.Str, ValJSON: v.JSON, ValB: v.Bytes}); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageCorruption, err)
	}
	b.live.kv.ReplaceOrInsert(kvItem{key: key, value: v})
	b.publish(storage.Event{Kind: storage.EventKVChanged, KeyHash: hashKey(key)})
	return nil
}

func (b *Backend) Delete(ctx context.Context, key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return storage.ErrBackendClosed
	}
	if err := b.append(logRecord{Op: "kv_delete", Key: key}); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageCorruption, err)
	}
	b.live.kv.Delete(kvItem{key: key})
	b.publish(storage.Event{Kind: storage.EventKVChanged, KeyHash: hashKey(key)})
	return nil
}

func (b *Backend) PrefixScan(ctx context.Context, snap storage.SnapshotID, prefix []byte) ([]storage.KVEntry, error) {
	s := b.stateFor(snap)
	var out []storage.KVEntry
	s.kv.AscendGreaterOrEqual(kvItem{key: prefix}, func(item kvItem) bool {
		if !bytes.HasPrefix(item.key, prefix) {
			return false
		}
		out = append(out, storage.KVEntry{Key: item.key, Value: item.value})
		return true
	})
	return out, nil
}

// Subscribe registers a buffered receiver for mutation events. filter is
// not applied: every subscriber receives every published event, whatever
// its Kinds.
func (b *Backend) Subscribe(filter storage.Filter) (int64, <-chan storage.Event, error) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.nextSub++
	id := b.nextSub
	ch := make(chan storage.Event, 64)
	b.subs[id] = ch
	_ = filter
	return id, ch, nil
}

func (b *Backend) Unsubscribe(id int64) error {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
	return nil
}

// publish delivers an event to every subscriber without blocking the
// writer: a slow subscriber drops events rather than stalling commits.
func (b *Backend) publish(ev storage.Event) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func hashKey(key []byte) uint64 {
	return xxhash.Sum64(key)
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	b.subMu.Lock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.subMu.Unlock()

	if b.logW != nil {
		_ = b.logW.Flush()
	}
	return b.logFile.Close()
}
