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

// Package storage defines the dual-model backend contract: a typed
// property graph with snapshot-scoped reads plus a prefix-scannable
// byte-key KV store, and an optional pub/sub of mutations. Two concrete
// implementations exist (sqlitestore, nativestore); callers depend only on
// this package's interfaces.
package storage

import (
	"context"

	"github.com/kraklabs/magellan/internal/model"
)

// Direction selects which edges Neighbors follows.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// NeighborQuery parameters for Graph.Neighbors.
type NeighborQuery struct {
	Direction Direction
	EdgeType  model.EdgeType // empty means "any"
}

// SnapshotID identifies a point-in-time, read-only view over the backend.
type SnapshotID int64

// Graph is the typed property-graph interface (§4.1).
type Graph interface {
	InsertNode(ctx context.Context, kind model.NodeKind, name, filePath string, payload any) (int64, error)
	InsertEdge(ctx context.Context, from, to int64, edgeType model.EdgeType, payload any) (int64, error)
	GetNode(ctx context.Context, snap SnapshotID, id int64) (*model.Node, error)
	Neighbors(ctx context.Context, snap SnapshotID, id int64, q NeighborQuery) ([]int64, error)
	EntityIDs(ctx context.Context, snap SnapshotID, kind model.NodeKind) ([]int64, error)
	DeleteNode(ctx context.Context, id int64) error

	Begin(ctx context.Context) (Txn, error)
	Snapshot(ctx context.Context) (SnapshotID, error)
	ReleaseSnapshot(snap SnapshotID)
}

// Txn is a single writer transaction boundary.
type Txn interface {
	Commit() error
	Rollback() error
}

// ValueKind distinguishes the union type stored in KV values.
type ValueKind int

const (
	ValInteger ValueKind = iota
	ValString
	ValJSON
	ValBytes
)

// Value is the KV value union: {Integer, String, Json, Bytes}.
type Value struct {
	Kind  ValueKind
	Int   int64
	Str   string
	JSON  []byte // raw JSON document
	Bytes []byte
}

// KVEntry is one (key, value) pair returned by a prefix scan, in
// lexicographic key order.
type KVEntry struct {
	Key   []byte
	Value Value
}

// KV is the prefix-scannable byte-key store interface (§4.1).
type KV interface {
	Get(ctx context.Context, snap SnapshotID, key []byte) (Value, bool, error)
	Put(ctx context.Context, key []byte, value Value) error
	Delete(ctx context.Context, key []byte) error
	PrefixScan(ctx context.Context, snap SnapshotID, prefix []byte) ([]KVEntry, error)
}

// EventKind is the closed tagged variant of pub/sub events (§9).
type EventKind int

const (
	EventNodeChanged EventKind = iota
	EventEdgeChanged
	EventKVChanged
	EventSnapshotCommitted
)

// Event is the single event envelope delivered to pub/sub subscribers.
// Only the field matching Kind is meaningful.
type Event struct {
	Kind     EventKind
	Snapshot SnapshotID
	NodeID   int64
	EdgeID   int64
	KeyHash  uint64
}

// Filter narrows which events a subscription receives; zero value matches
// everything.
type Filter struct {
	Kinds []EventKind
}

// PubSub is the optional mutation-notification interface. Only the
// purpose-built backend (nativestore) implements it; sqlitestore has no
// Subscribe method.
type PubSub interface {
	Subscribe(filter Filter) (subscriptionID int64, receiver <-chan Event, err error)
	Unsubscribe(subscriptionID int64) error
}

// Backend is the full storage contract the rest of the system depends on.
// Two implementations exist: sqlitestore.Backend (embedded relational) and
// nativestore.Backend (purpose-built ordered byte-key, pub/sub-capable).
// A configuration flag selects the implementation at open time; they are
// never mixed in one database file.
type Backend interface {
	Graph
	KV
	Close() error
}
