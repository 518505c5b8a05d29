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

// Package sqlitestore implements storage.Backend as an embedded relational
// database using the pure-Go, CGO-free modernc.org/sqlite driver. It is
// one of the two backends required by §4.1; it does not implement
// storage.PubSub (that capability is native-backend only).
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/schema"
	"github.com/kraklabs/magellan/internal/storage"
)

// Backend is the embedded relational storage.Backend implementation.
type Backend struct {
	db *sql.DB

	mu        sync.RWMutex
	closed    bool
	snapshots map[storage.SnapshotID]*sql.Tx
	nextSnap  int64
	edgeSeq   int64
}

// Open opens (or creates) a sqlite database at path, runs schema bootstrap
// and migration, and returns a ready Backend.
//
// PRAGMA journal_mode=WAL gives readers a consistent point-in-time view of
// committed data that survives concurrent writer commits, which is what
// Snapshot relies on for §4.1's "writes during a read do not affect the
// read's result" guarantee.
func Open(ctx context.Context, path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; reads go through dedicated snapshot txns

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	b := &Backend{
		db:        db,
		snapshots: make(map[storage.SnapshotID]*sql.Tx),
	}

	if err := b.bootstrapTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := schema.Open(&schemaTarget{b: b, ctx: ctx}); err != nil {
		_ = db.Close()
		return nil, err
	}

	var maxEdge sql.NullInt64
	_ = db.QueryRowContext(ctx, `SELECT MAX(id) FROM graph_edges`).Scan(&maxEdge)
	if maxEdge.Valid {
		b.edgeSeq = maxEdge.Int64
	}

	return b, nil
}

func (b *Backend) bootstrapTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL,
			backend_schema_version INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS graph_entities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			file_path TEXT NOT NULL DEFAULT '',
			payload BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_file_path ON graph_entities(file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_kind ON graph_entities(kind)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_id INTEGER NOT NULL,
			to_id INTEGER NOT NULL,
			edge_type TEXT NOT NULL,
			payload BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_from ON graph_edges(from_id, edge_type, id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_to ON graph_edges(to_id, edge_type, id)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key BLOB PRIMARY KEY,
			value_kind INTEGER NOT NULL,
			value_int INTEGER,
			value_str TEXT,
			value_json BLOB,
			value_bytes BLOB
		) WITHOUT ROWID`,
	}
	for _, s := range stmts {
		if _, err := b.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("bootstrap table: %w", err)
		}
	}
	return nil
}

// schemaTarget adapts Backend to schema.Target.
type schemaTarget struct {
	b   *Backend
	ctx context.Context
}

func (t *schemaTarget) ReadMeta() (*schema.Meta, bool, error) {
	row := t.b.db.QueryRowContext(t.ctx, `SELECT schema_version, backend_schema_version, created_at FROM meta WHERE id = 1`)
	var m schema.Meta
	var createdUnix int64
	err := row.Scan(&m.SchemaVersion, &m.BackendSchemaVersion, &createdUnix)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	m.CreatedAt = time.Unix(createdUnix, 0)
	return &m, true, nil
}

func (t *schemaTarget) WriteMeta(m schema.Meta) error {
	_, err := t.b.db.ExecContext(t.ctx, `
		INSERT INTO meta (id, schema_version, backend_schema_version, created_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET schema_version = excluded.schema_version,
			backend_schema_version = excluded.backend_schema_version`,
		m.SchemaVersion, m.BackendSchemaVersion, m.CreatedAt.Unix())
	return err
}

func (t *schemaTarget) Migrations() []schema.Migration {
	// No prior schema version exists yet for this backend; migrations are
	// added here as CurrentVersion advances.
	return nil
}

// Snapshot opens a dedicated read transaction pinned to the database state
// at this instant; subsequent writes on other connections do not affect
// reads made through this snapshot (WAL snapshot isolation).
func (b *Backend) Snapshot(ctx context.Context) (storage.SnapshotID, error) {
	tx, err := b.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return 0, fmt.Errorf("begin snapshot: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSnap++
	id := storage.SnapshotID(b.nextSnap)
	b.snapshots[id] = tx
	return id, nil
}

// ReleaseSnapshot closes the read transaction backing snap.
func (b *Backend) ReleaseSnapshot(snap storage.SnapshotID) {
	b.mu.Lock()
	tx, ok := b.snapshots[snap]
	delete(b.snapshots, snap)
	b.mu.Unlock()
	if ok {
		_ = tx.Rollback()
	}
}

func (b *Backend) querier(snap storage.SnapshotID) interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if snap != 0 {
		b.mu.RLock()
		tx, ok := b.snapshots[snap]
		b.mu.RUnlock()
		if ok {
			return tx
		}
	}
	return b.db
}

// txn implements storage.Txn over a single sqlite write transaction.
type txn struct{ tx *sql.Tx }

func (t *txn) Commit() error   { return t.tx.Commit() }
func (t *txn) Rollback() error { return t.tx.Rollback() }

// Begin opens the single writer transaction. The backend holds at most one
// open write transaction at a time (single-writer model, §5).
func (b *Backend) Begin(ctx context.Context) (storage.Txn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, storage.ErrBackendClosed
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrLockContention, err)
	}
	return &txn{tx: tx}, nil
}

// InsertNode inserts a node and returns its allocated id.
func (b *Backend) InsertNode(ctx context.Context, kind model.NodeKind, name, filePath string, payload any) (int64, error) {
	raw, err := storage.EncodePayload(payload)
	if err != nil {
		return 0, err
	}
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO graph_entities (kind, name, file_path, payload) VALUES (?, ?, ?, ?)`,
		string(kind), name, filePath, raw)
	if err != nil {
		return 0, fmt.Errorf("insert node: %w", err)
	}
	return res.LastInsertId()
}

// InsertEdge inserts an edge and returns its monotonically increasing id,
// which doubles as the insertion-order tie-break Neighbors relies on.
func (b *Backend) InsertEdge(ctx context.Context, from, to int64, edgeType model.EdgeType, payload any) (int64, error) {
	raw, err := storage.EncodePayload(payload)
	if err != nil {
		return 0, err
	}
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO graph_edges (from_id, to_id, edge_type, payload) VALUES (?, ?, ?, ?)`,
		from, to, string(edgeType), raw)
	if err != nil {
		return 0, fmt.Errorf("insert edge: %w", err)
	}
	return res.LastInsertId()
}

// GetNode reads a node by id through snap (0 means "latest committed").
func (b *Backend) GetNode(ctx context.Context, snap storage.SnapshotID, id int64) (*model.Node, error) {
	q := b.querier(snap)
	row := q.QueryRowContext(ctx, `SELECT id, kind, name, file_path, payload FROM graph_entities WHERE id = ?`, id)

	var n model.Node
	var kind, name, filePath string
	var raw []byte
	if err := row.Scan(&n.ID, &kind, &name, &filePath, &raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get node: %w", err)
	}
	n.Kind = model.NodeKind(kind)
	n.Name = name
	n.FilePath = filePath
	payload, err := storage.DecodePayload(n.Kind, raw)
	if err != nil {
		return nil, err
	}
	n.Payload = payload
	return &n, nil
}

// Neighbors returns node ids reachable via one hop, ordered by edge
// insertion id ascending (§4.1's determinism requirement).
func (b *Backend) Neighbors(ctx context.Context, snap storage.SnapshotID, id int64, nq storage.NeighborQuery) ([]int64, error) {
	q := b.querier(snap)

	col, otherCol := "from_id", "to_id"
	if nq.Direction == storage.Incoming {
		col, otherCol = "to_id", "from_id"
	}

	query := fmt.Sprintf(`SELECT %s FROM graph_edges WHERE %s = ?`, otherCol, col)
	args := []any{id}
	if nq.EdgeType != "" {
		query += ` AND edge_type = ?`
		args = append(args, string(nq.EdgeType))
	}
	query += ` ORDER BY id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("neighbors: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// EntityIDs returns all node ids of kind, ascending.
func (b *Backend) EntityIDs(ctx context.Context, snap storage.SnapshotID, kind model.NodeKind) ([]int64, error) {
	q := b.querier(snap)
	rows, err := q.QueryContext(ctx, `SELECT id FROM graph_entities WHERE kind = ? ORDER BY id ASC`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("entity ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteNode removes a single node row. Cascading deletion of derived
// entities is the caller's (internal/ingest's) responsibility, since only
// it knows the edge topology to cascade through.
func (b *Backend) DeleteNode(ctx context.Context, id int64) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM graph_entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	return nil
}

// Get implements storage.KV.
func (b *Backend) Get(ctx context.Context, snap storage.SnapshotID, key []byte) (storage.Value, bool, error) {
	q := b.querier(snap)
	row := q.QueryRowContext(ctx, `SELECT value_kind, value_int, value_str, value_json, value_bytes FROM kv WHERE key = ?`, key)

	var kind int
	var vi sql.NullInt64
	var vs sql.NullString
	var vj, vb []byte
	if err := row.Scan(&kind, &vi, &vs, &vj, &vb); err != nil {
		if err == sql.ErrNoRows {
			return storage.Value{}, false, nil
		}
		return storage.Value{}, false, fmt.Errorf("kv get: %w", err)
	}

	v := storage.Value{Kind: storage.ValueKind(kind)}
	switch v.Kind {
	case storage.ValInteger:
		v.Int = vi.Int64
	case storage.ValString:
		v.Str = vs.String
	case storage.ValJSON:
		v.JSON = vj
	case storage.ValBytes:
		v.Bytes = vb
	}
	return v, true, nil
}

// Put implements storage.KV.
func (b *Backend) Put(ctx context.Context, key []byte, v storage.Value) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO kv (key, value_kind, value_int, value_str, value_json, value_bytes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_kind=excluded.value_kind, value_int=excluded.value_int,
			value_str=excluded.value_str, value_json=excluded.value_json, value_bytes=excluded.value_bytes`,
		key, int(v.Kind), nullableInt(v), nullableStr(v), v.JSON, v.Bytes)
	if err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

func nullableInt(v storage.Value) any {
	if v.Kind == storage.ValInteger {
		return v.Int
	}
	return nil
}

func nullableStr(v storage.Value) any {
	if v.Kind == storage.ValString {
		return v.Str
	}
	return nil
}

// Delete implements storage.KV.
func (b *Backend) Delete(ctx context.Context, key []byte) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

// PrefixScan returns entries whose key starts with prefix, lexicographic
// key order, by exploiting that BLOB keys sort byte-wise in sqlite and
// computing an exclusive upper bound by incrementing the last byte.
func (b *Backend) PrefixScan(ctx context.Context, snap storage.SnapshotID, prefix []byte) ([]storage.KVEntry, error) {
	q := b.querier(snap)

	upper := upperBound(prefix)
	var rows *sql.Rows
	var err error
	if upper == nil {
		rows, err = q.QueryContext(ctx, `SELECT key, value_kind, value_int, value_str, value_json, value_bytes FROM kv WHERE key >= ? ORDER BY key ASC`, prefix)
	} else {
		rows, err = q.QueryContext(ctx, `SELECT key, value_kind, value_int, value_str, value_json, value_bytes FROM kv WHERE key >= ? AND key < ? ORDER BY key ASC`, prefix, upper)
	}
	if err != nil {
		return nil, fmt.Errorf("prefix scan: %w", err)
	}
	defer rows.Close()

	var out []storage.KVEntry
	for rows.Next() {
		var key []byte
		var kind int
		var vi sql.NullInt64
		var vs sql.NullString
		var vj, vb []byte
		if err := rows.Scan(&key, &kind, &vi, &vs, &vj, &vb); err != nil {
			return nil, err
		}
		v := storage.Value{Kind: storage.ValueKind(kind)}
		switch v.Kind {
		case storage.ValInteger:
			v.Int = vi.Int64
		case storage.ValString:
			v.Str = vs.String
		case storage.ValJSON:
			v.JSON = vj
		case storage.ValBytes:
			v.Bytes = vb
		}
		out = append(out, storage.KVEntry{Key: key, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i].Key) < string(out[j].Key) })
	return out, rows.Err()
}

// upperBound returns the smallest byte string strictly greater than every
// string starting with prefix, or nil if prefix is all 0xFF bytes (scan
// runs unbounded in that case).
func upperBound(prefix []byte) []byte {
	b := make([]byte, len(prefix))
	copy(b, prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xFF {
			b[i]++
			return b[:i+1]
		}
	}
	return nil
}

// Close closes the database and rolls back any still-open snapshots.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, tx := range b.snapshots {
		_ = tx.Rollback()
		delete(b.snapshots, id)
	}
	return b.db.Close()
}
