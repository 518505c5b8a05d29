// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package testing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/storage/nativestore"
)

// SetupTestBackend creates an in-memory-equivalent native backend rooted at
// a fresh temp dir, cleaned up automatically when the test finishes.
//
// Example:
//
//	backend := testing.SetupTestBackend(t)
//	fileID := testing.InsertTestFile(t, backend, "auth.go", "abc123")
func SetupTestBackend(t *testing.T) storage.Backend {
	t.Helper()

	backend, err := nativestore.Open(context.Background(), filepath.Join(t.TempDir(), "graph.log"))
	if err != nil {
		t.Fatalf("failed to create test backend: %v", err)
	}

	t.Cleanup(func() {
		backend.Close()
	})

	return backend
}

// InsertTestFile inserts a File node and returns its id.
func InsertTestFile(t *testing.T, backend storage.Backend, path, contentHash string) int64 {
	t.Helper()

	id, err := backend.InsertNode(context.Background(), model.KindFile, path, path, &model.FilePayload{
		Path:        path,
		ContentHash: contentHash,
	})
	if err != nil {
		t.Fatalf("failed to insert test file: %v", err)
	}
	return id
}

// InsertTestSymbol inserts a Symbol node under fileID and returns its id.
func InsertTestSymbol(t *testing.T, backend storage.Backend, fileID int64, filePath, name, displayFQN, symbolID string) int64 {
	t.Helper()

	id, err := backend.InsertNode(context.Background(), model.KindSymbol, name, filePath, &model.SymbolPayload{
		Name:       name,
		FQN:        displayFQN,
		DisplayFQN: displayFQN,
		SymbolID:   symbolID,
	})
	if err != nil {
		t.Fatalf("failed to insert test symbol: %v", err)
	}
	if _, err := backend.InsertEdge(context.Background(), fileID, id, model.EdgeDefines, nil); err != nil {
		t.Fatalf("failed to insert defines edge: %v", err)
	}
	return id
}

// InsertTestCalls links callerID to calleeID with a direct CALLS edge,
// mirroring what internal/ingest's resolver produces once a call site
// resolves.
func InsertTestCalls(t *testing.T, backend storage.Backend, callerID, calleeID int64) {
	t.Helper()

	if _, err := backend.InsertEdge(context.Background(), callerID, calleeID, model.EdgeCalls, nil); err != nil {
		t.Fatalf("failed to insert calls edge: %v", err)
	}
}

// QuerySymbolNames returns the Name of every Symbol node in the backend, for
// assertions that only care about which symbols exist.
func QuerySymbolNames(t *testing.T, backend storage.Backend) []string {
	t.Helper()

	ids, err := backend.EntityIDs(context.Background(), 0, model.KindSymbol)
	if err != nil {
		t.Fatalf("failed to list symbols: %v", err)
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := backend.GetNode(context.Background(), 0, id)
		if err != nil {
			continue
		}
		names = append(names, n.Name)
	}
	return names
}
