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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/storage"
)

func TestSetupTestBackend(t *testing.T) {
	backend := SetupTestBackend(t)
	require.NotNil(t, backend)

	names := QuerySymbolNames(t, backend)
	assert.Empty(t, names, "should start with no symbols")
}

func TestInsertTestFileAndSymbol(t *testing.T) {
	backend := SetupTestBackend(t)

	fileID := InsertTestFile(t, backend, "auth.go", "abc123")
	symID := InsertTestSymbol(t, backend, fileID, "auth.go", "HandleAuth", "pkg.HandleAuth", "sym-1")

	names := QuerySymbolNames(t, backend)
	require.Len(t, names, 1)
	assert.Equal(t, "HandleAuth", names[0])

	defines, err := backend.Neighbors(context.Background(), 0, fileID, storage.NeighborQuery{Direction: storage.Outgoing, EdgeType: model.EdgeDefines})
	require.NoError(t, err)
	assert.Contains(t, defines, symID)
}

func TestMultipleInserts(t *testing.T) {
	backend := SetupTestBackend(t)

	fileID := InsertTestFile(t, backend, "main.go", "hash1")
	InsertTestSymbol(t, backend, fileID, "main.go", "main", "main.main", "sym-main")
	InsertTestSymbol(t, backend, fileID, "main.go", "helper", "main.helper", "sym-helper")
	InsertTestSymbol(t, backend, fileID, "main.go", "process", "main.process", "sym-process")

	names := QuerySymbolNames(t, backend)
	require.Len(t, names, 3)
}

func TestInsertTestCalls(t *testing.T) {
	backend := SetupTestBackend(t)

	fileID := InsertTestFile(t, backend, "main.go", "hash1")
	callerID := InsertTestSymbol(t, backend, fileID, "main.go", "main", "main.main", "sym-main")
	calleeID := InsertTestSymbol(t, backend, fileID, "main.go", "helper", "main.helper", "sym-helper")

	InsertTestCalls(t, backend, callerID, calleeID)

	callees, err := backend.Neighbors(context.Background(), 0, callerID, storage.NeighborQuery{Direction: storage.Outgoing, EdgeType: model.EdgeCalls})
	require.NoError(t, err)
	assert.Contains(t, callees, calleeID)
}

func TestBackendIsolation(t *testing.T) {
	backend1 := SetupTestBackend(t)
	InsertTestFile(t, backend1, "file1.go", "hash1")

	backend2 := SetupTestBackend(t)
	names := QuerySymbolNames(t, backend2)
	assert.Empty(t, names, "second backend should be isolated from first")

	files1, err := backend1.EntityIDs(context.Background(), 0, model.KindFile)
	require.NoError(t, err)
	assert.Len(t, files1, 1)
}
