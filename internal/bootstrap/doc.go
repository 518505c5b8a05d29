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

// Package bootstrap opens the database backend a magellan invocation needs.
//
// A typical CLI command opens its backend once at startup:
//
//	backend, err := bootstrap.OpenBackend(ctx, bootstrap.DBConfig{
//	    Path:   dbPath,
//	    Engine: storage.EngineNative,
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Storage engines
//
// Two engines are available, selected by DBConfig.Engine:
//
//   - native (default): the purpose-built ordered byte-key backend
//     (internal/storage/nativestore). The only engine that supports
//     pub/sub notification of mutations.
//   - sqlite: the embedded relational backend (internal/storage/sqlitestore),
//     using the pure-Go modernc.org/sqlite driver.
//
// OpenBackend opens the file with the engine DBConfig.Engine names
// (storage.DefaultEngine when empty); it does not detect which engine
// created an existing file.
package bootstrap
