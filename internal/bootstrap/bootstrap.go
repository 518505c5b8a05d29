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

// Package bootstrap wires the configured storage backend and the services
// built on top of it (ingestion, watch, query) together for the CLI entry
// point, mirroring the project init/open split the CLI surface needs
// without tying callers to either concrete backend package.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/storage/nativestore"
	"github.com/kraklabs/magellan/internal/storage/sqlitestore"
)

// DBConfig selects and locates a database file.
type DBConfig struct {
	// Path is the database file (or, for the native engine, the durable
	// log file) on disk.
	Path string

	// Engine selects the concrete backend. Defaults to
	// storage.DefaultEngine when empty.
	Engine storage.Engine
}

// OpenBackend opens (creating if absent) the database at cfg.Path using
// the requested engine. Both engines run schema bootstrap/migration as
// part of Open (§4.2); a version-incompatible or non-database file is
// refused there without mutating anything.
//
// Idempotent: calling it again against the same path reopens the same
// database rather than recreating it.
func OpenBackend(ctx context.Context, cfg DBConfig, logger *slog.Logger) (storage.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("bootstrap: db path is required")
	}
	engine := cfg.Engine
	if engine == "" {
		engine = storage.DefaultEngine
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bootstrap: create db directory: %w", err)
		}
	}

	logger.Info("bootstrap.backend.open", "path", cfg.Path, "engine", string(engine))

	switch engine {
	case storage.EngineSQLite:
		return sqlitestore.Open(ctx, cfg.Path)
	case storage.EngineNative:
		return nativestore.Open(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("bootstrap: unknown storage engine %q", engine)
	}
}

// DefaultDBPath returns the conventional per-project database location,
// `.magellan/graph.db` under root, used when no explicit --db is given.
func DefaultDBPath(root string) string {
	return filepath.Join(root, ".magellan", "graph.db")
}
