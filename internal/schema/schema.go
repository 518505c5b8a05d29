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

// Package schema manages the single schema-version record every backend
// persists (§4.2), the forward-only migration sequence, and the
// non-mutating refusal behavior required when a database is newer than
// this build understands, or is not a magellan database at all.
//
// The stable "DB_COMPAT: " error prefix lets calling scripts match on
// compatibility failures without parsing free-form text (§6).
package schema

import (
	"errors"
	"fmt"
	"time"
)

// CurrentVersion is the schema version this build writes for new
// databases and migrates older databases up to.
const CurrentVersion = 1

// Meta is the single read-on-open record persisted by every backend.
type Meta struct {
	SchemaVersion        int
	BackendSchemaVersion int
	CreatedAt            time.Time
}

// ErrNotDatabase is returned when a file's contents do not parse as a
// magellan database (nativestore: a log line that is not a valid record).
var ErrNotDatabase = errors.New("DB_COMPAT: not a magellan database")

// IncompatibleError reports a schema version newer than CurrentVersion.
// Opening must refuse without mutating the file.
type IncompatibleError struct {
	Found   int
	Current int
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("DB_COMPAT: database schema version %d is newer than supported version %d", e.Found, e.Current)
}

// Migration is one forward-only, idempotent step from version N to N+1.
type Migration struct {
	FromVersion int
	Apply       func() error
}

// Target is implemented by a backend's schema bootstrap so that Open can
// drive the generic version-check/migrate sequence without knowing the
// backend's physical table layout.
type Target interface {
	ReadMeta() (*Meta, bool, error)
	WriteMeta(Meta) error
	Migrations() []Migration
}

// Open reads the schema-version record (if any), refuses to proceed on a
// too-new database without mutating anything, and otherwise runs any
// pending forward migrations in order before writing the updated record.
//
// A brand-new (absent-meta) database is initialized at CurrentVersion with
// no migrations run.
func Open(t Target) error {
	meta, exists, err := t.ReadMeta()
	if err != nil {
		return err
	}

	if !exists {
		return t.WriteMeta(Meta{
			SchemaVersion:        CurrentVersion,
			BackendSchemaVersion: CurrentVersion,
			CreatedAt:            time.Now(),
		})
	}

	if meta.SchemaVersion > CurrentVersion {
		return &IncompatibleError{Found: meta.SchemaVersion, Current: CurrentVersion}
	}

	if meta.SchemaVersion == CurrentVersion {
		return nil
	}

	migrations := t.Migrations()
	version := meta.SchemaVersion
	for version < CurrentVersion {
		applied := false
		for _, m := range migrations {
			if m.FromVersion == version {
				if err := m.Apply(); err != nil {
					return fmt.Errorf("migrate schema v%d->v%d: %w", version, version+1, err)
				}
				version++
				applied = true
				break
			}
		}
		if !applied {
			return fmt.Errorf("no migration registered from schema version %d", version)
		}
	}

	meta.SchemaVersion = CurrentVersion
	meta.BackendSchemaVersion = CurrentVersion
	return t.WriteMeta(*meta)
}
