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

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/schema"
	"github.com/kraklabs/magellan/internal/ui"
)

// runMigrate implements "magellan migrate": forces the forward schema
// migration sequence to run against --db, the same sequence every other
// command already triggers on open (bootstrap.OpenBackend calls
// schema.Open), so this exists mainly to surface DB_COMPAT failures
// explicitly and pin a version without doing any other work.
func runMigrate(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("migrate", &g)
	fs.Parse(args)

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}
	defer a.finish(ctx, model.OutcomeSuccess, indexCounts{}, nil)

	return a.emit(map[string]any{"schema_version": schema.CurrentVersion}, func() {
		ui.Successf("database migrated to schema version %s", ui.CountText(schema.CurrentVersion))
	})
}
