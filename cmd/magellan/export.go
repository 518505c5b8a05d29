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
	"os"

	"github.com/kraklabs/magellan/internal/errors"
	"github.com/kraklabs/magellan/internal/export"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/ui"
)

// runExport implements "magellan export --format {json,jsonl,csv,dot,scip}
// [--file path] [--kind kind]", writing to stdout.
func runExport(ctx context.Context, args []string) error {
	var g globalFlags
	fs := newCommandFlagSet("export", &g)
	format := fs.String("format", "json", "export format: json, jsonl, csv, dot, scip")
	filePath := fs.String("file", "", "restrict export to one file path")
	kind := fs.String("kind", "", "restrict export to one node kind")
	fs.Parse(args)

	argsJSON, _ := json.Marshal(args)
	a, err := openApp(ctx, &g, string(argsJSON))
	if err != nil {
		return err
	}
	defer a.finish(ctx, model.OutcomeSuccess, indexCounts{}, nil)

	snap, err := a.backend.Snapshot(ctx)
	if err != nil {
		return err
	}
	defer a.backend.ReleaseSnapshot(snap)

	filter := export.Filter{FilePath: *filePath, Kind: model.NodeKind(*kind)}

	var exportErr error
	switch *format {
	case "json":
		exportErr = export.JSON(ctx, a.backend, snap, filter, os.Stdout)
	case "jsonl":
		exportErr = export.JSONL(ctx, a.backend, snap, filter, os.Stdout)
	case "csv":
		exportErr = export.CSV(ctx, a.backend, snap, filter, os.Stdout)
	case "dot":
		exportErr = export.DOT(ctx, a.backend, snap, filter, os.Stdout)
	case "scip":
		exportErr = export.SCIP(ctx, a.backend, snap, filter, os.Stdout)
	default:
		return errors.NewFilesystemError("unknown export format", *format, "use one of: json, jsonl, csv, dot, scip", nil)
	}
	if exportErr != nil {
		return exportErr
	}
	if a.output == outputHuman {
		ui.Success("export written to stdout")
	}
	return nil
}
