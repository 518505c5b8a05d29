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
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/kraklabs/magellan/internal/bootstrap"
	"github.com/kraklabs/magellan/internal/config"
	"github.com/kraklabs/magellan/internal/errors"
	"github.com/kraklabs/magellan/internal/execlog"
	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/output"
	"github.com/kraklabs/magellan/internal/storage"
	"github.com/kraklabs/magellan/internal/ui"
)

// globalFlags are accepted by every subcommand (§6): --db, --output,
// --config, --no-color.
type globalFlags struct {
	dbPath     string
	outputMode string
	configPath string
	noColor    bool
}

// outputKind is the closed set of --output values.
type outputKind int

const (
	outputHuman outputKind = iota
	outputJSON
	outputPretty
)

func parseOutputMode(s string) (outputKind, error) {
	switch s {
	case "", "human":
		return outputHuman, nil
	case "json":
		return outputJSON, nil
	case "pretty":
		return outputPretty, nil
	default:
		return 0, fmt.Errorf("unknown --output value %q (want human, json, or pretty)", s)
	}
}

// newCommandFlagSet builds a pflag.FlagSet pre-populated with the global
// flags, matching the teacher's per-command flag.FlagSet convention but
// using pflag so --db/--output/-o read as POSIX long/short flags.
func newCommandFlagSet(name string, g *globalFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	fs.StringVar(&g.dbPath, "db", "", "Path to the magellan database (default: .magellan/graph.db)")
	fs.StringVarP(&g.outputMode, "output", "o", "human", "Output format: human, json, or pretty")
	fs.StringVar(&g.configPath, "config", "", "Path to .magellan/project.yaml")
	fs.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	return fs
}

// app is the per-invocation context every subcommand runs against: a
// loaded project config, an opened backend, a logger, and the execution id
// shared between the execlog record and the output envelope.
type app struct {
	cfg         *config.Project
	backend     storage.Backend
	logger      *slog.Logger
	executionID string
	output      outputKind
	noColorSet  bool
	recorder    *execlog.Recorder
	execRecord  *model.ExecutionRecord
}

// openApp loads configuration, opens the backend, and starts an execlog
// record, in that order. Callers must defer app.finish(outcomeErr).
func openApp(ctx context.Context, g *globalFlags, argsJSON string) (*app, error) {
	ui.InitColors(g.noColor)

	kind, err := parseOutputMode(g.outputMode)
	if err != nil {
		return nil, errors.NewFilesystemError("invalid --output flag", err.Error(), "use human, json, or pretty", err)
	}

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, errors.NewFilesystemError("cannot load project configuration", err.Error(), "check .magellan/project.yaml syntax", err)
	}
	cfg.Override("", g.dbPath)
	dbPath := g.dbPath
	if dbPath == "" {
		dbPath = cfg.DBPath
		if dbPath == "" {
			dbPath = bootstrap.DefaultDBPath(cfg.Root)
		}
	}

	logger := slog.Default()
	backend, err := bootstrap.OpenBackend(ctx, bootstrap.DBConfig{Path: dbPath}, logger)
	if err != nil {
		return nil, errors.NewDatabaseCompatibilityError(
			"cannot open database",
			err.Error(),
			"the file may be from an incompatible or newer magellan version",
			err,
		)
	}

	executionID := uuid.NewString()
	recorder := execlog.New(backend)
	rec, err := recorder.Start(ctx, executionID, "dev", argsJSON, cfg.Root, dbPath)
	if err != nil {
		logger.Warn("app.execlog.start_failed", "err", err)
	}

	return &app{
		cfg:         cfg,
		backend:     backend,
		logger:      logger,
		executionID: executionID,
		output:      kind,
		noColorSet:  g.noColor,
		recorder:    recorder,
		execRecord:  rec,
	}, nil
}

// indexCounts carries the three aggregate counters an execlog record
// tracks per invocation (§3.1).
type indexCounts struct {
	Files      int
	Symbols    int
	References int
}

// finish closes the backend and writes the terminal execlog outcome.
func (a *app) finish(ctx context.Context, outcome model.ExecutionOutcome, counts indexCounts, cmdErr error) {
	if a.execRecord != nil {
		a.execRecord.FilesIndexed = counts.Files
		a.execRecord.SymbolsIndexed = counts.Symbols
		a.execRecord.ReferencesIndexed = counts.References
		errMsg := ""
		if cmdErr != nil {
			errMsg = cmdErr.Error()
		}
		if err := a.recorder.Finish(ctx, a.execRecord, outcome, errMsg); err != nil {
			a.logger.Warn("app.execlog.finish_failed", "err", err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("app.backend.close_failed", "err", err)
		}
	}
}

// emit writes data to stdout in the mode the --output flag selected: plain
// text via humanFn when human, or the structured envelope otherwise.
func (a *app) emit(data any, humanFn func()) error {
	switch a.output {
	case outputHuman:
		humanFn()
		return nil
	case outputPretty:
		return output.WriteEnvelopeWithID(os.Stdout, a.executionID, data, true)
	default:
		return output.WriteEnvelopeWithID(os.Stdout, a.executionID, data, false)
	}
}

// fail prints/exits per the UserError contract (§7): DB_COMPAT -> exit 2,
// everything else -> exit 1.
func fail(err error, jsonMode bool) {
	errors.FatalError(err, jsonMode)
}
