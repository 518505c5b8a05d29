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

// Package main implements the magellan CLI for building and querying a
// persistent code knowledge graph.
//
// Usage:
//
//	magellan scan                       Index (or re-index) the current repository
//	magellan watch                      Watch the repository and reconcile changes live
//	magellan status [-o json]           Show database status and recent activity
//	magellan query <display_fqn>        Look up a symbol by its display FQN
//	magellan export --format dot        Export the graph snapshot
//	magellan --help                     Show full command list
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kraklabs/magellan/internal/ui"
)

var version = "dev"

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "--version" {
		fmt.Printf("magellan version %s\n", version)
		os.Exit(0)
	}
	if args[0] == "--help" || args[0] == "-h" {
		printUsage()
		os.Exit(0)
	}

	ctx := context.Background()
	command := args[0]
	rest := args[1:]

	var err error
	switch command {
	case "scan":
		err = runScan(ctx, rest)
	case "watch":
		err = runWatch(ctx, rest)
	case "status":
		err = runStatus(ctx, rest)
	case "query":
		err = runQuery(ctx, rest)
	case "refs":
		err = runRefs(ctx, rest)
	case "get":
		err = runGet(ctx, rest)
	case "files":
		err = runFiles(ctx, rest)
	case "metrics":
		err = runMetrics(ctx, rest)
	case "cycles":
		err = runCycles(ctx, rest)
	case "condense":
		err = runCondense(ctx, rest)
	case "paths":
		err = runPaths(ctx, rest)
	case "slice":
		err = runSlice(ctx, rest)
	case "dead-code":
		err = runDeadCode(ctx, rest)
	case "reachable":
		err = runReachable(ctx, rest)
	case "collisions":
		err = runCollisions(ctx, rest)
	case "ast":
		err = runAst(ctx, rest)
	case "find-ast":
		err = runFindAst(ctx, rest)
	case "export":
		err = runExport(ctx, rest)
	case "label":
		err = runLabel(ctx, rest)
	case "verify":
		err = runVerify(ctx, rest)
	case "migrate":
		err = runMigrate(ctx, rest)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fail(err, commandUsedJSON(rest))
	}
}

// commandUsedJSON inspects a subcommand's own args for --output json so a
// fatal error before the app context exists still reports correctly.
func commandUsedJSON(args []string) bool {
	for i, a := range args {
		if a == "--output=json" || a == "-ojson" {
			return true
		}
		if (a == "--output" || a == "-o") && i+1 < len(args) && args[i+1] == "json" {
			return true
		}
	}
	return false
}

func printUsage() {
	ui.Header("magellan - code knowledge graph CLI")
	fmt.Fprint(os.Stderr, `
Usage:
  magellan <command> [options]

Indexing:
  scan          Scan the repository and reconcile every eligible file
  watch         Watch the repository and reconcile changes as they happen
  status        Show database status and recent execution history

Queries:
  query         Look up a symbol by its display FQN
  refs          List references to a symbol
  get           Fetch one node by id
  files         List indexed files
  metrics       Show a file's precomputed metrics, or list hotspots
  reachable     Forward/reverse reachability from a symbol
  cycles        Strongly connected components that form a cycle
  condense      Condensation supernode ids for every cycle
  paths         Bounded path enumeration between two symbols
  slice         Program slice (call-graph fallback) around a symbol
  dead-code     Symbols unreachable from a set of entrypoints
  collisions    Symbols sharing one fully-qualified name
  ast           Fetch the AST payload for a file
  find-ast      Search AST nodes by kind

Maintenance:
  export        Export a snapshot as json, jsonl, dot, csv, or scip
  label         Get or set a KV label
  verify        Check database integrity and freshness
  migrate       Run forward schema migrations

Global Options (every command):
  --db <path>        Database file (default: .magellan/graph.db)
  --output, -o        Output format: human, json, pretty (default: human)
  --config <path>    Path to .magellan/project.yaml
  --no-color         Disable colored output

Exit codes: 0 success, 1 user error, 2 database incompatibility.
`)
}
