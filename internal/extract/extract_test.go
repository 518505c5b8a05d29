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

package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/magellan/internal/model"
	"github.com/kraklabs/magellan/internal/parserpool"
)

const goSample = `package server

type Server struct {
	conns int
}

func (s *Server) Start() error {
	if s.conns > 0 {
		return helper()
	}
	return nil
}

func helper() error {
	return nil
}
`

func TestExtract_Go_SymbolsAndCalls(t *testing.T) {
	pool := parserpool.New()
	e := New(pool)

	res, err := e.Extract(context.Background(), parserpool.Go, "/repo/magellan", "server.go", []byte(goSample))
	require.NoError(t, err)
	require.False(t, res.HasErrors)

	var names []string
	for _, s := range res.Symbols {
		names = append(names, s.Payload.Name)
	}
	assert.Contains(t, names, "Server")
	assert.Contains(t, names, "Server.Start")
	assert.Contains(t, names, "helper")

	var sawCallToHelper bool
	for _, c := range res.Calls {
		if c.Payload.CalleeName == "helper" {
			sawCallToHelper = true
			assert.Equal(t, "Server.Start", c.Payload.CallerName)
		}
	}
	assert.True(t, sawCallToHelper, "expected a call fact from Start to helper")

	var sawIf bool
	for _, b := range res.CfgBlocks {
		if b.Kind == model.CfgIf {
			sawIf = true
		}
	}
	assert.True(t, sawIf, "expected an if cfg block inside Start")
}

func TestExtract_Go_SymbolIDDeterministic(t *testing.T) {
	pool := parserpool.New()
	e := New(pool)

	res1, err := e.Extract(context.Background(), parserpool.Go, "/repo/magellan", "server.go", []byte(goSample))
	require.NoError(t, err)
	res2, err := e.Extract(context.Background(), parserpool.Go, "/repo/magellan", "server.go", []byte(goSample))
	require.NoError(t, err)

	require.Equal(t, len(res1.Symbols), len(res2.Symbols))
	for i := range res1.Symbols {
		assert.Equal(t, res1.Symbols[i].Payload.SymbolID, res2.Symbols[i].Payload.SymbolID)
		assert.Len(t, res1.Symbols[i].Payload.SymbolID, 32)
	}
}

func TestExtract_DisplayFQN_PrefersGoModModuleName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module github.com/kraklabs/magellan\n\ngo 1.22\n"), 0644))

	pool := parserpool.New()
	e := New(pool)

	res, err := e.Extract(context.Background(), parserpool.Go, dir, "server.go", []byte(goSample))
	require.NoError(t, err)

	var displayFQNs []string
	for _, s := range res.Symbols {
		displayFQNs = append(displayFQNs, s.Payload.DisplayFQN)
	}
	assert.Contains(t, displayFQNs, "magellan::Server")
	assert.Contains(t, displayFQNs, "magellan::Server.Start")
}

func TestExtract_DisplayFQN_FallsBackToDirectoryName(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Base(dir)

	pool := parserpool.New()
	e := New(pool)

	res, err := e.Extract(context.Background(), parserpool.Go, dir, "server.go", []byte(goSample))
	require.NoError(t, err)

	var displayFQNs []string
	for _, s := range res.Symbols {
		displayFQNs = append(displayFQNs, s.Payload.DisplayFQN)
	}
	assert.Contains(t, displayFQNs, base+"::Server")
}
