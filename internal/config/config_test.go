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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "project.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".magellan", "project.yaml")
	cfg := &Project{
		Root:            "./src",
		DBPath:          "./src/.magellan/graph.db",
		IncludeGlobs:    []string{"**/*.go"},
		ExcludeGlobs:    []string{"**/*_test.go", "vendor/**"},
		UseGitignore:    true,
		WatchDebounceMS: 750,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestProject_Override(t *testing.T) {
	cfg := Default()
	cfg.Override("/repo", "")
	assert.Equal(t, "/repo", cfg.Root)
	assert.Equal(t, Default().DBPath, cfg.DBPath)

	cfg.Override("", "/repo/custom.db")
	assert.Equal(t, "/repo", cfg.Root)
	assert.Equal(t, "/repo/custom.db", cfg.DBPath)
}

func TestProject_ScannerOptions(t *testing.T) {
	cfg := &Project{
		Root:         "/repo",
		IncludeGlobs: []string{"**/*.go"},
		ExcludeGlobs: []string{"vendor/**"},
		UseGitignore: true,
	}

	opts := cfg.ScannerOptions()
	assert.Equal(t, "/repo", opts.Root)
	assert.Equal(t, []string{"**/*.go"}, opts.IncludeGlobs)
	assert.Equal(t, []string{"vendor/**"}, opts.ExcludeGlobs)
	assert.True(t, opts.UseGitignore)
}

func TestProject_Debounce(t *testing.T) {
	cfg := &Project{WatchDebounceMS: 250}
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce())

	cfg.WatchDebounceMS = 0
	assert.Equal(t, time.Duration(0), cfg.Debounce())
}
