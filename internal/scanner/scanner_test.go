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

package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestScan_ExcludesInternalAndGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")
	writeFile(t, root, "vendor/dep.go", "package dep")
	writeFile(t, root, "README.md", "# hi")

	results, skips, err := Scan(Options{
		Root:         root,
		ExcludeGlobs: []string{"vendor/**"},
	}, nil)
	require.NoError(t, err)

	var paths []string
	for _, r := range results {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "vendor/dep.go")
	assert.NotContains(t, paths, ".git/HEAD")
	assert.NotContains(t, paths, "README.md") // unsupported language

	assert.Greater(t, skips[IgnoredInternal], 0)
	assert.Greater(t, skips[ExcludedByGlob], 0)
	assert.Greater(t, skips[UnsupportedLanguage], 0)
}

func TestScan_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "build/out.go", "package build")
	writeFile(t, root, ".gitignore", "build/\n")

	results, skips, err := Scan(Options{Root: root, UseGitignore: true}, nil)
	require.NoError(t, err)

	var paths []string
	for _, r := range results {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "main.go")
	assert.NotContains(t, paths, "build/out.go")
	assert.Greater(t, skips[IgnoredByGitignore], 0)
}

func TestScan_IncludeGlobRestricts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "b.py", "x = 1")

	results, _, err := Scan(Options{
		Root:         root,
		IncludeGlobs: []string{"*.go"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].Path)
}
