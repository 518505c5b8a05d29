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

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/magellan/internal/scanner"
)

func TestWatcher_DebouncesAndSortsBatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package b"), 0o644))

	var mu sync.Mutex
	var seen []string
	reconciler := ReconcilerFunc(func(_ context.Context, _, relPath string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, relPath)
		return nil
	})

	w, err := New(reconciler, Options{Root: root, Debounce: 30 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, WatchOnly))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package b\n// edit"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n// edit"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, "a.go")
	assert.Contains(t, seen, "b.go")
}

func TestWatcher_ScanInitialQueuesBaseline(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a"), 0o644))

	var mu sync.Mutex
	var seen []string
	reconciler := ReconcilerFunc(func(_ context.Context, _, relPath string) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, relPath)
		return nil
	})

	w, err := New(reconciler, Options{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		ScanOpts: scanner.Options{Root: root},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, ScanInitial))
	defer w.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
