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
	"os"
	"path/filepath"
	"strings"
)

// detectModuleRoot detects the module/crate name that roots every
// display_fqn produced for files under projectRoot, in priority order:
//
//  1. The module directive in projectRoot/go.mod, last path element only
//     (e.g. "github.com/kraklabs/magellan" -> "magellan").
//  2. The directory name of projectRoot.
//  3. "unknown".
func detectModuleRoot(projectRoot string) string {
	if name, ok := parseGoModModule(filepath.Join(projectRoot, "go.mod")); ok {
		return name
	}

	if base := filepath.Base(filepath.Clean(projectRoot)); base != "" && base != "." && base != string(filepath.Separator) {
		return base
	}

	return "unknown"
}

// parseGoModModule extracts the last path element of the "module" directive
// from a go.mod file's contents, without pulling in golang.org/x/mod: the
// directive is always a single top-level line, so a line scan suffices.
func parseGoModModule(path string) (string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "module") {
			continue
		}
		rest := strings.TrimSpace(trimmed[len("module"):])
		rest = strings.Trim(rest, "\"")
		if rest == "" {
			return "", false
		}
		if idx := strings.LastIndex(rest, "/"); idx >= 0 {
			rest = rest[idx+1:]
		}
		if rest == "" {
			return "", false
		}
		return rest, true
	}

	return "", false
}
