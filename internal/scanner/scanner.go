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

// Package scanner walks a repository root and decides, per file, whether
// it is eligible for ingestion (§4.6).
package scanner

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kraklabs/magellan/internal/parserpool"
)

// SkipReason is the closed set of reasons a path is not ingested.
type SkipReason string

const (
	IgnoredInternal     SkipReason = "IgnoredInternal"
	ExcludedByGlob      SkipReason = "ExcludedByGlob"
	IgnoredByGitignore  SkipReason = "IgnoredByGitignore"
	UnsupportedLanguage SkipReason = "UnsupportedLanguage"
)

// internalIgnores are directories never walked regardless of any other
// configuration, highest precedence of all four filters.
var internalIgnores = []string{".git", ".magellan", "node_modules", ".hg", ".svn"}

// Options configures one scan. Precedence, highest first, resolved exactly
// in this order and documented as the Open Question's answer: internal
// ignores, then exclude globs, then .gitignore, then include globs (which
// only ever restrict an already-surviving path further, never re-admit
// one a higher filter rejected).
type Options struct {
	Root          string
	ExcludeGlobs  []string
	IncludeGlobs  []string
	UseGitignore  bool
	MaxFileSize   int64 // bytes, 0 = unlimited
}

// Result is one eligible file.
type Result struct {
	Path     string // relative to Root, forward slashes
	FullPath string
	Size     int64
	Language parserpool.Language
}

// Scan walks opts.Root and returns eligible files plus a count of paths
// skipped per SkipReason.
func Scan(opts Options, logger *slog.Logger) ([]Result, map[SkipReason]int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	gi := loadGitignore(opts.Root, opts.UseGitignore)

	var results []Result
	skips := make(map[SkipReason]int)

	err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("scanner.walk.error", "path", path, "err", err)
			return nil
		}
		if path == opts.Root {
			return nil
		}
		rel, relErr := filepath.Rel(opts.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if reason, skip := classify(rel, d.IsDir(), opts, gi); skip {
			skips[reason]++
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			skips[ExcludedByGlob]++
			return nil
		}

		lang, ok := parserpool.LanguageForPath(path)
		if !ok {
			skips[UnsupportedLanguage]++
			return nil
		}

		results = append(results, Result{
			Path:     rel,
			FullPath: path,
			Size:     info.Size(),
			Language: lang,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return results, skips, nil
}

// classify applies the four filters in precedence order. For directories,
// only the internal-ignore and exclude-glob/gitignore checks apply (a
// directory has no language and include-globs never exclude a directory
// outright, since a file beneath it might still match).
func classify(rel string, isDir bool, opts Options, gi *gitignoreMatcher) (SkipReason, bool) {
	base := filepath.Base(rel)
	for _, ig := range internalIgnores {
		if base == ig {
			return IgnoredInternal, true
		}
	}

	for _, pattern := range opts.ExcludeGlobs {
		if globMatches(pattern, rel) {
			return ExcludedByGlob, true
		}
	}

	if gi != nil && gi.match(rel, isDir) {
		return IgnoredByGitignore, true
	}

	if !isDir && len(opts.IncludeGlobs) > 0 {
		matched := false
		for _, pattern := range opts.IncludeGlobs {
			if globMatches(pattern, rel) {
				matched = true
				break
			}
		}
		if !matched {
			return ExcludedByGlob, true
		}
	}

	return "", false
}

// globMatches matches pattern against rel, trying the pattern as given and
// with an implicit "**/" prefix so a bare "*.log" style pattern matches at
// any depth, not just at the root.
func globMatches(pattern, rel string) bool {
	pattern = filepath.ToSlash(pattern)
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	if !strings.HasPrefix(pattern, "**/") {
		if ok, _ := doublestar.Match("**/"+pattern, rel); ok {
			return true
		}
	}
	return false
}

// loadGitignore reads Root/.gitignore if present and useGitignore is set.
// Absence or a disabled flag both yield a nil matcher, which match()
// reports as never-matching.
func loadGitignore(root string, useGitignore bool) *gitignoreMatcher {
	if !useGitignore {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return &gitignoreMatcher{patterns: patterns}
}

// gitignoreMatcher is a deliberately simple .gitignore subset: one pattern
// per line, "/"-rooted or anywhere, trailing "/" restricts to directories.
// It does not implement negation (§4.6 Non-goals exclude full gitignore
// semantics).
type gitignoreMatcher struct {
	patterns []string
}

func (g *gitignoreMatcher) match(rel string, isDir bool) bool {
	for _, p := range g.patterns {
		dirOnly := strings.HasSuffix(p, "/")
		pat := strings.TrimSuffix(p, "/")
		if dirOnly && !isDir {
			continue
		}
		rooted := strings.HasPrefix(pat, "/")
		pat = strings.TrimPrefix(pat, "/")
		if rooted {
			if ok, _ := doublestar.Match(pat, rel); ok {
				return true
			}
			continue
		}
		if globMatches(pat, rel) {
			return true
		}
	}
	return false
}
