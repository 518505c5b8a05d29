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

// Package config loads the project-local .magellan/project.yaml file: root
// directory, database path, include/exclude globs, and watch debounce.
// CLI flags take precedence over file values (Override), matching the
// teacher's --config flag precedence.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/magellan/internal/contract"
	"github.com/kraklabs/magellan/internal/scanner"
)

// DefaultPath is where Load looks when no explicit path is given.
const DefaultPath = ".magellan/project.yaml"

// Project is the on-disk shape of .magellan/project.yaml.
type Project struct {
	Root           string   `yaml:"root"`
	DBPath         string   `yaml:"db_path"`
	IncludeGlobs   []string `yaml:"include_globs,omitempty"`
	ExcludeGlobs   []string `yaml:"exclude_globs,omitempty"`
	UseGitignore   bool     `yaml:"use_gitignore"`
	WatchDebounceMS int     `yaml:"debounce_ms,omitempty"`
}

// Default returns the configuration used when no project.yaml exists yet.
func Default() *Project {
	return &Project{
		Root:            ".",
		DBPath:          filepath.Join(".magellan", "graph.db"),
		UseGitignore:    true,
		WatchDebounceMS: 500,
	}
}

// Load reads and parses path. If path does not exist, Load returns Default()
// and no error, so a first run works without a project.yaml on disk.
func Load(path string) (*Project, error) {
	if path == "" {
		path = DefaultPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg *Project) error {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0644)
}

// Override applies non-zero-value CLI flag overrides on top of cfg, matching
// the teacher's --config/flag precedence: explicit flags always win.
func (p *Project) Override(root, dbPath string) {
	if root != "" {
		p.Root = root
	}
	if dbPath != "" {
		p.DBPath = dbPath
	}
}

// ScannerOptions projects the subset of Project the scanner needs.
func (p *Project) ScannerOptions() scanner.Options {
	return scanner.Options{
		Root:         p.Root,
		ExcludeGlobs: p.ExcludeGlobs,
		IncludeGlobs: p.IncludeGlobs,
		UseGitignore: p.UseGitignore,
		MaxFileSize:  contract.MaxFileSizeBytes(),
	}
}

// Debounce returns the configured watch debounce as a time.Duration.
func (p *Project) Debounce() time.Duration {
	if p.WatchDebounceMS <= 0 {
		return 0
	}
	return time.Duration(p.WatchDebounceMS) * time.Millisecond
}
