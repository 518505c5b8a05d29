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
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// progressConfig determines if and how a scan/watch progress bar is shown.
type progressConfig struct {
	// enabled is false for --output json/pretty (machine consumers don't
	// want bar escape codes interleaved with their payload) and whenever
	// stderr is not a TTY (piped output, CI).
	enabled bool

	// writer is where progress output goes (always os.Stderr, so it never
	// collides with a command's stdout envelope).
	writer io.Writer

	noColor bool
}

// newProgressConfig derives a progressConfig from the app's already-resolved
// output mode and --no-color flag.
func newProgressConfig(a *app) progressConfig {
	return progressConfig{
		enabled: a.output == outputHuman && isatty.IsTerminal(os.Stderr.Fd()),
		writer:  os.Stderr,
		noColor: a.noColorSet,
	}
}

// newProgressBar builds a progress bar with consistent styling across
// commands, or nil when progress is disabled. Callers advance it through
// addProgress, which skips a nil bar.
func newProgressBar(cfg progressConfig, total int64, description string) *progressbar.ProgressBar {
	if !cfg.enabled {
		return nil
	}

	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(cfg.writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(!cfg.noColor),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// addProgress advances bar by one if it is non-nil, so call sites never
// need their own nil check.
func addProgress(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}
